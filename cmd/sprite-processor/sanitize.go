package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sprites.runesynergy.dev/internal/atlas"
)

var sanitize_lower bool

func sanitizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sanitize NAME...",
		Short: "Print the file name each frame name is extracted to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				name := atlas.SanitizeName(arg)
				if sanitize_lower {
					name = strings.ToLower(name)
				}
				fmt.Fprintln(cmd.OutOrStdout(), name+".png")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&sanitize_lower, "lower", "l", false, "lowercase the result")
	return cmd
}
