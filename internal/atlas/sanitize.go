package atlas

import "strings"

var nameReplacer = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	`"`, "_",
	"/", "_",
	`\`, "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// SanitizeName makes a SubTexture name safe to use as a file name stem.
func SanitizeName(name string) string {
	return nameReplacer.Replace(name)
}
