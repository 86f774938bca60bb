// Package config holds the settings shared by the pipelines. Nothing in the
// pipelines reads global state: every run gets its Config explicitly.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
)

// Layout names accepted by Config.Layout.
const (
	LayoutShelf   = "shelf"
	LayoutBinpack = "binpack"
)

var (
	ErrNoInput  = errors.New("select an input folder")
	ErrNoOutput = errors.New("select an output folder")
)

type Config struct {
	Input  string `json:"input"`
	Output string `json:"output"`

	// Workers bounds the number of tasks a pipeline runs at once.
	Workers int `json:"workers"`

	// SkipDirs are directory names extraction never descends into.
	SkipDirs []string `json:"skip_dirs"`

	Padding    int    `json:"padding"`
	MaxGrowths int    `json:"max_growths"`
	Layout     string `json:"layout"`

	// Attribution is written in the comment heading every packed descriptor.
	Attribution string `json:"attribution"`

	NoProgress bool   `json:"no_progress"`
	LogLevel   string `json:"log_level"`
}

func Default() *Config {
	return &Config{
		Workers:     runtime.NumCPU(),
		SkipDirs:    []string{"frames_output", "Quegod", "frames"},
		Padding:     10,
		MaxGrowths:  64,
		Layout:      LayoutShelf,
		Attribution: "NOCTROX GATO",
		LogLevel:    "info",
	}
}

// Load reads a JSON file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// Validate checks that the config can drive a pipeline run.
func (c *Config) Validate() error {
	if c.Input == "" {
		return ErrNoInput
	}
	if c.Output == "" {
		return ErrNoOutput
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers (%d) must be at least 1", c.Workers)
	}
	if c.Padding < 0 {
		return fmt.Errorf("padding (%d) cannot be negative", c.Padding)
	}
	if c.MaxGrowths < 0 {
		return fmt.Errorf("max_growths (%d) cannot be negative", c.MaxGrowths)
	}
	switch c.Layout {
	case LayoutShelf, LayoutBinpack:
	default:
		return fmt.Errorf("unknown layout %q", c.Layout)
	}
	return nil
}

// Skipped reports whether extraction should leave the directory name alone.
func (c *Config) Skipped(name string) bool {
	for _, s := range c.SkipDirs {
		if s == name {
			return true
		}
	}
	return false
}
