package config

import (
	"fmt"
	"strings"

	"github.com/kilianp07/powerplan/infra/logger"
)

// LoggingConfig defines settings for the process logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level"`
	// File optionally mirrors the logs to a rotating file.
	File logger.FileConfig `json:"file"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.File.Path != "" && c.File.MaxSizeMB == 0 {
		c.File.MaxSizeMB = 10
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %s", c.Level)
	}
	return c.File.Validate()
}
