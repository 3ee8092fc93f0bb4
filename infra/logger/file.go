package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig enables a rotating JSON log file in addition to stdout.
// An empty Path disables it.
type FileConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// Validate rejects negative rotation limits.
func (c FileConfig) Validate() error {
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("file rotation limits must not be negative")
	}
	return nil
}

var (
	fileMu  sync.RWMutex
	fileOut io.Writer
)

func fileOutput() io.Writer {
	fileMu.RLock()
	defer fileMu.RUnlock()
	return fileOut
}

// EnableFile tees every logger created afterwards into the rotating file
// described by cfg. The returned closer detaches and closes the file.
func EnableFile(cfg FileConfig) (io.Closer, error) {
	if cfg.Path == "" {
		return closerFunc(func() error { return nil }), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("log dir: %w", err)
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	fileMu.Lock()
	fileOut = lj
	fileMu.Unlock()
	return closerFunc(func() error {
		fileMu.Lock()
		if fileOut == lj {
			fileOut = nil
		}
		fileMu.Unlock()
		return lj.Close()
	}), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
