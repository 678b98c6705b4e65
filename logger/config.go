package logger

import (
	"io"
	"os"
	"path/filepath"
)

// FileConfig holds log file rotation settings
type FileConfig struct {
	Filename   string
	MaxSize    int // megabytes
	MaxAge     int // days
	MaxBackups int
	Compress   bool
}

// Config holds the configuration for the logger
type Config struct {
	Level      LogLevel
	Format     OutputFormat
	Outputs    []io.Writer
	Subsystem  string
	FileConfig *FileConfig
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Level:   InfoLevel,
		Format:  DefaultFormat,
		Outputs: []io.Writer{os.Stderr},
	}
}

// FileOnlyConfig returns a configuration that writes JSON to a rotated file
// and nothing to the terminal. Used when the bridge runs as a background
// process owned by the browser.
func FileOnlyConfig(logFile string) *Config {
	return &Config{
		Level:  InfoLevel,
		Format: JSONFormat,
		FileConfig: &FileConfig{
			Filename:   filepath.Clean(logFile),
			MaxSize:    10,
			MaxAge:     30,
			MaxBackups: 5,
			Compress:   false,
		},
	}
}
