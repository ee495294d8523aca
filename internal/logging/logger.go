// Package logging builds the structured logger used across fieldops.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"

	"github.com/kingrea/fieldops/internal/config"
)

const logFileName = "fieldops.log"

// New configures an arbor logger from the project config. File output goes
// to .fieldops/logs/fieldops.log so failures can be inspected after the TUI
// has taken over the terminal. Console output is only useful for the
// headless binaries.
func New(cfg *config.Config) (arbor.ILogger, error) {
	if cfg == nil {
		return Discard(), nil
	}
	logger := arbor.NewLogger()
	for _, output := range cfg.Project.Logging.Output {
		switch output {
		case "file":
			if err := os.MkdirAll(cfg.LogsDir(), 0o755); err != nil {
				return nil, fmt.Errorf("logging: ensure log dir: %w", err)
			}
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:             models.LogWriterTypeFile,
				FileName:         filepath.Join(cfg.LogsDir(), logFileName),
				TimeFormat:       "15:04:05",
				MaxSize:          10 * 1024 * 1024,
				MaxBackups:       3,
				TextOutput:       true,
				DisableTimestamp: false,
			})
		case "console", "stdout":
			logger = logger.WithConsoleWriter(models.WriterConfiguration{
				Type:             models.LogWriterTypeConsole,
				TimeFormat:       "15:04:05",
				TextOutput:       true,
				DisableTimestamp: false,
			})
		}
	}
	return logger.WithLevelFromString(cfg.Project.Logging.Level), nil
}

// Discard returns a logger that drops everything.
func Discard() arbor.ILogger {
	return arbor.NewNoOpLogger()
}

// Path returns the log file location for a project.
func Path(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return filepath.Join(cfg.LogsDir(), logFileName)
}
