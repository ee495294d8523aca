package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kingrea/fieldops/internal/config"
)

func TestNewCreatesLogDir(t *testing.T) {
	projectDir := t.TempDir()
	cfg := &config.Config{
		ProjectDir: projectDir,
		StateDir:   filepath.Join(projectDir, config.Dir),
		Project: config.ProjectConfig{
			Logging: config.LoggingConfig{Level: "info", Output: []string{"file"}},
		},
	}
	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if logger == nil {
		t.Fatalf("expected logger")
	}
	if _, err := os.Stat(cfg.LogsDir()); err != nil {
		t.Fatalf("expected log dir to exist: %v", err)
	}
	if got := Path(cfg); filepath.Base(got) != "fieldops.log" {
		t.Fatalf("unexpected log path %s", got)
	}
}

func TestNewWithoutConfigDiscards(t *testing.T) {
	logger, err := New(nil)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info().Str("case", "nil-config").Msg("dropped")
	if Path(nil) != "" {
		t.Fatalf("expected empty path for nil config")
	}
}
