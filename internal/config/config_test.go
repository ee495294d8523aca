package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadProjectConfigDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()
	stateDir := filepath.Join(projectDir, Dir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, StateDir: stateDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.Project.Version)
	}
	if c.APIBaseURL() != DefaultAPIBaseURL {
		t.Fatalf("expected default api url %q, got %q", DefaultAPIBaseURL, c.APIBaseURL())
	}
	if c.APITimeout() != DefaultAPITimeout {
		t.Fatalf("expected default timeout, got %s", c.APITimeout())
	}
	if c.Project.Map.CenterLat != DefaultMapCenterLat || c.Project.Map.CenterLng != DefaultMapCenterLng {
		t.Fatalf("expected Berlin map center, got %v", c.Project.Map)
	}
}

func TestInitDirWritesLoadableDefaults(t *testing.T) {
	projectDir := t.TempDir()
	t.Setenv("FIELDOPS_API_URL", "")
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("init dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(projectDir, Dir, "logs")); err != nil {
		t.Fatalf("expected logs dir: %v", err)
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.Project.Places.Region != "de" {
		t.Fatalf("expected region from default yaml, got %q", cfg.Project.Places.Region)
	}
	if cfg.Project.DevAPI.Port != DefaultDevAPIPort {
		t.Fatalf("expected dev api port %d, got %d", DefaultDevAPIPort, cfg.Project.DevAPI.Port)
	}
}

func TestLoadProjectConfigParsesYaml(t *testing.T) {
	projectDir := t.TempDir()
	stateDir := filepath.Join(projectDir, Dir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
api:
  base_url: http://backend.internal:9000/
  timeout: 5s
places:
  api_key: " secret "
map:
  center_lat: 52.39
  center_lng: 13.06
logging:
  level: DEBUG
  output: [file, Console]
devapi:
  port: 9100
  seed: seeds/berlin.yaml
`)
	if err := os.WriteFile(filepath.Join(stateDir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, StateDir: stateDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.APIBaseURL() != "http://backend.internal:9000" {
		t.Fatalf("expected trailing slash trimmed, got %s", c.APIBaseURL())
	}
	if c.APITimeout() != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", c.APITimeout())
	}
	if c.Project.Places.APIKey != "secret" {
		t.Fatalf("expected trimmed api key, got %q", c.Project.Places.APIKey)
	}
	if c.Project.Logging.Level != "debug" || c.Project.Logging.Output[1] != "console" {
		t.Fatalf("expected lowercased logging config, got %+v", c.Project.Logging)
	}
	if !strings.HasPrefix(c.Project.DevAPI.Seed, projectDir) {
		t.Fatalf("expected seed path to be resolved, got %s", c.Project.DevAPI.Seed)
	}
	if c.DevAPIAddress() != "127.0.0.1:9100" {
		t.Fatalf("unexpected dev api address %s", c.DevAPIAddress())
	}
}

func TestLoadProjectConfigValidation(t *testing.T) {
	projectDir := t.TempDir()
	stateDir := filepath.Join(projectDir, Dir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
api:
  base_url: not-a-url
`)
	if err := os.WriteFile(filepath.Join(stateDir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, StateDir: stateDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err == nil {
		t.Fatalf("expected validation error but got none")
	}
}

func TestEnvOverridesWin(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitDir(projectDir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FIELDOPS_API_URL", "http://10.0.0.5:8080")
	t.Setenv("FIELDOPS_API_TIMEOUT", "12s")
	t.Setenv("FIELDOPS_PLACES_KEY", "env-key")
	t.Setenv("FIELDOPS_LOG_LEVEL", "warn")
	t.Setenv("FIELDOPS_DEVAPI_PORT", "not-a-port")
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.APIBaseURL() != "http://10.0.0.5:8080" {
		t.Fatalf("expected env api url, got %s", cfg.APIBaseURL())
	}
	if cfg.APITimeout() != 12*time.Second {
		t.Fatalf("expected env timeout, got %s", cfg.APITimeout())
	}
	if cfg.Project.Places.APIKey != "env-key" {
		t.Fatalf("expected env places key, got %q", cfg.Project.Places.APIKey)
	}
	if cfg.Project.Logging.Level != "warn" {
		t.Fatalf("expected env log level, got %s", cfg.Project.Logging.Level)
	}
	if cfg.Project.DevAPI.Port != DefaultDevAPIPort {
		t.Fatalf("invalid port override must be ignored, got %d", cfg.Project.DevAPI.Port)
	}
}

func TestSetAPIBaseURLPersists(t *testing.T) {
	projectDir := t.TempDir()
	t.Setenv("FIELDOPS_API_URL", "")
	if err := InitDir(projectDir); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetAPIBaseURL("http://dispatch.local:8000"); err != nil {
		t.Fatalf("set api url: %v", err)
	}
	reloaded, err := NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.APIBaseURL() != "http://dispatch.local:8000" {
		t.Fatalf("expected persisted url, got %s", reloaded.APIBaseURL())
	}
	if err := cfg.SetAPIBaseURL("  "); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
