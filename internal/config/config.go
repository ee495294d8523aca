// internal/config/config.go
//
// This package handles configuration and the .fieldops directory structure.
// Every project directory fieldops runs from gets a .fieldops/ folder holding
// the config file and the logs.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the name of the directory we create in each project
	Dir = ".fieldops"

	DefaultAPIBaseURL    = "http://localhost:8000"
	DefaultAPITimeout    = 30 * time.Second
	DefaultAPIRateLimit  = 10
	DefaultPlacesBaseURL = "https://maps.googleapis.com/maps/api"
	DefaultMapCenterLat  = 52.5200
	DefaultMapCenterLng  = 13.4050
	DefaultMapSpanKM     = 40.0
	DefaultLogLevel      = "info"
	DefaultDevAPIHost    = "127.0.0.1"
	DefaultDevAPIPort    = 8000
)

const defaultProjectConfigYAML = `# fieldops project configuration
version: 1

# REST backend the client talks to.
api:
  base_url: http://localhost:8000
  timeout: 30s
  rate_limit: 10

# Address autocomplete. The key can also come from FIELDOPS_PLACES_KEY.
places:
  api_key: ""
  language: en
  region: de

# Operations map defaults (Berlin).
map:
  center_lat: 52.52
  center_lng: 13.405
  span_km: 40

logging:
  level: info
  output:
    - file

# Local in-memory API used for development.
devapi:
  host: 127.0.0.1
  port: 8000
  seed: ""
`

// APIConfig describes the REST backend.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"`
	Timeout   string `yaml:"timeout,omitempty"`
	RateLimit int    `yaml:"rate_limit,omitempty"`
}

// PlacesConfig configures the address autocomplete provider.
type PlacesConfig struct {
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
	Language string `yaml:"language,omitempty"`
	Region   string `yaml:"region,omitempty"`
}

// MapConfig sets the operations map fallback view.
type MapConfig struct {
	CenterLat float64 `yaml:"center_lat"`
	CenterLng float64 `yaml:"center_lng"`
	SpanKM    float64 `yaml:"span_km,omitempty"`
}

// LoggingConfig selects log level and writers.
type LoggingConfig struct {
	Level  string   `yaml:"level"`
	Output []string `yaml:"output,omitempty"`
}

// DevAPIConfig configures the in-memory development backend.
type DevAPIConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
	Seed string `yaml:"seed,omitempty"`
}

// ProjectConfig models .fieldops/config.yaml.
type ProjectConfig struct {
	Version int           `yaml:"version"`
	API     APIConfig     `yaml:"api"`
	Places  PlacesConfig  `yaml:"places"`
	Map     MapConfig     `yaml:"map"`
	Logging LoggingConfig `yaml:"logging"`
	DevAPI  DevAPIConfig  `yaml:"devapi"`
}

// Config holds the runtime configuration for fieldops.
type Config struct {
	// ProjectDir is the directory where the user ran fieldops from
	ProjectDir string

	// StateDir is ProjectDir/.fieldops
	StateDir string

	Project ProjectConfig
}

// InitDir creates the .fieldops directory structure in the given project directory.
//
// Structure created:
// .fieldops/
// ├── config.yaml
// └── logs/
func InitDir(projectDir string) error {
	root := filepath.Join(projectDir, Dir)
	if err := os.MkdirAll(filepath.Join(root, "logs"), 0o755); err != nil {
		return err
	}
	return ensureProjectConfig(filepath.Join(root, "config.yaml"))
}

// NewConfig creates a new Config instance populated with project settings and
// environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir: projectDir,
		StateDir:   filepath.Join(projectDir, Dir),
		Project:    defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.Project.applyEnvOverrides()
	cfg.Project.normalize(projectDir)
	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StateDir, "config.yaml")
}

// APIBaseURL returns the REST base URL without a trailing slash.
func (c *Config) APIBaseURL() string {
	return strings.TrimRight(c.Project.API.BaseURL, "/")
}

// APITimeout returns the HTTP timeout for REST calls.
func (c *Config) APITimeout() time.Duration {
	d, err := time.ParseDuration(c.Project.API.Timeout)
	if err != nil || d <= 0 {
		return DefaultAPITimeout
	}
	return d
}

// DevAPIAddress returns host:port for the development backend.
func (c *Config) DevAPIAddress() string {
	return fmt.Sprintf("%s:%d", c.Project.DevAPI.Host, c.Project.DevAPI.Port)
}

// SetAPIBaseURL updates the backend URL and persists it back to
// .fieldops/config.yaml.
func (c *Config) SetAPIBaseURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("config: api base url is required")
	}
	c.Project.API.BaseURL = raw
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.API.BaseURL) == "" {
		pc.API.BaseURL = DefaultAPIBaseURL
	}
	if strings.TrimSpace(pc.API.Timeout) == "" {
		pc.API.Timeout = DefaultAPITimeout.String()
	}
	if pc.API.RateLimit <= 0 {
		pc.API.RateLimit = DefaultAPIRateLimit
	}
	if strings.TrimSpace(pc.Places.BaseURL) == "" {
		pc.Places.BaseURL = DefaultPlacesBaseURL
	}
	if pc.Map.CenterLat == 0 && pc.Map.CenterLng == 0 {
		pc.Map.CenterLat = DefaultMapCenterLat
		pc.Map.CenterLng = DefaultMapCenterLng
	}
	if pc.Map.SpanKM <= 0 {
		pc.Map.SpanKM = DefaultMapSpanKM
	}
	if strings.TrimSpace(pc.Logging.Level) == "" {
		pc.Logging.Level = DefaultLogLevel
	}
	if len(pc.Logging.Output) == 0 {
		pc.Logging.Output = []string{"file"}
	}
	if strings.TrimSpace(pc.DevAPI.Host) == "" {
		pc.DevAPI.Host = DefaultDevAPIHost
	}
	if pc.DevAPI.Port == 0 {
		pc.DevAPI.Port = DefaultDevAPIPort
	}
}

func (pc *ProjectConfig) applyEnvOverrides() {
	if value := strings.TrimSpace(os.Getenv("FIELDOPS_API_URL")); value != "" {
		pc.API.BaseURL = value
	}
	if value := strings.TrimSpace(os.Getenv("FIELDOPS_API_TIMEOUT")); value != "" {
		if _, err := time.ParseDuration(value); err == nil {
			pc.API.Timeout = value
		}
	}
	if value := strings.TrimSpace(os.Getenv("FIELDOPS_PLACES_KEY")); value != "" {
		pc.Places.APIKey = value
	}
	if value := strings.TrimSpace(os.Getenv("FIELDOPS_LOG_LEVEL")); value != "" {
		pc.Logging.Level = value
	}
	if value := strings.TrimSpace(os.Getenv("FIELDOPS_DEVAPI_PORT")); value != "" {
		if port, err := strconv.Atoi(value); err == nil && isValidPort(port) {
			pc.DevAPI.Port = port
		}
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.API.BaseURL = strings.TrimRight(strings.TrimSpace(pc.API.BaseURL), "/")
	pc.API.Timeout = strings.TrimSpace(pc.API.Timeout)
	pc.Places.APIKey = strings.TrimSpace(pc.Places.APIKey)
	pc.Places.BaseURL = strings.TrimRight(strings.TrimSpace(pc.Places.BaseURL), "/")
	pc.Logging.Level = strings.ToLower(strings.TrimSpace(pc.Logging.Level))
	for i, output := range pc.Logging.Output {
		pc.Logging.Output[i] = strings.ToLower(strings.TrimSpace(output))
	}
	pc.DevAPI.Host = strings.TrimSpace(pc.DevAPI.Host)
	pc.DevAPI.Seed = resolvePath(base, pc.DevAPI.Seed)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	parsed, err := url.Parse(pc.API.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", pc.API.BaseURL)
	}
	if pc.API.Timeout != "" {
		if _, err := time.ParseDuration(pc.API.Timeout); err != nil {
			return fmt.Errorf("api.timeout: %w", err)
		}
	}
	if pc.Map.CenterLat < -90 || pc.Map.CenterLat > 90 {
		return fmt.Errorf("map.center_lat out of range")
	}
	if pc.Map.CenterLng < -180 || pc.Map.CenterLng > 180 {
		return fmt.Errorf("map.center_lng out of range")
	}
	switch pc.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	for _, output := range pc.Logging.Output {
		switch output {
		case "file", "console", "stdout":
		default:
			return fmt.Errorf("logging.output %q is not supported", output)
		}
	}
	if !isValidPort(pc.DevAPI.Port) {
		return fmt.Errorf("devapi.port must be between 1 and 65535")
	}
	return nil
}

func isValidPort(port int) bool {
	return port > 0 && port <= 65535
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize(c.ProjectDir)
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.StateDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure state dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
