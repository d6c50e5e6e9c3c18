package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the absquery API configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	ABS     ABSConfig     `yaml:"abs"`
	Chat    ChatConfig    `yaml:"chat"`
	Catalog CatalogConfig `yaml:"catalog"`
	Tables  TablesConfig  `yaml:"tables"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ABSConfig holds ABS time-series API settings.
type ABSConfig struct {
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
	UserAgent  string `yaml:"user_agent"`
}

// ChatConfig holds chat-completion provider settings.
type ChatConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"` // empty = provider default
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// CatalogConfig holds the static category catalog location.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// TablesConfig holds spreadsheet download settings.
type TablesConfig struct {
	Dir            string `yaml:"dir"` // where kept files are stored
	DownloadSec    int    `yaml:"download_timeout_sec"`
	MaxDownloadMiB int    `yaml:"max_download_mib"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Two model calls plus an ABS fetch sit inside one request.
		c.HTTP.WriteTimeoutSec = 180
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.ABS.BaseURL == "" {
		c.ABS.BaseURL = "https://abs.gov.au/servlet/TSSearchServlet"
	}
	if c.ABS.TimeoutSec <= 0 {
		c.ABS.TimeoutSec = 30
	}
	if c.ABS.UserAgent == "" {
		c.ABS.UserAgent = "absquery/1.0"
	}
	if c.Chat.Model == "" {
		c.Chat.Model = "gpt-4o"
	}
	if c.Chat.TimeoutSec <= 0 {
		c.Chat.TimeoutSec = 60
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = "metadata.json"
	}
	if c.Tables.Dir == "" {
		c.Tables.Dir = "files"
	}
	if c.Tables.DownloadSec <= 0 {
		c.Tables.DownloadSec = 60
	}
	if c.Tables.MaxDownloadMiB <= 0 {
		c.Tables.MaxDownloadMiB = 64
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if !strings.HasPrefix(c.ABS.BaseURL, "http://") && !strings.HasPrefix(c.ABS.BaseURL, "https://") {
		return fmt.Errorf("abs.base_url must be an http(s) URL, got %q", c.ABS.BaseURL)
	}
	if c.Chat.BaseURL != "" &&
		!strings.HasPrefix(c.Chat.BaseURL, "http://") && !strings.HasPrefix(c.Chat.BaseURL, "https://") {
		return fmt.Errorf("chat.base_url must be an http(s) URL, got %q", c.Chat.BaseURL)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
