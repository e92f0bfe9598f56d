package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the CLI threads into the prediction client and the
// database connector
type Config struct {
	APIKey   string         `yaml:"api_key"`
	BaseURL  string         `yaml:"base_url"`
	Timeout  time.Duration  `yaml:"timeout"`
	LogLevel string         `yaml:"log_level"`
	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig describes the SQL source rows are loaded from
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "mysql" or "sqlite"
	Host     string `yaml:"host,omitempty"`
	Port     string `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Name     string `yaml:"name,omitempty"`
	Path     string `yaml:"path,omitempty"` // sqlite file
}

// DefaultConfig returns a Config populated with defaults
func DefaultConfig() *Config {
	return &Config{
		BaseURL:  "https://kumorfm.ai/api",
		Timeout:  30 * time.Second,
		LogLevel: "info",
		Database: DatabaseConfig{
			Driver: "mysql",
			Host:   "localhost",
			Port:   "3306",
			User:   "root",
		},
	}
}

// Load reads the YAML file at path on top of the defaults and then applies
// environment overrides. A missing file is not an error; an empty path skips
// the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.APIKey, "KUMO_API_KEY")
	setString(&c.BaseURL, "KUMO_BASE_URL")
	setString(&c.LogLevel, "KUMO_LOG_LEVEL")

	if v := os.Getenv("KUMO_TIMEOUT"); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("KUMO_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}

	setString(&c.Database.Driver, "KUMO_DB_DRIVER")
	setString(&c.Database.Path, "KUMO_SQLITE_PATH")
	setString(&c.Database.Host, "MYSQL_HOST")
	setString(&c.Database.Port, "MYSQL_PORT")
	setString(&c.Database.User, "MYSQL_USER")
	setString(&c.Database.Password, "MYSQL_PASSWORD")
	setString(&c.Database.Name, "MYSQL_DATABASE")
	return nil
}

// parseTimeout accepts a Go duration or a whole number of seconds
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// ValidateClient checks the settings the prediction client needs
func (c *Config) ValidateClient() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required (set KUMO_API_KEY or api_key)")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("invalid base URL %q", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
