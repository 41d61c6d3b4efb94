package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where LoadConfig looks when no path is given
const DefaultPath = "config/config.yaml"

// Config holds the application configuration
type Config struct {
	Target    TargetConfig    `yaml:"target"`
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	Test      TestConfig      `yaml:"test"`
	Reporting ReportingConfig `yaml:"reporting"`
	Log       LogConfig       `yaml:"log"`
}

// TargetConfig describes the third-party API under test
type TargetConfig struct {
	Host     string `yaml:"host"`
	DocsURL  string `yaml:"docs_url"`
	Email    string `yaml:"demo_email"`
	Password string `yaml:"demo_password"`
}

// AppConfig describes the user-management service
type AppConfig struct {
	BaseURL    string `yaml:"base_url"`
	ListenAddr string `yaml:"listen_addr"`
}

// DatabaseConfig holds the store connection parameters
type DatabaseConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// Path is used by the sqlite store only
	Path string `yaml:"path"`
}

// TestConfig holds check execution configuration
type TestConfig struct {
	Timeout      int         `yaml:"timeout"`
	ProbeTimeout int         `yaml:"probe_timeout"`
	ReadyTimeout int         `yaml:"ready_timeout"`
	// CheckTimeout bounds one whole check, all of its requests included
	CheckTimeout int         `yaml:"check_timeout"`
	Retry        RetryConfig `yaml:"retry"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	Attempts int `yaml:"attempts"`
	Delay    int `yaml:"delay"`
}

// ReportingConfig holds reporting configuration
type ReportingConfig struct {
	Format    []string `yaml:"format"`
	OutputDir string   `yaml:"output_dir"`
	Detailed  bool     `yaml:"detailed"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Dir   string `yaml:"dir"`
	Debug bool   `yaml:"debug"`
}

// LoadConfig loads the configuration from an optional YAML file and the
// environment. A missing file at the default path is not an error.
func LoadConfig(configPath string) (*Config, error) {
	explicit := configPath != ""
	if !explicit {
		configPath = DefaultPath
	}

	var config Config
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err) && !explicit:
		// environment and defaults only
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return &config, nil
}

// applyEnv overrides file values with environment variables
func (c *Config) applyEnv() error {
	setString(&c.Target.Host, "API_HOST")
	setString(&c.Target.DocsURL, "API_DOCS_URL")
	setString(&c.Target.Email, "DEMO_EMAIL")
	setString(&c.Target.Password, "DEMO_PASSWORD")
	setString(&c.App.BaseURL, "APP_BASE_URL")
	setString(&c.App.ListenAddr, "LISTEN_ADDR")
	setString(&c.Database.Type, "DB_TYPE")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Path, "DB_PATH")

	if v := env("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT %q: %w", v, err)
		}
		c.Database.Port = port
	}
	return nil
}

// applyDefaults fills every unset value
func (c *Config) applyDefaults() {
	if c.Target.Host == "" {
		c.Target.Host = "http://localhost:8091"
	}
	c.Target.Host = strings.TrimRight(c.Target.Host, "/")
	if c.Target.DocsURL == "" {
		c.Target.DocsURL = c.Target.Host + "/api/documentation"
	}
	if c.Target.Email == "" {
		c.Target.Email = "customer@practicesoftwaretesting.com"
	}
	if c.Target.Password == "" {
		c.Target.Password = "welcome01"
	}

	if c.App.BaseURL == "" {
		c.App.BaseURL = "http://app:8000"
	}
	c.App.BaseURL = strings.TrimRight(c.App.BaseURL, "/")
	if c.App.ListenAddr == "" {
		c.App.ListenAddr = ":8000"
	}

	if c.Database.Type == "" {
		c.Database.Type = "postgres"
	}
	if c.Database.Host == "" {
		c.Database.Host = "db"
	}
	if c.Database.Port == 0 {
		c.Database.Port = defaultPort(c.Database.Type)
	}
	if c.Database.Name == "" {
		c.Database.Name = "appdb"
	}
	if c.Database.User == "" {
		c.Database.User = "app"
	}
	if c.Database.Password == "" {
		c.Database.Password = "app"
	}
	if c.Database.Path == "" {
		c.Database.Path = "appdb.sqlite"
	}

	if c.Test.Timeout == 0 {
		c.Test.Timeout = 30
	}
	if c.Test.ProbeTimeout == 0 {
		c.Test.ProbeTimeout = 15
	}
	if c.Test.ReadyTimeout == 0 {
		c.Test.ReadyTimeout = 60
	}
	if c.Test.CheckTimeout == 0 {
		c.Test.CheckTimeout = 120
	}
	if c.Test.Retry.Attempts == 0 {
		c.Test.Retry.Attempts = 1
	}
	if len(c.Reporting.Format) == 0 {
		c.Reporting.Format = []string{"json"}
	}
	if c.Reporting.OutputDir == "" {
		c.Reporting.OutputDir = filepath.Join("reports")
	}
}

func defaultPort(dbType string) int {
	switch dbType {
	case "mysql":
		return 3306
	case "sqlserver":
		return 1433
	default:
		return 5432
	}
}

// env reads a variable, treating blank values as unset
func env(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

func setString(dst *string, name string) {
	if v := env(name); v != "" {
		*dst = v
	}
}
