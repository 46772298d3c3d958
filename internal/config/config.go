// Package config loads and validates the link manager configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the LM_ prefix (e.g., LM_DATABASE_HOST
// overrides database.host in the YAML). This layering allows the same binary to
// run with a config.yaml in local development and with pure environment variables
// in containerized deployments.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Audit     AuditConfig     `mapstructure:"audit"`
	CMS       CMSConfig       `mapstructure:"cms"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// AuditConfig holds audit trail configuration. The fallback file receives
// entries that could not be written to the database so no audit event is
// silently lost.
type AuditConfig struct {
	Enabled  bool            `mapstructure:"enabled"`
	Fallback AuditFileConfig `mapstructure:"fallback"`
}

// AuditFileConfig holds the fallback file sink configuration
type AuditFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// CMSConfig holds the content page resolver configuration. Pages maps a page
// name to its numeric id; BaseURL is the prefix CMS page URLs are built from.
type CMSConfig struct {
	BaseURL string           `mapstructure:"base_url"`
	Pages   map[string]int64 `mapstructure:"pages"`
}

// bindEnvVars explicitly binds environment variables to config keys.
// This is necessary because AutomaticEnv() doesn't work well with nested
// structs during Unmarshal. viper.BindEnv only errors when called with zero
// keys; since every key here is a non-empty hardcoded string, any error
// indicates a programming bug and is surfaced to the caller.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Database
		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",
		"database.auto_migrate",

		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",

		// Logging
		"logging.level",
		"logging.format",

		// Telemetry
		"telemetry.enabled",
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",

		// Audit
		"audit.enabled",
		"audit.fallback.enabled",
		"audit.fallback.path",
		"audit.fallback.max_size_mb",
		"audit.fallback.max_backups",

		// CMS
		"cms.base_url",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/linkmanager")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	v.SetEnvPrefix("LM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand environment variables in sensitive fields
	cfg.Database.Password = os.ExpandEnv(cfg.Database.Password)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "linkmanager")
	v.SetDefault("database.user", "linkmanager")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)
	v.SetDefault("database.auto_migrate", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)

	// Audit defaults
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.fallback.enabled", true)
	v.SetDefault("audit.fallback.path", "./audit-fallback.log")
	v.SetDefault("audit.fallback.max_size_mb", 50)
	v.SetDefault("audit.fallback.max_backups", 3)

	// CMS defaults
	v.SetDefault("cms.base_url", "")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	if c.Audit.Enabled && c.Audit.Fallback.Enabled && c.Audit.Fallback.Path == "" {
		return fmt.Errorf("audit.fallback.path is required when the fallback sink is enabled")
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetAddress returns the server address in host:port format
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
