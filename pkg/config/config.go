// Package config provides configuration for the vzero client tools.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (VZERO_ prefix, V0_API_KEY fallback)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Storage types.
const (
	StorageNone     = "none"
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds all configuration for the vzero tools.
type Config struct {
	API           APIConfig           `yaml:"api"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// APIConfig holds chat API connection settings.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`     // default: "https://api.v0.dev"
	APIKey     string        `yaml:"api_key"`      // required for API commands
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	Timeout    time.Duration `yaml:"timeout"`      // non-streaming requests, default: 120s
}

// StorageConfig holds settings for storing completed messages.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "none", "memory" or "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 1000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 5
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: false
	Addr    string `yaml:"addr"`    // default: "127.0.0.1:9464"
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log settings. VZERO_DEBUG and VZERO_LOG_LEVEL take
// precedence over these values.
type LoggingConfig struct {
	Level string `yaml:"level"` // TRACE, DEBUG, INFO, WARN, ERROR; default: INFO
	Debug string `yaml:"debug"` // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL: "https://api.v0.dev",
			Timeout: 120 * time.Second,
		},
		Storage: StorageConfig{
			Type:    StorageMemory,
			MaxSize: 1000,
			Postgres: PostgresConfig{
				MaxConns:       5,
				MigrateOnStart: true,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Addr: "127.0.0.1:9464",
				Path: "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}
