package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// api.base_url must be an absolute http(s) URL.
	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url must be an http or https URL, got %q", c.API.BaseURL))
	}

	if c.API.Timeout < 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be >= 0, got %s", c.API.Timeout))
	}

	switch c.Storage.Type {
	case StorageNone, StoragePostgres:
	case StorageMemory:
		if c.Storage.MaxSize < 0 {
			errs = append(errs, fmt.Errorf("storage.max_size must be >= 0, got %d", c.Storage.MaxSize))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"none\", \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == StoragePostgres {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	if m := c.Observability.Metrics; m.Enabled {
		if m.Addr == "" {
			errs = append(errs, fmt.Errorf("observability.metrics.addr is required when metrics are enabled"))
		}
		if !strings.HasPrefix(m.Path, "/") {
			errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", m.Path))
		}
	}

	switch strings.ToUpper(c.Logging.Level) {
	case "", "TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of TRACE, DEBUG, INFO, WARN, ERROR, got %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// RequireAPIKey reports an error when no API key is configured.
func (c *Config) RequireAPIKey() error {
	if c.API.APIKey == "" {
		return errors.New("api.api_key is required (set VZERO_API_KEY or V0_API_KEY)")
	}
	return nil
}
