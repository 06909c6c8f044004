package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid or missing values.
func (c *Config) Validate() error {
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Connectivity.validate(); err != nil {
		return err
	}
	if err := c.Remote.validate(); err != nil {
		return err
	}
	if err := c.Logging.validate(); err != nil {
		return err
	}
	return nil
}

func (s *Store) validate() error {
	switch s.Driver {
	case "sqlite", "file", "memory":
		return nil
	default:
		return fmt.Errorf("store.driver must be one of sqlite, file, memory (got %q)", s.Driver)
	}
}

func (cc *Connectivity) validate() error {
	if _, err := url.ParseRequestURI(cc.ProbeURL); err != nil {
		return fmt.Errorf("connectivity.probe_url is not a valid URL: %w", err)
	}
	return nil
}

func (r *Remote) validate() error {
	if strings.TrimSpace(r.Endpoint) == "" {
		configPath, err := DefaultConfigPath()
		if err != nil {
			configPath = "~/.config/courier/config.toml"
		}
		return fmt.Errorf("remote.endpoint is required. Set COURIER_REMOTE_URL env var or edit %s (create with 'courier config init')", configPath)
	}
	if _, err := url.ParseRequestURI(r.Endpoint); err != nil {
		return fmt.Errorf("remote.endpoint is not a valid URL: %w", err)
	}
	return nil
}

func (l *Logging) validate() error {
	switch l.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", l.Format)
	}
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", l.Level)
	}
	return nil
}
