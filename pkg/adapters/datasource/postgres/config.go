package postgres

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/adapters/datasource"
)

// Config contains PostgreSQL-specific connection options.
type Config struct {
	Host              string
	Port              int
	User              string
	Password          string
	Database          string
	SSLMode           string // "disable", "require", "verify-ca", "verify-full"
	ConnectionTimeout int    // seconds

	MaxConns int
	MinConns int
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string {
	return "require"
}

// FromConnectionConfig creates a Config from the dialect-neutral settings.
func FromConnectionConfig(cc datasource.ConnectionConfig) *Config {
	cfg := &Config{
		Host:              cc.Host,
		Port:              cc.Port,
		User:              cc.Username,
		Password:          cc.Password,
		Database:          cc.Database,
		SSLMode:           cc.SSLMode,
		ConnectionTimeout: cc.ConnectionTimeout,
		MaxConns:          cc.MaxOpenConns,
		MinConns:          cc.MinIdleConns,
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort()
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = DefaultSSLMode()
	}
	return cfg
}

// Validate checks if the config has all required fields.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	switch c.SSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("invalid ssl mode: %q", c.SSLMode)
	}
	if c.MaxConns < 1 {
		return fmt.Errorf("max connections must be at least 1, got %d", c.MaxConns)
	}
	if c.MinConns < 0 || c.MinConns > c.MaxConns {
		return fmt.Errorf("min connections must be between 0 and %d, got %d", c.MaxConns, c.MinConns)
	}
	return nil
}
