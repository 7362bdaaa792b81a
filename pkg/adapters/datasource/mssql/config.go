package mssql

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/adapters/datasource"
)

// Config contains SQL Server-specific connection options.
// Only SQL authentication is supported; the password comes from the environment.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// Connection options
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int // seconds

	// Pool sizing
	MaxOpenConns int
	MinIdleConns int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromConnectionConfig creates a Config from the dialect-neutral settings,
// filling in SQL Server defaults for unset values.
func FromConnectionConfig(cc datasource.ConnectionConfig) *Config {
	cfg := &Config{
		Host:                   cc.Host,
		Port:                   cc.Port,
		Database:               cc.Database,
		Username:               cc.Username,
		Password:               cc.Password,
		Encrypt:                cc.Encrypt,
		TrustServerCertificate: cc.TrustServerCertificate,
		ConnectionTimeout:      cc.ConnectionTimeout,
		MaxOpenConns:           cc.MaxOpenConns,
		MinIdleConns:           cc.MinIdleConns,
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort()
	}
	if cfg.ConnectionTimeout == 0 {
		cfg.ConnectionTimeout = DefaultConnectionTimeout()
	}
	return cfg
}

// Validate checks if the config has all required fields.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Username == "" {
		return fmt.Errorf("username is required for SQL authentication")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("max open connections must be at least 1, got %d", c.MaxOpenConns)
	}
	if c.MinIdleConns < 0 || c.MinIdleConns > c.MaxOpenConns {
		return fmt.Errorf("min idle connections must be between 0 and %d, got %d", c.MaxOpenConns, c.MinIdleConns)
	}
	return nil
}
