package mssql

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver

	"github.com/ekaya-inc/ekaya-splitplan/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/config"
)

const appName = "ekaya-splitplan"

// Adapter owns the SQL Server connection pool and exposes it as a
// datasource.PoolConnector and datasource.MetadataQueryPort.
type Adapter struct {
	*datasource.MSSQLPoolWrapper
	config *Config
}

// NewAdapter opens a pooled SQL Server handle using SQL authentication.
// sql.Open does not dial; reachability is checked later with PingWithRetry.
func NewAdapter(cfg *Config) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := createSQLAuthConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}

	// database/sql keeps idle connections but never pre-opens them, so the
	// idle floor becomes a cap that keeps the whole pool warm between probes.
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)

	return newAdapterWithDB(cfg, db), nil
}

func newAdapterWithDB(cfg *Config, db *sql.DB) *Adapter {
	return &Adapter{
		MSSQLPoolWrapper: datasource.NewMSSQLPoolWrapper(db),
		config:           cfg,
	}
}

// buildConnectionString builds a sqlserver:// URL. Credentials go through
// url.UserPassword so special characters survive parsing.
func buildConnectionString(cfg *Config) string {
	query := url.Values{}
	query.Add("database", cfg.Database)
	query.Add("app name", appName)

	if cfg.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}

	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}

	if cfg.ConnectionTimeout > 0 {
		query.Add("connection timeout", strconv.Itoa(cfg.ConnectionTimeout))
	}

	// Resolve localhost to host.docker.internal when running in Docker
	host := config.ResolveHostForDocker(cfg.Host)

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(host, strconv.Itoa(cfg.Port)),
		RawQuery: query.Encode(),
	}
	return u.String()
}

// createSQLAuthConnection creates a connection using SQL Server authentication.
func createSQLAuthConnection(cfg *Config) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("open SQL auth connection: %w", err)
	}
	return db, nil
}
