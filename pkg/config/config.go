package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/spf13/pflag"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/apperrors"
)

// PasswordEnv is the only source of the datasource password.
const PasswordEnv = "DMP_DS_PASSWORD"

// DefaultConfigPath is read when present and --config is not given.
const DefaultConfigPath = "config.yaml"

// Supported datasource dialects.
const (
	DialectMSSQL    = "mssql"
	DialectPostgres = "postgres"
)

// Config holds all configuration for a planning run.
// Values come from an optional YAML file, then environment variables, then
// command-line flags that were explicitly set. Secrets only come from the environment.
type Config struct {
	Dialect    string           `yaml:"dialect" env:"DMP_DS_DIALECT" env-default:"mssql"`
	Datasource DatasourceConfig `yaml:"datasource"`
	Pool       PoolConfig       `yaml:"pool"`
	Plan       PlanConfig       `yaml:"plan"`
	Log        LogConfig        `yaml:"log"`

	Version     string `yaml:"-"` // Set at load time, not from config
	ShowVersion bool   `yaml:"-"`
}

// DatasourceConfig identifies the database to plan.
type DatasourceConfig struct {
	Host     string `yaml:"host" env:"DMP_DS_HOST"`
	Port     int    `yaml:"port" env:"DMP_DS_PORT" env-default:"0"` // 0 selects the dialect default
	Database string `yaml:"database" env:"DMP_DS_DB"`
	Username string `yaml:"username" env:"DMP_DS_USERNAME"`
	Password string `yaml:"-" env:"DMP_DS_PASSWORD"` // Secret - not in YAML

	// SQL Server options. Both default to true in newConfig rather than via
	// env-default, which cleanenv would re-apply over an explicit false.
	Encrypt                bool `yaml:"encrypt" env:"DMP_DS_ENCRYPT"`
	TrustServerCertificate bool `yaml:"trust_server_certificate" env:"DMP_DS_TRUST_SERVER_CERTIFICATE"`
	ConnectionTimeout      int  `yaml:"connection_timeout" env:"DMP_DS_CONNECTION_TIMEOUT" env-default:"30"` // seconds

	// PostgreSQL options
	SSLMode string `yaml:"ssl_mode" env:"DMP_DS_SSL_MODE" env-default:"require"`
}

// PoolConfig sizes the connection pool shared by all table workers.
type PoolConfig struct {
	MaxSize int `yaml:"max_size" env:"DMP_CP_MAX_SIZE" env-default:"5"`
	MinIdle int `yaml:"min_idle" env:"DMP_CP_MIN_IDLE" env-default:"1"`
}

// PlanConfig controls collection and the output files.
type PlanConfig struct {
	SavePath     string        `yaml:"save_path" env:"DMP_SAVE_PATH"`
	Delimiter    string        `yaml:"delimiter" env:"DMP_DELIMITER" env-default:"%"`
	Concurrency  int           `yaml:"concurrency" env:"DMP_CONCURRENCY" env-default:"0"` // 0 uses Pool.MaxSize
	ProbeTimeout time.Duration `yaml:"probe_timeout" env:"DMP_PROBE_TIMEOUT" env-default:"0s"`
	ReportPath   string        `yaml:"report_path" env:"DMP_REPORT_PATH"`
	MetricsPath  string        `yaml:"metrics_path" env:"DMP_METRICS_PATH"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"DMP_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"DMP_LOG_FORMAT" env-default:"console"`
}

// Load builds the configuration from args (without the program name).
// Returns pflag.ErrHelp when help was requested.
func Load(args []string, version string) (*Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := newConfig(version)

	configPath, _ := fs.GetString("config")
	if err := readConfig(cfg, configPath, fs.Changed("config")); err != nil {
		return nil, err
	}

	if err := applyFlags(cfg, fs); err != nil {
		return nil, fmt.Errorf("apply flags: %w", err)
	}

	if cfg.ShowVersion {
		return cfg, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newConfig returns the defaults that cleanenv cannot express for booleans.
func newConfig(version string) *Config {
	return &Config{
		Version: version,
		Datasource: DatasourceConfig{
			Encrypt:                true,
			TrustServerCertificate: true,
		},
	}
}

// Usage renders the flag help text.
func Usage() string {
	return newFlagSet().FlagUsages()
}

func readConfig(cfg *Config, path string, explicit bool) error {
	if _, err := os.Stat(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("ekaya-splitplan", pflag.ContinueOnError)
	fs.SortFlags = false
	fs.SetOutput(io.Discard)

	fs.StringP("config", "c", DefaultConfigPath, "Path to YAML config file")

	fs.StringP("ds_username", "u", "", "The username for the datasource")
	fs.StringP("ds_host", "h", "", "The hostname for the datasource")
	fs.IntP("ds_port", "p", 0, "The port number for the datasource (default: dialect port)")
	fs.StringP("ds_db", "d", "", "The name of the database for the datasource")
	fs.IntP("cp_max_size", "m", 5, "The maximum size of the connection pool")
	fs.IntP("cp_min_idle", "i", 1, "The minimum number of idle connections in the pool")
	fs.StringP("save_path", "s", "", "Path of the plan file to write")

	fs.String("dialect", DialectMSSQL, "Datasource dialect (mssql, postgres)")
	fs.String("delimiter", "%", "Single character separating table and column in the plan file")
	fs.Int("concurrency", 0, "Tables probed in parallel (default: cp_max_size)")
	fs.Duration("probe_timeout", 0, "Deadline for each metadata query (e.g. 30s, 0 disables)")
	fs.String("report_path", "", "Optional path for a YAML report of the collected statistics")
	fs.String("metrics_path", "", "Optional path for a Prometheus textfile with run metrics")
	fs.String("log_level", "info", "Log level (debug, info, warn, error)")
	fs.String("log_format", "console", "Log format (console, json)")
	fs.Bool("encrypt", true, "Encrypt the SQL Server connection")
	fs.Bool("trust_server_certificate", true, "Trust the SQL Server certificate without validation")
	fs.String("ssl_mode", "require", "PostgreSQL sslmode")
	fs.Bool("version", false, "Print version and exit")

	return fs
}

// applyFlags copies only explicitly-set flags over file and env values.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var firstErr error
	set := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	fs.Visit(func(f *pflag.Flag) {
		var err error
		switch f.Name {
		case "ds_username":
			cfg.Datasource.Username, err = fs.GetString(f.Name)
		case "ds_host":
			cfg.Datasource.Host, err = fs.GetString(f.Name)
		case "ds_port":
			cfg.Datasource.Port, err = fs.GetInt(f.Name)
		case "ds_db":
			cfg.Datasource.Database, err = fs.GetString(f.Name)
		case "cp_max_size":
			cfg.Pool.MaxSize, err = fs.GetInt(f.Name)
		case "cp_min_idle":
			cfg.Pool.MinIdle, err = fs.GetInt(f.Name)
		case "save_path":
			cfg.Plan.SavePath, err = fs.GetString(f.Name)
		case "dialect":
			cfg.Dialect, err = fs.GetString(f.Name)
		case "delimiter":
			cfg.Plan.Delimiter, err = fs.GetString(f.Name)
		case "concurrency":
			cfg.Plan.Concurrency, err = fs.GetInt(f.Name)
		case "probe_timeout":
			cfg.Plan.ProbeTimeout, err = fs.GetDuration(f.Name)
		case "report_path":
			cfg.Plan.ReportPath, err = fs.GetString(f.Name)
		case "metrics_path":
			cfg.Plan.MetricsPath, err = fs.GetString(f.Name)
		case "log_level":
			cfg.Log.Level, err = fs.GetString(f.Name)
		case "log_format":
			cfg.Log.Format, err = fs.GetString(f.Name)
		case "encrypt":
			cfg.Datasource.Encrypt, err = fs.GetBool(f.Name)
		case "trust_server_certificate":
			cfg.Datasource.TrustServerCertificate, err = fs.GetBool(f.Name)
		case "ssl_mode":
			cfg.Datasource.SSLMode, err = fs.GetString(f.Name)
		case "version":
			cfg.ShowVersion, err = fs.GetBool(f.Name)
		}
		set(err)
	})

	return firstErr
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var problems []string

	switch c.Dialect {
	case DialectMSSQL, DialectPostgres:
	default:
		problems = append(problems, fmt.Sprintf("dialect must be %s or %s, got %q", DialectMSSQL, DialectPostgres, c.Dialect))
	}

	if c.Datasource.Host == "" {
		problems = append(problems, "ds_host is required")
	}
	if c.Datasource.Username == "" {
		problems = append(problems, "ds_username is required")
	}
	if c.Datasource.Database == "" {
		problems = append(problems, "ds_db is required")
	}
	if _, ok := os.LookupEnv(PasswordEnv); !ok && c.Datasource.Password == "" {
		problems = append(problems, PasswordEnv+" environment variable is missing")
	}
	if c.Datasource.Port < 0 || c.Datasource.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid ds_port: %d", c.Datasource.Port))
	}

	if c.Pool.MaxSize < 1 {
		problems = append(problems, "cp_max_size must be at least 1")
	}
	if c.Pool.MinIdle < 0 || c.Pool.MinIdle > c.Pool.MaxSize {
		problems = append(problems, "cp_min_idle must be between 0 and cp_max_size")
	}

	if c.Plan.SavePath == "" {
		problems = append(problems, "save_path is required")
	}
	if utf8.RuneCountInString(c.Plan.Delimiter) != 1 {
		problems = append(problems, fmt.Sprintf("delimiter must be a single character, got %q", c.Plan.Delimiter))
	} else if strings.ContainsAny(c.Plan.Delimiter, "[]\r\n") {
		problems = append(problems, fmt.Sprintf("delimiter %q would be ambiguous in the plan file", c.Plan.Delimiter))
	}
	if c.Plan.Concurrency < 0 {
		problems = append(problems, "concurrency must not be negative")
	}
	if c.Plan.ProbeTimeout < 0 {
		problems = append(problems, "probe_timeout must not be negative")
	}

	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("log_format must be console or json, got %q", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// EffectiveConcurrency returns how many tables are probed in parallel.
func (c *Config) EffectiveConcurrency() int {
	if c.Plan.Concurrency > 0 {
		return c.Plan.Concurrency
	}
	return c.Pool.MaxSize
}
