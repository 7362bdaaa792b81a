package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-splitplan/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-splitplan/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/config"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/logging"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/retry"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ekaya-splitplan: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:], Version)
	if errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintf(os.Stdout, "Usage of ekaya-splitplan:\n%s", config.Usage())
		return nil
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.ShowVersion {
		fmt.Fprintln(os.Stdout, cfg.Version)
		return nil
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := plan(ctx, cfg, logger); err != nil {
		msg := logging.SanitizeError(err, cfg.Datasource.Password)
		logger.Error("Planning failed", zap.String("error", msg))
		return errors.New(msg)
	}
	return nil
}

func plan(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	factory := datasource.GetSchemaDiscovererFactory(cfg.Dialect)
	if factory == nil {
		return fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}

	discoverer, err := factory(ctx, datasource.ConnectionConfig{
		Host:                   cfg.Datasource.Host,
		Port:                   cfg.Datasource.Port,
		Database:               cfg.Datasource.Database,
		Username:               cfg.Datasource.Username,
		Password:               cfg.Datasource.Password,
		Encrypt:                cfg.Datasource.Encrypt,
		TrustServerCertificate: cfg.Datasource.TrustServerCertificate,
		SSLMode:                cfg.Datasource.SSLMode,
		ConnectionTimeout:      cfg.Datasource.ConnectionTimeout,
		MaxOpenConns:           cfg.Pool.MaxSize,
		MinIdleConns:           cfg.Pool.MinIdle,
	}, logger)
	if err != nil {
		return fmt.Errorf("open %s datasource: %w", cfg.Dialect, err)
	}
	defer func() {
		if err := discoverer.Close(); err != nil {
			logger.Warn("Failed to close datasource", zap.String("error", logging.SanitizeError(err)))
		}
	}()

	if err := datasource.PingWithRetry(ctx, discoverer, retry.DefaultConfig(), logger); err != nil {
		return err
	}

	svc := services.NewPlanningService(discoverer, services.PlanningConfig{
		Database:    cfg.Datasource.Database,
		Host:        cfg.Datasource.Host,
		Port:        effectivePort(cfg),
		PoolMaxSize: cfg.Pool.MaxSize,
		PoolMinIdle: cfg.Pool.MinIdle,
		SavePath:    cfg.Plan.SavePath,
		Delimiter:   cfg.Plan.Delimiter,
		ReportPath:  cfg.Plan.ReportPath,
		MetricsPath: cfg.Plan.MetricsPath,
		Collector: services.CollectorConfig{
			Concurrency:  cfg.EffectiveConcurrency(),
			ProbeTimeout: cfg.Plan.ProbeTimeout,
		},
	}, logger)

	_, err = svc.Run(ctx)
	return err
}

// effectivePort resolves port 0 to the dialect default for the job banner.
func effectivePort(cfg *config.Config) int {
	if cfg.Datasource.Port != 0 {
		return cfg.Datasource.Port
	}
	for _, info := range datasource.RegisteredAdapters() {
		if info.Type == cfg.Dialect {
			return info.DefaultPort
		}
	}
	return 0
}
