package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/logging"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/metrics"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/models"
	sqlpkg "github.com/ekaya-inc/ekaya-splitplan/pkg/sql"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/workerpool"
)

// TableProber answers the per-table questions the collector asks.
// datasource.SchemaDiscoverer satisfies it.
type TableProber interface {
	DiscoverPrimaryKeys(ctx context.Context, database string, table models.TableIdentity) ([]string, error)
	CountRows(ctx context.Context, database string, table models.TableIdentity) (int64, error)
	DiscoverColumns(ctx context.Context, database string, table models.TableIdentity) ([]string, error)
	CountDistinct(ctx context.Context, database string, table models.TableIdentity, column string) (int64, error)
}

// TableStatsCollector gathers the statistics the unique column selector needs.
type TableStatsCollector interface {
	// Collect runs every probe for one table in sequence. Probe failures are
	// logged and recorded in the result; Collect itself never fails.
	Collect(ctx context.Context, database string, table models.TableIdentity) *models.TableStats

	// CollectAll collects every table with bounded concurrency and returns
	// once all tables are done. It fails only when ctx is cancelled or a
	// table is listed twice.
	CollectAll(ctx context.Context, database string, tables []models.TableIdentity) (*models.DatabaseStats, error)
}

// CollectorConfig tunes the collector.
type CollectorConfig struct {
	Concurrency  int           // Tables processed at once; 0 uses the worker pool default
	ProbeTimeout time.Duration // Per-probe deadline; 0 means none
}

type tableStatsCollector struct {
	prober  TableProber
	pool    *workerpool.WorkerPool
	config  CollectorConfig
	metrics *metrics.Recorder
	logger  *zap.Logger
}

// NewTableStatsCollector creates a collector. recorder may be nil.
func NewTableStatsCollector(prober TableProber, config CollectorConfig, recorder *metrics.Recorder, logger *zap.Logger) TableStatsCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &tableStatsCollector{
		prober:  prober,
		pool:    workerpool.New(workerpool.Config{MaxConcurrent: config.Concurrency}, logger),
		config:  config,
		metrics: recorder,
		logger:  logger.Named("table-stats-collector"),
	}
}

var _ TableStatsCollector = (*tableStatsCollector)(nil)

func (c *tableStatsCollector) Collect(ctx context.Context, database string, table models.TableIdentity) *models.TableStats {
	c.checkIdentifier("schema", table.SchemaName, table)
	c.checkIdentifier("table", table.TableName, table)

	// 1. Primary keys
	pkStatus := models.ProbeStatusOK
	pks, err := probe(ctx, c.config.ProbeTimeout, func(ctx context.Context) ([]string, error) {
		return c.prober.DiscoverPrimaryKeys(ctx, database, table)
	})
	if err != nil {
		c.probeFailed(apperrors.ScopePrimaryKeys, table, "", err)
		pks, pkStatus = nil, models.ProbeStatusFailed
	} else if len(pks) == 0 {
		pkStatus = models.ProbeStatusEmpty
	}

	// 2. Exact row count
	total := models.FailedCount()
	n, err := probe(ctx, c.config.ProbeTimeout, func(ctx context.Context) (int64, error) {
		return c.prober.CountRows(ctx, database, table)
	})
	if err != nil {
		c.probeFailed(apperrors.ScopeRowCount, table, "", err)
	} else {
		total = models.KnownCount(n)
	}

	// 3. Column list
	colsStatus := models.ProbeStatusOK
	columns, err := probe(ctx, c.config.ProbeTimeout, func(ctx context.Context) ([]string, error) {
		return c.prober.DiscoverColumns(ctx, database, table)
	})
	switch {
	case errors.Is(err, apperrors.ErrNoColumns):
		c.probeFailed(apperrors.ScopeColumns, table, "", err)
		columns, colsStatus = nil, models.ProbeStatusEmpty
	case err != nil:
		c.probeFailed(apperrors.ScopeColumns, table, "", err)
		columns, colsStatus = nil, models.ProbeStatusFailed
	case len(columns) == 0:
		colsStatus = models.ProbeStatusEmpty
	}

	// 4. Distinct count per column, failures isolated to the column
	stats := make(models.ColumnStats, 0, len(columns))
	for _, col := range columns {
		c.checkIdentifier("column", col, table)

		distinct := models.FailedCount()
		n, err := probe(ctx, c.config.ProbeTimeout, func(ctx context.Context) (int64, error) {
			return c.prober.CountDistinct(ctx, database, table, col)
		})
		if err != nil {
			c.probeFailed(apperrors.ScopeDistinct, table, col, err)
		} else {
			distinct = models.KnownCount(n)
		}
		stats = append(stats, models.ColumnStat{Name: col, DistinctCount: distinct})
	}

	// 5. Freeze
	return models.NewTableStats(pks, pkStatus, total, colsStatus, stats)
}

func (c *tableStatsCollector) CollectAll(ctx context.Context, database string, tables []models.TableIdentity) (*models.DatabaseStats, error) {
	dbStats := models.NewDatabaseStats(tables)

	items := make([]workerpool.WorkItem[*models.TableStats], len(tables))
	for i, table := range tables {
		items[i] = workerpool.WorkItem[*models.TableStats]{
			ID: table.String(),
			Execute: func(ctx context.Context) (*models.TableStats, error) {
				stats := c.Collect(ctx, database, table)
				if err := dbStats.Put(table, stats); err != nil {
					return nil, err
				}
				return stats, nil
			},
		}
	}

	c.logger.Info("Collecting table statistics",
		zap.String("database", database),
		zap.Int("tables", len(tables)),
		zap.Int("concurrency", c.pool.MaxConcurrent()))

	results := workerpool.Process(ctx, c.pool, items, func(completed, total int) {
		c.logger.Debug("Table statistics collected", zap.Int("completed", completed), zap.Int("total", total))
	})

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collect table statistics: %w", err)
	}

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("collect table statistics: %w", err)
	}

	return dbStats, nil
}

// probe runs fn under the optional per-probe deadline.
func probe[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}

func (c *tableStatsCollector) probeFailed(scope string, table models.TableIdentity, column string, err error) {
	c.metrics.ProbeFailed(scope)

	fields := []zap.Field{
		zap.String("scope", scope),
		zap.String("schema", table.SchemaName),
		zap.String("table", table.TableName),
	}
	if column != "" {
		fields = append(fields, zap.String("column", column))
	}
	fields = append(fields, zap.String("error", logging.SanitizeError(err)))
	c.logger.Warn("Metadata probe failed", fields...)
}

func (c *tableStatsCollector) checkIdentifier(kind, name string, table models.TableIdentity) {
	if hit := sqlpkg.CheckIdentifier(kind, name); hit != nil {
		c.logger.Warn("Suspicious identifier in catalog",
			zap.String("kind", hit.Kind),
			zap.String("name", logging.TruncateString(hit.Name, logging.MaxQueryLogLength)),
			zap.String("fingerprint", hit.Fingerprint),
			zap.String("table", table.String()))
	}
}
