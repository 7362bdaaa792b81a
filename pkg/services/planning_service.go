package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/logging"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/metrics"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/models"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/planfile"
)

// Pipeline stage names used in logs and metrics.
const (
	StageDBProcess  = "db_process"
	StageMakingPlan = "making_plan"
	StageSavingPlan = "saving_plan"
)

// PlanningSource lists tables and probes them.
// datasource.SchemaDiscoverer satisfies it.
type PlanningSource interface {
	TableProber
	DiscoverTables(ctx context.Context, database string) ([]datasource.TableMetadata, error)
}

// PlanningConfig is everything one planning run needs besides the source.
type PlanningConfig struct {
	Database string

	// Reported in the job banner only
	Host        string
	Port        int
	PoolMaxSize int
	PoolMinIdle int

	SavePath    string
	Delimiter   string
	ReportPath  string // Optional YAML report
	MetricsPath string // Optional Prometheus textfile

	Collector CollectorConfig
}

// PlanningService runs the list, collect, build and save pipeline.
type PlanningService interface {
	// Run plans every table of the configured database and writes the plan.
	// Listing failures, cancellation and plan write failures are fatal.
	// Report and metrics write failures are logged only.
	Run(ctx context.Context) (*models.Plan, error)
}

type planningService struct {
	source PlanningSource
	config PlanningConfig
	logger *zap.Logger

	newRunID func() string
	now      func() time.Time
}

// NewPlanningService creates a planning service.
func NewPlanningService(source PlanningSource, config PlanningConfig, logger *zap.Logger) PlanningService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Delimiter == "" {
		config.Delimiter = planfile.DefaultDelimiter
	}
	return &planningService{
		source:   source,
		config:   config,
		logger:   logger.Named("planning"),
		newRunID: func() string { return uuid.New().String() },
		now:      time.Now,
	}
}

var _ PlanningService = (*planningService)(nil)

func (s *planningService) Run(ctx context.Context) (*models.Plan, error) {
	runID := s.newRunID()
	logger := s.logger.With(zap.String("run_id", runID))
	db := s.config.Database

	var recorder *metrics.Recorder
	if s.config.MetricsPath != "" {
		recorder = metrics.NewRecorder(runID, db)
	}

	logger.Info("Split column planning started",
		zap.String("host", s.config.Host),
		zap.Int("port", s.config.Port),
		zap.String("database", db),
		zap.Int("pool_max_size", s.config.PoolMaxSize),
		zap.Int("pool_min_idle", s.config.PoolMinIdle),
		zap.Int("concurrency", s.config.Collector.Concurrency),
		zap.String("save_path", s.config.SavePath))

	// Stage 1: list tables and collect statistics
	start := s.now()
	tables, err := s.source.DiscoverTables(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	if len(tables) == 0 {
		logger.Warn("No tables with rows found", zap.String("database", db))
	}

	identities := make([]models.TableIdentity, len(tables))
	for i, t := range tables {
		identities[i] = t.Identity()
	}

	collector := NewTableStatsCollector(s.source, s.config.Collector, recorder, logger)
	dbStats, err := collector.CollectAll(ctx, db, identities)
	if err != nil {
		return nil, err
	}
	s.stageDone(logger, recorder, StageDBProcess, start)

	// Stage 2: decide
	start = s.now()
	plan := BuildPlan(db, dbStats)
	s.stageDone(logger, recorder, StageMakingPlan, start)

	// Stage 3: save
	start = s.now()
	if err := planfile.Write(s.config.SavePath, plan, s.config.Delimiter); err != nil {
		return nil, err
	}
	s.stageDone(logger, recorder, StageSavingPlan, start)

	finished := s.now()
	recorder.RecordPlan(plan)
	recorder.MarkSuccess(finished)

	if s.config.ReportPath != "" {
		if err := planfile.WriteReport(s.config.ReportPath, planfile.NewReport(plan, runID, finished)); err != nil {
			logger.Warn("Failed to write plan report", zap.String("error", logging.SanitizeError(err)))
		}
	}
	if s.config.MetricsPath != "" {
		if err := recorder.WriteTextfile(s.config.MetricsPath); err != nil {
			logger.Warn("Failed to write metrics textfile", zap.String("error", logging.SanitizeError(err)))
		}
	}

	counts := plan.CountByReason()
	logger.Info("Split column planning finished",
		zap.String("database", db),
		zap.Int("tables", plan.TableCount),
		zap.Int("split_columns", plan.SplitColumnCount()),
		zap.Int(string(models.ReasonPrimaryKey), counts[models.ReasonPrimaryKey]),
		zap.Int(string(models.ReasonDistinctMatch), counts[models.ReasonDistinctMatch]),
		zap.Int(string(models.ReasonNotFound), counts[models.ReasonNotFound]),
		zap.Int(string(models.ReasonUndetermined), counts[models.ReasonUndetermined]),
		zap.Int(string(models.ReasonReservedWord), counts[models.ReasonReservedWord]),
		zap.String("save_path", s.config.SavePath))

	return plan, nil
}

func (s *planningService) stageDone(logger *zap.Logger, recorder *metrics.Recorder, stage string, start time.Time) {
	elapsed := s.now().Sub(start)
	recorder.ObserveStage(stage, elapsed)
	logger.Info("Stage finished", zap.String("stage", stage), zap.Duration("elapsed", elapsed))
}
