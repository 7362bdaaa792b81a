package datasource

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/logging"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/retry"
)

// PoolConnector is an interface that abstracts connection pool operations
// across different database types (PostgreSQL, MSSQL)
type PoolConnector interface {
	// Ping verifies the connection is alive
	Ping(ctx context.Context) error

	// Close closes all connections in the pool
	Close() error

	// GetType returns the database type for logging
	GetType() string
}

// PingWithRetry verifies the datasource is reachable before planning starts.
// Transient failures (timeouts, refused connections) are retried with
// exponential backoff; anything else fails immediately.
func PingWithRetry(ctx context.Context, conn PoolConnector, cfg *retry.Config, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	attempt := 0
	err := retry.DoIfRetryable(ctx, cfg, func() error {
		attempt++
		if err := conn.Ping(ctx); err != nil {
			logger.Warn("Datasource ping failed",
				zap.String("type", conn.GetType()),
				zap.Int("attempt", attempt),
				zap.String("error", logging.SanitizeError(err)))
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ping %s datasource: %w", conn.GetType(), err)
	}

	logger.Debug("Datasource reachable", zap.String("type", conn.GetType()), zap.Int("attempts", attempt))
	return nil
}
