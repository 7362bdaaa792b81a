package datasource

import (
	"context"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/models"
)

// MetadataQueryPort executes read-only metadata and statistics queries.
// The port performs no escaping: identifiers must already be quoted by the
// caller, and values travel as placeholder arguments.
type MetadataQueryPort interface {
	Query(ctx context.Context, query string, args ...any) (*QueryResult, error)
}

// SchemaDiscoverer answers the per-table questions the planner asks.
// Each implementation owns its connection pool and must be closed when done.
type SchemaDiscoverer interface {
	PoolConnector

	// DiscoverTables returns user tables with at least one row,
	// ordered by descending row count.
	DiscoverTables(ctx context.Context, database string) ([]TableMetadata, error)

	// DiscoverPrimaryKeys returns primary key columns in key ordinal order.
	// An empty result means the table has no primary key.
	DiscoverPrimaryKeys(ctx context.Context, database string, table models.TableIdentity) ([]string, error)

	// DiscoverColumns returns column names in ordinal order.
	// A table without columns is reported as an error wrapping apperrors.ErrNoColumns.
	DiscoverColumns(ctx context.Context, database string, table models.TableIdentity) ([]string, error)

	// CountRows returns the exact number of rows in the table.
	CountRows(ctx context.Context, database string, table models.TableIdentity) (int64, error)

	// CountDistinct returns the number of distinct values in a column,
	// with the store's native DISTINCT semantics.
	CountDistinct(ctx context.Context, database string, table models.TableIdentity, column string) (int64, error)
}
