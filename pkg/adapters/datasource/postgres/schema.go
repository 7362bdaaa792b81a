package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/logging"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/models"
	sqlpkg "github.com/ekaya-inc/ekaya-splitplan/pkg/sql"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// literal builds the count statements, which take no bind arguments.
// Quoted names may contain '?', and placeholder rewriting would turn it
// into a parameter reference.
var literal = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// queryConn is what the discoverer needs from its pool.
type queryConn interface {
	datasource.PoolConnector
	datasource.MetadataQueryPort
}

// qualifiedTableName returns "schema"."table" after checking both parts.
func qualifiedTableName(table models.TableIdentity) (string, error) {
	if err := sqlpkg.ValidateIdentifier("schema", table.SchemaName); err != nil {
		return "", err
	}
	if err := sqlpkg.ValidateIdentifier("table", table.TableName); err != nil {
		return "", err
	}
	return pgx.Identifier{table.SchemaName, table.TableName}.Sanitize(), nil
}

// SchemaDiscoverer provides PostgreSQL schema discovery.
// A PostgreSQL connection only sees its own database, so every call checks
// that the requested database is the one the pool is connected to.
type SchemaDiscoverer struct {
	queryConn
	database string
	logger   *zap.Logger
}

// NewSchemaDiscoverer creates a PostgreSQL schema discoverer with its own pool.
// If logger is nil, a no-op logger is used.
func NewSchemaDiscoverer(ctx context.Context, cfg *Config, logger *zap.Logger) (*SchemaDiscoverer, error) {
	adapter, err := NewAdapter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newSchemaDiscoverer(adapter, cfg.Database, logger), nil
}

func newSchemaDiscoverer(conn queryConn, database string, logger *zap.Logger) *SchemaDiscoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaDiscoverer{
		queryConn: conn,
		database:  database,
		logger:    logger.Named("postgres"),
	}
}

// DiscoverTables returns user tables with live rows, largest first.
// Counts come from pg_stat_user_tables and are estimates. A table that was
// never analyzed may report zero live tuples while holding rows, so those
// are checked for a first row before being dropped.
func (s *SchemaDiscoverer) DiscoverTables(ctx context.Context, database string) ([]datasource.TableMetadata, error) {
	if err := s.checkDatabase(database); err != nil {
		return nil, s.queryError(apperrors.ScopeDatabase, database, "", "", err)
	}

	query, args, err := psql.
		Select("schemaname::text AS schema_name", "relname::text AS table_name", "n_live_tup AS row_count").
		From("pg_stat_user_tables").
		Where("n_live_tup > 0 OR (last_analyze IS NULL AND last_autoanalyze IS NULL)").
		OrderBy("n_live_tup DESC", "schemaname", "relname").
		ToSql()
	if err != nil {
		return nil, s.queryError(apperrors.ScopeDatabase, database, "", "", fmt.Errorf("build query: %w", err))
	}

	result, err := s.run(ctx, query, args...)
	if err != nil {
		return nil, s.queryError(apperrors.ScopeDatabase, database, "", "", err)
	}

	schemas, err := result.Strings("schema_name")
	if err != nil {
		return nil, s.queryError(apperrors.ScopeDatabase, database, "", "", err)
	}
	names, err := result.Strings("table_name")
	if err != nil {
		return nil, s.queryError(apperrors.ScopeDatabase, database, "", "", err)
	}
	counts, err := result.Int64s("row_count")
	if err != nil {
		return nil, s.queryError(apperrors.ScopeDatabase, database, "", "", err)
	}

	tables := make([]datasource.TableMetadata, 0, len(schemas))
	for i := range schemas {
		t := datasource.TableMetadata{SchemaName: schemas[i], TableName: names[i], RowCount: counts[i]}
		if t.RowCount <= 0 {
			hasRows, err := s.hasRows(ctx, t.Identity())
			if err != nil {
				return nil, s.queryError(apperrors.ScopeDatabase, database, t.Identity().String(), "", err)
			}
			if !hasRows {
				continue
			}
		}
		tables = append(tables, t)
	}

	s.logger.Debug("Discovered tables", zap.String("database", database), zap.Int("count", len(tables)))
	return tables, nil
}

// DiscoverPrimaryKeys returns primary key columns in key ordinal order.
func (s *SchemaDiscoverer) DiscoverPrimaryKeys(ctx context.Context, database string, table models.TableIdentity) ([]string, error) {
	if err := s.checkDatabase(database); err != nil {
		return nil, s.queryError(apperrors.ScopePrimaryKeys, database, table.String(), "", err)
	}

	query, args, err := psql.
		Select("kcu.column_name::text AS column_name").
		From("information_schema.table_constraints AS tc").
		Join("information_schema.key_column_usage AS kcu" +
			" ON tc.constraint_schema = kcu.constraint_schema" +
			" AND tc.constraint_name = kcu.constraint_name" +
			" AND tc.table_name = kcu.table_name").
		Where("tc.constraint_type = 'PRIMARY KEY'").
		Where(sq.Eq{"tc.table_schema": table.SchemaName}).
		Where(sq.Eq{"tc.table_name": table.TableName}).
		OrderBy("kcu.ordinal_position").
		ToSql()
	if err != nil {
		return nil, s.queryError(apperrors.ScopePrimaryKeys, database, table.String(), "", fmt.Errorf("build query: %w", err))
	}

	result, err := s.run(ctx, query, args...)
	if err != nil {
		return nil, s.queryError(apperrors.ScopePrimaryKeys, database, table.String(), "", err)
	}

	keys, err := result.Strings("column_name")
	if err != nil {
		return nil, s.queryError(apperrors.ScopePrimaryKeys, database, table.String(), "", err)
	}
	return keys, nil
}

// DiscoverColumns returns column names in ordinal order.
func (s *SchemaDiscoverer) DiscoverColumns(ctx context.Context, database string, table models.TableIdentity) ([]string, error) {
	if err := s.checkDatabase(database); err != nil {
		return nil, s.queryError(apperrors.ScopeColumns, database, table.String(), "", err)
	}

	query, args, err := psql.
		Select("column_name::text AS column_name").
		From("information_schema.columns").
		Where(sq.Eq{"table_schema": table.SchemaName}).
		Where(sq.Eq{"table_name": table.TableName}).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return nil, s.queryError(apperrors.ScopeColumns, database, table.String(), "", fmt.Errorf("build query: %w", err))
	}

	result, err := s.run(ctx, query, args...)
	if err != nil {
		return nil, s.queryError(apperrors.ScopeColumns, database, table.String(), "", err)
	}

	columns, err := result.Strings("column_name")
	if err != nil {
		return nil, s.queryError(apperrors.ScopeColumns, database, table.String(), "", err)
	}
	if len(columns) == 0 {
		return nil, s.queryError(apperrors.ScopeColumns, database, table.String(), "", apperrors.ErrNoColumns)
	}
	return columns, nil
}

// CountRows returns count(*) for the table.
func (s *SchemaDiscoverer) CountRows(ctx context.Context, database string, table models.TableIdentity) (int64, error) {
	from, err := s.from(database, table)
	if err != nil {
		return 0, s.queryError(apperrors.ScopeRowCount, database, table.String(), "", err)
	}

	query, args, err := literal.Select("count(*) AS row_count").From(from).ToSql()
	if err != nil {
		return 0, s.queryError(apperrors.ScopeRowCount, database, table.String(), "", fmt.Errorf("build query: %w", err))
	}

	count, err := s.scalar(ctx, "row_count", query, args...)
	if err != nil {
		return 0, s.queryError(apperrors.ScopeRowCount, database, table.String(), "", err)
	}
	return count, nil
}

// CountDistinct returns count(DISTINCT column). NULLs are not counted.
// Types without an equality operator (json, xml, point) fail here.
func (s *SchemaDiscoverer) CountDistinct(ctx context.Context, database string, table models.TableIdentity, column string) (int64, error) {
	from, err := s.from(database, table)
	if err == nil {
		err = sqlpkg.ValidateIdentifier("column", column)
	}
	if err != nil {
		return 0, s.queryError(apperrors.ScopeDistinct, database, table.String(), column, err)
	}

	query, args, err := literal.
		Select(fmt.Sprintf("count(DISTINCT %s) AS distinct_count", pgx.Identifier{column}.Sanitize())).
		From(from).
		ToSql()
	if err != nil {
		return 0, s.queryError(apperrors.ScopeDistinct, database, table.String(), column, fmt.Errorf("build query: %w", err))
	}

	count, err := s.scalar(ctx, "distinct_count", query, args...)
	if err != nil {
		return 0, s.queryError(apperrors.ScopeDistinct, database, table.String(), column, err)
	}
	return count, nil
}

// hasRows reports whether the table holds at least one row, reading one row at most.
func (s *SchemaDiscoverer) hasRows(ctx context.Context, table models.TableIdentity) (bool, error) {
	from, err := qualifiedTableName(table)
	if err != nil {
		return false, err
	}

	sample, _, err := literal.Select("1").From(from).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	n, err := s.scalar(ctx, "row_count", "SELECT count(*) AS row_count FROM ("+sample+") AS first_row")
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SchemaDiscoverer) checkDatabase(database string) error {
	if err := sqlpkg.ValidateIdentifier("database", database); err != nil {
		return err
	}
	if !strings.EqualFold(database, s.database) {
		return fmt.Errorf("connected to database %q, cannot inspect %q", s.database, database)
	}
	return nil
}

func (s *SchemaDiscoverer) from(database string, table models.TableIdentity) (string, error) {
	if err := s.checkDatabase(database); err != nil {
		return "", err
	}
	return qualifiedTableName(table)
}

func (s *SchemaDiscoverer) run(ctx context.Context, query string, args ...any) (*datasource.QueryResult, error) {
	s.logger.Debug("Executing metadata query", zap.String("query", logging.SanitizeQuery(query)))
	return s.Query(ctx, query, args...)
}

func (s *SchemaDiscoverer) scalar(ctx context.Context, column, query string, args ...any) (int64, error) {
	result, err := s.run(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.ScalarInt64(column)
}

func (s *SchemaDiscoverer) queryError(scope, database, table, column string, err error) error {
	var mqe *apperrors.MetadataQueryError
	if errors.As(err, &mqe) {
		return err
	}
	return &apperrors.MetadataQueryError{
		Scope:    scope,
		Database: database,
		Table:    table,
		Column:   column,
		Err:      err,
	}
}

// Ensure SchemaDiscoverer implements the interface at compile time.
var _ datasource.SchemaDiscoverer = (*SchemaDiscoverer)(nil)
