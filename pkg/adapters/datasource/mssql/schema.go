package mssql

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/logging"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/models"
	sqlpkg "github.com/ekaya-inc/ekaya-splitplan/pkg/sql"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.AtP)

// literal builds the count statements, which take no bind arguments.
// Quoted names may contain '?', and placeholder rewriting would turn it
// into a parameter reference.
var literal = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// SchemaDiscoverer implements datasource.SchemaDiscoverer for SQL Server.
// Every catalog view and table is qualified with the database so the
// queries work regardless of the login's default database.
type SchemaDiscoverer struct {
	*Adapter
	logger *zap.Logger
}

// NewSchemaDiscoverer creates a new SQL Server schema discoverer.
// If logger is nil, a no-op logger is used.
func NewSchemaDiscoverer(cfg *Config, logger *zap.Logger) (*SchemaDiscoverer, error) {
	adapter, err := NewAdapter(cfg)
	if err != nil {
		return nil, err
	}
	return newSchemaDiscoverer(adapter, logger), nil
}

func newSchemaDiscoverer(adapter *Adapter, logger *zap.Logger) *SchemaDiscoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaDiscoverer{
		Adapter: adapter,
		logger:  logger.Named("mssql"),
	}
}

// DiscoverTables returns user tables holding at least one row, largest first.
// Row counts come from sys.partitions (heap or clustered index only).
func (s *SchemaDiscoverer) DiscoverTables(ctx context.Context, database string) ([]datasource.TableMetadata, error) {
	if err := sqlpkg.ValidateIdentifier("database", database); err != nil {
		return nil, s.queryError(apperrors.ScopeDatabase, database, "", "", err)
	}

	query, args, err := psql.
		Select("sc.name AS schema_name", "ta.name AS table_name", "SUM(pa.rows) AS row_count").
		From(catalogName(database, "sys.tables") + " AS ta").
		Join(catalogName(database, "sys.partitions") + " AS pa ON pa.object_id = ta.object_id").
		Join(catalogName(database, "sys.schemas") + " AS sc ON ta.schema_id = sc.schema_id").
		Where("ta.is_ms_shipped = 0").
		Where("pa.index_id IN (0, 1)").
		GroupBy("sc.name", "ta.name").
		Having("SUM(pa.rows) > 0").
		OrderBy("SUM(pa.rows) DESC", "sc.name", "ta.name").
		ToSql()
	if err != nil {
		return nil, s.queryError(apperrors.ScopeDatabase, database, "", "", fmt.Errorf("build query: %w", err))
	}

	result, err := s.run(ctx, query, args...)
	if err != nil {
		return nil, s.queryError(apperrors.ScopeDatabase, database, "", "", err)
	}

	tables, err := tablesFromResult(result)
	if err != nil {
		return nil, s.queryError(apperrors.ScopeDatabase, database, "", "", err)
	}

	s.logger.Debug("Discovered tables", zap.String("database", database), zap.Int("count", len(tables)))
	return tables, nil
}

// DiscoverPrimaryKeys returns primary key columns in key ordinal order.
func (s *SchemaDiscoverer) DiscoverPrimaryKeys(ctx context.Context, database string, table models.TableIdentity) ([]string, error) {
	if err := sqlpkg.ValidateIdentifier("database", database); err != nil {
		return nil, s.queryError(apperrors.ScopePrimaryKeys, database, table.String(), "", err)
	}

	query, args, err := psql.
		Select("kcu.COLUMN_NAME AS column_name").
		From(catalogName(database, "INFORMATION_SCHEMA.TABLE_CONSTRAINTS") + " AS tc").
		Join(catalogName(database, "INFORMATION_SCHEMA.KEY_COLUMN_USAGE") + " AS kcu" +
			" ON tc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA" +
			" AND tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME" +
			" AND tc.TABLE_NAME = kcu.TABLE_NAME").
		Where("tc.CONSTRAINT_TYPE = 'PRIMARY KEY'").
		Where(sq.Eq{"tc.TABLE_SCHEMA": table.SchemaName}).
		Where(sq.Eq{"tc.TABLE_NAME": table.TableName}).
		OrderBy("kcu.ORDINAL_POSITION").
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
	if err := sqlpkg.ValidateIdentifier("database", database); err != nil {
		return nil, s.queryError(apperrors.ScopeColumns, database, table.String(), "", err)
	}

	query, args, err := psql.
		Select("COLUMN_NAME AS column_name").
		From(catalogName(database, "INFORMATION_SCHEMA.COLUMNS")).
		Where(sq.Eq{"TABLE_SCHEMA": table.SchemaName}).
		Where(sq.Eq{"TABLE_NAME": table.TableName}).
		OrderBy("ORDINAL_POSITION").
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

// CountRows returns COUNT_BIG(*) for the table.
func (s *SchemaDiscoverer) CountRows(ctx context.Context, database string, table models.TableIdentity) (int64, error) {
	from, err := threePartName(database, table)
	if err != nil {
		return 0, s.queryError(apperrors.ScopeRowCount, database, table.String(), "", err)
	}

	query, args, err := literal.Select("COUNT_BIG(*) AS row_count").From(from).ToSql()
	if err != nil {
		return 0, s.queryError(apperrors.ScopeRowCount, database, table.String(), "", fmt.Errorf("build query: %w", err))
	}

	count, err := s.scalar(ctx, "row_count", query, args...)
	if err != nil {
		return 0, s.queryError(apperrors.ScopeRowCount, database, table.String(), "", err)
	}
	return count, nil
}

// CountDistinct returns COUNT_BIG(DISTINCT column). NULLs are not counted.
// Columns of types that reject DISTINCT (text, ntext, image, xml) fail here
// and the caller records the failure for that column only.
func (s *SchemaDiscoverer) CountDistinct(ctx context.Context, database string, table models.TableIdentity, column string) (int64, error) {
	from, err := threePartName(database, table)
	if err == nil {
		err = sqlpkg.ValidateIdentifier("column", column)
	}
	if err != nil {
		return 0, s.queryError(apperrors.ScopeDistinct, database, table.String(), column, err)
	}

	query, args, err := literal.
		Select(fmt.Sprintf("COUNT_BIG(DISTINCT %s) AS distinct_count", quoteName(column))).
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

func tablesFromResult(result *datasource.QueryResult) ([]datasource.TableMetadata, error) {
	schemas, err := result.Strings("schema_name")
	if err != nil {
		return nil, err
	}
	names, err := result.Strings("table_name")
	if err != nil {
		return nil, err
	}
	counts, err := result.Int64s("row_count")
	if err != nil {
		return nil, err
	}

	tables := make([]datasource.TableMetadata, len(schemas))
	for i := range schemas {
		tables[i] = datasource.TableMetadata{
			SchemaName: schemas[i],
			TableName:  names[i],
			RowCount:   counts[i],
		}
	}
	return tables, nil
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
