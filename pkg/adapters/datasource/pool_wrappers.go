package datasource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	sqlpkg "github.com/ekaya-inc/ekaya-splitplan/pkg/sql"
)

// PostgresPoolWrapper wraps *pgxpool.Pool as a PoolConnector and MetadataQueryPort.
type PostgresPoolWrapper struct {
	pool *pgxpool.Pool
}

// NewPostgresPoolWrapper creates a new PostgreSQL pool wrapper
func NewPostgresPoolWrapper(pool *pgxpool.Pool) *PostgresPoolWrapper {
	return &PostgresPoolWrapper{pool: pool}
}

// Ping verifies the PostgreSQL connection is alive
func (w *PostgresPoolWrapper) Ping(ctx context.Context) error {
	return w.pool.Ping(ctx)
}

// Close closes all connections in the PostgreSQL pool
func (w *PostgresPoolWrapper) Close() error {
	w.pool.Close()
	return nil
}

// GetType returns the database type
func (w *PostgresPoolWrapper) GetType() string {
	return "postgres"
}

// Query runs a single read statement and collects every row keyed by column name.
func (w *PostgresPoolWrapper) Query(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	query, err := sqlpkg.NormalizeStatement(query)
	if err != nil {
		return nil, err
	}

	rows, err := w.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	result := &QueryResult{
		Columns: make([]string, len(fieldDescs)),
		Rows:    make([]map[string]any, 0),
	}
	for i, fd := range fieldDescs {
		result.Columns[i] = string(fd.Name)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		row := make(map[string]any, len(values))
		for i, v := range values {
			row[result.Columns[i]] = v
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return result, nil
}

// MSSQLPoolWrapper wraps *sql.DB as a PoolConnector and MetadataQueryPort.
type MSSQLPoolWrapper struct {
	db *sql.DB
}

// NewMSSQLPoolWrapper creates a new MSSQL pool wrapper
func NewMSSQLPoolWrapper(db *sql.DB) *MSSQLPoolWrapper {
	return &MSSQLPoolWrapper{db: db}
}

// Ping verifies the MSSQL connection is alive
func (w *MSSQLPoolWrapper) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

// Close closes all connections in the MSSQL pool
func (w *MSSQLPoolWrapper) Close() error {
	return w.db.Close()
}

// GetType returns the database type
func (w *MSSQLPoolWrapper) GetType() string {
	return "mssql"
}

// Query runs a single read statement and collects every row keyed by column name.
func (w *MSSQLPoolWrapper) Query(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	query, err := sqlpkg.NormalizeStatement(query)
	if err != nil {
		return nil, err
	}

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}

	result := &QueryResult{
		Columns: columnNames,
		Rows:    make([]map[string]any, 0),
	}

	for rows.Next() {
		values := make([]any, len(columnNames))
		valuePtrs := make([]any, len(columnNames))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(columnNames))
		for i, col := range columnNames {
			// NVARCHAR metadata comes back as []byte from some drivers
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return result, nil
}

// Compile-time interface checks
var (
	_ PoolConnector     = (*PostgresPoolWrapper)(nil)
	_ MetadataQueryPort = (*PostgresPoolWrapper)(nil)
	_ PoolConnector     = (*MSSQLPoolWrapper)(nil)
	_ MetadataQueryPort = (*MSSQLPoolWrapper)(nil)
)
