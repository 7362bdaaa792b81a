package datasource

import (
	"fmt"
	"strconv"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/models"
)

// TableMetadata represents a discovered database table.
type TableMetadata struct {
	SchemaName string
	TableName  string
	RowCount   int64 // Catalog estimate, used for ordering only
}

// Identity returns the table's identity.
func (t TableMetadata) Identity() models.TableIdentity {
	return models.TableIdentity{SchemaName: t.SchemaName, TableName: t.TableName}
}

// QueryResult contains the rows of a metadata query keyed by column name.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Strings returns the named column of every row as strings.
func (r *QueryResult) Strings(column string) ([]string, error) {
	out := make([]string, 0, len(r.Rows))
	for i, row := range r.Rows {
		v, ok := row[column]
		if !ok {
			return nil, fmt.Errorf("row %d: missing column %q", i, column)
		}
		s, err := toString(v)
		if err != nil {
			return nil, fmt.Errorf("row %d column %q: %w", i, column, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Int64s returns the named column of every row as integers.
func (r *QueryResult) Int64s(column string) ([]int64, error) {
	out := make([]int64, 0, len(r.Rows))
	for i, row := range r.Rows {
		v, ok := row[column]
		if !ok {
			return nil, fmt.Errorf("row %d: missing column %q", i, column)
		}
		n, err := toInt64(v)
		if err != nil {
			return nil, fmt.Errorf("row %d column %q: %w", i, column, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// ScalarInt64 returns the named column of a single-row result.
func (r *QueryResult) ScalarInt64(column string) (int64, error) {
	if len(r.Rows) != 1 {
		return 0, fmt.Errorf("expected 1 row, got %d", len(r.Rows))
	}
	v, ok := r.Rows[0][column]
	if !ok {
		return 0, fmt.Errorf("missing column %q", column)
	}
	return toInt64(v)
}

func toString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case nil:
		return "", fmt.Errorf("unexpected NULL")
	default:
		return "", fmt.Errorf("unexpected type %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int32:
		return int64(val), nil
	case int:
		return int64(val), nil
	case float64:
		return int64(val), nil
	case []byte:
		return strconv.ParseInt(string(val), 10, 64)
	case string:
		return strconv.ParseInt(val, 10, 64)
	case nil:
		return 0, fmt.Errorf("unexpected NULL")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
