package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-splitplan/pkg/models"
)

type recordedQuery struct {
	query string
	args  []any
}

// fakeConn answers queries in order and records what it was sent.
type fakeConn struct {
	results []*datasource.QueryResult
	errs    []error
	queries []recordedQuery
}

func (f *fakeConn) Ping(ctx context.Context) error { return nil }
func (f *fakeConn) Close() error                   { return nil }
func (f *fakeConn) GetType() string                { return "postgres" }

func (f *fakeConn) Query(ctx context.Context, query string, args ...any) (*datasource.QueryResult, error) {
	i := len(f.queries)
	f.queries = append(f.queries, recordedQuery{query: query, args: args})
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return &datasource.QueryResult{}, nil
}

func rows(column string, values ...any) *datasource.QueryResult {
	r := &datasource.QueryResult{Columns: []string{column}}
	for _, v := range values {
		r.Rows = append(r.Rows, map[string]any{column: v})
	}
	return r
}

var orders = models.TableIdentity{SchemaName: "public", TableName: "orders"}

func newTestDiscoverer(t *testing.T, conn *fakeConn) *SchemaDiscoverer {
	return newSchemaDiscoverer(conn, "shop", zaptest.NewLogger(t))
}

func TestSchemaDiscoverer_DiscoverTables(t *testing.T) {
	conn := &fakeConn{results: []*datasource.QueryResult{{
		Columns: []string{"schema_name", "table_name", "row_count"},
		Rows: []map[string]any{
			{"schema_name": "public", "table_name": "orders", "row_count": int64(1200)},
			{"schema_name": "audit", "table_name": "events", "row_count": int64(5)},
		},
	}}}
	s := newTestDiscoverer(t, conn)

	tables, err := s.DiscoverTables(context.Background(), "shop")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, orders, tables[0].Identity())
	assert.Equal(t, int64(1200), tables[0].RowCount)

	require.Len(t, conn.queries, 1)
	assert.Equal(t,
		"SELECT schemaname::text AS schema_name, relname::text AS table_name, n_live_tup AS row_count FROM pg_stat_user_tables WHERE n_live_tup > 0 OR (last_analyze IS NULL AND last_autoanalyze IS NULL) ORDER BY n_live_tup DESC, schemaname, relname",
		conn.queries[0].query)
}

func TestSchemaDiscoverer_DiscoverTables_NeverAnalyzed(t *testing.T) {
	conn := &fakeConn{results: []*datasource.QueryResult{
		{
			Columns: []string{"schema_name", "table_name", "row_count"},
			Rows: []map[string]any{
				{"schema_name": "public", "table_name": "orders", "row_count": int64(1200)},
				{"schema_name": "public", "table_name": "staging", "row_count": int64(0)},
				{"schema_name": "public", "table_name": "empty", "row_count": int64(0)},
			},
		},
		rows("row_count", int64(1)),
		rows("row_count", int64(0)),
	}}
	s := newTestDiscoverer(t, conn)

	tables, err := s.DiscoverTables(context.Background(), "shop")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, orders, tables[0].Identity())
	assert.Equal(t, models.TableIdentity{SchemaName: "public", TableName: "staging"}, tables[1].Identity())
	assert.Zero(t, tables[1].RowCount)

	require.Len(t, conn.queries, 3)
	assert.Equal(t,
		`SELECT count(*) AS row_count FROM (SELECT 1 FROM "public"."staging" LIMIT 1) AS first_row`,
		conn.queries[1].query)
	assert.Empty(t, conn.queries[1].args)
	assert.Equal(t,
		`SELECT count(*) AS row_count FROM (SELECT 1 FROM "public"."empty" LIMIT 1) AS first_row`,
		conn.queries[2].query)
}

func TestSchemaDiscoverer_WrongDatabase(t *testing.T) {
	conn := &fakeConn{}
	s := newTestDiscoverer(t, conn)

	_, err := s.DiscoverTables(context.Background(), "billing")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMetadataQuery)
	assert.Contains(t, err.Error(), `cannot inspect "billing"`)
	assert.Empty(t, conn.queries, "no query may be sent")
}

func TestSchemaDiscoverer_DatabaseNameIsCaseInsensitive(t *testing.T) {
	conn := &fakeConn{results: []*datasource.QueryResult{rows("row_count", int64(3))}}
	s := newTestDiscoverer(t, conn)

	n, err := s.CountRows(context.Background(), "SHOP", orders)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestSchemaDiscoverer_DiscoverPrimaryKeys(t *testing.T) {
	conn := &fakeConn{results: []*datasource.QueryResult{rows("column_name", "order_id", "line_no")}}
	s := newTestDiscoverer(t, conn)

	keys, err := s.DiscoverPrimaryKeys(context.Background(), "shop", orders)
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id", "line_no"}, keys)

	require.Len(t, conn.queries, 1)
	q := conn.queries[0]
	assert.Contains(t, q.query, "tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = $1 AND tc.table_name = $2")
	assert.Contains(t, q.query, "ORDER BY kcu.ordinal_position")
	assert.Equal(t, []any{"public", "orders"}, q.args)
}

func TestSchemaDiscoverer_DiscoverColumns(t *testing.T) {
	conn := &fakeConn{results: []*datasource.QueryResult{rows("column_name", "order_id", "customer_id")}}
	s := newTestDiscoverer(t, conn)

	cols, err := s.DiscoverColumns(context.Background(), "shop", orders)
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id", "customer_id"}, cols)

	q := conn.queries[0]
	assert.Equal(t,
		"SELECT column_name::text AS column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position",
		q.query)
	assert.Equal(t, []any{"public", "orders"}, q.args)
}

func TestSchemaDiscoverer_DiscoverColumns_Empty(t *testing.T) {
	s := newTestDiscoverer(t, &fakeConn{results: []*datasource.QueryResult{rows("column_name")}})

	_, err := s.DiscoverColumns(context.Background(), "shop", orders)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNoColumns)

	var mqe *apperrors.MetadataQueryError
	require.ErrorAs(t, err, &mqe)
	assert.Equal(t, apperrors.ScopeColumns, mqe.Scope)
}

func TestSchemaDiscoverer_CountRows(t *testing.T) {
	conn := &fakeConn{results: []*datasource.QueryResult{rows("row_count", int64(1200))}}
	s := newTestDiscoverer(t, conn)

	n, err := s.CountRows(context.Background(), "shop", orders)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), n)
	assert.Equal(t, `SELECT count(*) AS row_count FROM "public"."orders"`, conn.queries[0].query)
}

func TestSchemaDiscoverer_CountDistinct(t *testing.T) {
	conn := &fakeConn{results: []*datasource.QueryResult{rows("distinct_count", int64(350))}}
	s := newTestDiscoverer(t, conn)

	n, err := s.CountDistinct(context.Background(), "shop", orders, `odd"name`)
	require.NoError(t, err)
	assert.Equal(t, int64(350), n)
	assert.Equal(t, `SELECT count(DISTINCT "odd""name") AS distinct_count FROM "public"."orders"`, conn.queries[0].query)
}

func TestSchemaDiscoverer_CountDistinct_Error(t *testing.T) {
	driverErr := errors.New("could not identify an equality operator for type json")
	s := newTestDiscoverer(t, &fakeConn{errs: []error{driverErr}})

	_, err := s.CountDistinct(context.Background(), "shop", orders, "payload")
	require.Error(t, err)
	assert.ErrorIs(t, err, driverErr)

	var mqe *apperrors.MetadataQueryError
	require.ErrorAs(t, err, &mqe)
	assert.Equal(t, apperrors.ScopeDistinct, mqe.Scope)
	assert.Equal(t, "payload", mqe.Column)
	assert.Equal(t, "[public].[orders]", mqe.Table)
}

func TestSchemaDiscoverer_CountDistinct_RejectsNulInName(t *testing.T) {
	conn := &fakeConn{}
	s := newTestDiscoverer(t, conn)

	_, err := s.CountDistinct(context.Background(), "shop", orders, "bad\x00")
	require.Error(t, err)
	assert.Empty(t, conn.queries)
}

func TestSchemaDiscoverer_QuestionMarksInNames(t *testing.T) {
	conn := &fakeConn{results: []*datasource.QueryResult{
		rows("row_count", int64(12)),
		rows("distinct_count", int64(12)),
	}}
	s := newTestDiscoverer(t, conn)
	table := models.TableIdentity{SchemaName: "public", TableName: "Q?A"}

	n, err := s.CountRows(context.Background(), "shop", table)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	n, err = s.CountDistinct(context.Background(), "shop", table, "is_active?")
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	require.Len(t, conn.queries, 2)
	assert.Equal(t, `SELECT count(*) AS row_count FROM "public"."Q?A"`, conn.queries[0].query)
	assert.Equal(t, `SELECT count(DISTINCT "is_active?") AS distinct_count FROM "public"."Q?A"`, conn.queries[1].query)
	assert.Empty(t, conn.queries[1].args)
}
