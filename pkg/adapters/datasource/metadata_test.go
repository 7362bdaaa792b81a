package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/models"
)

func TestTableMetadata_Identity(t *testing.T) {
	tm := TableMetadata{SchemaName: "sales", TableName: "orders", RowCount: 42}
	assert.Equal(t, models.TableIdentity{SchemaName: "sales", TableName: "orders"}, tm.Identity())
}

func TestQueryResult_Strings(t *testing.T) {
	r := &QueryResult{
		Columns: []string{"name"},
		Rows: []map[string]any{
			{"name": "id"},
			{"name": []byte("code")},
		},
	}

	got, err := r.Strings("name")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "code"}, got)
}

func TestQueryResult_Strings_Empty(t *testing.T) {
	r := &QueryResult{Columns: []string{"name"}}

	got, err := r.Strings("name")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueryResult_Strings_Errors(t *testing.T) {
	tests := []struct {
		name string
		row  map[string]any
	}{
		{"missing column", map[string]any{"other": "x"}},
		{"null value", map[string]any{"name": nil}},
		{"wrong type", map[string]any{"name": 17}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &QueryResult{Rows: []map[string]any{tt.row}}
			_, err := r.Strings("name")
			assert.Error(t, err)
		})
	}
}

func TestQueryResult_Int64s(t *testing.T) {
	r := &QueryResult{Rows: []map[string]any{
		{"n": int64(1200)},
		{"n": []byte("7")},
	}}

	got, err := r.Int64s("n")
	require.NoError(t, err)
	assert.Equal(t, []int64{1200, 7}, got)

	r.Rows = append(r.Rows, map[string]any{"n": nil})
	_, err = r.Int64s("n")
	assert.Error(t, err)
}

func TestQueryResult_ScalarInt64(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int64
	}{
		{"int64", int64(1200), 1200},
		{"int32", int32(12), 12},
		{"int", 7, 7},
		{"float64", float64(99), 99},
		{"bytes", []byte("3000000000"), 3000000000},
		{"string", "15", 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &QueryResult{Rows: []map[string]any{{"n": tt.value}}}
			got, err := r.ScalarInt64("n")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryResult_ScalarInt64_Errors(t *testing.T) {
	tests := []struct {
		name string
		rows []map[string]any
	}{
		{"no rows", nil},
		{"two rows", []map[string]any{{"n": int64(1)}, {"n": int64(2)}}},
		{"missing column", []map[string]any{{"m": int64(1)}}},
		{"null", []map[string]any{{"n": nil}}},
		{"not a number", []map[string]any{{"n": "abc"}}},
		{"unsupported type", []map[string]any{{"n": true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &QueryResult{Rows: tt.rows}
			_, err := r.ScalarInt64("n")
			assert.Error(t, err)
		})
	}
}
