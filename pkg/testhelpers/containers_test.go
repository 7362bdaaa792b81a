//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestMSSQLTestDB_Connection(t *testing.T) {
	testDB := GetMSSQLTestDB(t)

	ctx := context.Background()

	var name string
	if err := testDB.DB.QueryRowContext(ctx, "SELECT DB_NAME()").Scan(&name); err != nil {
		t.Fatalf("failed to query database name: %v", err)
	}
	if name != testDatabase {
		t.Errorf("expected database %q, got %q", testDatabase, name)
	}
}

func TestPostgresTestDB_Connection(t *testing.T) {
	testDB := GetPostgresTestDB(t)

	ctx := context.Background()

	var name string
	if err := testDB.Pool.QueryRow(ctx, "SELECT current_database()").Scan(&name); err != nil {
		t.Fatalf("failed to query database name: %v", err)
	}
	if name != testDatabase {
		t.Errorf("expected database %q, got %q", testDatabase, name)
	}
}
