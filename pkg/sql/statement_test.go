package sql

import (
	"errors"
	"testing"
)

func TestNormalizeStatement_Valid(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "SELECT 1", "SELECT 1"},
		{"trailing semicolon", "SELECT 1;", "SELECT 1"},
		{"trailing semicolon and whitespace", "  SELECT 1 ;  \n", "SELECT 1"},
		{"semicolon in string", "SELECT * FROM t WHERE a = 'x;y'", "SELECT * FROM t WHERE a = 'x;y'"},
		{"doubled quote in string", "SELECT 'it''s; fine'", "SELECT 'it''s; fine'"},
		{"semicolon in brackets", "SELECT COUNT_BIG(DISTINCT [a;b]) FROM [dbo].[t]", "SELECT COUNT_BIG(DISTINCT [a;b]) FROM [dbo].[t]"},
		{
			"escaped bracket then semicolon",
			"SELECT COUNT_BIG(DISTINCT [x]]; DROP TABLE t;--]) FROM [dbo].[t]",
			"SELECT COUNT_BIG(DISTINCT [x]]; DROP TABLE t;--]) FROM [dbo].[t]",
		},
		{"semicolon in double quotes", `SELECT count(DISTINCT "a;b") FROM "public"."t"`, `SELECT count(DISTINCT "a;b") FROM "public"."t"`},
		{"escaped double quote", `SELECT count(DISTINCT "x""; y") FROM t`, `SELECT count(DISTINCT "x""; y") FROM t`},
		{"line comment", "SELECT 1 -- done; really\nFROM t", "SELECT 1 -- done; really\nFROM t"},
		{"block comment", "SELECT /* a; b */ 1", "SELECT /* a; b */ 1"},
		{"postgres cast", "SELECT relname::text FROM pg_stat_user_tables", "SELECT relname::text FROM pg_stat_user_tables"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeStatement(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("NormalizeStatement(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeStatement_MultipleStatements(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"two selects", "SELECT 1; SELECT 2"},
		{"stacked drop", "SELECT * FROM t; DROP TABLE t"},
		{"two trailing semicolons", "SELECT 1;;"},
		{"after closed bracket", "SELECT [a]; SELECT 2"},
		{"after closed string", "SELECT 'a'; SELECT 2"},
		{"after block comment", "SELECT /* x */ 1; SELECT 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeStatement(tt.input)
			if !errors.Is(err, ErrMultipleStatements) {
				t.Errorf("expected ErrMultipleStatements for %q, got %v", tt.input, err)
			}
		})
	}
}

func TestNormalizeStatement_Unterminated(t *testing.T) {
	// An unterminated quote swallows the rest; the server rejects the syntax
	for _, q := range []string{"SELECT [a; b", "SELECT 'a; b", "SELECT /* a; b"} {
		if _, err := NormalizeStatement(q); err != nil {
			t.Errorf("NormalizeStatement(%q) unexpected error: %v", q, err)
		}
	}
}
