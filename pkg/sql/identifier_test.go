package sql

import (
	"testing"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name      string
		kind      string
		value     string
		expectErr bool
	}{
		{"plain table", "table", "orders", false},
		{"with spaces", "table", "Order Details", false},
		{"closing bracket", "column", "odd]name", false},
		{"unicode", "column", "código", false},
		{"empty", "schema", "", true},
		{"nul byte", "column", "id\x00x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.kind, tt.value)
			if tt.expectErr && err == nil {
				t.Errorf("expected error for %q", tt.value)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error for %q: %v", tt.value, err)
			}
		})
	}
}

func TestCheckIdentifier(t *testing.T) {
	tests := []struct {
		name            string
		kind            string
		value           string
		expectInjection bool
	}{
		{"clean table", "table", "orders", false},
		{"clean column", "column", "customer_id", false},
		{"clean schema", "schema", "dbo", false},
		{"words", "table", "laptop computers", false},
		{"tautology", "column", "' OR '1'='1", true},
		{"stacked drop", "table", "'; DROP TABLE users--", true},
		{"union", "column", "1 UNION SELECT * FROM passwords", true},
		{"comment truncation", "table", "admin'--", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckIdentifier(tt.kind, tt.value)

			if tt.expectInjection {
				if result == nil {
					t.Fatalf("expected injection hit for %q, got nil", tt.value)
				}
				if result.Kind != tt.kind {
					t.Errorf("expected kind %q, got %q", tt.kind, result.Kind)
				}
				if result.Name != tt.value {
					t.Errorf("expected name %q, got %q", tt.value, result.Name)
				}
				if result.Fingerprint == "" {
					t.Error("expected non-empty fingerprint")
				}
			} else if result != nil {
				t.Errorf("expected no injection for %q, got fingerprint %q", tt.value, result.Fingerprint)
			}
		})
	}
}
