package sql

import "testing"

func TestRewriter_Rewrite(t *testing.T) {
	mapping := NewMapping([]string{"Order ID", "Customer Name", "total"})
	r := NewRewriter("orders", mapping)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "original column names replaced",
			input:    `SELECT "Order ID" FROM orders`,
			expected: `SELECT "Order_ID" FROM orders`,
		},
		{
			name:     "adjacent original references both replaced",
			input:    `SELECT "Order ID","Customer Name" FROM orders`,
			expected: `SELECT "Order_ID","Customer_Name" FROM orders`,
		},
		{
			name:     "placeholder table name replaced",
			input:    "SELECT * FROM csv_data",
			expected: "SELECT * FROM orders",
		},
		{
			name:     "placeholder replaced case-insensitively",
			input:    "SELECT * FROM CSV_DATA LIMIT 5",
			expected: "SELECT * FROM orders LIMIT 5",
		},
		{
			name:     "generic data placeholder replaced",
			input:    "SELECT total FROM data",
			expected: "SELECT total FROM orders",
		},
		{
			name:     "column casing normalized to stored form",
			input:    "SELECT TOTAL FROM orders",
			expected: "SELECT total FROM orders",
		},
		{
			name:     "sanitized reference with wrong case normalized",
			input:    "SELECT order_id FROM orders",
			expected: "SELECT Order_ID FROM orders",
		},
		{
			name:     "unknown identifiers untouched",
			input:    "SELECT nonexistent FROM orders",
			expected: "SELECT nonexistent FROM orders",
		},
		{
			name:     "already valid query unchanged",
			input:    "SELECT Order_ID, total FROM orders",
			expected: "SELECT Order_ID, total FROM orders",
		},
		{
			name:     "partial word not replaced",
			input:    "SELECT totals FROM orders",
			expected: "SELECT totals FROM orders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Rewrite(tt.input)
			if got != tt.expected {
				t.Errorf("Rewrite(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRewriter_IdentityMappingOnlyFixesTables(t *testing.T) {
	// Native sources keep their identifiers; only placeholder table tokens
	// and column casing are repaired.
	mapping := IdentityMapping([]string{"id", "name"})
	r := NewRewriter("customers", mapping)

	got := r.Rewrite("SELECT ID, name FROM table")
	expected := "SELECT id, name FROM customers"
	if got != expected {
		t.Errorf("Rewrite() = %q, want %q", got, expected)
	}
}
