package embedded

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/datalens-ai/datalens-engine/pkg/schema"
)

// declaredType picks the SQLite declared type for an inferred column type.
// Unions and structured types are stored as TEXT.
func declaredType(t string) string {
	switch schema.ValueType(t) {
	case schema.TypeInteger:
		return "INTEGER"
	case schema.TypeReal:
		return "REAL"
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeDatetime:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

// LoadTable creates a table under the given (already sanitized) column names
// and bulk-inserts the ingested rows inside one transaction. Row value slices
// must align with columns; short rows are padded with NULL.
func (d *DB) LoadTable(ctx context.Context, name string, columns []string, types []string, rows [][]any) error {
	if len(columns) == 0 {
		return fmt.Errorf("table %s has no columns", name)
	}

	defs := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		colType := "TEXT"
		if i < len(types) {
			colType = declaredType(types[i])
		}
		defs[i] = QuoteIdentifier(col) + " " + colType
		placeholders[i] = "?"
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdentifier(name), strings.Join(defs, ", "))
	if _, err := d.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}

	if len(rows) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)",
		QuoteIdentifier(name), strings.Join(placeholders, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", name, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		values := make([]any, len(columns))
		for i := range columns {
			if i < len(row) {
				values[i] = normalizeValue(row[i])
			}
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load %s: %w", name, err)
	}
	return nil
}

// normalizeValue converts ingested values into driver-storable ones.
// Structured values (arrays, objects) are stored as compact JSON text.
func normalizeValue(v any) any {
	switch v.(type) {
	case nil, bool, int, int32, int64, float32, float64, string, []byte:
		return v
	case []any, map[string]any:
		if encoded, err := json.Marshal(v); err == nil {
			return string(encoded)
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
