// Package embedded wraps the engine's embedded relational store (SQLite via
// modernc.org/sqlite, pure Go). Ingested files - delimited text, tree data,
// replayed scripts - are loaded here so every local source answers SQL through
// the same engine; native store files are opened read-only in place.
package embedded

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
	"github.com/datalens-ai/datalens-engine/pkg/schema"
)

// DB is one embedded store handle. Not safe for concurrent use by two
// callers; sessions serialize access.
type DB struct {
	db *sql.DB
}

// NewMemory opens a fresh in-memory store for ingestion.
func NewMemory() (*DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	// An in-memory SQLite database exists per connection; cap the pool at one
	// so every statement sees the same database.
	db.SetMaxOpenConns(1)
	return &DB{db: db}, nil
}

// OpenFile opens an existing SQLite store file read-only.
func OpenFile(path string) (*DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open store file: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &DB{db: db}, nil
}

// Ping verifies the handle is usable.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return err
	}
	var one int
	return d.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// Close releases the handle. database/sql makes repeated Close a no-op.
func (d *DB) Close() error {
	return d.db.Close()
}

// QuoteIdentifier quotes a SQLite identifier, doubling embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// TableNames lists user tables in creation order.
func (d *DB) TableNames(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("query sqlite_master: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Introspect builds the uniform schema view from the native catalog:
// sqlite_master for tables, PRAGMA table_info for columns, plus a bounded
// sample of literal values per column.
func (d *DB) Introspect(ctx context.Context, sampleValues int) (*schema.Descriptor, error) {
	names, err := d.TableNames(ctx)
	if err != nil {
		return nil, err
	}

	desc := &schema.Descriptor{}
	for _, name := range names {
		table, err := d.introspectTable(ctx, name, sampleValues)
		if err != nil {
			return nil, err
		}
		desc.Tables = append(desc.Tables, *table)
	}
	return desc, nil
}

func (d *DB) introspectTable(ctx context.Context, name string, sampleValues int) (*schema.Table, error) {
	rows, err := d.db.QueryContext(ctx, "PRAGMA table_info("+QuoteIdentifier(name)+")")
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", name, err)
	}
	defer rows.Close()

	table := &schema.Table{Name: name}
	for rows.Next() {
		var (
			cid        int
			colName    string
			declType   sql.NullString
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &colName, &declType, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info %s: %w", name, err)
		}
		table.Columns = append(table.Columns, schema.Column{
			Name:     colName,
			Type:     string(mapDeclaredType(declType.String)),
			Nullable: notNull == 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	count, err := d.RowCount(ctx, name)
	if err != nil {
		return nil, err
	}
	table.RowCount = count

	if sampleValues > 0 {
		if err := d.attachSampleValues(ctx, table, sampleValues); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func (d *DB) attachSampleValues(ctx context.Context, table *schema.Table, limit int) error {
	result, err := d.Query(ctx, "SELECT * FROM "+QuoteIdentifier(table.Name), limit)
	if err != nil {
		return err
	}

	index := make(map[string]int, len(result.Columns))
	for i, col := range result.Columns {
		index[col.Name] = i
	}
	for ci := range table.Columns {
		pos, ok := index[table.Columns[ci].Name]
		if !ok {
			continue
		}
		for _, row := range result.Rows {
			if row[pos] != nil {
				table.Columns[ci].SampleValues = append(table.Columns[ci].SampleValues, row[pos])
			}
		}
	}
	return nil
}

// mapDeclaredType maps a SQLite declared type to the uniform vocabulary,
// following affinity rules.
func mapDeclaredType(decl string) schema.ValueType {
	upper := strings.ToUpper(decl)
	switch {
	case upper == "":
		return schema.TypeUnknown
	case strings.Contains(upper, "DATETIME"), strings.Contains(upper, "TIMESTAMP"),
		upper == "DATE":
		return schema.TypeDatetime
	case strings.Contains(upper, "INT"):
		return schema.TypeInteger
	case strings.Contains(upper, "BOOL"):
		return schema.TypeBoolean
	case strings.Contains(upper, "REAL"), strings.Contains(upper, "FLOA"),
		strings.Contains(upper, "DOUB"), strings.Contains(upper, "NUMERIC"),
		strings.Contains(upper, "DECIMAL"):
		return schema.TypeReal
	case strings.Contains(upper, "BLOB"):
		return schema.TypeUnknown
	default:
		return schema.TypeText
	}
}

// Query runs a SELECT, bounded. The query is wrapped with limit+1 so
// truncation is detected without fetching the full result.
func (d *DB) Query(ctx context.Context, query string, limit int) (*datasource.QueryResult, error) {
	effective := datasource.EffectiveLimit(limit)
	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", query, effective+1)

	rows, err := d.db.QueryContext(ctx, wrapped)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	return collectRows(rows, effective)
}

// Sample returns the first rows of a table, or of the first table when the
// name is empty.
func (d *DB) Sample(ctx context.Context, table string, limit int) (*datasource.QueryResult, error) {
	if table == "" {
		names, err := d.TableNames(ctx)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("store has no tables")
		}
		table = names[0]
	}
	return d.Query(ctx, "SELECT * FROM "+QuoteIdentifier(table), limit)
}

// RowCount returns the exact row count of a table.
func (d *DB) RowCount(ctx context.Context, table string) (int64, error) {
	var count int64
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+QuoteIdentifier(table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

// Exec runs one statement during script replay.
func (d *DB) Exec(ctx context.Context, stmt string) error {
	_, err := d.db.ExecContext(ctx, stmt)
	return err
}

// collectRows reads up to limit rows positionally, flagging truncation when a
// row beyond the limit exists.
func collectRows(rows *sql.Rows, limit int) (*datasource.QueryResult, error) {
	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}

	columns := make([]datasource.ColumnInfo, len(columnNames))
	for i, name := range columnNames {
		columns[i] = datasource.ColumnInfo{
			Name: name,
			Type: string(mapDeclaredType(columnTypes[i].DatabaseTypeName())),
		}
	}

	result := &datasource.QueryResult{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if len(result.Rows) == limit {
			result.Truncated = true
			break
		}

		values := make([]any, len(columnNames))
		pointers := make([]any, len(columnNames))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}
