// Package postgres is the remote-relational source adapter for PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
	"github.com/datalens-ai/datalens-engine/pkg/config"
	"github.com/datalens-ai/datalens-engine/pkg/schema"
)

// Adapter provides PostgreSQL connectivity with the uniform capability set.
type Adapter struct {
	config       *Config
	pool         *pgxpool.Pool
	sampleValues int
	logger       *zap.Logger
}

// buildConnectionString builds a PostgreSQL URL with proper escaping.
// IMPORTANT: All user-provided fields must be URL-escaped to handle special
// characters in passwords (e.g., @, /, #, ?) that would otherwise break URL
// parsing. When running in Docker, localhost is resolved to
// host.docker.internal to reach databases on the host machine.
func buildConnectionString(cfg *Config) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	host := config.ResolveHostForDocker(cfg.Host)

	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		host,
		cfg.Port,
		url.QueryEscape(cfg.Database),
		sslMode,
	)
}

// NewAdapter connects a pool for the configured database.
func NewAdapter(ctx context.Context, cfg *Config, sampleValues int, logger *zap.Logger) (*Adapter, error) {
	pool, err := pgxpool.New(ctx, buildConnectionString(cfg))
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindPostgres, err)
	}

	return &Adapter{
		config:       cfg,
		pool:         pool,
		sampleValues: sampleValues,
		logger:       logger,
	}, nil
}

func (a *Adapter) Kind() string { return datasource.KindPostgres }

// TestConnection verifies the database is reachable with valid credentials.
// It checks server connectivity, database access, and that the connection
// landed on the expected database rather than a default one.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return apperrors.ConnectionError(datasource.KindPostgres, fmt.Errorf("ping failed: %w", err))
	}

	var result int
	if err := a.pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return apperrors.ConnectionError(datasource.KindPostgres, fmt.Errorf("test query failed: %w", err))
	}

	var currentDB string
	if err := a.pool.QueryRow(ctx, "SELECT current_database()").Scan(&currentDB); err != nil {
		return apperrors.ConnectionError(datasource.KindPostgres, fmt.Errorf("get current database: %w", err))
	}
	if !strings.EqualFold(currentDB, a.config.Database) {
		return apperrors.ConnectionError(datasource.KindPostgres,
			fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, currentDB))
	}

	return nil
}

// qualifiedTableName returns a properly quoted table reference. Tables
// outside the public schema are addressed as "schema"."table".
func qualifiedTableName(schemaName, tableName string) string {
	quoted := pgx.Identifier{tableName}.Sanitize()
	if schemaName == "" || schemaName == "public" {
		return quoted
	}
	return pgx.Identifier{schemaName}.Sanitize() + "." + quoted
}

// displayTableName is the uniform name exposed in the descriptor: bare for
// public tables, schema-qualified otherwise so names stay unique per source.
func displayTableName(schemaName, tableName string) string {
	if schemaName == "" || schemaName == "public" {
		return tableName
	}
	return schemaName + "." + tableName
}

// IntrospectSchema builds the uniform view from the native catalog.
func (a *Adapter) IntrospectSchema(ctx context.Context) (*schema.Descriptor, error) {
	const tablesQuery = `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY table_schema, table_name
	`

	rows, err := a.pool.Query(ctx, tablesQuery)
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindPostgres, fmt.Errorf("query tables: %w", err))
	}

	type tableRef struct{ schemaName, tableName string }
	var refs []tableRef
	for rows.Next() {
		var ref tableRef
		if err := rows.Scan(&ref.schemaName, &ref.tableName); err != nil {
			rows.Close()
			return nil, apperrors.ConnectionError(datasource.KindPostgres, fmt.Errorf("scan table: %w", err))
		}
		refs = append(refs, ref)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperrors.ConnectionError(datasource.KindPostgres, err)
	}

	desc := &schema.Descriptor{}
	for _, ref := range refs {
		table, err := a.introspectTable(ctx, ref.schemaName, ref.tableName)
		if err != nil {
			return nil, err
		}
		desc.Tables = append(desc.Tables, *table)
	}
	return desc, nil
}

func (a *Adapter) introspectTable(ctx context.Context, schemaName, tableName string) (*schema.Table, error) {
	const columnsQuery = `
		SELECT column_name, data_type, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := a.pool.Query(ctx, columnsQuery, schemaName, tableName)
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindPostgres, fmt.Errorf("query columns: %w", err))
	}
	defer rows.Close()

	table := &schema.Table{Name: displayTableName(schemaName, tableName)}
	for rows.Next() {
		var (
			name     string
			dataType string
			nullable bool
		)
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, apperrors.ConnectionError(datasource.KindPostgres, fmt.Errorf("scan column: %w", err))
		}
		table.Columns = append(table.Columns, schema.Column{
			Name:     name,
			Type:     string(mapPostgresType(dataType)),
			Nullable: nullable,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.ConnectionError(datasource.KindPostgres, err)
	}

	count, err := a.RowCount(ctx, table.Name)
	if err != nil {
		return nil, err
	}
	table.RowCount = count

	if a.sampleValues > 0 {
		if err := a.attachSampleValues(ctx, table); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func (a *Adapter) attachSampleValues(ctx context.Context, table *schema.Table) error {
	result, err := a.SampleRows(ctx, table.Name, a.sampleValues)
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

// mapPostgresType maps an information_schema data type to the uniform
// vocabulary.
func mapPostgresType(dataType string) schema.ValueType {
	switch strings.ToLower(dataType) {
	case "smallint", "integer", "bigint", "smallserial", "serial", "bigserial":
		return schema.TypeInteger
	case "numeric", "decimal", "real", "double precision", "money":
		return schema.TypeReal
	case "boolean":
		return schema.TypeBoolean
	case "date", "time without time zone", "time with time zone",
		"timestamp without time zone", "timestamp with time zone", "interval":
		return schema.TypeDatetime
	case "json", "jsonb":
		return schema.TypeObject
	case "array":
		return schema.TypeArray
	default:
		return schema.TypeText
	}
}

// ExecuteQuery runs already-validated query text, bounded with limit+1 to
// detect truncation.
func (a *Adapter) ExecuteQuery(ctx context.Context, query string, limit int) (*datasource.QueryResult, error) {
	effective := datasource.EffectiveLimit(limit)
	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", query, effective+1)

	rows, err := a.pool.Query(ctx, wrapped)
	if err != nil {
		return nil, apperrors.NewExecutionError(datasource.KindPostgres, err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]datasource.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = datasource.ColumnInfo{
			Name: string(fd.Name),
			Type: pgTypeNameFromOID(fd.DataTypeOID),
		}
	}

	result := &datasource.QueryResult{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if len(result.Rows) == effective {
			result.Truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, apperrors.NewExecutionError(datasource.KindPostgres, err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExecutionError(datasource.KindPostgres, err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// SampleRows returns the first rows of a table. An empty table name means the
// first table of the introspected schema.
func (a *Adapter) SampleRows(ctx context.Context, table string, limit int) (*datasource.QueryResult, error) {
	if table == "" {
		desc, err := a.IntrospectSchema(ctx)
		if err != nil {
			return nil, err
		}
		if len(desc.Tables) == 0 {
			return nil, apperrors.NewExecutionError(datasource.KindPostgres, fmt.Errorf("database has no tables"))
		}
		table = desc.Tables[0].Name
	}

	schemaName, tableName := splitDisplayName(table)
	return a.ExecuteQuery(ctx, "SELECT * FROM "+qualifiedTableName(schemaName, tableName), limit)
}

// RowCount returns the exact row count of a table.
func (a *Adapter) RowCount(ctx context.Context, table string) (int64, error) {
	schemaName, tableName := splitDisplayName(table)

	var count int64
	err := a.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM "+qualifiedTableName(schemaName, tableName)).Scan(&count)
	if err != nil {
		return 0, apperrors.NewExecutionError(datasource.KindPostgres, err)
	}
	return count, nil
}

func splitDisplayName(name string) (schemaName, tableName string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// Close releases the pool.
func (a *Adapter) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

// Ensure Adapter implements the capability set at compile time.
var _ datasource.Adapter = (*Adapter)(nil)
