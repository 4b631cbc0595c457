// Package mssql is the remote-relational source adapter for SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
	"github.com/datalens-ai/datalens-engine/pkg/config"
	"github.com/datalens-ai/datalens-engine/pkg/schema"
)

// Adapter provides SQL Server connectivity with the uniform capability set.
type Adapter struct {
	config       *Config
	db           *sql.DB
	sampleValues int
	logger       *zap.Logger
}

func buildConnectionString(cfg *Config) string {
	query := url.Values{}
	query.Add("database", cfg.Database)
	if cfg.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if cfg.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", cfg.ConnectionTimeout))
	}

	host := config.ResolveHostForDocker(cfg.Host)

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(cfg.Username),
		url.QueryEscape(cfg.Password),
		host,
		cfg.Port,
		query.Encode(),
	)
}

// NewAdapter opens a SQL Server connection with SQL authentication.
func NewAdapter(ctx context.Context, cfg *Config, sampleValues int, logger *zap.Logger) (*Adapter, error) {
	db, err := sql.Open("sqlserver", buildConnectionString(cfg))
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindSQLServer, err)
	}

	return &Adapter{
		config:       cfg,
		db:           db,
		sampleValues: sampleValues,
		logger:       logger,
	}, nil
}

func (a *Adapter) Kind() string { return datasource.KindSQLServer }

// TestConnection verifies connectivity and that we landed on the expected
// database.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return apperrors.ConnectionError(datasource.KindSQLServer, fmt.Errorf("ping failed: %w", err))
	}

	var currentDB string
	if err := a.db.QueryRowContext(ctx, "SELECT DB_NAME()").Scan(&currentDB); err != nil {
		return apperrors.ConnectionError(datasource.KindSQLServer, fmt.Errorf("get current database: %w", err))
	}
	if !strings.EqualFold(currentDB, a.config.Database) {
		return apperrors.ConnectionError(datasource.KindSQLServer,
			fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, currentDB))
	}

	return nil
}

// quoteName brackets a SQL Server identifier, escaping ] as ]].
func quoteName(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func qualifiedTableName(schemaName, tableName string) string {
	if schemaName == "" || schemaName == "dbo" {
		return quoteName(tableName)
	}
	return quoteName(schemaName) + "." + quoteName(tableName)
}

func displayTableName(schemaName, tableName string) string {
	if schemaName == "" || schemaName == "dbo" {
		return tableName
	}
	return schemaName + "." + tableName
}

// IntrospectSchema builds the uniform view from INFORMATION_SCHEMA.
func (a *Adapter) IntrospectSchema(ctx context.Context) (*schema.Descriptor, error) {
	const tablesQuery = `
		SELECT TABLE_SCHEMA, TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_SCHEMA, TABLE_NAME
	`

	rows, err := a.db.QueryContext(ctx, tablesQuery)
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindSQLServer, fmt.Errorf("query tables: %w", err))
	}

	type tableRef struct{ schemaName, tableName string }
	var refs []tableRef
	for rows.Next() {
		var ref tableRef
		if err := rows.Scan(&ref.schemaName, &ref.tableName); err != nil {
			rows.Close()
			return nil, apperrors.ConnectionError(datasource.KindSQLServer, fmt.Errorf("scan table: %w", err))
		}
		refs = append(refs, ref)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperrors.ConnectionError(datasource.KindSQLServer, err)
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
		SELECT COLUMN_NAME, DATA_TYPE, CASE WHEN IS_NULLABLE = 'YES' THEN 1 ELSE 0 END
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
		ORDER BY ORDINAL_POSITION
	`

	rows, err := a.db.QueryContext(ctx, columnsQuery, schemaName, tableName)
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindSQLServer, fmt.Errorf("query columns: %w", err))
	}
	defer rows.Close()

	table := &schema.Table{Name: displayTableName(schemaName, tableName)}
	for rows.Next() {
		var (
			name     string
			dataType string
			nullable int
		)
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, apperrors.ConnectionError(datasource.KindSQLServer, fmt.Errorf("scan column: %w", err))
		}
		table.Columns = append(table.Columns, schema.Column{
			Name:     name,
			Type:     string(mapSQLServerType(dataType)),
			Nullable: nullable == 1,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.ConnectionError(datasource.KindSQLServer, err)
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

// mapSQLServerType maps a SQL Server type name to the uniform vocabulary.
func mapSQLServerType(dataType string) schema.ValueType {
	switch strings.ToLower(dataType) {
	case "tinyint", "smallint", "int", "bigint", "bit":
		return schema.TypeInteger
	case "decimal", "numeric", "money", "smallmoney", "float", "real":
		return schema.TypeReal
	case "date", "time", "datetime", "datetime2", "smalldatetime", "datetimeoffset":
		return schema.TypeDatetime
	default:
		return schema.TypeText
	}
}

// ExecuteQuery runs already-validated query text bounded with SQL Server's
// TOP clause, fetching one extra row to detect truncation.
func (a *Adapter) ExecuteQuery(ctx context.Context, query string, limit int) (*datasource.QueryResult, error) {
	effective := datasource.EffectiveLimit(limit)
	wrapped := fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS _limited", effective+1, query)

	rows, err := a.db.QueryContext(ctx, wrapped)
	if err != nil {
		return nil, apperrors.NewExecutionError(datasource.KindSQLServer, err)
	}
	defer rows.Close()

	result, err := collectRows(rows, effective)
	if err != nil {
		return nil, apperrors.NewExecutionError(datasource.KindSQLServer, err)
	}
	return result, nil
}

// SampleRows returns the first rows of a table, defaulting to the first
// table of the introspected schema.
func (a *Adapter) SampleRows(ctx context.Context, table string, limit int) (*datasource.QueryResult, error) {
	if table == "" {
		desc, err := a.IntrospectSchema(ctx)
		if err != nil {
			return nil, err
		}
		if len(desc.Tables) == 0 {
			return nil, apperrors.NewExecutionError(datasource.KindSQLServer, fmt.Errorf("database has no tables"))
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
	err := a.db.QueryRowContext(ctx,
		"SELECT COUNT_BIG(*) FROM "+qualifiedTableName(schemaName, tableName)).Scan(&count)
	if err != nil {
		return 0, apperrors.NewExecutionError(datasource.KindSQLServer, err)
	}
	return count, nil
}

func splitDisplayName(name string) (schemaName, tableName string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// collectRows reads up to limit rows positionally, converting []byte text to
// string and flagging truncation.
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
			Type: columnTypes[i].DatabaseTypeName(),
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
			if b, ok := v.([]byte); ok && isStringType(columnTypes[i].DatabaseTypeName()) {
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

func isStringType(dbType string) bool {
	switch strings.ToUpper(dbType) {
	case "CHAR", "VARCHAR", "NCHAR", "NVARCHAR", "TEXT", "NTEXT", "XML":
		return true
	}
	return false
}

// Close releases the connection.
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Ensure Adapter implements the capability set at compile time.
var _ datasource.Adapter = (*Adapter)(nil)
