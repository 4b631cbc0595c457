// Package jsonfile is the tree-structured source adapter. It accepts a single
// JSON value (array of objects, object wrapping one array field, or a lone
// object treated as one row) or newline-delimited objects, and loads the rows
// into the embedded store under sanitized column names.
package jsonfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource/embedded"
	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
	enginesql "github.com/datalens-ai/datalens-engine/pkg/sql"
)

// Open ingests a tree-structured file. One table per file; the table name is
// the file base name without extension.
func Open(ctx context.Context, path string, sampleValues int, logger *zap.Logger) (*embedded.Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindJSON, err)
	}

	rows, skipped, err := extractRows(raw)
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindJSON, err)
	}
	if skipped > 0 {
		logger.Warn("skipped malformed lines in newline-delimited input",
			zap.String("path", filepath.Base(path)),
			zap.Int("skipped", skipped))
	}

	columns, tableRows := tabulate(rows)
	table := embedded.IngestedTable{
		Name:    tableNameFromPath(path),
		Columns: columns,
		Rows:    tableRows,
	}

	logger.Info("parsed tree-structured file",
		zap.String("path", filepath.Base(path)),
		zap.Int("columns", len(columns)),
		zap.Int("rows", len(tableRows)))

	return embedded.NewIngestedSource(ctx, datasource.KindJSON, []embedded.IngestedTable{table}, sampleValues, logger)
}

// extractRows interprets the accepted shapes. A whole-value parse is tried
// first; failing that, the input is treated as newline-delimited objects with
// malformed lines skipped (a common export convention), not fatal.
func extractRows(raw []byte) (rows []map[string]any, skippedLines int, err error) {
	var value any
	if unmarshalErr := json.Unmarshal(raw, &value); unmarshalErr == nil {
		rows, err = rowsFromValue(value)
		return rows, 0, err
	}

	return rowsFromLines(raw)
}

func rowsFromValue(value any) ([]map[string]any, error) {
	switch v := value.(type) {
	case []any:
		// Array of objects: rows directly.
		rows := make([]map[string]any, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("array element is not an object")
			}
			rows = append(rows, obj)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("array holds no objects")
		}
		return rows, nil

	case map[string]any:
		// An object containing exactly one array-valued field: that field is
		// the rows array. Any other object is a single row.
		if inner, ok := singleArrayField(v); ok {
			return rowsFromValue(inner)
		}
		return []map[string]any{v}, nil

	default:
		return nil, fmt.Errorf("top-level value is neither object nor array")
	}
}

func singleArrayField(obj map[string]any) ([]any, bool) {
	var found []any
	count := 0
	for _, v := range obj {
		if arr, ok := v.([]any); ok {
			found = arr
			count++
		}
	}
	if count == 1 {
		return found, true
	}
	return nil, false
}

func rowsFromLines(raw []byte) ([]map[string]any, int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var rows []map[string]any
	skipped := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			skipped++
			continue
		}
		rows = append(rows, obj)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan lines: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no parsable objects found")
	}
	return rows, skipped, nil
}

// tabulate produces a stable column order (first-seen across rows) and
// positional row values.
func tabulate(objects []map[string]any) (columns []string, rows [][]any) {
	seen := make(map[string]bool)
	for _, obj := range objects {
		for _, key := range sortedKeys(obj) {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}

	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col] = i
	}

	rows = make([][]any, len(objects))
	for ri, obj := range objects {
		row := make([]any, len(columns))
		for key, val := range obj {
			row[index[key]] = val
		}
		rows[ri] = row
	}
	return columns, rows
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	// Map iteration order is random; sort for a deterministic column order.
	sort.Strings(keys)
	return keys
}

// tableNameFromPath derives a query-safe table name from the file base name.
func tableNameFromPath(path string) string {
	base := filepath.Base(path)
	return enginesql.SanitizeIdentifier(strings.TrimSuffix(base, filepath.Ext(base)))
}
