// Package csvfile is the delimited-text source adapter. A file is parsed with
// a fixed ordered list of text encodings, its header row becomes the column
// set, and rows are loaded into the embedded store under sanitized names.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource/embedded"
	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
	enginesql "github.com/datalens-ai/datalens-engine/pkg/sql"
)

// candidateEncodings are tried in order; the first that decodes and parses to
// at least one column wins.
var candidateEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"utf-8", unicode.UTF8},
	{"latin1", charmap.ISO8859_1},
	{"windows-1252", charmap.Windows1252},
}

// Open ingests a delimited-text file. One table per file; the table name is
// the file base name without extension.
func Open(ctx context.Context, path string, sampleValues int, logger *zap.Logger) (*embedded.Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindCSV, err)
	}

	header, records, encodingName, err := parseWithEncodings(raw)
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindCSV, err)
	}

	logger.Info("parsed delimited-text file",
		zap.String("path", filepath.Base(path)),
		zap.String("encoding", encodingName),
		zap.Int("columns", len(header)),
		zap.Int("rows", len(records)))

	table := embedded.IngestedTable{
		Name:    tableNameFromPath(path),
		Columns: header,
		Rows:    recordsToRows(records),
	}

	return embedded.NewIngestedSource(ctx, datasource.KindCSV, []embedded.IngestedTable{table}, sampleValues, logger)
}

// parseWithEncodings tries each candidate encoding until one yields a header
// with at least one column.
func parseWithEncodings(raw []byte) (header []string, records [][]string, encodingName string, err error) {
	var lastErr error
	for _, candidate := range candidateEncodings {
		// The utf-8 decoder substitutes replacement runes instead of failing,
		// which would mask mojibake; reject invalid input up front so the
		// single-byte fallbacks get their turn.
		if candidate.enc == unicode.UTF8 && !utf8.Valid(raw) {
			lastErr = fmt.Errorf("input is not valid utf-8")
			continue
		}

		decoded, decErr := candidate.enc.NewDecoder().Bytes(raw)
		if decErr != nil {
			lastErr = decErr
			continue
		}

		h, recs, parseErr := parseCSV(decoded)
		if parseErr != nil {
			lastErr = parseErr
			continue
		}
		if len(h) >= 1 {
			return h, recs, candidate.name, nil
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no encoding produced a parsable header")
	}
	return nil, nil, "", fmt.Errorf("parse delimited text: %w", lastErr)
}

func parseCSV(data []byte) ([]string, [][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // ragged rows are padded at load time

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header row: %w", err)
	}
	// Strip a UTF-8 BOM that survived decoding.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "﻿")
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		records = append(records, record)
	}
	return header, records, nil
}

func recordsToRows(records [][]string) [][]any {
	rows := make([][]any, len(records))
	for i, record := range records {
		row := make([]any, len(record))
		for j, cell := range record {
			if cell == "" {
				row[j] = nil
			} else {
				row[j] = cell
			}
		}
		rows[i] = row
	}
	return rows
}

// tableNameFromPath derives a query-safe table name from the file base name.
func tableNameFromPath(path string) string {
	base := filepath.Base(path)
	return enginesql.SanitizeIdentifier(strings.TrimSuffix(base, filepath.Ext(base)))
}
