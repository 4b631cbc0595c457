// Package sql provides the query-text machinery of the engine: identifier
// sanitization, the read-only safety filter, best-effort query rewriting
// against runtime identifiers, dialect translation for foreign scripts, and
// single-statement normalization.
package sql

import (
	"errors"
	"strings"
)

// ErrMultipleStatements rejects query text carrying more than one statement.
var ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

// ValidationResult contains the normalized SQL and any validation errors.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize prepares raw query text for the pipeline: trim
// whitespace, drop the single trailing semicolon, then reject the query if
// any semicolon survives outside a string literal (a second statement).
func ValidateAndNormalize(query string) ValidationResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return ValidationResult{NormalizedSQL: query}
	}

	normalized := trimStatementTerminator(query)
	if containsBareSemicolon(normalized) {
		return ValidationResult{Error: ErrMultipleStatements}
	}

	return ValidationResult{NormalizedSQL: normalized}
}

// containsBareSemicolon reports a semicolon outside single- or double-quoted
// text. A doubled quote ('') closes and immediately reopens the literal,
// which leaves the scan in the right state without special handling;
// backslash-escaped quotes are honored too.
func containsBareSemicolon(query string) bool {
	var quote rune // active string delimiter, 0 outside literals
	var prev rune

	for _, r := range query {
		if quote != 0 {
			if r == quote && prev != '\\' {
				quote = 0
			}
			prev = r
			continue
		}
		switch r {
		case ';':
			return true
		case '\'', '"':
			quote = r
		}
		prev = r
	}
	return false
}

// trimStatementTerminator removes one trailing semicolon plus surrounding
// whitespace. Only one: "SELECT 1;;" keeps a semicolon and fails the bare
// semicolon check above.
func trimStatementTerminator(query string) string {
	query = strings.TrimRight(query, " \t\n\r")
	if strings.HasSuffix(query, ";") {
		query = strings.TrimRight(strings.TrimSuffix(query, ";"), " \t\n\r")
	}
	return query
}
