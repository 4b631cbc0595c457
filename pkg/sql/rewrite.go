package sql

import (
	"regexp"
	"strings"
)

// placeholderTables are generic table tokens that machine- or user-authored
// query text routinely uses in place of the real table name. Matched as whole
// words, case-insensitively.
var placeholderTables = []string{"csv_data", "json_data", "data", "table", "file"}

var placeholderPattern = regexp.MustCompile(`(?i)\b(?:` + strings.Join(placeholderTables, "|") + `)\b`)

// columnBoundary is the delimiter class around a column reference: quotes,
// backticks, whitespace, punctuation, parentheses, or the text edges.
const columnBoundary = "[\\s\"'`(),.;=<>!+\\-*/]"

// Rewriter performs best-effort textual repair of query text against the
// actual runtime identifiers of one table. It is not a parser: substitution
// may misfire inside string literals, a documented weakness accepted to keep
// translation bounded.
type Rewriter struct {
	table   string
	mapping *Mapping
}

// NewRewriter builds a rewriter for a table and its identifier mapping.
func NewRewriter(table string, mapping *Mapping) *Rewriter {
	return &Rewriter{table: table, mapping: mapping}
}

// Rewrite repairs the query in three passes: original column names are
// replaced with their sanitized forms when delimiter-bounded, generic
// placeholder table tokens become the real table name, and case-differing
// references to real columns are normalized to the stored casing.
func (r *Rewriter) Rewrite(query string) string {
	repaired := query

	for _, pair := range r.mapping.Pairs() {
		if pair.Original == pair.Sanitized {
			continue
		}
		repaired = replaceBounded(repaired, pair.Original, pair.Sanitized)
	}

	repaired = placeholderPattern.ReplaceAllString(repaired, r.table)

	for _, pair := range r.mapping.Pairs() {
		repaired = normalizeCase(repaired, pair.Sanitized)
	}

	return repaired
}

// replaceBounded substitutes sanitized for original wherever original appears
// delimited by the boundary class or the text edges.
func replaceBounded(text, original, sanitized string) string {
	pattern := regexp.MustCompile(
		`(^|` + columnBoundary + `)` + regexp.QuoteMeta(original) + `($|` + columnBoundary + `)`)
	// Run twice: adjacent matches share a boundary character, which a single
	// pass consumes.
	for i := 0; i < 2; i++ {
		text = pattern.ReplaceAllString(text, `${1}`+sanitized+`${2}`)
	}
	return text
}

// normalizeCase rewrites any case-differing whole-word occurrence of name to
// its exact stored casing.
func normalizeCase(text, name string) string {
	pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
	return pattern.ReplaceAllStringFunc(text, func(match string) string {
		return name
	})
}
