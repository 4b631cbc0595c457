package sql

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	unsafeCharPattern   = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	repeatedUnderscores = regexp.MustCompile(`_+`)
	allDigitsPattern    = regexp.MustCompile(`^[0-9]+$`)
)

// SanitizeIdentifier canonicalizes a column name into a query-safe identifier:
// every character outside letters/digits/underscore becomes "_", runs of "_"
// collapse, leading/trailing "_" are trimmed, and an empty or all-digit result
// gets a "col_" prefix. Idempotent: sanitizing a sanitized name is a no-op.
func SanitizeIdentifier(name string) string {
	safe := unsafeCharPattern.ReplaceAllString(name, "_")
	safe = repeatedUnderscores.ReplaceAllString(safe, "_")
	safe = strings.Trim(safe, "_")

	if safe == "" || allDigitsPattern.MatchString(safe) {
		safe = "col_" + safe
	}

	return safe
}

// ColumnPair is one original/sanitized entry of a Mapping, in column order.
type ColumnPair struct {
	Original  string
	Sanitized string
}

// Mapping is the per-table bijection between original and sanitized column
// names. Built once at ingestion, immutable afterwards; the inverse direction
// relabels result columns back to their original names.
type Mapping struct {
	pairs      []ColumnPair
	toSafe     map[string]string
	toOriginal map[string]string
}

// NewMapping builds the bijection for a table's columns, in column order.
// Two distinct originals that sanitize to the same safe name are disambiguated
// with a numeric suffix ("_2", "_3", ...) assigned in column order, keeping
// the mapping injective.
func NewMapping(columns []string) *Mapping {
	m := &Mapping{
		pairs:      make([]ColumnPair, 0, len(columns)),
		toSafe:     make(map[string]string, len(columns)),
		toOriginal: make(map[string]string, len(columns)),
	}

	for _, original := range columns {
		safe := SanitizeIdentifier(original)
		if _, taken := m.toOriginal[safe]; taken {
			base := safe
			for n := 2; ; n++ {
				safe = base + "_" + strconv.Itoa(n)
				if _, taken := m.toOriginal[safe]; !taken {
					break
				}
			}
		}
		m.pairs = append(m.pairs, ColumnPair{Original: original, Sanitized: safe})
		m.toSafe[original] = safe
		m.toOriginal[safe] = original
	}

	return m
}

// IdentityMapping builds a mapping where every column maps to itself. Used
// for native sources whose identifiers were never renamed; the rewriter still
// case-normalizes references through it.
func IdentityMapping(columns []string) *Mapping {
	m := &Mapping{
		pairs:      make([]ColumnPair, 0, len(columns)),
		toSafe:     make(map[string]string, len(columns)),
		toOriginal: make(map[string]string, len(columns)),
	}
	for _, col := range columns {
		m.pairs = append(m.pairs, ColumnPair{Original: col, Sanitized: col})
		m.toSafe[col] = col
		m.toOriginal[col] = col
	}
	return m
}

// Sanitized returns the safe name for an original column name.
func (m *Mapping) Sanitized(original string) (string, bool) {
	safe, ok := m.toSafe[original]
	return safe, ok
}

// Original returns the original name for a sanitized column name.
func (m *Mapping) Original(sanitized string) (string, bool) {
	original, ok := m.toOriginal[sanitized]
	return original, ok
}

// Pairs returns the mapping entries in column order.
func (m *Mapping) Pairs() []ColumnPair {
	return m.pairs
}

// SanitizedColumns returns the safe names in column order.
func (m *Mapping) SanitizedColumns() []string {
	cols := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		cols[i] = p.Sanitized
	}
	return cols
}

// RelabelColumns maps sanitized result column names back to their originals.
// Names outside the mapping (computed columns, aggregates) pass through.
func (m *Mapping) RelabelColumns(names []string) []string {
	relabeled := make([]string, len(names))
	for i, name := range names {
		if original, ok := m.toOriginal[name]; ok {
			relabeled[i] = original
		} else {
			relabeled[i] = name
		}
	}
	return relabeled
}
