// Package schema provides the uniform schema view built across heterogeneous
// origins: ordered tables, ordered columns, best-effort inferred types.
package schema

import "sort"

// ValueType is the uniform type vocabulary reported for columns.
type ValueType string

const (
	TypeInteger  ValueType = "INTEGER"
	TypeReal     ValueType = "REAL"
	TypeBoolean  ValueType = "BOOLEAN"
	TypeText     ValueType = "TEXT"
	TypeDatetime ValueType = "DATETIME"
	TypeArray    ValueType = "ARRAY"
	TypeObject   ValueType = "OBJECT"
	TypeMixed    ValueType = "MIXED"
	TypeUnknown  ValueType = "UNKNOWN"
)

// Column describes one column or document field.
type Column struct {
	// Name is the original name as it appears in the source, before any
	// sanitization.
	Name string `json:"name"`

	// Type is a ValueType, or a "/"-joined union such as "INTEGER/TEXT" when a
	// document sample observed more than one type. Ambiguity is surfaced,
	// never silently resolved.
	Type string `json:"type"`

	Nullable bool `json:"nullable"`

	// SampleValues holds a small bounded sample of literal values.
	SampleValues []any `json:"sample_values,omitempty"`
}

// Table describes one table, file, or collection.
type Table struct {
	Name     string   `json:"name"`
	Columns  []Column `json:"columns"`
	RowCount int64    `json:"row_count"`
}

// Descriptor is the uniform schema view for one datasource. Table order and
// column order are the source's own; table names are unique per source.
type Descriptor struct {
	Tables []Table `json:"tables"`
}

// Table returns the named table, or false if absent.
func (d *Descriptor) Table(name string) (*Table, bool) {
	for i := range d.Tables {
		if d.Tables[i].Name == name {
			return &d.Tables[i], true
		}
	}
	return nil, false
}

// TableNames returns table names in source order.
func (d *Descriptor) TableNames() []string {
	names := make([]string, len(d.Tables))
	for i, t := range d.Tables {
		names[i] = t.Name
	}
	return names
}

// TotalRows sums row counts across all tables.
func (d *Descriptor) TotalRows() int64 {
	var total int64
	for _, t := range d.Tables {
		total += t.RowCount
	}
	return total
}

// UnionType merges a newly observed type into an existing (possibly already
// unioned) type string. The result lists distinct members sorted, joined with
// "/", so repeated introspection yields identical descriptors.
func UnionType(existing string, observed ValueType) string {
	if existing == "" {
		return string(observed)
	}

	members := map[string]bool{string(observed): true}
	for _, m := range splitUnion(existing) {
		members[m] = true
	}
	if len(members) == 1 {
		return string(observed)
	}

	sorted := make([]string, 0, len(members))
	for m := range members {
		sorted = append(sorted, m)
	}
	sort.Strings(sorted)

	joined := sorted[0]
	for _, m := range sorted[1:] {
		joined += "/" + m
	}
	return joined
}

func splitUnion(t string) []string {
	var members []string
	start := 0
	for i := 0; i < len(t); i++ {
		if t[i] == '/' {
			members = append(members, t[start:i])
			start = i + 1
		}
	}
	return append(members, t[start:])
}
