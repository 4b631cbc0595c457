package schema

import (
	"strconv"
	"strings"
	"time"
)

// datetimeLayouts are the formats recognized during literal inference.
// Deliberately short: inference is best-effort over a bounded sample.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// InferValue classifies a single decoded value (e.g. from JSON) into the
// uniform type vocabulary.
func InferValue(v any) ValueType {
	switch val := v.(type) {
	case nil:
		return TypeUnknown
	case bool:
		return TypeBoolean
	case int, int32, int64:
		return TypeInteger
	case float64:
		// JSON decodes every number as float64; report whole values as INTEGER.
		if val == float64(int64(val)) {
			return TypeInteger
		}
		return TypeReal
	case float32:
		return TypeReal
	case string:
		return inferLiteral(val)
	case []any:
		return TypeArray
	case map[string]any:
		return TypeObject
	default:
		return TypeUnknown
	}
}

// inferLiteral classifies a raw text literal (e.g. a CSV cell).
func inferLiteral(s string) ValueType {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return TypeUnknown
	}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return TypeInteger
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return TypeReal
	}
	switch strings.ToLower(trimmed) {
	case "true", "false":
		return TypeBoolean
	}
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, trimmed); err == nil {
			return TypeDatetime
		}
	}
	return TypeText
}

// InferColumn infers a column's type and nullability from a bounded sample of
// values. Mixed observations are reported as a union; an all-null sample is
// UNKNOWN and nullable.
func InferColumn(values []any) (typ string, nullable bool) {
	for _, v := range values {
		if v == nil {
			nullable = true
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			nullable = true
			continue
		}
		typ = UnionType(typ, InferValue(v))
	}
	if typ == "" {
		return string(TypeUnknown), true
	}
	return typ, nullable
}
