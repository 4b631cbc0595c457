package datasource

// IntSetting reads an integer-valued entry from an adapter config map.
// Values arriving through the serving surface are JSON-decoded, so numbers
// show up as float64; values set in-process are plain ints. Non-positive
// and missing values fall back.
func IntSetting(config map[string]any, key string, fallback int) int {
	switch v := config[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return fallback
}
