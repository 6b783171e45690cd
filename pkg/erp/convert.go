package erp

// convert.go holds the field-extraction helpers that replace the
// original's pandas-based column access: Odoo's XML-RPC responses
// decode into map[string]any/[]any, so every accessor below is
// defensive about absent or mistyped fields rather than panicking.

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func intField(row map[string]any, key string) int {
	n, _ := toInt(row[key])
	return n
}

func stringField(row map[string]any, key string) string {
	s, _ := row[key].(string)
	return s
}

func floatField(row map[string]any, key string) float64 {
	switch n := row[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func boolField(row map[string]any, key string) bool {
	b, _ := row[key].(bool)
	return b
}

// many2oneID extracts the numeric id from an Odoo many2one field, which
// XML-RPC encodes as a two-element [id, display_name] array, or as the
// literal bool false when unset.
func many2oneID(v any) int {
	pair, ok := v.([]any)
	if !ok || len(pair) == 0 {
		return 0
	}
	id, _ := toInt(pair[0])
	return id
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
