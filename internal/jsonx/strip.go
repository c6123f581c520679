// Package jsonx holds pure transforms over decoded JSON trees
// (map[string]any, []any and scalars).
package jsonx

// StripField returns a copy of doc with every object key named field
// removed, at any depth. doc itself is never modified; scalars are shared.
func StripField(doc any, field string) any {
	switch v := doc.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			if k == field {
				continue
			}
			out[k] = StripField(child, field)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = StripField(child, field)
		}
		return out
	default:
		return v
	}
}
