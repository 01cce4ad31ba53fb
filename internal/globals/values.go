package globals

import (
	"encoding/json"
	"fmt"
)

// Normalize walks a decoded value and converts it into the types templates
// expect. json.Number becomes int64 when integral and float64 otherwise, so
// that 3 renders as "3" rather than "3.0". Maps with non-string keys are
// re-keyed by their string form. Containers are modified in place.
func Normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, e := range t {
			t[k] = Normalize(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = Normalize(e)
		}
		return t
	}
	return v
}
