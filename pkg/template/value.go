package template

import (
	"encoding/json"
	"reflect"
	"strconv"
)

// stringify renders a value for output. Structured values are JSON-encoded,
// the engine-wide convention for passing arrays/objects through string
// filters. nil and deferred values render as empty.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case deferredValue:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return ""
}

// truthy implements the engine's truthiness: nil, false, zero, empty string,
// and an empty sequence are falsy; everything else, including "0" and empty
// objects, is truthy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case deferredValue:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len() > 0
	}
	return true
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

// iterate converts a value into a sequence for the for statement. nil yields
// zero iterations; a string holding a JSON array is decoded; any other type
// is a render-time error reported by the caller.
func iterate(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case deferredValue:
		return nil, true
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case string:
		if items, ok := jsonArray(t); ok {
			return items, true
		}
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}
