package synthesis

import (
	"fmt"
	"strconv"
	"strings"
)

// Flatten converts a nested entry record into a flat mapping whose values
// are restricted to primitives, the shape the vector store accepts as
// metadata.
//
// Nested objects are inlined as "key_subkey"; lists are joined with ", "
// (nil or empty lists become the empty string); nulls become the literal
// string "None" and booleans their string form. Flatten is pure and total:
// it accepts any decoded entry record, never fails, and is stable under
// repeated application.
func Flatten(record map[string]any) map[string]any {
	flat := make(map[string]any, len(record))
	for key, value := range record {
		switch v := value.(type) {
		case map[string]any:
			for subKey, subValue := range v {
				flat[key+"_"+subKey] = subValue
			}
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, stringify(item))
			}
			flat[key] = strings.Join(parts, ", ")
		case []string:
			flat[key] = strings.Join(v, ", ")
		default:
			flat[key] = value
		}
	}

	sanitized := make(map[string]any, len(flat))
	for key, value := range flat {
		switch v := value.(type) {
		case nil:
			sanitized[key] = "None"
		case bool:
			sanitized[key] = strconv.FormatBool(v)
		case string, int, int32, int64, float32, float64:
			sanitized[key] = v
		default:
			sanitized[key] = fmt.Sprint(v)
		}
	}
	return sanitized
}

// stringify renders a list element for joining. Null elements keep the
// same "None" rendering used for null fields.
func stringify(v any) string {
	if v == nil {
		return "None"
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
