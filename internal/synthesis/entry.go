package synthesis

import (
	"fmt"
	"strconv"
	"strings"
)

// unsafeIDChars are characters replaced when a MOF name is folded into an
// entry identifier: whitespace plus anything unsafe in paths or URLs.
const unsafeIDChars = " \t\n\r/\\:*?\"<>|"

// EntryID derives the storage identifier for an extracted entry. Identity
// is the document plus the Stage-1 MOF name; when the model supplied no
// name, position in the document is used instead so entries stay distinct.
func EntryID(documentID, mofName string, ordinal int) string {
	name := strings.TrimSpace(mofName)
	if name == "" {
		name = "s_" + strconv.Itoa(ordinal+1)
	}
	var b strings.Builder
	b.Grow(len(documentID) + 1 + len(name))
	b.WriteString(documentID)
	b.WriteByte('_')
	for _, r := range name {
		if strings.ContainsRune(unsafeIDChars, r) {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CanonicalText renders the entry record into the fixed text form that is
// embedded and stored as the retrievable document. Ingestion and retrieval
// must agree on this rendering for similarity scores to be meaningful.
func CanonicalText(record map[string]any) string {
	return fmt.Sprintf(`MOF Name: %s
Synthesis Method: %s
Metal Source: %s
Organic Linker: %s
Solvent: %s
Temperature: %s C
Time: %s hours
Notes: %s`,
		fieldText(record, "mof_name"),
		fieldText(record, "synthesis_method"),
		nestedText(record, "metal_source", "formula"),
		nestedText(record, "organic_linker", "name"),
		listText(record, "solvent"),
		fieldText(record, "temperature_celsius"),
		fieldText(record, "time_hours"),
		fieldText(record, "notes"),
	)
}

// QueryText renders a synthesis request into the canonical query string
// used for retrieval embedding.
func QueryText(req Request) string {
	return fmt.Sprintf("A synthesis method for a MOF with metal site %s and organic linker %s",
		req.MetalSite, req.OrganicLinker)
}

// fieldText formats a top-level record value, with "N/A" for absent or
// null fields. Whole-valued JSON numbers render without a decimal point.
func fieldText(record map[string]any, key string) string {
	return valueText(record[key])
}

func nestedText(record map[string]any, key, subKey string) string {
	if nested, ok := record[key].(map[string]any); ok {
		return valueText(nested[subKey])
	}
	return "N/A"
}

func listText(record map[string]any, key string) string {
	switch v := record[key].(type) {
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(v, ", ")
	case nil:
		return ""
	default:
		return valueText(v)
	}
}

func valueText(v any) string {
	switch t := v.(type) {
	case nil:
		return "N/A"
	case string:
		if t == "" {
			return "N/A"
		}
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
