// Package synthesis defines the domain model for MOF synthesis knowledge:
// the records extracted from papers, the identifiers and canonical text
// renderings derived from them, and the request/answer shapes of the
// suggestion pipeline.
package synthesis

// GenerationMode tags how a protocol answer was produced.
type GenerationMode string

const (
	// ModeRAG marks answers grounded in retrieved knowledge entries.
	ModeRAG GenerationMode = "RAG_BASED"

	// ModeFallback marks answers produced from general model knowledge
	// because no relevant entries were found.
	ModeFallback GenerationMode = "LLM_FALLBACK"
)

// Candidate is one synthesis procedure identified by the first extraction
// stage: the MOF's name and the verbatim experimental snippet describing
// its synthesis. Candidates are transient; they exist only within a single
// ingestion run.
type Candidate struct {
	MOFName          string `json:"mof_name"`
	ExperimentalText string `json:"experimental_text"`
}

// Request is a synthesis suggestion query. Stateless, created per call,
// never persisted.
type Request struct {
	MetalSite     string `json:"metal_site"`
	OrganicLinker string `json:"organic_linker"`
}

// Answer is a structured protocol suggestion. Sources is non-empty only
// when Mode is ModeRAG.
type Answer struct {
	Mode       GenerationMode   `json:"generation_mode"`
	Suggestion map[string]any   `json:"suggestion"`
	Sources    []map[string]any `json:"sources"`
}

// entrySchemaKeys are the top-level fields of a knowledge entry record.
// The schema is total: every key is present in a normalized record even
// when its value is null.
var entrySchemaKeys = []string{
	"mof_name",
	"metal_source",
	"organic_linker",
	"synthesis_method",
	"solvent",
	"temperature_celsius",
	"time_hours",
	"modulator",
	"yield",
	"notes",
}

// nestedSchemaKeys maps nested entry fields to their sub-keys.
var nestedSchemaKeys = map[string][]string{
	"metal_source":   {"formula", "molar_amount"},
	"organic_linker": {"name", "molar_amount"},
}

// Normalize returns a copy of record with every schema field present,
// filling absent fields (and absent sub-fields of nested objects) with
// explicit nulls. Extra keys the model emitted are preserved.
func Normalize(record map[string]any) map[string]any {
	out := make(map[string]any, len(entrySchemaKeys))
	for k, v := range record {
		out[k] = v
	}
	for _, key := range entrySchemaKeys {
		if _, ok := out[key]; !ok {
			out[key] = nil
		}
	}
	for key, subKeys := range nestedSchemaKeys {
		nested, ok := out[key].(map[string]any)
		if !ok {
			nested = make(map[string]any, len(subKeys))
		}
		for _, sub := range subKeys {
			if _, ok := nested[sub]; !ok {
				nested[sub] = nil
			}
		}
		out[key] = nested
	}
	return out
}
