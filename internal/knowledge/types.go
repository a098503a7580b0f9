// Package knowledge stores extracted synthesis entries with vector search
// backed by PostgreSQL + pgvector.
package knowledge

import "time"

// VectorDimension is the embedding dimensionality. Must match the vector
// column width in the entries migration.
const VectorDimension = 768

// EmbedTimeout bounds a single embedding call.
const EmbedTimeout = 30 * time.Second

// Document is a stored synthesis entry: the canonical text rendering plus
// the flattened parameter record.
type Document struct {
	// ID is derived from the source document and MOF name. Inserting the
	// same ID again replaces the stored row.
	ID string
	// Content is the canonical text that was embedded.
	Content string
	// Metadata holds the flattened parameter record. Values are strings
	// after flattening, but the column is jsonb so any primitive survives.
	Metadata map[string]any
}

// Result is a search hit with its cosine similarity in [0, 1].
type Result struct {
	Document   Document
	Similarity float64
}
