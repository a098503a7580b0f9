package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"

	"github.com/shiboli/mofadvisor/internal/log"
)

// Store manages synthesis entries with vector search. It handles embedding
// generation on both the write and the query path so the two always agree.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier  Querier
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a Store.
func New(querier Querier, embedder ai.Embedder, logger log.Logger) (*Store, error) {
	if querier == nil {
		return nil, fmt.Errorf("querier is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{querier: querier, embedder: embedder, logger: logger}, nil
}

// embed generates a vector embedding for the given text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	dim := int32(VectorDimension)
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding response")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// Add embeds the document content and upserts the row. A repeated ID
// replaces the stored entry, which is what makes re-ingestion idempotent.
func (s *Store) Add(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if doc.Content == "" {
		return fmt.Errorf("document content is required")
	}

	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()

	vec, err := s.embed(embedCtx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %s: %w", doc.ID, err)
	}

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata for %s: %w", doc.ID, err)
	}

	if err := s.querier.UpsertEntry(ctx, doc.ID, doc.Content, vec, metadata); err != nil {
		return err
	}
	s.logger.Debug("stored entry", "id", doc.ID)
	return nil
}

// SearchOption configures a search call.
type SearchOption func(*searchOpts)

type searchOpts struct {
	topK int
}

// DefaultTopK is the number of results returned when no option overrides it.
const DefaultTopK = 5

// WithTopK overrides the number of results returned. Values below one are
// ignored.
func WithTopK(k int) SearchOption {
	return func(o *searchOpts) {
		if k > 0 {
			o.topK = k
		}
	}
}

// Search embeds the query text and returns the nearest entries ordered by
// descending similarity.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	options := searchOpts{topK: DefaultTopK}
	for _, opt := range opts {
		opt(&options)
	}

	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()

	vec, err := s.embed(embedCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.querier.SearchEntries(ctx, vec, options.topK)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(rows))
	for _, r := range rows {
		metadata, err := decodeMetadata(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", r.ID, err)
		}
		results = append(results, Result{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: metadata,
			},
			Similarity: r.Similarity,
		})
	}
	return results, nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.querier.CountEntries(ctx)
}

// Purge removes all stored entries. Used by forced re-ingestion.
func (s *Store) Purge(ctx context.Context) error {
	if err := s.querier.DeleteAllEntries(ctx); err != nil {
		return err
	}
	s.logger.Info("purged all entries")
	return nil
}
