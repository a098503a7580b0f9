package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiboli/mofadvisor/internal/log"
)

// mockQuerier records calls and serves canned rows.
type mockQuerier struct {
	upserts    []upsertCall
	upsertErr  error
	searchRows []entryRow
	searchErr  error
	lastLimit  int
	count      int64
	deleted    bool
}

type upsertCall struct {
	id       string
	content  string
	metadata []byte
}

func (m *mockQuerier) UpsertEntry(_ context.Context, id, content string, _ pgvector.Vector, metadata []byte) error {
	m.upserts = append(m.upserts, upsertCall{id: id, content: content, metadata: metadata})
	return m.upsertErr
}

func (m *mockQuerier) SearchEntries(_ context.Context, _ pgvector.Vector, limit int) ([]entryRow, error) {
	m.lastLimit = limit
	return m.searchRows, m.searchErr
}

func (m *mockQuerier) CountEntries(_ context.Context) (int64, error) { return m.count, nil }

func (m *mockQuerier) DeleteAllEntries(_ context.Context) error {
	m.deleted = true
	return nil
}

// docText concatenates the text parts of a document, matching what
// ai.DocumentFromText stores.
func docText(d *ai.Document) string {
	var sb strings.Builder
	for _, p := range d.Content {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// mockEmbedder returns a fixed vector and records the embedded texts.
type mockEmbedder struct {
	texts []string
	err   error
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(_ api.Registry) {}

func (m *mockEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, doc := range req.Input {
		m.texts = append(m.texts, docText(doc))
	}
	vec := make([]float32, VectorDimension)
	vec[0] = 1
	return &ai.EmbedResponse{
		Embeddings: []*ai.Embedding{{Embedding: vec}},
	}, nil
}

func newTestStore(t *testing.T) (*Store, *mockQuerier, *mockEmbedder) {
	t.Helper()
	q := &mockQuerier{}
	e := &mockEmbedder{}
	s, err := New(q, e, log.NewNop())
	require.NoError(t, err)
	return s, q, e
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, &mockEmbedder{}, log.NewNop())
	assert.Error(t, err)

	_, err = New(&mockQuerier{}, nil, log.NewNop())
	assert.Error(t, err)
}

func TestStore_Add(t *testing.T) {
	s, q, e := newTestStore(t)

	doc := Document{
		ID:      "paper.md_HKUST-1",
		Content: "MOF Name: HKUST-1",
		Metadata: map[string]any{
			"mof_name": "HKUST-1",
			"solvent":  "DMF, H2O",
		},
	}
	require.NoError(t, s.Add(context.Background(), doc))

	require.Len(t, q.upserts, 1)
	assert.Equal(t, "paper.md_HKUST-1", q.upserts[0].id)
	assert.Equal(t, "MOF Name: HKUST-1", q.upserts[0].content)
	assert.JSONEq(t, `{"mof_name":"HKUST-1","solvent":"DMF, H2O"}`, string(q.upserts[0].metadata))

	require.Len(t, e.texts, 1)
	assert.Equal(t, doc.Content, e.texts[0], "the canonical text is what gets embedded")
}

func TestStore_Add_Validation(t *testing.T) {
	s, q, _ := newTestStore(t)

	assert.Error(t, s.Add(context.Background(), Document{Content: "text"}))
	assert.Error(t, s.Add(context.Background(), Document{ID: "id"}))
	assert.Empty(t, q.upserts)
}

func TestStore_Add_EmbedFailure(t *testing.T) {
	s, q, e := newTestStore(t)
	e.err = errors.New("quota exceeded")

	err := s.Add(context.Background(), Document{ID: "id", Content: "text"})
	assert.Error(t, err)
	assert.Empty(t, q.upserts, "nothing is written when embedding fails")
}

func TestStore_Search(t *testing.T) {
	s, q, e := newTestStore(t)
	q.searchRows = []entryRow{
		{ID: "a", Content: "entry a", Metadata: []byte(`{"mof_name":"A"}`), Similarity: 0.91},
		{ID: "b", Content: "entry b", Metadata: []byte(`{"mof_name":"B"}`), Similarity: 0.82},
	}

	results, err := s.Search(context.Background(), "copper with BTC", WithTopK(3))
	require.NoError(t, err)

	assert.Equal(t, 3, q.lastLimit)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Document.ID)
	assert.Equal(t, 0.91, results[0].Similarity)
	assert.Equal(t, map[string]any{"mof_name": "B"}, results[1].Document.Metadata)

	require.Len(t, e.texts, 1)
	assert.Equal(t, "copper with BTC", e.texts[0])
}

func TestStore_Search_DefaultTopK(t *testing.T) {
	s, q, _ := newTestStore(t)

	_, err := s.Search(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, q.lastLimit)

	_, err = s.Search(context.Background(), "query", WithTopK(0))
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, q.lastLimit, "non-positive k is ignored")
}

func TestStore_Search_EmptyQuery(t *testing.T) {
	s, _, _ := newTestStore(t)
	_, err := s.Search(context.Background(), "")
	assert.Error(t, err)
}

func TestStore_Search_NullMetadata(t *testing.T) {
	s, q, _ := newTestStore(t)
	q.searchRows = []entryRow{{ID: "a", Content: "entry a", Metadata: nil, Similarity: 0.5}}

	results, err := s.Search(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Document.Metadata)
}

func TestStore_Purge(t *testing.T) {
	s, q, _ := newTestStore(t)
	require.NoError(t, s.Purge(context.Background()))
	assert.True(t, q.deleted)
}

func TestStore_Count(t *testing.T) {
	s, q, _ := newTestStore(t)
	q.count = 42

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}
