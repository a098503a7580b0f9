package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiboli/mofadvisor/internal/knowledge"
	"github.com/shiboli/mofadvisor/internal/llm"
	"github.com/shiboli/mofadvisor/internal/log"
)

// fakeCompleter serves one canned identify response and per-snippet extract
// responses keyed by the snippet text.
type fakeCompleter struct {
	identify    map[string]any
	identifyErr error
	extract     map[string]map[string]any
	extractErr  map[string]error
	calls       []string
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, op string, req llm.CompletionRequest) (map[string]any, error) {
	f.calls = append(f.calls, op)
	switch op {
	case "identify":
		return f.identify, f.identifyErr
	case "extract":
		for snippet, err := range f.extractErr {
			if strings.Contains(req.User, snippet) {
				return nil, err
			}
		}
		for snippet, record := range f.extract {
			if strings.Contains(req.User, snippet) {
				return cloneRecord(record), nil
			}
		}
		return nil, errors.New("no scripted extraction")
	default:
		return nil, errors.New("unexpected op " + op)
	}
}

func cloneRecord(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// fakeStore records added documents and can fail specific IDs.
type fakeStore struct {
	docs    []knowledge.Document
	failIDs map[string]error
}

func (f *fakeStore) Add(_ context.Context, doc knowledge.Document) error {
	if err, ok := f.failIDs[doc.ID]; ok {
		return err
	}
	f.docs = append(f.docs, doc)
	return nil
}

// fakeLog is an in-memory completion log.
type fakeLog struct {
	processed map[string]bool
	markErr   error
}

func newFakeLog() *fakeLog { return &fakeLog{processed: map[string]bool{}} }

func (f *fakeLog) IsProcessed(_ context.Context, id string) (bool, error) {
	return f.processed[id], nil
}

func (f *fakeLog) MarkProcessed(_ context.Context, id string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.processed[id] = true
	return nil
}

func newTestPipeline(t *testing.T, c *fakeCompleter, s *fakeStore, l *fakeLog) *Pipeline {
	t.Helper()
	p, err := New(c, s, l, nil, log.NewNop())
	require.NoError(t, err)
	return p
}

func identifyResponse(candidates ...map[string]any) map[string]any {
	list := make([]any, len(candidates))
	for i, c := range candidates {
		list[i] = c
	}
	return map[string]any{"syntheses": list}
}

func TestPipeline_Process(t *testing.T) {
	completer := &fakeCompleter{
		identify: identifyResponse(
			map[string]any{"mof_name": "HKUST-1", "experimental_text": "copper nitrate in DMF"},
		),
		extract: map[string]map[string]any{
			"copper nitrate in DMF": {
				"mof_name":         "wrong name from stage two",
				"synthesis_method": "Solvothermal",
				"solvent":          []any{"DMF"},
			},
		},
	}
	store := &fakeStore{}
	tracker := newFakeLog()
	p := newTestPipeline(t, completer, store, tracker)

	report, err := p.Process(context.Background(), "paper.md", "full text")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Stored)
	assert.Equal(t, 0, report.Skipped)
	assert.True(t, report.Marked)
	assert.True(t, tracker.processed["paper.md"])

	require.Len(t, store.docs, 1)
	doc := store.docs[0]
	assert.Equal(t, "paper.md_HKUST-1", doc.ID)
	assert.Contains(t, doc.Content, "MOF Name: HKUST-1", "identification name overrides extraction name")
	assert.Equal(t, "HKUST-1", doc.Metadata["mof_name"])
	assert.Equal(t, "DMF", doc.Metadata["solvent"])
	assert.Equal(t, "None", doc.Metadata["yield"], "missing schema fields are filled before flattening")
}

func TestPipeline_Process_EntryIsolation(t *testing.T) {
	completer := &fakeCompleter{
		identify: identifyResponse(
			map[string]any{"mof_name": "MOF-A", "experimental_text": "snippet A"},
			map[string]any{"mof_name": "MOF-B", "experimental_text": "snippet B"},
			map[string]any{"mof_name": "MOF-C", "experimental_text": "snippet C"},
		),
		extract: map[string]map[string]any{
			"snippet A": {"synthesis_method": "Solvothermal"},
			"snippet C": {"synthesis_method": "Hydrothermal"},
		},
		extractErr: map[string]error{
			"snippet B": errors.New("model returned garbage"),
		},
	}
	store := &fakeStore{}
	tracker := newFakeLog()
	p := newTestPipeline(t, completer, store, tracker)

	report, err := p.Process(context.Background(), "paper.md", "full text")
	require.NoError(t, err, "one bad entry does not fail the document")

	assert.Equal(t, 2, report.Stored)
	assert.Equal(t, 1, report.Skipped)
	assert.True(t, report.Marked)

	require.Len(t, report.Entries, 3)
	assert.Equal(t, StatusStored, report.Entries[0].Status)
	assert.Equal(t, StatusSkipped, report.Entries[1].Status)
	assert.Equal(t, "MOF-B", report.Entries[1].MOFName)
	assert.NotEmpty(t, report.Entries[1].Reason)
	assert.Equal(t, StatusStored, report.Entries[2].Status)
}

func TestPipeline_Process_AlreadyProcessed(t *testing.T) {
	completer := &fakeCompleter{}
	tracker := newFakeLog()
	tracker.processed["paper.md"] = true
	p := newTestPipeline(t, completer, &fakeStore{}, tracker)

	_, err := p.Process(context.Background(), "paper.md", "full text")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Empty(t, completer.calls, "no model calls for a processed document")
}

func TestPipeline_Process_NoSyntheses(t *testing.T) {
	completer := &fakeCompleter{identify: map[string]any{"syntheses": []any{}}}
	tracker := newFakeLog()
	p := newTestPipeline(t, completer, &fakeStore{}, tracker)

	report, err := p.Process(context.Background(), "empty.md", "review article")
	require.NoError(t, err)

	assert.Equal(t, 0, report.Stored)
	assert.False(t, report.Marked, "empty documents stay retryable")
	assert.False(t, tracker.processed["empty.md"])
}

func TestPipeline_Process_AllEntriesSkipped(t *testing.T) {
	completer := &fakeCompleter{
		identify: identifyResponse(
			map[string]any{"mof_name": "MOF-A", "experimental_text": "snippet A"},
		),
		extractErr: map[string]error{"snippet A": errors.New("bad output")},
	}
	tracker := newFakeLog()
	p := newTestPipeline(t, completer, &fakeStore{}, tracker)

	report, err := p.Process(context.Background(), "paper.md", "full text")
	require.NoError(t, err)

	assert.Equal(t, 0, report.Stored)
	assert.Equal(t, 1, report.Skipped)
	assert.False(t, report.Marked)
}

func TestPipeline_Process_IdentifyFailure(t *testing.T) {
	completer := &fakeCompleter{identifyErr: errors.New("model unreachable")}
	p := newTestPipeline(t, completer, &fakeStore{}, newFakeLog())

	_, err := p.Process(context.Background(), "paper.md", "full text")
	assert.Error(t, err)
}

func TestPipeline_Process_MissingExperimentalText(t *testing.T) {
	completer := &fakeCompleter{
		identify: identifyResponse(
			map[string]any{"mof_name": "MOF-A"},
			map[string]any{"mof_name": "MOF-B", "experimental_text": "snippet B"},
		),
		extract: map[string]map[string]any{
			"snippet B": {"synthesis_method": "Solvothermal"},
		},
	}
	store := &fakeStore{}
	p := newTestPipeline(t, completer, store, newFakeLog())

	report, err := p.Process(context.Background(), "paper.md", "full text")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Stored)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, "no experimental text", report.Entries[0].Reason)
	require.Len(t, store.docs, 1)
	assert.Equal(t, "paper.md_MOF-B", store.docs[0].ID)
}

func TestPipeline_Process_UnnamedCandidateGetsOrdinalID(t *testing.T) {
	completer := &fakeCompleter{
		identify: identifyResponse(
			map[string]any{"experimental_text": "snippet A"},
		),
		extract: map[string]map[string]any{
			"snippet A": {"synthesis_method": "Solvothermal"},
		},
	}
	store := &fakeStore{}
	p := newTestPipeline(t, completer, store, newFakeLog())

	report, err := p.Process(context.Background(), "paper.md", "full text")
	require.NoError(t, err)

	require.Equal(t, 1, report.Stored)
	assert.Equal(t, "paper.md_s_1", store.docs[0].ID)
}

func TestPipeline_Process_StoreFailureSkipsEntry(t *testing.T) {
	completer := &fakeCompleter{
		identify: identifyResponse(
			map[string]any{"mof_name": "MOF-A", "experimental_text": "snippet A"},
		),
		extract: map[string]map[string]any{
			"snippet A": {"synthesis_method": "Solvothermal"},
		},
	}
	store := &fakeStore{failIDs: map[string]error{"paper.md_MOF-A": errors.New("db down")}}
	tracker := newFakeLog()
	p := newTestPipeline(t, completer, store, tracker)

	report, err := p.Process(context.Background(), "paper.md", "full text")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Stored)
	assert.Equal(t, 1, report.Skipped)
	assert.False(t, report.Marked)
}
