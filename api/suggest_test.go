package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiboli/mofadvisor/internal/advisor"
	"github.com/shiboli/mofadvisor/internal/llm"
	"github.com/shiboli/mofadvisor/internal/log"
	"github.com/shiboli/mofadvisor/internal/synthesis"
)

// fakeAdvisor returns a canned answer or error.
type fakeAdvisor struct {
	answer *synthesis.Answer
	err    error
	last   synthesis.Request
}

func (f *fakeAdvisor) Query(_ context.Context, req synthesis.Request) (*synthesis.Answer, error) {
	f.last = req
	return f.answer, f.err
}

func postSuggest(t *testing.T, h *SuggestHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/suggest", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.suggest(w, req)
	return w
}

func TestSuggest(t *testing.T) {
	adv := &fakeAdvisor{answer: &synthesis.Answer{
		Mode:       synthesis.ModeRAG,
		Suggestion: map[string]any{"metal_source_suggestion": "Cu(NO3)2·3H2O"},
		Sources:    []map[string]any{{"mof_name": "HKUST-1"}},
	}}
	h := NewSuggestHandler(adv, log.NewNop())

	w := postSuggest(t, h, `{"metal_site": "Copper", "organic_linker": "BTC"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Copper", adv.last.MetalSite)

	var answer synthesis.Answer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answer))
	assert.Equal(t, synthesis.ModeRAG, answer.Mode)
	assert.Len(t, answer.Sources, 1)
}

func TestSuggest_InvalidBody(t *testing.T) {
	h := NewSuggestHandler(&fakeAdvisor{}, log.NewNop())

	w := postSuggest(t, h, "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSuggest_MissingFields(t *testing.T) {
	adv := &fakeAdvisor{}
	h := NewSuggestHandler(adv, log.NewNop())

	w := postSuggest(t, h, `{"metal_site": "   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "organic_linker")
}

func TestSuggest_Implausible(t *testing.T) {
	adv := &fakeAdvisor{err: &advisor.ImplausibleError{Reasoning: "methane has no donor atoms"}}
	h := NewSuggestHandler(adv, log.NewNop())

	w := postSuggest(t, h, `{"metal_site": "Sodium", "organic_linker": "Methane"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "chemically_implausible", resp.Error)
	assert.Contains(t, resp.Message, "donor atoms")
}

func TestSuggest_CompletionFailure(t *testing.T) {
	adv := &fakeAdvisor{err: &llm.CompletionError{Op: "generate"}}
	h := NewSuggestHandler(adv, log.NewNop())

	w := postSuggest(t, h, `{"metal_site": "Copper", "organic_linker": "BTC"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSuggest_InternalError(t *testing.T) {
	adv := &fakeAdvisor{err: errors.New("database exploded")}
	h := NewSuggestHandler(adv, log.NewNop())

	w := postSuggest(t, h, `{"metal_site": "Copper", "organic_linker": "BTC"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "database exploded", "internal details stay out of responses")
}
