package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shiboli/mofadvisor/internal/advisor"
	"github.com/shiboli/mofadvisor/internal/llm"
	"github.com/shiboli/mofadvisor/internal/synthesis"
)

// maxSuggestBody bounds the suggest request body (16 KB).
const maxSuggestBody = 16 * 1024

// SynthesisAdvisor is the query surface, satisfied by *advisor.Advisor.
type SynthesisAdvisor interface {
	Query(ctx context.Context, req synthesis.Request) (*synthesis.Answer, error)
}

// SuggestHandler handles the protocol suggestion endpoint.
type SuggestHandler struct {
	advisor SynthesisAdvisor
	logger  *slog.Logger
}

// NewSuggestHandler creates a suggest handler.
func NewSuggestHandler(adv SynthesisAdvisor, logger *slog.Logger) *SuggestHandler {
	return &SuggestHandler{advisor: adv, logger: logger}
}

// RegisterRoutes registers the suggest route on the given mux.
func (h *SuggestHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/suggest", h.suggest)
}

// suggest answers a structured synthesis request.
//
// Status codes: 200 on success, 400 for bad input or a chemically
// implausible request, 502 when the model could not be reached, 500 for
// everything else. Implausible and unreachable are distinct, user-facing
// categories; both carry human-readable reasoning.
func (h *SuggestHandler) suggest(w http.ResponseWriter, r *http.Request) {
	var req synthesis.Request
	body := http.MaxBytesReader(w, r.Body, maxSuggestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with metal_site and organic_linker")
		return
	}

	req.MetalSite = strings.TrimSpace(req.MetalSite)
	req.OrganicLinker = strings.TrimSpace(req.OrganicLinker)
	if req.MetalSite == "" || req.OrganicLinker == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "metal_site and organic_linker are required")
		return
	}

	h.logger.Info("handling suggest request", "metal", req.MetalSite, "linker", req.OrganicLinker)

	answer, err := h.advisor.Query(r.Context(), req)
	if err != nil {
		var implausible *advisor.ImplausibleError
		switch {
		case errors.As(err, &implausible):
			writeError(w, http.StatusBadRequest, "chemically_implausible", implausible.Reasoning)
		case errors.Is(err, llm.ErrCompletionFailed):
			h.logger.Error("completion failed for suggest request", "error", err)
			writeError(w, http.StatusBadGateway, "completion_failed", "the language model could not be reached")
		default:
			h.logger.Error("suggest request failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "an internal server error occurred")
		}
		return
	}

	writeJSON(w, http.StatusOK, answer)
}
