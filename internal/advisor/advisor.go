// Package advisor answers structured synthesis requests with a two-gate
// query pipeline: a feasibility check gates the request, then retrieval
// decides between grounded and knowledge-free generation.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shiboli/mofadvisor/internal/knowledge"
	"github.com/shiboli/mofadvisor/internal/llm"
	"github.com/shiboli/mofadvisor/internal/log"
	"github.com/shiboli/mofadvisor/internal/synthesis"
)

// GenerateTopK is how many entries are retrieved for grounded generation.
const GenerateTopK = 3

// Completer is the structured-completion surface the advisor needs,
// satisfied by *llm.Gateway.
type Completer interface {
	CompleteJSON(ctx context.Context, op string, req llm.CompletionRequest) (map[string]any, error)
}

// Retriever is the search surface, satisfied by *knowledge.Store.
type Retriever interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Advisor orchestrates the query pipeline. Calls are per-request and
// stateless; Advisor is safe for concurrent use.
type Advisor struct {
	completer Completer
	retriever Retriever
	logger    log.Logger
}

// New creates an Advisor.
func New(completer Completer, retriever Retriever, logger log.Logger) (*Advisor, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{completer: completer, retriever: retriever, logger: logger}, nil
}

// CheckFeasibility asks whether the pairing is chemically plausible.
//
// The gate fails open: when the completion itself cannot be obtained, the
// request is treated as plausible with a diagnostic reasoning string. A
// parseable-but-malformed verdict propagates as an error instead, since
// that points at a prompt or model problem worth surfacing.
func (a *Advisor) CheckFeasibility(ctx context.Context, req synthesis.Request) (bool, string, error) {
	obj, err := a.completer.CompleteJSON(ctx, "feasibility", llm.CompletionRequest{
		System:        feasibilitySystemPrompt,
		User:          feasibilityUserPrompt(req.MetalSite, req.OrganicLinker),
		Deterministic: true,
	})
	if err != nil {
		if errors.Is(err, llm.ErrCompletionFailed) {
			a.logger.Warn("feasibility check unavailable, failing open", "error", err)
			return true, "Feasibility could not be verified: the plausibility check did not complete.", nil
		}
		return false, "", err
	}

	plausible, ok := obj["is_plausible"].(bool)
	if !ok {
		// Verdict missing or mistyped. Same fail-open stance as an
		// unreachable model.
		a.logger.Warn("feasibility verdict missing is_plausible, failing open")
		return true, "Feasibility could not be verified: the plausibility check returned no verdict.", nil
	}
	reasoning, _ := obj["reasoning"].(string)
	return plausible, reasoning, nil
}

// Retrieve returns the k nearest stored entries for the request. Empty
// results are not an error; they select fallback generation.
func (a *Advisor) Retrieve(ctx context.Context, req synthesis.Request, k int) ([]knowledge.Result, error) {
	results, err := a.retriever.Search(ctx, synthesis.QueryText(req), knowledge.WithTopK(k))
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	return results, nil
}

// Generate produces the structured answer, grounded in retrieved context
// when any exists and clearly labeled as knowledge-free otherwise.
func (a *Advisor) Generate(ctx context.Context, req synthesis.Request) (*synthesis.Answer, error) {
	results, err := a.Retrieve(ctx, req, GenerateTopK)
	if err != nil {
		return nil, err
	}

	query := synthesis.QueryText(req)
	var completion llm.CompletionRequest
	answer := &synthesis.Answer{}

	if len(results) > 0 {
		contexts := make([]string, len(results))
		sources := make([]map[string]any, len(results))
		for i, r := range results {
			contexts[i] = r.Document.Content
			sources[i] = r.Document.Metadata
		}
		completion = llm.CompletionRequest{
			System: groundedSystemPrompt,
			User:   groundedUserPrompt(query, contexts),
		}
		answer.Mode = synthesis.ModeRAG
		answer.Sources = sources
		a.logger.Info("generating grounded protocol", "retrieved", len(results))
	} else {
		completion = llm.CompletionRequest{
			System: fallbackSystemPrompt,
			User:   fallbackUserPrompt(query),
		}
		answer.Mode = synthesis.ModeFallback
		answer.Sources = []map[string]any{}
		a.logger.Info("knowledge base empty for request, generating fallback protocol")
	}

	obj, err := a.completer.CompleteJSON(ctx, "generate", completion)
	if err != nil {
		return nil, err
	}

	suggestion, ok := obj["suggested_protocol"].(map[string]any)
	if !ok {
		suggestion = obj
	}
	answer.Suggestion = suggestion
	return answer, nil
}

// Query is the top-level orchestration: feasibility first, then generation.
// An implausible request short-circuits with *ImplausibleError before any
// retrieval or generation cost is spent.
func (a *Advisor) Query(ctx context.Context, req synthesis.Request) (*synthesis.Answer, error) {
	plausible, reasoning, err := a.CheckFeasibility(ctx, req)
	if err != nil {
		return nil, err
	}
	if !plausible {
		a.logger.Warn("rejecting implausible request",
			"metal", req.MetalSite, "linker", req.OrganicLinker, "reasoning", reasoning)
		return nil, &ImplausibleError{Reasoning: reasoning}
	}
	return a.Generate(ctx, req)
}
