// Package ingest turns raw paper text into stored synthesis entries.
//
// Processing is two-staged: a first model pass identifies every distinct
// synthesis procedure in the document, then each identified snippet gets its
// own extraction pass. Failures are isolated per entry, and a document is
// only recorded as processed once at least one of its entries is stored.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/shiboli/mofadvisor/internal/knowledge"
	"github.com/shiboli/mofadvisor/internal/llm"
	"github.com/shiboli/mofadvisor/internal/log"
	"github.com/shiboli/mofadvisor/internal/synthesis"
)

// ErrAlreadyProcessed is returned by Process when the tracker already
// records the document.
var ErrAlreadyProcessed = errors.New("document already processed")

// Completer is the structured-completion surface the pipeline needs,
// satisfied by *llm.Gateway.
type Completer interface {
	CompleteJSON(ctx context.Context, op string, req llm.CompletionRequest) (map[string]any, error)
}

// EntryStore persists extracted entries, satisfied by *knowledge.Store.
type EntryStore interface {
	Add(ctx context.Context, doc knowledge.Document) error
}

// CompletionLog records which documents have finished, satisfied by
// *tracker.Tracker.
type CompletionLog interface {
	IsProcessed(ctx context.Context, documentID string) (bool, error)
	MarkProcessed(ctx context.Context, documentID string) error
}

// Pipeline processes one document at a time. Run one pipeline per worker;
// the embedded limiter paces extraction calls against provider rate limits.
type Pipeline struct {
	completer Completer
	store     EntryStore
	tracker   CompletionLog
	limiter   *rate.Limiter
	logger    log.Logger
}

// New creates a pipeline. A nil limiter disables pacing.
func New(completer Completer, store EntryStore, tracker CompletionLog, limiter *rate.Limiter, logger log.Logger) (*Pipeline, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("completion log is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		completer: completer,
		store:     store,
		tracker:   tracker,
		limiter:   limiter,
		logger:    logger,
	}, nil
}

// Process runs the two-stage extraction for one document.
//
// An already-processed document returns ErrAlreadyProcessed without touching
// the model. A Stage-1 failure aborts the document. Stage-2 failures skip
// the affected entry only. The document is marked processed when at least
// one entry was stored, so an all-skip run stays retryable.
func (p *Pipeline) Process(ctx context.Context, documentID, content string) (*Report, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document ID is required")
	}

	done, err := p.tracker.IsProcessed(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("checking completion log: %w", err)
	}
	if done {
		return nil, fmt.Errorf("%s: %w", documentID, ErrAlreadyProcessed)
	}

	report := &Report{DocumentID: documentID}

	candidates, err := p.identify(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("identifying syntheses in %s: %w", documentID, err)
	}
	if len(candidates) == 0 {
		p.logger.Warn("no syntheses found", "document", documentID)
		return report, nil
	}
	p.logger.Info("identified syntheses", "document", documentID, "count", len(candidates))

	for i, cand := range candidates {
		entryID := synthesis.EntryID(documentID, cand.MOFName, i)
		if cand.ExperimentalText == "" {
			report.skipped(entryID, cand.MOFName, "no experimental text")
			continue
		}

		if err := p.pace(ctx); err != nil {
			return nil, err
		}

		if err := p.extractAndStore(ctx, documentID, entryID, cand); err != nil {
			p.logger.Warn("skipping entry", "entry", entryID, "error", err)
			report.skipped(entryID, cand.MOFName, err.Error())
			continue
		}
		report.stored(entryID, cand.MOFName)
	}

	if report.Stored > 0 {
		if err := p.tracker.MarkProcessed(ctx, documentID); err != nil {
			return report, fmt.Errorf("marking %s processed: %w", documentID, err)
		}
		report.Marked = true
	}

	p.logger.Info("document processed",
		"document", documentID, "stored", report.Stored, "skipped", report.Skipped, "marked", report.Marked)
	return report, nil
}

// identify runs Stage 1 and decodes the candidate list.
func (p *Pipeline) identify(ctx context.Context, content string) ([]synthesis.Candidate, error) {
	obj, err := p.completer.CompleteJSON(ctx, "identify", llm.CompletionRequest{
		System:        identifySystemPrompt,
		User:          identifyUserPrompt(content),
		Deterministic: true,
	})
	if err != nil {
		return nil, err
	}

	raw, ok := obj["syntheses"].([]any)
	if !ok {
		return nil, nil
	}

	candidates := make([]synthesis.Candidate, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var c synthesis.Candidate
		c.MOFName, _ = m["mof_name"].(string)
		c.ExperimentalText, _ = m["experimental_text"].(string)
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// extractAndStore runs Stage 2 for one candidate and writes the result.
func (p *Pipeline) extractAndStore(ctx context.Context, documentID, entryID string, cand synthesis.Candidate) error {
	record, err := p.completer.CompleteJSON(ctx, "extract", llm.CompletionRequest{
		System:        extractSystemPrompt,
		User:          extractUserPrompt(cand.ExperimentalText),
		Deterministic: true,
	})
	if err != nil {
		return err
	}

	// The Stage-1 name is authoritative: it names the entry, so the stored
	// record must carry it too even when Stage 2 disagrees.
	if cand.MOFName != "" {
		record["mof_name"] = cand.MOFName
	}
	record = synthesis.Normalize(record)

	return p.store.Add(ctx, knowledge.Document{
		ID:       entryID,
		Content:  synthesis.CanonicalText(record),
		Metadata: synthesis.Flatten(record),
	})
}

func (p *Pipeline) pace(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return nil
}
