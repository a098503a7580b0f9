package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/shiboli/mofadvisor/internal/jsonrepair"
	"github.com/shiboli/mofadvisor/internal/log"
)

// ErrCompletionFailed marks provider-side completion failures. Callers use
// errors.Is to distinguish an unreachable model from malformed output.
var ErrCompletionFailed = errors.New("completion failed")

// CompletionError wraps a provider failure with the operation that hit it.
type CompletionError struct {
	Op    string
	cause error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s: completion failed: %v", e.Op, e.cause)
}

func (e *CompletionError) Unwrap() error { return e.cause }

// Is reports true for ErrCompletionFailed so sentinel checks work through
// wrapping.
func (e *CompletionError) Is(target error) bool { return target == ErrCompletionFailed }

// Gateway layers JSON handling on top of a Client: every structured call
// goes through completion, fence stripping and repair-aware parsing in one
// place.
type Gateway struct {
	client Client
	logger log.Logger
}

// NewGateway returns a gateway over the given client.
func NewGateway(client Client, logger log.Logger) *Gateway {
	return &Gateway{client: client, logger: logger}
}

// Complete passes the request straight through to the underlying client.
// A client failure and an empty response both surface as *CompletionError:
// a provider that answers with nothing is as unavailable as one that does
// not answer at all.
func (g *Gateway) Complete(ctx context.Context, op string, req CompletionRequest) (string, error) {
	text, err := g.client.Complete(ctx, req)
	if err != nil {
		return "", &CompletionError{Op: op, cause: err}
	}
	if text == "" {
		return "", &CompletionError{Op: op, cause: errors.New("empty response")}
	}
	return text, nil
}

// CompleteJSON runs a completion expected to yield a single JSON object and
// parses it, repairing common escape damage in model output. A provider
// failure surfaces as *CompletionError; unparseable output surfaces as the
// parser's *jsonrepair.MalformedError with the raw text attached.
func (g *Gateway) CompleteJSON(ctx context.Context, op string, req CompletionRequest) (map[string]any, error) {
	req.WantJSON = true
	text, err := g.Complete(ctx, op, req)
	if err != nil {
		return nil, err
	}

	obj, err := jsonrepair.Parse(text)
	if err != nil {
		g.logger.Warn("model returned malformed JSON", "op", op, "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return obj, nil
}
