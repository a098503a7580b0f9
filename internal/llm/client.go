// Package llm wraps model completion behind a small client interface so the
// extraction and advisory pipelines can be tested without a live provider.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"
)

// maxResponseBytes limits completion size before JSON parsing (64 KB).
const maxResponseBytes = 64 * 1024

// CompletionRequest describes a single completion call.
type CompletionRequest struct {
	// System is the system instruction. Optional.
	System string
	// User is the user prompt.
	User string
	// WantJSON asks the provider for a JSON-mode response when supported.
	WantJSON bool
	// Deterministic pins temperature to zero. Used for extraction and
	// feasibility checks where reproducibility matters more than variety.
	Deterministic bool
}

// Client produces a completion for a request. Implementations must be safe
// for concurrent use.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// GenkitClient runs completions through a genkit instance against a
// configured model.
type GenkitClient struct {
	g         *genkit.Genkit
	modelName string
}

// NewGenkitClient returns a client bound to the given model name, e.g.
// "googleai/gemini-2.0-flash".
func NewGenkitClient(g *genkit.Genkit, modelName string) *GenkitClient {
	return &GenkitClient{g: g, modelName: modelName}
}

// Complete implements Client.
func (c *GenkitClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithPrompt(req.User),
	}
	if req.System != "" {
		opts = append(opts, ai.WithSystem(req.System))
	}
	if req.WantJSON {
		opts = append(opts, ai.WithOutputFormat(ai.OutputFormatJSON))
	}
	if req.Deterministic {
		temp := float32(0)
		opts = append(opts, ai.WithConfig(&genai.GenerateContentConfig{Temperature: &temp}))
	}

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if len(text) > maxResponseBytes {
		return "", fmt.Errorf("completion response too large: %d bytes", len(text))
	}
	return text, nil
}
