package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiboli/mofadvisor/internal/jsonrepair"
	"github.com/shiboli/mofadvisor/internal/log"
)

// scriptedClient returns canned responses in order and records requests.
type scriptedClient struct {
	responses []string
	err       error
	calls     []CompletionRequest
}

func (c *scriptedClient) Complete(_ context.Context, req CompletionRequest) (string, error) {
	c.calls = append(c.calls, req)
	if c.err != nil {
		return "", c.err
	}
	i := len(c.calls) - 1
	if i >= len(c.responses) {
		return "", errors.New("no scripted response")
	}
	return c.responses[i], nil
}

func TestGateway_CompleteJSON(t *testing.T) {
	client := &scriptedClient{responses: []string{"```json\n{\"is_plausible\": true}\n```"}}
	gw := NewGateway(client, log.NewNop())

	obj, err := gw.CompleteJSON(context.Background(), "feasibility", CompletionRequest{User: "check"})
	require.NoError(t, err)
	assert.Equal(t, true, obj["is_plausible"])

	require.Len(t, client.calls, 1)
	assert.True(t, client.calls[0].WantJSON, "JSON mode is forced for structured calls")
}

func TestGateway_CompleteJSON_ProviderFailure(t *testing.T) {
	client := &scriptedClient{err: errors.New("model unreachable")}
	gw := NewGateway(client, log.NewNop())

	_, err := gw.CompleteJSON(context.Background(), "identify", CompletionRequest{User: "extract"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompletionFailed)

	var ce *CompletionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "identify", ce.Op)
}

func TestGateway_CompleteJSON_EmptyResponse(t *testing.T) {
	client := &scriptedClient{responses: []string{""}}
	gw := NewGateway(client, log.NewNop())

	_, err := gw.CompleteJSON(context.Background(), "feasibility", CompletionRequest{User: "check"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompletionFailed, "an empty answer is a provider failure, not malformed output")
	assert.NotErrorIs(t, err, jsonrepair.ErrMalformed)

	var ce *CompletionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "feasibility", ce.Op)
}

func TestGateway_CompleteJSON_MalformedOutput(t *testing.T) {
	client := &scriptedClient{responses: []string{"not json at all"}}
	gw := NewGateway(client, log.NewNop())

	_, err := gw.CompleteJSON(context.Background(), "extract", CompletionRequest{User: "extract"})
	require.Error(t, err)
	assert.ErrorIs(t, err, jsonrepair.ErrMalformed)
	assert.NotErrorIs(t, err, ErrCompletionFailed)

	var me *jsonrepair.MalformedError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "not json at all", me.Raw)
}

func TestGateway_Complete(t *testing.T) {
	client := &scriptedClient{responses: []string{"free text answer"}}
	gw := NewGateway(client, log.NewNop())

	text, err := gw.Complete(context.Background(), "generate", CompletionRequest{User: "describe"})
	require.NoError(t, err)
	assert.Equal(t, "free text answer", text)
	assert.False(t, client.calls[0].WantJSON)
}

func TestGateway_Complete_EmptyResponse(t *testing.T) {
	client := &scriptedClient{responses: []string{""}}
	gw := NewGateway(client, log.NewNop())

	_, err := gw.Complete(context.Background(), "generate", CompletionRequest{User: "describe"})
	assert.ErrorIs(t, err, ErrCompletionFailed)
}

func TestGateway_Complete_Failure(t *testing.T) {
	client := &scriptedClient{err: errors.New("quota exceeded")}
	gw := NewGateway(client, log.NewNop())

	_, err := gw.Complete(context.Background(), "generate", CompletionRequest{User: "describe"})
	assert.ErrorIs(t, err, ErrCompletionFailed)
}
