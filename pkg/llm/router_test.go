package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider implements Provider for testing
type mockProvider struct {
	name   string
	models []string
	resp   *CompletionResponse
	err    error
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Models() []string {
	return m.models
}

func (m *mockProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.resp != nil {
		return m.resp, nil
	}
	return &CompletionResponse{
		ID:           "test-id",
		Model:        req.Model,
		Content:      "test response",
		FinishReason: "stop",
	}, nil
}

func (m *mockProvider) Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, error) {
	ch := make(chan StreamChunk, 1)
	ch <- StreamChunk{Content: "test", Done: true}
	close(ch)
	return ch, nil
}

func (m *mockProvider) CountTokens(content string) (int, error) {
	return len(content) / 4, nil // rough estimate
}

func TestMultiProvider_Creation(t *testing.T) {
	p1 := &mockProvider{name: "p1", models: []string{"m1"}}
	p2 := &mockProvider{name: "p2", models: []string{"m2"}}

	mp := NewMultiProvider(p1, p2)

	assert.Equal(t, "multi:p1", mp.Name())
	assert.Contains(t, mp.Models(), "m1")
	assert.Contains(t, mp.Models(), "m2")
}

func TestMultiProvider_SetPrimary(t *testing.T) {
	p1 := &mockProvider{name: "p1", models: []string{"m1"}}
	p2 := &mockProvider{name: "p2", models: []string{"m2"}}

	mp := NewMultiProvider(p1, p2)

	err := mp.SetPrimary(1)
	require.NoError(t, err)
	assert.Equal(t, "multi:p2", mp.Name())

	err = mp.SetPrimary(5) // invalid
	assert.Error(t, err)
}

func TestMultiProvider_Complete(t *testing.T) {
	p1 := &mockProvider{
		name:   "p1",
		models: []string{"m1"},
		resp:   &CompletionResponse{Content: "from p1"},
	}

	mp := NewMultiProvider(p1)
	ctx := context.Background()

	resp, err := mp.Complete(ctx, &CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from p1", resp.Content)
}

func TestMultiProvider_FallsBackWhenPrimaryFails(t *testing.T) {
	p1 := &mockProvider{name: "p1", models: []string{"m1"}, err: assert.AnError}
	p2 := &mockProvider{name: "p2", models: []string{"m2"}, resp: &CompletionResponse{Content: "from p2"}}

	mp := NewMultiProvider(p1, p2)
	ctx := context.Background()

	resp, err := mp.Complete(ctx, &CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from p2", resp.Content)
}

func TestMultiProvider_AllFail(t *testing.T) {
	p1 := &mockProvider{name: "p1", models: []string{"m1"}, err: assert.AnError}
	p2 := &mockProvider{name: "p2", models: []string{"m2"}, err: assert.AnError}

	mp := NewMultiProvider(p1, p2)
	ctx := context.Background()

	_, err := mp.Complete(ctx, &CompletionRequest{})
	assert.Error(t, err)
}
