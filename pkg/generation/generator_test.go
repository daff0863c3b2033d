package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubiyabot/skillrt/pkg/llm"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

type fakeProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeProvider) Name() string      { return "fake" }
func (f *fakeProvider) Models() []string  { return []string{"fake-model"} }
func (f *fakeProvider) CountTokens(content string) (int, error) { return len(content) / 4, nil }

func (f *fakeProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	content := ""
	if idx < len(f.responses) {
		content = f.responses[idx]
	}
	return &llm.CompletionResponse{Content: content}, nil
}

func (f *fakeProvider) Stream(ctx context.Context, req *llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk)
	close(ch)
	return ch, nil
}

func genTestTool() Tool {
	return Tool{
		Definition: skill.ToolDefinition{
			Name:        "apply",
			Description: "Apply a manifest",
			Parameters: []skill.ToolParameter{
				{Name: "file", Type: skill.ParamString, Description: "manifest path", Required: true},
			},
		},
	}
}

func TestParseExamplesJSON(t *testing.T) {
	g := NewGenerator(&fakeProvider{}, "fake-model", DefaultConfig())
	response := `[{"command": "skill run apply --file=a.yaml", "explanation": "Apply a"}]`
	examples, err := g.parseExamples(response)
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "skill run apply --file=a.yaml", examples[0].Command)
}

func TestParseExamplesCodeBlock(t *testing.T) {
	g := NewGenerator(&fakeProvider{}, "fake-model", DefaultConfig())
	response := "Here are some examples:\n```json\n[{\"command\": \"skill run apply --file=a.yaml\", \"explanation\": \"Apply a\"}]\n```\nDone."
	examples, err := g.parseExamples(response)
	require.NoError(t, err)
	require.Len(t, examples, 1)
}

func TestExtractJSONArrayDirect(t *testing.T) {
	jsonStr, err := extractJSONArray(`[{"command":"x","explanation":"y"}]`)
	require.NoError(t, err)
	assert.Equal(t, `[{"command":"x","explanation":"y"}]`, jsonStr)
}

func TestExtractJSONArrayNoneFound(t *testing.T) {
	_, err := extractJSONArray("no array here")
	assert.Error(t, err)
}

func TestBuildPromptIncludesToolInfo(t *testing.T) {
	g := NewGenerator(&fakeProvider{}, "fake-model", DefaultConfig())
	prompt := g.buildPrompt(genTestTool())
	assert.Contains(t, prompt, "apply")
	assert.Contains(t, prompt, "Apply a manifest")
	assert.Contains(t, prompt, "--file")
}

func TestGenerateStreamEndToEnd(t *testing.T) {
	provider := &fakeProvider{
		responses: []string{`[{"command": "skill run apply --file=a.yaml", "explanation": "Apply a"}, {"command": "skill run apply --namespace=prod", "explanation": "Missing file param"}]`},
	}
	g := NewGenerator(provider, "fake-model", DefaultConfig())

	var kinds []EventKind
	var exampleCount int
	for ev := range g.GenerateStream(context.Background(), genTestTool(), 1, 1) {
		kinds = append(kinds, ev.Kind)
		if ev.Kind == EventExample {
			exampleCount++
		}
	}

	assert.Equal(t, EventStarted, kinds[0])
	assert.Equal(t, EventToolCompleted, kinds[len(kinds)-1])
	assert.Equal(t, 1, exampleCount)
}

func TestGenerateStreamRetriesOnError(t *testing.T) {
	provider := &fakeProvider{
		errs:      []error{assert.AnError, nil},
		responses: []string{"", `[{"command": "skill run apply --file=a.yaml", "explanation": "Apply a"}]`},
	}
	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	g := NewGenerator(provider, "fake-model", cfg)

	var sawError, sawCompleted bool
	for ev := range g.GenerateStream(context.Background(), genTestTool(), 1, 1) {
		if ev.Kind == EventError {
			sawError = true
		}
		if ev.Kind == EventToolCompleted {
			sawCompleted = true
		}
	}
	assert.False(t, sawError)
	assert.True(t, sawCompleted)
}

func TestGenerateStreamExhaustsRetries(t *testing.T) {
	provider := &fakeProvider{
		errs: []error{assert.AnError, assert.AnError},
	}
	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	g := NewGenerator(provider, "fake-model", cfg)

	var sawError bool
	for ev := range g.GenerateStream(context.Background(), genTestTool(), 1, 1) {
		if ev.Kind == EventError {
			sawError = true
		}
	}
	assert.True(t, sawError)
}

func TestGenerateCollectsExamples(t *testing.T) {
	provider := &fakeProvider{
		responses: []string{`[{"command": "skill run apply --file=a.yaml", "explanation": "Apply a"}]`},
	}
	g := NewGenerator(provider, "fake-model", DefaultConfig())
	examples, err := g.Generate(context.Background(), genTestTool())
	require.NoError(t, err)
	require.Len(t, examples, 1)
}
