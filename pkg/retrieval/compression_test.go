package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTool() ToolDocument {
	return ToolDocument{
		ToolID:      "kubernetes@default/list_pods",
		Name:        "list_pods",
		Description: "List all pods in a Kubernetes namespace. Returns pod names, status, and resource usage. Use this to monitor cluster workloads.",
		Parameters: []ToolParameterInput{
			{Name: "namespace", ParamType: "string", Required: true, Description: "The Kubernetes namespace to query. Use 'default' for the default namespace or specify a custom namespace name."},
			{Name: "label_selector", ParamType: "string", Required: false, Description: "Optional label selector to filter pods. Format: 'key=value' or 'key in (v1,v2)'."},
		},
		Example:        "list_pods(namespace='production', label_selector='app=web')",
		RelevanceScore: 0.95,
	}
}

func TestParseCompressionStrategy(t *testing.T) {
	s, err := ParseCompressionStrategy("extractive")
	require.NoError(t, err)
	assert.Equal(t, StrategyExtractive, s)

	s, err = ParseCompressionStrategy("template-based")
	require.NoError(t, err)
	assert.Equal(t, StrategyTemplate, s)

	_, err = ParseCompressionStrategy("bogus")
	assert.Error(t, err)
}

func TestExtractFirstSentence(t *testing.T) {
	text := "List all pods in a namespace. Returns pod names and status. Use for monitoring."
	assert.Equal(t, "List all pods in a namespace.", extractFirstSentence(text))

	short := "Short text without period"
	assert.Equal(t, short, extractFirstSentence(short))
}

func TestCompressExtractive(t *testing.T) {
	c, err := NewCompressor(CompressionConfig{MaxTokensPerTool: 200, MaxTotalTokens: 800, Strategy: StrategyExtractive})
	require.NoError(t, err)

	result := c.Compress([]ToolDocument{sampleTool()})
	require.Len(t, result.Tools, 1)
	tool := result.Tools[0]
	assert.Contains(t, tool.Summary, "List all pods")
	assert.NotContains(t, tool.Summary, "Returns pod names")
	assert.Greater(t, tool.TokenCount, 0)
}

func TestCompressProgressiveRankDifferentiation(t *testing.T) {
	c, err := NewCompressor(CompressionConfig{MaxTokensPerTool: 200, MaxTotalTokens: 2000, Strategy: StrategyProgressive})
	require.NoError(t, err)

	base := sampleTool()
	tools := []ToolDocument{base, base, base, base}
	tools[1].ToolID = "kubernetes@default/get_deployment"
	tools[2].ToolID = "kubernetes@default/delete_pod"
	tools[3].ToolID = "kubernetes@default/create_service"

	result := c.Compress(tools)
	require.Len(t, result.Tools, 4)

	assert.NotEmpty(t, result.Tools[0].ExecutionHint)
	assert.NotEmpty(t, result.Tools[0].Parameters)

	assert.Empty(t, result.Tools[3].ExecutionHint)
	assert.Empty(t, result.Tools[3].Parameters)
}

func TestCompressionRatio(t *testing.T) {
	c, err := NewCompressor(CompressionConfig{MaxTokensPerTool: 200, MaxTotalTokens: 800, Strategy: StrategyTemplate})
	require.NoError(t, err)

	result := c.Compress([]ToolDocument{sampleTool()})
	assert.Less(t, result.CompressionRatio, float32(1.0))
	assert.Less(t, result.TotalTokens, result.OriginalTokens)
}

func TestTokenBudgetEnforcement(t *testing.T) {
	c, err := NewCompressor(CompressionConfig{MaxTokensPerTool: 200, MaxTotalTokens: 50, Strategy: StrategyTemplate})
	require.NoError(t, err)

	result := c.Compress([]ToolDocument{sampleTool(), sampleTool(), sampleTool()})
	assert.LessOrEqual(t, result.TotalTokens, 50)
	assert.LessOrEqual(t, len(result.Tools), 3)
}

func TestNoCompressionKeepsFullDescription(t *testing.T) {
	c, err := NewCompressor(CompressionConfig{MaxTokensPerTool: 10000, MaxTotalTokens: 10000, Strategy: StrategyNone})
	require.NoError(t, err)

	result := c.Compress([]ToolDocument{sampleTool()})
	require.Len(t, result.Tools, 1)
	assert.Contains(t, result.Tools[0].Summary, "Returns pod names")
}
