package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubiyabot/skillrt/pkg/skill"
	"github.com/kubiyabot/skillrt/pkg/vectorstore"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type fakeDense struct {
	results []skill.SearchResult
}

func (f fakeDense) Search(ctx context.Context, vec []float32, filter vectorstore.Filter, topK int) ([]skill.SearchResult, error) {
	return f.results, nil
}

type fakeSparse struct {
	results []skill.SearchResult
}

func (f fakeSparse) Search(ctx context.Context, terms []string, filter vectorstore.Filter, topK int) ([]skill.SearchResult, error) {
	return f.results, nil
}

func TestPipelineRetrieveEndToEnd(t *testing.T) {
	dense := fakeDense{results: []skill.SearchResult{
		{ID: "kubernetes/list_pods", Score: 0.9, Content: "List pods"},
	}}
	sparse := fakeSparse{results: []skill.SearchResult{
		{ID: "kubernetes/list_pods", Score: 0.8, Content: "List pods"},
		{ID: "kubernetes/get_deployment", Score: 0.6, Content: "Get deployment"},
	}}

	compressor, err := NewCompressor(DefaultCompressionConfig())
	require.NoError(t, err)

	processor := NewProcessor([]string{"kubernetes"}, nil)

	toDoc := func(r skill.SearchResult) ToolDocument {
		return ToolDocument{
			ToolID:         r.ID,
			Description:    r.Content + ". Full description sentence.",
			RelevanceScore: r.Score,
		}
	}

	pipeline := NewPipeline(processor, dense, fakeEmbedder{}, sparse, nil, compressor, DefaultPipelineConfig(), toDoc)

	result, err := pipeline.Retrieve(context.Background(), "list pods in kubernetes", vectorstore.Filter{})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Compression.Tools)
	assert.Equal(t, "kubernetes", result.Query.SuggestedFilters[0].Value)
}

func TestPipelineRetrieveNoBackends(t *testing.T) {
	compressor, err := NewCompressor(DefaultCompressionConfig())
	require.NoError(t, err)
	processor := NewProcessor(nil, nil)

	pipeline := NewPipeline(processor, nil, nil, nil, nil, compressor, DefaultPipelineConfig(), nil)
	result, err := pipeline.Retrieve(context.Background(), "anything", vectorstore.Filter{})
	require.NoError(t, err)
	assert.Empty(t, result.Compression.Tools)
}
