package retrieval

import (
	"context"

	"github.com/kubiyabot/skillrt/pkg/skill"
	"github.com/kubiyabot/skillrt/pkg/vectorstore"
)

// DenseSearcher performs vector similarity search.
type DenseSearcher interface {
	Search(ctx context.Context, queryVec []float32, filter vectorstore.Filter, topK int) ([]skill.SearchResult, error)
}

// Embedder turns text into a vector for dense search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SparseSearcher performs keyword/lexical search over the same corpus.
type SparseSearcher interface {
	Search(ctx context.Context, terms []string, filter vectorstore.Filter, topK int) ([]skill.SearchResult, error)
}

// PipelineConfig configures a retrieval run end to end. TopK1 bounds the
// initial hybrid candidate set, TopK2 bounds the post-rerank set, TopK3
// bounds what compression is given to work with (spec 4.3 defaults:
// 100/20/5).
type PipelineConfig struct {
	TopK1          int
	TopK2          int
	TopK3          int
	Fusion         FusionConfig
	RerankEnabled  bool
	Compression    CompressionConfig
}

// DefaultPipelineConfig matches spec 4.3's defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		TopK1:       100,
		TopK2:       20,
		TopK3:       5,
		Fusion:      DefaultFusionConfig(),
		Compression: DefaultCompressionConfig(),
	}
}

// Pipeline wires query processing, hybrid search, fusion, optional rerank,
// and compression into one retrieval call.
type Pipeline struct {
	processor  *Processor
	dense      DenseSearcher
	embedder   Embedder
	sparse     SparseSearcher
	reranker   Reranker
	compressor *Compressor
	cfg        PipelineConfig
	toDoc      func(skill.SearchResult) ToolDocument
}

// NewPipeline builds a Pipeline. reranker may be nil to skip reranking
// regardless of cfg.RerankEnabled. toDoc converts a fused search result
// into the ToolDocument shape the compressor consumes; callers typically
// close over an index of full tool metadata keyed by result ID.
func NewPipeline(processor *Processor, dense DenseSearcher, embedder Embedder, sparse SparseSearcher, reranker Reranker, compressor *Compressor, cfg PipelineConfig, toDoc func(skill.SearchResult) ToolDocument) *Pipeline {
	return &Pipeline{
		processor:  processor,
		dense:      dense,
		embedder:   embedder,
		sparse:     sparse,
		reranker:   reranker,
		compressor: compressor,
		cfg:        cfg,
		toDoc:      toDoc,
	}
}

// Result is the end-to-end output of a retrieval run.
type Result struct {
	Query       ProcessedQuery
	Compression CompressionResult
}

// Retrieve runs the full pipeline for a user query against an optional base
// filter (e.g. restricting to a particular instance).
func (p *Pipeline) Retrieve(ctx context.Context, query string, baseFilter vectorstore.Filter) (Result, error) {
	processed := p.processor.Process(query)
	filter := mergeSuggestedFilters(baseFilter, processed.SuggestedFilters)

	var dense RankedList
	if p.dense != nil && p.embedder != nil {
		vec, err := p.embedder.Embed(ctx, processed.Normalized)
		if err == nil {
			results, err := p.dense.Search(ctx, vec, filter, p.cfg.TopK1)
			if err == nil {
				dense = RankedList{Results: results}
			}
		}
	}

	var sparse RankedList
	if p.sparse != nil {
		terms := p.processor.ExpandedTerms(processed)
		results, err := p.sparse.Search(ctx, terms, filter, p.cfg.TopK1)
		if err == nil {
			sparse = RankedList{Results: results}
		}
	}

	fused := Fuse(dense, sparse, p.cfg.Fusion)
	if len(fused) > p.cfg.TopK1 {
		fused = fused[:p.cfg.TopK1]
	}

	if p.cfg.RerankEnabled && p.reranker != nil && len(fused) > 0 {
		reranked, err := p.reranker.Rerank(ctx, processed.Normalized, fused)
		if err == nil {
			fused = reranked
		}
	}

	if len(fused) > p.cfg.TopK2 {
		fused = fused[:p.cfg.TopK2]
	}

	docs := make([]ToolDocument, 0, len(fused))
	for _, res := range fused {
		if p.toDoc != nil {
			docs = append(docs, p.toDoc(res))
		}
	}
	if len(docs) > p.cfg.TopK3 {
		docs = docs[:p.cfg.TopK3]
	}

	compression := p.compressor.Compress(docs)
	return Result{Query: processed, Compression: compression}, nil
}

func mergeSuggestedFilters(base vectorstore.Filter, suggested []SuggestedFilter) vectorstore.Filter {
	filter := base
	for _, s := range suggested {
		switch s.Field {
		case "skill_name":
			if filter.SkillName == "" {
				filter.SkillName = s.Value
			}
		case "category":
			if filter.Category == "" {
				filter.Category = s.Value
			}
		}
	}
	return filter
}
