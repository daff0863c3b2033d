package retrieval

import (
	"context"

	"google.golang.org/genai"

	"github.com/kubiyabot/skillrt/pkg/apperr"
)

// GenaiEmbedder turns query text into a dense vector via a Gemini embedding
// model, grounded on the same reasoning as GenaiReranker: the example pack
// carries no dedicated embedding library, and the project's own LLM SDK
// (google.golang.org/genai) already exposes one.
type GenaiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGenaiEmbedder builds an Embedder against an existing genai client.
func NewGenaiEmbedder(client *genai.Client, model string) *GenaiEmbedder {
	if model == "" {
		model = "text-embedding-004"
	}
	return &GenaiEmbedder{client: client, model: model}
}

// Embed implements Embedder.
func (e *GenaiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.client == nil {
		return nil, apperr.New(apperr.InvalidInput, "embedder has no genai client configured")
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.RetryableBackend, "embed text", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 {
		return nil, apperr.New(apperr.InvocationError, "empty embedding response")
	}

	values := resp.Embeddings[0].Values
	if len(values) == 0 {
		return nil, apperr.New(apperr.InvocationError, "empty embedding vector")
	}
	return values, nil
}
