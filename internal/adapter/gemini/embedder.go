package gemini

import (
	"context"
	"log/slog"

	"github.com/google/generative-ai-go/genai"

	"ragchat/backend/internal/fault"
)

type Embedder struct {
	client *Client
	model  string
}

func NewEmbedder(client *Client, model string) *Embedder {
	return &Embedder{client: client, model: model}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	slog.DebugContext(ctx, "embedding content", "model", e.model, "length", len(text))
	em := e.client.client.EmbeddingModel(e.model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err)
		return nil, classify(err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fault.Transient(errEmptyEmbedding)
	}
	return res.Embedding.Values, nil
}
