package gemini

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"ragchat/backend/internal/fault"
)

var (
	errEmptyEmbedding = errors.New("empty embedding received")
	errEmptyResponse  = errors.New("empty generation response")
)

type Generator struct {
	client *Client
	model  string
}

func NewGenerator(client *Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	slog.DebugContext(ctx, "generating content", "model", g.model, "prompt_length", len(prompt))
	model := g.client.client.GenerativeModel(g.model)
	res, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		slog.ErrorContext(ctx, "generation failed", "error", err)
		return "", classify(err)
	}

	var sb strings.Builder
	for _, cand := range res.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		break
	}

	answer := strings.TrimSpace(sb.String())
	if answer == "" {
		return "", fault.Transient(errEmptyResponse)
	}
	return answer, nil
}
