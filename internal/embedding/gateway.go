// Package embedding turns text into fixed-dimension vectors, absorbing
// backend flakiness so ingestion never stalls on a single bad chunk.
package embedding

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"ragchat/backend/internal/fault"
	"ragchat/backend/internal/retry"
)

// Backend is the vendor-agnostic embedding capability.
type Backend interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Gateway struct {
	backend   Backend
	dimension int
	batchSize int
	schedule  retry.Schedule
}

func NewGateway(backend Backend, dimension, batchSize int, schedule retry.Schedule) *Gateway {
	return &Gateway{
		backend:   backend,
		dimension: dimension,
		batchSize: batchSize,
		schedule:  schedule,
	}
}

func (g *Gateway) Dimension() int { return g.dimension }

// Zero returns the reserved embedding-failed sentinel. A zero vector has
// zero cosine similarity with everything, so a chunk carrying it is never
// retrieved.
func (g *Gateway) Zero() []float32 {
	return make([]float32, g.dimension)
}

// IsZero reports whether v is the no-match sentinel.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Embed produces a vector for one text, retrying transient backend
// failures on the gateway's schedule. Blank input short-circuits to the
// zero sentinel without touching the backend.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		slog.WarnContext(ctx, "embedding requested for blank text, returning zero vector")
		return g.Zero(), nil
	}

	vec, err := retry.Do(ctx, g.schedule, func(ctx context.Context) ([]float32, error) {
		return g.backend.Embed(ctx, text)
	})
	if err != nil {
		if fault.IsAuth(err) || fault.IsInput(err) {
			return nil, err
		}
		return nil, fault.Degraded(err)
	}
	return vec, nil
}

// EmbedBatch embeds texts in groups of the configured batch size, issuing
// the embeddings within a group concurrently. A failing text is retried
// once in isolation and then degrades to the zero sentinel, so the output
// always has exactly one vector per input, in input order. Auth failures
// are the one exception: they abort the batch immediately, since every
// remaining call would fail the same way.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	for base := 0; base < len(texts); base += g.batchSize {
		end := base + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		errs := make([]error, end-base)
		var wg sync.WaitGroup
		for i := base; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				vec, err := g.Embed(ctx, texts[i])
				if err != nil {
					errs[i-base] = err
					return
				}
				out[i] = vec
			}(i)
		}
		wg.Wait()

		for j, err := range errs {
			if err == nil {
				continue
			}
			if fault.IsAuth(err) {
				return nil, err
			}
			i := base + j
			// One isolated retry before settling for the sentinel.
			vec, retryErr := g.Embed(ctx, texts[i])
			if retryErr != nil {
				slog.WarnContext(ctx, "embedding fell back to zero vector",
					"index", i, "error", retryErr)
				vec = g.Zero()
			}
			out[i] = vec
		}
	}

	return out, nil
}
