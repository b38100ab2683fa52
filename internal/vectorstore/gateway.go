package vectorstore

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"ragchat/backend/internal/fault"
	"ragchat/backend/internal/retry"
)

// Gateway wraps a Store with the write/read discipline the pipeline
// relies on: batched upserts with per-batch retry, a single-flight
// index-creation guard, and a re-affirmed descending-score ordering on
// reads.
type Gateway struct {
	store     Store
	dimension int
	batchSize int
	schedule  retry.Schedule

	ensure  singleflight.Group
	indexed atomic.Bool
}

func NewGateway(store Store, dimension, batchSize int, schedule retry.Schedule) *Gateway {
	return &Gateway{
		store:     store,
		dimension: dimension,
		batchSize: batchSize,
		schedule:  schedule,
	}
}

// ensureIndex creates the index once. Concurrent callers collapse onto a
// single creation attempt and share its result; a failed attempt is not
// memoized, so the next writer tries again.
func (g *Gateway) ensureIndex(ctx context.Context) error {
	if g.indexed.Load() {
		return nil
	}
	_, err, _ := g.ensure.Do("index", func() (interface{}, error) {
		if g.indexed.Load() {
			return nil, nil
		}
		_, err := retry.Do(ctx, g.schedule, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, g.store.EnsureIndex(ctx, g.dimension)
		})
		if err != nil {
			return nil, err
		}
		g.indexed.Store(true)
		return nil, nil
	})
	return err
}

// Upsert writes entries in fixed-size batches. A batch that keeps failing
// after the retry budget surfaces a degraded error for that batch only;
// batches already written stay committed and the count reflects them.
func (g *Gateway) Upsert(ctx context.Context, namespace string, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	if err := g.ensureIndex(ctx); err != nil {
		return 0, fault.Degraded(err)
	}

	written := 0
	for base := 0; base < len(entries); base += g.batchSize {
		end := base + g.batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[base:end]

		n, err := retry.Do(ctx, g.schedule, func(ctx context.Context) (int, error) {
			return g.store.Upsert(ctx, namespace, batch)
		})
		if err != nil {
			slog.ErrorContext(ctx, "vector batch write failed",
				"namespace", namespace, "batch_start", base, "batch_size", len(batch), "error", err)
			if fault.IsAuth(err) || fault.IsInput(err) {
				return written, err
			}
			return written, fault.Degraded(err)
		}
		written += n
	}
	return written, nil
}

// Query returns the topK nearest matches, re-sorted by descending score
// even when the backend already ordered them.
func (g *Gateway) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	if err := g.ensureIndex(ctx); err != nil {
		return nil, fault.Degraded(err)
	}

	matches, err := retry.Do(ctx, g.schedule, func(ctx context.Context) ([]Match, error) {
		return g.store.Query(ctx, namespace, vector, topK)
	})
	if err != nil {
		if fault.IsAuth(err) || fault.IsInput(err) {
			return nil, err
		}
		return nil, fault.Degraded(err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches, nil
}

func (g *Gateway) Stats(ctx context.Context, namespace string) (Stats, error) {
	stats, err := retry.Do(ctx, g.schedule, func(ctx context.Context) (Stats, error) {
		return g.store.Stats(ctx, namespace)
	})
	if err != nil {
		if fault.IsAuth(err) || fault.IsInput(err) {
			return Stats{}, err
		}
		return Stats{}, fault.Degraded(err)
	}
	if stats.Dimension == 0 {
		stats.Dimension = g.dimension
	}
	return stats, nil
}

func (g *Gateway) DeleteBySource(ctx context.Context, namespace, source string) error {
	_, err := retry.Do(ctx, g.schedule, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.store.DeleteBySource(ctx, namespace, source)
	})
	if err != nil && !fault.IsAuth(err) && !fault.IsInput(err) {
		return fault.Degraded(err)
	}
	return err
}
