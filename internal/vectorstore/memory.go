package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"ragchat/backend/internal/fault"
)

// Memory is a brute-force cosine-similarity store. It backs local runs
// without a Weaviate instance and doubles as the test store.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	spaces    map[string][]record
}

type record struct {
	entry Entry
	norm  float64
}

func NewMemory() *Memory {
	return &Memory{spaces: make(map[string][]record)}
}

func (m *Memory) EnsureIndex(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fault.Input("dimension must be positive, got %d", dimension)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimension == 0 {
		m.dimension = dimension
	}
	return nil
}

func (m *Memory) Upsert(_ context.Context, namespace string, entries []Entry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimension == 0 {
		return 0, fault.NotFound("index not created")
	}
	for _, e := range entries {
		if len(e.Vector) != m.dimension {
			return 0, fault.Input("vector dimension %d does not match index dimension %d", len(e.Vector), m.dimension)
		}
	}

	space := m.spaces[namespace]
	for _, e := range entries {
		rec := record{entry: e, norm: norm(e.Vector)}
		replaced := false
		for i := range space {
			if space[i].entry.ID == e.ID {
				space[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			space = append(space, rec)
		}
	}
	m.spaces[namespace] = space
	return len(entries), nil
}

func (m *Memory) Query(_ context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.dimension == 0 {
		return nil, fault.NotFound("index not created")
	}
	if len(vector) != m.dimension {
		return nil, fault.Input("query vector dimension %d does not match index dimension %d", len(vector), m.dimension)
	}

	qNorm := norm(vector)
	space := m.spaces[namespace]
	matches := make([]Match, 0, len(space))
	for _, rec := range space {
		matches = append(matches, Match{
			ChunkID:    rec.entry.ID,
			Text:       rec.entry.Meta.Text,
			Source:     rec.entry.Meta.Source,
			PageNumber: rec.entry.Meta.PageNumber,
			Score:      cosine(vector, qNorm, rec.entry.Vector, rec.norm),
		})
	}

	// Stable: equal scores keep insertion order, deterministic per call.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *Memory) Stats(_ context.Context, namespace string) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{Dimension: m.dimension, Namespaces: make(map[string]int)}
	for ns, space := range m.spaces {
		if namespace != "" && ns != namespace {
			continue
		}
		stats.Namespaces[ns] = len(space)
		stats.VectorCount += len(space)
	}
	return stats, nil
}

func (m *Memory) DeleteBySource(_ context.Context, namespace, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	space := m.spaces[namespace]
	kept := space[:0]
	for _, rec := range space {
		if rec.entry.Meta.Source != source {
			kept = append(kept, rec)
		}
	}
	m.spaces[namespace] = kept
	return nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 for a zero vector on either side, which is what makes
// the zero-vector sentinel a guaranteed no-match.
func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float32 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (aNorm * bNorm))
}
