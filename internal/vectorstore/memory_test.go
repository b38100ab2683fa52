package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	require.NoError(t, m.EnsureIndex(context.Background(), 3))
	return m
}

func entry(id string, vec []float32, source, text string, page int) Entry {
	return Entry{
		ID:     id,
		Vector: vec,
		Meta: Metadata{
			Text:       text,
			Source:     source,
			PageNumber: page,
		},
	}
}

func TestMemoryRequiresIndex(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Upsert(ctx, "default", []Entry{entry("a", []float32{1, 0, 0}, "s", "t", 1)})
	assert.Error(t, err)

	_, err = m.Query(ctx, "default", []float32{1, 0, 0}, 5)
	assert.Error(t, err)

	assert.Error(t, m.EnsureIndex(ctx, 0))
}

func TestMemoryDimensionCheck(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	_, err := m.Upsert(ctx, "default", []Entry{entry("a", []float32{1, 0}, "s", "t", 1)})
	assert.Error(t, err)

	_, err = m.Query(ctx, "default", []float32{1, 0, 0, 0}, 5)
	assert.Error(t, err)
}

func TestMemoryQueryOrdersByScore(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	_, err := m.Upsert(ctx, "default", []Entry{
		entry("exact", []float32{1, 0, 0}, "doc", "exact match", 1),
		entry("near", []float32{1, 1, 0}, "doc", "nearby", 2),
		entry("far", []float32{0, 0, 1}, "doc", "orthogonal", 3),
	})
	require.NoError(t, err)

	matches, err := m.Query(ctx, "default", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "exact", matches[0].ChunkID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "near", matches[1].ChunkID)
	assert.Equal(t, "far", matches[2].ChunkID)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
	assert.Equal(t, "exact match", matches[0].Text)
	assert.Equal(t, "doc", matches[0].Source)
	assert.Equal(t, 1, matches[0].PageNumber)
}

func TestMemoryQueryTopK(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	_, err := m.Upsert(ctx, "default", []Entry{
		entry("a", []float32{1, 0, 0}, "doc", "a", 1),
		entry("b", []float32{0, 1, 0}, "doc", "b", 1),
		entry("c", []float32{0, 0, 1}, "doc", "c", 1),
	})
	require.NoError(t, err)

	matches, err := m.Query(ctx, "default", []float32{1, 1, 1}, 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestMemoryZeroVectorNeverMatches(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	_, err := m.Upsert(ctx, "default", []Entry{
		entry("real", []float32{1, 2, 3}, "doc", "real", 1),
		entry("sentinel", []float32{0, 0, 0}, "doc", "failed embed", 2),
	})
	require.NoError(t, err)

	matches, err := m.Query(ctx, "default", []float32{1, 2, 3}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "real", matches[0].ChunkID)
	assert.Equal(t, float32(0), matches[1].Score)

	// A zero query vector scores zero against everything too.
	matches, err = m.Query(ctx, "default", []float32{0, 0, 0}, 5)
	require.NoError(t, err)
	for _, match := range matches {
		assert.Equal(t, float32(0), match.Score)
	}
}

func TestMemoryUpsertReplacesByID(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	_, err := m.Upsert(ctx, "default", []Entry{entry("a", []float32{1, 0, 0}, "old", "old text", 1)})
	require.NoError(t, err)
	n, err := m.Upsert(ctx, "default", []Entry{entry("a", []float32{0, 1, 0}, "new", "new text", 2)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err := m.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.VectorCount)

	matches, err := m.Query(ctx, "default", []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new text", matches[0].Text)
}

func TestMemoryNamespacesAreIsolated(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	_, err := m.Upsert(ctx, "alpha", []Entry{entry("a", []float32{1, 0, 0}, "doc", "alpha text", 1)})
	require.NoError(t, err)
	_, err = m.Upsert(ctx, "beta", []Entry{entry("b", []float32{1, 0, 0}, "doc", "beta text", 1)})
	require.NoError(t, err)

	matches, err := m.Query(ctx, "alpha", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "alpha text", matches[0].Text)

	matches, err = m.Query(ctx, "missing", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryStats(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	_, err := m.Upsert(ctx, "alpha", []Entry{
		entry("a1", []float32{1, 0, 0}, "doc", "t", 1),
		entry("a2", []float32{0, 1, 0}, "doc", "t", 2),
	})
	require.NoError(t, err)
	_, err = m.Upsert(ctx, "beta", []Entry{entry("b1", []float32{0, 0, 1}, "doc", "t", 1)})
	require.NoError(t, err)

	stats, err := m.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.VectorCount)
	assert.Equal(t, 3, stats.Dimension)
	assert.Equal(t, map[string]int{"alpha": 2, "beta": 1}, stats.Namespaces)

	stats, err = m.Stats(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.VectorCount)
	assert.Equal(t, map[string]int{"alpha": 2}, stats.Namespaces)
}

func TestMemoryDeleteBySource(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	_, err := m.Upsert(ctx, "default", []Entry{
		entry("a", []float32{1, 0, 0}, "keep.pdf", "kept", 1),
		entry("b", []float32{0, 1, 0}, "drop.pdf", "dropped", 1),
		entry("c", []float32{0, 0, 1}, "drop.pdf", "dropped too", 2),
	})
	require.NoError(t, err)

	require.NoError(t, m.DeleteBySource(ctx, "default", "drop.pdf"))

	stats, err := m.Stats(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.VectorCount)

	matches, err := m.Query(ctx, "default", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "keep.pdf", matches[0].Source)
}
