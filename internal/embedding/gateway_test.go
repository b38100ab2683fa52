package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/backend/internal/fault"
	"ragchat/backend/internal/retry"
)

func fastSchedule() retry.Schedule {
	return retry.Schedule{Attempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
}

// fakeBackend maps text to a scripted response and counts calls per text.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(text string, call int) ([]float32, error)
}

func newFakeBackend(fn func(text string, call int) ([]float32, error)) *fakeBackend {
	return &fakeBackend{calls: map[string]int{}, fn: fn}
}

func (f *fakeBackend) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls[text]++
	call := f.calls[text]
	f.mu.Unlock()
	return f.fn(text, call)
}

func (f *fakeBackend) callCount(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[text]
}

func vectorFor(text string) []float32 {
	return []float32{float32(len(text)), 1, 2}
}

func TestEmbedHappyPath(t *testing.T) {
	backend := newFakeBackend(func(text string, _ int) ([]float32, error) {
		return vectorFor(text), nil
	})
	g := NewGateway(backend, 3, 5, fastSchedule())

	vec, err := g.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, vectorFor("hello"), vec)
	assert.Equal(t, 1, backend.callCount("hello"))
}

func TestEmbedBlankSkipsBackend(t *testing.T) {
	backend := newFakeBackend(func(string, int) ([]float32, error) {
		return nil, errors.New("should not be called")
	})
	g := NewGateway(backend, 4, 5, fastSchedule())

	for _, text := range []string{"", "   ", "\n\t "} {
		vec, err := g.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, []float32{0, 0, 0, 0}, vec)
	}
	assert.Equal(t, 0, backend.callCount(""))
}

func TestEmbedRetriesTransient(t *testing.T) {
	backend := newFakeBackend(func(text string, call int) ([]float32, error) {
		if call < 3 {
			return nil, fault.Transient(errors.New("rate limited"))
		}
		return vectorFor(text), nil
	})
	g := NewGateway(backend, 3, 5, fastSchedule())

	vec, err := g.Embed(context.Background(), "persist")
	require.NoError(t, err)
	assert.Equal(t, vectorFor("persist"), vec)
	assert.Equal(t, 3, backend.callCount("persist"))
}

func TestEmbedDegradesAfterBudget(t *testing.T) {
	backend := newFakeBackend(func(string, int) ([]float32, error) {
		return nil, fault.Transient(errors.New("still down"))
	})
	g := NewGateway(backend, 3, 5, fastSchedule())

	_, err := g.Embed(context.Background(), "doomed")
	require.Error(t, err)
	assert.True(t, fault.IsDegraded(err))
	assert.Equal(t, 3, backend.callCount("doomed"))
}

func TestEmbedAuthNotRetried(t *testing.T) {
	backend := newFakeBackend(func(string, int) ([]float32, error) {
		return nil, fault.Auth("api key rejected")
	})
	g := NewGateway(backend, 3, 5, fastSchedule())

	_, err := g.Embed(context.Background(), "secret")
	require.Error(t, err)
	assert.True(t, fault.IsAuth(err))
	assert.False(t, fault.IsDegraded(err))
	assert.Equal(t, 1, backend.callCount("secret"))
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	backend := newFakeBackend(func(text string, _ int) ([]float32, error) {
		return vectorFor(text), nil
	})
	g := NewGateway(backend, 3, 2, fastSchedule())

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := g.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, text := range texts {
		assert.Equal(t, vectorFor(text), vecs[i], "vector %d out of order", i)
	}
}

func TestEmbedBatchZeroFallback(t *testing.T) {
	backend := newFakeBackend(func(text string, _ int) ([]float32, error) {
		if text == "poison" {
			return nil, fault.Transient(errors.New("backend chokes on this one"))
		}
		return vectorFor(text), nil
	})
	g := NewGateway(backend, 3, 5, fastSchedule())

	texts := []string{"fine", "poison", "also fine"}
	vecs, err := g.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Equal(t, vectorFor("fine"), vecs[0])
	assert.True(t, IsZero(vecs[1]), "failed text must degrade to the zero sentinel")
	assert.Len(t, vecs[1], 3)
	assert.Equal(t, vectorFor("also fine"), vecs[2])
}

func TestEmbedBatchAuthAborts(t *testing.T) {
	backend := newFakeBackend(func(text string, _ int) ([]float32, error) {
		if text == "second" {
			return nil, fault.Auth("key revoked")
		}
		return vectorFor(text), nil
	})
	g := NewGateway(backend, 3, 2, fastSchedule())

	vecs, err := g.EmbedBatch(context.Background(), []string{"first", "second", "third"})
	require.Error(t, err)
	assert.True(t, fault.IsAuth(err))
	assert.Nil(t, vecs)
	// The batch containing the auth failure is the last one issued.
	assert.Equal(t, 0, backend.callCount("third"))
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	g := NewGateway(newFakeBackend(nil), 3, 5, fastSchedule())
	vecs, err := g.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestEmbedBatchManyBatches(t *testing.T) {
	backend := newFakeBackend(func(text string, _ int) ([]float32, error) {
		return vectorFor(text), nil
	})
	g := NewGateway(backend, 3, 5, fastSchedule())

	var texts []string
	for i := 0; i < 13; i++ {
		texts = append(texts, fmt.Sprintf("chunk-%02d", i))
	}
	vecs, err := g.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 13)
	for i, text := range texts {
		assert.Equal(t, vectorFor(text), vecs[i])
		assert.Equal(t, 1, backend.callCount(text))
	}
}

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero(nil))
	assert.True(t, IsZero([]float32{0, 0, 0}))
	assert.False(t, IsZero([]float32{0, 0.001, 0}))
}
