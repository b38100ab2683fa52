package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/backend/internal/fault"
)

func fastSchedule() Schedule {
	return Schedule{Attempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastSchedule(), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastSchedule(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, fault.Transient(errors.New("backend hiccup"))
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := fault.Transient(errors.New("still down"))
	_, err := Do(context.Background(), fastSchedule(), func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, fault.IsTransient(err))
}

func TestDoAbortsOnAuthError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastSchedule(), func(ctx context.Context) (int, error) {
		calls++
		return 0, fault.Auth("key rejected")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "auth failures must not be retried")
	assert.True(t, fault.IsAuth(err))
}

func TestDoAbortsOnInputError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastSchedule(), func(ctx context.Context) (int, error) {
		calls++
		return 0, fault.Input("empty query")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, fault.IsInput(err))
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Schedule{Attempts: 5, InitialWait: 50 * time.Millisecond, MaxWait: time.Second},
		func(ctx context.Context) (int, error) {
			calls++
			cancel()
			return 0, fault.Transient(errors.New("transient"))
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDefaultSchedule(t *testing.T) {
	s := Default()
	assert.Equal(t, 3, s.Attempts)
	assert.Equal(t, time.Second, s.InitialWait)
	assert.Equal(t, 10*time.Second, s.MaxWait)
}
