package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsMatchSentinels(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"input", Input("namespace %q is empty", "default"), ErrInput},
		{"auth", Auth("api key rejected"), ErrAuth},
		{"transient", Transient(cause), ErrTransient},
		{"not found", NotFound("document %s", "abc"), ErrNotFound},
		{"degraded", Degraded(cause), ErrDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestNilCausesStayNil(t *testing.T) {
	assert.NoError(t, Transient(nil))
	assert.NoError(t, Degraded(nil))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(Transient(errors.New("rate limited"))))
	assert.True(t, Retryable(fmt.Errorf("fetch page: %w", Transient(errors.New("timeout")))))

	assert.False(t, Retryable(Auth("bad key")))
	assert.False(t, Retryable(Input("empty text")))
	assert.False(t, Retryable(Degraded(errors.New("store down"))))
	assert.False(t, Retryable(errors.New("plain error")))
	assert.False(t, Retryable(nil))
}

func TestMessagesCarryCause(t *testing.T) {
	err := Transient(errors.New("dial tcp: i/o timeout"))
	assert.Contains(t, err.Error(), "dial tcp: i/o timeout")

	err = Input("chunk overlap %d exceeds size %d", 600, 500)
	assert.Contains(t, err.Error(), "chunk overlap 600 exceeds size 500")
}

func TestPredicatesAreDisjoint(t *testing.T) {
	err := Auth("rejected")
	assert.True(t, IsAuth(err))
	assert.False(t, IsInput(err))
	assert.False(t, IsTransient(err))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsDegraded(err))
}
