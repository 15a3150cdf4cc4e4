package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := WithRetry(t.Context(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	}, fastRetry)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnPermanent(t *testing.T) {
	cause := errors.New("bad request")
	calls := 0
	err := WithRetry(t.Context(), func() error {
		calls++
		return Permanent(cause)
	}, fastRetry)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)
}

func TestWithRetryExhausted(t *testing.T) {
	calls := 0
	err := WithRetry(t.Context(), func() error {
		calls++
		return errors.New("503")
	}, fastRetry)
	require.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 3, calls)
}

func TestWithRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return errors.New("timeout")
	}, RetryOptions{MaxAttempts: 5, InitialDelay: time.Second})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}

func TestGatewayAndStorageErrors(t *testing.T) {
	cause := errors.New("boom")
	gw := GatewayError("classify", cause)
	assert.ErrorIs(t, gw, ErrGateway)
	assert.ErrorIs(t, gw, cause)
	assert.Contains(t, gw.Error(), "classify")

	st := StorageError("flush batch", cause)
	assert.ErrorIs(t, st, ErrStorage)
	assert.NotErrorIs(t, st, ErrGateway)
}
