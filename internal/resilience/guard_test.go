package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/repository"
)

func testGuard(observer Observer) *Guard {
	return NewGuardFromSettings(testSettings(), testPolicy(), zap.NewNop(), observer)
}

func TestGuard_RetriesThroughBreaker(t *testing.T) {
	g := testGuard(nil)

	attempts := 0
	result, err := Do(context.Background(), g, "user.get_by_id", func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errConnRefused
		}
		return "record", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "record", result)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, StateClosed, g.Breaker().State())
}

func TestGuard_DuplicateIsNotRetried(t *testing.T) {
	g := testGuard(nil)

	attempts := 0
	_, err := g.Do(context.Background(), "user.create", func(ctx context.Context) (any, error) {
		attempts++
		return nil, repository.ErrDuplicateEmail
	})

	require.ErrorIs(t, err, repository.ErrDuplicateEmail)
	assert.Equal(t, 1, attempts)
}

func TestGuard_OpenBreakerSkipsExecutorAndStore(t *testing.T) {
	g := testGuard(nil)

	// every guarded call exhausts its retries and counts as one breaker failure
	storeCalls := 0
	for i := 0; i < 3; i++ {
		_, err := g.Do(context.Background(), "user.get_by_id", func(ctx context.Context) (any, error) {
			storeCalls++
			return nil, errConnRefused
		})
		require.Error(t, err)
	}
	require.Equal(t, StateOpen, g.Breaker().State())
	callsWhileTripping := storeCalls

	_, err := g.Do(context.Background(), "user.get_by_id", func(ctx context.Context) (any, error) {
		storeCalls++
		return nil, nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, callsWhileTripping, storeCalls)
}

func TestGuard_CallTimeoutBoundsWholeRetrySequence(t *testing.T) {
	settings := testSettings()
	settings.CallTimeout = 30 * time.Millisecond
	policy := RetryPolicy{MaxAttempts: 5, MinBackoff: 20 * time.Millisecond, MaxBackoff: 40 * time.Millisecond}
	g := NewGuardFromSettings(settings, policy, zap.NewNop(), nil)

	attempts := 0
	start := time.Now()
	_, err := g.Do(context.Background(), "user.get_by_id", func(ctx context.Context) (any, error) {
		attempts++
		return nil, errConnRefused
	})

	require.ErrorIs(t, err, ErrCallTimeout)
	// the deadline cut the retry budget short
	assert.Less(t, attempts, 5)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}
