package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/repository"
)

var errConnRefused = &repository.ConnectionError{Err: errors.New("connection refused")}

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, MinBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}
}

func TestExecutor_RetryableFailuresThenSuccess(t *testing.T) {
	executor := NewExecutor(testPolicy(), zap.NewNop(), nil)

	attempts := 0
	result, err := executor.Execute(context.Background(), "user.get_by_id", func(ctx context.Context) (any, error) {
		attempts++
		if attempts <= 2 {
			return nil, errConnRefused
		}
		return "record", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "record", result)
	assert.Equal(t, 3, attempts)
}

func TestExecutor_FatalFailureAbortsImmediately(t *testing.T) {
	executor := NewExecutor(testPolicy(), zap.NewNop(), nil)

	attempts := 0
	_, err := executor.Execute(context.Background(), "user.create", func(ctx context.Context) (any, error) {
		attempts++
		return nil, repository.ErrDuplicateEmail
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, 1, opErr.Attempts)
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestExecutor_ExhaustsAttemptBudget(t *testing.T) {
	executor := NewExecutor(testPolicy(), zap.NewNop(), nil)

	attempts := 0
	_, err := executor.Execute(context.Background(), "user.get_by_id", func(ctx context.Context) (any, error) {
		attempts++
		return nil, errConnRefused
	})

	require.Error(t, err)
	assert.Equal(t, 5, attempts)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, 5, opErr.Attempts)
}

func TestExecutor_ContextDeadlineStopsRetrying(t *testing.T) {
	executor := NewExecutor(RetryPolicy{MaxAttempts: 5, MinBackoff: 50 * time.Millisecond, MaxBackoff: 100 * time.Millisecond}, zap.NewNop(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	attempts := 0
	_, err := executor.Execute(ctx, "user.get_by_id", func(ctx context.Context) (any, error) {
		attempts++
		return nil, errConnRefused
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, attempts)
}

func TestExecutor_ObservesDuration(t *testing.T) {
	observer := &fakeObserver{}
	executor := NewExecutor(testPolicy(), zap.NewNop(), observer)

	_, err := executor.Execute(context.Background(), "user.get_by_id", func(ctx context.Context) (any, error) {
		return "record", nil
	})
	require.NoError(t, err)

	_, _ = executor.Execute(context.Background(), "user.create", func(ctx context.Context) (any, error) {
		return nil, repository.ErrDuplicateEmail
	})

	require.Len(t, observer.operations, 2)
	assert.Equal(t, "user.get_by_id", observer.operations[0].name)
	assert.True(t, observer.operations[0].success)
	assert.Equal(t, "user.create", observer.operations[1].name)
	assert.False(t, observer.operations[1].success)
}

func TestJitter_StaysWithinBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		d := jitter(base)
		assert.GreaterOrEqual(t, d, base/2)
		assert.LessOrEqual(t, d, base)
	}
}
