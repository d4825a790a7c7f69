package resilience

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/repository"
)

// Observer receives duration and breaker-state observations. Implemented by
// observability.Metrics; a nil observer disables reporting.
type Observer interface {
	ObserveOperation(operation string, success bool, duration time.Duration)
	SetBreakerState(name string, value float64)
}

// Action is a single fallible unit of work executed under the guard.
type Action func(ctx context.Context) (any, error)

// RetryPolicy bounds the executor. Zero values fall back to the defaults
// (5 attempts, 1s initial backoff doubling up to 8s).
type RetryPolicy struct {
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 5
	}
	if p.MinBackoff <= 0 {
		p.MinBackoff = time.Second
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 8 * time.Second
	}
	return p
}

// Executor retries connection-class store failures with exponential backoff
// and jitter. Fatal failures (constraint violations, not-found, validation)
// abort immediately without consuming the retry budget.
type Executor struct {
	policy   RetryPolicy
	logger   *zap.Logger
	observer Observer
}

// NewExecutor builds an executor. logger must be non-nil; observer may be nil.
func NewExecutor(policy RetryPolicy, logger *zap.Logger, observer Observer) *Executor {
	return &Executor{
		policy:   policy.withDefaults(),
		logger:   logger,
		observer: observer,
	}
}

// Execute runs action until it succeeds, fails fatally, exhausts the attempt
// budget, or ctx is done. The duration observation covers the whole
// invocation including backoff sleeps. Terminal failures are wrapped in
// *OperationError with the attempt count; Unwrap preserves the cause so
// callers can still classify it.
func (e *Executor) Execute(ctx context.Context, operation string, action Action) (any, error) {
	start := time.Now()
	delay := e.policy.MinBackoff

	var result any
	var err error
	attempts := 0

	for attempts < e.policy.MaxAttempts {
		attempts++

		result, err = action(ctx)
		if err == nil {
			e.observe(operation, true, time.Since(start))
			return result, nil
		}

		if !repository.IsRetryable(err) || attempts >= e.policy.MaxAttempts {
			break
		}

		e.logger.Warn("retrying operation",
			zap.String("operation", operation),
			zap.Int("attempt", attempts),
			zap.Duration("backoff", delay),
			zap.Error(err))

		if sleepErr := sleep(ctx, jitter(delay)); sleepErr != nil {
			err = sleepErr
			break
		}

		delay *= 2
		if delay > e.policy.MaxBackoff {
			delay = e.policy.MaxBackoff
		}
	}

	e.observe(operation, false, time.Since(start))
	return nil, &OperationError{Op: operation, Attempts: attempts, Err: err}
}

func (e *Executor) observe(operation string, success bool, d time.Duration) {
	if e.observer != nil {
		e.observer.ObserveOperation(operation, success, d)
	}
}

// jitter spreads retries of concurrent callers across [d/2, d) so a
// recovering backend is not hit by a synchronized burst.
func jitter(d time.Duration) time.Duration {
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
