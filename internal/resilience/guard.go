package resilience

import (
	"context"

	"go.uber.org/zap"
)

// Guard is the single entry point collaborators use to reach the store:
// breaker on the outside, retrying executor on the inside. One Guard is
// constructed at startup and injected into services.
type Guard struct {
	breaker  *Breaker
	executor *Executor
}

// NewGuard composes a breaker and an executor.
func NewGuard(breaker *Breaker, executor *Executor) *Guard {
	return &Guard{breaker: breaker, executor: executor}
}

// NewGuardFromSettings is a convenience constructor for the common case of
// one breaker guarding one retry policy.
func NewGuardFromSettings(settings BreakerSettings, policy RetryPolicy, logger *zap.Logger, observer Observer) *Guard {
	return &Guard{
		breaker:  NewBreaker(settings, logger, observer),
		executor: NewExecutor(policy, logger, observer),
	}
}

// Do runs action through the breaker and the retrying executor. The breaker's
// per-call timeout bounds the whole retry sequence; while open the action is
// never invoked.
func (g *Guard) Do(ctx context.Context, operation string, action Action) (any, error) {
	return g.breaker.Fire(ctx, operation, func(ctx context.Context) (any, error) {
		return g.executor.Execute(ctx, operation, action)
	})
}

// Breaker exposes the underlying breaker, mainly for health reporting.
func (g *Guard) Breaker() *Breaker {
	return g.breaker
}

// Do is the typed counterpart of Guard.Do.
func Do[T any](ctx context.Context, g *Guard, operation string, action func(ctx context.Context) (T, error)) (T, error) {
	result, err := g.Do(ctx, operation, func(ctx context.Context) (any, error) {
		return action(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		var zero T
		return zero, nil
	}
	return typed, nil
}
