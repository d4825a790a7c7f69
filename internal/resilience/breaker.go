package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State captures circuit breaker states.
type State int

const (
	// StateClosed indicates normal operation.
	StateClosed State = iota
	// StateOpen indicates the breaker is rejecting calls.
	StateOpen
	// StateHalfOpen indicates a single trial call is permitted.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// gauge values reported per state transition.
const (
	gaugeClosed   = 1.0
	gaugeHalfOpen = 0.5
	gaugeOpen     = 0.0
)

// BreakerSettings controls thresholds for state transitions. Zero values
// fall back to the defaults (5 failures, 50%, 30s reset, 10s call timeout,
// 60s rolling window).
type BreakerSettings struct {
	Name             string
	FailureThreshold int
	ErrorPercent     int
	ResetTimeout     time.Duration
	CallTimeout      time.Duration
	Window           time.Duration
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.Name == "" {
		s.Name = "user-store"
	}
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.ErrorPercent <= 0 {
		s.ErrorPercent = 50
	}
	if s.ResetTimeout <= 0 {
		s.ResetTimeout = 30 * time.Second
	}
	if s.CallTimeout <= 0 {
		s.CallTimeout = 10 * time.Second
	}
	if s.Window <= 0 {
		s.Window = time.Minute
	}
	return s
}

// Breaker guards the store against cascading failure. It trips open when the
// failure rate over a rolling window crosses ErrorPercent while the absolute
// failure count reaches FailureThreshold; after ResetTimeout a single trial
// call decides whether it closes again.
//
// The per-call timeout bounds the ENTIRE retrying sequence of the wrapped
// executor: Fire derives a deadline context handed to the action, so a slow
// backend cannot stretch one guarded call past CallTimeout. Exactly one
// outcome is reported to the caller; an action still running after the
// deadline has its late result discarded.
type Breaker struct {
	mu            sync.Mutex
	settings      BreakerSettings
	state         State
	openedAt      time.Time
	trialInFlight bool
	window        *rollingWindow

	logger   *zap.Logger
	observer Observer
}

// NewBreaker builds a closed breaker. logger must be non-nil; observer may be nil.
func NewBreaker(settings BreakerSettings, logger *zap.Logger, observer Observer) *Breaker {
	settings = settings.withDefaults()
	b := &Breaker{
		settings: settings,
		state:    StateClosed,
		window:   newRollingWindow(settings.Window, 10),
		logger:   logger,
		observer: observer,
	}
	b.setGauge(gaugeClosed)
	return b
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Fire runs action under the breaker. While open it fails fast with
// ErrCircuitOpen without invoking action; a call exceeding CallTimeout is
// recorded as a failure and reported as ErrCallTimeout.
func (b *Breaker) Fire(ctx context.Context, operation string, action Action) (any, error) {
	if !b.allow() {
		return nil, ErrCircuitOpen
	}

	callCtx, cancel := context.WithTimeout(ctx, b.settings.CallTimeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := action(callCtx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && ctx.Err() == nil && errors.Is(out.err, context.DeadlineExceeded) {
			// the action noticed the per-call deadline before our timer branch did
			b.record(false)
			return nil, ErrCallTimeout
		}
		b.record(out.err == nil)
		return out.result, out.err
	case <-callCtx.Done():
		b.record(false)
		if err := ctx.Err(); err != nil {
			// parent cancellation, not our deadline
			return nil, err
		}
		b.logger.Warn("guarded call exceeded deadline",
			zap.String("breaker", b.settings.Name),
			zap.String("operation", operation),
			zap.Duration("timeout", b.settings.CallTimeout))
		return nil, ErrCallTimeout
	}
}

// allow decides whether a call may proceed, performing the Open->HalfOpen
// transition once the reset timeout has elapsed.
func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.openedAt) >= b.settings.ResetTimeout {
			b.transition(StateHalfOpen)
			b.trialInFlight = true
			return true
		}
		return false
	case StateHalfOpen:
		if !b.trialInFlight {
			b.trialInFlight = true
			return true
		}
		return false
	default:
		return true
	}
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.trialInFlight = false
		if success {
			b.window.reset()
			b.transition(StateClosed)
		} else {
			b.openedAt = time.Now()
			b.transition(StateOpen)
		}
	case StateClosed:
		b.window.add(time.Now(), success)
		if success {
			return
		}
		successes, failures := b.window.counts(time.Now())
		total := successes + failures
		if failures < b.settings.FailureThreshold || total == 0 {
			return
		}
		if failures*100 >= b.settings.ErrorPercent*total {
			b.openedAt = time.Now()
			b.transition(StateOpen)
		}
	case StateOpen:
		// late result from a call admitted before the trip; nothing to do
	}
}

// transition mutates state and publishes the gauge. Callers hold b.mu.
func (b *Breaker) transition(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.logger.Info("breaker state change",
		zap.String("breaker", b.settings.Name),
		zap.String("from", prev.String()),
		zap.String("to", next.String()))

	switch next {
	case StateClosed:
		b.setGauge(gaugeClosed)
	case StateHalfOpen:
		b.setGauge(gaugeHalfOpen)
	case StateOpen:
		b.setGauge(gaugeOpen)
	}
}

func (b *Breaker) setGauge(value float64) {
	if b.observer != nil {
		b.observer.SetBreakerState(b.settings.Name, value)
	}
}
