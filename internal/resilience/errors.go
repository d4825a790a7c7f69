package resilience

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen is returned without invoking the underlying operation
	// while the breaker is open (or during another caller's half-open trial).
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrCallTimeout is returned when the per-call deadline elapses before
	// the guarded operation (including all of its retries) completes.
	ErrCallTimeout = errors.New("guarded call timed out")
)

// OperationError reports a terminally failed operation together with the
// number of attempts consumed. Fatal failures carry Attempts == 1.
type OperationError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
