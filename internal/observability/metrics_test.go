package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveOperation(t *testing.T) {
	m := NewMetrics()

	m.ObserveOperation("user.get_by_id", true, 10*time.Millisecond)
	m.ObserveOperation("user.get_by_id", true, 30*time.Millisecond)
	m.ObserveOperation("user.get_by_id", false, 50*time.Millisecond)

	ok := m.OperationSnapshot("user.get_by_id", true)
	assert.Equal(t, int64(2), ok.Count)
	assert.Equal(t, 40*time.Millisecond, ok.Total)
	assert.Equal(t, 30*time.Millisecond, ok.Max)

	failed := m.OperationSnapshot("user.get_by_id", false)
	assert.Equal(t, int64(1), failed.Count)
}

func TestMetrics_BreakerState(t *testing.T) {
	m := NewMetrics()

	_, ok := m.BreakerState("user-store")
	assert.False(t, ok)

	m.SetBreakerState("user-store", 1)
	m.SetBreakerState("user-store", 0)

	value, ok := m.BreakerState("user-store")
	assert.True(t, ok)
	assert.Equal(t, 0.0, value)
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/profile", "GET", 200, time.Millisecond)
	m.RecordError("/profile", "GET", "INTERNAL_ERROR")
	m.ObserveOperation("op", true, time.Millisecond)
	m.SetBreakerState("b", 1)
}
