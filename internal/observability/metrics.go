package observability

import (
	"strconv"
	"sync"
	"time"
)

// OperationStats aggregates duration observations for one
// {operation, success} series.
type OperationStats struct {
	Count int64
	Total time.Duration
	Max   time.Duration
}

// Metrics provides in-memory counters and gauges: HTTP request counts,
// per-operation duration observations emitted by the retrying executor, and
// breaker state gauges (Closed=1, HalfOpen=0.5, Open=0). It satisfies
// resilience.Observer.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	operations    map[string]OperationStats
	breakerStates map[string]float64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		operations:    make(map[string]OperationStats),
		breakerStates: make(map[string]float64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// ObserveOperation records one end-to-end guarded operation duration.
func (m *Metrics) ObserveOperation(operation string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	key := operation + "|" + strconv.FormatBool(success)
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.operations[key]
	stats.Count++
	stats.Total += duration
	if duration > stats.Max {
		stats.Max = duration
	}
	m.operations[key] = stats
}

// SetBreakerState updates the gauge for the named breaker.
func (m *Metrics) SetBreakerState(name string, value float64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakerStates[name] = value
}

// OperationSnapshot returns the stats recorded for one {operation, success}
// series.
func (m *Metrics) OperationSnapshot(operation string, success bool) OperationStats {
	if m == nil {
		return OperationStats{}
	}
	key := operation + "|" + strconv.FormatBool(success)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.operations[key]
}

// BreakerState returns the last gauge value reported for the named breaker.
func (m *Metrics) BreakerState(name string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.breakerStates[name]
	return value, ok
}
