package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRollingWindow_CountsWithinWindow(t *testing.T) {
	w := newRollingWindow(time.Second, 10)
	now := time.Now()

	w.add(now, true)
	w.add(now, false)
	w.add(now.Add(50*time.Millisecond), false)

	successes, failures := w.counts(now.Add(60 * time.Millisecond))
	assert.Equal(t, 1, successes)
	assert.Equal(t, 2, failures)
}

func TestRollingWindow_ExpiresOldBuckets(t *testing.T) {
	w := newRollingWindow(time.Second, 10)
	now := time.Now()

	w.add(now, false)
	w.add(now, false)

	// after a full window the old failures no longer count
	successes, failures := w.counts(now.Add(1100 * time.Millisecond))
	assert.Zero(t, successes)
	assert.Zero(t, failures)
}

func TestRollingWindow_Reset(t *testing.T) {
	w := newRollingWindow(time.Second, 10)
	now := time.Now()

	w.add(now, false)
	w.reset()

	_, failures := w.counts(now)
	assert.Zero(t, failures)
}
