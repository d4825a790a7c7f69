package resilience

import "time"

// rollingWindow aggregates success/failure counts over a sliding interval
// using a fixed ring of time buckets. Buckets older than the window are
// lazily recycled; no background goroutine is needed. Not safe for
// concurrent use on its own, the breaker serializes access under its mutex.
type rollingWindow struct {
	span    time.Duration // width of one bucket
	buckets []windowBucket
}

type windowBucket struct {
	epoch     int64
	successes int
	failures  int
}

func newRollingWindow(window time.Duration, buckets int) *rollingWindow {
	if buckets <= 0 {
		buckets = 10
	}
	span := window / time.Duration(buckets)
	if span <= 0 {
		span = time.Millisecond
	}
	return &rollingWindow{
		span:    span,
		buckets: make([]windowBucket, buckets),
	}
}

func (w *rollingWindow) add(now time.Time, success bool) {
	bucket := w.bucketFor(now)
	if success {
		bucket.successes++
	} else {
		bucket.failures++
	}
}

func (w *rollingWindow) counts(now time.Time) (successes, failures int) {
	current := w.epoch(now)
	oldest := current - int64(len(w.buckets)) + 1
	for i := range w.buckets {
		b := &w.buckets[i]
		if b.epoch >= oldest && b.epoch <= current {
			successes += b.successes
			failures += b.failures
		}
	}
	return successes, failures
}

func (w *rollingWindow) reset() {
	for i := range w.buckets {
		w.buckets[i] = windowBucket{}
	}
}

func (w *rollingWindow) epoch(now time.Time) int64 {
	return now.UnixNano() / int64(w.span)
}

func (w *rollingWindow) bucketFor(now time.Time) *windowBucket {
	epoch := w.epoch(now)
	idx := int(epoch % int64(len(w.buckets)))
	bucket := &w.buckets[idx]
	if bucket.epoch != epoch {
		*bucket = windowBucket{epoch: epoch}
	}
	return bucket
}
