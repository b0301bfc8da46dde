package tracking

import (
	"sync"
	"time"
)

// PollMetrics tracks location polling for one tracker.
type PollMetrics struct {
	Polls           int64         `json:"polls"`
	Failures        int64         `json:"failures"`
	PublishFailures int64         `json:"publish_failures"`
	LastPolledAt    time.Time     `json:"last_polled_at"`
	LastCount       int           `json:"last_count"`
	LastLatency     time.Duration `json:"last_latency"`
}

// MetricsTracker provides a goroutine-safe wrapper around PollMetrics.
type MetricsTracker struct {
	mu      sync.RWMutex
	metrics PollMetrics
}

func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{}
}

// Update applies a mutation in a thread-safe way.
func (t *MetricsTracker) Update(fn func(*PollMetrics)) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.metrics)
}

// Snapshot returns a copy of the current metrics.
func (t *MetricsTracker) Snapshot() PollMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.metrics
}
