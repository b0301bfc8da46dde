// Package tracking polls live device locations while a map view is open and
// fans each snapshot out to subscribers and the MQTT broker.
package tracking

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/logger"
	"vltd-dashboard/internal/observability/metrics"
	appErrors "vltd-dashboard/pkg/errors"
)

const DefaultInterval = 10 * time.Second

// Source fetches the current locations for one role.
type Source func(ctx context.Context) ([]device.Location, error)

// Publisher is satisfied by pkg/mqtt.Client.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Snapshot is one poll result.
type Snapshot struct {
	Role      string            `json:"role"`
	Locations []device.Location `json:"locations"`
	PolledAt  time.Time         `json:"polled_at"`
	Error     string            `json:"error,omitempty"`
}

type Options struct {
	Interval  time.Duration
	Publisher Publisher
	QoS       byte
	// Owner scopes the MQTT topic to one account so operators of the same
	// role never overwrite each other's retained snapshot.
	Owner string
}

// Tracker polls only while at least one subscriber is attached.
type Tracker struct {
	role      string
	topic     string
	source    Source
	interval  time.Duration
	publisher Publisher
	qos       byte
	metrics   *MetricsTracker

	mu     sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
	latest Snapshot
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTracker(role string, source Source, opts Options) *Tracker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Tracker{
		role:      role,
		topic:     Topic(role, opts.Owner),
		source:    source,
		interval:  opts.Interval,
		publisher: opts.Publisher,
		qos:       opts.QoS,
		metrics:   NewMetricsTracker(),
		subs:      make(map[int]func(Snapshot)),
		latest:    Snapshot{Role: role},
	}
}

var topicEscaper = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// Topic is where snapshots of one account's role view are published.
func Topic(role, owner string) string {
	if owner == "" {
		return "vltd/locations/" + role
	}
	return "vltd/locations/" + role + "/" + topicEscaper.Replace(owner)
}

// Subscribe attaches fn and starts polling if it is the first subscriber.
// The returned func detaches it; polling stops with the last subscriber.
func (t *Tracker) Subscribe(fn func(Snapshot)) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	if t.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		t.cancel = cancel
		t.done = make(chan struct{})
		go t.run(ctx, t.done)
	}
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.unsubscribe(id) })
	}
}

func (t *Tracker) unsubscribe(id int) {
	t.mu.Lock()
	delete(t.subs, id)
	if len(t.subs) > 0 || t.cancel == nil {
		t.mu.Unlock()
		return
	}
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	cancel()
	<-done
}

// Subscribers reports how many viewers are attached.
func (t *Tracker) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Stop detaches every subscriber and stops polling.
func (t *Tracker) Stop() {
	t.mu.Lock()
	t.subs = make(map[int]func(Snapshot))
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (t *Tracker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.poll(ctx)
		}
	}
}

func (t *Tracker) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, t.interval)
	defer cancel()
	if _, err := t.Refresh(pollCtx); err != nil && ctx.Err() == nil {
		logger.Warn("Location poll failed",
			zap.String("role", t.role),
			zap.String("error", appErrors.Message(err)),
		)
	}
}

// Refresh polls once, stores the result and notifies subscribers.
func (t *Tracker) Refresh(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	locations, err := t.source(ctx)
	metrics.LocationPollsTotal.WithLabelValues(t.role, metrics.Result(err)).Inc()

	snap := Snapshot{Role: t.role, Locations: locations, PolledAt: time.Now().UTC()}
	t.metrics.Update(func(m *PollMetrics) {
		m.Polls++
		m.LastPolledAt = snap.PolledAt
		m.LastLatency = time.Since(start)
		if err != nil {
			m.Failures++
		} else {
			m.LastCount = len(locations)
		}
	})

	t.mu.Lock()
	if err != nil {
		snap.Error = appErrors.Message(err)
		// Keep showing the last good positions alongside the error.
		snap.Locations = t.latest.Locations
	}
	t.latest = snap
	subs := make([]func(Snapshot), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	if err != nil {
		return snap, err
	}

	t.publish(snap)
	return snap, nil
}

func (t *Tracker) publish(snap Snapshot) {
	if t.publisher == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err == nil {
		err = t.publisher.Publish(t.topic, t.qos, true, payload)
	}
	if err != nil {
		t.metrics.Update(func(m *PollMetrics) { m.PublishFailures++ })
		logger.Warn("Failed to publish locations",
			zap.String("topic", t.topic),
			zap.Error(err),
		)
	}
}

// Latest returns the last poll result without polling.
func (t *Tracker) Latest() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

// PublishTopic is the MQTT topic this tracker publishes to.
func (t *Tracker) PublishTopic() string {
	return t.topic
}

func (t *Tracker) Metrics() PollMetrics {
	return t.metrics.Snapshot()
}
