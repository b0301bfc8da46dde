package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vltd-dashboard/internal/domain/device"
)

type recordingPublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
}

func (p *recordingPublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.topics)
}

func TestTracker_PollsOnlyWhileSubscribed(t *testing.T) {
	var polls int32
	source := func(ctx context.Context) ([]device.Location, error) {
		atomic.AddInt32(&polls, 1)
		return []device.Location{{IMEI: "863789450001001", Latitude: 22.57, Longitude: 88.36}}, nil
	}
	pub := &recordingPublisher{}
	tr := NewTracker("rfc", source, Options{Interval: 5 * time.Millisecond, Publisher: pub, QoS: 1, Owner: "rfc-7"})

	received := make(chan Snapshot, 16)
	unsubscribe := tr.Subscribe(func(s Snapshot) {
		select {
		case received <- s:
		default:
		}
	})

	select {
	case snap := <-received:
		assert.Equal(t, "rfc", snap.Role)
		require.Len(t, snap.Locations, 1)
		assert.Equal(t, "863789450001001", snap.Locations[0].IMEI)
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&polls) >= 3 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, tr.Subscribers())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, tr.Subscribers())

	stopped := atomic.LoadInt32(&polls)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&polls))

	require.GreaterOrEqual(t, pub.count(), 1)
	pub.mu.Lock()
	assert.Equal(t, "vltd/locations/rfc/rfc-7", pub.topics[0])
	var published Snapshot
	require.NoError(t, json.Unmarshal(pub.payloads[0], &published))
	pub.mu.Unlock()
	assert.Equal(t, "rfc", published.Role)
}

func TestTracker_RefreshFailureKeepsLastPositions(t *testing.T) {
	fail := false
	source := func(ctx context.Context) ([]device.Location, error) {
		if fail {
			return nil, errors.New("backend down")
		}
		return []device.Location{{IMEI: "1"}}, nil
	}
	pub := &recordingPublisher{}
	tr := NewTracker("admin", source, Options{Publisher: pub})

	_, err := tr.Refresh(context.Background())
	require.NoError(t, err)

	fail = true
	snap, err := tr.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, "backend down", snap.Error)
	assert.Len(t, snap.Locations, 1)
	assert.Equal(t, snap, tr.Latest())
	assert.Equal(t, 1, pub.count(), "failed polls are not published")

	m := tr.Metrics()
	assert.Equal(t, int64(2), m.Polls)
	assert.Equal(t, int64(1), m.Failures)
	assert.Equal(t, 1, m.LastCount)
}

func TestTracker_StopDetachesEveryone(t *testing.T) {
	tr := NewTracker("rfc", func(ctx context.Context) ([]device.Location, error) { return nil, nil }, Options{Interval: time.Millisecond})
	tr.Subscribe(func(Snapshot) {})
	tr.Subscribe(func(Snapshot) {})

	tr.Stop()
	assert.Equal(t, 0, tr.Subscribers())
	tr.Stop()
}

func TestTopic_ScopedByOwner(t *testing.T) {
	assert.Equal(t, "vltd/locations/admin", Topic("admin", ""))
	assert.Equal(t, "vltd/locations/admin/a-1", Topic("admin", "a-1"))
	assert.Equal(t, "vltd/locations/rfc/x_y_z_", Topic("rfc", "x/y+z#"))
}
