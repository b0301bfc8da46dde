package inflight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "vltd-dashboard/pkg/errors"
)

func TestGuard_RejectsSecondAcquire(t *testing.T) {
	g := New()

	release, err := g.Acquire("assign:imei:1")
	require.NoError(t, err)
	assert.True(t, g.Busy("assign:imei:1"))

	_, err = g.Acquire("assign:imei:1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInFlight))
	assert.Equal(t, appErrors.KindConflict, appErrors.KindOf(err))

	_, err = g.Acquire("assign:imei:2")
	assert.NoError(t, err)

	release()
	release()
	assert.False(t, g.Busy("assign:imei:1"))
}

func TestGuard_AcquireAllIsAtomic(t *testing.T) {
	g := New()
	hold, err := g.Acquire("b")
	require.NoError(t, err)

	_, err = g.AcquireAll("a", "b", "c")
	require.Error(t, err)
	assert.False(t, g.Busy("a"), "no partial claim")

	hold()
	release, err := g.AcquireAll("a", "b", "c")
	require.NoError(t, err)
	assert.True(t, g.Busy("c"))
	release()
	assert.False(t, g.Busy("a"))
}

func TestGuard_DoConcurrent(t *testing.T) {
	g := New()
	var ran int32
	start := make(chan struct{})
	block := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = g.Do("k", func() error {
			atomic.AddInt32(&ran, 1)
			close(start)
			<-block
			return nil
		})
	}()

	<-start
	err := g.Do("k", func() error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	assert.Error(t, err)

	close(block)
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
	assert.NoError(t, g.Do("k", func() error { return nil }))
}
