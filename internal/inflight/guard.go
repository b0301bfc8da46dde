// Package inflight rejects a mutation while another one for the same resource
// is still running.
package inflight

import (
	"sync"

	appErrors "vltd-dashboard/pkg/errors"
)

// Guard tracks in-flight resource keys.
type Guard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func New() *Guard {
	return &Guard{active: make(map[string]struct{})}
}

// Acquire claims key. The returned release func must be called when the
// mutation finishes; calling it more than once is harmless.
func (g *Guard) Acquire(key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[key]; busy {
		return nil, appErrors.Conflict("IN_FLIGHT", appErrors.ErrInFlight.Error(), appErrors.ErrInFlight)
	}
	g.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, key)
			g.mu.Unlock()
		})
	}, nil
}

// AcquireAll claims every key or none of them.
func (g *Guard) AcquireAll(keys ...string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, key := range keys {
		if _, busy := g.active[key]; busy {
			return nil, appErrors.Conflict("IN_FLIGHT", appErrors.ErrInFlight.Error(), appErrors.ErrInFlight)
		}
	}
	for _, key := range keys {
		g.active[key] = struct{}{}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			for _, key := range keys {
				delete(g.active, key)
			}
			g.mu.Unlock()
		})
	}, nil
}

// Do runs fn while holding key.
func (g *Guard) Do(key string, fn func() error) error {
	release, err := g.Acquire(key)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Busy reports whether key is currently held.
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.active[key]
	return busy
}
