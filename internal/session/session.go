// Package session keeps the server-side state of each browser session: the
// per-role backend tokens, open activation dialogs and live-map trackers.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vltd-dashboard/internal/backend"
	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/domain/organization"
	"vltd-dashboard/internal/inflight"
	"vltd-dashboard/internal/logger"
	"vltd-dashboard/internal/observability/metrics"
	"vltd-dashboard/internal/tokenstore"
	"vltd-dashboard/internal/usecase/activation"
	"vltd-dashboard/internal/usecase/onboarding"
	"vltd-dashboard/internal/usecase/tracking"
	appErrors "vltd-dashboard/pkg/errors"
)

// Dependencies are shared by every session.
type Dependencies struct {
	Backend         *backend.Client
	Guard           *inflight.Guard
	ResetDelay      time.Duration
	DefaultPassword string
	Tracking        tracking.Options
}

// Session is one operator's browser session.
type Session struct {
	ID          string
	Tokens      *tokenstore.Store
	Client      *backend.Client
	Activations *activation.Registry

	deps Dependencies

	mu       sync.Mutex
	accounts map[tokenstore.Role]backend.Account
	trackers map[tokenstore.Role]*tracking.Tracker
	uploads  []onboarding.UploadResult
	lastSeen time.Time
}

func newSession(id string, deps Dependencies, now time.Time) *Session {
	tokens := tokenstore.New()
	s := &Session{
		ID:       id,
		Tokens:   tokens,
		Client:   deps.Backend.WithTokens(tokens),
		deps:     deps,
		accounts: make(map[tokenstore.Role]backend.Account),
		trackers: make(map[tokenstore.Role]*tracking.Tracker),
		lastSeen: now,
	}
	s.Activations = activation.NewRegistry(s.activationOptions)
	return s
}

func (s *Session) activationOptions(v activation.Variant) (activation.Options, error) {
	if _, ok := s.Tokens.Get(v.Role()); !ok {
		return activation.Options{}, appErrors.Unauthenticated("Please log in first")
	}

	var b activation.Backend
	if v == activation.VariantAdmin {
		b = s.Client.Admin()
	} else {
		b = s.Client.RFC()
	}
	return activation.Options{
		Backend:         b,
		Guard:           s.deps.Guard,
		ResetDelay:      s.deps.ResetDelay,
		DefaultPassword: s.deps.DefaultPassword,
	}, nil
}

// SetAccount records who is logged in for role.
func (s *Session) SetAccount(role tokenstore.Role, account backend.Account) {
	s.mu.Lock()
	s.accounts[role] = account
	s.mu.Unlock()
}

// UpdateStatus refreshes the cached approval status of the account logged in
// for role. It is a no-op when nobody is logged in for role.
func (s *Session) UpdateStatus(role tokenstore.Role, status organization.ApprovalStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.accounts[role]; ok {
		account.Status = status
		s.accounts[role] = account
	}
}

func (s *Session) Account(role tokenstore.Role) (backend.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[role]
	return a, ok
}

// SetUploads remembers the last document batch so failed slots can be retried.
func (s *Session) SetUploads(results []onboarding.UploadResult) {
	s.mu.Lock()
	s.uploads = append([]onboarding.UploadResult(nil), results...)
	s.mu.Unlock()
}

func (s *Session) Uploads() []onboarding.UploadResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]onboarding.UploadResult(nil), s.uploads...)
}

// Logout drops the role token and stops that role's live map.
func (s *Session) Logout(role tokenstore.Role) {
	s.Tokens.Remove(role)

	s.mu.Lock()
	delete(s.accounts, role)
	if role == tokenstore.RoleManufacturer {
		s.uploads = nil
	}
	t := s.trackers[role]
	delete(s.trackers, role)
	s.mu.Unlock()

	if t != nil {
		t.Stop()
	}
}

// Tracker returns the live-map tracker for role, creating it on first use.
// Only the RFC and admin views have a map.
func (s *Session) Tracker(role tokenstore.Role) (*tracking.Tracker, error) {
	var source tracking.Source
	switch role {
	case tokenstore.RoleRFC:
		source = func(ctx context.Context) ([]device.Location, error) { return s.Client.RFC().Locations(ctx) }
	case tokenstore.RoleAdmin:
		source = func(ctx context.Context) ([]device.Location, error) { return s.Client.Admin().Locations(ctx) }
	default:
		return nil, appErrors.NotFound("MAP_NOT_AVAILABLE", "No live map for this role", appErrors.ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.trackers[role]; ok {
		return t, nil
	}
	opts := s.deps.Tracking
	opts.Owner = s.trackerOwner(role)
	t := tracking.NewTracker(string(role), source, opts)
	s.trackers[role] = t
	return t, nil
}

// trackerOwner keys published locations by the logged-in account, or by the
// session when login returned no account id. Callers hold s.mu.
func (s *Session) trackerOwner(role tokenstore.Role) string {
	if account, ok := s.accounts[role]; ok && account.ID != "" {
		return account.ID
	}
	return "session-" + s.ID
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.Activations.CloseAll()

	s.mu.Lock()
	trackers := s.trackers
	s.trackers = make(map[tokenstore.Role]*tracking.Tracker)
	s.mu.Unlock()

	for _, t := range trackers {
		t.Stop()
	}
	for _, role := range s.Tokens.Active() {
		s.Tokens.Remove(role)
	}
}

// Registry holds every live session of the process.
type Registry struct {
	deps Dependencies
	ttl  time.Duration
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(deps Dependencies, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if deps.Guard == nil {
		deps.Guard = inflight.New()
	}
	return &Registry{
		deps:     deps,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Start creates an empty session.
func (r *Registry) Start() *Session {
	s := newSession(uuid.NewString(), r.deps, r.now())

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	metrics.SessionsActive.Inc()

	logger.Info("Session started", zap.String("session_id", s.ID), zap.String("event", "session_started"))
	return s
}

// Get returns a live session and marks it as used.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	now := r.now()
	if now.Sub(s.idleSince()) > r.ttl {
		r.End(id)
		return nil, false
	}
	s.touch(now)
	return s, true
}

// End closes the session and releases its dialogs and trackers.
func (r *Registry) End(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		metrics.SessionsActive.Dec()
		s.close()
		logger.Info("Session ended", zap.String("session_id", id), zap.String("event", "session_ended"))
	}
}

// Sweep ends sessions idle for longer than the ttl.
func (r *Registry) Sweep() int {
	now := r.now()

	r.mu.RLock()
	var idle []string
	for id, s := range r.sessions {
		if now.Sub(s.idleSince()) > r.ttl {
			idle = append(idle, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range idle {
		r.End(id)
	}
	return len(idle)
}

// Run sweeps on interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				logger.Info("Expired idle sessions", zap.Int("count", n))
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close ends every session.
func (r *Registry) Close() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.End(id)
	}
}
