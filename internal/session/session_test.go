package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vltd-dashboard/internal/backend"
	"vltd-dashboard/internal/tokenstore"
	"vltd-dashboard/internal/usecase/activation"
	appErrors "vltd-dashboard/pkg/errors"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestManager_IssueAndVerify(t *testing.T) {
	m := NewManager(secret, time.Hour)

	token, expiresAt, err := m.Issue("sess-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	id, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)
}

func TestManager_RejectsBadTokens(t *testing.T) {
	m := NewManager(secret, time.Hour)
	token, _, err := m.Issue("sess-1")
	require.NoError(t, err)

	_, err = NewManager("another-secret-another-secret-xx", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "sess-1", Issuer: issuer})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func newTestRegistry(ttl time.Duration) *Registry {
	return NewRegistry(Dependencies{
		Backend: backend.New(backend.Options{BaseURL: "http://127.0.0.1:1"}, nil),
	}, ttl)
}

func TestRegistry_SessionsAreIsolated(t *testing.T) {
	r := newTestRegistry(time.Hour)
	a := r.Start()
	b := r.Start()
	require.NotEqual(t, a.ID, b.ID)

	require.NoError(t, a.Tokens.Set(tokenstore.RoleRFC, "tok-a"))
	_, ok := b.Tokens.Get(tokenstore.RoleRFC)
	assert.False(t, ok)

	got, ok := r.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Same(t, a.Tokens, got.Client.Tokens())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_ExpiresIdleSessions(t *testing.T) {
	r := newTestRegistry(time.Minute)
	clock := time.Now()
	r.now = func() time.Time { return clock }

	idle := r.Start()
	active := r.Start()

	clock = clock.Add(45 * time.Second)
	_, ok := r.Get(active.ID)
	require.True(t, ok)

	clock = clock.Add(30 * time.Second)
	assert.Equal(t, 1, r.Sweep())
	_, ok = r.Get(idle.ID)
	assert.False(t, ok)
	_, ok = r.Get(active.ID)
	assert.True(t, ok)
}

func TestSession_ActivationNeedsRoleToken(t *testing.T) {
	r := newTestRegistry(time.Hour)
	s := r.Start()

	_, err := s.Activations.Open(activation.VariantRFC)
	assert.Equal(t, appErrors.KindUnauthenticated, appErrors.KindOf(err))

	require.NoError(t, s.Tokens.Set(tokenstore.RoleRFC, "tok"))
	w, err := s.Activations.Open(activation.VariantRFC)
	require.NoError(t, err)
	assert.Equal(t, activation.StateSearch, w.Snapshot().State)

	_, err = s.Activations.Open(activation.VariantAdmin)
	assert.Equal(t, appErrors.KindUnauthenticated, appErrors.KindOf(err))
}

func TestSession_TrackersPerRole(t *testing.T) {
	r := newTestRegistry(time.Hour)
	s := r.Start()

	rfc, err := s.Tracker(tokenstore.RoleRFC)
	require.NoError(t, err)
	again, err := s.Tracker(tokenstore.RoleRFC)
	require.NoError(t, err)
	assert.Same(t, rfc, again)

	_, err = s.Tracker(tokenstore.RoleManufacturer)
	assert.Equal(t, appErrors.KindNotFound, appErrors.KindOf(err))

	s.Logout(tokenstore.RoleRFC)
	fresh, err := s.Tracker(tokenstore.RoleRFC)
	require.NoError(t, err)
	assert.NotSame(t, rfc, fresh)
}

func TestSession_TrackerTopicsAreScopedByAccount(t *testing.T) {
	r := newTestRegistry(time.Hour)
	a := r.Start()
	b := r.Start()
	a.SetAccount(tokenstore.RoleRFC, backend.Account{ID: "rfc-1"})
	b.SetAccount(tokenstore.RoleRFC, backend.Account{ID: "rfc-2"})

	ta, err := a.Tracker(tokenstore.RoleRFC)
	require.NoError(t, err)
	tb, err := b.Tracker(tokenstore.RoleRFC)
	require.NoError(t, err)

	assert.Equal(t, "vltd/locations/rfc/rfc-1", ta.PublishTopic())
	assert.Equal(t, "vltd/locations/rfc/rfc-2", tb.PublishTopic())

	anon := r.Start()
	tc, err := anon.Tracker(tokenstore.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "vltd/locations/admin/session-"+anon.ID, tc.PublishTopic())
}

func TestRegistry_EndReleasesState(t *testing.T) {
	r := newTestRegistry(time.Hour)
	s := r.Start()
	require.NoError(t, s.Tokens.Set(tokenstore.RoleRFC, "tok"))
	s.SetAccount(tokenstore.RoleRFC, backend.Account{ID: "rfc-1"})
	_, err := s.Activations.Open(activation.VariantRFC)
	require.NoError(t, err)

	r.End(s.ID)

	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, s.Activations.Len())
	assert.Empty(t, s.Tokens.Active())
}
