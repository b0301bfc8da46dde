package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vltd-dashboard/internal/backend"
	"vltd-dashboard/internal/observability/metrics"
	"vltd-dashboard/internal/session"
	"vltd-dashboard/internal/tokenstore"
)

const cookieName = "vltd_session"

func init() {
	gin.SetMode(gin.TestMode)
}

func newSessionRouter(t *testing.T) (*gin.Engine, *session.Manager, *session.Registry) {
	t.Helper()
	manager := session.NewManager("0123456789abcdef0123456789abcdef", time.Hour)
	sessions := session.NewRegistry(session.Dependencies{
		Backend: backend.New(backend.Options{BaseURL: "http://127.0.0.1:1"}, nil),
	}, time.Hour)

	r := gin.New()
	r.Use(RequestIDMiddleware(), SessionMiddleware(manager, sessions, cookieName))
	r.GET("/rfc", RFCOnly(), func(c *gin.Context) {
		c.String(http.StatusOK, GetSession(c).ID)
	})
	return r, manager, sessions
}

func TestRoleMiddleware_NoSession(t *testing.T) {
	r, _, _ := newSessionRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rfc", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Please log in first")
}

func TestRoleMiddleware_RequiresRoleToken(t *testing.T) {
	r, manager, sessions := newSessionRouter(t)
	s := sessions.Start()
	token, _, err := manager.Issue(s.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/rfc", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Please log in as rfc")

	require.NoError(t, s.Tokens.Set(tokenstore.RoleRFC, "upstream"))
	req = httptest.NewRequest(http.MethodGet, "/rfc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, s.ID, w.Body.String())
}

func TestSessionMiddleware_IgnoresForgedToken(t *testing.T) {
	r, _, sessions := newSessionRouter(t)
	s := sessions.Start()
	require.NoError(t, s.Tokens.Set(tokenstore.RoleRFC, "upstream"))

	other := session.NewManager("ffffffffffffffffffffffffffffffff", time.Hour)
	forged, _, err := other.Issue(s.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/rfc", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id\nwith newline")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(0.001, 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestSizeLimitMiddleware(4))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	req.ContentLength = 10
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, int64(6<<20+1<<20), UploadSizeLimit(1<<20, 6))
}

func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/devices/:imei", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/devices/:imei", "204")
	before := testutil.ToFloat64(counter)
	for _, imei := range []string{"861234567890123", "861234567890124"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/devices/"+imei, nil))
	}
	assert.Equal(t, before+2, testutil.ToFloat64(counter))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")))
}
