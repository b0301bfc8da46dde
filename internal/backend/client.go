// Package backend is the typed client for the upstream VLTD REST API. Every
// response is checked for an explicit success marker; an HTTP 200 alone is
// never treated as success.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"vltd-dashboard/internal/observability/metrics"
	"vltd-dashboard/internal/tokenstore"
	appErrors "vltd-dashboard/pkg/errors"
)

const (
	maxResponseBytes = 10 << 20

	defaultPageSize = 100
	defaultMaxPages = 200

	statusSuccess = "success"
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	PageSize   int
	MaxPages   int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the backend on behalf of one operator session. Role views
// (Manufacturer, Distributor, RFC, Admin) share its transport and token store.
type Client struct {
	baseURL  string
	hc       *http.Client
	tokens   *tokenstore.Store
	log      *zap.Logger
	pageSize int
	maxPages int
}

func New(opts Options, tokens *tokenstore.Store) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if tokens == nil {
		tokens = tokenstore.New()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		hc:       hc,
		tokens:   tokens,
		log:      log,
		pageSize: pageSize,
		maxPages: maxPages,
	}
}

// WithTokens returns a client sharing the transport but bound to another
// session's token store.
func (c *Client) WithTokens(tokens *tokenstore.Store) *Client {
	clone := *c
	clone.tokens = tokens
	return &clone
}

func (c *Client) Tokens() *tokenstore.Store {
	return c.tokens
}

func (c *Client) Manufacturer() *ManufacturerAPI { return &ManufacturerAPI{c: c} }
func (c *Client) Distributor() *DistributorAPI   { return &DistributorAPI{c: c} }
func (c *Client) RFC() *RFCAPI                   { return &RFCAPI{c: c} }
func (c *Client) Admin() *AdminAPI               { return &AdminAPI{c: c} }

// call describes one backend request.
type call struct {
	role   tokenstore.Role
	method string
	path   string
	query  url.Values
	body   interface{}
	// raw overrides body with a pre-encoded payload (multipart uploads).
	raw         io.Reader
	contentType string
	public      bool
	// expect lists response keys that count as a success marker.
	expect []string
}

// envelope is a decoded JSON response.
type envelope struct {
	status  int
	fields  map[string]json.RawMessage
	array   json.RawMessage
	marker  string
	message string
}

func (e *envelope) has(key string) bool {
	raw, ok := e.fields[key]
	return ok && len(raw) > 0 && string(raw) != "null"
}

// decode unmarshals the value under key into dst. A missing or null key leaves
// dst untouched and reports false.
func (e *envelope) decode(key string, dst interface{}) (bool, error) {
	if !e.has(key) {
		return false, nil
	}
	if err := json.Unmarshal(e.fields[key], dst); err != nil {
		return false, &appErrors.AppError{
			Code:    "MALFORMED_RESPONSE",
			Message: fmt.Sprintf("Unexpected %q in server response", key),
			Kind:    appErrors.KindTransport,
			Status:  e.status,
			Err:     err,
		}
	}
	return true, nil
}

func (c *Client) do(ctx context.Context, req call) (*envelope, error) {
	start := time.Now()
	log := c.log.With(
		zap.String("role", string(req.role)),
		zap.String("method", req.method),
		zap.String("path", req.path),
	)

	var authHeader string
	if !req.public {
		token, ok := c.tokens.Get(req.role)
		if !ok {
			log.Debug("Rejected backend call without token")
			return nil, appErrors.Unauthenticated(fmt.Sprintf("Not logged in as %s", req.role))
		}
		authHeader = token
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if authHeader != "" {
		httpReq.Header.Set("Authorization", authHeader)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		log.Error("Backend unreachable", zap.Error(err), zap.Duration("latency", time.Since(start)))
		err = networkError(ctx, err)
		observe(req, start, err)
		return nil, err
	}
	defer resp.Body.Close()

	env, err := readEnvelope(resp, req)
	observe(req, start, err)
	fields := []zap.Field{zap.Int("status_code", resp.StatusCode), zap.Duration("latency", time.Since(start))}
	if err != nil {
		log.Warn("Backend call failed", append(fields, zap.String("error", appErrors.Message(err)), zap.String("kind", string(appErrors.KindOf(err))))...)
		return nil, err
	}

	log.Debug("Backend call succeeded", fields...)
	return env, nil
}

func observe(req call, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(appErrors.KindOf(err))
	}
	metrics.BackendRequestsTotal.WithLabelValues(string(req.role), req.method, outcome).Inc()
	metrics.BackendRequestDurationSeconds.WithLabelValues(string(req.role)).Observe(time.Since(start).Seconds())
}

func (c *Client) newRequest(ctx context.Context, req call) (*http.Request, error) {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	contentType := req.contentType
	switch {
	case req.raw != nil:
		body = req.raw
	case req.body != nil:
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s request: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("building %s %s request: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	return httpReq, nil
}

func networkError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &appErrors.AppError{Code: "REQUEST_CANCELLED", Message: "Request cancelled", Kind: appErrors.KindNetwork, Err: ctxErr}
	}
	return &appErrors.AppError{Code: "NETWORK_ERROR", Message: "Cannot reach server", Kind: appErrors.KindNetwork, Err: err}
}

func readEnvelope(resp *http.Response, req call) (*envelope, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &appErrors.AppError{Code: "NETWORK_ERROR", Message: "Cannot reach server", Kind: appErrors.KindNetwork, Status: resp.StatusCode, Err: err}
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		return nil, &appErrors.AppError{
			Code:    "NON_JSON_RESPONSE",
			Message: fmt.Sprintf("Server returned a non-JSON response (HTTP %d) for %s %s", resp.StatusCode, req.method, req.path),
			Kind:    appErrors.KindTransport,
			Status:  resp.StatusCode,
		}
	}

	env := &envelope{status: resp.StatusCode}
	trimmed := bytes.TrimSpace(body)
	switch {
	case len(trimmed) == 0:
		env.fields = map[string]json.RawMessage{}
	case trimmed[0] == '[':
		env.array = json.RawMessage(trimmed)
	default:
		if err := json.Unmarshal(trimmed, &env.fields); err != nil {
			return nil, &appErrors.AppError{
				Code:    "MALFORMED_RESPONSE",
				Message: fmt.Sprintf("Server returned malformed JSON (HTTP %d)", resp.StatusCode),
				Kind:    appErrors.KindTransport,
				Status:  resp.StatusCode,
				Err:     err,
			}
		}
	}
	env.marker = stringField(env.fields, "status")
	env.message = firstString(env.fields, "message", "error", "msg")

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		msg := env.message
		if msg == "" {
			msg = "Session expired, please log in again"
		}
		return nil, &appErrors.AppError{Code: "UNAUTHENTICATED", Message: msg, Kind: appErrors.KindUnauthenticated, Status: resp.StatusCode, Err: appErrors.ErrUnauthenticated}
	}

	if env.succeeded(req.expect) {
		return env, nil
	}

	if env.marker != "" || env.message != "" || resp.StatusCode >= http.StatusBadRequest {
		msg := env.message
		if msg == "" {
			msg = "Request failed"
		}
		appErr := &appErrors.AppError{Code: "BACKEND_ERROR", Message: msg, Kind: appErrors.KindApplication, Status: resp.StatusCode}
		if resp.StatusCode == http.StatusNotFound {
			appErr.Code = "NOT_FOUND"
			appErr.Err = appErrors.ErrNotFound
		}
		return nil, appErr
	}

	return nil, &appErrors.AppError{
		Code:    "UNEXPECTED_RESPONSE",
		Message: fmt.Sprintf("Unexpected response from server (HTTP %d)", resp.StatusCode),
		Kind:    appErrors.KindTransport,
		Status:  resp.StatusCode,
	}
}

// succeeded applies the marker policy: status "success", an expected key, or
// a top-level array. Any HTTP error status fails regardless of markers.
func (e *envelope) succeeded(expect []string) bool {
	if e.status >= http.StatusBadRequest {
		return false
	}
	if e.array != nil {
		return true
	}
	if e.marker != "" {
		return strings.EqualFold(e.marker, statusSuccess)
	}
	for _, key := range expect {
		if e.has(key) {
			return true
		}
	}
	return false
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func firstString(fields map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		if s := stringField(fields, k); s != "" {
			return s
		}
	}
	return ""
}

// IsNotFound reports whether err is a backend 404 or a local not-found.
func IsNotFound(err error) bool {
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == appErrors.KindNotFound || appErr.Status == http.StatusNotFound
	}
	return false
}
