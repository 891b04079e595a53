package engine

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/hyperstub/internal/fixtures"
	"github.com/getmockd/hyperstub/pkg/metrics"
	"github.com/getmockd/hyperstub/pkg/schema"
)

func newTestServer(t *testing.T, opts ...ServerOption) *Server {
	t.Helper()
	s, err := schema.Parse(fixtures.Heroku)
	require.NoError(t, err)
	srv, err := NewServer(s, opts...)
	require.NoError(t, err)
	return srv
}

func serve(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHandler_Synthesizes(t *testing.T) {
	srv := newTestServer(t)

	rec, body := serve(t, srv.Handler(), http.MethodGet, "/account")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{
		"allow_tracking": true,
		"beta":           false,
		"created_at":     "2012-01-01T12:00:00Z",
		"email":          "username@example.com",
		"id":             "01234567-89ab-cdef-0123-456789abcdef",
		"last_login":     "2012-01-01T12:00:00Z",
		"name":           "Tina Edmonds",
		"updated_at":     "2012-01-01T12:00:00Z",
		"verified":       false,
	}, body)
}

func TestHandler_PathPropertiesAndStatus(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantName   any
	}{
		{name: "get feature", method: "GET", path: "/account/features/fooFeature", wantStatus: 200, wantName: "fooFeature"},
		{name: "patch app", method: "PATCH", path: "/apps/my-app", wantStatus: 200, wantName: "my-app"},
		{name: "create app", method: "POST", path: "/apps", wantStatus: 201, wantName: "example"},
		{name: "lower case method", method: "get", path: "/apps/lower", wantStatus: 200, wantName: "lower"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := serve(t, srv.Handler(), tt.method, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantName, body["name"])
		})
	}

	rec, body := serve(t, srv.Handler(), http.MethodDelete, "/apps/my-app")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, body)
	assert.Empty(t, rec.Body.String())
}

func TestHandler_NotFound(t *testing.T) {
	srv := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/nope"},
		{"DELETE", "/account/features/fooFeature"},
		{"GET", "/account/"},
	} {
		rec, body := serve(t, srv.Handler(), tc.method, tc.path)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, map[string]any{"error": "Not found"}, body)
	}
}

func TestHandler_StubPrecedence(t *testing.T) {
	srv := newTestServer(t)

	srv.Stub("GET", "/account", map[string]any{"foo": "bar"}, 206)
	rec, body := serve(t, srv.Handler(), http.MethodGet, "/account")
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, map[string]any{"foo": "bar"}, body)

	rec, _ = serve(t, srv.Handler(), http.MethodPatch, "/account")
	assert.Equal(t, http.StatusOK, rec.Code, "stubs are per method")

	assert.True(t, srv.Unstub("GET", "/account"))
	rec, body = serve(t, srv.Handler(), http.MethodGet, "/account")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tina Edmonds", body["name"])

	srv.Stub("GET", "/nowhere", map[string]any{"ok": true}, 0)
	rec, body = serve(t, srv.Handler(), http.MethodGet, "/nowhere")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"ok": true}, body)

	srv.UnstubAll()
	assert.Empty(t, srv.Stubs())
	rec, _ = serve(t, srv.Handler(), http.MethodGet, "/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_EncodedPaths(t *testing.T) {
	srv := newTestServer(t)

	srv.Stub("GET", "/files/a%2Fb", map[string]any{"foo": "bar"}, 206)
	rec, body := serve(t, srv.Handler(), http.MethodGet, "/files/a%2Fb")
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, map[string]any{"foo": "bar"}, body)

	rec, _ = serve(t, srv.Handler(), http.MethodGet, "/files/a/b")
	assert.Equal(t, http.StatusNotFound, rec.Code, "stub paths match exactly")

	tests := []struct {
		path string
		want int
	}{
		{path: "/apps/a-b", want: http.StatusOK},
		{path: "/apps/a%2Db", want: http.StatusNotFound},
		{path: "/apps/a%20b", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, _ := serve(t, srv.Handler(), http.MethodGet, tt.path)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandler_StubDefaultStatus(t *testing.T) {
	srv := newTestServer(t)

	srv.Stub("POST", "/apps", map[string]any{"id": "x"}, 0)
	srv.Stub("DELETE", "/apps", map[string]any{"id": "x"}, 0)

	rec, _ := serve(t, srv.Handler(), http.MethodPost, "/apps")
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = serve(t, srv.Handler(), http.MethodDelete, "/apps")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandler_SynthesisError(t *testing.T) {
	s, err := schema.Parse([]byte(`{"definitions": {"w": {
		"links": [{"method": "GET", "href": "/w"}],
		"properties": {"gone": {"$ref": "#/definitions/w/definitions/gone"}}
	}}}`))
	require.NoError(t, err)
	srv, err := NewServer(s)
	require.NoError(t, err)

	rec, body := serve(t, srv.Handler(), http.MethodGet, "/w")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["error"], "broken reference")
}

func TestHandler_RequestID(t *testing.T) {
	srv := newTestServer(t)

	rec, _ := serve(t, srv.Handler(), http.MethodGet, "/account")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/account", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
}

func TestHandler_Dispatch(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.Handler().Dispatch("GET", "/regions/eu")
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, metrics.OutcomeSynthesized, resp.Outcome)
	assert.Equal(t, map[string]any{"id": "01234567-89ab-cdef-0123-456789abcdef", "name": "eu"}, resp.Body)

	resp = srv.Handler().Dispatch("GET", "/apps/example/builds/b-1/result")
	require.Equal(t, http.StatusOK, resp.Status)
	lines := resp.Body.(map[string]any)["lines"].([]any)
	assert.Equal(t, map[string]any{"line": "-----> Ruby app detected\n", "stream": "STDOUT"}, lines[0])
}

func TestHandler_Metrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	srv := newTestServer(t, WithMetrics(m))

	serve(t, srv.Handler(), http.MethodGet, "/account")
	serve(t, srv.Handler(), http.MethodGet, "/missing")
	srv.Stub("GET", "/s", nil, 0)
	serve(t, srv.Handler(), http.MethodGet, "/s")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "synthesized", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "not_found", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "stub", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StubsActive))

	srv.UnstubAll()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StubsActive))
}
