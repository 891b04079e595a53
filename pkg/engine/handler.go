package engine

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/getmockd/hyperstub/pkg/httputil"
	"github.com/getmockd/hyperstub/pkg/metrics"
	"github.com/getmockd/hyperstub/pkg/stub"
	"github.com/getmockd/hyperstub/pkg/synth"
)

// RequestIDHeader carries the request identifier. An incoming value is
// echoed, otherwise a new one is generated.
const RequestIDHeader = "X-Request-Id"

// NotFoundMessage is the error body of unmatched requests.
const NotFoundMessage = "Not found"

// Response is the outcome of dispatching one request.
type Response struct {
	Status  int
	Body    any
	Outcome metrics.Outcome
}

// Handler answers mock requests from stubs or schema synthesis.
type Handler struct {
	index   *synth.Index
	synth   *synth.Synthesizer
	stubs   *stub.Store
	log     *slog.Logger
	metrics *metrics.Metrics
}

// Dispatch resolves a request without touching the network.
func (h *Handler) Dispatch(method, path string) Response {
	if st, ok := h.stubs.Lookup(method, path); ok {
		return Response{Status: st.StatusCode, Body: st.Body, Outcome: metrics.OutcomeStub}
	}

	m, ok := h.index.Match(method, path)
	if !ok {
		return Response{
			Status:  http.StatusNotFound,
			Body:    map[string]string{"error": NotFoundMessage},
			Outcome: metrics.OutcomeNotFound,
		}
	}

	body, err := h.synth.Synthesize(synth.PathOverrides(m.Properties), m.Definition)
	if err != nil {
		h.log.Error("synthesis failed", "method", method, "path", path, "definition", m.Definition.Name, "error", err)
		return Response{
			Status:  http.StatusInternalServerError,
			Body:    map[string]string{"error": err.Error()},
			Outcome: metrics.OutcomeError,
		}
	}

	return Response{
		Status:  httputil.DefaultStatus(method),
		Body:    body,
		Outcome: metrics.OutcomeSynthesized,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	reqID := r.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, reqID)

	// Stub keys and templates see the path as sent, still percent-encoded.
	path := r.URL.EscapedPath()
	resp := h.Dispatch(r.Method, path)
	httputil.WriteJSON(w, resp.Status, resp.Body)

	elapsed := time.Since(start)
	h.metrics.ObserveRequest(r.Method, resp.Outcome, resp.Status, elapsed)
	h.log.Debug("request handled",
		"request_id", reqID,
		"method", r.Method,
		"path", path,
		"status", resp.Status,
		"outcome", resp.Outcome,
		"duration", elapsed,
	)
}
