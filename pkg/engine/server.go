package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/getmockd/hyperstub/pkg/factory"
	"github.com/getmockd/hyperstub/pkg/logging"
	"github.com/getmockd/hyperstub/pkg/metrics"
	"github.com/getmockd/hyperstub/pkg/schema"
	"github.com/getmockd/hyperstub/pkg/stub"
	"github.com/getmockd/hyperstub/pkg/synth"
)

// Default timeouts of the mock listener.
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
)

// ErrAlreadyRunning is returned by Start on a running server.
var ErrAlreadyRunning = errors.New("server is already running")

// Server is a mock API server for one schema. Each Server owns its stubs
// and literal factory definitions.
type Server struct {
	schema  *schema.Schema
	index   *synth.Index
	factory *factory.Factory
	stubs   *stub.Store
	handler *Handler
	log     *slog.Logger
	metrics *metrics.Metrics

	validate     bool
	cacheSize    int
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu         sync.RWMutex
	httpServer *http.Server
	addr       net.Addr
	serveErr   chan error
	startTime  time.Time
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithLogger sets the operational logger for the server.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics records request and stub metrics.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithFactoryValidation enables type and enum validation of factory
// custom properties.
func WithFactoryValidation(enabled bool) ServerOption {
	return func(s *Server) {
		s.validate = enabled
	}
}

// WithIndexCacheSize sets the path lookup cache size.
func WithIndexCacheSize(n int) ServerOption {
	return func(s *Server) {
		s.cacheSize = n
	}
}

// WithReadTimeout sets the listener read timeout.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.readTimeout = d
	}
}

// WithWriteTimeout sets the listener write timeout.
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.writeTimeout = d
	}
}

// NewServer builds a server for sch. Link templates are compiled here, so
// a malformed href fails construction.
func NewServer(sch *schema.Schema, opts ...ServerOption) (*Server, error) {
	if sch == nil {
		return nil, errors.New("schema is required")
	}

	s := &Server{
		schema:       sch,
		stubs:        stub.NewStore(),
		log:          logging.Nop(),
		cacheSize:    synth.DefaultCacheSize,
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	idx, err := synth.NewIndex(sch, synth.WithCacheSize(s.cacheSize))
	if err != nil {
		return nil, err
	}
	s.index = idx
	s.factory = factory.New(sch,
		factory.WithValidation(s.validate),
		factory.WithLogger(logging.Component(s.log, "factory")),
	)
	s.handler = &Handler{
		index:   idx,
		synth:   synth.NewSynthesizer(sch),
		stubs:   s.stubs,
		log:     logging.Component(s.log, "handler"),
		metrics: s.metrics,
	}
	s.metrics.SetStubs(0)
	return s, nil
}

// Start binds addr and serves in the background. It returns once the
// socket is bound; an empty addr picks any free port.
func (s *Server) Start(ctx context.Context, addr string) (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return nil, ErrAlreadyRunning
	}
	if addr == "" {
		addr = ":0"
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}
	serveErr := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("mock server error", "error", err)
		}
		serveErr <- err
	}()

	s.httpServer = srv
	s.addr = ln.Addr()
	s.serveErr = serveErr
	s.startTime = time.Now()
	s.log.Info("mock server started", "addr", s.addr.String(), "definitions", len(s.schema.Definitions()))
	return s.addr, nil
}

// Stop shuts the listener down and waits for in-flight requests until ctx
// is done, then closes whatever connections remain. Stopping a server that
// is not running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		// Connections still open past the deadline are dropped.
		if cerr := s.httpServer.Close(); cerr != nil {
			s.log.Warn("mock server close failed", "error", cerr)
		}
	}
	<-s.serveErr
	s.log.Info("mock server stopped", "addr", s.addr.String())

	s.httpServer = nil
	s.addr = nil
	s.serveErr = nil
	if err != nil {
		return fmt.Errorf("mock server shutdown: %w", err)
	}
	return nil
}

// Addr returns the bound address, or nil when stopped.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// IsRunning reports whether the listener is bound.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.httpServer != nil
}

// Uptime returns the time since Start, or zero when stopped.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.httpServer == nil {
		return 0
	}
	return time.Since(s.startTime)
}

// Handler returns the mock request handler.
func (s *Server) Handler() *Handler {
	return s.handler
}

// Schema returns the loaded schema.
func (s *Server) Schema() *schema.Schema {
	return s.schema
}

// Routes lists every link of the schema.
func (s *Server) Routes() []synth.Route {
	return s.index.Routes()
}

// Defined returns the names of literal factory definitions.
func (s *Server) Defined() []string {
	return s.factory.Defined()
}

// Factory builds an object for the named definition with custom merged
// on top.
func (s *Server) Factory(name string, custom map[string]any) (map[string]any, error) {
	return s.factory.Build(name, custom)
}

// DefineFactory registers a literal definition used instead of the schema
// for name.
func (s *Server) DefineFactory(name string, props map[string]any) {
	s.factory.Define(name, props)
}

// Stub forces the response for method and path. A zero status selects the
// method default.
func (s *Server) Stub(method, path string, body any, status int) stub.Stub {
	st := s.stubs.Add(method, path, body, status)
	s.metrics.SetStubs(s.stubs.Count())
	s.log.Debug("stub added", "method", st.Method, "path", path, "status", st.StatusCode)
	return st
}

// Unstub removes the stub for method and path and reports whether one
// existed.
func (s *Server) Unstub(method, path string) bool {
	removed := s.stubs.Remove(method, path)
	s.metrics.SetStubs(s.stubs.Count())
	return removed
}

// UnstubAll removes every stub.
func (s *Server) UnstubAll() {
	s.stubs.Clear()
	s.metrics.SetStubs(0)
}

// Stubs lists registered stubs.
func (s *Server) Stubs() []stub.Stub {
	return s.stubs.List()
}
