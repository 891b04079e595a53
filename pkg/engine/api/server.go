package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/getmockd/hyperstub/pkg/httputil"
	"github.com/getmockd/hyperstub/pkg/logging"
	"github.com/getmockd/hyperstub/pkg/metrics"
	"github.com/getmockd/hyperstub/pkg/stub"
	"github.com/getmockd/hyperstub/pkg/synth"
)

// Controller is the interface the API uses to drive a mock server.
// This is implemented by engine.Server.
type Controller interface {
	// Status
	IsRunning() bool
	Uptime() time.Duration

	// Stubs
	Stub(method, path string, body any, status int) stub.Stub
	Unstub(method, path string) bool
	UnstubAll()
	Stubs() []stub.Stub

	// Factories
	Factory(name string, custom map[string]any) (map[string]any, error)
	DefineFactory(name string, props map[string]any)
	Defined() []string

	// Schema
	Routes() []synth.Route
}

// Server is the control API server.
type Server struct {
	engine   Controller
	router   *mux.Router
	validate *validator.Validate
	log      *slog.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	httpServer *http.Server
	addr       net.Addr
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics records control requests and serves GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer creates a control API server for engine.
func NewServer(engine Controller, opts ...Option) *Server {
	s := &Server{
		engine:   engine,
		router:   mux.NewRouter(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(s.metricsMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/stubs", s.handleListStubs).Methods(http.MethodGet)
	r.HandleFunc("/stubs", s.handleCreateStub).Methods(http.MethodPost)
	r.HandleFunc("/stubs", s.handleDeleteStub).Methods(http.MethodDelete)
	r.HandleFunc("/stubs/reset", s.handleResetStubs).Methods(http.MethodPost)

	r.HandleFunc("/definitions", s.handleListDefinitions).Methods(http.MethodGet)
	r.HandleFunc("/factories/{name}", s.handleBuildFactory).Methods(http.MethodPost)
	r.HandleFunc("/factories/{name}", s.handleDefineFactory).Methods(http.MethodPut)

	if h := s.metrics.Handler(); h != nil {
		r.Handle("/metrics", h).Methods(http.MethodGet)
	}

	// mux runs middleware for matched routes only.
	r.NotFoundHandler = s.metricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteNotFound(w, "not_found", "no such route")
	}))
	r.MethodNotAllowedHandler = s.metricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start binds addr and serves in the background. It returns once the
// socket is bound.
func (s *Server) Start(ctx context.Context, addr string) (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return nil, errors.New("control API is already running")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.addr = ln.Addr()

	srv := s.httpServer
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("control API server error", "error", err)
		}
	}()
	s.log.Info("control API started", "addr", s.addr.String())
	return s.addr, nil
}

// Stop stops the control API server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		_ = s.httpServer.Close()
	}
	s.httpServer = nil
	s.addr = nil
	return err
}

// Addr returns the bound address, or nil when stopped.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
