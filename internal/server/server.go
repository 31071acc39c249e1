// Package server exposes place search over HTTP.
//
//	GET /search?query=&provider=&limit=&latitude=&longitude=&refresh=
//	GET /places/{id}
//	GET /healthz
//	GET /stats    (when metrics are enabled)
//
// Search results are GeoJSON FeatureCollections. Partial provider failures
// are reported in a top-level "warnings" member.
package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/Aman-CERP/placesearch/internal/cache"
	"github.com/Aman-CERP/placesearch/internal/search"
	"github.com/Aman-CERP/placesearch/internal/telemetry"
	"github.com/Aman-CERP/placesearch/pkg/place"
)

// Searcher is the search surface the server needs.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Result, error)
	Lookup(ctx context.Context, id string) (place.Place, error)
	Providers() []place.Source
	CircuitStates() map[place.Source]string
}

// ShutdownTimeout bounds graceful shutdown in Run.
const ShutdownTimeout = 10 * time.Second

// Server is the HTTP API.
type Server struct {
	searcher    Searcher
	logger      *slog.Logger
	corsOrigins []string
	cacheStats  func() cache.Stats
	metrics     func() telemetry.Snapshot
	handler     http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCORSOrigins sets the allowed CORS origins. "*" allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithCacheStats reports cache statistics on /healthz.
func WithCacheStats(stats func() cache.Stats) Option {
	return func(s *Server) {
		s.cacheStats = stats
	}
}

// WithMetrics serves search metrics on /stats.
func WithMetrics(snapshot func() telemetry.Snapshot) Option {
	return func(s *Server) {
		s.metrics = snapshot
	}
}

// New creates a Server.
func New(searcher Searcher, opts ...Option) *Server {
	s := &Server{
		searcher:    searcher,
		logger:      slog.Default(),
		corsOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /places/{id}", s.handlePlace)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.HandleFunc("GET /stats", s.handleStats)
	}

	// Order: CORS -> Recovery -> Logging -> Routes
	var handler http.Handler = mux
	handler = requestLogger(s.logger)(handler)
	handler = recovery(s.logger)(handler)
	handler = cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
	}).Handler(handler)

	s.handler = handler
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server_started", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()

	s.logger.Info("server_stopping")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
