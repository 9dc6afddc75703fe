package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/heysubinoy/htkv/internal/server"
	"github.com/heysubinoy/htkv/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Server exposes read-only operational endpoints over HTTP. It never reads or
// writes keys; the line protocol server is the only path to the data.
type Server struct {
	Metrics *store.InstrumentedStore
	Store   *store.MemStore
	KV      *server.Server
	logger  hclog.Logger
}

// NewServer creates a new HTTP server over the given components.
func NewServer(metrics *store.InstrumentedStore, mem *store.MemStore, kv *server.Server, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Server{
		Metrics: metrics,
		Store:   mem,
		KV:      kv,
		logger:  logger,
	}
}

// RegisterRoutes registers all HTTP handlers on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/metrics", MetricsHandler(s.Metrics, s.Store, s.KV))
	mux.HandleFunc("/metrics/reset", ResetMetricsHandler(s.Metrics, s.logger))
	mux.HandleFunc("/healthz", s.handleHealth)
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok\n"))
}

// ListenAndServe serves the routes on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves the routes on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("metrics listening", "addr", ln.Addr().String())
		errCh <- httpSrv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
