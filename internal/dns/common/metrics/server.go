package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/haukened/zonefwd/internal/dns/common/log"
)

// NewRouter returns a router serving GET /metrics.
func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		WritePrometheus(w)
	}).Methods(http.MethodGet)
	return r
}

// Server exposes the metrics endpoint until its context is cancelled.
type Server struct {
	srv      *http.Server
	listener net.Listener
	logger   log.Logger
}

// Listen binds addr. Serving starts with Serve.
func Listen(addr string, logger log.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		srv: &http.Server{
			Handler:           NewRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: ln,
		logger:   logger,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Close releases the listener of a server that was never served.
func (s *Server) Close() error {
	return s.srv.Close()
}

// Serve blocks until ctx is done, then shuts the HTTP server down.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(s.listener)
	}()
	s.logger.Info(map[string]any{"address": s.Addr()}, "Metrics endpoint started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := s.srv.Shutdown(shutdownCtx)
		s.logger.Info(map[string]any{"address": s.Addr()}, "Metrics endpoint stopped")
		return err
	}
}
