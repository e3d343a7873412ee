// Package health implements the proxy's liveness/readiness HTTP
// endpoints. Readiness is a bool the caller toggles explicitly (true
// once the proxy's listener is up, false on shutdown) rather than this
// package polling the proxy directly, keeping health free of a core
// import.
package health

import (
	"context"
	"net/http"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Server is the liveness/readiness HTTP server. It never blocks
// startup: Start runs ListenAndServe in a goroutine and logs a failure
// instead of propagating it.
type Server struct {
	server *http.Server
	ready  atomic.Bool
	logger *zap.Logger
}

func NewServer(addr string, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		server: &http.Server{Addr: addr, Handler: mux},
		logger: logger,
	}
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	return s
}

func (s *Server) Start() {
	go func() {
		s.logger.Info("health server listening", zap.String("address", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Warn("health server stopped", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) SetReady(ready bool) { s.ready.Store(ready) }

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if s.ready.Load() {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte("not ready"))
}
