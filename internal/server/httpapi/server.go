// Package httpapi exposes the sync server over HTTP: health probes, device
// enrollment and the batch sync endpoint.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/recipesync/internal/logging"
	"github.com/dmitrijs2005/recipesync/internal/server/config"
	"github.com/gorilla/mux"
)

// NewRouter wires the routes. The sync endpoint sits behind the bearer
// token check.
func NewRouter(l logging.Logger, sync BatchProcessor, auth Authenticator) http.Handler {
	h := &handlers{sync: sync, auth: auth, logger: l, now: time.Now}

	r := mux.NewRouter()
	r.Use(loggingMiddleware(l))

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sync/health", h.syncHealth).Methods(http.MethodGet)
	api.HandleFunc("/auth/token", h.token).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware(auth))
	protected.HandleFunc("/sync", h.syncBatch).Methods(http.MethodPost)

	return r
}

type Server struct {
	config *config.Config
	logger logging.Logger
	srv    *http.Server
}

func NewServer(cfg *config.Config, l logging.Logger, sync BatchProcessor, auth Authenticator) *Server {
	l = l.With("module", "http_server")
	return &Server{
		config: cfg,
		logger: l,
		srv: &http.Server{
			Addr:         cfg.EndpointAddrHTTP,
			Handler:      NewRouter(l, sync, auth),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		done <- s.srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := s.srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-done
}
