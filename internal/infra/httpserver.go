package infra

import (
	"context"
	"net/http"
	"time"
)

// HTTPServer owns the lifecycle of the API listener. Start blocks until the
// listener stops; Shutdown drains in-flight requests, bounded by its context.
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer builds the API server from config. WriteTimeout is left at
// zero on purpose: the event stream endpoint holds its response open for the
// lifetime of the client, and a write deadline would cut every subscriber off
// mid-stream. Slowloris-style abuse is still bounded by the read and header
// timeouts.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadTimeout:       cfg.HTTPReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       cfg.HTTPIdleTimeout,
		},
	}
}

// Start listens and serves until Shutdown is called or the listener fails.
// It returns http.ErrServerClosed after a clean shutdown.
func (s *HTTPServer) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown stops accepting new connections and waits for active requests to
// finish. Open event streams count as active, so callers should pass a
// context with a deadline.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
