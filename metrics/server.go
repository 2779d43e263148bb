package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/schemashift/migrate"
)

// ServerConfig holds configuration for the scrape endpoint.
type ServerConfig struct {
	// Addr is the listen address, for example ":9090".
	Addr string

	// Path is the scrape path (default: /metrics).
	Path string

	// Logger is for observability (optional).
	Logger migrate.Logger
}

// Server exposes the engine's schemashift_migrate_* metrics over HTTP
// so long-running migration runs can be watched from Prometheus.
// Use this only when the embedding application does not already expose
// its own scrape endpoint.
type Server struct {
	config  ServerConfig
	server  *http.Server
	errChan chan error
}

// NewServer creates a metrics server on the given listen address with
// default configuration.
func NewServer(addr string) *Server {
	return NewServerWithConfig(ServerConfig{Addr: addr})
}

// NewServerWithConfig creates a metrics server with custom configuration.
// Applies default values for all optional config fields.
func NewServerWithConfig(cfg ServerConfig) *Server {
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	return &Server{
		config: cfg,
		server: &http.Server{
			Addr:    cfg.Addr,
			Handler: mux,
		},
		errChan: make(chan error, 1),
	}
}

// Start starts serving scrapes in a goroutine and returns immediately.
// Check Err() to detect startup failures. Use Shutdown to stop.
func (s *Server) Start() {
	if s.config.Logger != nil {
		s.config.Logger.Info(context.Background(), "metrics server listening",
			"addr", s.config.Addr, "path", s.config.Path)
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.config.Logger != nil {
				s.config.Logger.Error(context.Background(), "metrics server failed",
					"addr", s.config.Addr, "error", err)
			}
			s.errChan <- err
		}
	}()
}

// Err returns any error that occurred while serving.
// Non-blocking; returns nil if no error has occurred.
func (s *Server) Err() error {
	select {
	case err := <-s.errChan:
		return err
	default:
		return nil
	}
}

// Shutdown gracefully stops the server, waiting for in-flight scrapes
// up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.config.Logger != nil {
		s.config.Logger.Info(ctx, "metrics server stopping", "addr", s.config.Addr)
	}
	return s.server.Shutdown(ctx)
}
