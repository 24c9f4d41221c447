package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"cpplab-engine/internal/config"
	"cpplab-engine/internal/monitor"
)

// Server is the HTTP front of the service.
type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
}

// NewServer builds the router and middleware chain. metrics may be nil, which
// disables the metrics endpoint and in-flight tracking.
func NewServer(cfg *config.Config, handlers *Handlers, metrics *monitor.Metrics) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/execute", handlers.Execute)
	mux.HandleFunc("POST /api/compile", handlers.Compile)
	mux.HandleFunc("POST /api/analyze", handlers.Analyze)
	mux.HandleFunc("POST /api/visualize", handlers.Visualize)
	mux.HandleFunc("GET /health", handlers.Health)
	if metrics != nil && cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	mws := []Middleware{
		RequestID,
		Logging,
		Recovery,
		RateLimit(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst),
		APIKey(cfg.Security),
		MaxBody(cfg.Server.MaxRequestBody),
	}
	if metrics != nil {
		mws = append(mws, InFlight(metrics))
	}

	return &Server{
		cfg: cfg.Server,
		httpServer: &http.Server{
			Addr:         cfg.Address(),
			Handler:      Chain(mux, mws...),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Start blocks serving requests until the listener closes.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the composed handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
