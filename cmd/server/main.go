package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cpplab-engine/internal/api"
	"cpplab-engine/internal/cache"
	"cpplab-engine/internal/config"
	"cpplab-engine/internal/engine"
	"cpplab-engine/internal/monitor"
	"cpplab-engine/internal/request"
	"cpplab-engine/internal/sandbox"
	"cpplab-engine/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if os.Getenv("LOG_PRETTY") != "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	cfg := loadConfig()

	metrics := monitor.NewMetrics()
	var tracer *monitor.Tracer
	if cfg.Tracing.Enabled {
		tracer = monitor.NewTracer()
	}

	var stats *storage.StatsWriter
	var store *storage.Store
	if cfg.Database.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		s, err := storage.Connect(ctx, cfg.Database.DSN)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("statistics store unavailable, continuing without it")
		} else {
			store = s
			stats = storage.NewStatsWriter(store, 512)
		}
	}

	backend, err := sandbox.NewBackend(cfg.Sandbox, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("sandbox backend setup failed")
	}
	log.Info().Str("backend", backend.Name()).Msg("sandbox backend selected")

	validator := request.NewValidator(cfg.Limits, metrics)
	resultCache := cache.New(cfg.Cache, metrics)
	queue := sandbox.NewAdmissionQueue(cfg.Sandbox.MaxConcurrent, metrics)

	gateway := engine.New(validator, resultCache, queue, backend, engine.Options{
		Remote:  engine.NewRemoteClient(cfg.Engine),
		Metrics: metrics,
		Tracer:  tracer,
		Stats:   stats,
	})

	handlers := api.NewHandlers(gateway, queue, backend.Name())
	server := api.NewServer(cfg, handlers, metrics)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
	if stats != nil {
		stats.Close()
	}
	if store != nil {
		store.Close()
	}
	log.Info().Msg("stopped")
}

func loadConfig() *config.Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		log.Info().Msg("CONFIG_PATH not set, using defaults")
		return config.DefaultConfig()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("config load failed")
	}
	return cfg
}
