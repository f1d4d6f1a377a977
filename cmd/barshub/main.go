// Command barshub runs the stopbar coordination hub server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/stopbars/core/internal/analytics"
	"github.com/stopbars/core/internal/catalogue"
	"github.com/stopbars/core/internal/config"
	"github.com/stopbars/core/internal/directory"
	"github.com/stopbars/core/internal/facade"
	"github.com/stopbars/core/internal/hub"
	"github.com/stopbars/core/internal/identity"
	"github.com/stopbars/core/internal/store"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	st, err := store.OpenSQLiteStore(cfg.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open durable state store")
	}

	cat, err := catalogue.NewFileCatalogue(cfg.CatalogueDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load point catalogue")
	}

	oracle := identity.NewHTTPOracle(cfg.IdentityBaseURL, cfg.IdentityTimeout)

	dir := directory.NewBcryptDirectory()
	if cfg.DirectorySeedPath != "" {
		if err := directory.LoadSeed(dir, cfg.DirectorySeedPath); err != nil {
			log.Warn().Err(err).Msg("failed to load directory seed, starting with an empty directory")
		}
	}

	sink := analytics.NewChannelSink(context.Background(), 1024, func(e analytics.Event) {
		log.Debug().Str("event", e.Name).Str("airport", e.Airport).Interface("fields", e.Fields).Msg("analytics")
	}, log)

	reg := prometheus.NewRegistry()
	metrics := hub.NewMetrics(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := hub.NewRegistry(ctx, log, cfg.Options(), st, cat, oracle, sink, metrics)

	srv := facade.New(log, registry, dir, oracle, cfg.IdentityTimeout, cfg.AllowedOrigins, reg)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Run(ctx, cfg.ListenAddr) }()

	select {
	case sig := <-shutdownCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}

	cancel()
	registry.Shutdown()

	if err := st.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close durable state store")
	}
	if err := cat.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close catalogue watcher")
	}

	log.Info().Msg("barshub shutdown complete")
}
