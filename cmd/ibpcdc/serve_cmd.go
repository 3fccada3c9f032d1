// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/ibpcdc/internal/api"
	"github.com/ManuGH/ibpcdc/internal/catalog"
	"github.com/ManuGH/ibpcdc/internal/config"
	xglog "github.com/ManuGH/ibpcdc/internal/log"
	"github.com/ManuGH/ibpcdc/internal/specset"
	"github.com/ManuGH/ibpcdc/internal/telemetry"
	"github.com/ManuGH/ibpcdc/internal/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the spec directory over HTTP",
		Long: `Loads the spec directory, watches it for changes and serves the inspection API.
Settings come from defaults, then the --config file, then IBPCDC_* environment variables.
SIGHUP forces a reload.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString(flagConfig)
			cfg, err := config.NewLoader(configPath, version.Version).Load()
			if err != nil {
				return err
			}

			xglog.Reset()
			xglog.Configure(xglog.Config{
				Level:   cfg.LogLevel,
				Service: cfg.LogService,
				Version: version.Version,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, nil)
		},
	}
	cmd.Flags().StringP(flagConfig, "c", "", "service configuration file (YAML)")
	return cmd
}

// serve runs the inspection API until ctx is cancelled. When ready is not nil
// it receives the bound listener address once the server accepts connections.
func serve(ctx context.Context, cfg config.AppConfig, ready chan<- string) error {
	logger := xglog.WithComponent("serve")

	holder := specset.New(cfg.SpecDir)
	if err := holder.Reload(ctx); err != nil {
		return fmt.Errorf("initial spec load: %w", err)
	}

	store, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	tracing, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Exporter:       cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "tracing.shutdown_failed").Msg("failed to flush traces")
		}
	}()

	srv := api.New(api.Config{
		Version:     cfg.Version,
		ServiceName: cfg.LogService,
		RateLimit: api.RateLimitConfig{
			Requests:  cfg.RateLimit.Requests,
			Window:    cfg.RateLimit.Window,
			Whitelist: cfg.RateLimit.Whitelist,
		},
	}, holder, store)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}
	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Watching is best-effort; the initial set keeps serving without it.
	if cfg.Watch {
		if err := holder.StartWatcher(ctx); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "specset.watcher_start_failed").Msg("failed to start spec watcher")
		} else {
			defer holder.Stop()
		}
	}

	g.Go(func() error {
		return reloadOnSignal(ctx, holder, logger)
	})

	g.Go(func() error {
		logger.Info().
			Str(xglog.FieldEvent, "server.started").
			Str("addr", ln.Addr().String()).
			Str(xglog.FieldDir, cfg.SpecDir).
			Int("specs", holder.Current().Len()).
			Msg("serving inspection API")
		if ready != nil {
			ready <- ln.Addr().String()
		}
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
		}
		logger.Info().Str(xglog.FieldEvent, "server.stopped").Msg("inspection API stopped")
		return nil
	})

	return g.Wait()
}

func reloadOnSignal(ctx context.Context, holder *specset.Holder, logger zerolog.Logger) error {
	hupChan := make(chan os.Signal, 1)
	signal.Notify(hupChan, syscall.SIGHUP)
	defer signal.Stop(hupChan)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hupChan:
			logger.Info().Str(xglog.FieldEvent, "specset.reload_signal").Msg("received SIGHUP, reloading specs")
			if err := holder.Reload(ctx); err != nil {
				logger.Warn().Err(err).Str(xglog.FieldEvent, "specset.reload_failed").Msg("spec reload failed")
			}
		}
	}
}
