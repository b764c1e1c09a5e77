package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/unicorns/internal/dashboard"
	"github.com/alfredjeanlab/unicorns/internal/derive"
	"github.com/alfredjeanlab/unicorns/internal/events"
	"github.com/alfredjeanlab/unicorns/internal/export"
	"github.com/alfredjeanlab/unicorns/internal/render"
	"github.com/alfredjeanlab/unicorns/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Load the dataset and serve a live dashboard session over HTTP",
	GroupID: "system",
	// Override PersistentPreRunE so we don't create a client.
	PersistentPreRunE: localPreRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		ctx := context.Background()

		cfg, tuning, err := loadConfig()
		if err != nil {
			return err
		}

		entities, err := loadEntities(ctx, cfg, logger)
		if err != nil {
			return err
		}

		bus := events.NewBus(events.WithLogger(logger))

		// Mirror bus events to NATS when configured.
		var publisher events.Publisher = &events.NoopPublisher{}
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return err
			}
			publisher = pub
			bus.Mirror(ctx, pub)
			logger.Info("event mirror enabled", "nats_url", cfg.NATSURL)
		} else {
			logger.Info("event mirror disabled (UNICORNS_NATS_URL not set)")
		}

		recorder := render.NewRecorder()
		opts := dashboard.Options{Derive: tuning.DeriveOptions(), Layout: tuning.LayoutConfig()}
		session, err := dashboard.NewSession(ctx, entities, bus, recorder, opts, logger)
		if err != nil {
			publisher.Close()
			return err
		}

		dashServer, err := server.NewDashboardServer(session, recorder, logger)
		if err != nil {
			session.Close()
			publisher.Close()
			return err
		}

		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: dashServer.NewHTTPHandler(cfg.AuthToken),
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Periodic snapshots of the session's current datasets.
		var scheduler *export.Scheduler
		if cfg.SnapshotsEnabled() {
			if dests := snapshotDestinations(ctx, cfg, logger); len(dests) > 0 {
				scheduler = export.NewScheduler(sessionSource(session), dests, cfg.SnapshotInterval, logger)
				scheduler.Start()
				logger.Info("snapshot scheduler started", "interval", cfg.SnapshotInterval)
			}
		}

		logger.Info("dashboard started",
			"session", session.ID,
			"http_addr", cfg.HTTPAddr,
			"years", entities.YearExtent().String(),
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("snapshot scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		dashServer.Close()
		session.Close()

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// sessionSource computes the session's datasets on its loop.
func sessionSource(s *dashboard.Session) export.Source {
	return func(ctx context.Context) (*derive.Datasets, error) {
		var ds *derive.Datasets
		if err := s.Do(ctx, func(c *dashboard.Coordinator) { ds = c.Datasets() }); err != nil {
			return nil, fmt.Errorf("session %s: %w", s.ID, err)
		}
		return ds, nil
	}
}
