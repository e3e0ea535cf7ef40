package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/geocoder89/mediahub/internal/config"
	"github.com/geocoder89/mediahub/internal/db"
	"github.com/geocoder89/mediahub/internal/observability"
	"github.com/geocoder89/mediahub/internal/sweeper"
)

const serviceName = "mediahub-sweeper"

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env, serviceName)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	stores, err := db.Open(ctx, cfg, prom, log)
	if err != nil {
		log.Error("store init failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer stores.Close()

	s := sweeper.New(sweeper.Config{
		Interval:   cfg.SweepInterval,
		RunTimeout: 10 * time.Second,
		MaxBackoff: 5 * time.Minute,
	}, stores.Users, observability.NewSweepMetrics(), prom, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.SweeperPort),
		Handler:           s.HealthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("sweeper health server starting", "port", cfg.SweeperPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server failed", "err", err)
		}
	}()

	log.Info("sweeper has started", "interval", cfg.SweepInterval.String(), "store", cfg.StoreDriver)

	if err := s.Run(ctx); err != nil {
		log.Error("sweeper stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("health server shutdown failed", "err", err)
	}

	log.Info("sweeper shutdown complete")
}
