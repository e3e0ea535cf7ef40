package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geocoder89/mediahub/internal/auth"
	"github.com/geocoder89/mediahub/internal/config"
	"github.com/geocoder89/mediahub/internal/db"
	httpx "github.com/geocoder89/mediahub/internal/http"
	"github.com/geocoder89/mediahub/internal/http/middlewares"
	"github.com/geocoder89/mediahub/internal/notifications"
	"github.com/geocoder89/mediahub/internal/observability"
	"github.com/geocoder89/mediahub/internal/redisclient"
	"github.com/geocoder89/mediahub/internal/security"
)

const serviceName = "mediahub-api"

func main() {
	// Load the config set up
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env, serviceName)
	slog.SetDefault(log)

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, serviceName, cfg.Env, cfg.OTelEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	stores, err := db.Open(ctx, cfg, prom, log)
	if err != nil {
		log.Error("store init failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer stores.Close()

	hasher, err := security.NewHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		log.Error("password hasher init failed", "err", err)
		os.Exit(1)
	}

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.JWTExpiresIn)
	if err != nil {
		log.Error("jwt manager init failed", "err", err)
		os.Exit(1)
	}

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		log.Error("mail init failed", "err", err)
		os.Exit(1)
	}

	gate := auth.NewService(stores.Users, hasher, tokens, notifier, log)

	if err := db.EnsureAdminUser(ctx, stores.Users, hasher, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	limiter, closeLimiter := newLimiter(ctx, cfg, log)
	defer closeLimiter()

	// set up routers with the log
	router := httpx.NewRouter(httpx.Deps{
		Log:     log,
		Config:  cfg,
		Prom:    prom,
		Metrics: promhttp.Handler(),
		Users:   stores.Users,
		Media:   stores.Media,
		Gate:    gate,
		Hasher:  hasher,
		Limiter: limiter,
		Ping:    stores.Users.Ping,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// newNotifier picks the mail transport. SMTP sends go through the circuit
// breaker so a dead relay cannot stall forgot-password requests.
func newNotifier(cfg config.Config, log *slog.Logger) (notifications.Notifier, error) {
	if cfg.MailDriver != "smtp" {
		return notifications.NewLogNotifier(log), nil
	}

	smtpCfg, err := notifications.LoadSMTPConfig()
	if err != nil {
		return nil, err
	}
	inner, err := notifications.NewSMTPNotifier(smtpCfg)
	if err != nil {
		return nil, err
	}

	return notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{
		Timeout:          5 * time.Second,
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
	}), nil
}

// newLimiter shares buckets through Redis when REDIS_ADDR is set and falls
// back to the in-process limiter otherwise.
func newLimiter(ctx context.Context, cfg config.Config, log *slog.Logger) (middlewares.Limiter, func()) {
	local := middlewares.NewRateLimiter(cfg.RateLimitCapacity, cfg.RateLimitWindow)
	if cfg.RedisAddr == "" {
		return local, func() {}
	}

	rc, err := redisclient.Connect(ctx, redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, 2*time.Second)
	if err != nil {
		log.Warn("redis unavailable, using in-memory rate limiter", "addr", cfg.RedisAddr, "err", err)
		return local, func() {}
	}

	closeFn := func() {
		if err := rc.Close(); err != nil {
			log.Error("redis close failed", "err", err)
		}
	}
	return middlewares.NewRedisRateLimiter(rc.Raw(), cfg.RateLimitCapacity, cfg.RateLimitWindow, local, log), closeFn
}
