// Package sweeper periodically clears password-reset fields whose window has
// closed, so stored token hashes never outlive their expiry.
package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/mediahub/internal/observability"
)

type Store interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
	Ping(ctx context.Context) error
}

type Config struct {
	Interval time.Duration
	// RunTimeout bounds a single sweep.
	RunTimeout time.Duration
	// MaxBackoff caps the delay after consecutive failures.
	MaxBackoff time.Duration
}

type Sweeper struct {
	cfg     Config
	store   Store
	metrics *observability.SweepMetrics
	prom    *observability.Prom
	log     *slog.Logger
	now     func() time.Time

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, store Store, metrics *observability.SweepMetrics, prom *observability.Prom, log *slog.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 10 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Minute
	}
	if metrics == nil {
		metrics = observability.NewSweepMetrics()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Sweeper{
		cfg:     cfg,
		store:   store,
		metrics: metrics,
		prom:    prom,
		log:     log,
		now:     time.Now,
	}
}

// Run sweeps once immediately and then every Interval until ctx is done.
// After a failed sweep the next attempt waits for the backoff instead.
func (s *Sweeper) Run(ctx context.Context) error {
	s.setReady(true)
	defer s.setReady(false)

	failures := 0
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper received shutdown signal")
			return nil

		case <-timer.C:
			_, err := s.SweepOnce(ctx)

			next := s.cfg.Interval
			if err != nil {
				next = Backoff(failures, s.cfg.Interval, s.cfg.MaxBackoff)
				failures++
			} else {
				failures = 0
			}
			timer.Reset(next)
		}
	}
}

// SweepOnce clears every reset token expired at the current time.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	start := time.Now()
	now := s.now()

	cleared, err := s.store.ClearExpiredResetTokens(runCtx, now)
	d := time.Since(start)

	s.metrics.ObserveRun(cleared, d, err, now)
	if s.prom != nil {
		s.prom.SweepDuration.Observe(d.Seconds())
		if err != nil {
			s.prom.SweepErrors.Inc()
		} else {
			s.prom.SweepCleared.Add(float64(cleared))
		}
	}

	if err != nil {
		s.log.Error("reset token sweep failed", "err", err, "duration_ms", d.Milliseconds())
		return 0, err
	}

	if cleared > 0 {
		s.log.Info("expired reset tokens cleared", "cleared", cleared, "duration_ms", d.Milliseconds())
	}
	return cleared, nil
}

func (s *Sweeper) setReady(v bool) {
	s.readyMu.Lock()
	s.ready = v
	s.readyMu.Unlock()
}

func (s *Sweeper) Ready() bool {
	s.readyMu.RLock()
	defer s.readyMu.RUnlock()
	return s.ready
}

func (s *Sweeper) Metrics() observability.SweepMetricsSnapshot {
	return s.metrics.Snapshot()
}
