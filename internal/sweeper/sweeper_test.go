package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/geocoder89/mediahub/internal/domain/user"
	"github.com/geocoder89/mediahub/internal/observability"
	"github.com/geocoder89/mediahub/internal/repo/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	clearFn func(ctx context.Context, now time.Time) (int64, error)
	pingFn  func(ctx context.Context) error
}

func (f *fakeStore) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	if f.clearFn == nil {
		return 0, nil
	}
	return f.clearFn(ctx, now)
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn == nil {
		return nil
	}
	return f.pingFn(ctx)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func testUser(id string) user.User {
	now := time.Now().UTC()
	return user.User{
		ID:           id,
		Name:         "user " + id,
		Email:        id + "@example.com",
		Role:         user.RoleUser,
		PasswordHash: "hash",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweepOnceClearsExpiredTokens(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUsersRepo()
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	seed := func(id string, expires time.Time) {
		t.Helper()
		if _, err := repo.Create(ctx, testUser(id)); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := repo.SetResetToken(ctx, id, "hash-"+id, expires); err != nil {
			t.Fatalf("set reset token: %v", err)
		}
	}
	seed("u1", now.Add(-time.Minute))
	seed("u2", now.Add(time.Minute))

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	s := New(Config{}, repo, nil, prom, quietLog())
	s.now = func() time.Time { return now }

	cleared, err := s.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 cleared, got %d", cleared)
	}

	u1, _ := repo.GetByID(ctx, "u1")
	if u1.PasswordResetToken != "" || u1.PasswordResetExpires != nil {
		t.Fatalf("expired token not cleared: %+v", u1)
	}
	u2, _ := repo.GetByID(ctx, "u2")
	if u2.PasswordResetToken == "" {
		t.Fatalf("live token was cleared")
	}

	snap := s.Metrics()
	if snap.Runs != 1 || snap.Cleared != 1 || snap.Failed != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if got := counterValue(t, prom.SweepCleared); got != 1 {
		t.Fatalf("expected cleared counter 1, got %v", got)
	}
}

func TestSweepOnceRecordsFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	store := &fakeStore{clearFn: func(context.Context, time.Time) (int64, error) {
		return 0, errors.New("db down")
	}}
	s := New(Config{}, store, nil, prom, quietLog())

	if _, err := s.SweepOnce(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if snap := s.Metrics(); snap.Failed != 1 {
		t.Fatalf("expected one failed run, got %+v", snap)
	}
	if got := counterValue(t, prom.SweepErrors); got != 1 {
		t.Fatalf("expected error counter 1, got %v", got)
	}
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	store := &fakeStore{clearFn: func(context.Context, time.Time) (int64, error) {
		calls.Add(1)
		return 0, nil
	}}
	s := New(Config{Interval: 10 * time.Millisecond}, store, nil, nil, quietLog())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 sweeps, got %d", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run returned %v", err)
	}
	if s.Ready() {
		t.Fatalf("expected not ready after shutdown")
	}
}

func TestHealthHandler(t *testing.T) {
	pingErr := error(nil)
	store := &fakeStore{pingFn: func(context.Context) error { return pingErr }}
	s := New(Config{}, store, nil, nil, quietLog())
	h := s.HealthHandler()

	get := func(path string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	if code := get("/healthz"); code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", code)
	}
	if code := get("/readyz"); code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before run: expected 503, got %d", code)
	}

	s.setReady(true)
	if code := get("/readyz"); code != http.StatusOK {
		t.Fatalf("readyz: expected 200, got %d", code)
	}

	pingErr = errors.New("unreachable")
	if code := get("/readyz"); code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with store down: expected 503, got %d", code)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	base, maxDelay := time.Second, 5*time.Second
	jitter := 250 * time.Millisecond

	cases := []struct {
		failures int
		min      time.Duration
	}{
		{0, base},
		{1, 2 * base},
		{2, 4 * base},
		{10, maxDelay},
	}

	for _, tc := range cases {
		got := Backoff(tc.failures, base, maxDelay)
		if got < tc.min || got >= tc.min+jitter {
			t.Fatalf("failures=%d: expected [%v, %v), got %v", tc.failures, tc.min, tc.min+jitter, got)
		}
	}
}
