package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeNotifier struct {
	err   error
	calls int
	sent  []Message
}

func (f *fakeNotifier) Send(ctx context.Context, msg Message) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestProtectedNotifierOpensAfterThreshold(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("smtp down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 2, Cooldown: time.Minute})

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	msg := Message{To: "a@x.com", Subject: "s", Body: "b"}

	for i := 0; i < 2; i++ {
		if err := n.Send(context.Background(), msg); err == nil {
			t.Fatalf("expected inner error on call %d", i)
		}
	}

	if n.State() != "open" {
		t.Fatalf("expected open breaker, got %s", n.State())
	}
	if err := n.Send(context.Background(), msg); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("open breaker must not reach the provider, calls=%d", inner.calls)
	}

	// after cooldown a successful trial closes the breaker
	now = now.Add(2 * time.Minute)
	inner.err = nil

	if err := n.Send(context.Background(), msg); err != nil {
		t.Fatalf("expected half-open trial to succeed, got %v", err)
	}
	if n.State() != "closed" {
		t.Fatalf("expected closed breaker, got %s", n.State())
	}
}

func TestProtectedNotifierReopensOnFailedTrial(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("smtp down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1, Cooldown: time.Minute})

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	msg := Message{To: "a@x.com", Subject: "s", Body: "b"}
	_ = n.Send(context.Background(), msg)

	now = now.Add(time.Minute)
	if err := n.Send(context.Background(), msg); err == nil || errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected the trial to reach the provider and fail, got %v", err)
	}
	if n.State() != "open" {
		t.Fatalf("expected breaker to reopen, got %s", n.State())
	}
	if err := n.Send(context.Background(), msg); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen right after a failed trial, got %v", err)
	}
}

func TestProtectedNotifierIgnoresCallerCancellation(t *testing.T) {
	inner := &fakeNotifier{err: context.Canceled}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = n.Send(ctx, Message{To: "a@x.com"})

	if n.State() != "closed" {
		t.Fatalf("a cancelled caller must not open the breaker, got %s", n.State())
	}
}

func TestLogNotifierSends(t *testing.T) {
	t.Setenv("NOTIFIER_FAIL", "")
	t.Setenv("NOTIFIER_SLEEP_MS", "")

	if err := NewLogNotifier(nil).Send(context.Background(), Message{To: "a@x.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSMTPConfigValidate(t *testing.T) {
	if err := (SMTPConfig{Port: 587, From: "x@y.z"}).Validate(); err == nil {
		t.Fatalf("expected missing host error")
	}
	if _, err := NewSMTPNotifier(SMTPConfig{Host: "smtp.local", Port: 587, From: "x@y.z"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
