package notifications

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

type ProtectedNotifierConfig struct {
	Timeout          time.Duration // hard timeout per send
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open
}

type breakerState string

const (
	stateClosed   breakerState = "closed"
	stateOpen     breakerState = "open"
	stateHalfOpen breakerState = "half_open"
)

// ProtectedNotifier wraps a Notifier with a per-send timeout and a circuit
// breaker, so forgot-password requests fail fast while the mail relay is
// down and the caller can roll the reset token back.
type ProtectedNotifier struct {
	inner Notifier
	cfg   ProtectedNotifierConfig
	now   func() time.Time

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
	trials   int
}

func NewProtectedNotifier(inner Notifier, cfg ProtectedNotifierConfig) *ProtectedNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedNotifier{
		inner: inner,
		cfg:   cfg,
		now:   time.Now,
		state: stateClosed,
	}
}

func (n *ProtectedNotifier) Send(ctx context.Context, msg Message) error {
	trial, ok := n.acquire()
	if !ok {
		return ErrCircuitOpen
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	err := n.inner.Send(sendCtx, msg)

	// the caller giving up says nothing about the relay
	if err != nil && ctx.Err() != nil {
		n.release(trial)
		return err
	}

	n.record(trial, err)
	return err
}

// State reports the breaker state: closed, open or half_open.
func (n *ProtectedNotifier) State() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return string(n.state)
}

// acquire decides whether a send may go out. trial is true for a probe sent
// while half-open.
func (n *ProtectedNotifier) acquire() (trial, ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state == stateOpen {
		if n.now().Sub(n.openedAt) < n.cfg.Cooldown {
			return false, false
		}
		n.state = stateHalfOpen
		n.trials = 0
	}

	if n.state == stateHalfOpen {
		if n.trials >= n.cfg.HalfOpenMaxCalls {
			return false, false
		}
		n.trials++
		return true, true
	}

	return false, true
}

func (n *ProtectedNotifier) release(trial bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if trial && n.state == stateHalfOpen && n.trials > 0 {
		n.trials--
	}
}

func (n *ProtectedNotifier) record(trial bool, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if trial && n.trials > 0 {
		n.trials--
	}

	if err == nil {
		n.failures = 0
		n.state = stateClosed
		return
	}

	n.failures++
	if n.state == stateHalfOpen || n.failures >= n.cfg.FailureThreshold {
		n.state = stateOpen
		n.openedAt = n.now()
	}
}
