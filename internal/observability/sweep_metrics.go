package observability

import (
	"sync/atomic"
	"time"
)

// SweepMetrics keeps in-process counters for the reset-token sweeper so its
// health endpoint can report them without scraping Prometheus.
type SweepMetrics struct {
	runs    atomic.Uint64
	failed  atomic.Uint64
	cleared atomic.Uint64

	lastRunUnixNano atomic.Int64
	durationMax     atomic.Int64
}

func NewSweepMetrics() *SweepMetrics {
	return &SweepMetrics{}
}

func (m *SweepMetrics) ObserveRun(cleared int64, d time.Duration, err error, at time.Time) {
	m.runs.Add(1)
	m.lastRunUnixNano.Store(at.UnixNano())

	if err != nil {
		m.failed.Add(1)
	} else if cleared > 0 {
		m.cleared.Add(uint64(cleared))
	}

	ns := d.Nanoseconds()
	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type SweepMetricsSnapshot struct {
	Runs        uint64        `json:"runs"`
	Failed      uint64        `json:"failed"`
	Cleared     uint64        `json:"cleared"`
	LastRun     time.Time     `json:"lastRun"`
	MaxDuration time.Duration `json:"maxDurationNs"`
}

func (m *SweepMetrics) Snapshot() SweepMetricsSnapshot {
	var last time.Time
	if ns := m.lastRunUnixNano.Load(); ns > 0 {
		last = time.Unix(0, ns).UTC()
	}

	return SweepMetricsSnapshot{
		Runs:        m.runs.Load(),
		Failed:      m.failed.Load(),
		Cleared:     m.cleared.Load(),
		LastRun:     last,
		MaxDuration: time.Duration(m.durationMax.Load()),
	}
}
