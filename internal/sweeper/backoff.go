package sweeper

import (
	"math"
	"math/rand"
	"time"
)

// Backoff doubles base per consecutive failure up to maxDelay, plus up to
// 250ms of jitter.
func Backoff(failures int, base, maxDelay time.Duration) time.Duration {
	if failures < 0 {
		failures = 0
	}

	// failures=0 => base
	// failures=1 => 2*base
	multiple := math.Pow(2, float64(failures))
	delay := time.Duration(float64(base) * multiple)

	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}

	delay += time.Duration(rand.Intn(250)) * time.Millisecond
	return delay
}
