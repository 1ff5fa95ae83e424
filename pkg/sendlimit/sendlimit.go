// Package sendlimit paces and retries outbound deliveries. The rate
// adapts to the remote end: it creeps up while sends succeed and is
// cut back whenever the remote reports throttling, so bursts of bot
// notices degrade gracefully instead of tripping hard rate limits.
//
// Example:
//
//	lim := sendlimit.New(5, 1, 20, 1, 0.5)
//	err := sendlimit.WithRetry(ctx, send, lim, 3, isThrottleErr)
package sendlimit

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter manages a send rate that adjusts automatically: it increases
// on success and decreases on throttling. Safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	lastError time.Time
}

// New creates a Limiter.
//
//   - initial: starting sends per second
//   - min, max: allowed rate bounds
//   - stepUp: increment applied after a sustained run of successes
//   - stepDown: multiplier applied on throttling (e.g. 0.5 to halve)
func New(initial, min, max rate.Limit, stepUp rate.Limit, stepDown float64) *Limiter {
	if initial < 1 {
		initial = 1
	}
	if min < 1 {
		min = 1
	}
	return &Limiter{
		limiter:  rate.NewLimiter(initial, maxInt(1, int(initial))),
		minLimit: min,
		maxLimit: max,
		stepUp:   stepUp,
		stepDown: stepDown,
	}
}

// Wait blocks until a send slot is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return l.limiter.Wait(ctx)
}

// Success raises the rate after a successful send, once the last
// throttle event is far enough in the past.
func (l *Limiter) Success() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if time.Since(l.lastError) > 10*time.Second {
		l.adjust(l.limiter.Limit() + l.stepUp)
	}
}

// Throttled cuts the rate after the remote end reported overload.
func (l *Limiter) Throttled() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastError = time.Now()
	l.adjust(rate.Limit(float64(l.limiter.Limit()) * l.stepDown))
}

// CurrentLimit returns the current sends per second.
func (l *Limiter) CurrentLimit() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return float64(l.limiter.Limit())
}

func (l *Limiter) adjust(newLimit rate.Limit) {
	if newLimit > l.maxLimit {
		newLimit = l.maxLimit
	} else if newLimit < l.minLimit {
		newLimit = l.minLimit
	}
	if newLimit != l.limiter.Limit() {
		l.limiter.SetLimit(newLimit)
		l.limiter.SetBurst(maxInt(1, int(newLimit)))
	}
}

// Classifier reports whether an error is a throttle signal worth
// backing off and retrying for. Any other error aborts the retry loop.
type Classifier func(error) bool

// WithRetry executes fn under the limiter, retrying throttle errors
// with exponential backoff and jitter, up to maxAttempts times.
func WithRetry(ctx context.Context, fn func() error, lim *Limiter, maxAttempts int, retryable Classifier) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	delay := 250 * time.Millisecond
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
		}

		err := fn()
		if err == nil {
			if lim != nil {
				lim.Success()
			}
			return nil
		}
		if retryable == nil || !retryable(err) {
			return err
		}
		if lim != nil {
			lim.Throttled()
		}
		if attempt == maxAttempts {
			return fmt.Errorf("max attempts (%d) exceeded: %w", maxAttempts, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(addJitter(delay)):
		}

		delay *= 2
		if delay > 5*time.Second {
			delay = 5 * time.Second
		}
	}

	return fmt.Errorf("max attempts (%d) exceeded", maxAttempts)
}

// addJitter adds 0-25% of delay to spread out retry storms.
func addJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return delay
	}
	return delay + time.Duration(rand.Int63n(int64(delay/4)))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
