// Package ratelimit spaces out page navigations so a run does not hammer
// the marketplace. Delays are jittered between a min and max so request
// timing does not form a detectable fixed cadence.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type Limiter interface {
	Wait(ctx context.Context) error
}

// PolitenessLimiter enforces a jittered minimum gap between navigations.
// It is shared across workers; the gap applies to the run as a whole, not
// per worker.
type PolitenessLimiter struct {
	mu       sync.Mutex
	minDelay time.Duration
	maxDelay time.Duration
	last     time.Time
}

func New(minDelay, maxDelay time.Duration) *PolitenessLimiter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &PolitenessLimiter{minDelay: minDelay, maxDelay: maxDelay}
}

// Wait blocks until the jittered gap since the previous navigation has
// passed, or the context is cancelled.
func (l *PolitenessLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delay := l.nextDelay()
	if elapsed := time.Since(l.last); elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	l.last = time.Now()
	return nil
}

func (l *PolitenessLimiter) nextDelay() time.Duration {
	if l.maxDelay == l.minDelay {
		return l.minDelay
	}
	jitter := time.Duration(rand.Int63n(int64(l.maxDelay - l.minDelay)))
	return l.minDelay + jitter
}

// NopLimiter disables pacing, for tests and single-target runs.
type NopLimiter struct{}

func (NopLimiter) Wait(context.Context) error { return nil }
