package engine

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles one campaign's dispatch to rateLimitPerMinute sends.
// It refills continuously at perMinute/60 tokens per second with a burst of
// one second's worth, so no rolling 60-second window ever exceeds the
// configured per-minute maximum. A nil *RateLimiter means unbounded; Wait on
// nil is a no-op, which keeps the dispatch loop free of rate checks when no
// limit is configured.
//
// One limiter is shared by all workers dispatching the same campaign and is
// never shared across campaigns.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter for the given per-minute rate. Zero or
// negative rates return nil (unbounded).
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	burst := perMinute / 60
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
	}
}

// Wait blocks until a token is available or ctx is cancelled. No token is
// ever granted to more than one caller.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil || r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}
