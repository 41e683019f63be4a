package engine

import (
	"context"
	"testing"
	"time"
)

func TestNewRateLimiterUnbounded(t *testing.T) {
	for _, perMinute := range []int{0, -1, -100} {
		if limiter := NewRateLimiter(perMinute); limiter != nil {
			t.Errorf("NewRateLimiter(%d) = %v, want nil", perMinute, limiter)
		}
	}
}

func TestNilRateLimiterWaitIsNoop(t *testing.T) {
	var limiter *RateLimiter

	start := time.Now()
	for i := 0; i < 1000; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("nil limiter Wait returned %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("nil limiter Wait took %s, expected no throttling", elapsed)
	}
}

// At 600/min the limiter refills 10 tokens per second with a burst of 10.
// Draining 15 tokens has to wait roughly half a second for the last 5.
func TestRateLimiterThrottles(t *testing.T) {
	limiter := NewRateLimiter(600)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 15; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait failed on token %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	if elapsed < 400*time.Millisecond {
		t.Errorf("15 tokens at 600/min took %s, expected at least ~500ms", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("15 tokens at 600/min took %s, expected around 500ms", elapsed)
	}
}

func TestRateLimiterBurstNeverExceedsOneSecondOfTokens(t *testing.T) {
	// Low rates round the burst up to a single token, never a full minute's
	// worth up front.
	limiter := NewRateLimiter(30)
	ctx := context.Background()

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first Wait failed: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("second Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 1500*time.Millisecond {
		t.Errorf("second token at 30/min arrived after %s, expected ~2s", elapsed)
	}
}

func TestRateLimiterWaitHonoursContext(t *testing.T) {
	limiter := NewRateLimiter(30)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Burn the burst token, then the next wait must abort on the deadline.
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait failed: %v", err)
	}
	if err := limiter.Wait(ctx); err == nil {
		t.Error("expected Wait to fail once the context expired")
	}
}
