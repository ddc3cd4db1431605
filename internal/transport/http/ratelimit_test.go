package http

import (
	"sync"
	"testing"
)

func TestRateLimiterCapsInbound(t *testing.T) {
	limiter := newRateLimiter(3)

	for i := 0; i < 3; i++ {
		if !limiter.allow() {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.allow() {
		t.Fatalf("request over the limit should be denied")
	}
}

func TestRateLimiterZeroLimitAllowsAll(t *testing.T) {
	limiter := newRateLimiter(0)

	for i := 0; i < 100; i++ {
		if !limiter.allow() {
			t.Fatalf("unlimited limiter denied request %d", i+1)
		}
	}
}

func TestRateLimiterConcurrentAllow(t *testing.T) {
	limiter := newRateLimiter(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				limiter.allow()
			}
		}()
	}
	wg.Wait()

	// Exactly at the limit: the next call must be denied.
	if limiter.allow() {
		t.Fatalf("request over the limit should be denied")
	}
}
