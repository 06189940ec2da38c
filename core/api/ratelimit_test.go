package api

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRateLimiterEnforcesMinimumSpacing(t *testing.T) {
	limiter := NewRateLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	// First slot is immediate; the next two wait 50ms each.
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("three acquires took %v, want >= 100ms", elapsed)
	}
}

func TestRateLimiterSerializesConcurrentCallers(t *testing.T) {
	limiter := NewRateLimiter(30 * time.Millisecond)
	ctx := context.Background()

	var mu sync.Mutex
	var slots []time.Time
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(ctx); err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			slots = append(slots, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(slots); i++ {
		prev, cur := slots[i-1], slots[i]
		if cur.Before(prev) {
			prev, cur = cur, prev
		}
		if gap := cur.Sub(prev); gap < 25*time.Millisecond {
			t.Errorf("slots %d and %d only %v apart, want >= 30ms", i-1, i, gap)
		}
	}
}

func TestRateLimiterHonorsCancellation(t *testing.T) {
	limiter := NewRateLimiter(time.Minute)
	ctx := context.Background()
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := limiter.Acquire(cancelled); err == nil {
		t.Fatal("expected cancellation error while waiting for a slot")
	}
}

func TestRateLimiterZeroDelayDoesNotBlock(t *testing.T) {
	limiter := NewRateLimiter(0)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("100 zero-delay acquires took %v", elapsed)
	}
}
