package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTryAcquire_DeniesAboveLimit(t *testing.T) {
	l := New(5)

	for i := 0; i < 5; i++ {
		if !l.TryAcquire() {
			t.Fatalf("call %d: expected admit", i+1)
		}
	}

	if l.TryAcquire() {
		t.Error("call 6: expected deny within the same window")
	}
}

func TestTryAcquire_WindowReset(t *testing.T) {
	clock := time.Unix(1000, 0)
	l := New(2)
	l.now = func() time.Time { return clock }

	if !l.TryAcquire() || !l.TryAcquire() {
		t.Fatal("expected first two calls admitted")
	}
	if l.TryAcquire() {
		t.Fatal("expected third call denied")
	}

	// Advance past the window boundary; the counter resets.
	clock = clock.Add(1100 * time.Millisecond)
	if !l.TryAcquire() {
		t.Error("expected admit after window reset")
	}
}

func TestTryAcquire_Concurrent(t *testing.T) {
	limit := 100
	l := New(limit)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < limit*3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire() {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != int32(limit) {
		t.Errorf("expected exactly %d admitted, got %d", limit, admitted.Load())
	}
}

func TestNew_DefaultLimit(t *testing.T) {
	if got := New(0).Limit(); got != DefaultPerSecond {
		t.Errorf("expected default limit %d, got %d", DefaultPerSecond, got)
	}
}
