package util

import (
	"context"
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	// 10 tokens per second, burst of 2
	l := NewLimiter(10, 2)

	if !l.Allow(1) {
		t.Error("expected first token to be allowed")
	}
	if !l.Allow(1) {
		t.Error("expected second token to be allowed (burst)")
	}
	if l.Allow(1) {
		t.Error("expected third token to be rejected (burst exhausted)")
	}

	time.Sleep(150 * time.Millisecond)
	if !l.Allow(1) {
		t.Error("expected token to be refilled after wait")
	}
}

func TestLimiter_Wait(t *testing.T) {
	l := NewLimiter(100, 1)
	l.Allow(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := l.Wait(ctx, 1); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("Wait returned too early")
	}
}

func TestNewFileThrottle(t *testing.T) {
	if NewFileThrottle(0) != nil || NewFileThrottle(-3) != nil {
		t.Fatal("expected no throttle for non-positive rates")
	}

	var unlimited *Limiter
	if !unlimited.Allow(1000) {
		t.Fatal("nil limiter must always allow")
	}
	if err := unlimited.Wait(context.Background(), 1); err != nil {
		t.Fatalf("nil limiter Wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := unlimited.Wait(ctx, 1); err == nil {
		t.Fatal("expected cancelled context to surface from nil limiter")
	}

	l := NewFileThrottle(2.5)
	for i := 0; i < 3; i++ {
		if !l.Allow(1) {
			t.Fatalf("expected burst of 3, rejected at %d", i)
		}
	}
	if l.Allow(1) {
		t.Fatal("expected burst to be exhausted")
	}
}
