package util

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket used to throttle file reads. A nil *Limiter
// never blocks.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter returns a limiter admitting r events per second with burst b.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(r), b),
	}
}

// NewFileThrottle returns a limiter for filesPerSecond reads, or nil when
// the rate is zero or negative. The burst is one second worth of files.
func NewFileThrottle(filesPerSecond float64) *Limiter {
	if filesPerSecond <= 0 {
		return nil
	}
	burst := int(math.Ceil(filesPerSecond))
	return NewLimiter(filesPerSecond, burst)
}

// Allow reports whether n events may happen now.
func (l *Limiter) Allow(n int) bool {
	if l == nil {
		return true
	}
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	if l == nil {
		return ctx.Err()
	}
	return l.inner.WaitN(ctx, n)
}
