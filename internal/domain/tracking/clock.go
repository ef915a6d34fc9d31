package tracking

import (
	"context"
	"time"
)

// DefaultTickInterval is the session clock resolution
const DefaultTickInterval = time.Second

// Clock produces session ticks until ctx is cancelled.
// The returned channel is closed once the clock has released its resources.
type Clock interface {
	Ticks(ctx context.Context) <-chan time.Time
}

// TickerClock is a naive periodic clock backed by time.Ticker
type TickerClock struct {
	Interval time.Duration
}

// NewTickerClock creates a clock that ticks every interval (1s when zero)
func NewTickerClock(interval time.Duration) *TickerClock {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &TickerClock{Interval: interval}
}

// Ticks implements Clock
func (c *TickerClock) Ticks(ctx context.Context) <-chan time.Time {
	out := make(chan time.Time)
	ticker := time.NewTicker(c.Interval)

	go func() {
		defer close(out)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				select {
				case out <- t:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
