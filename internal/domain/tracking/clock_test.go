package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerClock_TicksUntilCancelled(t *testing.T) {
	clock := NewTickerClock(5 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	ticks := clock.Ticks(ctx)

	for i := 0; i < 3; i++ {
		select {
		case _, ok := <-ticks:
			require.True(t, ok)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for tick")
		}
	}

	cancel()

	// channel must be closed once the clock releases its ticker
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ticks:
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestNewTickerClock_DefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultTickInterval, NewTickerClock(0).Interval)
	assert.Equal(t, 2*time.Second, NewTickerClock(2*time.Second).Interval)
}
