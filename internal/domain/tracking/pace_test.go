package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPace(t *testing.T) {
	assert.Equal(t, 0.0, Pace(600, 0), "zero distance yields zero pace")
	assert.Equal(t, 0.0, Pace(0, 0))
	assert.InDelta(t, 5.0, Pace(600, 2), 1e-9)
	assert.InDelta(t, 10.0, Pace(60, 0.1), 1e-9)
	assert.InDelta(t, 4.0, Pace(1200, 5), 1e-9, "20 minutes over 5 km")
	assert.Equal(t, 0.0, Pace(0, 3.2), "no time elapsed yet")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{61, "00:01:01"},
		{3600, "01:00:00"},
		{3725, "01:02:05"},
		{-5, "00:00:00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.seconds))
	}
}
