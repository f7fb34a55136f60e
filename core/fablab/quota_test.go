package fablab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeQuota(t *testing.T) {
	tests := []struct {
		name          string
		allowed, used float64
		wantLevel     string
		wantPercent   float64
		wantRemaining float64
	}{
		{name: "unused", allowed: 20, used: 0, wantLevel: LevelOK, wantPercent: 0, wantRemaining: 20},
		{name: "below warning", allowed: 20, used: 14.5, wantLevel: LevelOK, wantPercent: 72.5, wantRemaining: 5.5},
		{name: "warning threshold", allowed: 20, used: 15, wantLevel: LevelWarning, wantPercent: 75, wantRemaining: 5},
		{name: "warning", allowed: 20, used: 17.5, wantLevel: LevelWarning, wantPercent: 87.5, wantRemaining: 2.5},
		{name: "critical threshold", allowed: 20, used: 18, wantLevel: LevelCritical, wantPercent: 90, wantRemaining: 2},
		{name: "critical", allowed: 20, used: 19.5, wantLevel: LevelCritical, wantPercent: 97.5, wantRemaining: 0.5},
		{name: "exceeded threshold", allowed: 20, used: 20, wantLevel: LevelExceeded, wantPercent: 100, wantRemaining: 0},
		{name: "over", allowed: 10, used: 12, wantLevel: LevelExceeded, wantPercent: 120, wantRemaining: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ComputeQuota(tt.allowed, tt.used)
			assert.False(t, q.Unlimited)
			assert.Equal(t, tt.wantLevel, q.Level)
			assert.InDelta(t, tt.wantPercent, q.Percent, 1e-9)
			assert.InDelta(t, tt.wantRemaining, q.RemainingHours, 1e-9)
		})
	}
}

func TestComputeQuota_unlimited(t *testing.T) {
	q := ComputeQuota(0, 250)
	assert.True(t, q.Unlimited)
	assert.Equal(t, LevelOK, q.Level)
	assert.Zero(t, q.Percent)
	assert.Equal(t, 250.0, q.UsedHours)
	assert.True(t, q.Allows(1000))
}

func TestQuotaAllows(t *testing.T) {
	q := ComputeQuota(10, 8)
	assert.True(t, q.Allows(2))
	assert.False(t, q.Allows(2.5))
}

func TestMonthBounds(t *testing.T) {
	paris := time.FixedZone("CET", 3600)
	// 00:30 on March 1st in Paris is still February in UTC
	start, end := monthBounds(time.Date(2026, time.March, 1, 0, 30, 0, 0, paris))
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), end)

	m, err := ParseMonth("2026-12")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC), m)
	_, err = ParseMonth("12-2026")
	assert.Error(t, err)
}
