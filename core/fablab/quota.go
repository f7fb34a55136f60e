package fablab

import (
	"math"
	"time"
)

// Quota levels
const (
	LevelOK       = "ok"
	LevelWarning  = "warning"
	LevelCritical = "critical"
	LevelExceeded = "exceeded"
)

// Quota thresholds, in percent of the monthly allowance used
const (
	WarningThreshold  = 75.0
	CriticalThreshold = 90.0
	ExceededThreshold = 100.0
)

// Quota is a member's machine time usage for a month.
type Quota struct {
	Month          string  `json:"month"` // YYYY-MM
	Unlimited      bool    `json:"unlimited"`
	AllowedHours   float64 `json:"allowed_hours"`
	UsedHours      float64 `json:"used_hours"`
	RemainingHours float64 `json:"remaining_hours"`
	Percent        float64 `json:"percent"`
	Level          string  `json:"level"`
}

// ComputeQuota compares the hours used to the hours allowed (0: unlimited).
func ComputeQuota(allowed, used float64) Quota {
	q := Quota{AllowedHours: allowed, UsedHours: roundHours(used), Level: LevelOK}
	if allowed <= 0 {
		q.Unlimited = true
		q.AllowedHours = 0
		return q
	}

	pct := used / allowed * 100
	q.Percent = math.Round(pct*10) / 10
	q.RemainingHours = roundHours(math.Max(allowed-used, 0))
	switch {
	case pct >= ExceededThreshold:
		q.Level = LevelExceeded
	case pct >= CriticalThreshold:
		q.Level = LevelCritical
	case pct >= WarningThreshold:
		q.Level = LevelWarning
	}
	return q
}

// Allows reports whether `hours` more can be booked without going over the allowance.
func (q Quota) Allows(hours float64) bool {
	return q.Unlimited || q.UsedHours+hours <= q.AllowedHours+1e-9
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

// monthBounds returns the first instant of t's calendar month (UTC) and of the next one.
func monthBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// ParseMonth parses a YYYY-MM month, returning its first instant (UTC).
func ParseMonth(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01", s, time.UTC)
}
