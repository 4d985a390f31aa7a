package server

import "time"

// PeriodicTimer turns measured wall time into whole periods. The caller adds
// elapsed time every loop iteration and drains periods with Next.
type PeriodicTimer struct {
	period time.Duration
	accum  time.Duration
}

func NewPeriodicTimer(period time.Duration) *PeriodicTimer {
	if period <= 0 {
		panic("periodic timer needs a positive period")
	}
	return &PeriodicTimer{period: period}
}

func (t *PeriodicTimer) Period() time.Duration { return t.period }

func (t *PeriodicTimer) Add(d time.Duration) {
	if d > 0 {
		t.accum += d
	}
}

// Next consumes one period if a whole one has accumulated.
func (t *PeriodicTimer) Next() bool {
	if t.accum < t.period {
		return false
	}
	t.accum -= t.period
	return true
}

// Pending is the number of whole periods owed.
func (t *PeriodicTimer) Pending() int {
	return int(t.accum / t.period)
}

// Until is the time left before the next period is due.
func (t *PeriodicTimer) Until() time.Duration {
	if t.accum >= t.period {
		return 0
	}
	return t.period - t.accum
}

// Clamp forgets periods beyond max and reports how many were dropped.
func (t *PeriodicTimer) Clamp(max int) int {
	pending := t.Pending()
	if pending <= max {
		return 0
	}
	dropped := pending - max
	t.accum -= time.Duration(dropped) * t.period
	return dropped
}
