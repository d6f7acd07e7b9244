// Package ext holds seams for process-wide state, the wall clock and ID
// generation, so that reports can be built deterministically in tests.
package ext

import "time"

// Clock returns the time stamped on reports.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts an ordinary function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// NewSystemClock returns a Clock reading the wall clock in UTC.
func NewSystemClock() Clock {
	return ClockFunc(func() time.Time {
		return time.Now().UTC()
	})
}

// NewFixedClock returns a Clock frozen at t.
func NewFixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time {
		return t
	})
}
