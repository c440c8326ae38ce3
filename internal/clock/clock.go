// Package clock provides the time source used by all services.
//
// Quota resets and add-on expiry are time-driven, so every consumer takes a
// Clock instead of calling time.Now directly. Tests substitute a fixed clock
// to pin boundary behavior.
package clock

import "time"

// Clock is the wall-clock time source.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// System returns a Clock backed by the system wall clock in UTC.
func System() Clock {
	return systemClock{}
}

// Fixed is a Clock that always reports the same instant. Test helper.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time {
	return f.T
}

// MonthStart returns the first instant of t's month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NextMonthStart returns the first instant of the month after t in UTC.
// This is the value stored as a user's next quota reset boundary.
func NextMonthStart(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0)
}

// MonthWindow returns the start and end (exclusive) of t's month in UTC.
func MonthWindow(t time.Time) (start, end time.Time) {
	start = MonthStart(t)
	end = start.AddDate(0, 1, 0)
	return start, end
}
