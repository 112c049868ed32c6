// Package caldate implements a time zone neutral calendar date.
//
// Every value is a whole day pinned to UTC midnight, so arithmetic on it never
// observes daylight saving shifts or the caller's local zone. Recurrence
// calculations in this module are built exclusively on these helpers.
package caldate

import (
	"time"

	"github.com/samber/mo"
)

const (
	day           = 24 * time.Hour
	secondsPerDay = int64(day / time.Second)
)

// Date is a calendar day with no time of day and no time zone.
// Dates are values: every operation returns a new Date and two dates built
// from the same year, month and day compare equal with ==.
type Date struct {
	t time.Time
}

// New builds the date for year, month and day. Out of range components
// normalize the way time.Date does, so New(2024, time.February, 30) is
// March 1st 2024.
func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Exact builds the date only if year, month and day name a real day.
// February 30th, April 31st and similar yield None instead of rolling over.
func Exact(year int, month time.Month, day int) mo.Option[Date] {
	d := New(year, month, day)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return mo.None[Date]()
	}
	return mo.Some(d)
}

// FromTime returns the calendar day of t as seen in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return New(y, m, d)
}

// Today returns the current day in the local time zone.
func Today() Date {
	return FromTime(time.Now())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return New(year, month+1, 0).Day()
}

// StartOfWeek returns the latest date on or before d that falls on first.
func StartOfWeek(d Date, first time.Weekday) Date {
	return d.AddDays(-((int(d.Weekday()) - int(first) + 7) % 7))
}

func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// IsZero reports whether d is the zero Date (January 1st, year 1).
func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns midnight UTC of d.
func (d Date) Time() time.Time { return d.t }

// EndOfDay returns the last representable instant of d in UTC.
func (d Date) EndOfDay() time.Time {
	return d.t.Add(day - time.Nanosecond)
}

// AddDays returns the date n days after d. n may be negative.
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysUntil returns the number of whole days from d to other.
// The result is negative when other is before d. It stays exact for dates
// further apart than a time.Duration can hold.
func (d Date) DaysUntil(other Date) int {
	return int((other.t.Unix() - d.t.Unix()) / secondsPerDay)
}

// MonthsUntil returns the number of calendar months between the month of d
// and the month of other, ignoring the day component.
func (d Date) MonthsUntil(other Date) int {
	return (other.Year()-d.Year())*12 + int(other.Month()) - int(d.Month())
}

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after other. It is suitable for slices.SortFunc.
func (d Date) Compare(other Date) int {
	return d.t.Compare(other.t)
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	return d.t.Format(time.DateOnly)
}
