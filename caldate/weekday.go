package caldate

import (
	"time"

	"github.com/samber/mo"
)

// Ordinal selects a weekday within a month: 1 for the first, 2 for the
// second and so on, or Last.
type Ordinal int

// Last selects the final occurrence of a weekday in a month.
const Last Ordinal = -1

// Position describes where a date sits among the same weekdays of its month.
type Position struct {
	N       int // 1..5
	Weekday time.Weekday
	IsLast  bool
}

// Ordinal returns the numeric ordinal of p.
func (p Position) Ordinal() Ordinal {
	return Ordinal(p.N)
}

// NthWeekdayOfMonth returns the date of the nth occurrence of weekday in the
// given month. For Last it walks back from the final day of the month. None
// is returned when the month has no such day (there is no 5th Tuesday) or
// when weekday or n are out of range.
func NthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, n Ordinal) mo.Option[Date] {
	if weekday < time.Sunday || weekday > time.Saturday {
		return mo.None[Date]()
	}

	if n == Last {
		last := New(year, month+1, 0)
		offset := (int(last.Weekday()) - int(weekday) + 7) % 7
		return mo.Some(last.AddDays(-offset))
	}
	if n < 1 {
		return mo.None[Date]()
	}

	first := New(year, month, 1)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	d := first.AddDays(offset + (int(n)-1)*7)
	if d.Month() != first.Month() || d.Year() != first.Year() {
		return mo.None[Date]()
	}
	return mo.Some(d)
}

// LastWeekdayOfMonth is shorthand for NthWeekdayOfMonth with Last.
func LastWeekdayOfMonth(year int, month time.Month, weekday time.Weekday) mo.Option[Date] {
	return NthWeekdayOfMonth(year, month, weekday, Last)
}

// WeekdayOccurrence reports which occurrence of its weekday d is within its
// month, and whether it is the last one.
func WeekdayOccurrence(d Date) Position {
	return Position{
		N:       (d.Day() + 6) / 7,
		Weekday: d.Weekday(),
		IsLast:  d.AddDays(7).Month() != d.Month(),
	}
}
