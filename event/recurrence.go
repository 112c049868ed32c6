package event

import (
	"slices"
	"time"

	"github.com/cyp0633/libcalrecur/caldate"
	"github.com/samber/mo"
)

// Frequency is the unit a recurrence repeats in.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// MonthRule selects which day of a month a monthly or yearly recurrence
// lands on. The concrete day is never stored: it is derived from the
// event's original date.
type MonthRule string

const (
	// DayOfMonth repeats on the same day number, e.g. "on the 15th".
	DayOfMonth MonthRule = "dayOfMonth"
	// NthWeekday repeats on the same weekday position, e.g. "3rd Tuesday".
	NthWeekday MonthRule = "nthWeekday"
	// LastWeekday repeats on the last occurrence of the same weekday.
	LastWeekday MonthRule = "lastWeekday"
)

func (r MonthRule) valid() bool {
	switch r {
	case DayOfMonth, NthWeekday, LastWeekday:
		return true
	}
	return false
}

// Recurrence is a repetition pattern. It is one of Daily, Weekly, Monthly or
// Yearly; the set is closed.
type Recurrence interface {
	Frequency() Frequency
	// Base returns the fields shared by every pattern.
	Base() Common
	isRecurrence()
}

// Common holds the fields every recurrence pattern carries.
type Common struct {
	// Interval is the number of frequency units between repetitions.
	Interval int
	// End terminates the recurrence. Nil repeats forever.
	End End
}

// Daily repeats every Interval days.
type Daily struct {
	Common
}

// Weekly repeats on DaysOfWeek in every Interval-th week, counted from the
// week that contains the original date.
type Weekly struct {
	Common
	DaysOfWeek []time.Weekday
}

// Monthly repeats every Interval months on the day selected by Type.
type Monthly struct {
	Common
	Type MonthRule
}

// Yearly repeats every Interval years, always in the original date's month,
// on the day selected by Type.
type Yearly struct {
	Common
	Type MonthRule
}

func (Daily) Frequency() Frequency   { return FrequencyDaily }
func (Weekly) Frequency() Frequency  { return FrequencyWeekly }
func (Monthly) Frequency() Frequency { return FrequencyMonthly }
func (Yearly) Frequency() Frequency  { return FrequencyYearly }

func (r Daily) Base() Common   { return r.Common }
func (r Weekly) Base() Common  { return r.Common }
func (r Monthly) Base() Common { return r.Common }
func (r Yearly) Base() Common  { return r.Common }

func (Daily) isRecurrence()   {}
func (Weekly) isRecurrence()  {}
func (Monthly) isRecurrence() {}
func (Yearly) isRecurrence()  {}

// Known reports whether r is one of the Daily, Weekly, Monthly or Yearly
// values. Pointers to them and foreign implementations are not known.
func Known(r Recurrence) bool {
	switch r.(type) {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Weekdays returns the distinct, valid weekdays of w in ascending order.
func (w Weekly) Weekdays() []time.Weekday {
	out := make([]time.Weekday, 0, len(w.DaysOfWeek))
	for _, d := range w.DaysOfWeek {
		if d < time.Sunday || d > time.Saturday {
			continue
		}
		out = append(out, d)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// End terminates a recurrence. It is either Count or Until.
type End interface {
	isEnd()
}

// Count ends a recurrence after Value occurrences, the original date
// counting as the first.
type Count struct {
	Value int
}

// Until ends a recurrence after the given day. Value holds the bound as it
// was stored, usually an ISO date; an empty Value stands for a missing
// (null) bound. Use Date to read it.
type Until struct {
	Value string
}

func (Count) isEnd() {}
func (Until) isEnd() {}

// UntilDate returns an Until bound for d.
func UntilDate(d caldate.Date) Until {
	return Until{Value: d.String()}
}

// Date normalizes the stored bound to a calendar day. A missing or
// malformed value yields None.
func (u Until) Date() mo.Option[caldate.Date] {
	if u.Value == "" {
		return mo.None[caldate.Date]()
	}
	d, err := caldate.Parse(u.Value)
	if err != nil {
		return mo.None[caldate.Date]()
	}
	return mo.Some(d)
}

// CountOf returns the count bound of r, if it has one.
func CountOf(r Recurrence) mo.Option[int] {
	if !Known(r) {
		return mo.None[int]()
	}
	if c, ok := r.Base().End.(Count); ok {
		return mo.Some(c.Value)
	}
	return mo.None[int]()
}

// UntilOf returns the normalized until bound of r, if it has a usable one.
func UntilOf(r Recurrence) mo.Option[caldate.Date] {
	if !Known(r) {
		return mo.None[caldate.Date]()
	}
	if u, ok := r.Base().End.(Until); ok {
		return u.Date()
	}
	return mo.None[caldate.Date]()
}

func cloneRecurrence(r Recurrence) Recurrence {
	if w, ok := r.(Weekly); ok {
		w.DaysOfWeek = slices.Clone(w.DaysOfWeek)
		return w
	}
	return r
}
