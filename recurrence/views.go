package recurrence

import (
	"time"

	"github.com/cyp0633/libcalrecur/caldate"
	"github.com/cyp0633/libcalrecur/event"
)

// MonthGridDays is the number of days shown by a month grid: six weeks.
const MonthGridDays = 42

// MonthWindow returns the first and last day of the month.
func MonthWindow(year int, month time.Month) (caldate.Date, caldate.Date) {
	first := caldate.New(year, month, 1)
	return first, caldate.New(year, month, caldate.DaysIn(year, month))
}

// MonthGridWindow returns the six week window of a month grid, starting on
// the week start on or before the 1st.
func (e *Engine) MonthGridWindow(year int, month time.Month) (caldate.Date, caldate.Date) {
	start := caldate.StartOfWeek(caldate.New(year, month, 1), e.config.WeekStart)
	return start, start.AddDays(MonthGridDays - 1)
}

// WeekWindow returns the week that contains base.
func (e *Engine) WeekWindow(base caldate.Date) (caldate.Date, caldate.Date) {
	start := caldate.StartOfWeek(base, e.config.WeekStart)
	return start, start.AddDays(6)
}

// MonthHighlights returns the occurrences that fall inside the month.
func (e *Engine) MonthHighlights(events []event.Event, year int, month time.Month) []HighlightedDay {
	start, end := MonthWindow(year, month)
	return highlights(e.OccurrencesInRange(events, start, end))
}

// MonthView returns the occurrences of a six week month grid, including the
// trailing days of the previous month and the leading days of the next.
func (e *Engine) MonthView(events []event.Event, year int, month time.Month) []HighlightedDay {
	start, end := e.MonthGridWindow(year, month)
	return highlights(e.OccurrencesInRange(events, start, end))
}

// WeekView returns the occurrences of the week containing base.
func (e *Engine) WeekView(events []event.Event, base caldate.Date) []HighlightedDay {
	start, end := e.WeekWindow(base)
	return highlights(e.OccurrencesInRange(events, start, end))
}

// YearHighlights returns the occurrences of a whole year grouped by month.
// Months without occurrences are absent from the map.
func (e *Engine) YearHighlights(events []event.Event, year int) map[time.Month][]HighlightedDay {
	x := e.OccurrencesInRange(events, caldate.New(year, time.January, 1), caldate.New(year, time.December, 31))

	out := make(map[time.Month][]HighlightedDay)
	for _, o := range x.Occurrences {
		out[o.Date.Month()] = append(out[o.Date.Month()], Highlight(o))
	}
	return out
}

// MonthHighlights is Engine.MonthHighlights with DisabledCacheConfig.
func MonthHighlights(events []event.Event, year int, month time.Month) []HighlightedDay {
	return defaultEngine.MonthHighlights(events, year, month)
}

// MonthView is Engine.MonthView with DisabledCacheConfig.
func MonthView(events []event.Event, year int, month time.Month) []HighlightedDay {
	return defaultEngine.MonthView(events, year, month)
}

// WeekView is Engine.WeekView with DisabledCacheConfig.
func WeekView(events []event.Event, base caldate.Date) []HighlightedDay {
	return defaultEngine.WeekView(events, base)
}

// YearHighlights is Engine.YearHighlights with DisabledCacheConfig.
func YearHighlights(events []event.Event, year int) map[time.Month][]HighlightedDay {
	return defaultEngine.YearHighlights(events, year)
}

func highlights(x Expansion) []HighlightedDay {
	out := make([]HighlightedDay, len(x.Occurrences))
	for i, o := range x.Occurrences {
		out[i] = Highlight(o)
	}
	return out
}
