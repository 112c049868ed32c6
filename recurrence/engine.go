package recurrence

import (
	"log/slog"
	"slices"
	"time"

	"github.com/cyp0633/libcalrecur/caldate"
	"github.com/cyp0633/libcalrecur/event"
	"github.com/samber/mo"
)

// Engine computes occurrences of calendar events. It is safe for concurrent
// use. An engine built with the cache enabled must be closed.
type Engine struct {
	cache  *RangeCache
	config EngineConfig
	logger *slog.Logger
}

// NewEngine creates a new recurrence engine from DefaultEngineConfig
func NewEngine(opts ...Option) *Engine {
	return NewEngineWithConfig(DefaultEngineConfig, opts...)
}

// Config returns the normalized configuration of e.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Cache returns the range cache, or nil when caching is disabled.
func (e *Engine) Cache() *RangeCache {
	return e.cache
}

// Close releases the range cache.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// NextOccurrence returns the first occurrence of ev strictly after the
// given day, or None when there is none.
func (e *Engine) NextOccurrence(ev event.Event, after caldate.Date) mo.Option[caldate.Date] {
	return e.Resolve(ev, after).Date
}

// Resolve is NextOccurrence with the reason a missing occurrence is
// missing.
//
// The original date is always the first occurrence. Asking for the next
// occurrence after a day before it yields the original date itself.
func (e *Engine) Resolve(ev event.Event, after caldate.Date) Resolution {
	rec := ev.Recurrence
	if rec == nil {
		return stopped(OutcomeNotRecurring)
	}
	if !event.Known(rec) {
		return stopped(OutcomeUnsupported)
	}

	base := rec.Base()
	if base.Interval < 1 {
		return stopped(OutcomeUnsupported)
	}

	b := bounds{until: event.UntilOf(rec), count: event.CountOf(rec)}
	if until, ok := b.until.Get(); ok && !after.Before(until) {
		return stopped(OutcomeEnded)
	}

	anchor := ev.OriginalDate
	if after.Before(anchor) {
		if !e.canProduce(rec) {
			return stopped(OutcomeUnsupported)
		}
		return b.accept(anchor, 1)
	}

	var res Resolution
	switch r := rec.(type) {
	case event.Daily:
		res = e.nextDaily(anchor, base.Interval, after, b)
	case event.Weekly:
		res = e.nextWeekly(anchor, r, after, b)
	case event.Monthly:
		res = e.nextByMonthStep(anchor, r.Type, base.Interval, after, b)
	case event.Yearly:
		res = e.nextByMonthStep(anchor, r.Type, 12*base.Interval, after, b)
	default:
		res = stopped(OutcomeUnsupported)
	}

	if res.Outcome == OutcomeHorizonExhausted {
		e.logger.Debug("search horizon exhausted",
			"event_id", ev.ID,
			"frequency", rec.Frequency(),
			"after", after.String(),
			"horizon", e.config.SearchHorizon)
	}
	return res
}

// canProduce reports whether rec's shape allows any occurrence at all.
func (e *Engine) canProduce(rec event.Recurrence) bool {
	switch r := rec.(type) {
	case event.Daily:
		return true
	case event.Weekly:
		return len(r.Weekdays()) > 0
	case event.Monthly:
		return monthRulePicker(caldate.Date{}, r.Type) != nil
	case event.Yearly:
		return monthRulePicker(caldate.Date{}, r.Type) != nil
	}
	return false
}

// bounds are the end conditions of a recurrence.
type bounds struct {
	until mo.Option[caldate.Date]
	count mo.Option[int]
}

// accept checks a candidate with the given 1-based occurrence index against
// the bounds.
func (b bounds) accept(candidate caldate.Date, index int) Resolution {
	if until, ok := b.until.Get(); ok && candidate.After(until) {
		return stopped(OutcomeEnded)
	}
	if count, ok := b.count.Get(); ok && index > count {
		return stopped(OutcomeEnded)
	}
	return found(candidate)
}

// pastUntil reports whether d lies beyond the until bound.
func (b bounds) pastUntil(d caldate.Date) bool {
	until, ok := b.until.Get()
	return ok && d.After(until)
}

func (e *Engine) nextDaily(anchor caldate.Date, interval int, after caldate.Date, b bounds) Resolution {
	k := anchor.DaysUntil(after)/interval + 1
	return b.accept(anchor.AddDays(k*interval), k+1)
}

// nextWeekly walks active weeks, those a multiple of interval weeks after
// the week holding the anchor, and returns the first selected weekday after
// the given day.
func (e *Engine) nextWeekly(anchor caldate.Date, r event.Weekly, after caldate.Date, b bounds) Resolution {
	days := r.Weekdays()
	if len(days) == 0 {
		return stopped(OutcomeUnsupported)
	}

	weekStart := e.config.WeekStart
	offsets := weekOffsets(days, weekStart)
	interval := r.Interval

	anchorWeek := caldate.StartOfWeek(anchor, weekStart)
	w := anchorWeek.DaysUntil(caldate.StartOfWeek(after, weekStart)) / 7
	if rem := w % interval; rem != 0 {
		w += interval - rem
	}

	for step := 0; step < e.config.SearchHorizon; step++ {
		start := anchorWeek.AddDays(w * 7)
		if b.pastUntil(start) {
			return stopped(OutcomeEnded)
		}
		for _, off := range offsets {
			candidate := start.AddDays(off)
			if !candidate.After(after) {
				continue
			}
			index := weeklyIndex(offsetOf(anchor.Weekday(), weekStart), off, w, interval, offsets)
			return b.accept(candidate, index)
		}
		w += interval
	}
	return stopped(OutcomeHorizonExhausted)
}

// weekOffsets converts weekdays to ascending offsets from the week start.
func weekOffsets(days []time.Weekday, weekStart time.Weekday) []int {
	offsets := make([]int, 0, len(days))
	for _, d := range days {
		offsets = append(offsets, offsetOf(d, weekStart))
	}
	slices.Sort(offsets)
	return offsets
}

func offsetOf(d, weekStart time.Weekday) int {
	return (int(d) - int(weekStart) + 7) % 7
}

// weeklyIndex returns the 1-based position of a candidate in the sequence
// that starts with the anchor. The candidate sits at offset cand in week w
// (a multiple of interval) and the anchor at offset anchor in week 0.
// Selected days are counted without walking the calendar.
func weeklyIndex(anchor, cand, w, interval int, offsets []int) int {
	if w == 0 {
		n := 0
		for _, off := range offsets {
			if off > anchor && off <= cand {
				n++
			}
		}
		return 1 + n
	}

	n := 0
	for _, off := range offsets {
		if off > anchor {
			n++
		}
		if off <= cand {
			n++
		}
	}
	n += (w/interval - 1) * len(offsets)
	return 1 + n
}

// monthRulePicker returns the function selecting the occurrence day within
// a month for rule, derived from the anchor. It returns nil for unknown
// rules.
func monthRulePicker(anchor caldate.Date, rule event.MonthRule) func(int, time.Month) mo.Option[caldate.Date] {
	switch rule {
	case event.DayOfMonth:
		day := anchor.Day()
		return func(year int, month time.Month) mo.Option[caldate.Date] {
			return caldate.Exact(year, month, day)
		}
	case event.NthWeekday:
		pos := caldate.WeekdayOccurrence(anchor)
		return func(year int, month time.Month) mo.Option[caldate.Date] {
			return caldate.NthWeekdayOfMonth(year, month, pos.Weekday, pos.Ordinal())
		}
	case event.LastWeekday:
		weekday := anchor.Weekday()
		return func(year int, month time.Month) mo.Option[caldate.Date] {
			return caldate.LastWeekdayOfMonth(year, month, weekday)
		}
	}
	return nil
}

// nextByMonthStep serves monthly (step = interval) and yearly
// (step = 12 * interval) recurrences. Months without a matching day are
// skipped, never clamped.
func (e *Engine) nextByMonthStep(anchor caldate.Date, rule event.MonthRule, step int, after caldate.Date, b bounds) Resolution {
	pick := monthRulePicker(anchor, rule)
	if pick == nil {
		return stopped(OutcomeUnsupported)
	}

	monthAt := func(i int) caldate.Date {
		return caldate.New(anchor.Year(), anchor.Month()+time.Month(i*step), 1)
	}

	if count, ok := b.count.Get(); ok {
		return e.nextCounted(anchor, step, monthAt, pick, count, after, b)
	}

	i := max(1, ceilDiv(anchor.MonthsUntil(after), step))
	for probes := 0; probes < e.config.SearchHorizon; probes, i = probes+1, i+1 {
		first := monthAt(i)
		if b.pastUntil(first) {
			return stopped(OutcomeEnded)
		}
		candidate, ok := pick(first.Year(), first.Month()).Get()
		if !ok || !candidate.After(after) {
			continue
		}
		return b.accept(candidate, 0)
	}
	return stopped(OutcomeHorizonExhausted)
}

// nextCounted enumerates occurrences from the anchor. Skipped months do not
// consume the count. The horizon bounds each run of empty months, and the
// walk never goes more than a horizon of steps past the month of after.
func (e *Engine) nextCounted(
	anchor caldate.Date,
	step int,
	monthAt func(int) caldate.Date,
	pick func(int, time.Month) mo.Option[caldate.Date],
	count int,
	after caldate.Date,
	b bounds,
) Resolution {
	index := 1
	misses := 0
	limit := ceilDiv(anchor.MonthsUntil(after), step) + e.config.SearchHorizon
	for i := 1; i <= limit; i++ {
		first := monthAt(i)
		if b.pastUntil(first) {
			return stopped(OutcomeEnded)
		}

		candidate, ok := pick(first.Year(), first.Month()).Get()
		if !ok {
			misses++
			if misses >= e.config.SearchHorizon {
				return stopped(OutcomeHorizonExhausted)
			}
			continue
		}
		misses = 0

		index++
		if index > count {
			return stopped(OutcomeEnded)
		}
		if candidate.After(after) {
			return b.accept(candidate, index)
		}
	}
	return stopped(OutcomeHorizonExhausted)
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
