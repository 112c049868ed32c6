package recurrence

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/cyp0633/libcalrecur/caldate"
	"github.com/cyp0633/libcalrecur/event"
	"github.com/samber/mo"
)

// defaultEngine backs the package level helpers. It never caches, so it
// owns no goroutine and needs no Close.
var defaultEngine = NewEngineWithConfig(DisabledCacheConfig)

// NextOccurrence returns the first occurrence of ev strictly after the given
// day using DisabledCacheConfig.
func NextOccurrence(ev event.Event, after caldate.Date) mo.Option[caldate.Date] {
	return defaultEngine.NextOccurrence(ev, after)
}

// OccurrencesInRange expands events over [start, end] using
// DisabledCacheConfig.
func OccurrencesInRange(events []event.Event, start, end caldate.Date) Expansion {
	return defaultEngine.OccurrencesInRange(events, start, end)
}

// OccurrencesInRange expands events into every occurrence that falls on a
// day in [start, end], both ends included.
//
// Each event contributes at most MaxOccurrencesPerEvent occurrences. An event
// that had more, or whose search gave up inside the range, is reported in
// the Diagnostics of the result; neither is an error. The occurrences are
// sorted by date, then start time, ID and title, so the order of events
// does not affect the result.
func (e *Engine) OccurrencesInRange(events []event.Event, start, end caldate.Date) Expansion {
	if end.Before(start) {
		return Expansion{}
	}

	if e.cache != nil {
		if x, ok := e.cache.Get(events, start, end); ok {
			e.logger.Debug("range cache hit",
				"start", start.String(),
				"end", end.String(),
				"events", len(events))
			return x
		}
	}

	var x Expansion
	for _, ev := range events {
		e.expandEvent(ev, start, end, &x)
	}

	slices.SortStableFunc(x.Occurrences, compareOccurrences)
	slices.SortStableFunc(x.Diagnostics, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.EventID, b.EventID),
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.Title, b.Title),
		)
	})

	if e.cache != nil {
		e.cache.Set(events, start, end, x)
	}
	return x
}

func (e *Engine) expandEvent(ev event.Event, start, end caldate.Date, x *Expansion) {
	if ev.Recurrence == nil {
		if !ev.OriginalDate.Before(start) && !ev.OriginalDate.After(end) {
			x.Occurrences = append(x.Occurrences, Occurrence{Event: ev.Clone(), Date: ev.OriginalDate})
		}
		return
	}

	limit := e.config.MaxOccurrencesPerEvent
	collected := 0

	// Resolving from the day before the range yields the anchor itself when
	// the anchor is inside the range, and fast-forwards otherwise.
	res := e.Resolve(ev, start.AddDays(-1))
	last := mo.None[caldate.Date]()
	for {
		d, ok := res.Date.Get()
		if !ok {
			switch res.Outcome {
			case OutcomeHorizonExhausted:
				x.Diagnostics = append(x.Diagnostics, Diagnostic{
					EventID: ev.ID,
					Title:   ev.Title,
					Kind:    DiagnosticHorizonExhausted,
					Limit:   e.config.SearchHorizon,
				})
			case OutcomeUnsupported:
				e.logger.Debug("skipping event with unusable recurrence",
					"event_id", ev.ID,
					"recurrence", fmt.Sprintf("%T", ev.Recurrence))
			}
			return
		}
		if d.After(end) {
			return
		}
		if d.Before(start) {
			if prev, ok := last.Get(); ok && !d.After(prev) {
				return
			}
			last = mo.Some(d)
			res = e.Resolve(ev, d)
			continue
		}
		if collected == limit {
			e.logger.Warn("occurrence cap reached, results truncated",
				"event_id", ev.ID,
				"title", ev.Title,
				"cap", limit)
			x.Diagnostics = append(x.Diagnostics, Diagnostic{
				EventID: ev.ID,
				Title:   ev.Title,
				Kind:    DiagnosticCapReached,
				Limit:   limit,
			})
			return
		}

		x.Occurrences = append(x.Occurrences, Occurrence{Event: ev.Clone(), Date: d})
		collected++
		res = e.Resolve(ev, d)
	}
}

func compareOccurrences(a, b Occurrence) int {
	return cmp.Or(
		a.Date.Compare(b.Date),
		compareMinutes(a.Event.StartTimeInMinutes, b.Event.StartTimeInMinutes),
		cmp.Compare(a.Event.ID, b.Event.ID),
		cmp.Compare(a.Event.Title, b.Event.Title),
		compareMinutes(a.Event.EndTimeInMinutes, b.Event.EndTimeInMinutes),
	)
}

// compareMinutes orders absent times before present ones.
func compareMinutes(a, b mo.Option[int]) int {
	av, aok := a.Get()
	bv, bok := b.Get()
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	return cmp.Compare(av, bv)
}
