package recurrence

import (
	"time"

	"github.com/cyp0633/libcalrecur/caldate"
	"github.com/cyp0633/libcalrecur/event"
	"github.com/samber/mo"
)

// Occurrence is a single instance of an event on a concrete day.
type Occurrence struct {
	Event event.Event
	Date  caldate.Date
}

// Outcome explains the result of resolving the next occurrence.
type Outcome int

const (
	// OutcomeFound means a next occurrence exists.
	OutcomeFound Outcome = iota
	// OutcomeNotRecurring means the event happens only on its original date.
	OutcomeNotRecurring
	// OutcomeEnded means the count or until bound has been reached.
	OutcomeEnded
	// OutcomeHorizonExhausted means the search gave up after the configured
	// number of steps without finding a matching day.
	OutcomeHorizonExhausted
	// OutcomeUnsupported means the pattern cannot produce occurrences
	// (interval below one, no weekdays, unknown month rule).
	OutcomeUnsupported
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotRecurring:
		return "not recurring"
	case OutcomeEnded:
		return "ended"
	case OutcomeHorizonExhausted:
		return "horizon exhausted"
	case OutcomeUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Resolution is the next occurrence together with the reason it is absent.
type Resolution struct {
	Date    mo.Option[caldate.Date]
	Outcome Outcome
}

func found(d caldate.Date) Resolution {
	return Resolution{Date: mo.Some(d), Outcome: OutcomeFound}
}

func stopped(o Outcome) Resolution {
	return Resolution{Date: mo.None[caldate.Date](), Outcome: o}
}

// DiagnosticKind classifies a non-fatal expansion problem.
type DiagnosticKind string

const (
	// DiagnosticCapReached is recorded when an event had more occurrences in
	// the range than MaxOccurrencesPerEvent allows.
	DiagnosticCapReached DiagnosticKind = "cap_reached"
	// DiagnosticHorizonExhausted is recorded when the search for an event's
	// next occurrence gave up inside the range.
	DiagnosticHorizonExhausted DiagnosticKind = "horizon_exhausted"
)

// Diagnostic reports an event whose expansion was cut short.
type Diagnostic struct {
	EventID string
	Title   string
	Kind    DiagnosticKind
	// Limit is the cap or horizon that was hit.
	Limit int
}

// Expansion is the result of a range query.
type Expansion struct {
	// Occurrences in ascending date order.
	Occurrences []Occurrence
	Diagnostics []Diagnostic
}

// Truncated returns the IDs of events whose occurrences were capped.
func (x Expansion) Truncated() []string {
	var ids []string
	for _, d := range x.Diagnostics {
		if d.Kind == DiagnosticCapReached {
			ids = append(ids, d.EventID)
		}
	}
	return ids
}

// Dates returns the date of every occurrence, in order.
func (x Expansion) Dates() []caldate.Date {
	out := make([]caldate.Date, len(x.Occurrences))
	for i, o := range x.Occurrences {
		out[i] = o.Date
	}
	return out
}

func (x Expansion) clone() Expansion {
	out := Expansion{Diagnostics: append([]Diagnostic(nil), x.Diagnostics...)}
	for _, o := range x.Occurrences {
		out.Occurrences = append(out.Occurrences, Occurrence{Event: o.Event.Clone(), Date: o.Date})
	}
	return out
}

// HighlightedDay is the flattened form of an occurrence used by calendar
// views.
type HighlightedDay struct {
	ID                 string
	Title              string
	Year               int
	Month              time.Month
	Day                int
	StartTimeInMinutes mo.Option[int]
	EndTimeInMinutes   mo.Option[int]
}

// Date returns the day the highlight falls on.
func (h HighlightedDay) Date() caldate.Date {
	return caldate.New(h.Year, h.Month, h.Day)
}

// Highlight flattens o.
func Highlight(o Occurrence) HighlightedDay {
	return HighlightedDay{
		ID:                 o.Event.ID,
		Title:              o.Event.Title,
		Year:               o.Date.Year(),
		Month:              o.Date.Month(),
		Day:                o.Date.Day(),
		StartTimeInMinutes: o.Event.StartTimeInMinutes,
		EndTimeInMinutes:   o.Event.EndTimeInMinutes,
	}
}
