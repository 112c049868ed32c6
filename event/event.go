// Package event defines calendar events and their recurrence patterns.
//
// An event is anchored on its original date. For recurring events that date
// also encodes the rule: the day of month, or which weekday and which
// occurrence of it in the month. No separate rule field exists.
//
// Events are treated as immutable once validated; edits produce a new
// Event. Persistence is left to the caller, this package only defines the
// wire shape (see MarshalJSON).
package event

import (
	"github.com/cyp0633/libcalrecur/caldate"
	"github.com/google/uuid"
	"github.com/samber/mo"
)

// MinutesPerDay bounds the time of day fields.
const MinutesPerDay = 24 * 60

// Event is a calendar entry, either one-time or recurring.
type Event struct {
	ID    string
	Title string

	// OriginalDate is the first instance of the event and the anchor for all
	// recurrence math.
	OriginalDate caldate.Date

	// Minutes since midnight. Both are optional.
	StartTimeInMinutes mo.Option[int]
	EndTimeInMinutes   mo.Option[int]

	// Recurrence is nil for one-time events.
	Recurrence Recurrence
}

// Option configures an Event built with New.
type Option func(*Event)

// WithID overrides the generated ID.
func WithID(id string) Option {
	return func(e *Event) {
		e.ID = id
	}
}

// WithStartTime sets the start time of day in minutes.
func WithStartTime(start int) Option {
	return func(e *Event) {
		e.StartTimeInMinutes = mo.Some(start)
	}
}

// WithTimes sets both the start and end time of day in minutes.
func WithTimes(start, end int) Option {
	return func(e *Event) {
		e.StartTimeInMinutes = mo.Some(start)
		e.EndTimeInMinutes = mo.Some(end)
	}
}

// WithRecurrence makes the event recurring.
func WithRecurrence(r Recurrence) Option {
	return func(e *Event) {
		e.Recurrence = r
	}
}

// New creates an event on date with a freshly generated ID.
func New(title string, date caldate.Date, opts ...Option) Event {
	e := Event{
		ID:           uuid.New().String(),
		Title:        title,
		OriginalDate: date,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// IsRecurring reports whether the event repeats.
func (e Event) IsRecurring() bool {
	return e.Recurrence != nil
}

// Clone returns a deep copy of e.
func (e Event) Clone() Event {
	e.Recurrence = cloneRecurrence(e.Recurrence)
	return e
}
