package event

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalid matches every *ValidationError via errors.Is.
var ErrInvalid = errors.New("invalid event")

// ValidationError describes one broken rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// IsValid reports whether ev may be stored and handed to the resolvers.
func IsValid(ev Event) bool {
	return Validate(ev) == nil
}

// Validate checks the structural and semantic rules of an event and its
// recurrence. It returns nil for a valid event, otherwise every broken rule
// joined with errors.Join. It never panics.
func Validate(ev Event) error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	start, hasStart := ev.StartTimeInMinutes.Get()
	end, hasEnd := ev.EndTimeInMinutes.Get()
	if hasStart && (start < 0 || start >= MinutesPerDay) {
		fail("startTimeInMinutes", "%d is outside [0, %d]", start, MinutesPerDay-1)
	}
	if hasEnd && (end < 1 || end > MinutesPerDay) {
		fail("endTimeInMinutes", "%d is outside [1, %d]", end, MinutesPerDay)
	}
	if hasStart && hasEnd && end <= start {
		fail("endTimeInMinutes", "end %d is not after start %d", end, start)
	}

	if ev.Recurrence == nil {
		return errors.Join(errs...)
	}
	if !Known(ev.Recurrence) {
		fail("recurrence", "unsupported recurrence %T", ev.Recurrence)
		return errors.Join(errs...)
	}

	base := ev.Recurrence.Base()
	if base.Interval < 1 {
		fail("recurrence.interval", "must be a positive integer, got %d", base.Interval)
	}

	switch r := ev.Recurrence.(type) {
	case Weekly:
		if len(r.DaysOfWeek) == 0 {
			fail("recurrence.daysOfWeek", "at least one weekday is required")
		}
		for _, d := range r.DaysOfWeek {
			if d < time.Sunday || d > time.Saturday {
				fail("recurrence.daysOfWeek", "%d is not a weekday in [0, 6]", int(d))
			}
		}
	case Monthly:
		if !r.Type.valid() {
			fail("recurrence.monthlyType", "unknown rule %q", r.Type)
		}
	case Yearly:
		if !r.Type.valid() {
			fail("recurrence.yearlyType", "unknown rule %q", r.Type)
		}
	}

	switch e := base.End.(type) {
	case Count:
		if e.Value < 1 {
			fail("recurrence.end.value", "count must be a positive integer, got %d", e.Value)
		}
	case Until:
		until, ok := e.Date().Get()
		switch {
		case !ok:
			fail("recurrence.end.value", "until %q is not a date", e.Value)
		case until.Before(ev.OriginalDate):
			fail("recurrence.end.value", "until %s is before the original date %s", until, ev.OriginalDate)
		}
	}

	return errors.Join(errs...)
}
