package recurrence

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cyp0633/libcalrecur/caldate"
	"github.com/cyp0633/libcalrecur/event"
	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// ProductID identifies calendars written by this package.
const ProductID = "-//libcalrecur//Recurrence Engine//EN"

var (
	// ErrUnsupportedRule is returned when a recurrence cannot be expressed
	// on the other side of the conversion.
	ErrUnsupportedRule = errors.New("unsupported recurrence rule")
	// ErrInvalidComponent is returned for calendar components that are not
	// usable events.
	ErrInvalidComponent = errors.New("invalid calendar component")
)

// rruleWeekdays maps time.Weekday to rrule weekdays.
var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

func fromRRuleWeekday(w rrule.Weekday) time.Weekday {
	return time.Weekday((w.Day() + 1) % 7)
}

// RuleOption translates the recurrence of ev into an RRULE. One-time events
// yield nil. DTSTART is the original date at the event's start time in UTC.
func (e *Engine) RuleOption(ev event.Event) (*rrule.ROption, error) {
	if ev.Recurrence == nil {
		return nil, nil
	}
	if !event.Known(ev.Recurrence) {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedRule, ev.Recurrence)
	}

	base := ev.Recurrence.Base()
	if base.Interval < 1 {
		return nil, fmt.Errorf("%w: interval %d", ErrUnsupportedRule, base.Interval)
	}

	anchor := ev.OriginalDate
	opt := &rrule.ROption{
		Dtstart:  startTime(ev),
		Interval: base.Interval,
		Wkst:     rruleWeekdays[e.config.WeekStart],
	}

	switch r := ev.Recurrence.(type) {
	case event.Daily:
		opt.Freq = rrule.DAILY
	case event.Weekly:
		opt.Freq = rrule.WEEKLY
		days := r.Weekdays()
		if len(days) == 0 {
			return nil, fmt.Errorf("%w: weekly rule without weekdays", ErrUnsupportedRule)
		}
		for _, d := range days {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	case event.Monthly:
		opt.Freq = rrule.MONTHLY
		if err := setMonthRule(opt, anchor, r.Type); err != nil {
			return nil, err
		}
	case event.Yearly:
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{int(anchor.Month())}
		if err := setMonthRule(opt, anchor, r.Type); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedRule, ev.Recurrence)
	}

	if count, ok := event.CountOf(ev.Recurrence).Get(); ok {
		opt.Count = count
	} else if until, ok := event.UntilOf(ev.Recurrence).Get(); ok {
		opt.Until = until.EndOfDay().Truncate(time.Second)
	}

	return opt, nil
}

func setMonthRule(opt *rrule.ROption, anchor caldate.Date, rule event.MonthRule) error {
	switch rule {
	case event.DayOfMonth:
		opt.Bymonthday = []int{anchor.Day()}
	case event.NthWeekday:
		pos := caldate.WeekdayOccurrence(anchor)
		opt.Byweekday = []rrule.Weekday{rruleWeekdays[pos.Weekday].Nth(pos.N)}
	case event.LastWeekday:
		opt.Byweekday = []rrule.Weekday{rruleWeekdays[anchor.Weekday()].Nth(-1)}
	default:
		return fmt.Errorf("%w: month rule %q", ErrUnsupportedRule, rule)
	}
	return nil
}

func startTime(ev event.Event) time.Time {
	t := ev.OriginalDate.Time()
	if start, ok := ev.StartTimeInMinutes.Get(); ok {
		t = t.Add(time.Duration(start) * time.Minute)
	}
	return t
}

// ToComponent converts ev to a VEVENT. Events without a start time become
// all-day events.
func (e *Engine) ToComponent(ev event.Event) (*ical.Component, error) {
	opt, err := e.RuleOption(ev)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.ID, err)
	}

	comp := ical.NewComponent(ical.CompEvent)

	uid := ev.ID
	if uid == "" {
		uid = uuid.NewString()
	}
	comp.Props.SetText(ical.PropUID, uid)
	comp.Props.SetText(ical.PropSummary, ev.Title)
	comp.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC().Truncate(time.Second))

	day := ev.OriginalDate.Time()
	if start, ok := ev.StartTimeInMinutes.Get(); ok {
		comp.Props.SetDateTime(ical.PropDateTimeStart, day.Add(time.Duration(start)*time.Minute))
		if end, ok := ev.EndTimeInMinutes.Get(); ok {
			comp.Props.SetDateTime(ical.PropDateTimeEnd, day.Add(time.Duration(end)*time.Minute))
		}
	} else {
		comp.Props.SetDate(ical.PropDateTimeStart, day)
		comp.Props.SetDate(ical.PropDateTimeEnd, ev.OriginalDate.AddDays(1).Time())
	}

	if opt != nil {
		comp.Props.Set(&ical.Prop{
			Name:   ical.PropRecurrenceRule,
			Params: make(ical.Params),
			Value:  ruleValue(ev, opt),
		})
	}

	return comp, nil
}

// ruleValue renders opt as an RRULE value. UNTIL takes the value type of
// DTSTART, so all-day events get a DATE-form bound.
func ruleValue(ev event.Event, opt *rrule.ROption) string {
	if ev.StartTimeInMinutes.IsPresent() || opt.Until.IsZero() {
		return opt.RRuleString()
	}
	until := opt.Until
	dateOnly := *opt
	dateOnly.Until = time.Time{}
	return dateOnly.RRuleString() + ";UNTIL=" + until.UTC().Format(rrule.DateFormat)
}

// FromComponent converts a VEVENT back into an event. Rules the event model
// cannot represent, such as BYSETPOS, several nth weekdays or exception
// dates, are rejected with ErrUnsupportedRule.
func (e *Engine) FromComponent(comp *ical.Component) (event.Event, error) {
	if comp.Name != ical.CompEvent {
		return event.Event{}, fmt.Errorf("%w: expected %s, got %s", ErrInvalidComponent, ical.CompEvent, comp.Name)
	}

	ev := event.Event{}
	if prop := comp.Props.Get(ical.PropUID); prop != nil {
		ev.ID = prop.Value
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		title, err := prop.Text()
		if err != nil {
			return event.Event{}, fmt.Errorf("%w: SUMMARY: %w", ErrInvalidComponent, err)
		}
		ev.Title = title
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return event.Event{}, fmt.Errorf("%w: %s has no DTSTART", ErrInvalidComponent, ev.ID)
	}
	start, err := comp.Props.DateTime(ical.PropDateTimeStart, time.UTC)
	if err != nil {
		return event.Event{}, fmt.Errorf("%w: DTSTART: %w", ErrInvalidComponent, err)
	}
	ev.OriginalDate = caldate.FromTime(start)

	if !isDateValue(startProp.Params) {
		ev.StartTimeInMinutes = mo.Some(minuteOfDay(start))
		if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil && !isDateValue(endProp.Params) {
			end, err := comp.Props.DateTime(ical.PropDateTimeEnd, time.UTC)
			if err != nil {
				return event.Event{}, fmt.Errorf("%w: DTEND: %w", ErrInvalidComponent, err)
			}
			ev.EndTimeInMinutes = endMinutes(ev.OriginalDate, start, end)
		}
	}

	for _, name := range []string{ical.PropRecurrenceDates, ical.PropExceptionDates} {
		if comp.Props.Get(name) != nil {
			return event.Event{}, fmt.Errorf("%w: %s is not supported", ErrUnsupportedRule, name)
		}
	}

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil && prop.Value != "" {
		opt, err := rrule.StrToROption(prop.Value)
		if err != nil {
			return event.Event{}, fmt.Errorf("%w: %w", ErrUnsupportedRule, err)
		}
		rec, err := recurrenceFromOption(opt, ev.OriginalDate)
		if err != nil {
			return event.Event{}, fmt.Errorf("event %s: %w", ev.ID, err)
		}
		ev.Recurrence = rec
	}

	return ev, nil
}

func recurrenceFromOption(opt *rrule.ROption, anchor caldate.Date) (event.Recurrence, error) {
	if len(opt.Bysetpos) > 0 || len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 || len(opt.Byeaster) > 0 ||
		len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, opt.RRuleString())
	}

	common := event.Common{Interval: max(1, opt.Interval)}
	if opt.Count > 0 {
		common.End = event.Count{Value: opt.Count}
	} else if !opt.Until.IsZero() {
		common.End = event.UntilDate(caldate.FromTime(opt.Until.UTC()))
	}

	switch opt.Freq {
	case rrule.DAILY:
		if len(opt.Byweekday) > 0 || len(opt.Bymonthday) > 0 || len(opt.Bymonth) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, opt.RRuleString())
		}
		return event.Daily{Common: common}, nil

	case rrule.WEEKLY:
		if len(opt.Bymonthday) > 0 || len(opt.Bymonth) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, opt.RRuleString())
		}
		days := []time.Weekday{anchor.Weekday()}
		if len(opt.Byweekday) > 0 {
			days = days[:0]
			for _, wd := range opt.Byweekday {
				if wd.N() != 0 {
					return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, opt.RRuleString())
				}
				days = append(days, fromRRuleWeekday(wd))
			}
		}
		return event.Weekly{Common: common, DaysOfWeek: days}, nil

	case rrule.MONTHLY:
		if len(opt.Bymonth) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, opt.RRuleString())
		}
		rule, err := monthRuleFromOption(opt, anchor)
		if err != nil {
			return nil, err
		}
		return event.Monthly{Common: common, Type: rule}, nil

	case rrule.YEARLY:
		if len(opt.Bymonth) > 1 || (len(opt.Bymonth) == 1 && opt.Bymonth[0] != int(anchor.Month())) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedRule, opt.RRuleString())
		}
		rule, err := monthRuleFromOption(opt, anchor)
		if err != nil {
			return nil, err
		}
		return event.Yearly{Common: common, Type: rule}, nil
	}

	return nil, fmt.Errorf("%w: frequency %v", ErrUnsupportedRule, opt.Freq)
}

// monthRuleFromOption maps a monthly or yearly day selector onto a month
// rule. The selector has to agree with the anchor, which the rule derives
// its day from.
func monthRuleFromOption(opt *rrule.ROption, anchor caldate.Date) (event.MonthRule, error) {
	unsupported := fmt.Errorf("%w: %s", ErrUnsupportedRule, opt.RRuleString())

	switch {
	case len(opt.Byweekday) == 0 && len(opt.Bymonthday) == 0:
		return event.DayOfMonth, nil

	case len(opt.Byweekday) == 0 && len(opt.Bymonthday) == 1:
		if opt.Bymonthday[0] != anchor.Day() {
			return "", unsupported
		}
		return event.DayOfMonth, nil

	case len(opt.Byweekday) == 1 && len(opt.Bymonthday) == 0:
		wd := opt.Byweekday[0]
		pos := caldate.WeekdayOccurrence(anchor)
		if fromRRuleWeekday(wd) != pos.Weekday {
			return "", unsupported
		}
		switch {
		case wd.N() == -1:
			return event.LastWeekday, nil
		case wd.N() == pos.N:
			return event.NthWeekday, nil
		}
	}
	return "", unsupported
}

func isDateValue(params ical.Params) bool {
	if params == nil {
		return false
	}
	values := params["VALUE"]
	return len(values) > 0 && strings.ToUpper(values[0]) == "DATE"
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// endMinutes maps DTEND onto the event's day. An end at midnight of the
// next day is the end of the day; anything else outside the day is dropped.
func endMinutes(day caldate.Date, start, end time.Time) mo.Option[int] {
	if !end.After(start) {
		return mo.None[int]()
	}
	endDay := caldate.FromTime(end)
	switch {
	case endDay == day:
		return mo.Some(minuteOfDay(end))
	case endDay == day.AddDays(1) && minuteOfDay(end) == 0:
		return mo.Some(event.MinutesPerDay)
	}
	return mo.None[int]()
}

// EncodeCalendar writes events as an iCalendar stream.
func (e *Engine) EncodeCalendar(w io.Writer, events []event.Event) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText(ical.PropVersion, "2.0")

	for _, ev := range events {
		comp, err := e.ToComponent(ev)
		if err != nil {
			return err
		}
		cal.Children = append(cal.Children, comp)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// DecodeCalendar reads every VEVENT from an iCalendar stream. Events that
// cannot be represented are skipped; their errors are joined into the
// returned error alongside the events that could be read.
func (e *Engine) DecodeCalendar(r io.Reader) ([]event.Event, error) {
	dec := ical.NewDecoder(r)

	var (
		events []event.Event
		errs   []error
	)
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return events, fmt.Errorf("failed to decode calendar: %w", err)
		}

		for _, child := range cal.Children {
			if child.Name != ical.CompEvent {
				continue
			}
			ev, err := e.FromComponent(child)
			if err != nil {
				e.logger.Debug("skipping calendar event", "error", err)
				errs = append(errs, err)
				continue
			}
			events = append(events, ev)
		}
	}

	return events, errors.Join(errs...)
}

// EncodeCalendar is Engine.EncodeCalendar with DisabledCacheConfig.
func EncodeCalendar(w io.Writer, events []event.Event) error {
	return defaultEngine.EncodeCalendar(w, events)
}

// DecodeCalendar is Engine.DecodeCalendar with DisabledCacheConfig.
func DecodeCalendar(r io.Reader) ([]event.Event, error) {
	return defaultEngine.DecodeCalendar(r)
}
