package event

import (
	"time"

	"github.com/cyp0633/libcalrecur/caldate"
	"github.com/samber/mo"
)

// Template keys understood by the description renderer. They match the
// entries of the language dictionary the renderer is fed.
const (
	KeyStartsOn         = "Starts on {{date}}"
	KeyAtTime           = "at {{time}}"
	KeyDoesNotRepeat    = "and does not repeat."
	KeyRepeats          = "and repeats {{interval}} {{frequency}}"
	KeyOnDays           = "on {{days}}"
	KeyOnNthDay         = "on the {{nth}} day"
	KeyOnNthWeekday     = "on the {{nth}} {{weekday}}"
	KeyOnMonthDay       = "on {{month}} {{day}}"
	KeyOnNthWeekdayOfMo = "on the {{nth}} {{weekday}} of {{month}}"
	KeyForCount         = "for {{count}} occurrences."
	KeyUntil            = "until {{date}}."
	KeyForever          = "forever."
)

// Description carries the structured facts needed to phrase an event in any
// language. Turning it into text is up to the caller.
type Description struct {
	Start     caldate.Date
	StartTime mo.Option[int]
	EndTime   mo.Option[int]

	Repeats   bool
	Frequency Frequency
	Interval  int

	// Weekly only, sorted and de-duplicated.
	Weekdays []time.Weekday

	// Monthly and yearly only.
	Rule     MonthRule
	Month    time.Month
	Day      int
	Position caldate.Position

	Count mo.Option[int]
	Until mo.Option[caldate.Date]

	hasEnd bool
}

// Segment is one template key with the raw values for its placeholders.
// Placeholder values are caldate.Date, time.Weekday, []time.Weekday,
// time.Month, Frequency, or int. An "nth" of "last" is the string "last".
type Segment struct {
	Key    string
	Params map[string]any
}

// Describe derives the description components of ev.
func Describe(ev Event) Description {
	d := Description{
		Start:     ev.OriginalDate,
		StartTime: ev.StartTimeInMinutes,
		EndTime:   ev.EndTimeInMinutes,
		Month:     ev.OriginalDate.Month(),
		Day:       ev.OriginalDate.Day(),
		Position:  caldate.WeekdayOccurrence(ev.OriginalDate),
	}
	if !Known(ev.Recurrence) {
		return d
	}

	d.Repeats = true
	d.Frequency = ev.Recurrence.Frequency()
	d.Interval = ev.Recurrence.Base().Interval
	d.Count = CountOf(ev.Recurrence)
	d.Until = UntilOf(ev.Recurrence)
	d.hasEnd = ev.Recurrence.Base().End != nil

	switch r := ev.Recurrence.(type) {
	case Weekly:
		d.Weekdays = r.Weekdays()
	case Monthly:
		d.Rule = r.Type
	case Yearly:
		d.Rule = r.Type
	}
	return d
}

// Segments lists the template keys, in reading order, that phrase d.
func (d Description) Segments() []Segment {
	segs := []Segment{{Key: KeyStartsOn, Params: map[string]any{"date": d.Start}}}

	if start, ok := d.StartTime.Get(); ok {
		params := map[string]any{"time": start}
		if end, ok := d.EndTime.Get(); ok {
			params["end"] = end
		}
		segs = append(segs, Segment{Key: KeyAtTime, Params: params})
	}

	if !d.Repeats {
		return append(segs, Segment{Key: KeyDoesNotRepeat})
	}

	segs = append(segs, Segment{Key: KeyRepeats, Params: map[string]any{
		"interval":  d.Interval,
		"frequency": d.Frequency,
	}})

	var nth any = d.Position.N
	if d.Rule == LastWeekday {
		nth = "last"
	}

	switch d.Frequency {
	case FrequencyWeekly:
		segs = append(segs, Segment{Key: KeyOnDays, Params: map[string]any{"days": d.Weekdays}})
	case FrequencyMonthly:
		switch d.Rule {
		case DayOfMonth:
			segs = append(segs, Segment{Key: KeyOnNthDay, Params: map[string]any{"nth": d.Day}})
		case NthWeekday, LastWeekday:
			segs = append(segs, Segment{Key: KeyOnNthWeekday, Params: map[string]any{
				"nth":     nth,
				"weekday": d.Position.Weekday,
			}})
		}
	case FrequencyYearly:
		switch d.Rule {
		case DayOfMonth:
			segs = append(segs, Segment{Key: KeyOnMonthDay, Params: map[string]any{
				"month": d.Month,
				"day":   d.Day,
			}})
		case NthWeekday, LastWeekday:
			segs = append(segs, Segment{Key: KeyOnNthWeekdayOfMo, Params: map[string]any{
				"nth":     nth,
				"weekday": d.Position.Weekday,
				"month":   d.Month,
			}})
		}
	}

	if count, ok := d.Count.Get(); ok {
		return append(segs, Segment{Key: KeyForCount, Params: map[string]any{"count": count}})
	}
	if until, ok := d.Until.Get(); ok {
		return append(segs, Segment{Key: KeyUntil, Params: map[string]any{"date": until}})
	}
	if d.hasEnd {
		return segs
	}
	return append(segs, Segment{Key: KeyForever})
}
