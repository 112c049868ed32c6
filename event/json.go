package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cyp0633/libcalrecur/caldate"
	"github.com/samber/mo"
)

// ErrMalformed is returned when a stored event cannot be decoded.
var ErrMalformed = errors.New("malformed event")

const (
	endTypeCount = "count"
	endTypeUntil = "until"
)

// Wire shapes. Months are zero based on the wire (0 = January).
type wireDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type wireEvent struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	OriginalDate       wireDate        `json:"originalDate"`
	StartTimeInMinutes *int            `json:"startTimeInMinutes,omitempty"`
	EndTimeInMinutes   *int            `json:"endTimeInMinutes,omitempty"`
	Recurrence         *wireRecurrence `json:"recurrence,omitempty"`
}

type wireRecurrence struct {
	Frequency   Frequency `json:"frequency"`
	Interval    int       `json:"interval"`
	DaysOfWeek  *[]int    `json:"daysOfWeek,omitempty"`
	MonthlyType MonthRule `json:"monthlyType,omitempty"`
	YearlyType  MonthRule `json:"yearlyType,omitempty"`
	End         *wireEnd  `json:"end,omitempty"`
}

type wireEnd struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes e in the persisted event shape.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		ID:    e.ID,
		Title: e.Title,
		OriginalDate: wireDate{
			Year:  e.OriginalDate.Year(),
			Month: int(e.OriginalDate.Month()) - 1,
			Day:   e.OriginalDate.Day(),
		},
		StartTimeInMinutes: optionToPointer(e.StartTimeInMinutes),
		EndTimeInMinutes:   optionToPointer(e.EndTimeInMinutes),
	}

	if e.Recurrence != nil {
		r, err := encodeRecurrence(e.Recurrence)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
		w.Recurrence = r
	}

	return json.Marshal(w)
}

// UnmarshalJSON decodes the persisted event shape. Unknown frequencies, end
// types or month rules are rejected with ErrMalformed. An until bound that
// does not parse is kept verbatim; Validate reports it.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	month := time.Month(w.OriginalDate.Month + 1)
	date, ok := caldate.Exact(w.OriginalDate.Year, month, w.OriginalDate.Day).Get()
	if !ok {
		return fmt.Errorf("%w: event %s: original date %d-%d-%d does not exist",
			ErrMalformed, w.ID, w.OriginalDate.Year, w.OriginalDate.Month, w.OriginalDate.Day)
	}

	out := Event{
		ID:                 w.ID,
		Title:              w.Title,
		OriginalDate:       date,
		StartTimeInMinutes: pointerToOption(w.StartTimeInMinutes),
		EndTimeInMinutes:   pointerToOption(w.EndTimeInMinutes),
	}

	if w.Recurrence != nil {
		r, err := decodeRecurrence(*w.Recurrence)
		if err != nil {
			return fmt.Errorf("event %s: %w", w.ID, err)
		}
		out.Recurrence = r
	}

	*e = out
	return nil
}

func encodeRecurrence(r Recurrence) (*wireRecurrence, error) {
	if !Known(r) {
		return nil, fmt.Errorf("unsupported recurrence %T", r)
	}
	base := r.Base()
	w := &wireRecurrence{
		Frequency: r.Frequency(),
		Interval:  base.Interval,
	}

	switch v := r.(type) {
	case Daily:
	case Weekly:
		days := make([]int, len(v.DaysOfWeek))
		for i, d := range v.DaysOfWeek {
			days[i] = int(d)
		}
		w.DaysOfWeek = &days
	case Monthly:
		w.MonthlyType = v.Type
	case Yearly:
		w.YearlyType = v.Type
	default:
		return nil, fmt.Errorf("unsupported recurrence %T", r)
	}

	if base.End != nil {
		end, err := encodeEnd(base.End)
		if err != nil {
			return nil, err
		}
		w.End = end
	}
	return w, nil
}

func encodeEnd(end End) (*wireEnd, error) {
	switch v := end.(type) {
	case Count:
		value, err := json.Marshal(v.Value)
		if err != nil {
			return nil, err
		}
		return &wireEnd{Type: endTypeCount, Value: value}, nil
	case Until:
		if v.Value == "" {
			return &wireEnd{Type: endTypeUntil, Value: json.RawMessage("null")}, nil
		}
		value, err := json.Marshal(v.Value)
		if err != nil {
			return nil, err
		}
		return &wireEnd{Type: endTypeUntil, Value: value}, nil
	}
	return nil, fmt.Errorf("unsupported recurrence end %T", end)
}

func decodeRecurrence(w wireRecurrence) (Recurrence, error) {
	common := Common{Interval: w.Interval}
	if w.End != nil {
		end, err := decodeEnd(*w.End)
		if err != nil {
			return nil, err
		}
		common.End = end
	}

	switch w.Frequency {
	case FrequencyDaily:
		return Daily{Common: common}, nil
	case FrequencyWeekly:
		var days []time.Weekday
		if w.DaysOfWeek != nil {
			days = make([]time.Weekday, len(*w.DaysOfWeek))
			for i, d := range *w.DaysOfWeek {
				days[i] = time.Weekday(d)
			}
		}
		return Weekly{Common: common, DaysOfWeek: days}, nil
	case FrequencyMonthly:
		if !w.MonthlyType.valid() {
			return nil, fmt.Errorf("%w: unknown monthly type %q", ErrMalformed, w.MonthlyType)
		}
		return Monthly{Common: common, Type: w.MonthlyType}, nil
	case FrequencyYearly:
		if !w.YearlyType.valid() {
			return nil, fmt.Errorf("%w: unknown yearly type %q", ErrMalformed, w.YearlyType)
		}
		return Yearly{Common: common, Type: w.YearlyType}, nil
	}
	return nil, fmt.Errorf("%w: unknown frequency %q", ErrMalformed, w.Frequency)
}

func decodeEnd(w wireEnd) (End, error) {
	switch w.Type {
	case endTypeCount:
		var n int
		if err := json.Unmarshal(w.Value, &n); err != nil {
			return nil, fmt.Errorf("%w: count end: %w", ErrMalformed, err)
		}
		return Count{Value: n}, nil
	case endTypeUntil:
		var s *string
		if len(w.Value) > 0 {
			if err := json.Unmarshal(w.Value, &s); err != nil {
				return nil, fmt.Errorf("%w: until end: %w", ErrMalformed, err)
			}
		}
		if s == nil {
			return Until{}, nil
		}
		return Until{Value: *s}, nil
	}
	return nil, fmt.Errorf("%w: unknown end type %q", ErrMalformed, w.Type)
}

// DecodeList reads a JSON array of events.
func DecodeList(r io.Reader) ([]Event, error) {
	var events []Event
	if err := json.NewDecoder(r).Decode(&events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

// EncodeList writes events as a JSON array.
func EncodeList(w io.Writer, events []Event) error {
	if events == nil {
		events = []Event{}
	}
	if err := json.NewEncoder(w).Encode(events); err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	return nil
}

func optionToPointer(o mo.Option[int]) *int {
	if v, ok := o.Get(); ok {
		return &v
	}
	return nil
}

func pointerToOption(p *int) mo.Option[int] {
	if p == nil {
		return mo.None[int]()
	}
	return mo.Some(*p)
}
