package caldate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a string cannot be read as a date.
var ErrInvalidDate = errors.New("invalid date")

// Parse reads a date from s. It accepts a plain ISO date (2024-01-31) as well
// as RFC 3339 timestamps with or without fractional seconds, which is how
// serialized JavaScript dates look (2024-01-31T00:00:00.000Z). Timestamps are
// converted to UTC before the calendar day is taken.
func Parse(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty string", ErrInvalidDate)
	}

	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return FromTime(t), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return FromTime(t.UTC()), nil
	}

	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// MustParse is like Parse but panics on malformed input. It is meant for
// tests and package level variables.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
