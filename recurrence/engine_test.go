package recurrence

import (
	"testing"
	"time"

	"github.com/cyp0633/libcalrecur/caldate"
	"github.com/cyp0633/libcalrecur/event"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) caldate.Date {
	return caldate.New(y, m, d)
}

func recurring(anchor caldate.Date, r event.Recurrence) event.Event {
	return event.New("test", anchor, event.WithID("ev"), event.WithRecurrence(r))
}

// enumerate walks NextOccurrence from the anchor, returning at most limit
// dates.
func enumerate(e *Engine, ev event.Event, limit int) []caldate.Date {
	var out []caldate.Date
	next := e.NextOccurrence(ev, ev.OriginalDate.AddDays(-1))
	for d, ok := next.Get(); ok && len(out) < limit; d, ok = next.Get() {
		out = append(out, d)
		next = e.NextOccurrence(ev, d)
	}
	return out
}

func TestEngine_NextOccurrence(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)

	tests := []struct {
		name  string
		event event.Event
		after caldate.Date
		want  mo.Option[caldate.Date]
	}{
		{
			name:  "one-time event never recurs",
			event: event.New("x", date(2024, time.January, 1)),
			after: date(2023, time.December, 1),
			want:  mo.None[caldate.Date](),
		},
		{
			name:  "daily every third day",
			event: recurring(date(2024, time.January, 1), event.Daily{Common: event.Common{Interval: 3}}),
			after: date(2024, time.January, 1),
			want:  mo.Some(date(2024, time.January, 4)),
		},
		{
			name:  "daily from between occurrences",
			event: recurring(date(2024, time.January, 1), event.Daily{Common: event.Common{Interval: 3}}),
			after: date(2024, time.January, 5),
			want:  mo.Some(date(2024, time.January, 7)),
		},
		{
			name:  "before the anchor yields the anchor",
			event: recurring(date(2024, time.January, 10), event.Daily{Common: event.Common{Interval: 1}}),
			after: date(2023, time.June, 1),
			want:  mo.Some(date(2024, time.January, 10)),
		},
		{
			name:  "zero interval",
			event: recurring(date(2024, time.January, 1), event.Daily{Common: event.Common{Interval: 0}}),
			after: date(2024, time.January, 1),
			want:  mo.None[caldate.Date](),
		},
		{
			name: "weekly mon wed fri from monday",
			event: recurring(date(2024, time.January, 1), event.Weekly{
				Common:     event.Common{Interval: 1},
				DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			}),
			after: date(2024, time.January, 1),
			want:  mo.Some(date(2024, time.January, 3)),
		},
		{
			name: "weekly mon wed fri from friday",
			event: recurring(date(2024, time.January, 1), event.Weekly{
				Common:     event.Common{Interval: 1},
				DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			}),
			after: date(2024, time.January, 5),
			want:  mo.Some(date(2024, time.January, 8)),
		},
		{
			name: "biweekly skips the odd week",
			event: recurring(date(2024, time.January, 1), event.Weekly{
				Common:     event.Common{Interval: 2},
				DaysOfWeek: []time.Weekday{time.Monday},
			}),
			after: date(2024, time.January, 1),
			want:  mo.Some(date(2024, time.January, 15)),
		},
		{
			name: "biweekly finishes the anchor week first",
			event: recurring(date(2024, time.January, 3), event.Weekly{
				Common:     event.Common{Interval: 2},
				DaysOfWeek: []time.Weekday{time.Monday, time.Friday},
			}),
			after: date(2024, time.January, 3),
			want:  mo.Some(date(2024, time.January, 5)),
		},
		{
			name: "biweekly from the anchor week's last day",
			event: recurring(date(2024, time.January, 3), event.Weekly{
				Common:     event.Common{Interval: 2},
				DaysOfWeek: []time.Weekday{time.Monday, time.Friday},
			}),
			after: date(2024, time.January, 5),
			want:  mo.Some(date(2024, time.January, 15)),
		},
		{
			name: "monthly on the 31st skips february",
			event: recurring(date(2024, time.January, 31), event.Monthly{
				Common: event.Common{Interval: 1}, Type: event.DayOfMonth,
			}),
			after: date(2024, time.February, 1),
			want:  mo.Some(date(2024, time.March, 31)),
		},
		{
			name: "monthly on the 31st from the anchor",
			event: recurring(date(2024, time.January, 31), event.Monthly{
				Common: event.Common{Interval: 1}, Type: event.DayOfMonth,
			}),
			after: date(2024, time.January, 31),
			want:  mo.Some(date(2024, time.March, 31)),
		},
		{
			name: "monthly later in the same month",
			event: recurring(date(2024, time.January, 20), event.Monthly{
				Common: event.Common{Interval: 1}, Type: event.DayOfMonth,
			}),
			after: date(2024, time.March, 5),
			want:  mo.Some(date(2024, time.March, 20)),
		},
		{
			name: "monthly fifth monday skips short months",
			event: recurring(date(2024, time.January, 29), event.Monthly{
				Common: event.Common{Interval: 1}, Type: event.NthWeekday,
			}),
			after: date(2024, time.January, 29),
			want:  mo.Some(date(2024, time.April, 29)),
		},
		{
			name: "monthly last thursday",
			event: recurring(date(2024, time.January, 25), event.Monthly{
				Common: event.Common{Interval: 1}, Type: event.LastWeekday,
			}),
			after: date(2024, time.January, 25),
			want:  mo.Some(date(2024, time.February, 29)),
		},
		{
			name: "yearly fourth thursday of november",
			event: recurring(date(2024, time.November, 28), event.Yearly{
				Common: event.Common{Interval: 1}, Type: event.NthWeekday,
			}),
			after: date(2024, time.December, 1),
			want:  mo.Some(date(2025, time.November, 27)),
		},
		{
			name: "yearly last monday of may",
			event: recurring(date(2024, time.May, 27), event.Yearly{
				Common: event.Common{Interval: 1}, Type: event.LastWeekday,
			}),
			after: date(2024, time.May, 27),
			want:  mo.Some(date(2025, time.May, 26)),
		},
		{
			name: "yearly leap day",
			event: recurring(date(2024, time.February, 29), event.Yearly{
				Common: event.Common{Interval: 1}, Type: event.DayOfMonth,
			}),
			after: date(2024, time.February, 29),
			want:  mo.Some(date(2028, time.February, 29)),
		},
		{
			name: "after until",
			event: recurring(date(2024, time.January, 1), event.Daily{
				Common: event.Common{Interval: 1, End: event.UntilDate(date(2024, time.January, 3))},
			}),
			after: date(2024, time.January, 3),
			want:  mo.None[caldate.Date](),
		},
		{
			name: "last day before until",
			event: recurring(date(2024, time.January, 1), event.Daily{
				Common: event.Common{Interval: 1, End: event.UntilDate(date(2024, time.January, 3))},
			}),
			after: date(2024, time.January, 2),
			want:  mo.Some(date(2024, time.January, 3)),
		},
		{
			name: "candidate past until",
			event: recurring(date(2024, time.January, 1), event.Daily{
				Common: event.Common{Interval: 7, End: event.UntilDate(date(2024, time.January, 10))},
			}),
			after: date(2024, time.January, 8),
			want:  mo.None[caldate.Date](),
		},
		{
			name: "malformed until is ignored",
			event: recurring(date(2024, time.January, 1), event.Daily{
				Common: event.Common{Interval: 1, End: event.Until{Value: "someday"}},
			}),
			after: date(2030, time.January, 1),
			want:  mo.Some(date(2030, time.January, 2)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.NextOccurrence(tt.event, tt.after)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextOccurrence_PackageLevel(t *testing.T) {
	ev := recurring(date(2024, time.January, 31), event.Monthly{Common: event.Common{Interval: 1}, Type: event.DayOfMonth})

	assert.Equal(t, mo.Some(date(2024, time.March, 31)), NextOccurrence(ev, date(2024, time.February, 1)))
}

func TestEngine_Resolve(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)
	anchor := date(2024, time.January, 1)

	tests := []struct {
		name  string
		event event.Event
		after caldate.Date
		want  Outcome
	}{
		{"found", recurring(anchor, event.Daily{Common: event.Common{Interval: 1}}), anchor, OutcomeFound},
		{"not recurring", event.New("x", anchor), anchor, OutcomeNotRecurring},
		{"count used up", recurring(anchor, event.Daily{Common: event.Common{Interval: 1, End: event.Count{Value: 1}}}), anchor, OutcomeEnded},
		{"zero count", recurring(anchor, event.Daily{Common: event.Common{Interval: 1, End: event.Count{Value: 0}}}), anchor.AddDays(-1), OutcomeEnded},
		{"weekly without days", recurring(anchor, event.Weekly{Common: event.Common{Interval: 1}}), anchor, OutcomeUnsupported},
		{"weekly without days before anchor", recurring(anchor, event.Weekly{Common: event.Common{Interval: 1}}), anchor.AddDays(-1), OutcomeUnsupported},
		{"unknown month rule", recurring(anchor, event.Monthly{Common: event.Common{Interval: 1}, Type: "firstFriday"}), anchor, OutcomeUnsupported},
		{"negative interval", recurring(anchor, event.Yearly{Common: event.Common{Interval: -1}, Type: event.DayOfMonth}), anchor, OutcomeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := engine.Resolve(tt.event, tt.after)
			assert.Equal(t, tt.want, res.Outcome, res.Outcome.String())
			assert.Equal(t, tt.want == OutcomeFound, res.Date.IsPresent())
		})
	}
}

func TestEngine_SearchHorizon(t *testing.T) {
	// Every 12 months on February 29th only matches every fourth step.
	ev := recurring(date(2024, time.February, 29), event.Monthly{
		Common: event.Common{Interval: 12}, Type: event.DayOfMonth,
	})

	short := NewEngineWithConfig(DisabledCacheConfig, WithSearchHorizon(3))
	res := short.Resolve(ev, date(2024, time.February, 29))
	assert.Equal(t, OutcomeHorizonExhausted, res.Outcome)
	assert.True(t, res.Date.IsAbsent())

	enough := NewEngineWithConfig(DisabledCacheConfig, WithSearchHorizon(4))
	assert.Equal(t, mo.Some(date(2028, time.February, 29)), enough.NextOccurrence(ev, date(2024, time.February, 29)))
}

func TestEngine_SearchHorizonWithCount(t *testing.T) {
	ev := recurring(date(2024, time.February, 29), event.Monthly{
		Common: event.Common{Interval: 12, End: event.Count{Value: 3}}, Type: event.DayOfMonth,
	})

	short := NewEngineWithConfig(DisabledCacheConfig, WithSearchHorizon(3))
	assert.Equal(t, OutcomeHorizonExhausted, short.Resolve(ev, date(2024, time.February, 29)).Outcome)

	engine := NewEngineWithConfig(DisabledCacheConfig)
	assert.Equal(t, []caldate.Date{
		date(2024, time.February, 29),
		date(2028, time.February, 29),
		date(2032, time.February, 29),
	}, enumerate(engine, ev, 10))
}

func TestEngine_FarFromAnchor(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)
	anchor := date(2024, time.January, 1) // Monday

	tests := []struct {
		name  string
		rec   event.Recurrence
		after caldate.Date
		want  caldate.Date
	}{
		{
			name:  "daily",
			rec:   event.Daily{Common: event.Common{Interval: 1}},
			after: date(2400, time.January, 1),
			want:  date(2400, time.January, 2),
		},
		{
			name:  "every third day",
			rec:   event.Daily{Common: event.Common{Interval: 3}},
			after: date(2400, time.January, 1),
			want:  date(2400, time.January, 4),
		},
		{
			name:  "weekly on monday",
			rec:   event.Weekly{Common: event.Common{Interval: 1}, DaysOfWeek: []time.Weekday{time.Monday}},
			after: date(2400, time.January, 5),
			want:  date(2400, time.January, 10),
		},
		{
			name: "monthly with a large count",
			rec: event.Monthly{Common: event.Common{Interval: 1, End: event.Count{Value: 10000}},
				Type: event.DayOfMonth},
			after: date(2400, time.January, 20),
			want:  date(2400, time.February, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := engine.Resolve(recurring(anchor, tt.rec), tt.after)
			require.Equal(t, OutcomeFound, res.Outcome)
			assert.Equal(t, mo.Some(tt.want), res.Date)
			assert.True(t, tt.want.After(tt.after))
		})
	}
}

func TestEngine_RejectsPointerRecurrences(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)
	anchor := date(2024, time.January, 1)

	var typedNil *event.Daily
	for _, rec := range []event.Recurrence{
		&event.Daily{Common: event.Common{Interval: 1}},
		typedNil,
	} {
		ev := recurring(anchor, rec)
		assert.NotPanics(t, func() {
			res := engine.Resolve(ev, anchor.AddDays(-1))
			assert.Equal(t, OutcomeUnsupported, res.Outcome)
			assert.True(t, res.Date.IsAbsent())
		})
	}
}

func TestProperty_DailyStepsAreExact(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)

	for _, k := range []int{1, 2, 5, 13, 400} {
		ev := recurring(date(2023, time.December, 30), event.Daily{Common: event.Common{Interval: k}})
		dates := enumerate(engine, ev, 300)
		require.Len(t, dates, 300)

		for i := 1; i < len(dates); i++ {
			assert.Equal(t, k, dates[i-1].DaysUntil(dates[i]), "interval %d step %d", k, i)
		}
	}
}

func TestProperty_CountYieldsExactlyN(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)

	tests := []struct {
		name   string
		anchor caldate.Date
		rec    func(end event.End) event.Recurrence
	}{
		{"daily", date(2024, time.January, 1), func(end event.End) event.Recurrence {
			return event.Daily{Common: event.Common{Interval: 2, End: end}}
		}},
		{"weekly", date(2024, time.January, 1), func(end event.End) event.Recurrence {
			return event.Weekly{Common: event.Common{Interval: 1, End: end},
				DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday}}
		}},
		{"triweekly anchor off pattern", date(2024, time.January, 2), func(end event.End) event.Recurrence {
			return event.Weekly{Common: event.Common{Interval: 3, End: end},
				DaysOfWeek: []time.Weekday{time.Sunday, time.Monday, time.Saturday}}
		}},
		{"monthly 31st", date(2024, time.January, 31), func(end event.End) event.Recurrence {
			return event.Monthly{Common: event.Common{Interval: 1, End: end}, Type: event.DayOfMonth}
		}},
		{"monthly fifth monday", date(2024, time.January, 29), func(end event.End) event.Recurrence {
			return event.Monthly{Common: event.Common{Interval: 1, End: end}, Type: event.NthWeekday}
		}},
		{"monthly last weekday", date(2024, time.January, 25), func(end event.End) event.Recurrence {
			return event.Monthly{Common: event.Common{Interval: 2, End: end}, Type: event.LastWeekday}
		}},
		{"yearly nth weekday", date(2024, time.November, 28), func(end event.End) event.Recurrence {
			return event.Yearly{Common: event.Common{Interval: 1, End: end}, Type: event.NthWeekday}
		}},
		{"yearly leap day", date(2024, time.February, 29), func(end event.End) event.Recurrence {
			return event.Yearly{Common: event.Common{Interval: 1, End: end}, Type: event.DayOfMonth}
		}},
	}

	for _, tt := range tests {
		for _, n := range []int{1, 2, 7, 25} {
			ev := recurring(tt.anchor, tt.rec(event.Count{Value: n}))
			dates := enumerate(engine, ev, 1000)

			assert.Len(t, dates, n, "%s count %d", tt.name, n)
			if assert.NotEmpty(t, dates) {
				assert.Equal(t, tt.anchor, dates[0])
			}
			for i := 1; i < len(dates); i++ {
				assert.True(t, dates[i].After(dates[i-1]), "%s not monotonic at %d", tt.name, i)
			}
		}
	}
}

func TestProperty_NothingAfterUntil(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)
	until := date(2025, time.March, 15)

	recs := []event.Recurrence{
		event.Daily{Common: event.Common{Interval: 4, End: event.UntilDate(until)}},
		event.Weekly{Common: event.Common{Interval: 2, End: event.UntilDate(until)}, DaysOfWeek: []time.Weekday{time.Tuesday, time.Saturday}},
		event.Monthly{Common: event.Common{Interval: 1, End: event.UntilDate(until)}, Type: event.DayOfMonth},
		event.Monthly{Common: event.Common{Interval: 1, End: event.UntilDate(until)}, Type: event.LastWeekday},
		event.Yearly{Common: event.Common{Interval: 1, End: event.UntilDate(until)}, Type: event.NthWeekday},
	}

	for _, rec := range recs {
		ev := recurring(date(2024, time.January, 16), rec)
		dates := enumerate(engine, ev, 1000)

		require.NotEmpty(t, dates)
		for _, d := range dates {
			assert.False(t, d.After(until), "%s produced %s", rec.Frequency(), d)
		}
	}
}

func TestEngine_WeeklyCountIndex(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)

	ev := recurring(date(2024, time.January, 2), event.Weekly{
		Common:     event.Common{Interval: 1, End: event.Count{Value: 3}},
		DaysOfWeek: []time.Weekday{time.Monday},
	})

	assert.Equal(t, []caldate.Date{
		date(2024, time.January, 2), // anchor always counts
		date(2024, time.January, 8),
		date(2024, time.January, 15),
	}, enumerate(engine, ev, 10))
}

func TestEngine_WeekStart(t *testing.T) {
	ev := recurring(date(2024, time.January, 7), event.Weekly{
		Common:     event.Common{Interval: 2},
		DaysOfWeek: []time.Weekday{time.Sunday, time.Monday},
	})

	sunday := NewEngineWithConfig(DisabledCacheConfig)
	assert.Equal(t, []caldate.Date{
		date(2024, time.January, 7),
		date(2024, time.January, 8),
		date(2024, time.January, 21),
		date(2024, time.January, 22),
	}, enumerate(sunday, ev, 4))

	monday := NewEngineWithConfig(DisabledCacheConfig, WithWeekStart(time.Monday))
	assert.Equal(t, []caldate.Date{
		date(2024, time.January, 7),
		date(2024, time.January, 15),
		date(2024, time.January, 21),
		date(2024, time.January, 29),
	}, enumerate(monday, ev, 4))
}

func TestEngine_DoesNotMutateEvent(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)
	days := []time.Weekday{time.Friday, time.Monday}
	ev := recurring(date(2024, time.January, 1), event.Weekly{Common: event.Common{Interval: 1}, DaysOfWeek: days})

	enumerate(engine, ev, 20)

	assert.Equal(t, []time.Weekday{time.Friday, time.Monday}, days)
	assert.Equal(t, date(2024, time.January, 1), ev.OriginalDate)
}
