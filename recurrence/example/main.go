package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cyp0633/libcalrecur/caldate"
	"github.com/cyp0633/libcalrecur/event"
	"github.com/cyp0633/libcalrecur/recurrence"
)

func main() {
	eventsPath := flag.String("events", "", "JSON file with a list of events (built-in samples when empty)")
	configPath := flag.String("config", "", "YAML engine configuration")
	month := flag.String("month", "", "month to show as YYYY-MM (current month when empty)")
	icsPath := flag.String("ics", "", "write the events as an iCalendar feed to this file")
	verbose := flag.Bool("v", false, "log engine diagnostics")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := recurrence.DisabledCacheConfig
	if *configPath != "" {
		var err error
		if cfg, err = recurrence.LoadEngineConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	engine := recurrence.NewEngineWithConfig(cfg, recurrence.WithLogger(logger))
	defer engine.Close()

	events, err := loadEvents(*eventsPath)
	if err != nil {
		log.Fatalf("Failed to load events: %v", err)
	}
	events = validEvents(logger, events)

	year, mon, err := parseMonth(*month)
	if err != nil {
		log.Fatalf("Invalid -month: %v", err)
	}

	printEvents(events)
	printMonth(engine, events, year, mon)

	if *icsPath != "" {
		if err := writeICS(engine, *icsPath, events); err != nil {
			log.Fatalf("Failed to write %s: %v", *icsPath, err)
		}
		logger.Info("wrote calendar feed", "path", *icsPath, "events", len(events))
	}
}

func loadEvents(path string) ([]event.Event, error) {
	if path == "" {
		return sampleEvents(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return event.DecodeList(f)
}

// validEvents drops events the validator rejects.
func validEvents(logger *slog.Logger, events []event.Event) []event.Event {
	out := events[:0:0]
	for _, ev := range events {
		if err := event.Validate(ev); err != nil {
			logger.Warn("skipping invalid event", "event_id", ev.ID, "title", ev.Title, "error", err)
			continue
		}
		out = append(out, ev)
	}
	return out
}

func parseMonth(s string) (int, time.Month, error) {
	if s == "" {
		today := caldate.Today()
		return today.Year(), today.Month(), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Year(), t.Month(), nil
}

// sampleEvents builds a small calendar around the current date
func sampleEvents() []event.Event {
	today := caldate.Today()
	firstOfMonth := caldate.New(today.Year(), today.Month(), 1)

	return []event.Event{
		event.New("Team standup", firstOfMonth, event.WithTimes(9*60, 9*60+15),
			event.WithRecurrence(event.Weekly{
				Common:     event.Common{Interval: 1},
				DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			})),
		event.New("Rent", caldate.New(today.Year(), time.January, 31),
			event.WithRecurrence(event.Monthly{Common: event.Common{Interval: 1}, Type: event.DayOfMonth})),
		event.New("Book club", firstOfMonth.AddDays(-40),
			event.WithTimes(19*60, 21*60),
			event.WithRecurrence(event.Monthly{Common: event.Common{Interval: 1}, Type: event.LastWeekday})),
		event.New("Physio", today, event.WithStartTime(17*60),
			event.WithRecurrence(event.Daily{Common: event.Common{Interval: 3, End: event.Count{Value: 6}}})),
		event.New("Dentist", today.AddDays(10), event.WithTimes(10*60, 10*60+45)),
	}
}

func printEvents(events []event.Event) {
	fmt.Println("Events:")
	for _, ev := range events {
		fmt.Printf("  %-14s %s\n", ev.Title, describe(ev))
	}
	fmt.Println()
}

// describe renders the description template keys with their parameters
// substituted, in English.
func describe(ev event.Event) string {
	var parts []string
	for _, seg := range event.Describe(ev).Segments() {
		text := seg.Key
		for name, value := range seg.Params {
			text = strings.ReplaceAll(text, "{{"+name+"}}", formatParam(name, value))
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

func formatParam(name string, value any) string {
	switch v := value.(type) {
	case caldate.Date:
		return v.String()
	case int:
		if name == "time" || name == "end" {
			return fmt.Sprintf("%02d:%02d", v/60, v%60)
		}
		return fmt.Sprint(v)
	case []time.Weekday:
		names := make([]string, len(v))
		for i, d := range v {
			names[i] = d.String()
		}
		return strings.Join(names, ", ")
	case event.Frequency:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func printMonth(engine *recurrence.Engine, events []event.Event, year int, month time.Month) {
	start, end := engine.MonthGridWindow(year, month)
	days := engine.MonthView(events, year, month)

	fmt.Printf("%s %d (%s to %s)\n", month, year, start, end)
	for _, d := range days {
		marker := " "
		if d.Month != month {
			marker = "~"
		}
		when := "all day"
		if st, ok := d.StartTimeInMinutes.Get(); ok {
			when = fmt.Sprintf("%02d:%02d", st/60, st%60)
		}
		fmt.Printf("%s %s  %-7s  %s\n", marker, d.Date(), when, d.Title)
	}
}

func writeICS(engine *recurrence.Engine, path string, events []event.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := engine.EncodeCalendar(f, events); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
