package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/recurrence"
)

const productID = "-//timegrid//timegrid//EN"

// ICSFile reads events from an iCalendar file on every call.
type ICSFile struct {
	Path   string
	Logger *slog.Logger
}

func NewICSFile(path string, logger *slog.Logger) *ICSFile {
	return &ICSFile{Path: path, Logger: logger}
}

func (f *ICSFile) Name() string {
	return filepath.Base(f.Path)
}

func (f *ICSFile) Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer file.Close()

	events, err := ParseICS(file, f.Name(), logging.Or(ctx, f.Logger))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	kept := events[:0]
	for _, ev := range events {
		if inWindow(ev, from, to) {
			kept = append(kept, ev)
		}
	}
	return kept, nil
}

// ParseICS converts every VEVENT in r. Components that cannot be converted
// are logged and skipped. RECURRENCE-ID overrides replace the matching
// instance of their master with a standalone event.
func ParseICS(r io.Reader, name string, logger *slog.Logger) ([]calendar.Event, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	var (
		events    []calendar.Event
		overrides = make(map[string][]time.Time)
	)
	for _, ve := range cal.Events() {
		ev, recurrenceID, err := convert(ve)
		if err != nil {
			logger.Warn("skipping vevent", "source", name, "error", err)
			continue
		}
		ev.Source = name
		if !recurrenceID.IsZero() {
			overrides[ev.ID] = append(overrides[ev.ID], recurrenceID)
			ev.OriginalID = ev.ID
			ev.ID = recurrence.InstanceID(ev.ID, recurrenceID)
		}
		events = append(events, ev)
	}

	for i := range events {
		ev := &events[i]
		if ev.Recurrence == nil {
			continue
		}
		ev.Recurrence.Exceptions = append(ev.Recurrence.Exceptions, overrides[ev.ID]...)
	}
	logger.Debug("parsed calendar", "source", name, "events", len(events))
	return events, nil
}

func convert(ve *ical.VEvent) (calendar.Event, time.Time, error) {
	var ev calendar.Event
	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return ev, time.Time{}, errors.New("missing UID")
	}

	allDay := false
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if vs := p.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			allDay = true
		}
		if !strings.Contains(p.Value, "T") {
			allDay = true
		}
	}

	var start, end time.Time
	var err error
	if allDay {
		start, err = ve.GetAllDayStartAt()
	} else {
		start, err = ve.GetStartAt()
	}
	if err != nil {
		return ev, time.Time{}, fmt.Errorf("%s: DTSTART: %w", uid.Value, err)
	}
	if allDay {
		end, err = ve.GetAllDayEndAt()
	} else {
		end, err = ve.GetEndAt()
	}
	if err != nil || !end.After(start) {
		if allDay {
			end = dates.AddDays(start, 1)
		} else {
			end = start.Add(calendar.MinimumDuration)
		}
	}

	title := ""
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		title = p.Value
	}
	ev = calendar.NewEvent(uid.Value, title, start.In(time.Local), end.In(time.Local))
	ev.AllDay = allDay
	if p := ve.GetProperty("COLOR"); p != nil {
		ev.Color = p.Value
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		rule, err := recurrence.ParseRRule(p.Value)
		if err != nil {
			return ev, time.Time{}, fmt.Errorf("%s: %w", uid.Value, err)
		}
		for _, ex := range ve.GetProperties(ical.ComponentPropertyExdate) {
			loc := propertyLocation(ex)
			for _, part := range strings.Split(ex.Value, ",") {
				if t, err := parseICSTime(part, loc); err == nil {
					rule.Exceptions = append(rule.Exceptions, t)
				}
			}
		}
		ev.Recurrence = rule
	}

	var recurrenceID time.Time
	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if t, err := parseICSTime(p.Value, propertyLocation(p)); err == nil {
			recurrenceID = t
		}
	}
	return ev, recurrenceID, nil
}

// propertyLocation is the zone named by a property's TZID parameter, or
// the local zone when there is none or it is unknown.
func propertyLocation(p *ical.IANAProperty) *time.Location {
	if tz := p.ICalParameters["TZID"]; len(tz) > 0 && tz[0] != "" {
		if loc, err := time.LoadLocation(strings.Trim(tz[0], `"`)); err == nil {
			return loc
		}
	}
	return time.Local
}

// parseICSTime reads a DATE or DATE-TIME value. Floating times are read in
// loc; the result is always in the local zone. Dates stay calendar days.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse("20060102T150405Z", v)
		return t.In(time.Local), err
	case strings.Contains(v, "T"):
		t, err := time.ParseInLocation("20060102T150405", v, loc)
		return t.In(time.Local), err
	}
	return time.ParseInLocation("20060102", v, time.Local)
}

// WriteICS serializes events as a VCALENDAR. Recurrence instances are
// skipped; their master carries the rule.
func WriteICS(w io.Writer, events []calendar.Event) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, ev := range events {
		if ev.IsRecurrence {
			continue
		}
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(time.Now())
		if ev.AllDay {
			ve.SetAllDayStartAt(ev.Start)
			ve.SetAllDayEndAt(ev.End)
		} else {
			ve.SetStartAt(ev.Start)
			ve.SetEndAt(ev.End)
		}
		ve.SetSummary(ev.Title)
		if ev.Color != "" {
			ve.SetProperty("COLOR", ev.Color)
		}
		if ev.Recurrence != nil {
			rule, err := recurrence.FormatRRule(*ev.Recurrence)
			if err != nil {
				return fmt.Errorf("%s: %w", ev.ID, err)
			}
			ve.SetProperty(ical.ComponentPropertyRrule, rule)
			for _, ex := range ev.Recurrence.Exceptions {
				ve.AddProperty(ical.ComponentPropertyExdate, ex.UTC().Format("20060102T150405Z"))
			}
		}
	}
	return cal.SerializeTo(w)
}
