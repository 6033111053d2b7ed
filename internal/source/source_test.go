package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/recurrence"
)

const sample = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:standup
DTSTAMP:20240301T000000Z
DTSTART:20240311T090000Z
DTEND:20240311T091500Z
SUMMARY:Standup
RRULE:FREQ=WEEKLY;BYDAY=MO,WE
EXDATE:20240313T090000
END:VEVENT
BEGIN:VEVENT
UID:standup
DTSTAMP:20240301T000000Z
RECURRENCE-ID:20240318T090000
DTSTART:20240318T100000Z
DTEND:20240318T101500Z
SUMMARY:Standup (moved)
END:VEVENT
BEGIN:VEVENT
UID:review
DTSTAMP:20240301T000000Z
DTSTART:20240312T140000Z
DTEND:20240312T153000Z
SUMMARY:Design review
COLOR:teal
END:VEVENT
BEGIN:VEVENT
UID:offsite
DTSTAMP:20240301T000000Z
DTSTART;VALUE=DATE:20240314
DTEND;VALUE=DATE:20240315
SUMMARY:Offsite
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20240301T000000Z
DTSTART:20240312T080000Z
DTEND:20240312T090000Z
SUMMARY:No uid
END:VEVENT
END:VCALENDAR
`

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func byID(events []calendar.Event) map[string]calendar.Event {
	m := make(map[string]calendar.Event, len(events))
	for _, ev := range events {
		m[ev.ID] = ev
	}
	return m
}

func TestParseICS(t *testing.T) {
	events, err := ParseICS(strings.NewReader(crlf(sample)), "work.ics", quiet())
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4 (uid-less event skipped)", len(events))
	}
	m := byID(events)

	review := m["review"]
	if review.Title != "Design review" || review.Color != "teal" || review.Source != "work.ics" {
		t.Errorf("review = %+v", review)
	}
	if !review.Start.Equal(time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC)) || review.Duration() != 90*time.Minute {
		t.Errorf("review times = %v-%v", review.Start, review.End)
	}
	if !review.Draggable || !review.Resizable || !review.Editable {
		t.Error("file events should be editable")
	}

	if off := m["offsite"]; !off.AllDay || off.Duration() != 24*time.Hour {
		t.Errorf("offsite = %+v", off)
	}

	standup := m["standup"]
	if standup.Recurrence == nil || standup.Recurrence.Frequency != calendar.FrequencyWeekly {
		t.Fatalf("standup recurrence = %+v", standup.Recurrence)
	}
	if len(standup.Recurrence.ByDay) != 2 {
		t.Errorf("ByDay = %v", standup.Recurrence.ByDay)
	}
	// One EXDATE plus the overridden instance.
	if len(standup.Recurrence.Exceptions) != 2 {
		t.Errorf("Exceptions = %v", standup.Recurrence.Exceptions)
	}

	overrideID := recurrence.InstanceID("standup", time.Date(2024, 3, 18, 0, 0, 0, 0, time.Local))
	moved, ok := m[overrideID]
	if !ok {
		t.Fatalf("override %s missing from %v", overrideID, m)
	}
	if moved.OriginalID != "standup" || moved.Title != "Standup (moved)" || moved.IsRecurring() {
		t.Errorf("override = %+v", moved)
	}
}

func TestParseICSExpansionSkipsOverriddenDays(t *testing.T) {
	events, err := ParseICS(strings.NewReader(crlf(sample)), "work.ics", quiet())
	if err != nil {
		t.Fatal(err)
	}
	standup := byID(events)["standup"]
	from := time.Date(2024, 3, 11, 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 0, 15)

	var days []int
	for inst := range recurrence.Instances(standup, from, to) {
		days = append(days, inst.Start.Day())
	}
	// Mon 11 is the master, Wed 13 excluded, Mon 18 overridden.
	want := []int{20, 25}
	if len(days) != len(want) {
		t.Fatalf("instance days = %v, want %v", days, want)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("instance days = %v, want %v", days, want)
		}
	}
}

const zoned = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:call
DTSTAMP:20240301T000000Z
DTSTART;TZID=Pacific/Auckland:20240311T060000
DTEND;TZID=Pacific/Auckland:20240311T063000
SUMMARY:Call
RRULE:FREQ=DAILY
EXDATE;TZID=Pacific/Auckland:20240313T060000
END:VEVENT
BEGIN:VEVENT
UID:call
DTSTAMP:20240301T000000Z
RECURRENCE-ID;TZID=Pacific/Auckland:20240315T060000
DTSTART;TZID=Pacific/Auckland:20240315T070000
DTEND;TZID=Pacific/Auckland:20240315T073000
SUMMARY:Call (late)
END:VEVENT
END:VCALENDAR
`

func TestParseICSExceptionsUseTZID(t *testing.T) {
	auckland, err := time.LoadLocation("Pacific/Auckland")
	if err != nil {
		t.Skipf("no zoneinfo: %v", err)
	}
	events, err := ParseICS(strings.NewReader(crlf(zoned)), "zoned.ics", quiet())
	if err != nil {
		t.Fatal(err)
	}
	call := byID(events)["call"]
	if call.Recurrence == nil || len(call.Recurrence.Exceptions) != 2 {
		t.Fatalf("call recurrence = %+v", call.Recurrence)
	}
	wantEx := time.Date(2024, 3, 13, 6, 0, 0, 0, auckland)
	wantOverride := time.Date(2024, 3, 15, 6, 0, 0, 0, auckland)
	if ex := call.Recurrence.Exceptions[0]; !ex.Equal(wantEx) {
		t.Errorf("EXDATE = %v, want %v", ex, wantEx)
	}
	if ex := call.Recurrence.Exceptions[1]; !ex.Equal(wantOverride) {
		t.Errorf("RECURRENCE-ID = %v, want %v", ex, wantOverride)
	}

	// The excluded and overridden days are the ones the instances land on.
	from := call.Start.AddDate(0, 0, -1)
	for inst := range recurrence.Instances(call, from, from.AddDate(0, 0, 7)) {
		if inst.Start.Equal(wantEx) || inst.Start.Equal(wantOverride) {
			t.Errorf("instance %s at %v should have been skipped", inst.ID, inst.Start)
		}
	}
}

func TestParseICSRejectsGarbage(t *testing.T) {
	if _, err := ParseICS(strings.NewReader("not a calendar"), "x", quiet()); err == nil {
		t.Error("expected parse error")
	}
}

func TestICSFileWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "work.ics")
	if err := os.WriteFile(path, []byte(crlf(sample)), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewICSFile(path, quiet())
	if f.Name() != "work.ics" {
		t.Errorf("Name = %q", f.Name())
	}

	from := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	events, err := f.Events(context.Background(), from, to)
	if err != nil {
		t.Fatal(err)
	}
	m := byID(events)
	if _, ok := m["review"]; !ok {
		t.Error("review is inside the window")
	}
	if _, ok := m["standup"]; !ok {
		t.Error("recurring master starting before the window is kept")
	}
	if _, ok := m["offsite"]; ok {
		t.Error("offsite is after the window")
	}

	if _, err := NewICSFile(filepath.Join(t.TempDir(), "missing.ics"), nil).Events(context.Background(), from, to); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteICSRoundTrip(t *testing.T) {
	start := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	weekly := calendar.NewEvent("w1", "Weekly", start, start.Add(30*time.Minute))
	weekly.Recurrence = &calendar.RecurrenceRule{
		Frequency: calendar.FrequencyWeekly,
		Interval:  2,
		Count:     5,
	}
	inst := calendar.NewEvent("w1@20240325", "Weekly", start.AddDate(0, 0, 14), start.AddDate(0, 0, 14).Add(time.Hour))
	inst.IsRecurrence = true
	single := calendar.NewEvent("s1", "Single", start.Add(3*time.Hour), start.Add(4*time.Hour))
	single.Color = "red"

	var buf bytes.Buffer
	if err := WriteICS(&buf, []calendar.Event{weekly, inst, single}); err != nil {
		t.Fatalf("WriteICS: %v", err)
	}
	events, err := ParseICS(&buf, "export", quiet())
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (instances are not exported)", len(events))
	}
	m := byID(events)
	w := m["w1"]
	if w.Recurrence == nil || w.Recurrence.Interval != 2 || w.Recurrence.Count != 5 {
		t.Errorf("recurrence = %+v", w.Recurrence)
	}
	if !w.Start.Equal(start) || w.Duration() != 30*time.Minute {
		t.Errorf("weekly times = %v-%v", w.Start, w.End)
	}
	if s := m["s1"]; s.Title != "Single" || s.Color != "red" {
		t.Errorf("single = %+v", s)
	}
}

type fakeSource struct {
	name   string
	events []calendar.Event
	err    error
}

func (f fakeSource) Name() string { return f.name }

func (f fakeSource) Events(context.Context, time.Time, time.Time) ([]calendar.Event, error) {
	return f.events, f.err
}

func TestComposite(t *testing.T) {
	base := time.Date(2024, 3, 11, 9, 0, 0, 0, time.Local)
	a := calendar.NewEvent("a", "Store copy", base.Add(time.Hour), base.Add(2*time.Hour))
	aFile := calendar.NewEvent("a", "File copy", base, base.Add(time.Hour))
	b := calendar.NewEvent("b", "Only in file", base, base.Add(time.Hour))
	boom := errors.New("boom")

	c := NewComposite(fakeSource{name: "store", events: []calendar.Event{a}})
	c.Add(fakeSource{name: "file", events: []calendar.Event{aFile, b}})
	c.Add(fakeSource{name: "broken", err: boom})
	c.Logger = quiet()

	events, err := c.Events(context.Background(), base, base.AddDate(0, 0, 1))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != "b" || events[1].Title != "Store copy" {
		t.Errorf("events = %v", events)
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d", c.Len())
	}

	if _, err := NewComposite().Events(context.Background(), base, base); !errors.Is(err, ErrNoSource) {
		t.Errorf("empty composite: %v", err)
	}
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cal.ics")
	other := filepath.Join(dir, "other.ics")
	for _, p := range []string{path, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	changes := make(chan Change, 10)
	w, err := NewWatcher(func(c Change) { changes <- c }, quiet())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	w.SetDebounce(50 * time.Millisecond)
	if err := w.Add(path); err != nil {
		t.Fatal(err)
	}
	if err := w.Add(path); err != nil {
		t.Fatal("adding twice should be a no-op")
	}

	for i := range 3 {
		if err := os.WriteFile(path, []byte(strings.Repeat("y", i+1)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(other, []byte("z"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changes:
		if filepath.Base(c.Path) != "cal.ics" {
			t.Errorf("change for %s", c.Path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
	select {
	case c := <-changes:
		t.Errorf("unexpected second change %+v", c)
	case <-time.After(300 * time.Millisecond):
	}

	if err := w.Remove(path); err != nil {
		t.Fatal(err)
	}
	if len(w.Files()) != 0 {
		t.Errorf("Files = %v", w.Files())
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Error("second Close should be a no-op")
	}
}
