package layout

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
)

// Aug 25 2025 is a Monday.
var testDay = time.Date(2025, 8, 25, 0, 0, 0, 0, time.Local)

func at(hour, minute int) time.Time {
	return time.Date(2025, 8, 25, hour, minute, 0, 0, time.Local)
}

func event(id string, sh, sm, eh, em int) calendar.Event {
	return calendar.NewEvent(id, id, at(sh, sm), at(eh, em))
}

func byID(positioned []PositionedEvent) map[string]PositionedEvent {
	m := make(map[string]PositionedEvent, len(positioned))
	for _, p := range positioned {
		m[p.Event.ID] = p
	}
	return m
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b calendar.Event
		tol  time.Duration
		want bool
	}{
		{"overlapping", event("a", 10, 0, 11, 0), event("b", 10, 30, 11, 30), time.Minute, true},
		{"contained", event("a", 10, 0, 12, 0), event("b", 10, 30, 11, 0), 0, true},
		{"touching with tolerance", event("a", 10, 0, 11, 0), event("b", 11, 0, 12, 0), time.Minute, true},
		{"touching without tolerance", event("a", 10, 0, 11, 0), event("b", 11, 0, 12, 0), 0, false},
		{"gap equal to tolerance", event("a", 10, 0, 11, 0), event("b", 11, 1, 12, 0), time.Minute, false},
		{"reversed order", event("a", 11, 0, 12, 0), event("b", 10, 0, 11, 0), time.Minute, true},
		{"apart", event("a", 10, 0, 11, 0), event("b", 13, 0, 14, 0), time.Minute, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b, tt.tol); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := Overlaps(tt.b, tt.a, tt.tol); got != tt.want {
				t.Errorf("Overlaps is not symmetric")
			}
		})
	}
}

func TestThreeEventScenario(t *testing.T) {
	a := event("A", 10, 0, 11, 0)
	b := event("B", 10, 30, 11, 30)
	c := event("C", 13, 0, 14, 0)
	opts := DefaultOptions()

	clusters := Group([]calendar.Event{c, b, a}, opts.Tolerance)
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}
	if len(clusters[0]) != 2 || clusters[0][0].ID != "A" || clusters[0][1].ID != "B" {
		t.Errorf("first cluster = %v, want A, B", ids(clusters[0]))
	}
	if len(clusters[1]) != 1 || clusters[1][0].ID != "C" {
		t.Errorf("second cluster = %v, want C", ids(clusters[1]))
	}

	got := byID(LayoutDay([]calendar.Event{a, b, c}, testDay, opts))
	pa, pb, pc := got["A"], got["B"], got["C"]
	if pa.Column == pb.Column {
		t.Errorf("A and B share column %d", pa.Column)
	}
	if pa.Right() > pb.Left && pb.Right() > pa.Left {
		t.Errorf("A [%v,%v) and B [%v,%v) intersect", pa.Left, pa.Right(), pb.Left, pb.Right())
	}
	if pc.Left != opts.Margin || pc.Width != opts.TrackWidth-2*opts.Margin {
		t.Errorf("C should be full width, got left=%v width=%v", pc.Left, pc.Width)
	}
	if pa.Top != 600 || pa.Height != 60 {
		t.Errorf("A top=%v height=%v, want 600, 60", pa.Top, pa.Height)
	}
	if pb.Top != 630 {
		t.Errorf("B top=%v, want 630", pb.Top)
	}
}

func TestGroupPartitionsEvents(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		events := randomDay(seed, 40)
		seen := make(map[string]int)
		for _, c := range Group(events, time.Minute) {
			for _, ev := range c {
				seen[ev.ID]++
			}
		}
		if len(seen) != len(events) {
			t.Fatalf("seed %d: %d events grouped, want %d", seed, len(seen), len(events))
		}
		for id, n := range seen {
			if n != 1 {
				t.Errorf("seed %d: %s appears in %d clusters", seed, id, n)
			}
		}
	}
}

func TestNoOverlapInvariant(t *testing.T) {
	widths := []float64{100, 60, 30}
	for seed := uint64(1); seed <= 20; seed++ {
		for _, width := range widths {
			opts := DefaultOptions()
			opts.TrackWidth = width
			events := randomDay(seed, 25)

			positioned := LayoutDay(events, testDay, opts)
			if len(positioned) != len(events) {
				t.Fatalf("seed %d: %d positioned, want %d", seed, len(positioned), len(events))
			}
			for i := range positioned {
				for j := i + 1; j < len(positioned); j++ {
					p, q := positioned[i], positioned[j]
					if p.Cluster != q.Cluster || p.Overflow || q.Overflow {
						continue
					}
					if !Overlaps(p.Event, q.Event, opts.Tolerance) {
						continue
					}
					if p.Column == q.Column {
						t.Errorf("seed %d width %v: colliding %s and %s share column %d", seed, width, p.Event.ID, q.Event.ID, p.Column)
					}
					const eps = 1e-9
					if p.Right() > q.Left+eps && q.Right() > p.Left+eps {
						t.Errorf("seed %d width %v: %s [%v,%v) and %s [%v,%v) intersect", seed, width,
							p.Event.ID, p.Left, p.Right(), q.Event.ID, q.Left, q.Right())
					}
				}
			}
			for _, p := range positioned {
				if p.Left < 0 || p.Right() > opts.TrackWidth-opts.Margin+1e-9 {
					t.Errorf("seed %d width %v: %s outside track: [%v,%v)", seed, width, p.Event.ID, p.Left, p.Right())
				}
			}
		}
	}
}

func TestMinimumHeightAndClamping(t *testing.T) {
	opts := DefaultOptions()
	short := event("short", 10, 0, 10, 1)
	late := calendar.NewEvent("late", "late", at(23, 55), testDay.AddDate(0, 0, 1))
	inverted := event("inverted", 12, 0, 11, 0)

	got := byID(LayoutDay([]calendar.Event{short, late, inverted}, testDay, opts))
	if p := got["short"]; p.Height != opts.MinHeight || p.Top != 600 {
		t.Errorf("short: top=%v height=%v", p.Top, p.Height)
	}
	if p := got["late"]; p.Top+p.Height != 1440 || p.Height != opts.MinHeight {
		t.Errorf("late not clamped to the grid: top=%v height=%v", p.Top, p.Height)
	}
	p, ok := got["inverted"]
	if !ok {
		t.Fatal("inverted event should be coerced, not dropped")
	}
	if !p.Event.End.After(p.Event.Start) {
		t.Errorf("inverted event still inverted: %v-%v", p.Event.Start, p.Event.End)
	}
}

func TestTimeRangeClipping(t *testing.T) {
	opts := DefaultOptions()
	opts.TimeRange = calendar.TimeRange{Start: 8, End: 18}

	events := []calendar.Event{
		event("early", 5, 0, 6, 0),
		event("straddle-start", 7, 0, 9, 0),
		event("straddle-end", 17, 0, 19, 0),
		event("inside", 12, 0, 13, 0),
	}
	got := byID(LayoutDay(events, testDay, opts))
	if _, ok := got["early"]; ok {
		t.Error("event before the visible range should be dropped")
	}
	if p := got["straddle-start"]; !p.ClippedTop || p.Top != 0 || p.Height != 60 {
		t.Errorf("straddle-start: %+v", p)
	}
	if p := got["straddle-end"]; !p.ClippedBottom || p.Top != 540 || p.Height != 60 {
		t.Errorf("straddle-end: %+v", p)
	}
	if p := got["inside"]; p.Top != 240 || p.ClippedTop || p.ClippedBottom {
		t.Errorf("inside: %+v", p)
	}
}

func TestMidnightSpanningEvent(t *testing.T) {
	overnight := calendar.NewEvent("night", "night", at(22, 0), at(22, 0).Add(4*time.Hour))
	opts := DefaultOptions()

	first := LayoutDay([]calendar.Event{overnight}, testDay, opts)
	second := LayoutDay([]calendar.Event{overnight}, testDay.AddDate(0, 0, 1), opts)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("overnight event should appear on both days: %d, %d", len(first), len(second))
	}
	if !first[0].ClippedBottom || first[0].Top != 1320 || first[0].Height != 120 {
		t.Errorf("first day: %+v", first[0])
	}
	if !second[0].ClippedTop || second[0].Top != 0 || second[0].Height != 120 {
		t.Errorf("second day: %+v", second[0])
	}
}

func TestOverflowColumns(t *testing.T) {
	var events []calendar.Event
	for i := 0; i < 12; i++ {
		events = append(events, event(fmt.Sprintf("e%02d", i), 10, 0, 11, 0))
	}
	opts := DefaultOptions()
	got := byID(LayoutDay(events, testDay, opts))

	last := got["e09"]
	if last.Overflow {
		t.Error("e09 fits in the last lane and should not overflow")
	}
	for _, id := range []string{"e10", "e11"} {
		p := got[id]
		if !p.Overflow {
			t.Errorf("%s should overflow", id)
		}
		if p.Left != last.Left {
			t.Errorf("%s left=%v, want last lane %v", id, p.Left, last.Left)
		}
		if p.Columns != 12 {
			t.Errorf("%s columns=%d, want 12", id, p.Columns)
		}
	}
	if got["e11"].Column != 11 {
		t.Errorf("overflowing events keep their column index, got %d", got["e11"].Column)
	}
}

func TestSkipsInvalidAndAllDay(t *testing.T) {
	allDay := calendar.NewEvent("holiday", "Holiday", testDay, testDay.AddDate(0, 0, 1))
	allDay.AllDay = true
	missing := event("", 10, 0, 11, 0)
	ok := event("ok", 10, 0, 11, 0)

	got := LayoutDay([]calendar.Event{allDay, missing, ok}, testDay, DefaultOptions())
	if len(got) != 1 || got[0].Event.ID != "ok" {
		t.Errorf("got %v, want only ok", got)
	}
	lane := AllDay([]calendar.Event{allDay, ok}, testDay)
	if len(lane) != 1 || lane[0].ID != "holiday" {
		t.Errorf("AllDay = %v", lane)
	}
}

func TestNarrowWidening(t *testing.T) {
	events := []calendar.Event{
		event("A", 10, 0, 12, 0),
		event("B", 10, 0, 11, 0),
		event("D", 10, 0, 10, 30),
		event("C", 11, 30, 12, 0),
	}
	opts := DefaultOptions()
	opts.TrackWidth = 60
	opts.Margin = 0
	opts.Spacing = 0

	got := byID(LayoutDay(events, testDay, opts))
	wantCols := map[string]int{"A": 0, "B": 1, "D": 2, "C": 1}
	for id, col := range wantCols {
		if got[id].Column != col {
			t.Errorf("%s column=%d, want %d", id, got[id].Column, col)
		}
	}
	if c := got["C"]; c.Span != 2 || c.Width != 40 {
		t.Errorf("C span=%d width=%v, want 2, 40", c.Span, c.Width)
	}
	for _, id := range []string{"A", "B", "D"} {
		if got[id].Span != 1 {
			t.Errorf("%s span=%d, want 1", id, got[id].Span)
		}
	}

	opts.ExpandNarrow = false
	if c := byID(LayoutDay(events, testDay, opts))["C"]; c.Span != 1 || c.Width != 20 {
		t.Errorf("without widening C span=%d width=%v", c.Span, c.Width)
	}
}

func TestMinWidthNeverExceedsLane(t *testing.T) {
	opts := DefaultOptions()
	opts.TrackWidth = 40
	opts.Margin = 0
	opts.MinWidth = 30
	opts.ExpandNarrow = false

	got := LayoutDay([]calendar.Event{
		event("a", 10, 0, 11, 0),
		event("b", 10, 0, 11, 0),
	}, testDay, opts)
	for _, p := range got {
		if p.Width > 20 {
			t.Errorf("%s width %v exceeds lane pitch 20", p.Event.ID, p.Width)
		}
		if p.Width < 19 {
			t.Errorf("%s width %v below the reachable floor", p.Event.ID, p.Width)
		}
	}
}

func TestLayoutDaysExpandsRecurrence(t *testing.T) {
	daily := event("daily", 9, 0, 9, 30)
	daily.Recurrence = &calendar.RecurrenceRule{Frequency: calendar.FrequencyDaily}
	days := dates.ViewRange(dates.ViewThreeDay, testDay, time.Monday).Days

	out := LayoutDays([]calendar.Event{daily}, days, DefaultOptions())
	if len(out) != 3 {
		t.Fatalf("got %d days, want 3", len(out))
	}
	for i, d := range out {
		if len(d.Events) != 1 {
			t.Fatalf("day %d: %d events, want 1", i, len(d.Events))
		}
		if d.Events[0].Top != 540 {
			t.Errorf("day %d top=%v, want 540", i, d.Events[0].Top)
		}
	}
	if !out[1].Events[0].Event.IsRecurrence {
		t.Error("second day should show a recurrence instance")
	}
}

func TestLayoutDaysShowsOvernightSpillFromBeforeTheView(t *testing.T) {
	start := time.Date(2025, 8, 20, 23, 0, 0, 0, time.Local)
	night := calendar.NewEvent("night", "Night shift", start, start.Add(2*time.Hour))
	night.Recurrence = &calendar.RecurrenceRule{Frequency: calendar.FrequencyDaily}
	days := dates.ViewRange(dates.ViewThreeDay, testDay, time.Monday).Days

	out := LayoutDays([]calendar.Event{night}, days, DefaultOptions())
	first := byID(out[0].Events)
	spill, ok := first["night@20250824"]
	if !ok {
		t.Fatalf("first day is missing the instance that started the night before: %v", first)
	}
	if spill.Top != 0 || spill.Height != 60 {
		t.Errorf("spill top=%v height=%v, want 0 and 60", spill.Top, spill.Height)
	}
	if _, ok := first["night@20250825"]; !ok {
		t.Error("first day is missing its own 23:00 instance")
	}
}

func TestMonthCells(t *testing.T) {
	grid := dates.MonthGrid(testDay, time.Monday)
	holiday := calendar.NewEvent("holiday", "Holiday", testDay, testDay.AddDate(0, 0, 1))
	holiday.AllDay = true
	events := []calendar.Event{
		event("one", 9, 0, 10, 0),
		event("two", 11, 0, 12, 0),
		event("three", 13, 0, 14, 0),
		holiday,
	}
	cells := MonthCells(events, grid, 2)
	for _, week := range cells {
		for _, cell := range week {
			if !dates.IsSameDay(cell.Date, testDay) {
				if len(cell.Events) != 0 {
					t.Errorf("%v: unexpected events", cell.Date)
				}
				continue
			}
			if len(cell.Events) != 2 || cell.More != 2 {
				t.Errorf("events=%d more=%d, want 2 and 2", len(cell.Events), cell.More)
			}
			if cell.Events[0].ID != "holiday" {
				t.Errorf("all-day event should come first, got %s", cell.Events[0].ID)
			}
		}
	}
}

func TestVerticalZoom(t *testing.T) {
	opts := DefaultOptions()
	opts.HourHeight = 80
	opts.Zoom = 1.5
	ext, ok := Vertical(at(1, 0), at(2, 0), testDay, opts)
	if !ok {
		t.Fatal("expected visible extent")
	}
	if math.Abs(ext.Top-120) > 1e-9 || math.Abs(ext.Height-120) > 1e-9 {
		t.Errorf("top=%v height=%v, want 120, 120", ext.Top, ext.Height)
	}
}

// randomDay builds n events on testDay with starts on five minute steps.
func randomDay(seed uint64, n int) []calendar.Event {
	r := rand.New(rand.NewPCG(seed, seed*7919))
	events := make([]calendar.Event, n)
	for i := range events {
		start := at(6, 0).Add(time.Duration(r.IntN(14*12)) * 5 * time.Minute)
		length := time.Duration(1+r.IntN(24)) * 5 * time.Minute
		events[i] = calendar.NewEvent(fmt.Sprintf("r%02d", i), "", start, start.Add(length))
	}
	return events
}

func ids(c Cluster) []string {
	out := make([]string, len(c))
	for i, ev := range c {
		out[i] = ev.ID
	}
	return out
}
