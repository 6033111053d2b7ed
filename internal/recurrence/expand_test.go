package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
)

// Aug 25 2025 is a Monday.
func day(d int) time.Time {
	return time.Date(2025, 8, d, 0, 0, 0, 0, time.Local)
}

func recurring(rule calendar.RecurrenceRule) calendar.Event {
	ev := calendar.NewEvent("standup", "Standup",
		time.Date(2025, 8, 25, 9, 30, 0, 0, time.Local),
		time.Date(2025, 8, 25, 10, 0, 0, 0, time.Local))
	ev.Recurrence = &rule
	return ev
}

func TestWeeklyUntilThreeWeeks(t *testing.T) {
	ev := recurring(calendar.RecurrenceRule{
		Frequency: calendar.FrequencyWeekly,
		Interval:  1,
		Until:     day(25).AddDate(0, 0, 21),
	})
	got := Expand(ev, day(25), day(25).AddDate(0, 0, 28))
	if len(got) != 3 {
		t.Fatalf("got %d instances, want 3", len(got))
	}
	prev := ev.Start
	for _, inst := range got {
		if inst.Start.Sub(prev) != 7*24*time.Hour {
			t.Errorf("instance %s is %v after previous, want 7 days", inst.ID, inst.Start.Sub(prev))
		}
		if inst.Duration() != 30*time.Minute {
			t.Errorf("instance %s duration %v", inst.ID, inst.Duration())
		}
		if !inst.IsRecurrence || inst.OriginalID != "standup" {
			t.Errorf("instance %s not marked as recurrence", inst.ID)
		}
		if inst.Start.Hour() != 9 || inst.Start.Minute() != 30 {
			t.Errorf("instance %s lost time of day: %v", inst.ID, inst.Start)
		}
		prev = inst.Start
	}
}

func TestExceptionsAreSkipped(t *testing.T) {
	exception := day(25).AddDate(0, 0, 14).Add(15 * time.Hour)
	ev := recurring(calendar.RecurrenceRule{
		Frequency:  calendar.FrequencyWeekly,
		Until:      day(25).AddDate(0, 0, 21),
		Exceptions: []time.Time{exception},
	})
	got := Expand(ev, day(25), day(25).AddDate(0, 0, 28))
	if len(got) != 2 {
		t.Fatalf("got %d instances, want 2", len(got))
	}
	for _, inst := range got {
		if dates.IsSameDay(inst.Start, exception) {
			t.Errorf("exception date %v was expanded", exception)
		}
	}
}

func TestExpandIsIdempotent(t *testing.T) {
	ev := recurring(calendar.RecurrenceRule{Frequency: calendar.FrequencyDaily, Interval: 2})
	from, to := day(20), day(25).AddDate(0, 1, 0)

	a := Expand(ev, from, to)
	b := Expand(ev, from, to)
	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("lengths differ or empty: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || !a[i].Start.Equal(b[i].Start) || !a[i].End.Equal(b[i].End) {
			t.Errorf("instance %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}

	seq := Instances(ev, from, to)
	first, second := 0, 0
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	if first != second || first != len(a) {
		t.Errorf("sequence not restartable: %d, %d, %d", first, second, len(a))
	}
}

func TestFrequencies(t *testing.T) {
	tests := []struct {
		name string
		rule calendar.RecurrenceRule
		from time.Time
		to   time.Time
		days []time.Time
	}{
		{
			name: "daily every other day",
			rule: calendar.RecurrenceRule{Frequency: calendar.FrequencyDaily, Interval: 2},
			from: day(25), to: day(31),
			days: []time.Time{day(27), day(29), day(31)},
		},
		{
			name: "weekly by day",
			rule: calendar.RecurrenceRule{
				Frequency: calendar.FrequencyWeekly,
				ByDay:     []calendar.Weekday{calendar.Monday, calendar.Wednesday, calendar.Friday},
			},
			from: day(25), to: day(31),
			days: []time.Time{day(27), day(29)},
		},
		{
			name: "biweekly",
			rule: calendar.RecurrenceRule{Frequency: calendar.FrequencyWeekly, Interval: 2},
			from: day(25), to: day(25).AddDate(0, 0, 35),
			days: []time.Time{day(25).AddDate(0, 0, 14), day(25).AddDate(0, 0, 28)},
		},
		{
			name: "monthly same day",
			rule: calendar.RecurrenceRule{Frequency: calendar.FrequencyMonthly},
			from: day(1), to: time.Date(2025, 11, 30, 0, 0, 0, 0, time.Local),
			days: []time.Time{
				time.Date(2025, 9, 25, 0, 0, 0, 0, time.Local),
				time.Date(2025, 10, 25, 0, 0, 0, 0, time.Local),
				time.Date(2025, 11, 25, 0, 0, 0, 0, time.Local),
			},
		},
		{
			name: "monthly last day",
			rule: calendar.RecurrenceRule{Frequency: calendar.FrequencyMonthly, ByMonthDay: []int{-1}},
			from: day(1), to: time.Date(2025, 10, 31, 0, 0, 0, 0, time.Local),
			days: []time.Time{
				day(31),
				time.Date(2025, 9, 30, 0, 0, 0, 0, time.Local),
				time.Date(2025, 10, 31, 0, 0, 0, 0, time.Local),
			},
		},
		{
			name: "yearly",
			rule: calendar.RecurrenceRule{Frequency: calendar.FrequencyYearly},
			from: day(1), to: time.Date(2027, 12, 31, 0, 0, 0, 0, time.Local),
			days: []time.Time{
				time.Date(2026, 8, 25, 0, 0, 0, 0, time.Local),
				time.Date(2027, 8, 25, 0, 0, 0, 0, time.Local),
			},
		},
		{
			name: "count includes the original",
			rule: calendar.RecurrenceRule{Frequency: calendar.FrequencyDaily, Count: 3},
			from: day(20), to: day(31),
			days: []time.Time{day(26), day(27)},
		},
		{
			name: "count consumed before window",
			rule: calendar.RecurrenceRule{Frequency: calendar.FrequencyDaily, Count: 3},
			from: day(28), to: day(31),
			days: nil,
		},
		{
			name: "byMonthDay ignored for weekly",
			rule: calendar.RecurrenceRule{Frequency: calendar.FrequencyWeekly, ByMonthDay: []int{1}},
			from: day(25), to: day(25).AddDate(0, 0, 7),
			days: []time.Time{day(25).AddDate(0, 0, 7)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(recurring(tt.rule), tt.from, tt.to)
			if len(got) != len(tt.days) {
				t.Fatalf("got %d instances, want %d: %v", len(got), len(tt.days), starts(got))
			}
			for i, want := range tt.days {
				if !dates.IsSameDay(got[i].Start, want) {
					t.Errorf("instance %d on %v, want %v", i, got[i].Start, want)
				}
				if got[i].ID != InstanceID("standup", want) {
					t.Errorf("instance %d id %q", i, got[i].ID)
				}
			}
		})
	}
}

func TestOvernightInstanceBeforeWindow(t *testing.T) {
	start := time.Date(2025, 8, 25, 23, 0, 0, 0, time.Local)
	ev := calendar.NewEvent("night", "Night", start, start.Add(2*time.Hour))
	ev.Recurrence = &calendar.RecurrenceRule{Frequency: calendar.FrequencyDaily}

	got := Expand(ev, day(28), day(28))
	if len(got) != 2 {
		t.Fatalf("got %v, want the 27th and 28th", starts(got))
	}
	if got[0].ID != InstanceID("night", day(27)) || got[1].ID != InstanceID("night", day(28)) {
		t.Errorf("ids = %s, %s", got[0].ID, got[1].ID)
	}

	// A same-day event never reaches back.
	short := recurring(calendar.RecurrenceRule{Frequency: calendar.FrequencyDaily})
	if got := Expand(short, day(28), day(28)); len(got) != 1 {
		t.Errorf("same-day series gave %v", starts(got))
	}
}

func TestExceptionsCountTowardsCount(t *testing.T) {
	ev := recurring(calendar.RecurrenceRule{
		Frequency:  calendar.FrequencyDaily,
		Count:      4,
		Exceptions: []time.Time{day(26)},
	})
	got := Expand(ev, day(25), day(31))
	want := []time.Time{day(27), day(28)}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", starts(got), want)
	}
	for i := range want {
		if !dates.IsSameDay(got[i].Start, want[i]) {
			t.Errorf("instance %d on %v, want %v", i, got[i].Start, want[i])
		}
	}
}

func TestOriginalDayNotExpanded(t *testing.T) {
	ev := recurring(calendar.RecurrenceRule{Frequency: calendar.FrequencyDaily})
	for _, inst := range Expand(ev, day(25), day(25)) {
		t.Errorf("unexpected instance %s on the original day", inst.ID)
	}
}

func TestExpandAll(t *testing.T) {
	single := calendar.NewEvent("single", "Single",
		time.Date(2025, 8, 27, 12, 0, 0, 0, time.Local),
		time.Date(2025, 8, 27, 13, 0, 0, 0, time.Local))
	outside := calendar.NewEvent("outside", "Outside",
		time.Date(2025, 7, 1, 12, 0, 0, 0, time.Local),
		time.Date(2025, 7, 1, 13, 0, 0, 0, time.Local))
	series := recurring(calendar.RecurrenceRule{Frequency: calendar.FrequencyDaily, Count: 3})

	got := ExpandAll([]calendar.Event{single, outside, series}, day(25), day(31))
	ids := map[string]bool{}
	for _, ev := range got {
		ids[ev.ID] = true
	}
	for _, want := range []string{"single", "standup", "standup@20250826", "standup@20250827"} {
		if !ids[want] {
			t.Errorf("missing %s in %v", want, ids)
		}
	}
	if ids["outside"] {
		t.Error("event outside the window was included")
	}
}

func TestCheck(t *testing.T) {
	notes := Check(calendar.RecurrenceRule{
		Frequency:  calendar.FrequencyDaily,
		ByDay:      []calendar.Weekday{"XX"},
		ByMonth:    []time.Month{time.March},
		ByMonthDay: []int{3},
	})
	if len(notes) != 4 {
		t.Errorf("expected 4 notes, got %v", notes)
	}
	if notes := Check(calendar.RecurrenceRule{Frequency: calendar.FrequencyWeekly, ByDay: []calendar.Weekday{calendar.Monday}}); len(notes) != 0 {
		t.Errorf("expected no notes, got %v", notes)
	}
}

func TestParseRRule(t *testing.T) {
	rule, err := ParseRRule("RRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE;COUNT=10")
	if err != nil {
		t.Fatalf("ParseRRule: %v", err)
	}
	if rule.Frequency != calendar.FrequencyWeekly || rule.Interval != 2 || rule.Count != 10 {
		t.Errorf("unexpected rule %+v", rule)
	}
	if len(rule.ByDay) != 2 || rule.ByDay[0] != calendar.Monday || rule.ByDay[1] != calendar.Wednesday {
		t.Errorf("ByDay = %v", rule.ByDay)
	}

	yearly, err := ParseRRule("FREQ=YEARLY;BYMONTH=3;BYMONTHDAY=15")
	if err != nil {
		t.Fatalf("ParseRRule yearly: %v", err)
	}
	if len(yearly.ByMonth) != 1 || yearly.ByMonth[0] != time.March || yearly.ByMonthDay[0] != 15 {
		t.Errorf("unexpected yearly rule %+v", yearly)
	}
	if yearly.Interval != 1 {
		t.Errorf("default interval = %d, want 1", yearly.Interval)
	}

	if _, err := ParseRRule("FREQ=HOURLY"); !errors.Is(err, ErrUnsupportedFrequency) {
		t.Errorf("expected ErrUnsupportedFrequency, got %v", err)
	}
	if _, err := ParseRRule(""); err == nil {
		t.Error("expected error for empty rule")
	}
}

func TestFormatRRuleRoundTrip(t *testing.T) {
	in := calendar.RecurrenceRule{
		Frequency: calendar.FrequencyWeekly,
		Interval:  2,
		ByDay:     []calendar.Weekday{calendar.Tuesday, calendar.Thursday},
	}
	s, err := FormatRRule(in)
	if err != nil {
		t.Fatalf("FormatRRule: %v", err)
	}
	out, err := ParseRRule(s)
	if err != nil {
		t.Fatalf("ParseRRule(%q): %v", s, err)
	}
	if out.Frequency != in.Frequency || out.Interval != in.Interval || len(out.ByDay) != 2 {
		t.Errorf("round trip changed rule: %q -> %+v", s, out)
	}
}

func starts(events []calendar.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Start.Format("2006-01-02")
	}
	return out
}
