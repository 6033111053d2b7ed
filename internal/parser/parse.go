// Package parser reads the loose date and time phrases typed into the
// go-to-date prompt, the quick-add prompt and the --date flag.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
)

var (
	ErrEmpty  = errors.New("parser: empty input")
	ErrNoDate = errors.New("parser: no date found")
	ErrNoTime = errors.New("parser: quick-add needs a start time")
	ErrTrail  = errors.New("parser: unexpected trailing text")
)

const weekdayNames = `mon|monday|tue|tues|tuesday|wed|wednesday|thu|thur|thurs|thursday|fri|friday|sat|saturday|sun|sunday`

var (
	weekdayRe   = regexp.MustCompile(`^(?:(next|this|last)\s+)?(` + weekdayNames + `)\b`)
	inRe        = regexp.MustCompile(`^in\s+(\d+)\s+(day|days|week|weeks|month|months)\b`)
	fromNowRe   = regexp.MustCompile(`^(\d+)\s+(day|days|week|weeks|month|months)\s+(from now|from today|ago)\b`)
	unitRe      = regexp.MustCompile(`^(next|last|this)\s+(week|month)\b`)
	isoRe       = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	fullDateRe  = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
	shortDateRe = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})\b`)
	monthNameRe = regexp.MustCompile(`^(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|sept|september|oct|october|nov|november|dec|december)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)
	rangeRe     = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*-\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	clockRe     = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	forRe       = regexp.MustCompile(`^for\s+(\d+)\s*(m|min|mins|minutes|h|hr|hrs|hours?)\b`)
)

// Result is what Parse extracted from a phrase. Start and End are minutes
// from midnight; End is only set when the phrase gave a range or a
// duration.
type Result struct {
	Date    time.Time
	HasDate bool
	HasTime bool
	HasEnd  bool
	Start   int
	End     int
	Text    string
}

// Parser resolves relative phrases against a clock.
type Parser struct {
	now func() time.Time
}

func New() *Parser {
	return &Parser{now: time.Now}
}

// SetNow pins the reference time.
func (p *Parser) SetNow(now time.Time) {
	p.now = func() time.Time { return now }
}

func (p *Parser) today() time.Time {
	return dates.StartOfDay(p.now())
}

// Parse reads an optional date, an optional "at", an optional time or time
// range and an optional "for <duration>", in that order. What is left is
// returned as Text. A phrase without a date resolves to today.
func (p *Parser) Parse(input string) (Result, error) {
	rest := strings.ToLower(strings.TrimSpace(input))
	if rest == "" {
		return Result{}, ErrEmpty
	}
	original := strings.TrimSpace(input)

	res := Result{Date: p.today()}
	if date, n, ok := p.date(rest); ok {
		res.Date, res.HasDate = date, true
		rest = strings.TrimSpace(rest[n:])
	}
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "at "))

	if start, end, hasEnd, n, ok := clock(rest); ok {
		res.HasTime, res.Start, res.End, res.HasEnd = true, start, end, hasEnd
		rest = strings.TrimSpace(rest[n:])
		if m := forRe.FindStringSubmatch(rest); m != nil && !res.HasEnd {
			amount, _ := strconv.Atoi(m[1])
			if strings.HasPrefix(m[2], "h") {
				amount *= 60
			}
			res.End, res.HasEnd = res.Start+amount, true
			rest = strings.TrimSpace(rest[len(m[0]):])
		}
	}

	// Text keeps the caller's capitalization where byte lengths allow.
	if len(original) == len(strings.ToLower(original)) {
		rest = original[len(original)-len(rest):]
	}
	res.Text = strings.TrimSpace(rest)
	return res, nil
}

// ParseDate accepts a phrase that is nothing but a date.
func (p *Parser) ParseDate(input string) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return time.Time{}, ErrEmpty
	}
	date, n, ok := p.date(s)
	if !ok {
		return time.Time{}, fmt.Errorf("%w in %q", ErrNoDate, input)
	}
	if strings.TrimSpace(s[n:]) != "" {
		return time.Time{}, fmt.Errorf("%w: %q", ErrTrail, strings.TrimSpace(s[n:]))
	}
	return date, nil
}

// Event turns a parsed quick-add phrase into an event. A missing end is
// filled with defaultDuration, and an end before the start rolls to the
// next day.
func (r Result) Event(id string, defaultDuration time.Duration) (calendar.Event, error) {
	if !r.HasTime {
		return calendar.Event{}, ErrNoTime
	}
	start := dates.AtMinutes(r.Date, r.Start)
	var end time.Time
	switch {
	case !r.HasEnd:
		end = start.Add(defaultDuration)
	case r.End <= r.Start:
		end = dates.AtMinutes(dates.AddDays(r.Date, 1), r.End)
	default:
		end = dates.AtMinutes(r.Date, r.End)
	}
	title := r.Text
	if title == "" {
		title = "New event"
	}
	return calendar.NewEvent(id, title, start, end).Normalize(calendar.MinimumDuration)
}

// date returns the resolved date and how many bytes of s it consumed.
func (p *Parser) date(s string) (time.Time, int, bool) {
	today := p.today()
	for _, word := range []struct {
		text string
		days int
	}{{"today", 0}, {"tomorrow", 1}, {"yesterday", -1}} {
		if s == word.text || strings.HasPrefix(s, word.text+" ") {
			return dates.AddDays(today, word.days), len(word.text), true
		}
	}

	if m := weekdayRe.FindStringSubmatch(s); m != nil {
		target := weekday(m[2])
		switch m[1] {
		case "last":
			diff := (int(today.Weekday()) - int(target) + 7) % 7
			if diff == 0 {
				diff = 7
			}
			return dates.AddDays(today, -diff), len(m[0]), true
		case "this":
			diff := (int(target) - int(today.Weekday()) + 7) % 7
			return dates.AddDays(today, diff), len(m[0]), true
		default:
			diff := (int(target) - int(today.Weekday()) + 7) % 7
			if diff == 0 {
				diff = 7
			}
			return dates.AddDays(today, diff), len(m[0]), true
		}
	}

	if m := inRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return shift(today, n, m[2]), len(m[0]), true
	}
	if m := fromNowRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if m[3] == "ago" {
			n = -n
		}
		return shift(today, n, m[2]), len(m[0]), true
	}
	if m := unitRe.FindStringSubmatch(s); m != nil {
		n := map[string]int{"next": 1, "last": -1, "this": 0}[m[1]]
		return shift(today, n, m[2]), len(m[0]), true
	}

	if m := isoRe.FindStringSubmatch(s); m != nil {
		if d, ok := makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), today.Location()); ok {
			return d, len(m[0]), true
		}
	}
	if m := fullDateRe.FindStringSubmatch(s); m != nil {
		if d, ok := makeDate(atoi(m[3]), atoi(m[1]), atoi(m[2]), today.Location()); ok {
			return d, len(m[0]), true
		}
	}
	if m := monthNameRe.FindStringSubmatch(s); m != nil {
		year := today.Year()
		if m[3] != "" {
			year = atoi(m[3])
		}
		if d, ok := makeDate(year, int(month(m[1])), atoi(m[2]), today.Location()); ok {
			return d, len(m[0]), true
		}
	}
	// A bare 4-5 is read as a time range when it forms one.
	if m := shortDateRe.FindStringSubmatch(s); m != nil && (strings.Contains(m[0], "/") || !isClock(s)) {
		if d, ok := makeDate(today.Year(), atoi(m[1]), atoi(m[2]), today.Location()); ok {
			return d, len(m[0]), true
		}
	}
	return time.Time{}, 0, false
}

// clock reads "2pm", "14:30", "noon", "midnight" or a range such as
// "9-10:30am". A bare number with no meridiem and no minutes is not a time.
func clock(s string) (start, end int, hasEnd bool, n int, ok bool) {
	for word, minutes := range map[string]int{"noon": 12 * 60, "midnight": 0} {
		if s == word || strings.HasPrefix(s, word+" ") {
			return minutes, 0, false, len(word), true
		}
	}
	if m := rangeRe.FindStringSubmatch(s); m != nil {
		endMer := m[6]
		startMer := m[3]
		if startMer == "" {
			startMer = endMer
		}
		from, okFrom := minutes(m[1], m[2], startMer)
		to, okTo := minutes(m[4], m[5], endMer)
		// "11-1pm" means 11am to 1pm.
		if okFrom && okTo && m[3] == "" && endMer == "pm" && from > to {
			from -= 12 * 60
		}
		if okFrom && okTo {
			return from, to, true, len(m[0]), true
		}
	}
	if m := clockRe.FindStringSubmatch(s); m != nil && (m[2] != "" || m[3] != "") {
		if v, ok := minutes(m[1], m[2], m[3]); ok {
			return v, 0, false, len(m[0]), true
		}
	}
	return 0, 0, false, 0, false
}

func isClock(s string) bool {
	_, _, _, _, ok := clock(s)
	return ok
}

func minutes(hour, minute, meridiem string) (int, bool) {
	h := atoi(hour)
	m := 0
	if minute != "" {
		m = atoi(minute)
	}
	if m > 59 {
		return 0, false
	}
	switch meridiem {
	case "am":
		if h < 1 || h > 12 {
			return 0, false
		}
		if h == 12 {
			h = 0
		}
	case "pm":
		if h < 1 || h > 12 {
			return 0, false
		}
		if h != 12 {
			h += 12
		}
	default:
		if h > 24 || (h == 24 && m != 0) {
			return 0, false
		}
	}
	return h*60 + m, true
}

func shift(t time.Time, n int, unit string) time.Time {
	switch {
	case strings.HasPrefix(unit, "week"):
		return t.AddDate(0, 0, 7*n)
	case strings.HasPrefix(unit, "month"):
		return t.AddDate(0, n, 0)
	}
	return t.AddDate(0, 0, n)
}

func makeDate(year, m, day int, loc *time.Location) (time.Time, bool) {
	if m < 1 || m > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(m), day, 0, 0, 0, 0, loc)
	if d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func weekday(s string) time.Weekday {
	switch s[:3] {
	case "mon":
		return time.Monday
	case "tue":
		return time.Tuesday
	case "wed":
		return time.Wednesday
	case "thu":
		return time.Thursday
	case "fri":
		return time.Friday
	case "sat":
		return time.Saturday
	}
	return time.Sunday
}

func month(s string) time.Month {
	for m := time.January; m <= time.December; m++ {
		if strings.HasPrefix(strings.ToLower(m.String()), s[:3]) {
			return m
		}
	}
	return time.January
}
