// Package layout positions a day's events on a time grid. Events are
// grouped into clusters of transitively overlapping events, each cluster is
// split into columns by greedy interval colouring, and every event gets a
// rectangle in the units described by Options.
//
// Rectangles of colliding events in different columns never share any
// horizontal extent. Events whose column reaches MaxColumns are flagged as
// Overflow and drawn in the last lane, where that guarantee no longer holds.
package layout

import (
	"math"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
)

// PositionedEvent is an event with its rectangle for one layout pass.
type PositionedEvent struct {
	Event calendar.Event

	Top    float64
	Height float64
	Left   float64
	Width  float64

	Cluster int
	Column  int
	Columns int
	Span    int

	Overflow      bool
	ClippedTop    bool
	ClippedBottom bool
}

// Bottom and Right are the exclusive rectangle edges.
func (p PositionedEvent) Bottom() float64 { return p.Top + p.Height }
func (p PositionedEvent) Right() float64  { return p.Left + p.Width }

// Extent is the vertical placement of a time span within a day column.
type Extent struct {
	Top           float64
	Height        float64
	ClippedTop    bool
	ClippedBottom bool
}

// Vertical places [start, end) within day's visible time range. The result
// is false when nothing of the span is visible. Heights below MinHeight are
// raised to it and the rectangle is kept inside the grid.
func Vertical(start, end, day time.Time, opts Options) (Extent, bool) {
	tr := opts.timeRange()
	visStart := dates.AtMinutes(day, tr.StartMinutes())
	visEnd := dates.AtMinutes(day, tr.EndMinutes())

	s, e := start, end
	var ext Extent
	if s.Before(visStart) {
		s = visStart
		ext.ClippedTop = true
	}
	if e.After(visEnd) {
		e = visEnd
		ext.ClippedBottom = true
	}
	if !e.After(s) {
		return Extent{}, false
	}

	ppm := opts.PixelsPerMinute()
	startMin := dates.MinutesFromMidnight(s)
	endMin := float64(tr.EndMinutes())
	if e.Before(visEnd) {
		endMin = dates.MinutesFromMidnight(e)
	}

	total := opts.GridHeight()
	ext.Top = (startMin - float64(tr.StartMinutes())) * ppm
	ext.Height = (endMin - startMin) * ppm
	if ext.Height < opts.MinHeight {
		ext.Height = math.Min(opts.MinHeight, total)
	}
	if ext.Top+ext.Height > total {
		ext.Top = math.Max(0, total-ext.Height)
	}
	return ext, true
}

// LayoutDay positions the timed events that fall on date. All-day events
// are left to the all-day lane, events without an id are skipped, and
// events whose end does not follow their start are given MinDuration.
func LayoutDay(events []calendar.Event, date time.Time, opts Options) []PositionedEvent {
	log := opts.logger()
	day := dates.StartOfDay(date)

	extents := make(map[string]Extent, len(events))
	visible := make([]calendar.Event, 0, len(events))
	for _, ev := range events {
		if ev.AllDay {
			continue
		}
		norm, err := ev.Normalize(opts.MinDuration)
		if err != nil {
			log.Warn("skipping event", "id", ev.ID, "title", ev.Title, "error", err)
			continue
		}
		if !norm.OccursOn(day) {
			continue
		}
		if _, dup := extents[norm.ID]; dup {
			log.Warn("skipping duplicate event", "id", norm.ID)
			continue
		}
		ext, ok := Vertical(norm.Start, norm.End, day, opts)
		if !ok {
			continue
		}
		extents[norm.ID] = ext
		visible = append(visible, norm)
	}

	available := opts.TrackWidth - 2*opts.Margin
	if available <= 0 {
		available = opts.TrackWidth
	}
	maxCols := opts.maxColumns()

	out := make([]PositionedEvent, 0, len(visible))
	for ci, cluster := range Group(visible, opts.Tolerance) {
		assign := AssignColumns(cluster, opts.Tolerance)
		lanes := min(assign.Count, maxCols)
		pitch := available / float64(lanes)

		if opts.ExpandNarrow && lanes > 1 && pitch < opts.NarrowWidth && lanes <= opts.NarrowColumns {
			assign.widen(lanes, max(opts.MaxSpan, 1))
		}

		for i, ev := range cluster {
			ext := extents[ev.ID]
			col := assign.Columns[i]
			span := assign.Spans[i]
			overflow := col >= maxCols
			lane := col
			if overflow {
				lane = maxCols - 1
				span = 1
			}

			left, width := horizontal(lane, span, lanes, pitch, available, opts)
			out = append(out, PositionedEvent{
				Event:         ev,
				Top:           ext.Top,
				Height:        ext.Height,
				Left:          left,
				Width:         width,
				Cluster:       ci,
				Column:        col,
				Columns:       assign.Count,
				Span:          span,
				Overflow:      overflow,
				ClippedTop:    ext.ClippedTop,
				ClippedBottom: ext.ClippedBottom,
			})
		}
	}
	return out
}

// horizontal returns the left edge and width of an event covering span
// lanes from lane. The minimum width never exceeds the space the lanes
// provide, so neighbouring columns stay disjoint.
func horizontal(lane, span, lanes int, pitch, available float64, opts Options) (float64, float64) {
	left := opts.Margin + float64(lane)*pitch
	room := pitch * float64(span)
	width := room
	if lanes > 1 {
		width = room - opts.Spacing
	}
	if width < opts.MinWidth {
		width = math.Min(opts.MinWidth, room)
	}
	if width <= 0 {
		width = room
	}

	right := opts.Margin + available
	if left < 0 {
		left = 0
	}
	if left+width > right {
		width = right - left
	}
	return left, width
}
