package ui

import (
	"math"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/config"
	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/gesture"
	"github.com/cwarden/timegrid/internal/layout"
)

const (
	gutterWidth = 6 // "HH:MM "
	headerRows  = 3 // title, day names, all-day strip
	statusRows  = 1
	minColumn   = 8
)

// screen is the cell geometry of the time-grid views for one frame.
type screen struct {
	width, height int
	days          []time.Time
	colWidth      int
	gridTop       int
	gridRows      int
}

func newScreen(width, height int, days []time.Time) screen {
	s := screen{width: width, height: height, days: days, gridTop: headerRows}
	if n := len(days); n > 0 {
		s.colWidth = max(minColumn, (width-gutterWidth)/n)
	}
	s.gridRows = max(1, height-headerRows-statusRows)
	return s
}

// columnX is the screen column where day col starts.
func (s screen) columnX(col int) int {
	return gutterWidth + col*s.colWidth
}

// trackWidth leaves one cell for the column separator.
func (s screen) trackWidth() int {
	return max(1, s.colWidth-1)
}

func (s screen) inGrid(x, y int) bool {
	return x >= gutterWidth && x < s.columnX(len(s.days)) && y >= s.gridTop && y < s.gridTop+s.gridRows
}

// point converts a screen cell to gesture coordinates. Y counts rows from
// the top of the visible time range, scrolled rows included.
func (s screen) point(x, y, scroll int) gesture.Point {
	return gesture.Point{X: float64(x - gutterWidth), Y: float64(y - s.gridTop + scroll)}
}

func (s screen) grid(scroll int) gesture.Grid {
	return gesture.Grid{
		Days:           s.days,
		ColumnWidth:    float64(s.colWidth),
		ScrollOffset:   float64(scroll),
		ViewportHeight: float64(s.gridRows),
	}
}

// cellSettings rescales pixel-oriented settings for a terminal: one row
// per time interval and thresholds of a single cell.
func cellSettings(s config.Settings) config.Settings {
	s.HourHeight = 60 / float64(max(s.TimeInterval, 1))
	s.MinEventHeight = 1
	s.MinEventWidth = 3
	s.Jitter = 1
	s.DragThreshold = 1
	return s
}

func layoutOptions(s config.Settings, sc screen) layout.Options {
	opts := layout.OptionsFrom(cellSettings(s))
	opts.TrackWidth = float64(sc.trackWidth())
	opts.Margin = 0
	opts.Spacing = 1
	opts.NarrowWidth = 16
	return opts
}

func gestureOptions(s config.Settings) gesture.Options {
	return gesture.OptionsFrom(cellSettings(s))
}

// totalRows is the height of the full time range in rows.
func totalRows(s config.Settings) int {
	opts := layout.OptionsFrom(cellSettings(s))
	return int(math.Ceil(opts.GridHeight()))
}

// rowMinutes is the time at the top of grid row.
func rowMinutes(s config.Settings, row int) int {
	opts := layout.OptionsFrom(cellSettings(s))
	return s.TimeRange.StartMinutes() + int(math.Round(float64(row)/opts.PixelsPerMinute()))
}

// rowOf is the grid row that shows t on its own day.
func rowOf(s config.Settings, t time.Time) int {
	opts := layout.OptionsFrom(cellSettings(s))
	return int(math.Floor((dates.MinutesFromMidnight(t) - float64(s.TimeRange.StartMinutes())) * opts.PixelsPerMinute()))
}

// block is an event rectangle in cells. Top is a grid row, before
// scrolling; X is a screen column.
type block struct {
	Event    calendar.Event
	Col      int
	X, W     int
	Top, H   int
	Overflow bool
}

func toBlock(p layout.PositionedEvent, col int, sc screen) block {
	x0 := int(math.Round(p.Left))
	x1 := int(math.Round(p.Right()))
	top := int(math.Round(p.Top))
	bottom := int(math.Round(p.Bottom()))
	return block{
		Event:    p.Event,
		Col:      col,
		X:        sc.columnX(col) + x0,
		W:        max(1, x1-x0),
		Top:      top,
		H:        max(1, bottom-top),
		Overflow: p.Overflow,
	}
}

func (b block) contains(x, row int) bool {
	return x >= b.X && x < b.X+b.W && row >= b.Top && row < b.Top+b.H
}

// hit returns the last block under the cell, which is the one drawn on top.
func hit(blocks []block, x, row int) (block, bool) {
	for i := len(blocks) - 1; i >= 0; i-- {
		if blocks[i].contains(x, row) {
			return blocks[i], true
		}
	}
	return block{}, false
}

// monthScreen is the cell geometry of the month view: a title row, a row
// of weekday names and six weeks below them.
type monthScreen struct {
	cellW, cellH int
	top          int
}

func newMonthScreen(width, height int) monthScreen {
	return monthScreen{
		cellW: max(minColumn, width/7),
		cellH: max(2, (height-2-statusRows)/6),
		top:   2,
	}
}

func (s monthScreen) cell(x, y int) (week, day int, ok bool) {
	if x < 0 || y < s.top {
		return 0, 0, false
	}
	week, day = (y-s.top)/s.cellH, x/s.cellW
	return week, day, week < 6 && day < 7
}
