package gesture

import (
	"math"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/config"
	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/layout"
)

// Point is a pointer position in grid coordinates: X from the left edge of
// the first day column, Y from the top of the visible time range, both
// including any scrolled-away content.
type Point struct {
	X, Y float64
}

// Grid describes the visible days and the viewport at the time of a
// gesture. The host updates it when the view scrolls or resizes.
type Grid struct {
	Days           []time.Time
	ColumnWidth    float64
	ScrollOffset   float64
	ViewportHeight float64
}

// Column returns the day column under x, clamped to the visible days.
func (g Grid) Column(x float64) int {
	if len(g.Days) == 0 {
		return 0
	}
	col := 0
	if g.ColumnWidth > 0 {
		col = int(math.Floor(x / g.ColumnWidth))
	}
	return max(0, min(col, len(g.Days)-1))
}

// Index returns the column that shows t, or -1.
func (g Grid) Index(t time.Time) int {
	for i, d := range g.Days {
		if dates.IsSameDay(d, t) {
			return i
		}
	}
	return -1
}

// Options are the gesture thresholds and the vertical scale.
type Options struct {
	Interval        time.Duration
	HourHeight      float64
	Zoom            float64
	TimeRange       calendar.TimeRange
	MinHeight       float64
	LongPress       time.Duration
	Jitter          float64
	Threshold       float64
	PreviewInterval time.Duration
	MinCreate       time.Duration
}

func DefaultOptions() Options {
	return OptionsFrom(config.DefaultSettings())
}

func OptionsFrom(s config.Settings) Options {
	return Options{
		Interval:        time.Duration(s.TimeInterval) * time.Minute,
		HourHeight:      s.HourHeight,
		Zoom:            s.Zoom,
		TimeRange:       s.TimeRange,
		MinHeight:       s.MinEventHeight,
		LongPress:       s.LongPress,
		Jitter:          s.Jitter,
		Threshold:       s.DragThreshold,
		PreviewInterval: s.PreviewInterval,
		MinCreate:       s.MinCreateDuration,
	}
}

// MinutesPerPixel is 60 / (hourHeight * zoom).
func (o Options) MinutesPerPixel() float64 {
	zoom := o.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	if o.HourHeight <= 0 {
		return 1
	}
	return 60 / (o.HourHeight * zoom)
}

func (o Options) intervalMinutes() float64 {
	if m := o.Interval.Minutes(); m >= 1 {
		return m
	}
	return 1
}

func (o Options) timeRange() calendar.TimeRange {
	if o.TimeRange.Validate() != nil {
		return calendar.FullDay
	}
	return o.TimeRange
}

func (o Options) layout() layout.Options {
	opts := layout.DefaultOptions()
	opts.TimeRange = o.timeRange()
	opts.HourHeight = o.HourHeight
	opts.Zoom = o.Zoom
	opts.MinHeight = o.MinHeight
	return opts
}

// Snap rounds minutes to the nearest multiple of interval, halves away
// from zero.
func Snap(minutes, interval float64) float64 {
	if interval <= 0 {
		return minutes
	}
	return math.Round(minutes/interval) * interval
}

// MinutesAt converts a grid Y coordinate to minutes from midnight.
func (o Options) MinutesAt(y float64) float64 {
	return float64(o.timeRange().StartMinutes()) + y*o.MinutesPerPixel()
}

// Rect is a preview rectangle in grid coordinates.
type Rect struct {
	Column int
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

func minutesDuration(m float64) time.Duration {
	return time.Duration(math.Round(m * float64(time.Minute)))
}
