package layout

import (
	"log/slog"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/config"
)

// Options is the geometry a layout pass works in. Vertical units are
// HourHeight*Zoom per hour; horizontal units are whatever TrackWidth is
// measured in (percent of the day column by default, terminal cells in the
// TUI).
type Options struct {
	TimeRange  calendar.TimeRange
	HourHeight float64
	Zoom       float64

	TrackWidth float64
	Margin     float64
	Spacing    float64
	MinWidth   float64
	MinHeight  float64
	MaxColumns int

	// Tolerance is the boundary gap under which two events are treated as
	// overlapping.
	Tolerance   time.Duration
	MinDuration time.Duration

	// ExpandNarrow lets events in narrow lanes spread into free columns to
	// their right. It only applies when the lane pitch is below NarrowWidth
	// and the cluster uses at most NarrowColumns columns.
	ExpandNarrow  bool
	NarrowWidth   float64
	NarrowColumns int
	MaxSpan       int

	Logger *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		TimeRange:     calendar.FullDay,
		HourHeight:    60,
		Zoom:          1,
		TrackWidth:    100,
		Margin:        1,
		Spacing:       1,
		MinWidth:      20,
		MinHeight:     15,
		MaxColumns:    10,
		Tolerance:     time.Minute,
		MinDuration:   calendar.MinimumDuration,
		ExpandNarrow:  true,
		NarrowWidth:   40,
		NarrowColumns: 3,
		MaxSpan:       3,
	}
}

// OptionsFrom maps resolved settings onto layout options. TrackWidth and
// the widening thresholds keep their defaults since they depend on the
// renderer rather than on user settings.
func OptionsFrom(s config.Settings) Options {
	opts := DefaultOptions()
	opts.TimeRange = s.TimeRange
	opts.HourHeight = s.HourHeight
	opts.Zoom = s.Zoom
	opts.MinWidth = s.MinEventWidth
	opts.MinHeight = s.MinEventHeight
	opts.MaxColumns = s.MaxOverlapColumns
	return opts
}

// PixelsPerMinute is the vertical scale.
func (o Options) PixelsPerMinute() float64 {
	zoom := o.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return o.HourHeight * zoom / 60
}

// GridHeight is the height of the visible time range.
func (o Options) GridHeight() float64 {
	return float64(o.TimeRange.Hours()*60) * o.PixelsPerMinute()
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) maxColumns() int {
	if o.MaxColumns < 1 {
		return 1
	}
	return o.MaxColumns
}

func (o Options) timeRange() calendar.TimeRange {
	if o.TimeRange.Validate() != nil {
		return calendar.FullDay
	}
	return o.TimeRange
}
