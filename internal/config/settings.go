package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
)

var ErrInvalidSetting = errors.New("config: invalid setting")

// Settings is the resolved configuration read by layout and gesture code.
// Pixel values are in whatever unit the renderer uses for its grid.
type Settings struct {
	TimeInterval      int // minutes
	HourHeight        float64
	Zoom              float64
	TimeRange         calendar.TimeRange
	UnavailableHours  calendar.UnavailableHours
	MaxOverlapColumns int
	MinEventWidth     float64
	MinEventHeight    float64
	LongPress         time.Duration
	Jitter            float64
	DragThreshold     float64
	PreviewInterval   time.Duration
	MinCreateDuration time.Duration
	WeekStart         time.Weekday
	StartupView       dates.ViewMode
	Theme             string
}

func DefaultSettings() Settings {
	return Settings{
		TimeInterval:      30,
		HourHeight:        60,
		Zoom:              1,
		TimeRange:         calendar.FullDay,
		MaxOverlapColumns: 10,
		MinEventWidth:     20,
		MinEventHeight:    15,
		LongPress:         200 * time.Millisecond,
		Jitter:            10,
		DragThreshold:     5,
		PreviewInterval:   50 * time.Millisecond,
		MinCreateDuration: 30 * time.Minute,
		WeekStart:         time.Monday,
		StartupView:       dates.ViewWeek,
		Theme:             "default",
	}
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	s.UnavailableHours = s.UnavailableHours.Clone()
	return s
}

func (s Settings) Validate() error {
	switch {
	case s.TimeInterval < 1 || s.TimeInterval > 24*60:
		return fmt.Errorf("%w: time_interval %d", ErrInvalidSetting, s.TimeInterval)
	case s.HourHeight <= 0:
		return fmt.Errorf("%w: hour_height %v", ErrInvalidSetting, s.HourHeight)
	case s.Zoom <= 0:
		return fmt.Errorf("%w: zoom %v", ErrInvalidSetting, s.Zoom)
	case s.MaxOverlapColumns < 1:
		return fmt.Errorf("%w: max_overlap_columns %d", ErrInvalidSetting, s.MaxOverlapColumns)
	case s.MinEventWidth < 0 || s.MinEventHeight < 0:
		return fmt.Errorf("%w: minimum event size %vx%v", ErrInvalidSetting, s.MinEventWidth, s.MinEventHeight)
	case s.LongPress < 0 || s.PreviewInterval < 0:
		return fmt.Errorf("%w: negative delay", ErrInvalidSetting)
	case s.Jitter < 0 || s.DragThreshold < 0:
		return fmt.Errorf("%w: negative drag distance", ErrInvalidSetting)
	case s.MinCreateDuration < time.Minute:
		return fmt.Errorf("%w: min_create_duration %v", ErrInvalidSetting, s.MinCreateDuration)
	case s.WeekStart < time.Sunday || s.WeekStart > time.Saturday:
		return fmt.Errorf("%w: week_start %d", ErrInvalidSetting, s.WeekStart)
	}
	if err := s.TimeRange.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	}
	if err := s.UnavailableHours.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	}
	return nil
}

// Overrides is a partial Settings. Nil fields leave the base value alone.
type Overrides struct {
	TimeInterval      *int
	HourHeight        *float64
	Zoom              *float64
	TimeRange         *calendar.TimeRange
	UnavailableHours  *calendar.UnavailableHours
	MaxOverlapColumns *int
	MinEventWidth     *float64
	MinEventHeight    *float64
	LongPress         *time.Duration
	Jitter            *float64
	DragThreshold     *float64
	PreviewInterval   *time.Duration
	MinCreateDuration *time.Duration
	WeekStart         *time.Weekday
	StartupView       *dates.ViewMode
	Theme             *string
}

// Apply returns s with every set field of o copied over, field by field in
// declaration order. The result is not validated.
func Apply(s Settings, o Overrides) Settings {
	s = s.Clone()
	if o.TimeInterval != nil {
		s.TimeInterval = *o.TimeInterval
	}
	if o.HourHeight != nil {
		s.HourHeight = *o.HourHeight
	}
	if o.Zoom != nil {
		s.Zoom = *o.Zoom
	}
	if o.TimeRange != nil {
		s.TimeRange = *o.TimeRange
	}
	if o.UnavailableHours != nil {
		s.UnavailableHours = o.UnavailableHours.Clone()
	}
	if o.MaxOverlapColumns != nil {
		s.MaxOverlapColumns = *o.MaxOverlapColumns
	}
	if o.MinEventWidth != nil {
		s.MinEventWidth = *o.MinEventWidth
	}
	if o.MinEventHeight != nil {
		s.MinEventHeight = *o.MinEventHeight
	}
	if o.LongPress != nil {
		s.LongPress = *o.LongPress
	}
	if o.Jitter != nil {
		s.Jitter = *o.Jitter
	}
	if o.DragThreshold != nil {
		s.DragThreshold = *o.DragThreshold
	}
	if o.PreviewInterval != nil {
		s.PreviewInterval = *o.PreviewInterval
	}
	if o.MinCreateDuration != nil {
		s.MinCreateDuration = *o.MinCreateDuration
	}
	if o.WeekStart != nil {
		s.WeekStart = *o.WeekStart
	}
	if o.StartupView != nil {
		s.StartupView = *o.StartupView
	}
	if o.Theme != nil {
		s.Theme = *o.Theme
	}
	return s
}

// Resolve applies each override set in turn, later sets winning, and
// validates the result.
func Resolve(base Settings, overrides ...Overrides) (Settings, error) {
	s := base
	for _, o := range overrides {
		s = Apply(s, o)
	}
	if err := s.Validate(); err != nil {
		return base, err
	}
	return s, nil
}

// Merge folds b into a; fields set in b win.
func Merge(a, b Overrides) Overrides {
	if b.TimeInterval != nil {
		a.TimeInterval = b.TimeInterval
	}
	if b.HourHeight != nil {
		a.HourHeight = b.HourHeight
	}
	if b.Zoom != nil {
		a.Zoom = b.Zoom
	}
	if b.TimeRange != nil {
		a.TimeRange = b.TimeRange
	}
	if b.UnavailableHours != nil {
		a.UnavailableHours = b.UnavailableHours
	}
	if b.MaxOverlapColumns != nil {
		a.MaxOverlapColumns = b.MaxOverlapColumns
	}
	if b.MinEventWidth != nil {
		a.MinEventWidth = b.MinEventWidth
	}
	if b.MinEventHeight != nil {
		a.MinEventHeight = b.MinEventHeight
	}
	if b.LongPress != nil {
		a.LongPress = b.LongPress
	}
	if b.Jitter != nil {
		a.Jitter = b.Jitter
	}
	if b.DragThreshold != nil {
		a.DragThreshold = b.DragThreshold
	}
	if b.PreviewInterval != nil {
		a.PreviewInterval = b.PreviewInterval
	}
	if b.MinCreateDuration != nil {
		a.MinCreateDuration = b.MinCreateDuration
	}
	if b.WeekStart != nil {
		a.WeekStart = b.WeekStart
	}
	if b.StartupView != nil {
		a.StartupView = b.StartupView
	}
	if b.Theme != nil {
		a.Theme = b.Theme
	}
	return a
}

// Ptr returns a pointer to v, for building Overrides literals.
func Ptr[T any](v T) *T {
	return &v
}
