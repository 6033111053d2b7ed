package ui

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"

	"github.com/cwarden/timegrid/internal/calendar"
)

type Styles struct {
	Normal      lipgloss.Style
	Header      lipgloss.Style
	Today       lipgloss.Style
	Gutter      lipgloss.Style
	Unavailable lipgloss.Style
	Event       lipgloss.Style
	Recurrence  lipgloss.Style
	Selected    lipgloss.Style
	Preview     lipgloss.Style
	Invalid     lipgloss.Style
	Status      lipgloss.Style
	Message     lipgloss.Style
	Help        lipgloss.Style
	Border      lipgloss.Style
}

// NewStyles builds styles from color specs. A spec is a space-separated
// list of attributes (bold, underline, reverse, faint) and at most two
// colors, foreground then background: ANSI names, 0-255 or #rrggbb. For
// block elements a single color is the background.
func NewStyles(colors map[string]string) Styles {
	get := func(name string, block bool) lipgloss.Style {
		return parseStyle(colors[name], block)
	}
	s := Styles{
		Normal:      get("normal", false),
		Header:      get("header", false),
		Today:       get("today", false),
		Gutter:      get("normal", false).Faint(true),
		Unavailable: get("unavailable", true),
		Event:       get("event", true),
		Recurrence:  get("recurrence", true),
		Selected:    get("selected", true).Bold(true),
		Preview:     get("preview", true),
		Invalid:     get("invalid", true),
		Status:      get("status", false),
		Message:     lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(220)).Background(lipgloss.ANSIColor(235)).Padding(0, 1),
		Help:        lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(241)),
		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.ANSIColor(238)).
			Padding(0, 1),
	}
	return s
}

var namedColors = map[string]int{
	"black": 0, "red": 1, "green": 2, "yellow": 3, "blue": 4, "magenta": 5, "cyan": 6, "white": 7,
	"gray": 8, "grey": 8,
}

func parseColor(spec string) (color.Color, bool) {
	spec = strings.ToLower(spec)
	if n, ok := namedColors[spec]; ok {
		return lipgloss.ANSIColor(n), true
	}
	if strings.HasPrefix(spec, "#") || (spec != "" && strings.Trim(spec, "0123456789") == "") {
		return lipgloss.Color(spec), true
	}
	return nil, false
}

func parseStyle(spec string, block bool) lipgloss.Style {
	style := lipgloss.NewStyle()
	var colors []color.Color
	for _, word := range strings.Fields(spec) {
		switch strings.ToLower(word) {
		case "default", "normal":
		case "bold":
			style = style.Bold(true)
		case "underline":
			style = style.Underline(true)
		case "reverse":
			style = style.Reverse(true)
		case "faint", "dim":
			style = style.Faint(true)
		default:
			if c, ok := parseColor(word); ok {
				colors = append(colors, c)
			}
		}
	}
	switch {
	case len(colors) >= 2:
		style = style.Foreground(colors[0]).Background(colors[1])
	case len(colors) == 1 && block:
		style = style.Background(colors[0]).Foreground(lipgloss.ANSIColor(15))
	case len(colors) == 1:
		style = style.Foreground(colors[0])
	}
	return style
}

// eventStyle picks the block style for ev. An event color overrides the
// configured background.
func (s Styles) eventStyle(ev calendar.Event, selected bool) lipgloss.Style {
	style := s.Event
	if ev.IsRecurrence || ev.IsRecurring() {
		style = s.Recurrence
	}
	if c, ok := parseColor(ev.Color); ok {
		style = style.Background(c)
	}
	if selected {
		style = s.Selected
	}
	return style
}
