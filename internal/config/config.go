package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
)

// Config is everything a config file can set: settings overrides for the
// calendar core plus host options.
type Config struct {
	Overrides Overrides

	// Sources are ICS files merged into the view.
	Sources  []string
	Database string

	// Refresh is a standard five-field cron spec for reloading sources.
	Refresh  string
	LogLevel string
	LogFile  string

	KeyBindings map[string]string // key -> action
	Colors      map[string]string

	// Path is the file the config was loaded from, if any.
	Path string
}

func DefaultConfig() *Config {
	return &Config{
		Database: defaultDatabase(),
		Refresh:  "*/15 * * * *",
		LogLevel: "info",

		KeyBindings: map[string]string{
			"q":      "quit",
			"ctrl+c": "quit",
			"?":      "help",
			"t":      "today",
			"r":      "refresh",
			"n":      "next",
			"p":      "prev",
			"l":      "next_day",
			"h":      "prev_day",
			"j":      "scroll_down",
			"k":      "scroll_up",
			"down":   "scroll_down",
			"up":     "scroll_up",
			"right":  "next_day",
			"left":   "prev_day",
			"1":      "view_day",
			"3":      "view_three_day",
			"w":      "view_week",
			"W":      "view_work_week",
			"m":      "view_month",
			"+":      "zoom_in",
			"-":      "zoom_out",
			"g":      "goto_date",
			"a":      "add_event",
			"d":      "delete_event",
			"i":      "toggle_ids",
			"esc":    "cancel",
		},

		Colors: map[string]string{
			"normal":      "default",
			"header":      "bold",
			"today":       "yellow",
			"event":       "#5f87af",
			"recurrence":  "#5f8787",
			"unavailable": "#303030",
			"preview":     "#87af5f",
			"selected":    "#d7af00",
			"invalid":     "#af5f5f",
			"status":      "reverse",
		},
	}
}

// Settings resolves the file's overrides against the defaults.
func (c *Config) Settings() (Settings, error) {
	return Resolve(DefaultSettings(), c.Overrides)
}

// Paths lists the locations LoadConfig searches, in order.
func Paths() []string {
	home, _ := os.UserHomeDir()
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" && home != "" {
		xdg = filepath.Join(home, ".config")
	}
	return []string{
		os.Getenv("TIMEGRID_CONFIG"),
		filepath.Join(xdg, "timegrid", "config.yaml"),
		filepath.Join(xdg, "timegrid", "timegridrc"),
		filepath.Join(home, ".timegridrc"),
	}
}

// LoadConfig loads the first config file found in Paths, or the defaults
// when there is none.
func LoadConfig() (*Config, error) {
	for _, path := range Paths() {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return DefaultConfig(), nil
}

// LoadFile reads one config file. Files ending in .yaml or .yml are YAML;
// everything else uses the rc syntax.
func LoadFile(path string) (*Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error loading config from %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = config.loadYAML(data)
	default:
		err = config.loadRC(data)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	if _, err := config.Settings(); err != nil {
		return nil, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	if err := config.validateHost(); err != nil {
		return nil, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	config.Path = path
	return config, nil
}

func (c *Config) validateHost() error {
	if c.Refresh == "" {
		return nil
	}
	if _, err := cron.ParseStandard(c.Refresh); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", c.Refresh, err)
	}
	return nil
}

// fileYAML mirrors the rc commands so both formats share one parser.
type fileYAML struct {
	Sources     []string          `yaml:"sources"`
	Database    string            `yaml:"database"`
	Refresh     string            `yaml:"refresh"`
	Set         map[string]string `yaml:"set"`
	Bind        map[string]string `yaml:"bind"`
	Color       map[string]string `yaml:"color"`
	Unavailable string            `yaml:"unavailable"`
}

func (c *Config) loadYAML(data []byte) error {
	var f fileYAML
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	if len(f.Sources) > 0 {
		c.Sources = expandPaths(f.Sources)
	}
	if f.Database != "" {
		c.Database = expandHome(f.Database)
	}
	if f.Refresh != "" {
		c.Refresh = f.Refresh
	}
	for name, value := range f.Set {
		if err := c.setVariable(name, value); err != nil {
			return err
		}
	}
	for key, action := range f.Bind {
		c.KeyBindings[key] = action
	}
	for element, spec := range f.Color {
		c.Colors[element] = spec
	}
	if f.Unavailable != "" {
		return c.setUnavailable(f.Unavailable)
	}
	return nil
}

func (c *Config) loadRC(data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := c.parseLine(line); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	return scanner.Err()
}

var (
	setRe         = regexp.MustCompile(`^set\s+(\w+)\s+(.+)$`)
	bindRe        = regexp.MustCompile(`^bind\s+(\S+)\s+(\S+)$`)
	colorRe       = regexp.MustCompile(`^color\s+(\w+)\s+(.+)$`)
	unavailableRe = regexp.MustCompile(`^unavailable\s+(.+)$`)
)

func (c *Config) parseLine(line string) error {
	if matches := setRe.FindStringSubmatch(line); matches != nil {
		return c.setVariable(matches[1], matches[2])
	}

	if matches := bindRe.FindStringSubmatch(line); matches != nil {
		c.KeyBindings[matches[1]] = matches[2]
		return nil
	}

	if matches := colorRe.FindStringSubmatch(line); matches != nil {
		c.Colors[matches[1]] = strings.Trim(matches[2], `"'`)
		return nil
	}

	if matches := unavailableRe.FindStringSubmatch(line); matches != nil {
		return c.setUnavailable(matches[1])
	}

	return fmt.Errorf("unknown config line: %s", line)
}

func (c *Config) setVariable(name, value string) error {
	// Remove quotes if present
	value = strings.Trim(strings.TrimSpace(value), `"'`)
	o := &c.Overrides

	switch name {
	case "source", "sources":
		c.Sources = expandPaths(strings.Split(value, ","))
	case "database":
		c.Database = expandHome(value)
	case "refresh":
		c.Refresh = value
	case "log_level":
		c.LogLevel = value
	case "log_file":
		c.LogFile = expandHome(value)

	case "time_interval":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid time_interval: %s", value)
		}
		o.TimeInterval = &n
	case "hour_height":
		return setFloat(&o.HourHeight, name, value)
	case "zoom":
		return setFloat(&o.Zoom, name, value)
	case "time_range":
		r, err := ParseTimeRange(value)
		if err != nil {
			return err
		}
		o.TimeRange = &r
	case "max_overlap_columns":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid max_overlap_columns: %s", value)
		}
		o.MaxOverlapColumns = &n
	case "min_event_width":
		return setFloat(&o.MinEventWidth, name, value)
	case "min_event_height":
		return setFloat(&o.MinEventHeight, name, value)
	case "long_press":
		return setDuration(&o.LongPress, name, value, time.Millisecond)
	case "jitter":
		return setFloat(&o.Jitter, name, value)
	case "drag_threshold":
		return setFloat(&o.DragThreshold, name, value)
	case "preview_interval":
		return setDuration(&o.PreviewInterval, name, value, time.Millisecond)
	case "min_create_duration":
		return setDuration(&o.MinCreateDuration, name, value, time.Minute)
	case "week_start", "week_start_day":
		d, err := ParseWeekday(value)
		if err != nil {
			return fmt.Errorf("invalid week_start: %s", value)
		}
		o.WeekStart = &d
	case "startup_view":
		v, err := dates.ParseViewMode(value)
		if err != nil {
			return err
		}
		o.StartupView = &v
	case "theme":
		o.Theme = &value

	default:
		return fmt.Errorf("unknown config variable: %s", name)
	}

	return nil
}

func setFloat(dst **float64, name, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %s", name, value)
	}
	*dst = &f
	return nil
}

// setDuration accepts Go durations or bare numbers in unit.
func setDuration(dst **time.Duration, name, value string, unit time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		n, err2 := strconv.Atoi(value)
		if err2 != nil {
			return fmt.Errorf("invalid %s: %s", name, value)
		}
		d = time.Duration(n) * unit
	}
	*dst = &d
	return nil
}

func (c *Config) setUnavailable(value string) error {
	u, err := ParseUnavailable(value)
	if err != nil {
		return err
	}
	c.Overrides.UnavailableHours = &u
	return nil
}

// ParseTimeRange parses "8-18".
func ParseTimeRange(value string) (calendar.TimeRange, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(value), "-")
	if !ok {
		return calendar.TimeRange{}, fmt.Errorf("invalid time_range: %s", value)
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(lo))
	end, err2 := strconv.Atoi(strings.TrimSpace(hi))
	if err1 != nil || err2 != nil {
		return calendar.TimeRange{}, fmt.Errorf("invalid time_range: %s", value)
	}
	r := calendar.TimeRange{Start: start, End: end}
	return r, r.Validate()
}

// ParseUnavailable parses "<days> <ranges>", for example
// "mon-fri 0-9,17-24" or "* 12:00-13:30". Days are names, numbers or
// ranges of either; "*" means every day.
func ParseUnavailable(value string) (calendar.UnavailableHours, error) {
	fields := strings.Fields(value)
	if len(fields) != 2 {
		return calendar.UnavailableHours{}, fmt.Errorf("invalid unavailable hours: %s", value)
	}

	var u calendar.UnavailableHours
	if fields[0] != "*" && fields[0] != "all" {
		for _, part := range strings.Split(fields[0], ",") {
			days, err := parseDays(part)
			if err != nil {
				return calendar.UnavailableHours{}, err
			}
			u.Days = append(u.Days, days...)
		}
	}
	for _, part := range strings.Split(fields[1], ",") {
		lo, hi, ok := strings.Cut(part, "-")
		if !ok {
			return calendar.UnavailableHours{}, fmt.Errorf("invalid hour range: %s", part)
		}
		start, err := parseHour(lo)
		if err != nil {
			return calendar.UnavailableHours{}, err
		}
		end, err := parseHour(hi)
		if err != nil {
			return calendar.UnavailableHours{}, err
		}
		u.Ranges = append(u.Ranges, calendar.HourRange{Start: start, End: end})
	}
	return u, u.Validate()
}

func parseDays(part string) ([]time.Weekday, error) {
	lo, hi, isRange := strings.Cut(part, "-")
	first, err := ParseWeekday(lo)
	if err != nil {
		return nil, err
	}
	if !isRange {
		return []time.Weekday{first}, nil
	}
	last, err := ParseWeekday(hi)
	if err != nil {
		return nil, err
	}
	var days []time.Weekday
	for d := first; ; d = (d + 1) % 7 {
		days = append(days, d)
		if d == last {
			break
		}
	}
	return days, nil
}

// parseHour accepts decimal hours ("9.5") or clock times ("9:30").
func parseHour(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if h, m, ok := strings.Cut(s, ":"); ok {
		hours, err1 := strconv.Atoi(h)
		minutes, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil || minutes < 0 || minutes > 59 {
			return 0, fmt.Errorf("invalid hour: %s", s)
		}
		return float64(hours) + float64(minutes)/60, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hour: %s", s)
	}
	return f, nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday, "su": time.Sunday, "0": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "mo": time.Monday, "1": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tu": time.Tuesday, "2": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "we": time.Wednesday, "3": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "th": time.Thursday, "4": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "fr": time.Friday, "5": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "sa": time.Saturday, "6": time.Saturday,
}

func ParseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	return d, nil
}

func expandPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, expandHome(p))
		}
	}
	return out
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, p[2:])
	}
	return p
}

func defaultDatabase() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "timegrid", "events.db")
}
