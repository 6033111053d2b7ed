// Package ui is the terminal front end: a bubbletea program that renders
// the time-grid and month views and turns mouse drags into gestures.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robfig/cron/v3"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/config"
	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/gesture"
	"github.com/cwarden/timegrid/internal/parser"
	"github.com/cwarden/timegrid/internal/recurrence"
	"github.com/cwarden/timegrid/internal/source"
	"github.com/cwarden/timegrid/internal/store"
)

const (
	loadTimeout    = 10 * time.Second
	messageTimeout = 4 * time.Second
	autoScrollTick = 80 * time.Millisecond
)

type promptKind int

const (
	promptNone promptKind = iota
	promptGoto
	promptAdd
)

// Options wires the model to its collaborators. Source is read for
// display; Store receives every change. Config and Settings are required.
type Options struct {
	Config   *config.Config
	Settings *config.Store
	Source   source.Source
	Store    store.Store
	Logger   *slog.Logger
	Now      func() time.Time

	View dates.ViewMode
	Date time.Time
}

type Model struct {
	cfg      *config.Config
	cfgPath  string // absolute; read from the watcher goroutine
	settings *config.Store
	current  config.Settings
	src      source.Source
	store    store.Store
	parser   *parser.Parser
	machine  *gesture.Machine
	logger   *slog.Logger
	now      func() time.Time
	styles   Styles
	bindings map[string]string

	notify      chan tea.Msg
	cron        *cron.Cron
	unsubscribe func()

	view          dates.ViewMode
	anchor        time.Time
	scroll        int
	width, height int

	events     []calendar.Event
	loadErr    error
	generation int

	selectedID  string
	showIDs     bool
	helpVisible bool
	message     string
	messageGen  int

	prompt promptKind
	input  []rune
	cursor int

	// Pointer state for the gesture in progress.
	mouseX, mouseY int
	update         gesture.Update
	scrollDir      gesture.Direction
	scrollTicking  bool
}

type (
	eventsLoadedMsg struct {
		generation int
		events     []calendar.Event
		err        error
	}
	sourceChangedMsg  struct{ change source.Change }
	refreshMsg        struct{}
	settingsMsg       struct{ settings config.Settings }
	configMsg         struct{ cfg *config.Config }
	errorMsg          struct{ err error }
	longPressMsg      struct{ token gesture.Token }
	autoScrollMsg     struct{}
	messageTimeoutMsg struct{ generation int }
)

func New(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	settings := opts.Settings
	if settings == nil {
		s, err := cfg.Settings()
		if err != nil {
			s = config.DefaultSettings()
		}
		settings = config.NewStore(s)
	}
	st := opts.Store
	if st == nil {
		st = store.NewMemory()
	}
	src := opts.Source
	if src == nil {
		src = st
	}
	anchor := opts.Date
	if anchor.IsZero() {
		anchor = now()
	}

	m := &Model{
		cfg:      cfg,
		cfgPath:  absPath(cfg.Path),
		settings: settings,
		current:  settings.Get(),
		src:      src,
		store:    st,
		parser:   parser.New(),
		logger:   logger,
		now:      now,
		styles:   NewStyles(cfg.Colors),
		bindings: cfg.KeyBindings,
		notify:   make(chan tea.Msg, 16),
		view:     opts.View,
		anchor:   dates.StartOfDay(anchor),
	}
	m.machine = gesture.New(gestureOptions(m.current), gesture.Hooks{
		Validate:   m.slotAvailable,
		Commit:     m.commit,
		AutoScroll: m.onAutoScroll,
		Now:        now,
		Logger:     logger,
	})
	m.unsubscribe = settings.Subscribe(func(s config.Settings) {
		m.Notify(settingsMsg{settings: s})
	})
	m.scrollToWorkday()
	return m
}

// Start schedules the periodic refresh. It is separate from New so tests
// can build models without background goroutines.
func (m *Model) Start() error {
	if m.cfg.Refresh == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(m.cfg.Refresh, func() { m.Notify(refreshMsg{}) }); err != nil {
		return fmt.Errorf("schedule refresh %q: %w", m.cfg.Refresh, err)
	}
	c.Start()
	m.cron = c
	return nil
}

// Stop ends the refresh schedule and the settings subscription.
func (m *Model) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
		m.cron = nil
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Notify queues msg for the program. It is safe to call from any goroutine
// and drops the message when the queue is full.
func (m *Model) Notify(msg tea.Msg) {
	select {
	case m.notify <- msg:
	default:
		m.logger.Warn("notification dropped", "type", fmt.Sprintf("%T", msg))
	}
}

// HandleChange is the file watcher callback. Changes to the loaded config
// file reload it; anything else is treated as a source change.
func (m *Model) HandleChange(c source.Change) {
	if m.cfgPath != "" && absPath(c.Path) == m.cfgPath {
		m.reloadConfig()
		return
	}
	m.Notify(sourceChangedMsg{change: c})
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func (m *Model) reloadConfig() {
	cfg, err := config.LoadFile(m.cfgPath)
	if err != nil {
		m.Notify(errorMsg{err: err})
		return
	}
	s, err := cfg.Settings()
	if err == nil {
		err = m.settings.Replace(s)
	}
	if err != nil {
		m.Notify(errorMsg{err: err})
		return
	}
	m.Notify(configMsg{cfg: cfg})
}

func (m *Model) waitForNotification() tea.Cmd {
	return func() tea.Msg {
		return <-m.notify
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadEvents(), m.waitForNotification())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case longPressMsg:
		if m.machine.Elapsed(msg.token) {
			m.track(m.machine.Move(m.point(m.mouseX, m.mouseY)))
		}
		return m, m.autoScrollCmd()

	case autoScrollMsg:
		return m.handleAutoScroll()

	case eventsLoadedMsg:
		if msg.generation != m.generation {
			return m, nil
		}
		m.events = msg.events
		m.loadErr = msg.err
		if msg.err != nil {
			m.logger.Warn("loading events", "error", msg.err)
			if len(msg.events) == 0 {
				return m, m.setMessage(fmt.Sprintf("Error: %v", msg.err))
			}
		}
		return m, nil

	case sourceChangedMsg:
		m.logger.Info("source changed", "path", msg.change.Path)
		return m, tea.Batch(m.loadEvents(), m.setMessage("Reloaded "+filepath.Base(msg.change.Path)), m.waitForNotification())

	case refreshMsg:
		return m, tea.Batch(m.loadEvents(), m.waitForNotification())

	case settingsMsg:
		m.applySettings(msg.settings)
		return m, tea.Batch(m.loadEvents(), m.waitForNotification())

	case configMsg:
		m.cfg = msg.cfg
		m.bindings = msg.cfg.KeyBindings
		m.styles = NewStyles(msg.cfg.Colors)
		return m, tea.Batch(m.setMessage("Configuration reloaded"), m.waitForNotification())

	case errorMsg:
		return m, tea.Batch(m.setMessage(fmt.Sprintf("Error: %v", msg.err)), m.waitForNotification())

	case messageTimeoutMsg:
		if msg.generation == m.messageGen {
			m.message = ""
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) applySettings(s config.Settings) {
	m.current = s
	// A gesture in progress keeps its thresholds until it ends.
	m.machine.SetOptions(gestureOptions(s))
	m.clampScroll()
}

// visibleDays is the range of the current view.
func (m *Model) visibleDays() dates.Range {
	return dates.ViewRange(m.view, m.anchor, m.current.WeekStart)
}

func (m *Model) screen() screen {
	return newScreen(m.width, m.height, m.visibleDays().Days)
}

func (m *Model) point(x, y int) gesture.Point {
	return m.screen().point(x, y, m.scroll)
}

// loadEvents fetches the visible range in the background. Results from an
// older request are discarded.
func (m *Model) loadEvents() tea.Cmd {
	m.generation++
	gen := m.generation
	r := m.visibleDays()
	from, to := r.First(), r.End()
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		events, err := src.Events(ctx, from, to)
		return eventsLoadedMsg{generation: gen, events: events, err: err}
	}
}

func (m *Model) setMessage(text string) tea.Cmd {
	m.message = text
	m.messageGen++
	gen := m.messageGen
	return tea.Tick(messageTimeout, func(time.Time) tea.Msg {
		return messageTimeoutMsg{generation: gen}
	})
}

// findEvent looks up a loaded event or an occurrence of one in the
// visible range.
func (m *Model) findEvent(id string) (calendar.Event, bool) {
	for _, ev := range m.events {
		if ev.ID == id {
			return ev, true
		}
	}
	r := m.visibleDays()
	for _, ev := range recurrence.ExpandAll(m.events, r.First(), r.Last()) {
		if ev.ID == id {
			return ev, true
		}
	}
	return calendar.Event{}, false
}

func (m *Model) slotAvailable(t time.Time) bool {
	return m.current.UnavailableHours.SlotAvailable(t)
}

// commit stores a finished gesture. Moving or resizing one instance of a
// series shifts the whole series.
func (m *Model) commit(mut gesture.Mutation) error {
	ev := mut.Event
	if mut.Kind == gesture.Create && ev.Title == "" {
		ev.Title = "New event"
	}
	if ev.IsRecurrence {
		master, ok := m.findEvent(ev.OriginalID)
		if !ok {
			return fmt.Errorf("series %s is not loaded", ev.OriginalID)
		}
		ds := ev.Start.Sub(mut.Original.Start)
		de := ev.End.Sub(mut.Original.End)
		ev = master.WithTimes(master.Start.Add(ds), master.End.Add(de))
	}
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	if err := m.store.Put(ctx, ev); err != nil {
		return err
	}
	m.logger.Info("event saved", "kind", mut.Kind, "id", ev.ID, "start", ev.Start, "end", ev.End)
	m.replaceLocal(ev)
	return nil
}

// replaceLocal updates the loaded events until the reload arrives.
func (m *Model) replaceLocal(ev calendar.Event) {
	for i := range m.events {
		if m.events[i].ID == ev.ID {
			m.events[i] = ev
			return
		}
	}
	m.events = append(m.events, ev)
}

func (m *Model) deleteSelected() tea.Cmd {
	ev, ok := m.findEvent(m.selectedID)
	if !ok {
		return m.setMessage("No event selected")
	}
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	if ev.IsRecurrence {
		master, ok := m.findEvent(ev.OriginalID)
		if !ok || master.Recurrence == nil {
			return m.setMessage("Series not loaded")
		}
		master = master.Clone()
		master.Recurrence.Exceptions = append(master.Recurrence.Exceptions, ev.Start)
		if err := m.store.Put(ctx, master); err != nil {
			return m.setMessage(fmt.Sprintf("Error: %v", err))
		}
		m.selectedID = ""
		return tea.Batch(m.loadEvents(), m.setMessage("Skipped one occurrence of "+master.Title))
	}

	err := m.store.Delete(ctx, ev.ID)
	switch {
	case errors.Is(err, store.ErrNotFound) && ev.Source != "":
		return m.setMessage(fmt.Sprintf("%q comes from %s and cannot be deleted here", ev.Title, ev.Source))
	case err != nil:
		return m.setMessage(fmt.Sprintf("Error: %v", err))
	}
	m.selectedID = ""
	return tea.Batch(m.loadEvents(), m.setMessage("Deleted "+ev.Title))
}
