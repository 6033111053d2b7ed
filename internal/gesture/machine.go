// Package gesture turns pointer input on a time grid into previews and
// committed event changes.
//
// A gesture starts Pending when the pointer goes down. If the pointer
// stays within the jitter radius until the long-press delay elapses the
// gesture becomes Active; moving further first aborts it. While Active,
// every move produces a snapped candidate and a validity flag. Release
// commits, reverts or reports a tap. Every exit returns the machine to
// Idle through the same reset path, so a failed or cancelled gesture never
// blocks the next one.
package gesture

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/layout"
)

type State int

const (
	Idle State = iota
	Pending
	Active
	// Cancelled is only held inside Cancel before the reset to Idle.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Kind int

const (
	Create Kind = iota
	Move
	ResizeEnd
	ResizeStart
)

func (k Kind) String() string {
	switch k {
	case Create:
		return "create"
	case Move:
		return "move"
	case ResizeEnd:
		return "resize"
	case ResizeStart:
		return "resize-start"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Result is how a gesture ended.
type Result int

const (
	None Result = iota
	Tap
	Committed
	Reverted
	CancelledResult
)

func (r Result) String() string {
	switch r {
	case None:
		return "none"
	case Tap:
		return "tap"
	case Committed:
		return "committed"
	case Reverted:
		return "reverted"
	case CancelledResult:
		return "cancelled"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// Token identifies one pending long-press.
type Token uint64

// Scheduler runs fn after d unless the returned cancel is called first.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) (cancel func())
}

// Direction of an edge auto-scroll request.
type Direction int

const (
	ScrollStop Direction = iota
	ScrollUp
	ScrollDown
)

// AutoScroll asks the host's scroll controller to start, adjust or stop
// scrolling. Distance is how far into the edge band the pointer is.
type AutoScroll struct {
	Direction Direction
	Distance  float64
}

// Mutation is a proposed change for the event store. Original is the zero
// Event for creates.
type Mutation struct {
	Kind     Kind
	Original calendar.Event
	Event    calendar.Event
}

// Hooks are the host collaborators. Every function is optional and every
// call is guarded: a panicking Validate counts as an unavailable slot and a
// panicking or failing Commit reverts the gesture.
type Hooks struct {
	Validate   func(time.Time) bool
	Commit     func(Mutation) error
	Haptic     func()
	AutoScroll func(AutoScroll)

	Scheduler Scheduler
	Now       func() time.Time
	NewID     func() string
	Logger    *slog.Logger
}

// Session is the state of the gesture in progress.
type Session struct {
	Kind        Kind
	Origin      calendar.Event
	HasOrigin   bool
	Start       Point
	Current     Point
	DayOffset   int
	MinuteDelta float64
	Candidate   calendar.Event
	TargetValid bool

	token     Token
	originCol int
	newID     string
}

// Update is the result of a pointer move.
type Update struct {
	State       State
	Aborted     bool
	Candidate   calendar.Event
	Preview     Rect
	HasPreview  bool
	TargetValid bool
	Throttled   bool
}

// Outcome is the result of a release or cancel.
type Outcome struct {
	Result   Result
	Kind     Kind
	Original calendar.Event
	Event    calendar.Event
	Err      error
}

var errCommitPanic = errors.New("gesture: commit hook panicked")

// Machine is a single-gesture state machine. It is not safe for concurrent
// use; hosts deliver pointer events and timer callbacks on one goroutine.
type Machine struct {
	opts  Options
	next  *Options
	hooks Hooks
	grid  Grid
	log   *slog.Logger

	state       State
	token       Token
	cancelTimer func()
	session     *Session
	scrolling   bool
	lastPreview time.Time
}

func New(opts Options, hooks Hooks) *Machine {
	if hooks.Now == nil {
		hooks.Now = time.Now
	}
	if hooks.NewID == nil {
		hooks.NewID = uuid.NewString
	}
	log := hooks.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Machine{opts: opts, hooks: hooks, log: log}
}

func (m *Machine) State() State { return m.state }

// Session returns a copy of the gesture in progress.
func (m *Machine) Session() (Session, bool) {
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// SetGrid updates the geometry used by subsequent pointer events.
func (m *Machine) SetGrid(g Grid) { m.grid = g }

func (m *Machine) Grid() Grid { return m.grid }

// SetOptions replaces the thresholds. A gesture in progress keeps the
// options it began with; the new ones apply once the machine is Idle again.
func (m *Machine) SetOptions(opts Options) {
	if m.state == Idle {
		m.opts = opts
		m.next = nil
		return
	}
	m.next = &opts
}

// Begin handles pointer-down. It is ignored unless the machine is Idle,
// and rejected when a move or resize is requested for a missing, invalid
// or locked event. The returned token is the one to pass to Elapsed when
// the host drives the long-press timer itself.
func (m *Machine) Begin(p Point, kind Kind, ev *calendar.Event) (Token, bool) {
	if m.state != Idle {
		return 0, false
	}
	if len(m.grid.Days) == 0 {
		return 0, false
	}

	s := &Session{Kind: kind, Start: p, Current: p}
	if kind != Create {
		if ev == nil {
			return 0, false
		}
		if err := ev.Validate(); err != nil {
			m.log.Debug("gesture rejected", "kind", kind, "error", err)
			return 0, false
		}
		if kind == Move && !ev.Draggable || kind != Move && !ev.Resizable {
			return 0, false
		}
		s.Origin = ev.Clone()
		s.HasOrigin = true
		s.Candidate = ev.Clone()
	}
	s.originCol = m.grid.Column(p.X)

	m.token++
	s.token = m.token
	m.session = s
	m.state = Pending

	if m.opts.LongPress <= 0 {
		m.activate()
		return s.token, true
	}
	if m.hooks.Scheduler != nil {
		tok := s.token
		m.cancelTimer = m.hooks.Scheduler.Schedule(m.opts.LongPress, func() { m.Elapsed(tok) })
	}
	return s.token, true
}

// Elapsed fires the long-press timer for tok. Stale tokens are ignored.
func (m *Machine) Elapsed(tok Token) bool {
	if m.state != Pending || m.session == nil || m.session.token != tok {
		return false
	}
	m.cancelTimer = nil
	m.activate()
	return true
}

func (m *Machine) activate() {
	m.state = Active
	if m.session.Kind == Create {
		m.session.newID = m.hooks.NewID()
	}
	m.guard("haptic", func() {
		if m.hooks.Haptic != nil {
			m.hooks.Haptic()
		}
	})
	m.recompute(m.session.Current)
}

// Move handles pointer motion.
func (m *Machine) Move(p Point) Update {
	switch m.state {
	case Pending:
		s := m.session
		if math.Hypot(p.X-s.Start.X, p.Y-s.Start.Y) > m.opts.Jitter {
			m.reset()
			return Update{State: Idle, Aborted: true}
		}
		s.Current = p
		return Update{State: Pending}
	case Active:
	default:
		return Update{State: m.state}
	}

	m.recompute(p)
	m.autoScroll(p)

	s := m.session
	u := Update{
		State:       Active,
		Candidate:   s.Candidate,
		TargetValid: s.TargetValid,
	}
	now := m.hooks.Now()
	if m.opts.PreviewInterval > 0 && !m.lastPreview.IsZero() && now.Sub(m.lastPreview) < m.opts.PreviewInterval {
		u.Throttled = true
		return u
	}
	m.lastPreview = now
	u.Preview, u.HasPreview = m.preview(s.Candidate)
	return u
}

// End handles release. The result is computed from p, not from the last
// preview.
func (m *Machine) End(p Point) Outcome {
	switch m.state {
	case Idle:
		return Outcome{Result: None}
	case Pending:
		out := Outcome{Result: Tap, Kind: m.session.Kind, Original: m.session.Origin}
		m.reset()
		return out
	}

	m.recompute(p)
	s := m.session
	out := Outcome{Kind: s.Kind, Original: s.Origin}
	defer m.reset()

	if math.Abs(p.X-s.Start.X) < m.opts.Threshold && math.Abs(p.Y-s.Start.Y) < m.opts.Threshold {
		out.Result = Tap
		return out
	}
	if !s.TargetValid {
		out.Result = Reverted
		return out
	}

	mut := Mutation{Kind: s.Kind, Original: s.Origin, Event: s.Candidate.Clone()}
	if err := m.commit(mut); err != nil {
		m.log.Warn("gesture commit failed", "kind", s.Kind, "id", mut.Event.ID, "error", err)
		out.Result = Reverted
		out.Err = err
		return out
	}
	out.Result = Committed
	out.Event = mut.Event
	return out
}

// Cancel abandons the gesture without committing.
func (m *Machine) Cancel() Outcome {
	if m.state == Idle {
		return Outcome{Result: None}
	}
	out := Outcome{Result: CancelledResult, Kind: m.session.Kind, Original: m.session.Origin}
	m.state = Cancelled
	m.reset()
	return out
}

func (m *Machine) reset() {
	if m.cancelTimer != nil {
		m.cancelTimer()
		m.cancelTimer = nil
	}
	if m.scrolling {
		m.scrolling = false
		m.emitScroll(AutoScroll{Direction: ScrollStop})
	}
	m.session = nil
	m.lastPreview = time.Time{}
	m.state = Idle
	if m.next != nil {
		m.opts = *m.next
		m.next = nil
	}
}

func (m *Machine) recompute(p Point) {
	s := m.session
	s.Current = p
	cand, dayOffset, delta := m.candidate(s, p)
	s.Candidate = cand
	s.DayOffset = dayOffset
	s.MinuteDelta = delta
	s.TargetValid = m.valid(s.Kind, cand)
}

func (m *Machine) candidate(s *Session, p Point) (calendar.Event, int, float64) {
	interval := m.opts.intervalMinutes()
	raw := (p.Y - s.Start.Y) * m.opts.MinutesPerPixel()

	switch s.Kind {
	case Create:
		return m.createCandidate(s, p), 0, raw

	case Move:
		orig := dates.MinutesFromMidnight(s.Origin.Start)
		delta := Snap(orig+raw, interval) - orig
		dayOffset := m.grid.Column(p.X) - s.originCol
		start := s.Origin.Start.AddDate(0, 0, dayOffset).Add(minutesDuration(delta))
		return s.Origin.WithTimes(start, start.Add(s.Origin.Duration())), dayOffset, delta

	case ResizeEnd:
		orig := dates.MinutesFromMidnight(s.Origin.End)
		delta := Snap(orig+raw, interval) - orig
		end := s.Origin.End.Add(minutesDuration(delta))
		if floor := s.Origin.Start.Add(minutesDuration(interval)); end.Before(floor) {
			end = floor
		}
		return s.Origin.WithTimes(s.Origin.Start, end), 0, delta

	case ResizeStart:
		orig := dates.MinutesFromMidnight(s.Origin.Start)
		delta := Snap(orig+raw, interval) - orig
		start := s.Origin.Start.Add(minutesDuration(delta))
		if ceil := s.Origin.End.Add(-minutesDuration(interval)); start.After(ceil) {
			start = ceil
		}
		return s.Origin.WithTimes(start, s.Origin.End), 0, delta
	}
	return s.Candidate, 0, 0
}

// createCandidate orders the two pointer positions so an upward drag never
// produces an inverted interval.
func (m *Machine) createCandidate(s *Session, p Point) calendar.Event {
	tr := m.opts.timeRange()
	interval := m.opts.intervalMinutes()
	lo, hi := float64(tr.StartMinutes()), float64(tr.EndMinutes())
	clamp := func(v float64) float64 { return math.Max(lo, math.Min(hi, v)) }

	a := clamp(Snap(m.opts.MinutesAt(s.Start.Y), interval))
	b := clamp(Snap(m.opts.MinutesAt(p.Y), interval))
	start, end := math.Min(a, b), math.Max(a, b)

	minCreate := m.opts.MinCreate.Minutes()
	if minCreate <= 0 {
		minCreate = interval
	}
	if end-start < minCreate {
		end = start + minCreate
		if end > hi {
			end = hi
			start = math.Max(lo, end-minCreate)
		}
	}

	day := m.grid.Days[s.originCol]
	ev := calendar.NewEvent(s.newID, "",
		dates.AtMinutes(day, int(start)), dates.AtMinutes(day, int(end)))
	return ev
}

// valid checks that the candidate stays inside the visible days and hours
// and that the host accepts the edge being moved.
func (m *Machine) valid(kind Kind, ev calendar.Event) bool {
	col := m.grid.Index(ev.Start)
	if col < 0 {
		return false
	}
	tr := m.opts.timeRange()
	day := m.grid.Days[col]
	if ev.Start.Before(dates.AtMinutes(day, tr.StartMinutes())) || !ev.Start.Before(dates.AtMinutes(day, tr.EndMinutes())) {
		return false
	}
	// A range that ends at midnight lets events run into the next day.
	if tr.End < 24 && ev.End.After(dates.AtMinutes(day, tr.EndMinutes())) {
		return false
	}
	if !ev.End.After(ev.Start) {
		return false
	}

	probe := ev.Start
	if kind == ResizeEnd {
		probe = ev.End.Add(-time.Minute)
	}
	return m.slotAvailable(probe)
}

func (m *Machine) slotAvailable(t time.Time) (ok bool) {
	if m.hooks.Validate == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("slot validator panicked", "time", t, "panic", r)
			ok = false
		}
	}()
	return m.hooks.Validate(t)
}

func (m *Machine) commit(mut Mutation) (err error) {
	if m.hooks.Commit == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errCommitPanic, r)
		}
	}()
	return m.hooks.Commit(mut)
}

func (m *Machine) preview(ev calendar.Event) (Rect, bool) {
	col := m.grid.Index(ev.Start)
	if col < 0 {
		return Rect{}, false
	}
	ext, ok := layout.Vertical(ev.Start, ev.End, m.grid.Days[col], m.opts.layout())
	if !ok {
		return Rect{}, false
	}
	return Rect{
		Column: col,
		Left:   float64(col) * m.grid.ColumnWidth,
		Top:    ext.Top,
		Width:  m.grid.ColumnWidth,
		Height: ext.Height,
	}, true
}

// autoScroll signals while the pointer is in the top or bottom quarter of
// the viewport and stops once it is back in the middle.
func (m *Machine) autoScroll(p Point) {
	h := m.grid.ViewportHeight
	if h <= 0 {
		return
	}
	y := p.Y - m.grid.ScrollOffset
	band := h / 4

	var req AutoScroll
	switch {
	case y < band:
		req = AutoScroll{Direction: ScrollUp, Distance: band - y}
	case y > h-band:
		req = AutoScroll{Direction: ScrollDown, Distance: y - (h - band)}
	default:
		if m.scrolling {
			m.scrolling = false
			m.emitScroll(AutoScroll{Direction: ScrollStop})
		}
		return
	}
	m.scrolling = true
	m.emitScroll(req)
}

func (m *Machine) emitScroll(req AutoScroll) {
	m.guard("autoscroll", func() {
		if m.hooks.AutoScroll != nil {
			m.hooks.AutoScroll(req)
		}
	})
}

func (m *Machine) guard(hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("gesture hook panicked", "hook", hook, "panic", r)
		}
	}()
	fn()
}
