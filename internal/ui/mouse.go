package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/gesture"
)

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.helpVisible || m.prompt != promptNone {
		return m, nil
	}

	if msg.Action == tea.MouseActionPress {
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if m.view == dates.ViewMonth {
				return m, m.goTo(dates.Step(m.view, m.anchor, -1))
			}
			m.scrollBy(-1)
			return m, nil
		case tea.MouseButtonWheelDown:
			if m.view == dates.ViewMonth {
				return m, m.goTo(dates.Step(m.view, m.anchor, 1))
			}
			m.scrollBy(1)
			return m, nil
		}
	}

	if m.view == dates.ViewMonth {
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			return m, m.monthClick(msg.X, msg.Y)
		}
		return m, nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		return m, m.press(msg)

	case tea.MouseActionMotion:
		if m.machine.State() == gesture.Idle {
			return m, nil
		}
		m.mouseX, m.mouseY = msg.X, msg.Y
		m.track(m.machine.Move(m.point(msg.X, msg.Y)))
		return m, m.autoScrollCmd()

	case tea.MouseActionRelease:
		return m, m.release(msg.X, msg.Y)
	}
	return m, nil
}

// press starts a gesture. The bottom row of an event resizes its end,
// alt-clicking the top row resizes its start, the rest of it moves it and
// empty grid space creates a new event.
func (m *Model) press(msg tea.MouseMsg) tea.Cmd {
	sc := m.screen()
	if !sc.inGrid(msg.X, msg.Y) {
		return nil
	}
	m.machine.SetGrid(sc.grid(m.scroll))
	m.mouseX, m.mouseY = msg.X, msg.Y

	row := msg.Y - sc.gridTop + m.scroll
	kind := gesture.Create
	var target *calendar.Event
	if b, ok := hit(m.blocks(sc), msg.X, row); ok {
		ev := b.Event
		target = &ev
		switch {
		case b.H >= 2 && row == b.Top+b.H-1:
			kind = gesture.ResizeEnd
		case msg.Alt && row == b.Top:
			kind = gesture.ResizeStart
		default:
			kind = gesture.Move
		}
	}

	p := m.point(msg.X, msg.Y)
	tok, ok := m.machine.Begin(p, kind, target)
	if !ok {
		if target != nil {
			m.selectedID = target.ID
			return m.setMessage(target.Title + " cannot be changed")
		}
		return nil
	}
	if m.machine.State() == gesture.Pending {
		return tea.Tick(m.current.LongPress, func(time.Time) tea.Msg {
			return longPressMsg{token: tok}
		})
	}
	m.track(m.machine.Move(p))
	return m.autoScrollCmd()
}

func (m *Model) release(x, y int) tea.Cmd {
	if m.machine.State() == gesture.Idle {
		return nil
	}
	out := m.machine.End(m.point(x, y))
	m.update = gesture.Update{}
	m.scrollDir = gesture.ScrollStop

	switch out.Result {
	case gesture.Tap:
		if out.Kind == gesture.Create {
			m.selectedID = ""
			return nil
		}
		m.selectedID = out.Original.ID
		return m.setMessage(describe(out.Original))
	case gesture.Committed:
		m.selectedID = out.Event.ID
		verb := "Moved"
		switch out.Kind {
		case gesture.Create:
			verb = "Created"
		case gesture.ResizeStart, gesture.ResizeEnd:
			verb = "Resized"
		}
		return tea.Batch(m.loadEvents(), m.setMessage(verb+" "+describe(out.Event)))
	case gesture.Reverted:
		if out.Err != nil {
			return m.setMessage(fmt.Sprintf("Error: %v", out.Err))
		}
		return m.setMessage("Slot unavailable")
	}
	return nil
}

// monthClick opens the clicked day in the day view.
func (m *Model) monthClick(x, y int) tea.Cmd {
	ms := newMonthScreen(m.width, m.height)
	week, day, ok := ms.cell(x, y)
	if !ok {
		return nil
	}
	grid := dates.MonthGrid(m.anchor, m.current.WeekStart)
	m.view = dates.ViewDay
	return m.goTo(grid[week][day])
}

// track keeps the last preview through throttled moves and drops it when
// the gesture is abandoned.
func (m *Model) track(u gesture.Update) {
	switch {
	case u.Aborted:
		u = gesture.Update{}
	case u.Throttled && m.update.HasPreview:
		u.Preview, u.HasPreview = m.update.Preview, true
	}
	m.update = u
}

// onAutoScroll runs inside Machine.Move, on the update goroutine.
func (m *Model) onAutoScroll(req gesture.AutoScroll) {
	m.scrollDir = req.Direction
}

func (m *Model) autoScrollCmd() tea.Cmd {
	if m.scrollDir == gesture.ScrollStop || m.scrollTicking {
		return nil
	}
	m.scrollTicking = true
	return tea.Tick(autoScrollTick, func(time.Time) tea.Msg {
		return autoScrollMsg{}
	})
}

// handleAutoScroll scrolls one row and replays the pointer so the drag
// follows the content.
func (m *Model) handleAutoScroll() (tea.Model, tea.Cmd) {
	m.scrollTicking = false
	if m.machine.State() != gesture.Active || m.scrollDir == gesture.ScrollStop {
		return m, nil
	}
	prev := m.scroll
	if m.scrollDir == gesture.ScrollUp {
		m.scrollBy(-1)
	} else {
		m.scrollBy(1)
	}
	if m.scroll == prev {
		return m, nil
	}
	m.machine.SetGrid(m.screen().grid(m.scroll))
	m.track(m.machine.Move(m.point(m.mouseX, m.mouseY)))
	return m, m.autoScrollCmd()
}

func describe(ev calendar.Event) string {
	if ev.AllDay {
		return fmt.Sprintf("%s (%s, all day)", ev.Title, ev.Start.Format("Mon Jan 2"))
	}
	return fmt.Sprintf("%s (%s-%s)", ev.Title, ev.Start.Format("Mon Jan 2 15:04"), ev.End.Format("15:04"))
}
