package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/cwarden/timegrid/internal/config"
	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/gesture"
)

const (
	minZoom     = 0.5
	maxZoom     = 4
	workdayHour = 8
)

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}

	action := m.bindings[msg.String()]
	if m.helpVisible && action != "quit" {
		// Any key closes the help overlay.
		m.helpVisible = false
		return m, nil
	}

	switch action {
	case "quit":
		m.machine.Cancel()
		return m, tea.Quit

	case "help":
		m.helpVisible = true
		return m, nil

	case "cancel":
		if m.machine.State() != gesture.Idle {
			m.machine.Cancel()
			m.update = gesture.Update{}
			return m, m.setMessage("Cancelled")
		}
		m.selectedID = ""
		return m, nil

	case "refresh":
		return m, tea.Batch(m.loadEvents(), m.setMessage("Refreshed"))

	case "today":
		return m, m.goTo(m.now())

	case "next":
		return m, m.goTo(dates.Step(m.view, m.anchor, 1))

	case "prev":
		return m, m.goTo(dates.Step(m.view, m.anchor, -1))

	case "next_day":
		return m, m.goTo(dates.AddDays(m.anchor, 1))

	case "prev_day":
		return m, m.goTo(dates.AddDays(m.anchor, -1))

	case "scroll_down":
		m.scrollBy(1)
		return m, nil

	case "scroll_up":
		m.scrollBy(-1)
		return m, nil

	case "view_day":
		return m, m.setView(dates.ViewDay)
	case "view_three_day":
		return m, m.setView(dates.ViewThreeDay)
	case "view_week":
		return m, m.setView(dates.ViewWeek)
	case "view_work_week":
		return m, m.setView(dates.ViewWorkWeek)
	case "view_month":
		return m, m.setView(dates.ViewMonth)

	case "zoom_in":
		return m, m.zoom(min(m.current.Zoom*2, maxZoom))

	case "zoom_out":
		return m, m.zoom(max(m.current.Zoom/2, minZoom))

	case "goto_date":
		m.openPrompt(promptGoto)
		return m, nil

	case "add_event":
		m.openPrompt(promptAdd)
		return m, nil

	case "delete_event":
		return m, m.deleteSelected()

	case "toggle_ids":
		m.showIDs = !m.showIDs
		if m.showIDs {
			return m, m.setMessage("Showing event IDs")
		}
		return m, m.setMessage("Hiding event IDs")
	}
	return m, nil
}

// goTo moves the anchor and reloads. Gestures do not survive a page change.
func (m *Model) goTo(day time.Time) tea.Cmd {
	m.machine.Cancel()
	m.update = gesture.Update{}
	m.anchor = dates.StartOfDay(day)
	return m.loadEvents()
}

func (m *Model) setView(v dates.ViewMode) tea.Cmd {
	if v == m.view {
		return nil
	}
	m.machine.Cancel()
	m.update = gesture.Update{}
	m.view = v
	m.clampScroll()
	return tea.Batch(m.loadEvents(), m.setMessage(v.String()+" view"))
}

func (m *Model) zoom(z float64) tea.Cmd {
	if z == m.current.Zoom {
		return nil
	}
	// The rows under a drag change scale, so the drag ends here.
	m.machine.Cancel()
	m.update = gesture.Update{}
	// Keep the row at the top of the viewport on screen.
	top := rowMinutes(m.current, m.scroll)
	if err := m.settings.Update(config.Overrides{Zoom: config.Ptr(z)}); err != nil {
		return m.setMessage(fmt.Sprintf("Error: %v", err))
	}
	m.applySettings(m.settings.Get())
	m.scroll = rowOf(m.current, dates.AtMinutes(m.anchor, top))
	m.clampScroll()
	return m.setMessage(fmt.Sprintf("Zoom %gx", z))
}

func (m *Model) scrollBy(rows int) {
	m.scroll += rows
	m.clampScroll()
}

// clampScroll keeps the viewport inside the time range.
func (m *Model) clampScroll() {
	limit := max(0, totalRows(m.current)-m.screen().gridRows)
	m.scroll = max(0, min(m.scroll, limit))
}

func (m *Model) scrollToWorkday() {
	m.scroll = rowOf(m.current, dates.AtMinutes(m.anchor, workdayHour*60))
	m.clampScroll()
}

func (m *Model) openPrompt(kind promptKind) {
	m.prompt = kind
	m.input = m.input[:0]
	m.cursor = 0
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.input = m.input[:0]
	m.cursor = 0
}

func (m *Model) promptLabel() string {
	switch m.prompt {
	case promptGoto:
		return "Go to: "
	case promptAdd:
		return "Add: "
	}
	return ""
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.closePrompt()
		return m, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(string(m.input))
		kind := m.prompt
		m.closePrompt()
		if text == "" {
			return m, nil
		}
		if kind == promptGoto {
			return m, m.submitGoto(text)
		}
		return m, m.submitAdd(text)
	case tea.KeyBackspace:
		if m.cursor > 0 {
			m.input = slices.Delete(m.input, m.cursor-1, m.cursor)
			m.cursor--
		}
	case tea.KeyDelete:
		if m.cursor < len(m.input) {
			m.input = slices.Delete(m.input, m.cursor, m.cursor+1)
		}
	case tea.KeyLeft:
		m.cursor = max(0, m.cursor-1)
	case tea.KeyRight:
		m.cursor = min(len(m.input), m.cursor+1)
	case tea.KeyHome, tea.KeyCtrlA:
		m.cursor = 0
	case tea.KeyEnd, tea.KeyCtrlE:
		m.cursor = len(m.input)
	case tea.KeySpace:
		m.insert(' ')
	case tea.KeyRunes:
		m.insert(msg.Runes...)
	}
	return m, nil
}

func (m *Model) insert(r ...rune) {
	m.input = slices.Insert(m.input, m.cursor, r...)
	m.cursor += len(r)
}

func (m *Model) submitGoto(text string) tea.Cmd {
	m.parser.SetNow(m.now())
	day, err := m.parser.ParseDate(text)
	if err != nil {
		return m.setMessage(fmt.Sprintf("Invalid date: %v", err))
	}
	return tea.Batch(m.goTo(day), m.setMessage("Showing "+day.Format("Mon Jan 2, 2006")))
}

// submitAdd stores the event described by a quick-add phrase such as
// "tomorrow 2pm-3pm Review".
func (m *Model) submitAdd(text string) tea.Cmd {
	m.parser.SetNow(m.now())
	res, err := m.parser.Parse(text)
	if err != nil {
		return m.setMessage(fmt.Sprintf("Error: %v", err))
	}
	ev, err := res.Event(uuid.NewString(), m.current.MinCreateDuration)
	if err != nil {
		return m.setMessage(fmt.Sprintf("Error: %v", err))
	}
	if !m.slotAvailable(ev.Start) {
		return m.setMessage("Slot unavailable: " + ev.Start.Format("Mon 15:04"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	if err := m.store.Put(ctx, ev); err != nil {
		return m.setMessage(fmt.Sprintf("Error: %v", err))
	}
	m.logger.Info("event added", "id", ev.ID, "start", ev.Start, "end", ev.End)
	m.selectedID = ev.ID
	m.anchor = dates.StartOfDay(ev.Start)
	return tea.Batch(m.loadEvents(), m.setMessage(fmt.Sprintf("Added %q %s", ev.Title, ev.Start.Format("Mon Jan 2 15:04"))))
}
