package ui

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/gesture"
	"github.com/cwarden/timegrid/internal/layout"
)

// Layer depths, bottom to top.
const (
	zGrid = iota
	zEvents
	zPreview = 1000
	zChrome  = 2000
	zHelp    = 3000
)

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var layers []*lipgloss.Layer
	if m.view == dates.ViewMonth {
		layers = m.monthLayers()
	} else {
		sc := m.screen()
		layers = append(layers, m.headerLayers(sc)...)
		layers = append(layers, m.gridLayer(sc))
		layers = append(layers, m.eventLayers(sc)...)
		if l := m.previewLayer(sc); l != nil {
			layers = append(layers, l)
		}
	}
	layers = append(layers, m.statusLayer())
	if m.helpVisible {
		layers = append(layers, m.helpLayer())
	}
	return lipgloss.NewCanvas(layers...).Render()
}

func fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	s = truncate.StringWithTail(s, uint(w), "…")
	if pad := w - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func (m *Model) title() string {
	r := m.visibleDays()
	first, last := r.First(), r.Last()
	switch {
	case m.view == dates.ViewMonth:
		return m.anchor.Format("January 2006")
	case dates.IsSameDay(first, last):
		return first.Format("Monday, January 2, 2006")
	case first.Year() != last.Year():
		return first.Format("Jan 2, 2006") + " - " + last.Format("Jan 2, 2006")
	}
	return first.Format("Jan 2") + " - " + last.Format("Jan 2, 2006")
}

// headerLayers draws the title, the day names and the all-day strip.
func (m *Model) headerLayers(sc screen) []*lipgloss.Layer {
	layers := []*lipgloss.Layer{
		lipgloss.NewLayer(m.styles.Header.Render(m.title())).X(0).Y(0).Z(zChrome),
	}
	today := m.now()
	days := layout.LayoutDays(m.events, sc.days, layoutOptions(m.current, sc))
	for col, day := range days {
		x := sc.columnX(col)
		style := m.styles.Header
		if dates.IsSameDay(day.Date, today) {
			style = m.styles.Today.Bold(true)
		}
		layers = append(layers, lipgloss.NewLayer(style.Render(fit(dates.FormatDayHeader(day.Date), sc.trackWidth()))).X(x).Y(1).Z(zChrome))

		if len(day.AllDay) == 0 {
			continue
		}
		ev := day.AllDay[0]
		text := ev.Title
		if n := len(day.AllDay) - 1; n > 0 {
			text = fmt.Sprintf("%s +%d", text, n)
		}
		style = m.styles.eventStyle(ev, ev.ID == m.selectedID)
		layers = append(layers, lipgloss.NewLayer(style.Render(fit(text, sc.trackWidth()))).X(x).Y(2).Z(zChrome))
	}
	return layers
}

// gridLayer draws the gutter, the unavailable hours and the column
// separators for the visible rows.
func (m *Model) gridLayer(sc screen) *lipgloss.Layer {
	now := m.now()
	nowRow := -1
	if sc.days[0].Compare(now) <= 0 && now.Before(dates.AddDays(sc.days[len(sc.days)-1], 1)) {
		nowRow = rowOf(m.current, now)
	}
	blank := strings.Repeat(" ", sc.trackWidth())

	total := totalRows(m.current)
	lines := make([]string, 0, sc.gridRows)
	for r := range sc.gridRows {
		row := m.scroll + r
		if row >= total {
			lines = append(lines, "")
			continue
		}
		minutes := rowMinutes(m.current, row)
		label := strings.Repeat(" ", gutterWidth)
		if r == 0 || minutes%60 == 0 || rowMinutes(m.current, row-1)/60 != minutes/60 {
			label = fit(dates.FormatClock(minutes), gutterWidth)
		}
		gutter := m.styles.Gutter
		if row == nowRow {
			gutter = m.styles.Today
		}

		var b strings.Builder
		b.WriteString(gutter.Render(label))
		for _, day := range sc.days {
			slot := dates.AtMinutes(day, minutes)
			if m.current.UnavailableHours.SlotAvailable(slot) {
				b.WriteString(blank)
			} else {
				b.WriteString(m.styles.Unavailable.Render(blank))
			}
			b.WriteString(m.styles.Gutter.Render("│"))
		}
		lines = append(lines, b.String())
	}
	return lipgloss.NewLayer(strings.Join(lines, "\n")).X(0).Y(sc.gridTop).Z(zGrid)
}

// blocks lays out the visible days in cells, in drawing order.
func (m *Model) blocks(sc screen) []block {
	var out []block
	for col, day := range layout.LayoutDays(m.events, sc.days, layoutOptions(m.current, sc)) {
		for _, p := range day.Events {
			out = append(out, toBlock(p, col, sc))
		}
	}
	// The selected event is drawn last so it is never hidden.
	slices.SortStableFunc(out, func(a, b block) int {
		switch {
		case a.Event.ID == m.selectedID && b.Event.ID != m.selectedID:
			return 1
		case b.Event.ID == m.selectedID && a.Event.ID != m.selectedID:
			return -1
		}
		return 0
	})
	return out
}

func (m *Model) eventLayers(sc screen) []*lipgloss.Layer {
	var layers []*lipgloss.Layer
	for i, b := range m.blocks(sc) {
		top := max(b.Top, m.scroll)
		bottom := min(b.Top+b.H, m.scroll+sc.gridRows)
		if bottom <= top {
			continue
		}
		style := m.styles.eventStyle(b.Event, b.Event.ID == m.selectedID)
		text := m.blockText(b.Event, b.W, bottom-top, top > b.Top)
		rendered := style.Width(b.W).Height(bottom - top).Render(text)
		layers = append(layers, lipgloss.NewLayer(rendered).X(b.X).Y(sc.gridTop+top-m.scroll).Z(zEvents+i))
	}
	return layers
}

// blockText fills at most h lines of w cells. A block whose start is
// scrolled away shows a marker instead of its start time.
func (m *Model) blockText(ev calendar.Event, w, h int, clipped bool) string {
	title := ev.Title
	if m.showIDs {
		title = fmt.Sprintf("[%s] %s", ev.ID, title)
	}
	head := ev.Start.Format("15:04")
	if clipped {
		head = "↑"
	}

	var lines []string
	switch {
	case w < 12:
		lines = strings.Split(wordwrap.String(title, w), "\n")
	case h == 1:
		lines = []string{head + " " + title}
	default:
		lines = append([]string{head + "-" + ev.End.Format("15:04")}, strings.Split(wordwrap.String(title, w), "\n")...)
	}
	if len(lines) > h {
		lines = lines[:h]
	}
	for i, line := range lines {
		lines[i] = truncate.StringWithTail(line, uint(w), "…")
	}
	return strings.Join(lines, "\n")
}

// previewLayer draws the candidate of the active gesture.
func (m *Model) previewLayer(sc screen) *lipgloss.Layer {
	u := m.update
	if u.State != gesture.Active || !u.HasPreview {
		return nil
	}
	top := int(math.Round(u.Preview.Top))
	h := max(1, int(math.Round(u.Preview.Top+u.Preview.Height))-top)
	vtop := max(top, m.scroll)
	vbottom := min(top+h, m.scroll+sc.gridRows)
	if vbottom <= vtop {
		return nil
	}

	style := m.styles.Preview
	label := u.Candidate.Start.Format("15:04") + "-" + u.Candidate.End.Format("15:04")
	if !u.TargetValid {
		style = m.styles.Invalid
		label = "unavailable"
	}
	w := sc.trackWidth()
	rendered := style.Width(w).Height(vbottom - vtop).Render(truncate.StringWithTail(label, uint(w), "…"))
	return lipgloss.NewLayer(rendered).X(sc.columnX(u.Preview.Column)).Y(sc.gridTop + vtop - m.scroll).Z(zPreview)
}

func (m *Model) statusLayer() *lipgloss.Layer {
	y := m.height - statusRows
	if m.prompt != promptNone {
		input := string(m.input[:m.cursor]) + "█" + string(m.input[m.cursor:])
		line := m.styles.Status.Render(fit(m.promptLabel()+input, m.width))
		return lipgloss.NewLayer(line).X(0).Y(y).Z(zChrome)
	}

	left := " " + m.anchor.Format("Jan 2, 2006")
	switch s, ok := m.machine.Session(); {
	case ok && m.machine.State() == gesture.Active:
		left = fmt.Sprintf(" %s %s", s.Kind, describe(s.Candidate))
	case m.selectedID != "":
		if ev, found := m.findEvent(m.selectedID); found {
			left = " " + describe(ev)
		}
	}

	right := m.styles.Help.Render("a:add  g:goto  d:delete  1/3/w/m:view  +/-:zoom  ?:help  q:quit")
	if m.message != "" {
		right = m.styles.Message.Render(m.message)
	}
	width := max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	line := m.styles.Status.Render(left+strings.Repeat(" ", width)) + right
	return lipgloss.NewLayer(line).X(0).Y(y).Z(zChrome)
}

// helpLayer lists the key bindings grouped by action.
func (m *Model) helpLayer() *lipgloss.Layer {
	keys := make(map[string][]string)
	for key, action := range m.bindings {
		keys[action] = append(keys[action], key)
	}
	actions := make([]string, 0, len(keys))
	for action := range keys {
		actions = append(actions, action)
	}
	slices.Sort(actions)

	lines := []string{m.styles.Header.Render("timegrid"), ""}
	for _, action := range actions {
		k := keys[action]
		slices.Sort(k)
		lines = append(lines, m.styles.Help.Render(fmt.Sprintf("  %-12s %s", strings.Join(k, "/"), strings.ReplaceAll(action, "_", " "))))
	}
	lines = append(lines,
		"",
		m.styles.Normal.Render("Mouse:"),
		m.styles.Help.Render("  drag empty space    create"),
		m.styles.Help.Render("  drag event          move"),
		m.styles.Help.Render("  drag bottom row     resize end"),
		m.styles.Help.Render("  alt-drag top row    resize start"),
		"",
		m.styles.Help.Render("Press any key to return..."),
	)
	box := m.styles.Border.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	x := max(0, (m.width-lipgloss.Width(box))/2)
	y := max(0, (m.height-lipgloss.Height(box))/2)
	return lipgloss.NewLayer(box).X(x).Y(y).Z(zHelp)
}

// monthLayers draws the month grid with as many events per day as fit.
func (m *Model) monthLayers() []*lipgloss.Layer {
	ms := newMonthScreen(m.width, m.height)
	grid := dates.MonthGrid(m.anchor, m.current.WeekStart)
	cells := layout.MonthCells(m.events, grid, max(1, ms.cellH-2))
	today := m.now()

	layers := []*lipgloss.Layer{
		lipgloss.NewLayer(m.styles.Header.Render(m.title())).X(0).Y(0).Z(zChrome),
	}
	for d := range 7 {
		name := fit(grid[0][d].Format("Mon"), ms.cellW-1)
		layers = append(layers, lipgloss.NewLayer(m.styles.Header.Render(name)).X(d*ms.cellW).Y(1).Z(zChrome))
	}

	for w := range cells {
		for d, cell := range cells[w] {
			style := m.styles.Normal
			switch {
			case dates.IsSameDay(cell.Date, m.anchor):
				style = m.styles.Selected
			case dates.IsSameDay(cell.Date, today):
				style = m.styles.Today.Bold(true)
			case cell.Date.Month() != m.anchor.Month():
				style = m.styles.Gutter
			}
			lines := []string{style.Render(fit(fmt.Sprintf("%2d", cell.Date.Day()), ms.cellW-1))}
			for _, ev := range cell.Events {
				text := ev.Title
				if !ev.AllDay {
					text = ev.Start.Format("15:04") + " " + text
				}
				lines = append(lines, m.styles.eventStyle(ev, ev.ID == m.selectedID).Render(fit(text, ms.cellW-1)))
			}
			if cell.More > 0 {
				lines = append(lines, m.styles.Help.Render(fit(fmt.Sprintf("+%d more", cell.More), ms.cellW-1)))
			}
			if len(lines) > ms.cellH {
				lines = lines[:ms.cellH]
			}
			layer := lipgloss.NewLayer(strings.Join(lines, "\n")).X(d * ms.cellW).Y(ms.top + w*ms.cellH).Z(zEvents)
			layers = append(layers, layer)
		}
	}
	return layers
}
