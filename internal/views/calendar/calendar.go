// Package calendar renders the study calendar: a day/week/month grid of
// cells with sessions bucketed by their local calendar date.
package calendar

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/api"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/clock"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/dates"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/event"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/merge"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/mutate"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/theme"
)

// Fetcher is the remote collaborator surface this widget consumes.
type Fetcher interface {
	FetchSessions(filter api.SessionFilter) ([]api.Session, error)
}

// LoadedMsg delivers a fetched session snapshot.
type LoadedMsg struct {
	Sessions []api.Session
	Err      error
}

// Model is the calendar widget. It owns its session cache and reconciles
// it against bus events; nothing here is shared with sibling widgets.
type Model struct {
	bus   *event.Bus
	clk   clock.Clock
	fetch Fetcher

	Width      int
	maxVisible int

	mode     dates.ViewMode
	anchor   dates.Date
	sessions []api.Session
	selected int // index into visible cells
	expanded bool

	errMsg   string
	retry    bool
	loading  bool
	mounted  bool
	unsubs   []func()
	queued   []tea.Cmd
}

// New creates the calendar widget.
func New(bus *event.Bus, clk clock.Clock, fetch Fetcher, maxVisible int) *Model {
	return &Model{
		bus:        bus,
		clk:        clk,
		fetch:      fetch,
		maxVisible: maxVisible,
		mode:       dates.ModeMonth,
	}
}

// Mount subscribes to session topics and returns the initial fetch.
func (m *Model) Mount() tea.Cmd {
	m.anchor = dates.FromTime(m.clk.Now())
	m.mounted = true
	m.loading = true
	m.unsubs = []func(){
		m.bus.Subscribe(event.TopicSessionCreated, m.onCreated),
		m.bus.Subscribe(event.TopicSessionUpdated, m.onUpdated),
		m.bus.Subscribe(event.TopicSessionDeleted, m.onDeleted),
		m.bus.Subscribe(event.TopicSessionsInvalidate, m.onInvalidate),
	}
	return m.fetchCmd()
}

// Unmount drops every subscription and the cache. Results of calls still
// in flight are ignored once unmounted.
func (m *Model) Unmount() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
	m.sessions = nil
	m.queued = nil
	m.mounted = false
}

// Flush returns commands queued by bus handlers (re-fetches) and clears
// the queue. The app drains it after every publish.
func (m *Model) Flush() tea.Cmd {
	if len(m.queued) == 0 {
		return nil
	}
	cmds := m.queued
	m.queued = nil
	return tea.Batch(cmds...)
}

func (m *Model) onCreated(evt event.Event) {
	e := evt.(event.SessionCreated)
	m.sessions = merge.ByID(m.sessions, e.Session)
}

func (m *Model) onUpdated(evt event.Event) {
	e := evt.(event.SessionUpdated)
	if i := merge.IndexByID(m.sessions, e.Patch.ID); i >= 0 {
		e.Patch.Apply(&m.sessions[i])
	}
}

func (m *Model) onDeleted(evt event.Event) {
	e := evt.(event.SessionDeleted)
	m.sessions = merge.RemoveByID(m.sessions, e.ID)
}

func (m *Model) onInvalidate(event.Event) {
	m.loading = true
	m.queued = append(m.queued, m.fetchCmd())
}

func (m *Model) fetchCmd() tea.Cmd {
	cells := dates.VisibleDates(m.mode, m.anchor)
	filter := api.SessionFilter{}
	if len(cells) > 0 {
		filter.From = cells[0].Key()
		filter.To = cells[len(cells)-1].Key()
	}
	return func() tea.Msg {
		sessions, err := m.fetch.FetchSessions(filter)
		return LoadedMsg{Sessions: sessions, Err: err}
	}
}

// Update handles widget-owned messages and keys.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	if !m.mounted {
		return nil
	}
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.errMsg = "Could not load sessions"
			m.retry = true
			return nil
		}
		m.errMsg = ""
		// Keep unconfirmed provisional entries across the re-fetch.
		m.sessions = mutate.ReconcileProvisional(m.sessions, msg.Sessions)
		m.clampSelection()
	}
	return nil
}

// HandleKey processes a key press while the calendar has focus. Returns
// true when the key was consumed.
func (m *Model) HandleKey(k string) (tea.Cmd, bool) {
	switch k {
	case "d":
		m.setMode(dates.ModeDay)
	case "w":
		m.setMode(dates.ModeWeek)
	case "m":
		m.setMode(dates.ModeMonth)
	case "t":
		m.anchor = dates.FromTime(m.clk.Now())
		m.loading = true
		return m.fetchCmd(), true
	case "left", "h":
		m.shiftAnchor(-1)
		m.loading = true
		return m.fetchCmd(), true
	case "right", "l":
		m.shiftAnchor(1)
		m.loading = true
		return m.fetchCmd(), true
	case "up", "k":
		m.moveSelection(-7)
	case "down", "j":
		m.moveSelection(7)
	case "enter":
		m.expanded = !m.expanded
	case "o":
		m.bus.Publish(event.CalendarOpenSchedule{})
	case "x":
		if m.errMsg != "" {
			m.errMsg = ""
			m.retry = false
			return nil, true
		}
		return nil, false
	case "r":
		if m.retry {
			m.errMsg = ""
			m.retry = false
			m.loading = true
			return m.fetchCmd(), true
		}
		return nil, false
	default:
		return nil, false
	}
	return nil, true
}

func (m *Model) setMode(mode dates.ViewMode) {
	m.mode = mode
	m.selected = 0
	m.expanded = false
}

// shiftAnchor moves the anchor one unit of the current mode.
func (m *Model) shiftAnchor(dir int) {
	switch m.mode {
	case dates.ModeDay:
		m.anchor = m.anchor.AddDays(dir)
	case dates.ModeWeek:
		m.anchor = m.anchor.AddDays(dir * 7)
	case dates.ModeMonth:
		first := dates.Date{Year: m.anchor.Year, Month: m.anchor.Month, Day: 1}
		if dir < 0 {
			m.anchor = first.AddDays(-1)
		} else {
			m.anchor = first.AddDays(32)
		}
		m.anchor.Day = 1
	}
	m.selected = 0
	m.expanded = false
}

func (m *Model) moveSelection(delta int) {
	cells := dates.VisibleDates(m.mode, m.anchor)
	if len(cells) == 0 {
		return
	}
	if m.mode != dates.ModeMonth && (delta == -7 || delta == 7) {
		delta = delta / 7
	}
	m.selected = (m.selected + delta + len(cells)) % len(cells)
}

func (m *Model) clampSelection() {
	cells := dates.VisibleDates(m.mode, m.anchor)
	if m.selected >= len(cells) {
		m.selected = 0
	}
}

// Cells builds the current grid with overflow applied.
func (m *Model) Cells() []dates.Cell[api.Session] {
	visible := dates.VisibleDates(m.mode, m.anchor)
	items := m.sorted()
	return dates.BuildCells(visible, m.anchor, items, func(s api.Session) string {
		return s.Date
	}, m.maxVisible)
}

// Sessions returns a copy of the widget's cache, for the app and tests.
func (m *Model) Sessions() []api.Session {
	out := make([]api.Session, len(m.sessions))
	copy(out, m.sessions)
	return out
}

// Mode returns the active view mode.
func (m *Model) Mode() dates.ViewMode { return m.mode }

// Anchor returns the anchor date.
func (m *Model) Anchor() dates.Date { return m.anchor }

func (m *Model) sorted() []api.Session {
	out := make([]api.Session, len(m.sessions))
	copy(out, m.sessions)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

const cellWidth = 16

// View renders the calendar grid.
func (m *Model) View() string {
	today := dates.FromTime(m.clk.Now())
	cells := m.Cells()

	title := fmt.Sprintf("Calendar - %s %d (%s)", m.anchor.Month, m.anchor.Year, m.mode)
	lines := []string{theme.StyleHeader.Render(" " + title)}
	if m.loading {
		lines[0] += theme.StyleDimmed.Render("  loading…")
	}
	if m.errMsg != "" {
		banner := theme.StyleError.Render(" " + m.errMsg)
		banner += theme.StyleDimmed.Render("  (r retry, x dismiss)")
		lines = append(lines, banner)
	}

	switch m.mode {
	case dates.ModeDay:
		lines = append(lines, m.renderDay(cells[0], today))
	case dates.ModeWeek:
		lines = append(lines, m.renderRow(cells, 0, today))
	case dates.ModeMonth:
		lines = append(lines, m.renderWeekdayHeader())
		for row := 0; row < 6; row++ {
			lines = append(lines, m.renderRow(cells, row*7, today))
		}
	}

	if m.expanded && m.selected < len(cells) {
		lines = append(lines, m.renderExpanded(cells[m.selected]))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderWeekdayHeader() string {
	names := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = theme.StyleDimmed.Width(cellWidth).Render(" " + n)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderRow(cells []dates.Cell[api.Session], offset int, today dates.Date) string {
	var parts []string
	for i := offset; i < offset+7 && i < len(cells); i++ {
		parts = append(parts, m.renderCell(cells[i], i, today))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderCell(c dates.Cell[api.Session], idx int, today dates.Date) string {
	dayStyle := theme.StyleDimmed
	if c.InMonth {
		dayStyle = lipgloss.NewStyle().Foreground(theme.ColorBright)
	}
	if c.Date == today {
		dayStyle = theme.StyleToday
	}

	header := dayStyle.Render(fmt.Sprintf("%2d", c.Date.Day))
	if idx == m.selected {
		header = theme.StyleSelected.Render("▸") + header
	} else {
		header = " " + header
	}

	rows := []string{header}
	for _, s := range c.Visible {
		label := s.Title
		if len(label) > cellWidth-4 {
			label = label[:cellWidth-5] + "…"
		}
		entry := theme.TypeBadge(s.Type.String()) + lipgloss.NewStyle().
			Foreground(theme.SessionTypeColor(s.Type.String())).Render(label)
		if s.Provisional {
			entry += theme.StyleDimmed.Render("*")
		}
		rows = append(rows, entry)
	}
	if c.More > 0 {
		rows = append(rows, theme.StyleDimmed.Render(fmt.Sprintf("+%d more", c.More)))
	}

	border := theme.ColorBorder
	if idx == m.selected {
		border = theme.ColorBright
	}
	return lipgloss.NewStyle().
		Width(cellWidth - 2).
		Height(m.cellHeight()).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(border).
		Render(strings.Join(rows, "\n"))
}

func (m *Model) cellHeight() int {
	// Day number plus inline entries plus the possible overflow line.
	return m.maxVisible + 2
}

func (m *Model) renderDay(c dates.Cell[api.Session], today dates.Date) string {
	header := theme.StyleHeader.Render(" " + c.Date.Key())
	if c.Date == today {
		header += theme.StyleToday.Render("  today")
	}
	lines := []string{header}
	if len(c.All) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("  No sessions scheduled"))
	}
	for _, s := range c.All {
		lines = append(lines, "  "+sessionLine(s))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderExpanded reveals the full list of the selected cell, including
// entries collapsed behind the "+N more" indicator.
func (m *Model) renderExpanded(c dates.Cell[api.Session]) string {
	lines := []string{theme.StyleHeader.Render(" " + c.Date.Key())}
	if len(c.All) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("  No sessions"))
	}
	for _, s := range c.All {
		lines = append(lines, "  "+sessionLine(s))
	}
	return theme.StyleBorder.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func sessionLine(s api.Session) string {
	label := fmt.Sprintf("%s–%s %s", s.StartTime, s.EndTime, s.Title)
	out := theme.TypeBadge(s.Type.String()) + " " +
		lipgloss.NewStyle().Foreground(theme.SessionTypeColor(s.Type.String())).Render(label)
	if s.Course != "" {
		out += theme.StyleDimmed.Render("  " + s.Course)
	}
	if s.Provisional {
		out += theme.StyleDimmed.Render("  (unconfirmed)")
	}
	return out
}
