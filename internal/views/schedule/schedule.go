// Package schedule implements the session-creation form overlay.
package schedule

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/api"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/clock"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/dates"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/event"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/mutate"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/theme"
)

// field indexes into the form inputs.
const (
	fieldTitle = iota
	fieldCourse
	fieldDate
	fieldStart
	fieldEnd
	fieldLocation
	fieldMax
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Title", "Course", "Date (YYYY-MM-DD)", "Start (HH:MM)", "End (HH:MM)",
	"Location", "Max participants",
}

// SubmittedMsg is sent to the app when the form closes after a submit.
type SubmittedMsg struct{}

// Model is the schedule form. It is opened by the calendar:openSchedule
// event with today's date pre-filled.
type Model struct {
	bus  *event.Bus
	clk  clock.Clock
	ctrl *mutate.Controller

	Width int

	inputs      [fieldCount]textinput.Model
	focused     int
	sessionType api.SessionType
	errMsg      string

	inflight map[string]bool
}

// New creates the form.
func New(bus *event.Bus, clk clock.Clock, ctrl *mutate.Controller) *Model {
	m := &Model{
		bus:      bus,
		clk:      clk,
		ctrl:     ctrl,
		inflight: make(map[string]bool),
	}
	for i := range m.inputs {
		in := textinput.New()
		in.Placeholder = fieldLabels[i]
		in.CharLimit = 64
		m.inputs[i] = in
	}
	return m
}

// Open resets the form with today's local date as the default.
func (m *Model) Open() tea.Cmd {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
	m.inputs[fieldDate].SetValue(dates.FromTime(m.clk.Now()).Key())
	m.sessionType = api.TypeStudy
	m.focused = fieldTitle
	m.errMsg = ""
	return m.inputs[fieldTitle].Focus()
}

// HandleKey processes a key press while the form is open. The second
// return value is true when the form wants to close.
func (m *Model) HandleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "esc":
		return nil, true
	case "tab", "down":
		return m.focusNext(1), false
	case "shift+tab", "up":
		return m.focusNext(-1), false
	case "ctrl+t":
		m.sessionType = (m.sessionType + 1) % api.TypeCount
		return nil, false
	case "enter":
		if m.focused < fieldCount-1 {
			return m.focusNext(1), false
		}
		cmd, err := m.submit()
		if err != nil {
			m.errMsg = err.Error()
			return nil, false
		}
		return cmd, true
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return cmd, false
}

func (m *Model) focusNext(dir int) tea.Cmd {
	m.inputs[m.focused].Blur()
	m.focused = (m.focused + dir + fieldCount) % fieldCount
	return m.inputs[m.focused].Focus()
}

// submit validates locally and starts the optimistic create. Validation
// failures keep the form open and never reach the wire.
func (m *Model) submit() (tea.Cmd, error) {
	maxParticipants := 0
	if v := strings.TrimSpace(m.inputs[fieldMax].Value()); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("max participants must be a number")
		}
		maxParticipants = n
	}

	draft := api.SessionDraft{
		Title:           strings.TrimSpace(m.inputs[fieldTitle].Value()),
		Course:          strings.TrimSpace(m.inputs[fieldCourse].Value()),
		Date:            strings.TrimSpace(m.inputs[fieldDate].Value()),
		StartTime:       strings.TrimSpace(m.inputs[fieldStart].Value()),
		EndTime:         strings.TrimSpace(m.inputs[fieldEnd].Value()),
		Location:        strings.TrimSpace(m.inputs[fieldLocation].Value()),
		Type:            m.sessionType,
		MaxParticipants: maxParticipants,
	}
	if draft.Date != "" {
		if _, err := dates.Parse(draft.Date); err != nil {
			return nil, fmt.Errorf("date must be YYYY-MM-DD")
		}
	}

	token, cmd, err := m.ctrl.Create(draft)
	if err != nil {
		return nil, err
	}
	m.inflight[token] = true
	return cmd, nil
}

// Update settles the create result: the echoed (or provisional) session
// is published so every session widget dedup-merges it.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	result, ok := msg.(mutate.ResultMsg)
	if !ok || !m.inflight[result.Token] {
		return nil
	}
	delete(m.inflight, result.Token)
	outcome := m.ctrl.Resolve(result)
	if outcome.State == mutate.StateConfirmed && outcome.Session != nil {
		m.bus.Publish(event.SessionCreated{Session: *outcome.Session})
	}
	return nil
}

// View renders the form.
func (m *Model) View() string {
	lines := []string{theme.StyleHeader.Render(" Schedule a Session")}
	if m.errMsg != "" {
		lines = append(lines, theme.StyleError.Render(" "+m.errMsg))
	}
	for i := range m.inputs {
		label := theme.StyleDimmed.Width(20).Render(" " + fieldLabels[i])
		lines = append(lines, label+m.inputs[i].View())
	}
	lines = append(lines,
		theme.StyleDimmed.Width(20).Render(" Type")+
			lipgloss.NewStyle().Foreground(theme.SessionTypeColor(m.sessionType.String())).
				Render(m.sessionType.String())+
			theme.StyleDimmed.Render("  (ctrl+t to cycle)"),
		theme.StyleDimmed.Render("  enter:next/save  esc:cancel"),
	)
	return theme.StyleBorder.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
