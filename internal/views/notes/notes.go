// Package notes renders the shared notes board. Note bodies are markdown,
// rendered through glamour when a note is opened.
package notes

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/api"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/clock"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/event"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/merge"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/mutate"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/theme"
)

// Fetcher is the remote collaborator surface this widget consumes.
type Fetcher interface {
	FetchNotes() ([]api.Note, error)
}

// LoadedMsg delivers a fetched notes snapshot.
type LoadedMsg struct {
	Notes []api.Note
	Err   error
}

// mode is the widget's input state.
type mode int

const (
	modeList mode = iota
	modeOpen
	modeComposeTitle
	modeComposeBody
)

// Model is the notes board widget.
type Model struct {
	bus   *event.Bus
	clk   clock.Clock
	fetch Fetcher
	ctrl  *mutate.Controller

	Width int

	notes    []api.Note
	selected int
	mode     mode
	rendered string // glamour output for the open note

	titleInput textinput.Model
	bodyInput  textinput.Model

	errMsg   string
	retry    bool
	loading  bool
	mounted  bool
	inflight map[string]bool

	// Board position of each pending delete, so a rollback can put the
	// note back where it was.
	deleteIndex map[string]int
}

// New creates the notes widget.
func New(bus *event.Bus, clk clock.Clock, fetch Fetcher, ctrl *mutate.Controller) *Model {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 80
	body := textinput.New()
	body.Placeholder = "Note (markdown)"
	body.CharLimit = 500

	return &Model{
		bus:        bus,
		clk:        clk,
		fetch:      fetch,
		ctrl:       ctrl,
		titleInput:  title,
		bodyInput:   body,
		inflight:    make(map[string]bool),
		deleteIndex: make(map[string]int),
	}
}

// Mount returns the initial fetch. The board has no bus topics of its
// own; consistency comes from the optimistic controller alone.
func (m *Model) Mount() tea.Cmd {
	m.mounted = true
	m.loading = true
	return m.fetchCmd()
}

// Unmount abandons in-flight mutation reflections and clears the cache.
func (m *Model) Unmount() {
	for token := range m.inflight {
		m.ctrl.Abandon(token)
	}
	m.notes = nil
	m.inflight = make(map[string]bool)
	m.deleteIndex = make(map[string]int)
	m.mounted = false
	m.mode = modeList
}

func (m *Model) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		notes, err := m.fetch.FetchNotes()
		return LoadedMsg{Notes: notes, Err: err}
	}
}

// Update handles widget-owned messages.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	if !m.mounted {
		return nil
	}
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.errMsg = "Could not load notes"
			m.retry = true
			return nil
		}
		m.errMsg = ""
		m.notes = reconcileNotes(m.notes, msg.Notes)
		m.clampSelection()

	case mutate.ResultMsg:
		if !m.inflight[msg.Token] {
			return nil
		}
		delete(m.inflight, msg.Token)
		at, hasAt := m.deleteIndex[msg.Token]
		delete(m.deleteIndex, msg.Token)
		outcome := m.ctrl.Resolve(msg)
		m.settle(outcome, at, hasAt)
	}
	return nil
}

func (m *Model) settle(outcome mutate.Outcome, at int, hasAt bool) {
	switch outcome.State {
	case mutate.StateConfirmed:
		if outcome.Note != nil {
			// Real echo or provisional fallback; either way merge by its
			// identity so a duplicate event cannot double it.
			m.notes = merge.ByID(m.notes, *outcome.Note)
		}
	case mutate.StateRolledBack:
		if outcome.Note != nil {
			if merge.IndexByID(m.notes, outcome.Note.ID) >= 0 {
				return
			}
			// A rolled-back delete goes back to its original position.
			if !hasAt || at > len(m.notes) {
				at = len(m.notes)
			}
			m.notes = append(m.notes, api.Note{})
			copy(m.notes[at+1:], m.notes[at:])
			m.notes[at] = *outcome.Note
		}
	}
}

// HandleKey processes a key press while this widget has focus.
func (m *Model) HandleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch m.mode {
	case modeComposeTitle, modeComposeBody:
		return m.handleComposeKey(msg), true
	case modeOpen:
		if msg.String() == "esc" || msg.String() == "enter" {
			m.mode = modeList
			m.rendered = ""
			return nil, true
		}
		return nil, false
	}

	switch msg.String() {
	case "up", "k":
		if len(m.notes) > 0 {
			m.selected = (m.selected - 1 + len(m.notes)) % len(m.notes)
		}
	case "down", "j":
		if len(m.notes) > 0 {
			m.selected = (m.selected + 1) % len(m.notes)
		}
	case "enter":
		m.openSelected()
	case "n":
		m.mode = modeComposeTitle
		m.titleInput.SetValue("")
		m.bodyInput.SetValue("")
		return m.titleInput.Focus(), true
	case "D":
		return m.deleteSelected(), true
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

func (m *Model) handleComposeKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.titleInput.Blur()
		m.bodyInput.Blur()
		return nil
	case "enter":
		if m.mode == modeComposeTitle {
			m.mode = modeComposeBody
			m.titleInput.Blur()
			return m.bodyInput.Focus()
		}
		return m.submitCompose()
	case "tab":
		if m.mode == modeComposeTitle {
			m.mode = modeComposeBody
			m.titleInput.Blur()
			return m.bodyInput.Focus()
		}
		m.mode = modeComposeTitle
		m.bodyInput.Blur()
		return m.titleInput.Focus()
	}

	var cmd tea.Cmd
	if m.mode == modeComposeTitle {
		m.titleInput, cmd = m.titleInput.Update(msg)
	} else {
		m.bodyInput, cmd = m.bodyInput.Update(msg)
	}
	return cmd
}

func (m *Model) submitCompose() tea.Cmd {
	draft := api.NoteDraft{
		Title: m.titleInput.Value(),
		Body:  m.bodyInput.Value(),
	}
	token, cmd, err := m.ctrl.CreateNote(draft, m.clk.Now())
	if err != nil {
		m.errMsg = "A note needs a body"
		return nil
	}
	m.mode = modeList
	m.bodyInput.Blur()
	m.inflight[token] = true
	return cmd
}

func (m *Model) openSelected() {
	if m.selected < 0 || m.selected >= len(m.notes) {
		return
	}
	width := m.Width - 4
	if width < 20 {
		width = 60
	}
	body := m.notes[m.selected].Body
	out := body
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		if rendered, rerr := r.Render(body); rerr == nil {
			out = rendered
		}
	}
	m.rendered = out
	m.mode = modeOpen
}

func (m *Model) deleteSelected() tea.Cmd {
	if m.selected < 0 || m.selected >= len(m.notes) {
		return nil
	}
	n := m.notes[m.selected]
	token, cmd := m.ctrl.DeleteNote(n)
	m.deleteIndex[token] = m.selected
	m.notes = merge.RemoveByID(m.notes, n.ID)
	m.clampSelection()
	m.inflight[token] = true
	return cmd
}

// reconcileNotes keeps unconfirmed provisional notes across a re-fetch,
// matching construction by title+body the way sessions match on
// title+date+start.
func reconcileNotes(cached, fetched []api.Note) []api.Note {
	out := make([]api.Note, len(fetched))
	copy(out, fetched)
	for _, c := range cached {
		if !c.Provisional {
			continue
		}
		matched := false
		for _, f := range fetched {
			if f.Title == c.Title && f.Body == c.Body {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, c)
		}
	}
	return out
}

// Notes returns a copy of the cache, for tests.
func (m *Model) Notes() []api.Note {
	out := make([]api.Note, len(m.notes))
	copy(out, m.notes)
	return out
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.notes) {
		m.selected = 0
	}
}

// View renders the board.
func (m *Model) View() string {
	lines := []string{theme.StyleHeader.Render(" Notes")}
	if m.loading {
		lines[0] += theme.StyleDimmed.Render("  loading…")
	}
	if m.errMsg != "" {
		lines = append(lines, theme.StyleError.Render(" "+m.errMsg)+
			theme.StyleDimmed.Render("  (r retry, x dismiss)"))
	}

	switch m.mode {
	case modeOpen:
		lines = append(lines, m.rendered, theme.StyleDimmed.Render("  esc:back"))
	case modeComposeTitle, modeComposeBody:
		lines = append(lines,
			"  "+m.titleInput.View(),
			"  "+m.bodyInput.View(),
			theme.StyleDimmed.Render("  enter:next/save  esc:cancel"),
		)
	default:
		if len(m.notes) == 0 && !m.loading {
			lines = append(lines, theme.StyleDimmed.Render("  Nothing on the board"))
		}
		for i, n := range m.notes {
			prefix := "  "
			if i == m.selected {
				prefix = theme.StyleSelected.Render("> ")
			}
			title := n.Title
			if title == "" {
				title = "(untitled)"
			}
			line := prefix + lipgloss.NewStyle().Foreground(theme.ColorBright).Render(title)
			if n.Provisional {
				line += theme.StyleDimmed.Render("  (unconfirmed)")
			}
			lines = append(lines, line)
		}
		lines = append(lines, theme.StyleDimmed.Render("  n:new  enter:open  D:delete"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
