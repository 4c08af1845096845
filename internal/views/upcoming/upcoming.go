// Package upcoming renders the ordered list of upcoming study sessions
// and hosts the attend/leave/cancel actions.
package upcoming

import (
	"fmt"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/api"
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

// Model is the upcoming-sessions widget.
type Model struct {
	bus   *event.Bus
	fetch Fetcher
	ctrl  *mutate.Controller

	Width int

	sessions []api.Session
	selected int

	errMsg  string
	retry   bool
	loading bool
	mounted bool
	unsubs  []func()
	queued  []tea.Cmd

	// Tokens of mutations this widget started and has not yet settled.
	inflight map[string]bool
}

// New creates the upcoming-sessions widget.
func New(bus *event.Bus, fetch Fetcher, ctrl *mutate.Controller) *Model {
	return &Model{
		bus:      bus,
		fetch:    fetch,
		ctrl:     ctrl,
		inflight: make(map[string]bool),
	}
}

// Mount subscribes to session topics and returns the initial fetch.
func (m *Model) Mount() tea.Cmd {
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

// Unmount drops subscriptions, abandons in-flight mutation reflections
// and clears the cache.
func (m *Model) Unmount() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	for token := range m.inflight {
		m.ctrl.Abandon(token)
	}
	m.unsubs = nil
	m.sessions = nil
	m.queued = nil
	m.inflight = make(map[string]bool)
	m.mounted = false
}

// Flush returns commands queued by bus handlers and clears the queue.
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
	if e.Session.Status == api.StatusUpcoming {
		m.sessions = merge.ByID(m.sessions, e.Session)
	}
}

func (m *Model) onUpdated(evt event.Event) {
	e := evt.(event.SessionUpdated)
	if i := merge.IndexByID(m.sessions, e.Patch.ID); i >= 0 {
		e.Patch.Apply(&m.sessions[i])
		if m.sessions[i].Status != api.StatusUpcoming {
			m.sessions = merge.RemoveByID(m.sessions, e.Patch.ID)
		}
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
	return func() tea.Msg {
		sessions, err := m.fetch.FetchSessions(api.SessionFilter{})
		return LoadedMsg{Sessions: sessions, Err: err}
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
			m.errMsg = "Could not load sessions"
			m.retry = true
			return nil
		}
		m.errMsg = ""
		filtered := make([]api.Session, 0, len(msg.Sessions))
		for _, s := range msg.Sessions {
			if s.Status == api.StatusUpcoming {
				filtered = append(filtered, s)
			}
		}
		m.sessions = mutate.ReconcileProvisional(m.sessions, filtered)
		m.sort()
		m.clampSelection()

	case mutate.ResultMsg:
		if !m.inflight[msg.Token] {
			return nil
		}
		delete(m.inflight, msg.Token)
		outcome := m.ctrl.Resolve(msg)
		return m.settle(outcome)
	}
	return nil
}

// settle applies a mutation outcome to the local cache. Rollbacks are
// silent: the snapshot slides back in with no modal, only a log line.
func (m *Model) settle(outcome mutate.Outcome) tea.Cmd {
	switch outcome.State {
	case mutate.StateRolledBack:
		if outcome.Session != nil {
			m.sessions = merge.ReplaceByID(m.sessions, *outcome.Session)
			// Siblings saw the optimistic patch; send the corrective one.
			m.bus.Publish(event.SessionUpdated{Patch: attendancePatch(*outcome.Session)})
		}
	case mutate.StateConfirmed:
		if outcome.Invalidate {
			m.bus.Publish(event.SessionsInvalidate{})
		}
	}
	return m.Flush()
}

// HandleKey processes a key press while this widget has focus.
func (m *Model) HandleKey(k string) (tea.Cmd, bool) {
	switch k {
	case "up", "k":
		if len(m.sessions) > 0 {
			m.selected = (m.selected - 1 + len(m.sessions)) % len(m.sessions)
		}
	case "down", "j":
		if len(m.sessions) > 0 {
			m.selected = (m.selected + 1) % len(m.sessions)
		}
	case "a":
		return m.attend(), true
	case "v":
		return m.leave(), true
	case "c":
		return m.cancel(), true
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

func (m *Model) attend() tea.Cmd {
	s, ok := m.current()
	if !ok || s.IsAttending {
		return nil
	}
	optimistic, token, cmd := m.ctrl.Attend(s)
	m.sessions = merge.ReplaceByID(m.sessions, optimistic)
	m.inflight[token] = true
	m.bus.Publish(event.SessionUpdated{Patch: attendancePatch(optimistic)})
	return tea.Batch(cmd, m.Flush())
}

func (m *Model) leave() tea.Cmd {
	s, ok := m.current()
	if !ok || !s.IsAttending || s.IsCreator {
		return nil
	}
	optimistic, token, cmd := m.ctrl.Leave(s)
	m.sessions = merge.ReplaceByID(m.sessions, optimistic)
	m.inflight[token] = true
	m.bus.Publish(event.SessionUpdated{Patch: attendancePatch(optimistic)})
	return tea.Batch(cmd, m.Flush())
}

// cancel removes the session immediately; the removal stands regardless
// of the remote outcome, and settling publishes sessions:invalidate.
func (m *Model) cancel() tea.Cmd {
	s, ok := m.current()
	if !ok || !s.IsCreator {
		return nil
	}
	token, cmd := m.ctrl.Cancel(s)
	m.sessions = merge.RemoveByID(m.sessions, s.ID)
	m.clampSelection()
	m.inflight[token] = true
	m.bus.Publish(event.SessionDeleted{ID: s.ID})
	return tea.Batch(cmd, m.Flush())
}

// attendancePatch builds the partial update siblings need after an
// attendance flip.
func attendancePatch(s api.Session) api.SessionPatch {
	participants := s.Participants
	attending := s.IsAttending
	return api.SessionPatch{
		ID:           s.ID,
		Participants: &participants,
		IsAttending:  &attending,
	}
}

func (m *Model) current() (api.Session, bool) {
	if m.selected < 0 || m.selected >= len(m.sessions) {
		return api.Session{}, false
	}
	return m.sessions[m.selected], true
}

func (m *Model) sort() {
	sort.SliceStable(m.sessions, func(i, j int) bool {
		if m.sessions[i].Date != m.sessions[j].Date {
			return m.sessions[i].Date < m.sessions[j].Date
		}
		return m.sessions[i].StartTime < m.sessions[j].StartTime
	})
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.sessions) {
		m.selected = 0
	}
}

// Sessions returns a copy of the cache, for the app and tests.
func (m *Model) Sessions() []api.Session {
	out := make([]api.Session, len(m.sessions))
	copy(out, m.sessions)
	return out
}

// View renders the list.
func (m *Model) View() string {
	lines := []string{theme.StyleHeader.Render(" Upcoming Sessions")}
	if m.loading {
		lines[0] += theme.StyleDimmed.Render("  loading…")
	}
	if m.errMsg != "" {
		lines = append(lines, theme.StyleError.Render(" "+m.errMsg)+
			theme.StyleDimmed.Render("  (r retry, x dismiss)"))
	}

	if len(m.sessions) == 0 && !m.loading {
		lines = append(lines, theme.StyleDimmed.Render("  No upcoming sessions"))
	}

	for i, s := range m.sessions {
		prefix := "  "
		if i == m.selected {
			prefix = theme.StyleSelected.Render("> ")
		}
		lines = append(lines, prefix+m.renderSession(s))
	}

	lines = append(lines, theme.StyleDimmed.Render("  a:attend  v:leave  c:cancel"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderSession(s api.Session) string {
	label := fmt.Sprintf("%s %s–%s  %s", s.Date, s.StartTime, s.EndTime, s.Title)
	out := theme.TypeBadge(s.Type.String()) + " " +
		lipgloss.NewStyle().Foreground(theme.SessionTypeColor(s.Type.String())).Render(label)

	seats := fmt.Sprintf("%d", s.Participants)
	if s.MaxParticipants > 0 {
		seats += fmt.Sprintf("/%d", s.MaxParticipants)
	}
	out += theme.StyleDimmed.Render("  " + seats)

	if s.IsAttending {
		out += lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("  ✓ attending")
	}
	if s.IsCreator {
		out += theme.StyleDimmed.Render("  (host)")
	}
	if s.Provisional {
		out += theme.StyleDimmed.Render("  (unconfirmed)")
	}
	if s.Full() && !s.IsAttending {
		out += theme.StyleError.Render("  full")
	}
	return out
}
