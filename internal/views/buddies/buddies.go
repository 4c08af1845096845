// Package buddies renders partner suggestions and hosts the "send buddy
// request" action with its optimistic pending state.
package buddies

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/api"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/event"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/merge"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/theme"
)

// PartnerAPI is the remote collaborator surface this widget consumes.
type PartnerAPI interface {
	SearchPartners() ([]api.Partner, error)
	SendBuddyRequest(partnerID string) error
}

// LoadedMsg delivers a fetched partner snapshot.
type LoadedMsg struct {
	Partners []api.Partner
	Err      error
}

// RequestSentMsg reports the result of a buddy request.
type RequestSentMsg struct {
	PartnerID string
	Err       error
}

// Model is the buddy-search widget. PendingInvites is the set of partner
// identities with an in-flight or just-confirmed outgoing request; it is
// owned here and adjusted only by bus events.
type Model struct {
	bus    *event.Bus
	client PartnerAPI

	Width int

	partners []api.Partner
	pending  map[string]bool // PendingInvites
	selected int

	errMsg  string
	retry   bool
	loading bool
	mounted bool
	unsubs  []func()
	queued  []tea.Cmd
}

// New creates the buddy-search widget.
func New(bus *event.Bus, client PartnerAPI) *Model {
	return &Model{
		bus:     bus,
		client:  client,
		pending: make(map[string]bool),
	}
}

// Mount subscribes to partner topics and returns the initial fetch.
func (m *Model) Mount() tea.Cmd {
	m.mounted = true
	m.loading = true
	m.unsubs = []func(){
		m.bus.Subscribe(event.TopicPartnerAccepted, m.onAccepted),
		m.bus.Subscribe(event.TopicPartnerRejected, m.onRejected),
		m.bus.Subscribe(event.TopicBuddiesInvalidate, m.onInvalidate),
	}
	return m.fetchCmd()
}

// Unmount drops subscriptions and the cache.
func (m *Model) Unmount() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
	m.partners = nil
	m.queued = nil
	m.pending = make(map[string]bool)
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

func (m *Model) onAccepted(evt event.Event) {
	e := evt.(event.PartnerAccepted)
	delete(m.pending, e.AcceptedBy)
	if i := merge.IndexByID(m.partners, e.AcceptedBy); i >= 0 {
		m.partners[i].ConnectionStatus = api.ConnectionAccepted
		m.partners[i].IsPendingSent = false
	}
	// Accepted partners leave the suggestions view; refresh connections.
	m.loading = true
	m.queued = append(m.queued, m.fetchCmd())
}

func (m *Model) onRejected(evt event.Event) {
	e := evt.(event.PartnerRejected)
	delete(m.pending, e.RejectedBy)
	if i := merge.IndexByID(m.partners, e.RejectedBy); i >= 0 {
		m.partners[i].ConnectionStatus = api.ConnectionNone
		m.partners[i].IsPendingSent = false
	}
}

func (m *Model) onInvalidate(event.Event) {
	m.loading = true
	m.queued = append(m.queued, m.fetchCmd())
}

func (m *Model) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		partners, err := m.client.SearchPartners()
		return LoadedMsg{Partners: partners, Err: err}
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
			m.errMsg = "Could not load partner suggestions"
			m.retry = true
			return nil
		}
		m.errMsg = ""
		m.partners = msg.Partners
		m.sort()
		m.clampSelection()

	case RequestSentMsg:
		if msg.Err != nil && api.KindOf(msg.Err).Authoritative() {
			// Definitive rejection: revert the optimistic pending state.
			delete(m.pending, msg.PartnerID)
			if i := merge.IndexByID(m.partners, msg.PartnerID); i >= 0 {
				m.partners[i].ConnectionStatus = api.ConnectionNone
				m.partners[i].IsPendingSent = false
			}
		}
	}
	return nil
}

// HandleKey processes a key press while this widget has focus.
func (m *Model) HandleKey(k string) (tea.Cmd, bool) {
	switch k {
	case "up", "k":
		n := len(m.Suggestions())
		if n > 0 {
			m.selected = (m.selected - 1 + n) % n
		}
	case "down", "j":
		n := len(m.Suggestions())
		if n > 0 {
			m.selected = (m.selected + 1) % n
		}
	case "enter", "s":
		return m.sendRequest(), true
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

// sendRequest optimistically marks the suggestion pending and starts the
// remote call.
func (m *Model) sendRequest() tea.Cmd {
	suggestions := m.Suggestions()
	if m.selected < 0 || m.selected >= len(suggestions) {
		return nil
	}
	p := suggestions[m.selected]
	if m.pending[p.ID] || p.ConnectionStatus == api.ConnectionPending {
		return nil
	}

	m.pending[p.ID] = true
	if i := merge.IndexByID(m.partners, p.ID); i >= 0 {
		m.partners[i].ConnectionStatus = api.ConnectionPending
		m.partners[i].IsPendingSent = true
	}

	id := p.ID
	return func() tea.Msg {
		return RequestSentMsg{PartnerID: id, Err: m.client.SendBuddyRequest(id)}
	}
}

// Suggestions returns the partners eligible for the suggestions view:
// not yet accepted, with at least one shared course.
func (m *Model) Suggestions() []api.Partner {
	out := make([]api.Partner, 0, len(m.partners))
	for _, p := range m.partners {
		if p.Suggestible() {
			out = append(out, p)
		}
	}
	return out
}

// Pending reports whether a partner identity is in the PendingInvites set.
func (m *Model) Pending(id string) bool { return m.pending[id] }

func (m *Model) sort() {
	sort.SliceStable(m.partners, func(i, j int) bool {
		return m.partners[i].CompatibilityScore > m.partners[j].CompatibilityScore
	})
}

func (m *Model) clampSelection() {
	if n := len(m.Suggestions()); m.selected >= n {
		m.selected = 0
	}
}

// View renders the suggestion list.
func (m *Model) View() string {
	lines := []string{theme.StyleHeader.Render(" Buddy Suggestions")}
	if m.loading {
		lines[0] += theme.StyleDimmed.Render("  loading…")
	}
	if m.errMsg != "" {
		lines = append(lines, theme.StyleError.Render(" "+m.errMsg)+
			theme.StyleDimmed.Render("  (r retry, x dismiss)"))
	}

	suggestions := m.Suggestions()
	if len(suggestions) == 0 && !m.loading {
		lines = append(lines, theme.StyleDimmed.Render("  No suggestions right now"))
	}

	for i, p := range suggestions {
		prefix := "  "
		if i == m.selected {
			prefix = theme.StyleSelected.Render("> ")
		}
		lines = append(lines, prefix+m.renderPartner(p))
	}

	lines = append(lines, theme.StyleDimmed.Render("  s:send request"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderPartner(p api.Partner) string {
	score := lipgloss.NewStyle().Foreground(theme.MatchColor(p.CompatibilityScore)).
		Render(fmt.Sprintf("%3d%%", p.CompatibilityScore))
	out := score + " " + lipgloss.NewStyle().Foreground(theme.ColorBright).Render(p.Name)
	if p.University != "" {
		out += theme.StyleDimmed.Render("  " + p.University)
	}
	if len(p.SharedCourses) > 0 {
		out += theme.StyleDimmed.Render("  [" + strings.Join(p.SharedCourses, ", ") + "]")
	}
	if m.pending[p.ID] || (p.ConnectionStatus == api.ConnectionPending && p.IsPendingSent) {
		out += lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("  • request sent")
	} else if p.ConnectionStatus == api.ConnectionPending {
		out += lipgloss.NewStyle().Foreground(theme.ColorInfo).Render("  • wants to connect")
	}
	return out
}
