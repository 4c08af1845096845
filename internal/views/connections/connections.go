// Package connections renders accepted study connections and incoming
// partner requests, with accept/reject actions.
package connections

import (
	"fmt"

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
	AcceptPartnerRequest(requestID string) error
	RejectPartnerRequest(requestID string) error
}

// LoadedMsg delivers a fetched partner snapshot.
type LoadedMsg struct {
	Partners []api.Partner
	Err      error
}

// DecisionMsg reports the result of an accept or reject call.
type DecisionMsg struct {
	PartnerID string
	Accepted  bool
	Err       error
}

// Model is the study-connections widget.
type Model struct {
	bus    *event.Bus
	client PartnerAPI

	Width int

	partners []api.Partner
	selected int

	errMsg  string
	retry   bool
	loading bool
	mounted bool
	unsubs  []func()
	queued  []tea.Cmd
}

// New creates the connections widget.
func New(bus *event.Bus, client PartnerAPI) *Model {
	return &Model{bus: bus, client: client}
}

// Mount subscribes to partner topics and returns the initial fetch.
func (m *Model) Mount() tea.Cmd {
	m.mounted = true
	m.loading = true
	m.unsubs = []func(){
		m.bus.Subscribe(event.TopicPartnerAccepted, m.onPartnerEvent),
		m.bus.Subscribe(event.TopicPartnerRejected, m.onPartnerEvent),
		m.bus.Subscribe(event.TopicBuddiesInvalidate, m.onPartnerEvent),
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

// onPartnerEvent re-fetches for any partner status change; connection
// state lives server-side and a coarse refresh keeps this list honest.
func (m *Model) onPartnerEvent(event.Event) {
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
			m.errMsg = "Could not load connections"
			m.retry = true
			return nil
		}
		m.errMsg = ""
		m.partners = msg.Partners
		m.clampSelection()

	case DecisionMsg:
		if msg.Err != nil {
			// The optimistic transition already ran; a definitive
			// rejection converges through the re-fetch below.
			m.errMsg = "Could not update the request"
			m.retry = false
		}
		if msg.Accepted {
			m.bus.Publish(event.PartnerAccepted{AcceptedBy: msg.PartnerID})
		} else {
			m.bus.Publish(event.PartnerRejected{RejectedBy: msg.PartnerID})
		}
		return m.Flush()
	}
	return nil
}

// HandleKey processes a key press while this widget has focus.
func (m *Model) HandleKey(k string) (tea.Cmd, bool) {
	switch k {
	case "up", "k":
		n := len(m.visible())
		if n > 0 {
			m.selected = (m.selected - 1 + n) % n
		}
	case "down", "j":
		n := len(m.visible())
		if n > 0 {
			m.selected = (m.selected + 1) % n
		}
	case "a", "enter":
		return m.decide(true), true
	case "d":
		return m.decide(false), true
	case "x":
		if m.errMsg != "" {
			m.errMsg = ""
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

// decide accepts or rejects the selected incoming request: optimistic
// local transition first, then the remote call, then the bus event from
// DecisionMsg so siblings converge.
func (m *Model) decide(accept bool) tea.Cmd {
	items := m.visible()
	if m.selected < 0 || m.selected >= len(items) {
		return nil
	}
	p := items[m.selected]
	if p.ConnectionStatus != api.ConnectionPending || p.IsPendingSent || p.RequestID == "" {
		return nil
	}

	if i := merge.IndexByID(m.partners, p.ID); i >= 0 {
		if accept {
			m.partners[i].ConnectionStatus = api.ConnectionAccepted
		} else {
			m.partners[i].ConnectionStatus = api.ConnectionNone
		}
	}

	partnerID, requestID := p.ID, p.RequestID
	return func() tea.Msg {
		var err error
		if accept {
			err = m.client.AcceptPartnerRequest(requestID)
		} else {
			err = m.client.RejectPartnerRequest(requestID)
		}
		return DecisionMsg{PartnerID: partnerID, Accepted: accept, Err: err}
	}
}

// visible returns the accepted connections followed by incoming pending
// requests.
func (m *Model) visible() []api.Partner {
	var accepted, incoming []api.Partner
	for _, p := range m.partners {
		switch {
		case p.ConnectionStatus == api.ConnectionAccepted:
			accepted = append(accepted, p)
		case p.ConnectionStatus == api.ConnectionPending && !p.IsPendingSent:
			incoming = append(incoming, p)
		}
	}
	return append(accepted, incoming...)
}

// Partners returns a copy of the cache, for the app and tests.
func (m *Model) Partners() []api.Partner {
	out := make([]api.Partner, len(m.partners))
	copy(out, m.partners)
	return out
}

func (m *Model) clampSelection() {
	if n := len(m.visible()); m.selected >= n {
		m.selected = 0
	}
}

// View renders the connection list.
func (m *Model) View() string {
	lines := []string{theme.StyleHeader.Render(" Study Connections")}
	if m.loading {
		lines[0] += theme.StyleDimmed.Render("  loading…")
	}
	if m.errMsg != "" {
		lines = append(lines, theme.StyleError.Render(" "+m.errMsg)+
			theme.StyleDimmed.Render("  (x dismiss)"))
	}

	items := m.visible()
	if len(items) == 0 && !m.loading {
		lines = append(lines, theme.StyleDimmed.Render("  No connections yet"))
	}

	for i, p := range items {
		prefix := "  "
		if i == m.selected {
			prefix = theme.StyleSelected.Render("> ")
		}
		lines = append(lines, prefix+renderPartner(p))
	}

	lines = append(lines, theme.StyleDimmed.Render("  a:accept  d:decline"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderPartner(p api.Partner) string {
	out := lipgloss.NewStyle().Foreground(theme.ColorBright).Render(p.Name)
	if p.Course != "" {
		out += theme.StyleDimmed.Render("  " + p.Course)
	}
	switch {
	case p.ConnectionStatus == api.ConnectionAccepted:
		out += lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("  ✓ connected")
	case p.ConnectionStatus == api.ConnectionPending && !p.IsPendingSent:
		out += lipgloss.NewStyle().Foreground(theme.ColorWarning).
			Render(fmt.Sprintf("  wants to connect (%d%% match)", p.CompatibilityScore))
	}
	return out
}
