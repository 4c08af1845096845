// Package bell renders the notification bell: the bounded queue of recent
// notifications and the unread badge.
package bell

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/api"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/event"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/notify"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/theme"
)

// Fetcher is the remote collaborator surface this widget consumes.
type Fetcher interface {
	FetchNotifications() ([]api.Notification, error)
	MarkNotificationRead(id string) error
}

// LoadedMsg delivers the initial notification snapshot.
type LoadedMsg struct {
	Notifications []api.Notification
	Err           error
}

// MarkedMsg reports a mark-read round trip.
type MarkedMsg struct {
	ID  string
	Err error
}

// Model is the notification bell widget.
type Model struct {
	bus    *event.Bus
	client Fetcher

	Width int

	queue    notify.Queue
	selected int

	errMsg  string
	retry   bool
	loading bool
	mounted bool
	unsubs  []func()
}

// New creates the bell widget.
func New(bus *event.Bus, client Fetcher) *Model {
	return &Model{bus: bus, client: client}
}

// Mount subscribes to the notification topic and seeds the queue.
func (m *Model) Mount() tea.Cmd {
	m.mounted = true
	m.loading = true
	m.unsubs = []func(){
		m.bus.Subscribe(event.TopicNotification, m.onNotification),
	}
	return m.fetchCmd()
}

// Unmount drops the subscription and the queue.
func (m *Model) Unmount() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
	m.queue = notify.Queue{}
	m.mounted = false
}

func (m *Model) onNotification(evt event.Event) {
	e := evt.(event.Notification)
	m.queue.Push(e.Notification)
}

func (m *Model) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		notifications, err := m.client.FetchNotifications()
		return LoadedMsg{Notifications: notifications, Err: err}
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
			m.errMsg = "Could not load notifications"
			m.retry = true
			return nil
		}
		m.errMsg = ""
		m.queue.Seed(msg.Notifications)

	case MarkedMsg:
		// The read flag never reverts locally, even if the remote call
		// failed; the server catches up on the next seed.
		if msg.Err != nil {
			m.errMsg = "Could not sync read state"
		}
	}
	return nil
}

// HandleKey processes a key press while this widget has focus.
func (m *Model) HandleKey(k string) (tea.Cmd, bool) {
	switch k {
	case "up", "k":
		if n := m.queue.Len(); n > 0 {
			m.selected = (m.selected - 1 + n) % n
		}
	case "down", "j":
		if n := m.queue.Len(); n > 0 {
			m.selected = (m.selected + 1) % n
		}
	case "enter":
		return m.markRead(), true
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

// markRead flips the flag locally first; the remote call follows.
func (m *Model) markRead() tea.Cmd {
	items := m.queue.Items()
	if m.selected < 0 || m.selected >= len(items) {
		return nil
	}
	n := items[m.selected]
	if n.Read {
		return nil
	}
	m.queue.MarkRead(n.ID)
	id := n.ID
	return func() tea.Msg {
		return MarkedMsg{ID: id, Err: m.client.MarkNotificationRead(id)}
	}
}

// Badge returns the unread badge for the status bar.
func (m *Model) Badge() string { return m.queue.Badge() }

// UnreadCount returns the raw unread count.
func (m *Model) UnreadCount() int { return m.queue.UnreadCount() }

// Queue exposes the queue for tests.
func (m *Model) Queue() *notify.Queue { return &m.queue }

// View renders the notification list, newest last.
func (m *Model) View() string {
	header := theme.StyleHeader.Render(" Notifications")
	badge := m.queue.Badge()
	if m.queue.UnreadCount() > 0 {
		header += lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("  🔔 " + badge)
	}
	lines := []string{header}
	if m.loading {
		lines[0] += theme.StyleDimmed.Render("  loading…")
	}
	if m.errMsg != "" {
		lines = append(lines, theme.StyleError.Render(" "+m.errMsg)+
			theme.StyleDimmed.Render("  (x dismiss)"))
	}

	items := m.queue.Items()
	if len(items) == 0 && !m.loading {
		lines = append(lines, theme.StyleDimmed.Render("  All caught up"))
	}

	for i, n := range items {
		prefix := "  "
		if i == m.selected {
			prefix = theme.StyleSelected.Render("> ")
		}
		lines = append(lines, prefix+renderNotification(n))
	}

	lines = append(lines, theme.StyleDimmed.Render("  enter:mark read"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderNotification(n api.Notification) string {
	category := n.Category().String()
	glyph := lipgloss.NewStyle().Foreground(theme.CategoryColor(category)).
		Render(theme.CategoryGlyph(category))

	style := lipgloss.NewStyle().Foreground(theme.ColorBright)
	if n.Read {
		style = theme.StyleDimmed
	}
	out := glyph + " " + style.Render(n.Title)
	if n.Message != "" {
		out += theme.StyleDimmed.Render("  " + n.Message)
	}
	return out
}
