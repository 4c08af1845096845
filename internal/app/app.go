// Package app composes the widget views into the root Bubble Tea model
// and routes stream events onto the shared bus.
package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/api"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/clock"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/config"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/event"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/mutate"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/theme"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/views/bell"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/views/buddies"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/views/calendar"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/views/connections"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/views/notes"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/views/schedule"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/views/status"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/views/upcoming"
)

// Panel identifies which widget has focus.
type Panel int

const (
	PanelCalendar Panel = iota
	PanelUpcoming
	PanelBuddies
	PanelConnections
	PanelNotes
	PanelBell
	panelCount
)

// sweepMsg drives the periodic mutation-expiry sweep.
type sweepMsg struct{}

// Model is the root Bubble Tea model. The widgets are pointers: their
// caches are mutated synchronously by bus handlers while the root model
// value moves through Update.
type Model struct {
	stream *api.StreamClient
	bus    *event.Bus
	ctrl   *mutate.Controller
	clk    clock.Clock
	cfg    *config.Config

	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int

	focus        Panel
	scheduleOpen bool
	// Set by the calendar:openSchedule bus handler; a pointer because the
	// root model value is copied every Update while the subscription
	// closure lives on.
	scheduleRequested *bool

	statusBar   status.Model
	calendar    *calendar.Model
	upcoming    *upcoming.Model
	buddies     *buddies.Model
	connections *connections.Model
	notes       *notes.Model
	bell        *bell.Model
	schedule    *schedule.Model

	connected bool
}

// New wires the widgets to the shared bus, controller and remote clients.
func New(cfg *config.Config, bus *event.Bus, stream *api.StreamClient, client *api.Client, ctrl *mutate.Controller, clk clock.Clock) Model {
	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		stream:            stream,
		bus:               bus,
		ctrl:              ctrl,
		clk:               clk,
		cfg:               cfg,
		ctx:               ctx,
		cancel:            cancel,
		keys:              DefaultKeyMap(),
		scheduleRequested: new(bool),
		statusBar:         status.New(),
		calendar:          calendar.New(bus, clk, client, cfg.Calendar.MaxVisiblePerCell),
		upcoming:          upcoming.New(bus, client, ctrl),
		buddies:           buddies.New(bus, client),
		connections:       connections.New(bus, client),
		notes:             notes.New(bus, clk, client, ctrl),
		bell:              bell.New(bus, client),
		schedule:          schedule.New(bus, clk, ctrl),
	}

	requested := m.scheduleRequested
	bus.Subscribe(event.TopicCalendarOpenSchedule, func(event.Event) {
		*requested = true
	})
	return m
}

// Init mounts every widget and starts the stream.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.stream.Listen(m.ctx),
		m.calendar.Mount(),
		m.upcoming.Mount(),
		m.buddies.Mount(),
		m.connections.Mount(),
		m.notes.Mount(),
		m.bell.Mount(),
		m.sweepTick(),
	)
}

func (m Model) sweepTick() tea.Cmd {
	return tea.Tick(m.cfg.Sync.SweepInterval, func(time.Time) tea.Msg {
		return sweepMsg{}
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.calendar.Width = msg.Width
		m.upcoming.Width = msg.Width / 2
		m.buddies.Width = msg.Width / 2
		m.connections.Width = msg.Width / 2
		m.notes.Width = msg.Width / 2
		m.bell.Width = msg.Width / 2
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sweepMsg:
		m.ctrl.Sweep()
		return m.refresh(m.sweepTick())

	case api.StreamConnectedMsg:
		m.connected = true
		return m.refresh(m.stream.ReadLoop(m.ctx))

	case api.StreamDisconnectedMsg:
		m.connected = false
		return m.refresh(m.stream.Listen(m.ctx))

	case api.SessionCreatedMsg:
		m.bus.Publish(event.SessionCreated{Session: msg.Session})
		return m.refresh(m.stream.ReadLoop(m.ctx))

	case api.SessionUpdatedMsg:
		m.bus.Publish(event.SessionUpdated{Patch: msg.Patch})
		return m.refresh(m.stream.ReadLoop(m.ctx))

	case api.SessionDeletedMsg:
		m.bus.Publish(event.SessionDeleted{ID: msg.ID})
		return m.refresh(m.stream.ReadLoop(m.ctx))

	case api.SessionsInvalidateMsg:
		m.bus.Publish(event.SessionsInvalidate{})
		return m.refresh(m.stream.ReadLoop(m.ctx))

	case api.BuddiesInvalidateMsg:
		m.bus.Publish(event.BuddiesInvalidate{})
		return m.refresh(m.stream.ReadLoop(m.ctx))

	case api.PartnerAcceptedMsg:
		m.bus.Publish(event.PartnerAccepted{AcceptedBy: msg.AcceptedBy})
		return m.refresh(m.stream.ReadLoop(m.ctx))

	case api.PartnerRejectedMsg:
		m.bus.Publish(event.PartnerRejected{RejectedBy: msg.RejectedBy})
		return m.refresh(m.stream.ReadLoop(m.ctx))

	case api.NotificationMsg:
		m.bus.Publish(event.Notification{Notification: msg.Notification})
		return m.refresh(m.stream.ReadLoop(m.ctx))

	case api.StreamErrorMsg:
		return m.refresh(m.stream.ReadLoop(m.ctx))
	}

	// Widget-owned messages: every widget inspects the message and acts
	// only on its own types (and its own mutation tokens).
	cmds := []tea.Cmd{
		m.calendar.Update(msg),
		m.upcoming.Update(msg),
		m.buddies.Update(msg),
		m.connections.Update(msg),
		m.notes.Update(msg),
		m.bell.Update(msg),
		m.schedule.Update(msg),
	}
	model, cmd := m.refresh(tea.Batch(cmds...))
	return model, cmd
}

// refresh drains widget command queues, applies any pending overlay
// request and recomputes the status bar.
func (m Model) refresh(cmds ...tea.Cmd) (Model, tea.Cmd) {
	cmds = append(cmds,
		m.calendar.Flush(),
		m.upcoming.Flush(),
		m.buddies.Flush(),
		m.connections.Flush(),
	)

	if *m.scheduleRequested {
		*m.scheduleRequested = false
		if !m.scheduleOpen {
			m.scheduleOpen = true
			cmds = append(cmds, m.schedule.Open())
		}
	}

	sessions := m.upcoming.Sessions()
	attending := 0
	for _, s := range sessions {
		if s.IsAttending {
			attending++
		}
	}
	m.statusBar.Connected = m.connected
	m.statusBar.Sessions = len(sessions)
	m.statusBar.Attending = attending
	m.statusBar.Badge = m.bell.Badge()
	m.statusBar.Pending = m.ctrl.PendingCount()

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.scheduleOpen {
		cmd, done := m.schedule.HandleKey(msg)
		if done {
			m.scheduleOpen = false
		}
		return m.refresh(cmd)
	}

	// Focused widget first; global bindings only when unconsumed.
	if cmd, consumed := m.routeKey(msg); consumed {
		return m.refresh(cmd)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.unmountAll()
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Tab):
		m.focus = (m.focus + 1) % panelCount
		return m, nil

	case key.Matches(msg, m.keys.Panel1):
		m.focus = PanelCalendar
		return m, nil
	case key.Matches(msg, m.keys.Panel2):
		m.focus = PanelUpcoming
		return m, nil
	case key.Matches(msg, m.keys.Panel3):
		m.focus = PanelBuddies
		return m, nil
	case key.Matches(msg, m.keys.Panel4):
		m.focus = PanelConnections
		return m, nil
	case key.Matches(msg, m.keys.Panel5):
		m.focus = PanelNotes
		return m, nil
	case key.Matches(msg, m.keys.Panel6):
		m.focus = PanelBell
		return m, nil

	case key.Matches(msg, m.keys.Schedule):
		m.bus.Publish(event.CalendarOpenSchedule{})
		return m.refresh(nil)

	case key.Matches(msg, m.keys.Resync):
		m.stream.Resync()
		return m, nil
	}

	return m, nil
}

func (m Model) routeKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	k := msg.String()
	switch m.focus {
	case PanelCalendar:
		return m.calendar.HandleKey(k)
	case PanelUpcoming:
		return m.upcoming.HandleKey(k)
	case PanelBuddies:
		return m.buddies.HandleKey(k)
	case PanelConnections:
		return m.connections.HandleKey(k)
	case PanelNotes:
		return m.notes.HandleKey(msg)
	case PanelBell:
		return m.bell.HandleKey(k)
	}
	return nil, false
}

func (m Model) unmountAll() {
	m.calendar.Unmount()
	m.upcoming.Unmount()
	m.buddies.Unmount()
	m.connections.Unmount()
	m.notes.Unmount()
	m.bell.Unmount()
}

// View renders the full dashboard.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.scheduleOpen {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.statusBar.View(),
			m.schedule.View(),
		)
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.panel(PanelUpcoming, m.upcoming.View()),
		m.panel(PanelBuddies, m.buddies.View()),
		m.panel(PanelConnections, m.connections.View()),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.panel(PanelNotes, m.notes.View()),
		m.panel(PanelBell, m.bell.View()),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusBar.View(),
		m.panel(PanelCalendar, m.calendar.View()),
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		theme.StyleDimmed.Render("  tab:panel  1-6:jump  S:schedule  R:resync  q:quit"),
	)
}

// panel draws a focus marker next to the active widget.
func (m Model) panel(p Panel, body string) string {
	if m.focus == p {
		return lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(theme.ColorBright).
			BorderTop(false).BorderRight(false).BorderBottom(false).
			Render(body)
	}
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderTop(false).BorderRight(false).BorderBottom(false).
		Render(body)
}
