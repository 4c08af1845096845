package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keyboard bindings for the dashboard.
type KeyMap struct {
	Quit     key.Binding
	Tab      key.Binding
	Panel1   key.Binding
	Panel2   key.Binding
	Panel3   key.Binding
	Panel4   key.Binding
	Panel5   key.Binding
	Panel6   key.Binding
	Schedule key.Binding
	Resync   key.Binding
	Escape   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next panel"),
		),
		Panel1: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "calendar"),
		),
		Panel2: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "upcoming"),
		),
		Panel3: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "buddies"),
		),
		Panel4: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "connections"),
		),
		Panel5: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "notes"),
		),
		Panel6: key.NewBinding(
			key.WithKeys("6"),
			key.WithHelp("6", "notifications"),
		),
		Schedule: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "schedule session"),
		),
		Resync: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "resync"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close overlay"),
		),
	}
}
