package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines keybindings for the TUI
type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	PrevGroup   key.Binding
	NextGroup   key.Binding
	Toggle      key.Binding
	ToggleGroup key.Binding
	Sort        key.Binding
	Delete      key.Binding
	Move        key.Binding
	Backup      key.Binding
	Yes         key.Binding
	No          key.Binding
	Rescan      key.Binding
	Cancel      key.Binding
	ByDate      key.Binding
	ByType      key.Binding
	ByName      key.Binding
	Undo        key.Binding
	Preview     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "move down"),
	),
	PrevGroup: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "previous group"),
	),
	NextGroup: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "next group"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("space", " "),
		key.WithHelp("space", "toggle selection"),
	),
	ToggleGroup: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "toggle group"),
	),
	Sort: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "cycle sort"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete selected"),
	),
	Move: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "move selected"),
	),
	Backup: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "back up selected"),
	),
	Yes: key.NewBinding(
		key.WithKeys("y", "enter"),
		key.WithHelp("y", "confirm"),
	),
	No: key.NewBinding(
		key.WithKeys("n", "esc"),
		key.WithHelp("n/esc", "cancel"),
	),
	Rescan: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "rescan"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "cancel scan"),
	),
	ByDate: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "organize by date"),
	),
	ByType: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "organize by type"),
	),
	ByName: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "organize by name"),
	),
	Undo: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "undo organize"),
	),
	Preview: key.NewBinding(
		key.WithKeys("p", "tab"),
		key.WithHelp("p/tab", "toggle preview"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp returns keybindings to be shown in the mini help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Delete, k.Move, k.Backup, k.Sort, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevGroup, k.NextGroup, k.Toggle, k.ToggleGroup},
		{k.Sort, k.Delete, k.Move, k.Backup, k.Preview},
		{k.Rescan, k.Cancel, k.ByDate, k.ByType, k.ByName, k.Undo},
		{k.Help, k.Quit},
	}
}
