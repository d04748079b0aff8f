package app

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/sadopc/hookscope/internal/ui/components"
)

// KeyMap defines all application keybindings.
type KeyMap struct {
	// Global
	Quit           key.Binding
	ForceQuit      key.Binding
	CommandPalette key.Binding
	Help           key.Binding
	CycleFocus     key.Binding
	Back           key.Binding

	// Feed actions
	Refresh   key.Binding
	LoadMore  key.Binding
	Delete    key.Binding
	ClearAll  key.Binding
	CopyURL   key.Binding
	CopyCurl  key.Binding
	CopyBody  key.Binding
	ExportHAR key.Binding
	Theme     key.Binding
}

// DefaultKeyMap returns the default keybinding configuration.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		CommandPalette: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("ctrl+k", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		CycleFocus: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "switch panel"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "h"),
			key.WithHelp("esc", "back to feed"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		LoadMore: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "load more"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete request"),
		),
		ClearAll: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete all"),
		),
		CopyURL: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy webhook URL"),
		),
		CopyCurl: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy as cURL"),
		),
		CopyBody: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "copy body"),
		),
		ExportHAR: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export HAR"),
		),
		Theme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "switch theme"),
		),
	}
}

// hint is a help-only binding for keys handled inside a panel.
func hint(keys, desc string) key.Binding {
	return key.NewBinding(key.WithKeys(keys), key.WithHelp(keys, desc))
}

// HelpSections groups the bindings for the help overlay.
func (k KeyMap) HelpSections() []components.HelpSection {
	return []components.HelpSection{
		{Title: "General", Bindings: []key.Binding{
			k.Quit, k.CommandPalette, k.Help, k.CycleFocus,
			k.Refresh, k.CopyURL, k.Theme, k.ExportHAR,
		}},
		{Title: "Feed", Bindings: []key.Binding{
			hint("j / k", "move cursor"),
			hint("g / G", "newest / oldest"),
			hint("enter", "open request"),
			hint("/", "filter loaded requests"),
			k.LoadMore, k.Delete, k.ClearAll, k.CopyCurl, k.CopyBody,
		}},
		{Title: "Detail", Bindings: []key.Binding{
			hint("j / k", "scroll"),
			hint("1-4 / [ ]", "switch tabs"),
			k.Back,
		}},
	}
}
