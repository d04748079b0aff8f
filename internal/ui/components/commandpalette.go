package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/sadopc/hookscope/internal/ui/msgs"
	"github.com/sadopc/hookscope/internal/ui/theme"
)

// paletteCommand is one selectable palette entry.
type paletteCommand struct {
	Name     string
	Shortcut string
	Msg      tea.Msg
}

var defaultCommands = []paletteCommand{
	{Name: "Reload Feed", Shortcut: "r", Msg: msgs.RefreshMsg{}},
	{Name: "Load More", Shortcut: "m", Msg: msgs.LoadMoreMsg{}},
	{Name: "Copy Webhook URL", Shortcut: "y", Msg: msgs.CopyWebhookURLMsg{}},
	{Name: "Copy as cURL", Shortcut: "c", Msg: msgs.CopyCurlMsg{}},
	{Name: "Copy Body", Shortcut: "b", Msg: msgs.CopyBodyMsg{}},
	{Name: "Export as HAR", Shortcut: "e", Msg: msgs.ExportHARMsg{}},
	{Name: "Delete All Requests", Shortcut: "D", Msg: msgs.ConfirmClearMsg{}},
	{Name: "Switch Theme", Shortcut: "t", Msg: msgs.SwitchThemeMsg{}},
	{Name: "Help", Shortcut: "?", Msg: msgs.ShowHelpMsg{}},
	{Name: "Quit", Shortcut: "q", Msg: tea.QuitMsg{}},
}

// commandSource adapts a command list for fuzzy matching.
type commandSource []paletteCommand

func (s commandSource) String(i int) string { return s[i].Name }
func (s commandSource) Len() int            { return len(s) }

type paletteKind int

const (
	kindCommands paletteKind = iota
	kindThemes
)

const (
	paletteWidth    = 60
	paletteMaxItems = 12
)

// CommandPalette is a fuzzy-searchable overlay listing commands, or theme
// names while picking a theme.
type CommandPalette struct {
	Visible  bool
	kind     paletteKind
	input    textinput.Model
	commands []paletteCommand
	filtered []paletteCommand
	cursor   int
	offset   int
	theme    theme.Theme
	styles   theme.Styles
}

// NewCommandPalette creates a hidden palette holding the default commands.
func NewCommandPalette(t theme.Theme, s theme.Styles) CommandPalette {
	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = paletteWidth - 6

	m := CommandPalette{input: ti, theme: t, styles: s}
	m.ResetCommands()
	return m
}

// Open shows the palette with an empty query.
func (m *CommandPalette) Open() {
	m.show()
}

// OpenThemePicker shows the palette listing names; choosing one emits a
// SwitchThemeMsg.
func (m *CommandPalette) OpenThemePicker(names []string) {
	m.kind = kindThemes
	m.commands = make([]paletteCommand, len(names))
	for i, name := range names {
		m.commands[i] = paletteCommand{Name: name, Msg: msgs.SwitchThemeMsg{Name: name}}
	}
	m.input.Placeholder = "Select theme..."
	m.show()
}

func (m *CommandPalette) show() {
	m.Visible = true
	m.input.SetValue("")
	m.input.Focus()
	m.refilter()
}

// Close hides the palette.
func (m *CommandPalette) Close() {
	m.Visible = false
	m.input.Blur()
}

// ResetCommands restores the default command list.
func (m *CommandPalette) ResetCommands() {
	m.kind = kindCommands
	m.commands = defaultCommands
	m.input.Placeholder = "Type a command..."
	m.refilter()
}

// Selected returns the name of the highlighted entry.
func (m CommandPalette) Selected() string {
	if m.cursor < len(m.filtered) {
		return m.filtered[m.cursor].Name
	}
	return ""
}

// Init implements tea.Model.
func (m CommandPalette) Init() tea.Cmd {
	return nil
}

// Update handles navigation and selection; other keys edit the query.
func (m CommandPalette) Update(msg tea.Msg) (CommandPalette, tea.Cmd) {
	if !m.Visible {
		return m, nil
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "esc":
			m.dismiss()
			return m, backToNormal
		case "enter":
			if len(m.filtered) == 0 {
				return m, nil
			}
			chosen := m.filtered[m.cursor].Msg
			m.dismiss()
			return m, tea.Batch(backToNormal, func() tea.Msg { return chosen })
		case "up", "ctrl+p":
			m.move(-1)
			return m, nil
		case "down", "ctrl+n":
			m.move(1)
			return m, nil
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.refilter()
	}
	return m, cmd
}

func (m *CommandPalette) dismiss() {
	m.Close()
	m.ResetCommands()
}

func (m *CommandPalette) move(delta int) {
	m.cursor = max(0, min(m.cursor+delta, len(m.filtered)-1))
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+paletteMaxItems {
		m.offset = m.cursor - paletteMaxItems + 1
	}
}

// refilter ranks the commands against the query and resets the cursor.
func (m *CommandPalette) refilter() {
	m.cursor, m.offset = 0, 0
	query := m.input.Value()
	if query == "" {
		m.filtered = m.commands
		return
	}
	matches := fuzzy.FindFrom(query, commandSource(m.commands))
	m.filtered = make([]paletteCommand, len(matches))
	for i, match := range matches {
		m.filtered[i] = m.commands[match.Index]
	}
}

// View renders the palette box.
func (m CommandPalette) View() string {
	if !m.Visible {
		return ""
	}
	inner := paletteWidth - 4

	title := "Command Palette"
	if m.kind == kindThemes {
		title = "Themes"
	}
	header := lipgloss.NewStyle().
		Foreground(m.theme.Text).
		Bold(true).
		Width(inner).
		Align(lipgloss.Center).
		Render(title)

	var rows []string
	end := min(m.offset+paletteMaxItems, len(m.filtered))
	for i := m.offset; i < end; i++ {
		rows = append(rows, m.renderEntry(m.filtered[i], i == m.cursor, inner))
	}
	if len(rows) == 0 {
		rows = append(rows, lipgloss.NewStyle().Foreground(m.theme.Muted).Render("No matches"))
	}

	return lipgloss.NewStyle().
		Width(paletteWidth).
		Background(m.theme.Surface).
		Foreground(m.theme.Text).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.BorderFocused).
		Padding(1, 2).
		Render(header + "\n\n" + m.input.View() + "\n\n" + strings.Join(rows, "\n"))
}

func (m CommandPalette) renderEntry(c paletteCommand, selected bool, width int) string {
	name := truncate(c.Name, width-2-lipgloss.Width(c.Shortcut))
	gap := max(1, width-2-lipgloss.Width(name)-lipgloss.Width(c.Shortcut))

	if selected {
		return lipgloss.NewStyle().
			Background(m.theme.Overlay).
			Foreground(m.theme.Text).
			Width(width).
			Render(name + strings.Repeat(" ", gap) + c.Shortcut)
	}
	return lipgloss.NewStyle().Foreground(m.theme.Text).Render(name) +
		strings.Repeat(" ", gap) +
		lipgloss.NewStyle().Foreground(m.theme.Muted).Render(c.Shortcut)
}
