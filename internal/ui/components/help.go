package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/hookscope/internal/ui/msgs"
	"github.com/sadopc/hookscope/internal/ui/theme"
)

// HelpSection groups key bindings under a heading.
type HelpSection struct {
	Title    string
	Bindings []key.Binding
}

const helpWidth = 64

// Help is a scrollable overlay listing key bindings.
type Help struct {
	Visible  bool
	sections []HelpSection
	viewport viewport.Model
	theme    theme.Theme
	styles   theme.Styles
	width    int
	height   int
	ready    bool
}

// NewHelp creates a hidden help overlay for sections. Disabled bindings
// are left out.
func NewHelp(t theme.Theme, s theme.Styles, sections ...HelpSection) Help {
	return Help{
		sections: sections,
		theme:    t,
		styles:   s,
	}
}

// SetSize sets the terminal dimensions for centering.
func (m *Help) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Toggle toggles help visibility.
func (m *Help) Toggle() {
	m.Visible = !m.Visible
	if m.Visible {
		m.buildViewport()
	}
}

func (m *Help) buildViewport() {
	contentWidth := helpWidth - 6

	keyStyle := lipgloss.NewStyle().
		Foreground(m.theme.Mauve).
		Bold(true).
		Width(12).
		Align(lipgloss.Right)

	descStyle := lipgloss.NewStyle().
		Foreground(m.theme.Text)

	sectionStyle := lipgloss.NewStyle().
		Foreground(m.theme.Lavender).
		Bold(true).
		MarginTop(1)

	sepStyle := lipgloss.NewStyle().
		Foreground(m.theme.Muted)

	var lines []string
	for _, section := range m.sections {
		lines = append(lines,
			sectionStyle.Render(section.Title),
			sepStyle.Render(strings.Repeat("─", contentWidth)))
		for _, b := range section.Bindings {
			if !b.Enabled() {
				continue
			}
			h := b.Help()
			lines = append(lines, keyStyle.Render(h.Key)+sepStyle.Render(" │ ")+descStyle.Render(h.Desc))
		}
	}

	m.viewport = viewport.New(contentWidth, max(m.height-8, 6))
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.ready = true
}

// Init implements tea.Model.
func (m Help) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Help) Update(msg tea.Msg) (Help, tea.Cmd) {
	if !m.Visible {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "?", "q":
			m.Visible = false
			return m, func() tea.Msg { return msgs.SetModeMsg{Mode: msgs.ModeNormal} }
		}
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the help overlay.
func (m Help) View() string {
	if !m.Visible {
		return ""
	}

	if !m.ready {
		m.buildViewport()
	}

	titleStyle := lipgloss.NewStyle().
		Foreground(m.theme.Text).
		Bold(true).
		Width(helpWidth - 6).
		Align(lipgloss.Center)
	title := titleStyle.Render("Keyboard Shortcuts")

	content := title + "\n\n" + m.viewport.View()

	box := lipgloss.NewStyle().
		Width(helpWidth).
		Background(m.theme.Surface).
		Foreground(m.theme.Text).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.BorderFocused).
		Padding(1, 2).
		Render(content)

	return box
}
