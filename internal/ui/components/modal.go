package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/hookscope/internal/ui/msgs"
	"github.com/sadopc/hookscope/internal/ui/theme"
)

// Modal is a confirm dialog for destructive actions.
type Modal struct {
	Visible   bool
	Title     string
	Message   string
	onConfirm tea.Msg
	focusOK   bool
	theme     theme.Theme
	styles    theme.Styles
}

// NewModal creates a new modal dialog.
func NewModal(t theme.Theme, s theme.Styles) Modal {
	return Modal{
		theme:   t,
		styles:  s,
		focusOK: false,
	}
}

// Show displays the modal. Focus starts on Cancel so a stray enter does
// not confirm.
func (m *Modal) Show(title, message string, onConfirm tea.Msg) {
	m.Visible = true
	m.Title = title
	m.Message = message
	m.onConfirm = onConfirm
	m.focusOK = false
}

// Init implements tea.Model.
func (m Modal) Init() tea.Cmd {
	return nil
}

func backToNormal() tea.Msg { return msgs.SetModeMsg{Mode: msgs.ModeNormal} }

// Update implements tea.Model.
func (m Modal) Update(msg tea.Msg) (Modal, tea.Cmd) {
	if !m.Visible {
		return m, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "esc", "n":
		m.Visible = false
		return m, backToNormal
	case "tab", "shift+tab", "left", "right", "h", "l":
		m.focusOK = !m.focusOK
	case "y":
		m.focusOK = true
		return m.confirm()
	case "enter":
		return m.confirm()
	}
	return m, nil
}

func (m Modal) confirm() (Modal, tea.Cmd) {
	m.Visible = false
	if m.focusOK && m.onConfirm != nil {
		confirmed := m.onConfirm
		return m, tea.Batch(backToNormal, func() tea.Msg { return confirmed })
	}
	return m, backToNormal
}

// View renders the modal dialog.
func (m Modal) View() string {
	if !m.Visible {
		return ""
	}

	boxWidth := 50

	titleStyle := lipgloss.NewStyle().
		Foreground(m.theme.Text).
		Bold(true).
		Width(boxWidth - 4).
		Align(lipgloss.Center)

	messageStyle := lipgloss.NewStyle().
		Foreground(m.theme.Subtext).
		Width(boxWidth - 4).
		Align(lipgloss.Center)

	okStyle := lipgloss.NewStyle().Padding(0, 3)
	cancelStyle := lipgloss.NewStyle().Padding(0, 3)
	idle := lipgloss.NewStyle().Background(m.theme.Surface).Foreground(m.theme.Subtext)

	if m.focusOK {
		okStyle = okStyle.Inherit(lipgloss.NewStyle().
			Background(m.theme.Red).
			Foreground(m.theme.Base).
			Bold(true))
		cancelStyle = cancelStyle.Inherit(idle)
	} else {
		okStyle = okStyle.Inherit(idle)
		cancelStyle = cancelStyle.Inherit(lipgloss.NewStyle().
			Background(m.theme.Mauve).
			Foreground(m.theme.Base).
			Bold(true))
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Center,
		okStyle.Render("Yes"),
		"  ",
		cancelStyle.Render("Cancel"),
	)

	buttonsRow := lipgloss.NewStyle().
		Width(boxWidth - 4).
		Align(lipgloss.Center).
		Render(buttons)

	content := titleStyle.Render(m.Title) + "\n\n" +
		messageStyle.Render(m.Message) + "\n\n" +
		buttonsRow

	return lipgloss.NewStyle().
		Width(boxWidth).
		Background(m.theme.Surface).
		Foreground(m.theme.Text).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Red).
		Padding(1, 2).
		Render(content)
}
