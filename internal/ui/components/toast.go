package components

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/hookscope/internal/ui/theme"
)

const defaultToastDuration = 3 * time.Second

// ToastLevel picks the toast color.
type ToastLevel int

const (
	ToastSuccess ToastLevel = iota
	ToastInfo
	ToastError
)

// toastDismissMsg dismisses the toast shown with the same sequence number.
type toastDismissMsg struct{ seq int }

// Toast is an auto-dismiss notification.
type Toast struct {
	Visible bool
	text    string
	level   ToastLevel
	seq     int
	theme   theme.Theme
	styles  theme.Styles
}

// NewToast creates a new toast component.
func NewToast(t theme.Theme, s theme.Styles) Toast {
	return Toast{
		theme:  t,
		styles: s,
	}
}

// Show displays a toast message and returns a Cmd for auto-dismiss.
func (m *Toast) Show(text string, isError bool, duration time.Duration) tea.Cmd {
	level := ToastSuccess
	if isError {
		level = ToastError
	}
	return m.ShowLevel(text, level, duration)
}

// ShowLevel is Show with an explicit level. A newer toast replaces the
// current one and outlives its pending dismissal.
func (m *Toast) ShowLevel(text string, level ToastLevel, duration time.Duration) tea.Cmd {
	m.Visible = true
	m.text = text
	m.level = level
	m.seq++
	if duration <= 0 {
		duration = defaultToastDuration
	}
	seq := m.seq
	return tea.Tick(duration, func(time.Time) tea.Msg {
		return toastDismissMsg{seq: seq}
	})
}

// Text returns the message currently shown.
func (m Toast) Text() string { return m.text }

// Init implements tea.Model.
func (m Toast) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Toast) Update(msg tea.Msg) (Toast, tea.Cmd) {
	switch msg := msg.(type) {
	case toastDismissMsg:
		if msg.seq == m.seq {
			m.Visible = false
			m.text = ""
		}
	}
	return m, nil
}

// View renders the toast notification.
func (m Toast) View() string {
	if !m.Visible || m.text == "" {
		return ""
	}

	var fg lipgloss.Color
	switch m.level {
	case ToastError:
		fg = m.theme.Red
	case ToastInfo:
		fg = m.theme.Blue
	default:
		fg = m.theme.Green
	}

	style := lipgloss.NewStyle().
		Foreground(fg).
		Background(m.theme.Surface).
		Bold(true).
		Padding(0, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(fg)

	return style.Render(m.text)
}
