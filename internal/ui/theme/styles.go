package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/hookscope/internal/capture"
)

// Styles holds pre-computed Lip Gloss styles for the current theme.
type Styles struct {
	FocusedBorder   lipgloss.Style
	UnfocusedBorder lipgloss.Style

	Title   lipgloss.Style
	Normal  lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	URL     lipgloss.Style
	Key     lipgloss.Style
	Value   lipgloss.Style
	Hint    lipgloss.Style
	Path    lipgloss.Style
	Time    lipgloss.Style

	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
	Selected    lipgloss.Style
	Cursor      lipgloss.Style

	theme Theme
}

// NewStyles creates a Styles set from a Theme.
func NewStyles(t Theme) Styles {
	return Styles{
		FocusedBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocused),
		UnfocusedBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderUnfocused),

		Title:   lipgloss.NewStyle().Foreground(t.Text).Bold(true),
		Normal:  lipgloss.NewStyle().Foreground(t.Text),
		Muted:   lipgloss.NewStyle().Foreground(t.Muted),
		Error:   lipgloss.NewStyle().Foreground(t.Red),
		Success: lipgloss.NewStyle().Foreground(t.Green),
		Warning: lipgloss.NewStyle().Foreground(t.Yellow),
		URL:     lipgloss.NewStyle().Foreground(t.Blue).Underline(true),
		Key:     lipgloss.NewStyle().Foreground(t.Mauve),
		Value:   lipgloss.NewStyle().Foreground(t.Text),
		Hint:    lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		Path:    lipgloss.NewStyle().Foreground(t.Text),
		Time:    lipgloss.NewStyle().Foreground(t.Subtext),

		TabActive: lipgloss.NewStyle().
			Foreground(t.Text).
			Background(t.Surface).
			Bold(true).
			Padding(0, 2),
		TabInactive: lipgloss.NewStyle().
			Foreground(t.Subtext).
			Padding(0, 2),
		Selected: lipgloss.NewStyle().
			Background(t.Surface).
			Foreground(t.Text),
		Cursor: lipgloss.NewStyle().
			Background(t.Overlay).
			Foreground(t.Text),

		theme: t,
	}
}

// MethodStyle returns the badge style for an HTTP method.
func (s Styles) MethodStyle(m capture.Method) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.theme.MethodColor(m)).Bold(true)
}
