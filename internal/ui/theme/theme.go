// Package theme holds the color palettes and derived styles of the TUI.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/hookscope/internal/capture"
	"github.com/sadopc/hookscope/internal/push"
)

// Theme holds all colors for the application.
type Theme struct {
	Name string

	Base    lipgloss.Color
	Surface lipgloss.Color
	Overlay lipgloss.Color

	Text    lipgloss.Color
	Subtext lipgloss.Color
	Muted   lipgloss.Color

	Mauve    lipgloss.Color
	Red      lipgloss.Color
	Peach    lipgloss.Color
	Yellow   lipgloss.Color
	Green    lipgloss.Color
	Teal     lipgloss.Color
	Blue     lipgloss.Color
	Lavender lipgloss.Color

	BorderFocused   lipgloss.Color
	BorderUnfocused lipgloss.Color
}

// MethodColor returns the color for an HTTP method.
func (t Theme) MethodColor(m capture.Method) lipgloss.Color {
	switch m {
	case capture.MethodGET:
		return t.Green
	case capture.MethodPOST:
		return t.Yellow
	case capture.MethodPUT:
		return t.Blue
	case capture.MethodPATCH:
		return t.Peach
	case capture.MethodDELETE:
		return t.Red
	case capture.MethodHEAD:
		return t.Teal
	case capture.MethodOPTIONS:
		return t.Lavender
	default:
		return t.Muted
	}
}

// StateColor returns the color of the connection indicator.
func (t Theme) StateColor(s push.State) lipgloss.Color {
	switch s {
	case push.StateConnected:
		return t.Green
	case push.StateConnecting:
		return t.Yellow
	case push.StateDisconnected:
		return t.Peach
	case push.StateError:
		return t.Red
	default:
		return t.Muted
	}
}

// Default returns the default theme.
func Default() Theme {
	return CatppuccinMocha
}
