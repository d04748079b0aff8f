package components

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sadopc/hookscope/internal/push"
	"github.com/sadopc/hookscope/internal/ui/msgs"
	"github.com/sadopc/hookscope/internal/ui/theme"
)

// clearStatusMsg clears a temporary status message.
type clearStatusMsg struct{}

// ClearStatusAfter returns a Cmd that clears the status message after d.
func ClearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

// StatusBar is a full-width bottom status bar.
type StatusBar struct {
	state   push.State
	account string
	loaded  int
	hasMore bool
	loading bool
	lastAt  time.Time
	mode    msgs.AppMode
	message string
	width   int
	theme   theme.Theme
	styles  theme.Styles
}

// NewStatusBar creates a new status bar.
func NewStatusBar(t theme.Theme, s theme.Styles) StatusBar {
	return StatusBar{
		theme:  t,
		styles: s,
		mode:   msgs.ModeNormal,
	}
}

// SetConnection sets the push connection state.
func (m *StatusBar) SetConnection(s push.State) {
	m.state = s
}

// SetAccount sets the account name shown on the right.
func (m *StatusBar) SetAccount(name string) {
	m.account = name
}

// SetFeed sets the loaded record count and paging flags.
func (m *StatusBar) SetFeed(loaded int, hasMore, loading bool) {
	m.loaded = loaded
	m.hasMore = hasMore
	m.loading = loading
}

// SetLastCapture records when the newest capture arrived.
func (m *StatusBar) SetLastCapture(at time.Time) {
	m.lastAt = at
}

// SetMode sets the current app mode.
func (m *StatusBar) SetMode(mode msgs.AppMode) {
	m.mode = mode
}

// SetWidth sets the available width.
func (m *StatusBar) SetWidth(w int) {
	m.width = w
}

// SetMessage sets a temporary status message.
func (m *StatusBar) SetMessage(text string) {
	m.message = text
}

// Init implements tea.Model.
func (m StatusBar) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatusBar) Update(msg tea.Msg) (StatusBar, tea.Cmd) {
	switch msg.(type) {
	case clearStatusMsg:
		m.message = ""
	}
	return m, nil
}

func (m StatusBar) segment(fg lipgloss.Color, bold bool, text string) string {
	return lipgloss.NewStyle().
		Foreground(fg).
		Background(m.theme.Surface).
		Bold(bold).
		Render(text)
}

// View renders the status bar.
func (m StatusBar) View() string {
	barStyle := lipgloss.NewStyle().
		Background(m.theme.Surface).
		Foreground(m.theme.Text).
		Width(m.width)

	var leftParts []string
	leftParts = append(leftParts, m.segment(m.theme.StateColor(m.state), true, "● "+m.state.Label()))

	if m.message != "" {
		leftParts = append(leftParts, m.segment(m.theme.Text, false, m.message))
	} else {
		leftParts = append(leftParts, m.segment(m.theme.Subtext, false, countLabel(m.loaded, m.hasMore)))
		if m.loading {
			leftParts = append(leftParts, m.segment(m.theme.Yellow, false, "loading"))
		}
		if !m.lastAt.IsZero() {
			leftParts = append(leftParts, m.segment(m.theme.Muted, false, "last "+humanize.Time(m.lastAt)))
		}
	}

	left := strings.Join(leftParts, " │ ")

	modeStr := m.segment(m.theme.Mauve, true, "["+m.mode.String()+"]")

	var rightParts []string
	if m.account != "" {
		rightParts = append(rightParts, m.segment(m.theme.Teal, true, "@"+m.account))
	}
	rightParts = append(rightParts, m.segment(m.theme.Muted, false, "?:help  Ctrl+K:command"))
	hint := strings.Join(rightParts, " ")

	totalContent := lipgloss.Width(left) + lipgloss.Width(modeStr) + lipgloss.Width(hint)
	if totalContent+2 >= m.width {
		return barStyle.Render(" " + left + " " + modeStr + " " + hint)
	}

	remaining := m.width - totalContent - 2
	gap1 := remaining / 2
	gap2 := remaining - gap1

	line := " " + left +
		strings.Repeat(" ", gap1) + modeStr +
		strings.Repeat(" ", gap2) + hint

	return barStyle.Render(line)
}

func countLabel(n int, hasMore bool) string {
	noun := "requests"
	if n == 1 {
		noun = "request"
	}
	s := fmt.Sprintf("%s %s", humanize.Comma(int64(n)), noun)
	if hasMore {
		s += " (more)"
	}
	return s
}

// truncate shortens s to maxW bytes, marking the cut with "...".
func truncate(s string, maxW int) string {
	if maxW <= 0 {
		return ""
	}
	if len(s) > maxW {
		if maxW > 3 {
			return s[:maxW-3] + "..."
		}
		return s[:maxW]
	}
	return s
}
