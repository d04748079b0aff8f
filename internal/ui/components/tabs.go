package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/hookscope/internal/ui/theme"
)

var (
	prevTabKey = key.NewBinding(key.WithKeys("["))
	nextTabKey = key.NewBinding(key.WithKeys("]"))
)

// TabBar is a horizontal row of named tabs.
type TabBar struct {
	tabs   []string
	active int
	width  int
	theme  theme.Theme
	styles theme.Styles
}

// NewTabBar creates a tab bar with the given tab names.
func NewTabBar(t theme.Theme, s theme.Styles, tabs ...string) TabBar {
	return TabBar{
		tabs:   tabs,
		theme:  t,
		styles: s,
	}
}

// Active returns the active tab index.
func (m TabBar) Active() int { return m.active }

// ActiveName returns the name of the active tab.
func (m TabBar) ActiveName() string {
	if m.active < len(m.tabs) {
		return m.tabs[m.active]
	}
	return ""
}

// SetActive sets the active tab index.
func (m *TabBar) SetActive(index int) {
	if index >= 0 && index < len(m.tabs) {
		m.active = index
	}
}

// SetWidth sets the available width.
func (m *TabBar) SetWidth(w int) {
	m.width = w
}

// Init implements tea.Model.
func (m TabBar) Init() tea.Cmd {
	return nil
}

// Update switches tabs on [ and ] (wrapping) and on the digit keys.
func (m TabBar) Update(msg tea.Msg) (TabBar, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || len(m.tabs) == 0 {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, prevTabKey):
		m.active = (m.active - 1 + len(m.tabs)) % len(m.tabs)
	case key.Matches(keyMsg, nextTabKey):
		m.active = (m.active + 1) % len(m.tabs)
	default:
		if n, err := strconv.Atoi(keyMsg.String()); err == nil {
			m.SetActive(n - 1)
		}
	}
	return m, nil
}

// View renders the tab bar.
func (m TabBar) View() string {
	if len(m.tabs) == 0 {
		return ""
	}

	sep := lipgloss.NewStyle().Foreground(m.theme.Muted).Render("│")

	maxTabWidth := 20
	if m.width > 0 {
		perTab := (m.width - len(m.tabs)) / len(m.tabs)
		if perTab < maxTabWidth {
			maxTabWidth = perTab
		}
	}
	if maxTabWidth < 6 {
		maxTabWidth = 6
	}

	parts := make([]string, 0, len(m.tabs))
	for i, name := range m.tabs {
		label := strconv.Itoa(i+1) + " " + truncate(name, maxTabWidth-6)
		if i == m.active {
			parts = append(parts, m.styles.TabActive.Render(label))
		} else {
			parts = append(parts, m.styles.TabInactive.Render(label))
		}
	}

	rendered := strings.Join(parts, sep)
	if w := lipgloss.Width(rendered); w < m.width {
		rendered += strings.Repeat(" ", m.width-w)
	}
	return rendered
}
