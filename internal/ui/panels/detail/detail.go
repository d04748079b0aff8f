// Package detail renders one captured request.
package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sadopc/hookscope/internal/capture"
	"github.com/sadopc/hookscope/internal/ui/components"
	"github.com/sadopc/hookscope/internal/ui/theme"
)

const (
	tabOverview = iota
	tabHeaders
	tabBody
	tabResponse
)

// Model is the detail panel with Overview, Headers, Body and Response tabs.
type Model struct {
	tabs     components.TabBar
	viewport viewport.Model

	record  capture.Record
	state   state
	focused bool
	wrap    bool
	width   int
	height  int

	theme  theme.Theme
	styles theme.Styles
}

type state int

const (
	stateEmpty state = iota
	stateRecord
	stateMissing
)

// New creates a detail panel.
func New(t theme.Theme, s theme.Styles) Model {
	return Model{
		tabs:     components.NewTabBar(t, s, "Overview", "Headers", "Body", "Response"),
		viewport: viewport.New(0, 0),
		theme:    t,
		styles:   s,
	}
}

// SetRecord shows rec. A record that was selected but is no longer cached
// is reported with ok false.
func (m *Model) SetRecord(rec capture.Record, ok bool) {
	if !ok {
		m.record = capture.Record{}
		m.state = stateMissing
		return
	}
	if rec.ID != m.record.ID {
		m.viewport.GotoTop()
	}
	m.record = rec
	m.state = stateRecord
	m.render()
}

// Clear shows the placeholder for an empty selection.
func (m *Model) Clear() {
	m.record = capture.Record{}
	m.state = stateEmpty
}

// RecordID returns the id of the shown record, or "".
func (m Model) RecordID() string {
	return m.record.ID
}

// ActiveTab returns the name of the active tab.
func (m Model) ActiveTab() string {
	return m.tabs.ActiveName()
}

// SetFocused sets whether this panel has focus.
func (m *Model) SetFocused(f bool) {
	m.focused = f
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h

	// Reserve space: 2 for border, 1 for tab bar, 1 for summary line
	m.viewport.Width = max(w-2, 0)
	m.viewport.Height = max(h-4, 0)
	m.tabs.SetWidth(max(w-2, 0))
	m.render()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "[", "]", "1", "2", "3", "4":
			before := m.tabs.Active()
			m.tabs, _ = m.tabs.Update(key)
			if m.tabs.Active() != before {
				m.viewport.GotoTop()
				m.render()
			}
			return m, nil
		case "w":
			m.wrap = !m.wrap
			m.render()
			return m, nil
		case "g":
			m.viewport.GotoTop()
			return m, nil
		case "G":
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) render() {
	if m.state != stateRecord {
		return
	}
	var content string
	switch m.tabs.Active() {
	case tabOverview:
		content = m.renderOverview()
	case tabHeaders:
		content = m.renderPairs(m.record.Headers, "No headers")
	case tabBody:
		content = m.renderPayload(m.record.Body, contentType(m.record), "No body")
	case tabResponse:
		content = m.renderPayload(m.record.Response, "application/json", "No response")
	}
	if m.wrap && m.viewport.Width > 0 {
		content = wrapText(content, m.viewport.Width)
	}
	m.viewport.SetContent(content)
}

func (m Model) renderOverview() string {
	rec := m.record
	var b strings.Builder
	row := func(k, v string) {
		fmt.Fprintf(&b, "%s%s\n", m.styles.Key.Width(16).Render(k), m.styles.Value.Render(v))
	}

	row("Method", m.styles.MethodStyle(rec.Method).Render(string(rec.Method)))
	row("Path", rec.DisplayPath())
	when := rec.DisplayTime()
	if !rec.RequestTime.IsZero() {
		when += " (" + humanize.Time(rec.RequestTime) + ")"
	}
	row("Time", when)
	row("Response time", fmt.Sprintf("%d ms", rec.ResponseTimeMs))
	row("ID", rec.ID)
	if ct := contentType(rec); ct != "" {
		row("Content-Type", ct)
	}
	if n := len(rec.Body.Text()); n > 0 {
		row("Body size", humanize.Bytes(uint64(n)))
	}
	row("Headers", humanize.Comma(int64(len(rec.Headers))))

	b.WriteString("\n")
	b.WriteString(m.styles.Title.Render("Query Parameters"))
	b.WriteString("\n")
	b.WriteString(m.renderPairs(rec.QueryParams, "No query parameters"))
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderPairs(pairs capture.Pairs, empty string) string {
	if len(pairs) == 0 {
		return m.styles.Muted.Render(empty)
	}
	var b strings.Builder
	for _, p := range pairs {
		key := m.styles.Key.Render(p.Name)
		sep := m.styles.Muted.Render(" : ")
		val := m.styles.Normal.Render(p.Value)
		fmt.Fprintf(&b, "%s%s%s\n", key, sep, val)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderPayload(p capture.Payload, ct, empty string) string {
	if p.IsEmpty() {
		return m.styles.Muted.Render(empty)
	}
	src := p.Pretty()
	lexer := detectLexer(ct)
	if lexer == "text" && looksLikeJSON(src) {
		lexer = "json"
	}
	return highlight(src, lexer)
}

// View implements tea.Model.
func (m Model) View() string {
	border := m.styles.UnfocusedBorder
	if m.focused {
		border = m.styles.FocusedBorder
	}

	innerW := max(m.width-2, 0)
	innerH := max(m.height-2, 0)

	var content string
	switch m.state {
	case stateEmpty:
		content = lipgloss.Place(innerW, innerH, lipgloss.Center, lipgloss.Center,
			m.styles.Muted.Render("Select a request to see its details"))
	case stateMissing:
		content = lipgloss.Place(innerW, innerH, lipgloss.Center, lipgloss.Center,
			m.styles.Error.Render("Request details not found"))
	default:
		body := lipgloss.NewStyle().Width(innerW).Height(max(innerH-2, 0)).Render(m.viewport.View())
		content = lipgloss.JoinVertical(lipgloss.Left, m.tabs.View(), m.summary(innerW), body)
	}

	return border.Width(innerW).Height(innerH).Render(content)
}

func (m Model) summary(width int) string {
	rec := m.record
	line := m.styles.MethodStyle(rec.Method).Render(string(rec.Method)) + " " +
		m.styles.Path.Render(rec.DisplayPath()) + "  " +
		m.styles.Time.Render(rec.DisplayTime())
	return lipgloss.NewStyle().Width(width).MaxHeight(1).Render(line)
}

func contentType(rec capture.Record) string {
	ct, _ := rec.Headers.Get("Content-Type")
	return ct
}

func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}
