// Package feedlist renders the live feed of captured requests.
package feedlist

import (
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"

	"github.com/sadopc/hookscope/internal/capture"
	"github.com/sadopc/hookscope/internal/feed"
	"github.com/sadopc/hookscope/internal/ui/msgs"
	"github.com/sadopc/hookscope/internal/ui/theme"
)

// Model is the feed panel: a cursor list over the loaded records.
type Model struct {
	records []capture.Record
	visible []int // indices into records that match the filter
	cursor  int   // index into visible; len(visible) is the load-more row
	offset  int   // first rendered row

	hasMore bool
	loading bool

	webhookURL string

	width   int
	height  int
	focused bool

	filtering   bool
	filterInput textinput.Model
	spinner     spinner.Model

	theme  theme.Theme
	styles theme.Styles
	now    func() time.Time
}

// New creates a feed panel. webhookURL is shown while the feed is empty.
func New(t theme.Theme, s theme.Styles, webhookURL string) Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter by method or path"
	ti.CharLimit = 128

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(t.Mauve)

	return Model{
		webhookURL:  webhookURL,
		filterInput: ti,
		spinner:     sp,
		theme:       t,
		styles:      s,
		now:         time.Now,
	}
}

// SetView replaces the records with the controller's latest view. The
// cursor stays on the selected record when it is still present, so new
// arrivals at the top do not move the selection.
func (m *Model) SetView(v feed.View) tea.Cmd {
	selected := m.SelectedID()
	startSpin := v.Loading && !m.loading

	m.records = v.Records
	m.hasMore = v.HasMore
	m.loading = v.Loading
	m.applyFilter()

	if selected != "" {
		for vi, idx := range m.visible {
			if m.records[idx].ID == selected {
				m.cursor = vi
				break
			}
		}
	}
	m.clampCursor()

	if startSpin {
		return m.spinner.Tick
	}
	return nil
}

// SelectedID returns the id of the record under the cursor, or "".
func (m Model) SelectedID() string {
	if m.cursor < len(m.visible) {
		return m.records[m.visible[m.cursor]].ID
	}
	return ""
}

// Selected returns the record under the cursor.
func (m Model) Selected() (capture.Record, bool) {
	if m.cursor < len(m.visible) {
		return m.records[m.visible[m.cursor]], true
	}
	return capture.Record{}, false
}

// Visible returns the records passing the filter, in feed order.
func (m Model) Visible() []capture.Record {
	out := make([]capture.Record, len(m.visible))
	for i, idx := range m.visible {
		out[i] = m.records[idx]
	}
	return out
}

// Filtering reports whether the filter input has focus.
func (m Model) Filtering() bool {
	return m.filtering
}

// SetSize sets the panel dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.filterInput.Width = max(w-6, 10)
	m.clampCursor()
}

// SetFocused sets whether this panel has focus.
func (m *Model) SetFocused(f bool) {
	m.focused = f
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if tick, ok := msg.(spinner.TickMsg); ok {
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(tick)
		return m, cmd
	}

	if m.filtering {
		return m.updateFilter(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) rowCount() int {
	n := len(m.visible)
	if m.loadMoreRow() {
		n++
	}
	return n
}

// loadMoreRow reports whether the trailing "Load more" row is shown.
// Filtering only narrows what is loaded, so the row is hidden then.
func (m Model) loadMoreRow() bool {
	return m.hasMore && m.filterInput.Value() == ""
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	before := m.SelectedID()

	switch msg.String() {
	case "j", "down":
		if m.cursor < m.rowCount()-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = max(0, m.rowCount()-1)
	case "ctrl+d", "pgdown":
		m.cursor = min(m.cursor+m.listHeight()/2, max(0, m.rowCount()-1))
	case "ctrl+u", "pgup":
		m.cursor = max(m.cursor-m.listHeight()/2, 0)
	case "enter", "l":
		if m.loadMoreRow() && m.cursor == len(m.visible) {
			return m, func() tea.Msg { return msgs.LoadMoreMsg{} }
		}
		if id := m.SelectedID(); id != "" {
			return m, func() tea.Msg { return msgs.FocusPanelMsg{Panel: msgs.FocusDetail} }
		}
	case "/":
		m.filtering = true
		m.filterInput.Focus()
		return m, tea.Batch(textinput.Blink, setMode(msgs.ModeFilter))
	case "esc":
		if m.filterInput.Value() != "" {
			m.filterInput.SetValue("")
			m.applyFilter()
			m.clampCursor()
		}
	}
	m.scrollToCursor()

	return m, m.selectionChanged(before)
}

func (m Model) updateFilter(msg tea.Msg) (Model, tea.Cmd) {
	before := m.SelectedID()

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter", "esc":
			m.filtering = false
			m.filterInput.Blur()
			if key.String() == "esc" {
				m.filterInput.SetValue("")
				m.applyFilter()
				m.clampCursor()
			}
			return m, tea.Batch(setMode(msgs.ModeNormal), m.selectionChanged(before))
		case "up", "down":
			m.filtering = false
			m.filterInput.Blur()
			next, cmd := m.handleKey(key)
			return next, tea.Batch(setMode(msgs.ModeNormal), cmd)
		}
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyFilter()
	m.cursor = 0
	m.offset = 0
	m.clampCursor()
	return m, tea.Batch(cmd, m.selectionChanged(before))
}

func setMode(mode msgs.AppMode) tea.Cmd {
	return func() tea.Msg { return msgs.SetModeMsg{Mode: mode} }
}

func (m Model) selectionChanged(before string) tea.Cmd {
	after := m.SelectedID()
	if after == before {
		return nil
	}
	return func() tea.Msg { return msgs.RecordSelectedMsg{ID: after} }
}

// filterSource lets fuzzy match against "METHOD path".
type filterSource []capture.Record

func (s filterSource) String(i int) string {
	return string(s[i].Method) + " " + s[i].DisplayPath()
}

func (s filterSource) Len() int { return len(s) }

func (m *Model) applyFilter() {
	m.visible = make([]int, 0, len(m.records))
	query := strings.TrimSpace(m.filterInput.Value())
	if query == "" {
		for i := range m.records {
			m.visible = append(m.visible, i)
		}
		return
	}
	for _, match := range fuzzy.FindFrom(query, filterSource(m.records)) {
		m.visible = append(m.visible, match.Index)
	}
	// Keep feed order, newest first, instead of score order.
	slices.Sort(m.visible)
}

func (m *Model) clampCursor() {
	if n := m.rowCount(); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
	m.scrollToCursor()
}

func (m *Model) scrollToCursor() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// listHeight is the number of rows available for records.
func (m Model) listHeight() int {
	h := m.height - 4 // border and title lines
	if m.filtering || m.filterInput.Value() != "" {
		h--
	}
	return max(h, 1)
}

// View implements tea.Model.
func (m Model) View() string {
	border := m.styles.UnfocusedBorder
	if m.focused {
		border = m.styles.FocusedBorder
	}

	innerW := max(m.width-2, 1)
	innerH := max(m.height-2, 1)

	title := m.styles.Title.Render("Requests")
	if m.loading {
		title += " " + m.spinner.View()
	}

	lines := []string{title, ""}
	switch {
	case len(m.records) == 0 && !m.loading:
		lines = append(lines, m.renderEmpty(innerW)...)
	case len(m.visible) == 0 && len(m.records) > 0:
		lines = append(lines, m.styles.Muted.Render("  No matches"))
	default:
		end := min(m.offset+m.listHeight(), m.rowCount())
		for row := m.offset; row < end; row++ {
			lines = append(lines, m.renderRow(row, innerW))
		}
	}

	content := fitHeight(strings.Join(lines, "\n"), innerH)
	if m.filtering || m.filterInput.Value() != "" {
		content = fitHeight(strings.Join(lines, "\n"), innerH-1) + "\n" + m.filterInput.View()
	}

	return border.
		Width(innerW).
		Height(innerH).
		Render(content)
}

func (m Model) renderEmpty(width int) []string {
	wrap := lipgloss.NewStyle().Width(max(width-2, 10))
	return []string{
		m.styles.Muted.Render(wrap.Render("No requests yet. Send a request to your webhook URL:")),
		"",
		m.styles.URL.Render(m.webhookURL),
	}
}

func (m Model) renderRow(row, width int) string {
	isCursor := m.focused && row == m.cursor
	if row == len(m.visible) {
		label := "  ↓ Load more"
		if m.loading {
			label = "  Loading..."
		}
		if isCursor {
			return m.styles.Cursor.Width(width).Render(label)
		}
		return m.styles.Hint.Render(label)
	}

	rec := m.records[m.visible[row]]
	badge := padMethod(string(rec.Method))
	when := m.relativeTime(rec)
	pathWidth := max(width-len(badge)-lipgloss.Width(when)-4, 4)
	path := truncate(rec.DisplayPath(), pathWidth)
	gap := max(width-len(badge)-lipgloss.Width(path)-lipgloss.Width(when)-3, 1)

	if isCursor {
		plain := " " + badge + " " + path + strings.Repeat(" ", gap) + when
		return m.styles.Cursor.Width(width).Render(plain)
	}
	if row == m.cursor {
		plain := " " + badge + " " + path + strings.Repeat(" ", gap) + when
		return m.styles.Selected.Width(width).Render(plain)
	}
	return " " + m.styles.MethodStyle(rec.Method).Render(badge) + " " +
		m.styles.Path.Render(path) + strings.Repeat(" ", gap) +
		m.styles.Time.Render(when)
}

func (m Model) relativeTime(rec capture.Record) string {
	if rec.RequestTime.IsZero() {
		return "unknown"
	}
	return humanize.RelTime(rec.RequestTime, m.now(), "ago", "from now")
}

// padMethod pads an HTTP method to 7 chars.
func padMethod(method string) string {
	if len(method) >= 7 {
		return method[:7]
	}
	return method + strings.Repeat(" ", 7-len(method))
}

func truncate(s string, w int) string {
	if lipgloss.Width(s) <= w {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > w {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// fitHeight truncates or pads content to the given height.
func fitHeight(content string, h int) string {
	lines := strings.Split(content, "\n")
	if len(lines) > h {
		lines = lines[:h]
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
