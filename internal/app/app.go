package app

import (
	"log/slog"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/hookscope/internal/capture"
	"github.com/sadopc/hookscope/internal/feed"
	"github.com/sadopc/hookscope/internal/logging"
	"github.com/sadopc/hookscope/internal/ui/components"
	"github.com/sadopc/hookscope/internal/ui/layout"
	"github.com/sadopc/hookscope/internal/ui/msgs"
	"github.com/sadopc/hookscope/internal/ui/panels/detail"
	"github.com/sadopc/hookscope/internal/ui/panels/feedlist"
	"github.com/sadopc/hookscope/internal/ui/theme"
)

// Feed is the part of the sync controller the UI drives. Every call only
// enqueues work; results arrive later as msgs.FeedViewMsg and
// msgs.NoticeMsg through a Bridge.
type Feed interface {
	LoadInitial()
	LoadMore()
	DeleteOne(id string)
	ClearAll()
}

// Options configures the root model.
type Options struct {
	Feed       Feed
	Account    string
	WebhookURL string

	// Theme is a built-in or custom theme name; ThemeDir holds custom
	// YAML themes.
	Theme    string
	ThemeDir string

	// ExportDir receives HAR exports. Empty means the working directory.
	ExportDir string

	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
	Logger    *slog.Logger
}

// App is the root Bubble Tea model.
type App struct {
	feedList feedlist.Model
	detail   detail.Model

	statusBar      components.StatusBar
	commandPalette components.CommandPalette
	help           components.Help
	toast          components.Toast
	modal          components.Modal

	feed       Feed
	account    string
	webhookURL string
	themeDir   string
	exportDir  string
	clipboard  func(string) error
	logger     *slog.Logger

	view   feed.View
	mode   msgs.AppMode
	focus  msgs.PanelFocus
	layout layout.PanelLayout
	keys   KeyMap

	theme  theme.Theme
	styles theme.Styles

	width  int
	height int
	ready  bool
}

// New creates a new App model.
func New(opts Options) App {
	t := theme.Resolve(opts.Theme, opts.ThemeDir)
	s := theme.NewStyles(t)

	a := App{
		feed:       opts.Feed,
		account:    opts.Account,
		webhookURL: opts.WebhookURL,
		themeDir:   opts.ThemeDir,
		exportDir:  opts.ExportDir,
		clipboard:  opts.Clipboard,
		logger:     opts.Logger,

		mode:  msgs.ModeNormal,
		focus: msgs.FocusFeed,
		keys:  DefaultKeyMap(),
	}
	if a.clipboard == nil {
		a.clipboard = clipboard.WriteAll
	}
	if a.logger == nil {
		a.logger = logging.Discard()
	}
	a.applyTheme(t, s)
	return a
}

// applyTheme rebuilds every component with t and restores the state they
// display.
func (a *App) applyTheme(t theme.Theme, s theme.Styles) {
	a.theme = t
	a.styles = s

	a.feedList = feedlist.New(t, s, a.webhookURL)
	a.detail = detail.New(t, s)
	a.statusBar = components.NewStatusBar(t, s)
	a.commandPalette = components.NewCommandPalette(t, s)
	a.help = components.NewHelp(t, s, a.keys.HelpSections()...)
	a.toast = components.NewToast(t, s)
	a.modal = components.NewModal(t, s)

	a.statusBar.SetAccount(a.account)
	a.statusBar.SetMode(a.mode)
	a.feedList.SetView(a.view)
	a.statusBar.SetFeed(len(a.view.Records), a.view.HasMore, a.view.Loading)
	a.statusBar.SetLastCapture(newestCapture(a.view.Records))
	a.syncDetail()

	if a.ready {
		a.resizePanels()
	}
	a.updateFocus()
}

func (a App) Init() tea.Cmd {
	f := a.feed
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		f.LoadInitial()
		return nil
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout = layout.HandleResize(msg)
		a.resizePanels()
		a.ready = true
		return a, nil

	case tea.KeyMsg:
		if a.commandPalette.Visible {
			var cmd tea.Cmd
			a.commandPalette, cmd = a.commandPalette.Update(msg)
			return a, cmd
		}
		if a.help.Visible {
			var cmd tea.Cmd
			a.help, cmd = a.help.Update(msg)
			return a, cmd
		}
		if a.modal.Visible {
			var cmd tea.Cmd
			a.modal, cmd = a.modal.Update(msg)
			return a, cmd
		}

		if a.focus == msgs.FocusFeed && a.feedList.Filtering() {
			var cmd tea.Cmd
			a.feedList, cmd = a.feedList.Update(msg)
			return a, cmd
		}

		if cmd := a.handleGlobalKey(msg); cmd != nil {
			return a, cmd
		}
		return a.handlePanelKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.feedList, cmd = a.feedList.Update(msg)
		return a, cmd

	case msgs.FeedViewMsg:
		return a.handleFeedView(msg.View)

	case msgs.NoticeMsg:
		return a.handleNotice(msg.Notice)

	case msgs.ConnStateMsg:
		a.statusBar.SetConnection(msg.State)
		return a, nil

	case msgs.RecordSelectedMsg:
		rec, ok := a.findRecord(msg.ID)
		a.detail.SetRecord(rec, ok)
		return a, nil

	case msgs.LoadMoreMsg:
		return a, a.feedCall(func(f Feed) { f.LoadMore() })

	case msgs.RefreshMsg:
		return a, a.feedCall(func(f Feed) { f.LoadInitial() })

	case msgs.DeleteRecordMsg:
		if msg.ID == "" {
			return a, nil
		}
		id := msg.ID
		return a, a.feedCall(func(f Feed) { f.DeleteOne(id) })

	case msgs.ConfirmClearMsg:
		if len(a.view.Records) == 0 {
			cmd := a.toast.ShowLevel("Nothing to delete", components.ToastInfo, 2*time.Second)
			return a, cmd
		}
		a.modal.Show("Delete all requests?",
			"Every captured request of @"+a.account+" will be removed from the server.",
			msgs.ClearAllMsg{})
		a.mode = msgs.ModeModal
		a.statusBar.SetMode(a.mode)
		return a, nil

	case msgs.ClearAllMsg:
		return a, a.feedCall(func(f Feed) { f.ClearAll() })

	case msgs.CopyWebhookURLMsg:
		return a.copyToClipboard(a.webhookURL, "Copied webhook URL")

	case msgs.CopyCurlMsg:
		return a.copyAsCurl()

	case msgs.CopyBodyMsg:
		return a.copyBody()

	case msgs.ExportHARMsg:
		return a.exportHAR()

	case msgs.ExportDoneMsg:
		if msg.Err != nil {
			a.logger.Error("export HAR", "error", msg.Err)
			cmd := a.toast.Show("Export failed: "+msg.Err.Error(), true, 3*time.Second)
			return a, cmd
		}
		cmd := a.toast.Show(exportSummary(msg), false, 3*time.Second)
		return a, cmd

	case msgs.SwitchThemeMsg:
		return a.switchTheme(msg.Name)

	case msgs.OpenCommandPaletteMsg:
		a.mode = msgs.ModeCommandPalette
		a.statusBar.SetMode(a.mode)
		a.commandPalette.Open()
		return a, nil

	case msgs.ShowHelpMsg:
		a.mode = msgs.ModeHelp
		a.statusBar.SetMode(a.mode)
		a.help.Toggle()
		return a, nil

	case msgs.SetModeMsg:
		a.mode = msg.Mode
		a.statusBar.SetMode(msg.Mode)
		return a, nil

	case msgs.StatusMsg:
		a.statusBar.SetMessage(msg.Text)
		if msg.Duration > 0 {
			cmds = append(cmds, components.ClearStatusAfter(msg.Duration))
		}
		return a, tea.Batch(cmds...)

	case msgs.ToastMsg:
		cmd := a.toast.Show(msg.Text, msg.IsError, msg.Duration)
		return a, cmd

	case msgs.FocusPanelMsg:
		a.focus = msg.Panel
		a.updateFocus()
		return a, nil

	case msgs.CycleFocusMsg:
		a.cycleFocus()
		return a, nil
	}

	var cmd tea.Cmd
	a.toast, cmd = a.toast.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	a.statusBar, cmd = a.statusBar.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	a.detail, cmd = a.detail.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

func (a App) handleGlobalKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.ForceQuit):
		return tea.Quit
	case key.Matches(msg, a.keys.CommandPalette):
		return func() tea.Msg { return msgs.OpenCommandPaletteMsg{} }
	}
	return nil
}

func (a App) handlePanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.CycleFocus):
		a.cycleFocus()
		return a, nil
	case key.Matches(msg, a.keys.Help):
		return a, func() tea.Msg { return msgs.ShowHelpMsg{} }
	case key.Matches(msg, a.keys.Refresh):
		return a, func() tea.Msg { return msgs.RefreshMsg{} }
	case key.Matches(msg, a.keys.LoadMore):
		if !a.view.HasMore {
			return a, nil
		}
		return a, func() tea.Msg { return msgs.LoadMoreMsg{} }
	case key.Matches(msg, a.keys.CopyURL):
		return a, func() tea.Msg { return msgs.CopyWebhookURLMsg{} }
	case key.Matches(msg, a.keys.CopyCurl):
		return a, func() tea.Msg { return msgs.CopyCurlMsg{} }
	case key.Matches(msg, a.keys.CopyBody):
		return a, func() tea.Msg { return msgs.CopyBodyMsg{} }
	case key.Matches(msg, a.keys.ExportHAR):
		return a, func() tea.Msg { return msgs.ExportHARMsg{} }
	case key.Matches(msg, a.keys.Theme):
		return a, func() tea.Msg { return msgs.SwitchThemeMsg{} }
	case key.Matches(msg, a.keys.Delete):
		id := a.selectedID()
		if id == "" {
			return a, nil
		}
		return a, func() tea.Msg { return msgs.DeleteRecordMsg{ID: id} }
	case key.Matches(msg, a.keys.ClearAll):
		return a, func() tea.Msg { return msgs.ConfirmClearMsg{} }
	case a.focus == msgs.FocusDetail && key.Matches(msg, a.keys.Back):
		a.focus = msgs.FocusFeed
		a.updateFocus()
		return a, nil
	}

	var cmd tea.Cmd
	switch a.focus {
	case msgs.FocusFeed:
		a.feedList, cmd = a.feedList.Update(msg)
	case msgs.FocusDetail:
		a.detail, cmd = a.detail.Update(msg)
	}
	return a, cmd
}

func (a App) handleFeedView(v feed.View) (tea.Model, tea.Cmd) {
	a.view = v
	cmd := a.feedList.SetView(v)
	a.statusBar.SetFeed(len(v.Records), v.HasMore, v.Loading)
	a.statusBar.SetLastCapture(newestCapture(v.Records))
	a.syncDetail()
	return a, cmd
}

func (a App) handleNotice(n feed.Notice) (tea.Model, tea.Cmd) {
	switch n.Kind {
	case feed.NoticeNewRequest:
		cmd := a.toast.ShowLevel(n.Text, components.ToastInfo, 3*time.Second)
		return a, cmd
	case feed.NoticeError:
		if n.Err != nil {
			a.logger.Warn("feed", "notice", n.Text, "error", n.Err)
		}
		cmd := a.toast.Show(n.Text, true, 4*time.Second)
		return a, cmd
	default:
		cmd := a.toast.ShowLevel(n.Text, components.ToastSuccess, 3*time.Second)
		return a, cmd
	}
}

// syncDetail points the detail panel at the feed selection. A selected
// record that vanished from the view shows the not-found state.
func (a *App) syncDetail() {
	id := a.feedList.SelectedID()
	if id == "" {
		a.detail.Clear()
		return
	}
	rec, ok := a.findRecord(id)
	a.detail.SetRecord(rec, ok)
}

func (a App) findRecord(id string) (capture.Record, bool) {
	for _, rec := range a.view.Records {
		if rec.ID == id {
			return rec, true
		}
	}
	return capture.Record{}, false
}

func (a App) selectedID() string {
	if a.focus == msgs.FocusDetail && a.detail.RecordID() != "" {
		return a.detail.RecordID()
	}
	return a.feedList.SelectedID()
}

func (a App) selectedRecord() (capture.Record, bool) {
	id := a.selectedID()
	if id == "" {
		return capture.Record{}, false
	}
	return a.findRecord(id)
}

// feedCall runs fn off the update loop; controller calls only enqueue.
func (a App) feedCall(fn func(Feed)) tea.Cmd {
	f := a.feed
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		fn(f)
		return nil
	}
}

func (a *App) cycleFocus() {
	a.focus = a.focus.Next()
	a.logger.Debug("focus changed", "panel", a.focus)
	a.updateFocus()
}

func (a *App) updateFocus() {
	a.feedList.SetFocused(a.focus == msgs.FocusFeed)
	a.detail.SetFocused(a.focus == msgs.FocusDetail)
}

func (a *App) resizePanels() {
	l := a.layout
	a.feedList.SetSize(l.FeedWidth, l.ContentHeight)
	a.detail.SetSize(l.DetailWidth, l.ContentHeight)
	a.statusBar.SetWidth(a.width)
	a.help.SetSize(a.width, a.height)
	a.updateFocus()
}

func newestCapture(records []capture.Record) time.Time {
	var newest time.Time
	for _, rec := range records {
		if rec.RequestTime.After(newest) {
			newest = rec.RequestTime
		}
	}
	return newest
}

func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	header := a.renderHeader()

	var panels string
	if a.layout.Stacked {
		if a.focus == msgs.FocusDetail {
			panels = a.detail.View()
		} else {
			panels = a.feedList.View()
		}
	} else {
		panels = lipgloss.JoinHorizontal(lipgloss.Top, a.feedList.View(), a.detail.View())
	}

	statusBar := a.statusBar.View()
	main := lipgloss.JoinVertical(lipgloss.Left, header, panels, statusBar)

	if a.commandPalette.Visible {
		main = overlayCenter(main, a.commandPalette.View(), a.width, a.height)
	}
	if a.help.Visible {
		main = overlayCenter(main, a.help.View(), a.width, a.height)
	}
	if a.modal.Visible {
		main = overlayCenter(main, a.modal.View(), a.width, a.height)
	}
	if a.toast.Visible {
		main = overlayTopRight(main, a.toast.View(), a.width)
	}

	return main
}

func (a App) renderHeader() string {
	title := a.styles.Title.Render("hookscope")
	if a.account != "" {
		title += " " + a.styles.Key.Render("@"+a.account)
	}
	url := a.styles.URL.Render(a.webhookURL)
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(url) - 2
	if gap < 1 {
		return lipgloss.NewStyle().MaxWidth(a.width).Render(title)
	}
	return " " + title + lipgloss.NewStyle().Width(gap).Render("") + url + " "
}

func overlayCenter(_, overlay string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay,
		lipgloss.WithWhitespaceChars(" "),
	)
}

func overlayTopRight(bg, overlay string, width int) string {
	overlayWidth := lipgloss.Width(overlay)
	gap := width - overlayWidth - 2
	if gap < 0 {
		gap = 0
	}
	positioned := lipgloss.NewStyle().MarginLeft(gap).Render(overlay)
	return positioned + "\n" + bg
}
