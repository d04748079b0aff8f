// Package msgs defines the Bubble Tea messages exchanged between the
// root model and its components.
package msgs

import (
	"time"

	"github.com/sadopc/hookscope/internal/feed"
	"github.com/sadopc/hookscope/internal/push"
)

// PanelFocus identifies the focused panel.
type PanelFocus int

const (
	FocusFeed PanelFocus = iota
	FocusDetail
)

// Next returns the panel that tab moves focus to.
func (f PanelFocus) Next() PanelFocus {
	if f == FocusFeed {
		return FocusDetail
	}
	return FocusFeed
}

func (f PanelFocus) String() string {
	if f == FocusDetail {
		return "detail"
	}
	return "feed"
}

// AppMode represents the current input mode.
type AppMode int

const (
	ModeNormal AppMode = iota
	ModeFilter
	ModeCommandPalette
	ModeModal
	ModeHelp
)

func (m AppMode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeFilter:
		return "FILTER"
	case ModeCommandPalette:
		return "COMMAND"
	case ModeModal:
		return "MODAL"
	case ModeHelp:
		return "HELP"
	default:
		return "UNKNOWN"
	}
}

// FocusPanelMsg requests focus change to a specific panel.
type FocusPanelMsg struct {
	Panel PanelFocus
}

// CycleFocusMsg cycles focus between the panels.
type CycleFocusMsg struct{}

// FeedViewMsg carries a fresh view of the feed from the sync controller.
type FeedViewMsg struct {
	View feed.View
}

// NoticeMsg carries a notice raised by the sync controller.
type NoticeMsg struct {
	Notice feed.Notice
}

// ConnStateMsg reports a change of the push connection state.
type ConnStateMsg struct {
	State push.State
}

// RecordSelectedMsg is emitted when the cursor moves to a record.
type RecordSelectedMsg struct {
	ID string
}

// LoadMoreMsg requests the next page of records.
type LoadMoreMsg struct{}

// RefreshMsg reloads the feed from the first page.
type RefreshMsg struct{}

// DeleteRecordMsg requests deletion of one record.
type DeleteRecordMsg struct {
	ID string
}

// ConfirmClearMsg opens the confirmation dialog for clearing all records.
type ConfirmClearMsg struct{}

// ClearAllMsg deletes every record of the account.
type ClearAllMsg struct{}

// CopyWebhookURLMsg copies the webhook URL to the clipboard.
type CopyWebhookURLMsg struct{}

// CopyCurlMsg copies the selected record as a cURL command.
type CopyCurlMsg struct{}

// CopyBodyMsg copies the body of the selected record.
type CopyBodyMsg struct{}

// ExportHARMsg writes the loaded records to a HAR file.
type ExportHARMsg struct{}

// ExportDoneMsg reports the outcome of an export.
type ExportDoneMsg struct {
	Path  string
	Count int
	Err   error
}

// OpenCommandPaletteMsg opens the command palette.
type OpenCommandPaletteMsg struct{}

// ShowHelpMsg toggles the help overlay.
type ShowHelpMsg struct{}

// SetModeMsg changes the app mode.
type SetModeMsg struct {
	Mode AppMode
}

// StatusMsg sets a temporary status bar message.
type StatusMsg struct {
	Text     string
	Duration time.Duration
}

// ToastMsg shows a toast notification.
type ToastMsg struct {
	Text     string
	Duration time.Duration
	IsError  bool
}

// SwitchThemeMsg requests switching to a named theme.
type SwitchThemeMsg struct {
	Name string
}
