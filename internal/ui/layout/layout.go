package layout

import tea "github.com/charmbracelet/bubbletea"

// PanelLayout holds calculated dimensions for the feed and detail panels.
type PanelLayout struct {
	Width  int
	Height int

	FeedWidth   int
	DetailWidth int

	ContentHeight int // height minus header and status bar

	// Stacked shows a single panel at a time on narrow terminals.
	Stacked bool
}

const (
	headerHeight    = 1
	statusBarHeight = 1
	minFeedWidth    = 36
	maxFeedWidth    = 72
	stackBelow      = 70
)

// Calculate computes the panel layout from terminal dimensions.
func Calculate(width, height int) PanelLayout {
	l := PanelLayout{
		Width:         width,
		Height:        height,
		ContentHeight: height - headerHeight - statusBarHeight,
	}

	if l.ContentHeight < 1 {
		l.ContentHeight = 1
	}

	if width < stackBelow {
		l.Stacked = true
		l.FeedWidth = width
		l.DetailWidth = width
		return l
	}

	l.FeedWidth = clamp(width*2/5, minFeedWidth, maxFeedWidth)
	l.DetailWidth = width - l.FeedWidth
	return l
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HandleResize recomputes the layout for a new terminal size.
func HandleResize(msg tea.WindowSizeMsg) PanelLayout {
	return Calculate(msg.Width, msg.Height)
}
