package layout

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestCalculate_WideScreen(t *testing.T) {
	l := Calculate(160, 40)

	if l.Stacked {
		t.Error("should not stack at 160 cols")
	}
	if l.FeedWidth < minFeedWidth || l.FeedWidth > maxFeedWidth {
		t.Errorf("feed width out of range: %d", l.FeedWidth)
	}
	if total := l.FeedWidth + l.DetailWidth; total != 160 {
		t.Errorf("panel widths should sum to 160, got %d", total)
	}
	if l.ContentHeight != 38 {
		t.Errorf("ContentHeight = %d, want 38", l.ContentHeight)
	}
}

func TestCalculate_MediumScreen(t *testing.T) {
	l := Calculate(80, 30)

	if l.Stacked {
		t.Error("should not stack at 80 cols")
	}
	if l.FeedWidth != minFeedWidth {
		t.Errorf("FeedWidth = %d, want %d", l.FeedWidth, minFeedWidth)
	}
}

func TestCalculate_NarrowScreen(t *testing.T) {
	l := Calculate(50, 20)

	if !l.Stacked {
		t.Error("should stack at 50 cols")
	}
	if l.FeedWidth != 50 || l.DetailWidth != 50 {
		t.Errorf("stacked panels should use full width, got %d/%d", l.FeedWidth, l.DetailWidth)
	}
}

func TestCalculate_TinyHeight(t *testing.T) {
	l := Calculate(100, 1)
	if l.ContentHeight != 1 {
		t.Errorf("ContentHeight = %d, want 1", l.ContentHeight)
	}
}

func TestHandleResize(t *testing.T) {
	l := HandleResize(tea.WindowSizeMsg{Width: 120, Height: 30})
	if l.Width != 120 || l.Height != 30 {
		t.Errorf("unexpected layout %+v", l)
	}
}
