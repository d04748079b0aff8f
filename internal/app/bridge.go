package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/hookscope/internal/feed"
	"github.com/sadopc/hookscope/internal/push"
	"github.com/sadopc/hookscope/internal/ui/msgs"
)

// Bridge forwards sync controller and push manager callbacks into a running
// Bubble Tea program. Callbacks arriving before Attach are dropped; the
// controller republishes its view on every change.
type Bridge struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

// NewBridge returns an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach routes messages to send, usually (*tea.Program).Send.
func (b *Bridge) Attach(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

func (b *Bridge) forward(msg tea.Msg) {
	b.mu.RLock()
	send := b.send
	b.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}

// Render implements feed.Presenter.
func (b *Bridge) Render(v feed.View) {
	b.forward(msgs.FeedViewMsg{View: v})
}

// Notify implements feed.Notifier.
func (b *Bridge) Notify(n feed.Notice) {
	b.forward(msgs.NoticeMsg{Notice: n})
}

// Status is a push.Manager status callback.
func (b *Bridge) Status(s push.State) {
	b.forward(msgs.ConnStateMsg{State: s})
}
