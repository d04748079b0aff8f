package feedlist

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/hookscope/internal/capture"
	"github.com/sadopc/hookscope/internal/feed"
	"github.com/sadopc/hookscope/internal/ui/msgs"
	"github.com/sadopc/hookscope/internal/ui/theme"
)

const hookURL = "https://hooks.example.com/api/@alice"

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newFeedModelForTest() Model {
	th := theme.Default()
	m := New(th, theme.NewStyles(th), hookURL)
	m.now = func() time.Time { return now }
	m.SetSize(80, 20)
	m.SetFocused(true)
	return m
}

func rec(id string, method capture.Method, path string, age time.Duration) capture.Record {
	return capture.Record{ID: id, Method: method, Path: path, RequestTime: now.Add(-age)}
}

func sampleView() feed.View {
	return feed.View{Records: []capture.Record{
		rec("c", capture.MethodPOST, "/api/@alice/orders", time.Minute),
		rec("b", capture.MethodGET, "/api/@alice/users", 2*time.Hour),
		rec("a", capture.MethodDELETE, "/api/@alice/users/7", 3*time.Hour),
	}}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func selected(t *testing.T, cmd tea.Cmd) string {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(msgs.RecordSelectedMsg)
	if !ok {
		t.Fatalf("expected RecordSelectedMsg, got %T", cmd())
	}
	return msg.ID
}

func TestFeedList_EmptyState(t *testing.T) {
	m := newFeedModelForTest()
	m.SetView(feed.View{})

	view := m.View()
	if !strings.Contains(view, "No requests yet") {
		t.Errorf("empty feed should explain itself, got:\n%s", view)
	}
	if !strings.Contains(view, hookURL) {
		t.Errorf("empty feed should show the webhook URL")
	}
	if m.SelectedID() != "" {
		t.Errorf("SelectedID() = %q, want empty", m.SelectedID())
	}
}

func TestFeedList_RendersRows(t *testing.T) {
	m := newFeedModelForTest()
	m.SetView(sampleView())

	view := m.View()
	for _, want := range []string{"POST", "/api/@alice/orders", "1 minute ago", "DELETE", "3 hours ago"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestFeedList_UnknownTime(t *testing.T) {
	m := newFeedModelForTest()
	m.SetView(feed.View{Records: []capture.Record{{ID: "x", Method: capture.MethodGET}}})
	view := m.View()
	if !strings.Contains(view, "unknown") || !strings.Contains(view, "GET     /") {
		t.Errorf("unexpected row:\n%s", view)
	}
}

func TestFeedList_Navigation(t *testing.T) {
	m := newFeedModelForTest()
	m.SetView(sampleView())

	if m.SelectedID() != "c" {
		t.Fatalf("initial selection = %q, want c", m.SelectedID())
	}

	m, cmd := m.Update(runes("j"))
	if got := selected(t, cmd); got != "b" {
		t.Fatalf("after j selected %q, want b", got)
	}

	m, cmd = m.Update(runes("G"))
	if got := selected(t, cmd); got != "a" {
		t.Fatalf("after G selected %q, want a", got)
	}

	m, cmd = m.Update(runes("j"))
	if cmd != nil {
		t.Fatal("moving past the end should not change the selection")
	}

	m, _ = m.Update(runes("g"))
	if m.SelectedID() != "c" {
		t.Fatalf("after g selected %q, want c", m.SelectedID())
	}
}

func TestFeedList_SelectionSurvivesNewArrivals(t *testing.T) {
	m := newFeedModelForTest()
	m.SetView(sampleView())
	m, _ = m.Update(runes("j"))

	v := sampleView()
	v.Records = append([]capture.Record{rec("d", capture.MethodPUT, "/new", 0)}, v.Records...)
	m.SetView(v)

	if m.SelectedID() != "b" {
		t.Fatalf("selection moved to %q after a push, want b", m.SelectedID())
	}
}

func TestFeedList_SelectionClampsAfterDelete(t *testing.T) {
	m := newFeedModelForTest()
	m.SetView(sampleView())
	m, _ = m.Update(runes("G"))

	v := sampleView()
	v.Records = v.Records[:2]
	m.SetView(v)

	if m.SelectedID() != "b" {
		t.Fatalf("SelectedID() = %q, want b", m.SelectedID())
	}
}

func TestFeedList_LoadMoreRow(t *testing.T) {
	m := newFeedModelForTest()
	v := sampleView()
	v.HasMore = true
	m.SetView(v)

	if !strings.Contains(m.View(), "Load more") {
		t.Fatal("expected a load more row")
	}

	m, _ = m.Update(runes("G"))
	if m.SelectedID() != "" {
		t.Fatalf("cursor should sit on the load more row, got %q", m.SelectedID())
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter on load more should emit a command")
	}
	if _, ok := cmd().(msgs.LoadMoreMsg); !ok {
		t.Fatalf("expected LoadMoreMsg, got %T", cmd())
	}
}

func TestFeedList_EnterFocusesDetail(t *testing.T) {
	m := newFeedModelForTest()
	m.SetView(sampleView())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a focus command")
	}
	focus, ok := cmd().(msgs.FocusPanelMsg)
	if !ok || focus.Panel != msgs.FocusDetail {
		t.Fatalf("expected FocusPanelMsg{FocusDetail}, got %#v", cmd())
	}
}

func TestFeedList_Filter(t *testing.T) {
	m := newFeedModelForTest()
	v := sampleView()
	v.HasMore = true
	m.SetView(v)

	m, _ = m.Update(runes("/"))
	if !m.Filtering() {
		t.Fatal("expected filtering mode enabled")
	}
	for _, r := range "users" {
		m, _ = m.Update(runes(string(r)))
	}

	got := m.Visible()
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("filtered records = %+v, want b then a", got)
	}
	if strings.Contains(m.View(), "Load more") {
		t.Error("load more row should be hidden while filtered")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.Filtering() {
		t.Fatal("enter should leave the filter input")
	}
	if len(m.Visible()) != 2 {
		t.Fatal("enter should keep the filter applied")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if len(m.Visible()) != 3 {
		t.Fatalf("esc should clear the filter, got %d records", len(m.Visible()))
	}
}

func TestFeedList_FilterByMethod(t *testing.T) {
	m := newFeedModelForTest()
	m.SetView(sampleView())
	m, _ = m.Update(runes("/"))
	for _, r := range "DELETE" {
		m, _ = m.Update(runes(string(r)))
	}
	got := m.Visible()
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("filtered records = %+v, want a", got)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.Filtering() || len(m.Visible()) != 3 {
		t.Fatal("esc in the filter input should close and clear it")
	}
}

func TestFeedList_LoadingSpinner(t *testing.T) {
	m := newFeedModelForTest()
	cmd := m.SetView(feed.View{Loading: true})
	if cmd == nil {
		t.Fatal("starting to load should start the spinner")
	}
	if strings.Contains(m.View(), "No requests yet") {
		t.Error("empty state should not show while loading")
	}
	if cmd := m.SetView(feed.View{Loading: true}); cmd != nil {
		t.Error("spinner should only be started once")
	}
}

func TestFeedList_ScrollKeepsCursorVisible(t *testing.T) {
	m := newFeedModelForTest()
	m.SetSize(80, 8)

	var v feed.View
	for i := range 30 {
		v.Records = append(v.Records, rec(string(rune('A'+i)), capture.MethodGET, "/", time.Duration(i)*time.Minute))
	}
	m.SetView(v)

	for range 10 {
		m, _ = m.Update(runes("j"))
	}
	if m.cursor != 10 {
		t.Fatalf("cursor = %d, want 10", m.cursor)
	}
	if m.cursor < m.offset || m.cursor >= m.offset+m.listHeight() {
		t.Fatalf("cursor %d outside window [%d,%d)", m.cursor, m.offset, m.offset+m.listHeight())
	}
}

func TestPadMethod(t *testing.T) {
	tests := map[string]string{
		"GET":      "GET    ",
		"OPTIONS":  "OPTIONS",
		"PROPFIND": "PROPFIN",
	}
	for in, want := range tests {
		if got := padMethod(in); got != want {
			t.Errorf("padMethod(%q) = %q, want %q", in, got, want)
		}
	}
}
