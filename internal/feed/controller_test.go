package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sadopc/hookscope/internal/capture"
	"github.com/sadopc/hookscope/internal/push"
)

const waitTimeout = 2 * time.Second

type listReply struct {
	records []capture.Record
	err     error
}

type listCall struct {
	limit, skip int
	reply       chan listReply
}

func (c listCall) respond(records []capture.Record, err error) {
	c.reply <- listReply{records: records, err: err}
}

type deleteCall struct {
	id    string
	reply chan error
}

type clearCall struct {
	reply chan clearReply
}

type clearReply struct {
	n   int
	err error
}

// fakeBackend blocks every call until the test answers it.
type fakeBackend struct {
	lists   chan listCall
	deletes chan deleteCall
	clears  chan clearCall
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		lists:   make(chan listCall, 16),
		deletes: make(chan deleteCall, 16),
		clears:  make(chan clearCall, 16),
	}
}

func (b *fakeBackend) List(ctx context.Context, limit, skip int) ([]capture.Record, error) {
	call := listCall{limit: limit, skip: skip, reply: make(chan listReply, 1)}
	b.lists <- call
	select {
	case r := <-call.reply:
		return r.records, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *fakeBackend) Delete(ctx context.Context, id string) error {
	call := deleteCall{id: id, reply: make(chan error, 1)}
	b.deletes <- call
	select {
	case err := <-call.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *fakeBackend) DeleteAll(ctx context.Context) (int, error) {
	call := clearCall{reply: make(chan clearReply, 1)}
	b.clears <- call
	select {
	case r := <-call.reply:
		return r.n, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

type memRecorder struct {
	mu    sync.Mutex
	saved [][]capture.Record
}

func (r *memRecorder) Save(records []capture.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, records)
	return nil
}

type harness struct {
	t       *testing.T
	backend *fakeBackend
	ctrl    *Controller
	views   chan View
	notices chan Notice
}

func newHarness(t *testing.T, opts ...ControllerOption) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		backend: newFakeBackend(),
		views:   make(chan View, 256),
		notices: make(chan Notice, 64),
	}
	opts = append([]ControllerOption{
		WithPageSize(10),
		WithPresenter(PresenterFunc(func(v View) { h.views <- v })),
		WithNotifier(NotifierFunc(func(n Notice) { h.notices <- n })),
	}, opts...)
	h.ctrl = NewController(h.backend, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.ctrl.Run(ctx)
	return h
}

func (h *harness) expectList() listCall {
	h.t.Helper()
	select {
	case call := <-h.backend.lists:
		return call
	case <-time.After(waitTimeout):
		h.t.Fatal("timed out waiting for a List call")
	}
	return listCall{}
}

func (h *harness) expectNoList() {
	h.t.Helper()
	select {
	case call := <-h.backend.lists:
		h.t.Fatalf("unexpected List call (limit=%d skip=%d)", call.limit, call.skip)
	case <-time.After(100 * time.Millisecond):
	}
}

func (h *harness) waitView(desc string, pred func(View) bool) View {
	h.t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case v := <-h.views:
			if pred(v) {
				return v
			}
		case <-timeout:
			h.t.Fatalf("timed out waiting for view: %s (last published: %+v)", desc, h.ctrl.View())
		}
	}
}

func (h *harness) waitLoaded(total int) View {
	h.t.Helper()
	return h.waitView(fmt.Sprintf("%d records loaded", total), func(v View) bool {
		return !v.Loading && v.Total == total
	})
}

func (h *harness) waitNotice(kind NoticeKind) Notice {
	h.t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case n := <-h.notices:
			if n.Kind == kind {
				return n
			}
		case <-timeout:
			h.t.Fatalf("timed out waiting for notice kind %d", kind)
		}
	}
}

// loadFirstPage runs LoadInitial and answers it with n records.
func (h *harness) loadFirstPage(prefix string, n int) View {
	h.t.Helper()
	h.ctrl.LoadInitial()
	call := h.expectList()
	if call.skip != 0 {
		h.t.Fatalf("initial load skip = %d, want 0", call.skip)
	}
	call.respond(makeRecords(prefix, n), nil)
	return h.waitLoaded(n)
}

func newRequestEvent(id string) push.Event {
	return push.Event{Type: push.EventNewRequest, RequestID: id, Method: capture.MethodPOST, Received: time.Now()}
}

func TestLoadInitialHasMore(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		hasMore bool
	}{
		{"full page", 10, true},
		{"short page", 4, false},
		{"empty", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			v := h.loadFirstPage("a", tt.n)
			if v.HasMore != tt.hasMore {
				t.Errorf("HasMore = %v, want %v", v.HasMore, tt.hasMore)
			}
			if len(v.Records) != tt.n {
				t.Errorf("len(Records) = %d, want %d", len(v.Records), tt.n)
			}
		})
	}
}

func TestPaginationScenario(t *testing.T) {
	h := newHarness(t)
	h.loadFirstPage("a", 10)

	h.ctrl.LoadMore()
	call := h.expectList()
	if call.skip != 10 || call.limit != 10 {
		t.Fatalf("loadMore call limit=%d skip=%d, want 10/10", call.limit, call.skip)
	}
	call.respond(makeRecords("b", 3), nil)
	v := h.waitLoaded(13)
	if v.HasMore {
		t.Error("HasMore should be false after a short page")
	}

	h.ctrl.LoadMore()
	h.expectNoList()
	if got := h.ctrl.View().Total; got != 13 {
		t.Errorf("Total = %d after no-op loadMore, want 13", got)
	}
}

func TestOverlappingLoadMoreRejected(t *testing.T) {
	h := newHarness(t)
	h.loadFirstPage("a", 10)

	h.ctrl.LoadMore()
	h.ctrl.LoadMore()
	h.ctrl.LoadInitial()
	call := h.expectList()
	h.expectNoList()

	call.respond(makeRecords("b", 10), nil)
	h.waitLoaded(20)
	h.expectNoList()
}

func TestPushRefreshesWhenNotPaged(t *testing.T) {
	h := newHarness(t)
	h.loadFirstPage("a", 10)

	h.ctrl.HandleEvent(newRequestEvent("new"))
	n := h.waitNotice(NoticeNewRequest)
	if n.Text != "New request received" || n.At.IsZero() {
		t.Errorf("unexpected notice %+v", n)
	}

	call := h.expectList()
	if call.skip != 0 {
		t.Fatalf("refresh skip = %d, want 0", call.skip)
	}
	page := append([]capture.Record{{ID: "new", Method: capture.MethodPOST}}, makeRecords("a", 9)...)
	call.respond(page, nil)
	h.waitView("refreshed", func(v View) bool {
		return !v.Loading && len(v.Records) == 10 && v.Records[0].ID == "new"
	})
}

func TestPushLeavesPagedCacheAlone(t *testing.T) {
	h := newHarness(t)
	h.loadFirstPage("a", 10)
	h.ctrl.LoadMore()
	h.expectList().respond(makeRecords("b", 10), nil)
	h.waitLoaded(20)

	h.ctrl.HandleEvent(newRequestEvent("new"))
	h.waitNotice(NoticeNewRequest)
	h.expectNoList()
}

func TestPushIgnoresOtherEvents(t *testing.T) {
	h := newHarness(t)
	h.loadFirstPage("a", 3)

	h.ctrl.HandleEvent(push.Event{Type: push.EventConnected})
	h.ctrl.HandleEvent(push.Event{Type: push.EventPing})
	h.expectNoList()
	select {
	case n := <-h.notices:
		t.Fatalf("unexpected notice %+v", n)
	default:
	}
}

func TestPushDuringFetchCoalesces(t *testing.T) {
	h := newHarness(t)
	h.ctrl.LoadInitial()
	first := h.expectList()

	h.ctrl.HandleEvent(newRequestEvent("x"))
	h.ctrl.HandleEvent(newRequestEvent("y"))
	h.waitNotice(NoticeNewRequest)
	h.waitNotice(NoticeNewRequest)
	h.expectNoList()

	first.respond(makeRecords("a", 5), nil)
	follow := h.expectList()
	if follow.skip != 0 {
		t.Fatalf("follow-up skip = %d, want 0", follow.skip)
	}
	follow.respond(makeRecords("c", 7), nil)
	h.waitLoaded(7)
	h.expectNoList()
}

func TestClearAllReloads(t *testing.T) {
	h := newHarness(t)
	h.loadFirstPage("a", 10)

	h.ctrl.ClearAll()
	var clear clearCall
	select {
	case clear = <-h.backend.clears:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for DeleteAll")
	}
	clear.reply <- clearReply{n: 7}

	h.waitView("cleared", func(v View) bool { return v.Total == 0 })
	n := h.waitNotice(NoticeInfo)
	if n.Text != "Deleted 7 requests." {
		t.Errorf("notice = %q", n.Text)
	}

	call := h.expectList()
	if call.skip != 0 {
		t.Fatalf("reload skip = %d, want 0", call.skip)
	}
	call.respond(makeRecords("z", 2), nil)
	v := h.waitLoaded(2)
	if v.Records[0].ID != "z-0" {
		t.Errorf("unexpected first record %q", v.Records[0].ID)
	}
}

func TestClearAllFailureKeepsCache(t *testing.T) {
	h := newHarness(t)
	h.loadFirstPage("a", 4)
	before := h.ctrl.Snapshot()

	h.ctrl.ClearAll()
	clear := <-h.backend.clears
	clear.reply <- clearReply{err: errors.New("boom")}

	n := h.waitNotice(NoticeError)
	if n.Err == nil || n.Text != "Failed to clear requests." {
		t.Errorf("unexpected notice %+v", n)
	}
	after := h.ctrl.Snapshot()
	if len(after) != len(before) {
		t.Errorf("cache changed after failed clear: %d -> %d", len(before), len(after))
	}
	h.expectNoList()
}

func TestClearAllDiscardsStalePage(t *testing.T) {
	h := newHarness(t)
	h.loadFirstPage("a", 10)

	h.ctrl.LoadMore()
	stale := h.expectList()

	h.ctrl.ClearAll()
	(<-h.backend.clears).reply <- clearReply{n: 10}

	fresh := h.expectList()
	if fresh.skip != 0 {
		t.Fatalf("reload skip = %d, want 0", fresh.skip)
	}
	fresh.respond(makeRecords("new", 2), nil)
	h.waitLoaded(2)

	stale.respond(makeRecords("stale", 10), nil)
	time.Sleep(100 * time.Millisecond)

	v := h.ctrl.View()
	if v.Total != 2 {
		t.Fatalf("Total = %d, want 2", v.Total)
	}
	for _, r := range v.Records {
		if strings.HasPrefix(r.ID, "stale") {
			t.Fatalf("stale record %q applied", r.ID)
		}
	}
}

func TestDeleteOne(t *testing.T) {
	h := newHarness(t)
	h.loadFirstPage("a", 3)

	h.ctrl.DeleteOne("a-1")
	call := <-h.backend.deletes
	if call.id != "a-1" {
		t.Fatalf("Delete id = %q", call.id)
	}
	call.reply <- nil

	v := h.waitLoaded(2)
	for _, r := range v.Records {
		if r.ID == "a-1" {
			t.Fatal("deleted record still rendered")
		}
	}
	n := h.waitNotice(NoticeInfo)
	if n.Text != "Request deleted. 2 remaining." {
		t.Errorf("notice = %q", n.Text)
	}
	if _, ok := h.ctrl.Find("a-1"); ok {
		t.Error("Find still returns deleted record")
	}
}

func TestDeleteOneFailureKeepsCache(t *testing.T) {
	h := newHarness(t)
	h.loadFirstPage("a", 3)

	h.ctrl.DeleteOne("a-0")
	(<-h.backend.deletes).reply <- errors.New("not found")

	n := h.waitNotice(NoticeError)
	if n.Err == nil {
		t.Error("expected error on notice")
	}
	if _, ok := h.ctrl.Find("a-0"); !ok {
		t.Error("record removed despite failed delete")
	}
	if h.ctrl.View().Total != 3 {
		t.Errorf("Total = %d, want 3", h.ctrl.View().Total)
	}
}

func TestInvalidDataDegradesToEmpty(t *testing.T) {
	h := newHarness(t)
	h.loadFirstPage("a", 10)

	h.ctrl.HandleEvent(newRequestEvent("n"))
	h.expectList().respond(nil, fmt.Errorf("list: %w", capture.ErrInvalidData))

	v := h.waitView("empty after bad page", func(v View) bool { return !v.Loading && v.Total == 0 })
	if v.HasMore {
		t.Error("HasMore should be false after malformed page")
	}
	select {
	case n := <-h.notices:
		if n.Kind == NoticeError {
			t.Errorf("malformed page should not raise an error notice: %+v", n)
		}
	default:
	}
}

func TestFetchErrorKeepsCache(t *testing.T) {
	h := newHarness(t)
	h.loadFirstPage("a", 10)

	h.ctrl.LoadMore()
	h.expectList().respond(nil, errors.New("502 Bad Gateway"))
	n := h.waitNotice(NoticeError)
	if n.Text != "Failed to load request history." {
		t.Errorf("notice = %q", n.Text)
	}
	v := h.waitLoaded(10)
	if !v.HasMore {
		t.Error("HasMore should survive a failed loadMore")
	}

	h.ctrl.LoadMore()
	if call := h.expectList(); call.skip != 10 {
		t.Errorf("retry skip = %d, want 10", call.skip)
	}
}

func TestFetchTimeoutReleasesGuard(t *testing.T) {
	h := newHarness(t, WithFetchTimeout(50*time.Millisecond))

	h.ctrl.LoadInitial()
	h.expectList() // never answered
	n := h.waitNotice(NoticeError)
	if !errors.Is(n.Err, context.DeadlineExceeded) {
		t.Errorf("notice err = %v, want deadline exceeded", n.Err)
	}

	h.ctrl.LoadInitial()
	h.expectList().respond(makeRecords("a", 1), nil)
	h.waitLoaded(1)
}

func TestRecorderReceivesPages(t *testing.T) {
	rec := &memRecorder{}
	h := newHarness(t, WithRecorder(rec))
	h.loadFirstPage("a", 10)
	h.ctrl.LoadMore()
	h.expectList().respond(makeRecords("b", 2), nil)
	h.waitLoaded(12)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.saved) != 2 || len(rec.saved[0]) != 10 || len(rec.saved[1]) != 2 {
		t.Errorf("recorded pages = %d", len(rec.saved))
	}
}
