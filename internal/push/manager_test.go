package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/sadopc/hookscope/internal/clock"
)

// wsURL converts an http:// test server URL to ws://.
func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

// drain reads until the peer closes so close handshakes complete.
func drain(ctx context.Context, conn *websocket.Conn) {
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// statusRecorder collects state transitions reported by a Manager.
type statusRecorder struct {
	mu     sync.Mutex
	states []State
	ch     chan State
}

func newStatusRecorder() *statusRecorder {
	return &statusRecorder{ch: make(chan State, 64)}
}

func (r *statusRecorder) record(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
	r.ch <- s
}

func (r *statusRecorder) waitFor(t *testing.T, want State) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case s := <-r.ch:
			if s == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for state %s (seen %v)", want, r.snapshot())
		}
	}
}

func (r *statusRecorder) snapshot() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func TestManagerDeliversEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.CloseNow()
		frames := []string{
			`{"event":"connected","username":"alice"}`,
			`{"event":"ping"}`,
			`{"event":"mystery","data":1}`,
			`not json`,
			`{"event":"new_request","request_id":"r-1","method":"post"}`,
		}
		for _, f := range frames {
			if err := conn.Write(r.Context(), websocket.MessageText, []byte(f)); err != nil {
				return
			}
		}
		drain(r.Context(), conn)
	}))
	defer srv.Close()

	events := make(chan Event, 10)
	m := New(wsURL(srv))
	m.OnEvent(func(ev Event) { events <- ev })
	rec := newStatusRecorder()
	m.OnStatus(rec.record)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	var got []Event
	timeout := time.After(3 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("timed out, got %d events", len(got))
		}
	}

	if got[0].Type != EventConnected || got[0].Account != "alice" {
		t.Errorf("first event = %+v, want connected for alice", got[0])
	}
	if got[1].Type != EventNewRequest || got[1].RequestID != "r-1" || got[1].Method != "POST" {
		t.Errorf("second event = %+v, want new_request r-1", got[1])
	}
	if m.State() != StateConnected {
		t.Errorf("State = %s, want connected", m.State())
	}

	if err := m.Close(); err != nil {
		t.Logf("Close: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	states := rec.snapshot()
	if len(states) < 2 || states[0] != StateConnecting || states[1] != StateConnected {
		t.Errorf("unexpected transitions: %v", states)
	}
}

func TestManagerReconnectsAfterClosure(t *testing.T) {
	var accepted atomic.Int32
	acceptedCh := make(chan int32, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		n := accepted.Add(1)
		acceptedCh <- n
		_ = conn.Write(r.Context(), websocket.MessageText, []byte(`{"event":"connected"}`))
		if n < 3 {
			conn.Close(websocket.StatusGoingAway, "restarting")
			return
		}
		defer conn.CloseNow()
		drain(r.Context(), conn)
	}))
	defer srv.Close()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.Fake(start)
	m := New(wsURL(srv),
		WithClock(fake),
		WithReconnect(5*time.Second, 5*time.Second),
		WithJitter(func(window time.Duration) time.Duration { return 3 * time.Second }),
	)
	rec := newStatusRecorder()
	m.OnStatus(rec.record)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	waitAccepted := func(want int32) {
		t.Helper()
		select {
		case n := <-acceptedCh:
			if n != want {
				t.Fatalf("accepted #%d, want #%d", n, want)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for connection #%d", want)
		}
	}

	waitAccepted(1)
	for attempt := int32(2); attempt <= 3; attempt++ {
		rec.waitFor(t, StateDisconnected)
		fake.WaitForTimers(1)

		deadline, ok := fake.NextDeadline()
		if !ok {
			t.Fatal("no reconnect scheduled")
		}
		delay := deadline.Sub(fake.Now())
		if delay < 5*time.Second || delay >= 10*time.Second {
			t.Fatalf("reconnect delay %s outside [5s, 10s)", delay)
		}

		fake.Advance(delay - time.Millisecond)
		select {
		case n := <-acceptedCh:
			t.Fatalf("connection #%d before the delay elapsed", n)
		case <-time.After(50 * time.Millisecond):
		}

		fake.Advance(time.Millisecond)
		waitAccepted(attempt)
	}

	rec.waitFor(t, StateConnected)
	if m.Attempts() != 3 {
		t.Errorf("Attempts = %d, want 3", m.Attempts())
	}
}

func TestManagerDialFailureReportsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	fake := clock.Fake(time.Now())
	m := New(url, WithClock(fake))
	rec := newStatusRecorder()
	m.OnStatus(rec.record)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	rec.waitFor(t, StateDisconnected)
	fake.WaitForTimers(1)

	states := rec.snapshot()
	want := []State{StateConnecting, StateError, StateDisconnected}
	if len(states) != len(want) {
		t.Fatalf("transitions = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", states, want)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestReconnectDelayWindow(t *testing.T) {
	m := New("ws://unused", WithReconnect(5*time.Second, 5*time.Second))
	for i := 0; i < 200; i++ {
		d := m.reconnectDelay()
		if d < 5*time.Second || d >= 10*time.Second {
			t.Fatalf("delay %s outside [5s, 10s)", d)
		}
	}

	fixed := New("ws://unused", WithReconnect(2*time.Second, 0))
	if d := fixed.reconnectDelay(); d != 2*time.Second {
		t.Errorf("delay without jitter = %s, want 2s", d)
	}
}

func TestRunTwiceFails(t *testing.T) {
	fake := clock.Fake(time.Now())
	m := New("ws://127.0.0.1:1", WithClock(fake))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)
	fake.WaitForTimers(1)

	if err := m.Run(ctx); err == nil {
		t.Fatal("expected error for concurrent Run")
	}
}

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"event":"new_request","request_id":"x","path":"/a"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !ev.Known() || ev.Method != "" || ev.Path != "/a" {
		t.Errorf("unexpected event %+v", ev)
	}
	if _, err := DecodeEvent([]byte(`{"request_id":"x"}`)); err == nil {
		t.Error("expected error for missing tag")
	}
	unknown, err := DecodeEvent([]byte(`{"event":"later"}`))
	if err != nil || unknown.Known() {
		t.Errorf("unknown tag: %+v, %v", unknown, err)
	}
}
