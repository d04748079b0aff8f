package mock

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/sadopc/hookscope/internal/capture"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

type subscriber struct {
	send chan []byte
	kick chan struct{}
	once sync.Once
}

func (s *subscriber) drop() {
	s.once.Do(func() { close(s.kick) })
}

// hub fans push frames out to the sessions of each account.
type hub struct {
	log  *slog.Logger
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func newHub(log *slog.Logger) *hub {
	return &hub{log: log, subs: map[string]map[*subscriber]struct{}{}}
}

func (h *hub) add(name string) *subscriber {
	sub := &subscriber{send: make(chan []byte, sendBuffer), kick: make(chan struct{})}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[name] == nil {
		h.subs[name] = map[*subscriber]struct{}{}
	}
	h.subs[name][sub] = struct{}{}
	return sub
}

func (h *hub) remove(name string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[name], sub)
	if len(h.subs[name]) == 0 {
		delete(h.subs, name)
	}
}

// broadcast queues frame for every session of name. Slow sessions miss
// frames rather than block the capture path.
func (h *hub) broadcast(name string, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[name] {
		select {
		case sub.send <- frame:
		default:
			h.log.Warn("mock: push buffer full, dropping frame", "account", name)
		}
	}
}

// disconnect closes every session of name and returns how many there were.
func (h *hub) disconnect(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[name] {
		sub.drop()
	}
	return len(h.subs[name])
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.subs {
		for sub := range set {
			sub.drop()
		}
	}
}

func (h *hub) count(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[name])
}

// Subscribers returns the number of open push sessions of name.
func (s *Server) Subscribers(name string) int { return s.hub.count(name) }

// Disconnect closes the push sessions of name, as a server restart would.
func (s *Server) Disconnect(name string) int { return s.hub.disconnect(name) }

// Broadcast sends a raw frame to the push sessions of name.
func (s *Server) Broadcast(name string, frame []byte) { s.hub.broadcast(name, frame) }

func newRequestFrame(rec capture.Record) []byte {
	data, _ := json.Marshal(map[string]string{
		"event":      "new_request",
		"request_id": rec.ID,
		"method":     string(rec.Method),
		"path":       rec.Path,
	})
	return data
}

// handlePush serves GET /ws/@{account}.
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	segs := splitPath(r.URL.Path, "/ws/")
	if len(segs) != 1 {
		http.NotFound(w, r)
		return
	}
	name, ok := accountSegment(segs[0])
	if !ok {
		http.NotFound(w, r)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Debug("mock: push accept failed", "account", name, "error", err)
		return
	}
	defer conn.CloseNow()

	sub := s.hub.add(name)
	defer s.hub.remove(name, sub)
	s.log.Debug("mock: push session opened", "account", name)

	// Client frames are ignored; CloseRead notices when the peer leaves.
	ctx := conn.CloseRead(r.Context())

	hello, _ := json.Marshal(map[string]string{"event": "connected", "username": name})
	if err := write(ctx, conn, hello); err != nil {
		return
	}

	var ping <-chan time.Time
	if s.pingInterval > 0 {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.kick:
			conn.Close(websocket.StatusGoingAway, "server going away")
			return
		case <-ping:
			if err := write(ctx, conn, []byte(`{"event":"ping"}`)); err != nil {
				return
			}
		case frame := <-sub.send:
			if err := write(ctx, conn, frame); err != nil {
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, frame []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, frame)
}
