package push

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sadopc/hookscope/internal/capture"
)

// EventType is the tag of an inbound push frame.
type EventType string

const (
	// EventConnected acknowledges the session handshake. Informational only.
	EventConnected EventType = "connected"
	// EventNewRequest announces a newly captured request.
	EventNewRequest EventType = "new_request"
	// EventPing is a keep-alive and carries no payload.
	EventPing EventType = "ping"
)

// Event is a decoded push frame.
type Event struct {
	Type      EventType
	RequestID string
	Method    capture.Method
	Path      string
	Account   string
	Received  time.Time
	Raw       json.RawMessage
}

type wireEvent struct {
	Event     string `json:"event"`
	RequestID string `json:"request_id"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Username  string `json:"username"`
}

// DecodeEvent parses a `{"event": <tag>, ...}` frame. Unknown tags decode
// successfully; it is up to the caller to ignore them.
func DecodeEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, fmt.Errorf("decoding push frame: %w", err)
	}
	if w.Event == "" {
		return Event{}, fmt.Errorf("decoding push frame: missing event tag")
	}
	ev := Event{
		Type:      EventType(w.Event),
		RequestID: w.RequestID,
		Path:      w.Path,
		Account:   w.Username,
		Raw:       append(json.RawMessage(nil), data...),
	}
	if w.Method != "" {
		ev.Method = capture.ParseMethod(w.Method)
	}
	return ev, nil
}

// Known reports whether the event tag is one the client understands.
func (e Event) Known() bool {
	switch e.Type {
	case EventConnected, EventNewRequest, EventPing:
		return true
	}
	return false
}
