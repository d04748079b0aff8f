package push

import "fmt"

// State is the lifecycle state of the push connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Label is the text shown in status indicators.
func (s State) Label() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting..."
	case StateConnected:
		return "Connected"
	case StateDisconnected:
		return "Disconnected"
	case StateError:
		return "Error"
	default:
		return s.String()
	}
}

// TransportError reports a failure of the push transport. It is always
// recoverable: the manager reconnects after it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("push %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
