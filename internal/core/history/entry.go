package history

import (
	"time"

	"github.com/sadopc/hookscope/internal/capture"
)

// Entry is a capture kept in the local history.
type Entry struct {
	capture.Record
	// SeenAt is when this client first stored the capture.
	SeenAt time.Time
}

// Filter narrows ListFiltered. Zero fields match everything.
type Filter struct {
	Account     string
	Method      capture.Method
	PathPattern string
	Since       time.Time
	Until       time.Time
	Limit       int
	Offset      int
}
