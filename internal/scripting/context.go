package scripting

import (
	"encoding/json"

	"github.com/sadopc/hookscope/internal/capture"
)

// ScriptRequest is the read-only view of a capture exposed to scripts as
// `req`.
type ScriptRequest struct {
	ID             string            `json:"id"`
	Method         string            `json:"method"`
	Path           string            `json:"path"`
	Time           string            `json:"time"`
	ResponseTimeMs int64             `json:"responseTimeMs"`
	Headers        map[string]string `json:"headers"`
	Query          map[string]string `json:"query"`
	Body           any               `json:"body"`
	RawBody        string            `json:"rawBody"`
	Response       any               `json:"response"`
}

// NewScriptRequest flattens rec for script access. Header names keep the
// casing they were captured with; use header() for a case-insensitive
// lookup.
func NewScriptRequest(rec capture.Record) *ScriptRequest {
	req := &ScriptRequest{
		ID:             rec.ID,
		Method:         string(rec.Method),
		Path:           rec.DisplayPath(),
		ResponseTimeMs: rec.ResponseTimeMs,
		Headers:        rec.Headers.Map(),
		Query:          rec.QueryParams.Map(),
		Body:           decodePayload(rec.Body),
		RawBody:        rec.Body.Text(),
		Response:       decodePayload(rec.Response),
	}
	if !rec.RequestTime.IsZero() {
		req.Time = rec.RequestTime.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return req
}

func decodePayload(p capture.Payload) any {
	if p.IsEmpty() {
		return nil
	}
	var v any
	if err := json.Unmarshal(p, &v); err != nil {
		return string(p)
	}
	return v
}
