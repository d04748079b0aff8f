package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidData is returned when a backend payload does not have the
// expected shape.
var ErrInvalidData = errors.New("invalid data")

// Method is the HTTP verb of a captured request.
type Method string

const (
	MethodGET     Method = "GET"
	MethodPOST    Method = "POST"
	MethodPUT     Method = "PUT"
	MethodDELETE  Method = "DELETE"
	MethodPATCH   Method = "PATCH"
	MethodOPTIONS Method = "OPTIONS"
	MethodHEAD    Method = "HEAD"
	MethodUnknown Method = "UNKNOWN"
)

// ParseMethod normalizes s into one of the known methods, or MethodUnknown.
func ParseMethod(s string) Method {
	switch m := Method(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodGET, MethodPOST, MethodPUT, MethodDELETE, MethodPATCH, MethodOPTIONS, MethodHEAD:
		return m
	default:
		return MethodUnknown
	}
}

func (m Method) String() string { return string(m) }

// Record is one captured inbound request.
type Record struct {
	ID             string
	Account        string
	Method         Method
	Path           string
	RequestTime    time.Time // zero when unknown
	ResponseTimeMs int64
	Headers        Pairs
	QueryParams    Pairs
	Body           Payload
	Response       Payload
}

// wireRecord mirrors the JSON shape served by the capture backend.
type wireRecord struct {
	ID           string  `json:"id"`
	Username     string  `json:"username,omitempty"`
	Method       string  `json:"method"`
	Path         string  `json:"path"`
	RequestTime  string  `json:"request_time,omitempty"`
	ResponseTime float64 `json:"response_time"`
	Headers      Pairs   `json:"headers"`
	QueryParams  Pairs   `json:"query_params"`
	Body         Payload `json:"body"`
	Response     Payload `json:"response"`
}

// UnmarshalJSON decodes the backend representation, applying defaults for
// missing fields.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Record{
		ID:          w.ID,
		Account:     w.Username,
		Method:      ParseMethod(w.Method),
		Path:        w.Path,
		RequestTime: ParseTime(w.RequestTime),
		Headers:     w.Headers,
		QueryParams: w.QueryParams,
		Body:        w.Body,
		Response:    w.Response,
	}
	if w.ResponseTime > 0 {
		r.ResponseTimeMs = int64(w.ResponseTime)
	}
	return nil
}

// MarshalJSON encodes r in the backend representation.
func (r Record) MarshalJSON() ([]byte, error) {
	w := wireRecord{
		ID:           r.ID,
		Username:     r.Account,
		Method:       string(r.Method),
		Path:         r.Path,
		ResponseTime: float64(r.ResponseTimeMs),
		Headers:      r.Headers,
		QueryParams:  r.QueryParams,
		Body:         r.Body,
		Response:     r.Response,
	}
	if !r.RequestTime.IsZero() {
		w.RequestTime = r.RequestTime.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(w)
}

// DisplayPath returns the path, or "/" when empty.
func (r Record) DisplayPath() string {
	if r.Path == "" {
		return "/"
	}
	return r.Path
}

// DisplayTime formats the request time in local time, or "Unknown Time".
func (r Record) DisplayTime() string {
	if r.RequestTime.IsZero() {
		return "Unknown Time"
	}
	return r.RequestTime.Local().Format("2006-01-02 15:04:05")
}

// DecodePage decodes a list response. Anything other than a JSON array is
// reported as ErrInvalidData.
func DecodePage(data []byte) ([]Record, error) {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, fmt.Errorf("decoding page: expected array: %w", ErrInvalidData)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding page: %v: %w", err, ErrInvalidData)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTime parses the timestamp formats the backend emits. Naive
// timestamps are taken as UTC. Unparsable input yields the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
