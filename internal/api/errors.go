package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// FetchError is returned when a REST call fails in transport or answers
// with a non-2xx status.
type FetchError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	default:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotFound reports whether the server answered 404.
func (e *FetchError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// errorBody covers the error shapes the service produces: {"error": ...}
// from handlers and {"detail": ...} from request validation.
type errorBody struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

// statusError builds a FetchError from a non-2xx response body. The JSON
// error message is used when present; otherwise the status line.
func statusError(op string, resp *http.Response, body []byte) *FetchError {
	fe := &FetchError{Op: op, StatusCode: resp.StatusCode}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Error != "":
			fe.Message = eb.Error
		case len(eb.Detail) > 0:
			fe.Message = detailText(eb.Detail)
		}
	}
	if fe.Message == "" {
		fe.Message = resp.Status
		if fe.Message == "" {
			fe.Message = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
	}
	return fe
}

// detailText flattens a detail field that is either a string or a list of
// {"msg": ...} validation entries.
func detailText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var entries []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &entries); err == nil {
		msgs := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Msg != "" {
				msgs = append(msgs, e.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(raw)
}
