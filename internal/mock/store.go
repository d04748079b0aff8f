package mock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/hookscope/internal/capture"
	"github.com/sadopc/hookscope/internal/export"
)

const maxCaptureBody = 1 << 20

// Settings is the capture behavior of one account.
type Settings struct {
	Username        string          `json:"username"`
	DefaultResponse json.RawMessage `json:"default_response"`
	ResponseTimeMin int             `json:"response_time_min"`
	ResponseTimeMax int             `json:"response_time_max"`
}

type account struct {
	settings Settings
	captures []capture.Record // oldest first
}

func defaultSettings(name string) Settings {
	return Settings{
		Username:        name,
		DefaultResponse: json.RawMessage(`{"status":"success"}`),
	}
}

// lookup returns the account, creating it on first use. s.mu must be held.
func (s *Server) lookup(name string) *account {
	a, ok := s.accounts[name]
	if !ok {
		a = &account{settings: defaultSettings(name)}
		s.accounts[name] = a
	}
	return a
}

// Settings returns the current settings of an account.
func (s *Server) Settings(name string) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(name).settings
}

// Inject stores rec for name as if it had just been captured and notifies
// push subscribers. Missing ids and times are filled in.
func (s *Server) Inject(name string, rec capture.Record) capture.Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RequestTime.IsZero() {
		rec.RequestTime = s.now().UTC()
	}
	rec.Account = name

	s.mu.Lock()
	a := s.lookup(name)
	a.captures = append(a.captures, rec)
	if over := len(a.captures) - s.maxCaptures; over > 0 {
		a.captures = append(a.captures[:0:0], a.captures[over:]...)
	}
	s.mu.Unlock()

	s.hub.broadcast(name, newRequestFrame(rec))
	return rec
}

// Captures returns the captures of name, newest first.
func (s *Server) Captures(name string) []capture.Record {
	return s.page(name, -1, 0)
}

func (s *Server) page(name string, limit, skip int) []capture.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.lookup(name).captures
	out := []capture.Record{}
	for i := len(all) - 1 - skip; i >= 0; i-- {
		if limit >= 0 && len(out) == limit {
			break
		}
		out = append(out, all[i])
	}
	return out
}

// handleCapture records ANY /api/@{account}[/...] and answers with the
// account's default response after the configured delay.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	segs := splitPath(r.URL.Path, "/api/")
	if len(segs) == 0 {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	name, ok := accountSegment(segs[0])
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}

	settings := s.Settings(name)
	delay := settings.ResponseTimeMin
	if spread := settings.ResponseTimeMax - settings.ResponseTimeMin; spread > 0 {
		delay += rand.IntN(spread + 1)
	}
	if delay > 0 {
		select {
		case <-time.After(time.Duration(delay) * time.Millisecond):
		case <-r.Context().Done():
			return
		}
	}

	raw, _ := io.ReadAll(io.LimitReader(r.Body, maxCaptureBody))
	rec := capture.Record{
		Method:         capture.ParseMethod(r.Method),
		Path:           r.URL.Path,
		ResponseTimeMs: int64(delay),
		Headers:        headerPairs(r),
		QueryParams:    queryPairs(r),
		Body:           bodyPayload(raw),
		Response:       capture.Payload(settings.DefaultResponse),
	}
	rec = s.Inject(name, rec)
	s.log.Debug("mock: captured", "account", name, "id", rec.ID, "method", r.Method, "path", r.URL.Path)

	w.Header().Set("Content-Type", "application/json")
	w.Write(settings.DefaultResponse)
}

func headerPairs(r *http.Request) capture.Pairs {
	pairs := capture.Pairs{{Name: "host", Value: r.Host}}
	for name, vals := range r.Header {
		for _, v := range vals {
			pairs = append(pairs, capture.Pair{Name: name, Value: v})
		}
	}
	return pairs
}

func queryPairs(r *http.Request) capture.Pairs {
	var pairs capture.Pairs
	for name, vals := range r.URL.Query() {
		for _, v := range vals {
			pairs = append(pairs, capture.Pair{Name: name, Value: v})
		}
	}
	return pairs
}

// bodyPayload keeps JSON bodies structured and stores anything else as a
// JSON string.
func bodyPayload(raw []byte) capture.Payload {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return capture.Payload(raw)
	}
	return capture.NewPayload(string(raw))
}

// handleRequests serves /api/requests/@{account}[/count|/export|/{id}].
func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	segs := splitPath(r.URL.Path, "/api/requests/")
	if len(segs) == 0 || len(segs) > 2 {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	name, ok := accountSegment(segs[0])
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}

	switch {
	case len(segs) == 1 && r.Method == http.MethodGet:
		s.listRequests(w, r, name)
	case len(segs) == 1 && r.Method == http.MethodDelete:
		s.clearRequests(w, name)
	case len(segs) == 2 && segs[1] == "count" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]int{"count": len(s.Captures(name))})
	case len(segs) == 2 && segs[1] == "export" && r.Method == http.MethodGet:
		s.exportRequests(w, r, name)
	case len(segs) == 2 && r.Method == http.MethodDelete:
		s.deleteRequest(w, name, segs[1])
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request, name string) {
	limit, err := intParam(r, "limit", 100)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]string{{"msg": err.Error()}}})
		return
	}
	skip, err := intParam(r, "skip", 0)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]string{{"msg": err.Error()}}})
		return
	}
	writeJSON(w, http.StatusOK, s.page(name, limit, skip))
}

func intParam(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: value is not a valid non-negative integer", key)
	}
	return n, nil
}

func (s *Server) clearRequests(w http.ResponseWriter, name string) {
	s.mu.Lock()
	a := s.lookup(name)
	n := len(a.captures)
	a.captures = nil
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int{"deleted_count": n})
}

func (s *Server) deleteRequest(w http.ResponseWriter, name, id string) {
	s.mu.Lock()
	a := s.lookup(name)
	found := false
	for i, rec := range a.captures {
		if rec.ID == id {
			a.captures = append(a.captures[:i], a.captures[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "Request not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) exportRequests(w http.ResponseWriter, r *http.Request, name string) {
	records := s.Captures(name)
	switch format := r.URL.Query().Get("format"); format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_webhook_requests.csv", name))
		if len(records) == 0 {
			io.WriteString(w, "No requests found")
			return
		}
		if err := export.WriteCSV(w, records); err != nil {
			s.log.Warn("mock: csv export failed", "account", name, "error", err)
		}
	case "json":
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_webhook_requests.json", name))
		writeJSON(w, http.StatusOK, records)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported format '%s'", format))
	}
}

// handleUsers serves GET and PUT /api/users/{account}.
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	segs := splitPath(r.URL.Path, "/api/users/")
	if len(segs) != 1 {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	name := segs[0]

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.Settings(name))
	case http.MethodPut:
		var update struct {
			DefaultResponse json.RawMessage `json:"default_response"`
			ResponseTimeMin *int            `json:"response_time_min"`
			ResponseTimeMax *int            `json:"response_time_max"`
		}
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]string{{"msg": "Invalid JSON body"}}})
			return
		}

		s.mu.Lock()
		a := s.lookup(name)
		next := a.settings
		if len(update.DefaultResponse) > 0 {
			next.DefaultResponse = update.DefaultResponse
		}
		if update.ResponseTimeMin != nil {
			next.ResponseTimeMin = *update.ResponseTimeMin
		}
		if update.ResponseTimeMax != nil {
			next.ResponseTimeMax = *update.ResponseTimeMax
		}
		if next.ResponseTimeMin < 0 || next.ResponseTimeMax < next.ResponseTimeMin {
			s.mu.Unlock()
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid response time range"})
			return
		}
		a.settings = next
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, next)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}
