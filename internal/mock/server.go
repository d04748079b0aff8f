// Package mock is an in-memory fake of the capture service: the capture
// endpoint, the REST API and the push endpoint. It backs the tests and
// `hookscope mock`.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultPort         = 8080
	defaultPingInterval = 30 * time.Second
	defaultMaxCaptures  = 100000
)

// Option configures a Server.
type Option func(*Server)

// WithPort sets the listening port used by Start.
func WithPort(port int) Option {
	return func(s *Server) { s.port = port }
}

// WithLatency delays every REST response.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

// WithErrorRate makes that fraction of REST calls fail with 500. The rate
// is clamped to [0, 1].
func WithErrorRate(r float64) Option {
	return func(s *Server) { s.errorRate = min(max(r, 0), 1) }
}

// WithCORSOrigin sets Access-Control-Allow-Origin on REST responses.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

// WithPingInterval sets how often push sessions receive a ping frame.
// Zero disables pings.
func WithPingInterval(d time.Duration) Option {
	return func(s *Server) { s.pingInterval = d }
}

// WithGenerator makes Start inject a synthetic capture into account at
// the given rate.
func WithGenerator(limit rate.Limit, account string) Option {
	return func(s *Server) {
		s.genLimit = limit
		s.genAccount = account
	}
}

// WithMaxCaptures bounds the captures kept per account; the oldest is
// evicted first.
func WithMaxCaptures(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxCaptures = n
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// Server is the fake capture service.
type Server struct {
	port         int
	latency      time.Duration
	errorRate    float64
	corsOrigin   string
	pingInterval time.Duration
	genLimit     rate.Limit
	genAccount   string
	maxCaptures  int
	log          *slog.Logger
	now          func() time.Time

	mu       sync.Mutex
	accounts map[string]*account

	hub *hub
}

// New creates a server with no accounts. Accounts are created on first
// use.
func New(opts ...Option) *Server {
	s := &Server{
		port:         defaultPort,
		corsOrigin:   "*",
		pingInterval: defaultPingInterval,
		maxCaptures:  defaultMaxCaptures,
		log:          slog.Default(),
		now:          time.Now,
		accounts:     map[string]*account{},
	}
	for _, o := range opts {
		o(s)
	}
	s.hub = newHub(s.log)
	return s
}

// Port returns the configured port.
func (s *Server) Port() int { return s.port }

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/requests/", s.rest(s.handleRequests))
	mux.HandleFunc("/api/users/", s.rest(s.handleUsers))
	mux.HandleFunc("/api/", s.handleCapture)
	mux.HandleFunc("/ws/", s.handlePush)
	return mux
}

// Start listens on the configured port until ctx is canceled. ready, when
// non-nil, receives the bound address once the listener is up.
func (s *Server) Start(ctx context.Context, ready func(addr string)) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("mock server listen: %w", err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if s.genLimit > 0 && s.genAccount != "" {
		go s.generate(ctx)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	if ready != nil {
		ready(ln.Addr().String())
	}
	s.log.Info("mock: listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("mock server: %w", err)
	case <-ctx.Done():
		s.hub.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// rest wraps a REST handler with CORS, simulated latency and simulated
// failures.
func (s *Server) rest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if s.latency > 0 {
			select {
			case <-time.After(s.latency):
			case <-r.Context().Done():
				return
			}
		}

		if s.errorRate > 0 && rand.Float64() < s.errorRate {
			writeError(w, http.StatusInternalServerError, "simulated failure")
			return
		}
		next(w, r)
	}
}

// accountSegment extracts "alice" from "@alice".
func accountSegment(seg string) (string, bool) {
	name, ok := strings.CutPrefix(seg, "@")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// splitPath trims prefix from path and splits the rest into segments.
func splitPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
