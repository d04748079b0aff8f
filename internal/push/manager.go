package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/sadopc/hookscope/internal/clock"
)

const (
	defaultReconnectBase   = 5 * time.Second
	defaultReconnectWindow = 5 * time.Second
	defaultDialTimeout     = 15 * time.Second
	readLimit              = 1 << 20
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock sets the time source used for reconnection delays.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithReconnect sets the reconnection delay to base plus a random jitter
// drawn from [0, window).
func WithReconnect(base, window time.Duration) Option {
	return func(m *Manager) {
		m.base = base
		m.window = window
	}
}

// WithJitter replaces the random jitter source. fn receives the window and
// must return a value in [0, window).
func WithJitter(fn func(window time.Duration) time.Duration) Option {
	return func(m *Manager) { m.jitter = fn }
}

// WithHeaders sets extra headers sent on the WebSocket handshake.
func WithHeaders(h http.Header) Option {
	return func(m *Manager) { m.headers = h.Clone() }
}

// WithHTTPClient sets the client used for the handshake, so the push
// connection shares the REST client's proxy and TLS settings.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithDialTimeout bounds each connection attempt.
func WithDialTimeout(d time.Duration) Option {
	return func(m *Manager) { m.dialTimeout = d }
}

// Manager owns the push connection for one account. It connects, decodes
// inbound frames into Events, and reconnects after every closure for as
// long as Run's context is alive.
type Manager struct {
	url         string
	headers     http.Header
	httpClient  *http.Client
	log         *slog.Logger
	clock       clock.Clock
	base        time.Duration
	window      time.Duration
	jitter      func(time.Duration) time.Duration
	dialTimeout time.Duration

	onEvent  func(Event)
	onStatus func(State)

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	cancel   context.CancelFunc
	running  bool
	attempts int
}

// New creates a Manager for the push endpoint at url (ws:// or wss://).
func New(url string, opts ...Option) *Manager {
	m := &Manager{
		url:         url,
		log:         slog.Default(),
		clock:       clock.Real(),
		base:        defaultReconnectBase,
		window:      defaultReconnectWindow,
		jitter:      randomJitter,
		dialTimeout: defaultDialTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnEvent registers the handler for domain events. Must be called before Run.
func (m *Manager) OnEvent(fn func(Event)) { m.onEvent = fn }

// OnStatus registers the handler invoked once per state transition. Must be
// called before Run.
func (m *Manager) OnStatus(fn func(State)) { m.onStatus = fn }

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts returns the number of connection attempts made so far.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Run connects and keeps the session alive until ctx is cancelled or Close
// is called. Reconnection is unconditional: there is no retry limit and the
// delay does not grow.
func (m *Manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("push: already running")
	}
	m.running = true
	m.cancel = cancel
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.cancel = nil
		m.mu.Unlock()
	}()

	for {
		m.session(ctx)
		if ctx.Err() != nil {
			return nil
		}

		delay := m.reconnectDelay()
		m.log.Info("push: reconnect scheduled", "url", m.url, "delay", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-m.clock.After(delay):
		}
	}
}

// Close tears down the current session and stops reconnection.
func (m *Manager) Close() error {
	m.mu.Lock()
	conn := m.conn
	cancel := m.cancel
	m.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close(websocket.StatusNormalClosure, "client closed")
	}
	if cancel != nil {
		cancel()
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		err = nil
	}
	return err
}

// session runs one connect/read cycle and always ends in StateDisconnected.
func (m *Manager) session(ctx context.Context) {
	m.setState(StateConnecting)

	m.mu.Lock()
	m.attempts++
	m.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, m.dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, m.url, &websocket.DialOptions{
		HTTPHeader: m.headers,
		HTTPClient: m.httpClient,
	})
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			m.fail(&TransportError{Op: "dial", Err: err})
		}
		m.setState(StateDisconnected)
		return
	}
	conn.SetReadLimit(readLimit)

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
	m.setState(StateConnected)
	m.log.Info("push: connected", "url", m.url)

	err = m.readLoop(ctx, conn)

	m.mu.Lock()
	m.conn = nil
	m.mu.Unlock()
	_ = conn.CloseNow()

	if err != nil && ctx.Err() == nil && !isNormalClosure(err) {
		m.fail(&TransportError{Op: "read", Err: err})
	}
	m.log.Info("push: connection closed", "url", m.url)
	m.setState(StateDisconnected)
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			m.log.Debug("push: ignoring binary frame", "bytes", len(data))
			continue
		}
		m.dispatch(data)
	}
}

func (m *Manager) dispatch(data []byte) {
	ev, err := DecodeEvent(data)
	if err != nil {
		m.log.Warn("push: dropping undecodable frame", "error", err)
		return
	}
	ev.Received = m.clock.Now()

	switch ev.Type {
	case EventNewRequest:
		if m.onEvent != nil {
			m.onEvent(ev)
		}
		m.log.Debug("push: new request", "request_id", ev.RequestID)
	case EventConnected:
		m.log.Debug("push: handshake acknowledged", "account", ev.Account)
		if m.onEvent != nil {
			m.onEvent(ev)
		}
	case EventPing:
	default:
		m.log.Warn("push: ignoring unknown event", "event", string(ev.Type))
	}
}

func (m *Manager) fail(err *TransportError) {
	m.log.Warn("push: transport error", "op", err.Op, "error", err.Err)
	m.setState(StateError)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	m.mu.Unlock()

	if m.onStatus != nil {
		m.onStatus(s)
	}
}

func (m *Manager) reconnectDelay() time.Duration {
	if m.window <= 0 || m.jitter == nil {
		return m.base
	}
	return m.base + m.jitter(m.window)
}

func randomJitter(window time.Duration) time.Duration {
	if window <= 0 {
		return 0
	}
	return rand.N(window)
}

func isNormalClosure(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}
