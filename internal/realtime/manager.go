// Package realtime maintains the push channel to the planner backend. The
// channel carries no event data; every signal only bumps a change counter
// that tells consumers to refetch.
package realtime

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/planwise/calendar-agent/internal/metrics"
	"go.uber.org/zap"
)

const (
	SignalEventCreated = "event-created"
	SignalEventUpdated = "event-updated"
	SignalEventDeleted = "event-deleted"
)

type tokenSource interface {
	ChannelToken(ctx context.Context) (string, error)
}

type subscribeReq struct {
	ClientID string   `json:"client_id"`
	Topics   []string `json:"topics"`
}

type signal struct {
	Type string `json:"type"`
}

// Manager owns the channel lifecycle. The channel exists only while both
// Ensure inputs are true; every failure short of teardown is non-fatal and
// degrades to "no live updates".
type Manager struct {
	logger          *zap.SugaredLogger
	tokens          tokenSource
	channelURL      string
	debounce        time.Duration
	reconnectDelay  time.Duration
	exchangeTimeout time.Duration

	counter uint64

	mu        sync.Mutex
	alive     bool
	wanted    bool
	state     ConnectionState
	openTimer *time.Timer
	conn      *websocket.Conn
	attempt   uint64
	callbacks []func(uint64)
}

func NewManager(
	logger *zap.SugaredLogger,
	tokens tokenSource,
	channelURL string,
	debounce time.Duration,
	reconnectDelay time.Duration,
	exchangeTimeout time.Duration,
) *Manager {
	return &Manager{
		logger:          logger,
		tokens:          tokens,
		channelURL:      channelURL,
		debounce:        debounce,
		reconnectDelay:  reconnectDelay,
		exchangeTimeout: exchangeTimeout,
		alive:           true,
	}
}

// Ensure reconciles the channel with the current route and auth inputs. Calls
// are idempotent: repeating the same true inputs never opens a second
// channel. Opening is debounced to survive rapid navigation.
func (m *Manager) Ensure(onCalendarRoute, authenticated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.alive {
		return
	}

	m.wanted = onCalendarRoute && authenticated

	if !m.wanted {
		m.stopTimerLocked()
		m.closeConnLocked()
		return
	}

	if m.state != StateClosed || m.openTimer != nil {
		return
	}

	m.scheduleOpenLocked(m.debounce)
}

// OnChange registers a callback invoked with the new counter value on every
// change signal. Callbacks must be registered before the channel opens.
func (m *Manager) OnChange(cb func(uint64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// Counter returns the current change counter. Consumers compare values for
// increase only; the absolute number carries no meaning.
func (m *Manager) Counter() uint64 {
	return atomic.LoadUint64(&m.counter)
}

func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close tears the manager down. A credential exchange still in flight must
// not open a channel afterwards; the alive flag guards that.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.alive = false
	m.stopTimerLocked()
	m.closeConnLocked()
}

func (m *Manager) scheduleOpenLocked(delay time.Duration) {
	m.attempt++
	attempt := m.attempt
	m.openTimer = time.AfterFunc(delay, func() {
		m.open(attempt)
	})
}

func (m *Manager) stopTimerLocked() {
	if m.openTimer != nil {
		m.openTimer.Stop()
		m.openTimer = nil
	}
}

func (m *Manager) closeConnLocked() {
	// Invalidate any in-flight open for a previous attempt.
	m.attempt++

	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.setStateLocked(StateClosed)
}

func (m *Manager) setStateLocked(s ConnectionState) {
	m.state = s
	metrics.SetChannelState(int(s))
}

func (m *Manager) open(attempt uint64) {
	m.mu.Lock()
	m.openTimer = nil
	if !m.alive || !m.wanted || attempt != m.attempt || m.state != StateClosed {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.exchangeTimeout)
	token, err := m.tokens.ChannelToken(ctx)
	cancel()
	if err != nil {
		// Swallowed: the open is retried on the next qualifying transition.
		m.logger.Debugw("channel token exchange failed", "err", err)
		m.abandonOpen(attempt)
		return
	}

	if exp, ok := tokenExpiry(token); ok && !exp.After(time.Now()) {
		m.logger.Debugw("channel token already expired", "exp", exp)
		m.abandonOpen(attempt)
		return
	}

	m.mu.Lock()
	if !m.alive || !m.wanted || attempt != m.attempt {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	conn, resp, err := websocket.DefaultDialer.Dial(m.channelURL+"?token="+url.QueryEscape(token), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		m.logger.Debugw("channel dial failed", "err", err)
		m.abandonOpen(attempt)
		m.scheduleReconnect()
		return
	}

	m.mu.Lock()
	if !m.alive || !m.wanted || attempt != m.attempt {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = conn
	m.setStateLocked(StateOpen)
	m.mu.Unlock()

	sub := subscribeReq{
		ClientID: uuid.NewString(),
		Topics:   []string{SignalEventCreated, SignalEventUpdated, SignalEventDeleted},
	}
	if err := conn.WriteJSON(sub); err != nil {
		m.handleDisconnect(conn, attempt, err)
		return
	}

	m.logger.Infow("channel open", "url", m.channelURL)
	go m.readLoop(conn, attempt)
}

func (m *Manager) readLoop(conn *websocket.Conn, attempt uint64) {
	for {
		sig := signal{}
		if err := conn.ReadJSON(&sig); err != nil {
			m.handleDisconnect(conn, attempt, err)
			return
		}

		switch sig.Type {
		case SignalEventCreated, SignalEventUpdated, SignalEventDeleted:
			// The payload is advisory only; the signal is a cue to refetch.
			n := atomic.AddUint64(&m.counter, 1)
			metrics.ChangeSignals.Inc()
			m.notify(n)
		default:
			m.logger.Debugw("ignoring unknown signal", "type", sig.Type)
		}
	}
}

func (m *Manager) notify(counter uint64) {
	m.mu.Lock()
	callbacks := make([]func(uint64), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb(counter)
	}
}

func (m *Manager) handleDisconnect(conn *websocket.Conn, attempt uint64, err error) {
	m.mu.Lock()
	stale := !m.alive || !m.wanted || attempt != m.attempt
	if m.conn == conn {
		_ = conn.Close()
		m.conn = nil
		m.setStateLocked(StateClosed)
	}
	m.mu.Unlock()

	if stale {
		return
	}

	m.logger.Debugw("channel disconnected", "err", err)
	metrics.ChannelReconnects.Inc()
	m.scheduleReconnect()
}

func (m *Manager) abandonOpen(attempt uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if attempt == m.attempt && m.state == StateConnecting {
		m.setStateLocked(StateClosed)
	}
}

func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.alive || !m.wanted || m.state != StateClosed || m.openTimer != nil {
		return
	}

	m.scheduleOpenLocked(m.reconnectDelay)
}

// tokenExpiry reads the expiry claim without verifying the signature; the
// credential is signed for the channel endpoint, not for us.
func tokenExpiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
