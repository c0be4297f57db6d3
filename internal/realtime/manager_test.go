package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticTokens struct {
	token string
	err   error
	block chan struct{}

	calls int32
}

func (s *staticTokens) ChannelToken(ctx context.Context) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}

// channelServer is a minimal stand-in for the backend push channel: it
// accepts the subscribe frame and pushes whatever signals the test enqueues.
type channelServer struct {
	t *testing.T

	srv     *httptest.Server
	dials   int32
	signals chan string

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newChannelServer(t *testing.T) *channelServer {
	s := &channelServer{
		t:       t,
		signals: make(chan string, 16),
	}

	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		atomic.AddInt32(&s.dials, 1)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		sub := subscribeReq{}
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}

		for kind := range s.signals {
			if err := conn.WriteJSON(signal{Type: kind}); err != nil {
				return
			}
		}
	}))
	t.Cleanup(s.close)

	return s
}

func (s *channelServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *channelServer) dialCount() int32 {
	return atomic.LoadInt32(&s.dials)
}

func (s *channelServer) close() {
	s.mu.Lock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
	s.mu.Unlock()
	s.srv.Close()
}

func newTestManager(tokens tokenSource, url string) *Manager {
	return NewManager(zap.NewNop().Sugar(), tokens, url, 5*time.Millisecond, 10*time.Millisecond, time.Second)
}

func TestManagerOpensOnce(t *testing.T) {
	server := newChannelServer(t)
	m := newTestManager(&staticTokens{token: "tok"}, server.url())
	defer m.Close()

	// Repeating the same (true, true) inputs must not open a second channel.
	m.Ensure(true, true)
	m.Ensure(true, true)
	m.Ensure(true, true)

	require.Eventually(t, func() bool {
		return m.State() == StateOpen
	}, time.Second, 5*time.Millisecond)

	m.Ensure(true, true)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(1), server.dialCount())
}

func TestManagerCounter(t *testing.T) {
	server := newChannelServer(t)
	m := newTestManager(&staticTokens{token: "tok"}, server.url())
	defer m.Close()

	var mu sync.Mutex
	var seen []uint64
	m.OnChange(func(counter uint64) {
		mu.Lock()
		seen = append(seen, counter)
		mu.Unlock()
	})

	m.Ensure(true, true)
	require.Eventually(t, func() bool {
		return m.State() == StateOpen
	}, time.Second, 5*time.Millisecond)

	server.signals <- SignalEventCreated
	server.signals <- SignalEventUpdated
	server.signals <- "heartbeat"
	server.signals <- SignalEventDeleted

	require.Eventually(t, func() bool {
		return m.Counter() == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []uint64{1, 2, 3}, seen)
}

func TestManagerNotWanted(t *testing.T) {
	server := newChannelServer(t)

	tests := []struct {
		name            string
		onCalendarRoute bool
		authenticated   bool
	}{
		{"route without auth", true, false},
		{"auth without route", false, true},
		{"neither", false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestManager(&staticTokens{token: "tok"}, server.url())
			defer m.Close()

			m.Ensure(tc.onCalendarRoute, tc.authenticated)
			time.Sleep(30 * time.Millisecond)
			require.Equal(t, StateClosed, m.State())
		})
	}
}

func TestManagerClosesWhenInputsDrop(t *testing.T) {
	server := newChannelServer(t)
	m := newTestManager(&staticTokens{token: "tok"}, server.url())
	defer m.Close()

	m.Ensure(true, true)
	require.Eventually(t, func() bool {
		return m.State() == StateOpen
	}, time.Second, 5*time.Millisecond)

	m.Ensure(true, false)
	require.Equal(t, StateClosed, m.State())
}

func TestManagerCredentialFailure(t *testing.T) {
	server := newChannelServer(t)
	tokens := &staticTokens{err: errors.New("exchange failed")}
	m := newTestManager(tokens, server.url())
	defer m.Close()

	m.Ensure(true, true)

	// The failure is swallowed: no channel, no crash.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&tokens.calls) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, StateClosed, m.State())
	require.Equal(t, int32(0), server.dialCount())

	// Retried on the next qualifying transition.
	tokens.err = nil
	tokens.token = "tok"
	m.Ensure(false, true)
	m.Ensure(true, true)

	require.Eventually(t, func() bool {
		return m.State() == StateOpen
	}, time.Second, 5*time.Millisecond)
}

func TestManagerTeardownDuringExchange(t *testing.T) {
	server := newChannelServer(t)
	tokens := &staticTokens{token: "tok", block: make(chan struct{})}
	m := newTestManager(tokens, server.url())

	m.Ensure(true, true)
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&tokens.calls) == 1
	}, time.Second, time.Millisecond)

	// Teardown with the credential exchange still in flight: once it
	// resolves it must not open a channel.
	m.Close()
	close(tokens.block)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, StateClosed, m.State())
	require.Equal(t, int32(0), server.dialCount())
}

func TestManagerReconnects(t *testing.T) {
	server := newChannelServer(t)
	m := newTestManager(&staticTokens{token: "tok"}, server.url())
	defer m.Close()

	m.Ensure(true, true)
	require.Eventually(t, func() bool {
		return m.State() == StateOpen
	}, time.Second, 5*time.Millisecond)

	// Drop the transport out from under the manager.
	server.mu.Lock()
	conn := server.conns[0]
	server.mu.Unlock()
	_ = conn.Close()

	require.Eventually(t, func() bool {
		return server.dialCount() >= 2 && m.State() == StateOpen
	}, time.Second, 5*time.Millisecond)
}
