package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/solarmon/solarmon/pkg/session"
	"github.com/solarmon/solarmon/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

func fastPolicy(retries uint64) Policy {
	return Policy{
		Min:        5 * time.Millisecond,
		Max:        20 * time.Millisecond,
		Multiplier: 1.3,
		MaxRetries: retries,
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

// collector gathers everything a Source delivers.
type collector struct {
	mu   sync.Mutex
	msgs []types.StreamMessage
	errs []error
}

func (c *collector) msg(m types.StreamMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

func (c *collector) err(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func (c *collector) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs), len(c.errs)
}

func TestNewDialer(t *testing.T) {
	_, err := NewDialer("http://localhost", nil, DefaultPolicy())
	assert.Error(t, err)
	_, err = NewDialer("ws://", nil, DefaultPolicy())
	assert.Error(t, err)

	d, err := NewDialer("wss://example.com/ws", nil, Policy{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), d.policy)
}

func TestSourceMessages(t *testing.T) {
	start := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/installation/42", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		<-start
		for _, m := range []string{
			`{"type":"ENERGY_READING","installationId":42,"payload":{"powerGenerationWatts":5000}}`,
			`not json`,
			`{"installationId":42}`,
			`{"type":"TAMPER_ALERT","installationId":42,"severity":"HIGH","eventType":"PHYSICAL_MOVEMENT"}`,
		} {
			assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(m)))
		}
		<-release
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer close(release)

	store := session.NewMemory()
	require.NoError(t, store.Set(context.Background(), session.Session, session.KeyToken, "tok"))
	d, err := NewDialer(wsURL(srv), store, fastPolicy(2))
	require.NoError(t, err)

	s := d.Installation(context.Background(), 42)
	defer s.Close()
	var c collector
	s.Subscribe(c.msg)
	s.OnError(c.err)
	close(start)

	require.Eventually(t, func() bool {
		n, e := c.counts()
		return n == 2 && e == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.IsConnected())

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, types.MessageEnergyReading, c.msgs[0].Type)
	r, err := c.msgs[0].EnergyReading()
	require.NoError(t, err)
	assert.Equal(t, 5000.0, r.PowerGenerationWatts)

	assert.Equal(t, types.MessageTamperAlert, c.msgs[1].Type)
	ev, err := c.msgs[1].TamperEvent()
	require.NoError(t, err)
	assert.Equal(t, types.SeverityHigh, ev.Severity)
	assert.ErrorIs(t, c.errs[1], types.ErrMissingMessageType)
}

func TestSourceUnsubscribe(t *testing.T) {
	send := make(chan string)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/alerts", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		for m := range send {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d, err := NewDialer(wsURL(srv), nil, fastPolicy(2))
	require.NoError(t, err)
	s := d.Alerts(context.Background())
	defer s.Close()

	var a, b collector
	s.Subscribe(a.msg)
	unsub := s.Subscribe(b.msg)
	require.Eventually(t, s.IsConnected, 2*time.Second, 5*time.Millisecond)

	send <- `{"type":"SECURITY_EVENT"}`
	require.Eventually(t, func() bool {
		n, _ := b.counts()
		return n == 1
	}, 2*time.Second, 5*time.Millisecond)

	unsub()
	send <- `{"type":"SECURITY_EVENT"}`
	require.Eventually(t, func() bool {
		n, _ := a.counts()
		return n == 2
	}, 2*time.Second, 5*time.Millisecond)
	n, _ := b.counts()
	assert.Equal(t, 1, n)
	close(send)
}

func TestSourceReconnects(t *testing.T) {
	var conns atomic.Int32
	start := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/energy-monitoring", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		<-start
		conns.Add(1)
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ENERGY_READING"}`))
		// first connection drops right away
		if conns.Load() == 1 {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d, err := NewDialer(wsURL(srv), nil, fastPolicy(3))
	require.NoError(t, err)
	s := d.EnergyMonitoring(context.Background())
	var c collector
	s.Subscribe(c.msg)
	s.OnError(c.err)
	close(start)

	require.Eventually(t, func() bool {
		n, _ := c.counts()
		return n == 2 && s.IsConnected()
	}, 2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 2, conns.Load())
	_, e := c.counts()
	assert.Equal(t, 1, e, "the dropped connection is reported")

	require.NoError(t, s.Close())
	assert.False(t, s.IsConnected())
	require.NoError(t, s.Close())
}

func TestSourceGivesUp(t *testing.T) {
	t.Run("Unreachable", func(t *testing.T) {
		var attempts atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		policy := fastPolicy(2)
		d, err := NewDialer(wsURL(srv), nil, policy)
		require.NoError(t, err)
		s := d.Alerts(context.Background())
		var c collector
		s.OnError(c.err)

		select {
		case <-s.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("source did not give up")
		}
		// the first dial plus MaxRetries redials
		assert.EqualValues(t, policy.MaxRetries+1, attempts.Load())
		_, e := c.counts()
		assert.Equal(t, 1, e)
		assert.False(t, s.IsConnected())
		assert.NoError(t, s.Close())
	})

	t.Run("Rejected", func(t *testing.T) {
		var attempts atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		d, err := NewDialer(wsURL(srv), nil, fastPolicy(5))
		require.NoError(t, err)
		s := d.Alerts(context.Background())
		select {
		case <-s.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("source did not give up")
		}
		assert.EqualValues(t, 1, attempts.Load())
	})
}
