// Package stream subscribes to the SolarMon WebSocket channels that push
// energy readings, status updates and tamper alerts.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/solarmon/solarmon/pkg/common"
	"github.com/solarmon/solarmon/pkg/log"
	"github.com/solarmon/solarmon/pkg/session"
	"github.com/solarmon/solarmon/pkg/types"
)

// TokenSource supplies the bearer token sent in the handshake.
// *session.Store implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, session.Scope, error)
}

// Policy controls reconnection after a failed dial or a dropped connection.
type Policy struct {
	Min        time.Duration
	Max        time.Duration
	Multiplier float64
	// MaxRetries bounds the redials that follow a failed dial. A Source
	// therefore dials at most MaxRetries+1 times before giving up.
	MaxRetries uint64
}

// DefaultPolicy waits 1s, growing by 1.3 up to 15s, for at most 5 retries.
func DefaultPolicy() Policy {
	return Policy{
		Min:        time.Second,
		Max:        15 * time.Second,
		Multiplier: 1.3,
		MaxRetries: 5,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Min
	b.MaxInterval = p.Max
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// Dialer opens Sources against one WebSocket base URL.
type Dialer struct {
	baseURL *url.URL
	tokens  TokenSource
	policy  Policy
	ws      *websocket.Dialer
}

// NewDialer returns a Dialer for a ws:// or wss:// base URL. tokens may be
// nil for unauthenticated channels.
func NewDialer(baseURL string, tokens TokenSource, policy Policy) (*Dialer, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket url: %w", err)
	}
	if (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return nil, fmt.Errorf("invalid websocket url: %s", baseURL)
	}
	if policy.Min <= 0 || policy.Max <= 0 || policy.Multiplier < 1 {
		policy = DefaultPolicy()
	}
	return &Dialer{
		baseURL: u,
		tokens:  tokens,
		policy:  policy,
		ws: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}, nil
}

// EnergyMonitoring opens the system-wide readings channel.
func (d *Dialer) EnergyMonitoring(ctx context.Context) *Source {
	return d.Open(ctx, "energy-monitoring")
}

// Installation opens the channel of a single installation.
func (d *Dialer) Installation(ctx context.Context, installationID int64) *Source {
	return d.Open(ctx, fmt.Sprintf("installation/%d", installationID))
}

// Alerts opens the tamper and security alert channel.
func (d *Dialer) Alerts(ctx context.Context) *Source {
	return d.Open(ctx, "alerts")
}

// Open starts a Source for path relative to the base URL. The Source
// connects in the background and keeps reconnecting until Close or until the
// policy gives up.
func (d *Dialer) Open(ctx context.Context, path string) *Source {
	u := *d.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Source{
		d:        d,
		url:      u.String(),
		cancel:   cancel,
		done:     make(chan struct{}),
		handlers: map[uint64]Handler{},
		errs:     map[uint64]ErrorHandler{},
	}
	ctx = log.WithAttrs(ctx, slog.String("stream", s.url))
	go s.run(ctx)
	return s
}

// Handler receives decoded messages.
type Handler func(types.StreamMessage)

// ErrorHandler receives malformed messages, dropped connections and the
// final error when the Source gives up.
type ErrorHandler func(error)

// Source is one WebSocket subscription. Handlers run on the Source's read
// goroutine and should not block.
type Source struct {
	d      *Dialer
	url    string
	cancel context.CancelFunc
	done   chan struct{}

	connected atomic.Bool

	mu       sync.Mutex
	conn     *websocket.Conn
	nextID   uint64
	handlers map[uint64]Handler
	errs     map[uint64]ErrorHandler
	closed   bool
}

// Subscribe registers h and returns a func that removes it.
func (s *Source) Subscribe(h Handler) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.handlers[id] = h
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, id)
	}
}

// OnError registers h for errors and returns a func that removes it.
func (s *Source) OnError(h ErrorHandler) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.errs[id] = h
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.errs, id)
	}
}

// IsConnected reports whether the Source currently holds an open connection.
func (s *Source) IsConnected() bool {
	return s.connected.Load()
}

// Done is closed once the Source stops, after Close or after giving up.
func (s *Source) Done() <-chan struct{} {
	return s.done
}

// Close stops the Source and waits for its goroutine to exit. It is safe to
// call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	conn := s.conn
	s.mu.Unlock()

	s.cancel()
	if conn != nil {
		conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}
	<-s.done
	return nil
}

func (s *Source) run(ctx context.Context) {
	defer close(s.done)
	first := true
	for {
		if !first {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.d.policy.Min):
			}
		}
		first = false

		conn, err := s.connect(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Ctx(ctx).ErrorContext(ctx, "giving up on stream", slog.Any("error", err))
				s.fail(fmt.Errorf("failed to connect to %s: %w", s.url, err))
			}
			return
		}
		if !s.setConn(conn) {
			conn.Close()
			return
		}
		log.Ctx(ctx).InfoContext(ctx, "stream connected")

		err = s.read(ctx, conn)
		s.setConn(nil)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		log.Ctx(ctx).WarnContext(ctx, "stream disconnected", slog.Any("error", err))
		s.fail(fmt.Errorf("connection to %s lost: %w", s.url, err))
	}
}

// connect dials with the reconnect policy. A rejected handshake is not
// retried.
func (s *Source) connect(ctx context.Context) (*websocket.Conn, error) {
	var conn *websocket.Conn
	op := func() error {
		header := http.Header{}
		header.Set("User-Agent", common.UserAgent())
		if s.d.tokens != nil {
			token, _, err := s.d.tokens.Token(ctx)
			if err != nil {
				log.Ctx(ctx).WarnContext(ctx, "failed to read access token", slog.Any("error", err))
			} else if token != "" {
				header.Set("Authorization", "Bearer "+token)
			}
		}
		c, resp, err := s.d.ws.DialContext(ctx, s.url, header)
		if err != nil {
			if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
				return backoff.Permanent(fmt.Errorf("handshake rejected with status %d: %w", resp.StatusCode, err))
			}
			return err
		}
		conn = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Ctx(ctx).DebugContext(ctx, "stream dial failed", slog.Duration("wait", wait), slog.Any("error", err))
	}
	if err := backoff.RetryNotify(op, s.d.policy.backOff(ctx), notify); err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *Source) setConn(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn != nil && s.closed {
		return false
	}
	s.conn = conn
	s.connected.Store(conn != nil)
	return true
}

func (s *Source) read(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		msg, err := types.DecodeStreamMessage(b)
		if err != nil {
			log.Ctx(ctx).DebugContext(ctx, "malformed stream message", slog.Any("error", err))
			s.fail(fmt.Errorf("malformed message: %w", err))
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Source) dispatch(msg types.StreamMessage) {
	s.mu.Lock()
	hs := make([]Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		hs = append(hs, h)
	}
	s.mu.Unlock()
	for _, h := range hs {
		h(msg)
	}
}

func (s *Source) fail(err error) {
	s.mu.Lock()
	hs := make([]ErrorHandler, 0, len(s.errs))
	for _, h := range s.errs {
		hs = append(hs, h)
	}
	s.mu.Unlock()
	for _, h := range hs {
		h(err)
	}
}
