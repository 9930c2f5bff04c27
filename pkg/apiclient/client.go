package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/solarmon/solarmon/pkg/common"
	"github.com/solarmon/solarmon/pkg/log"
	"github.com/solarmon/solarmon/pkg/session"
	"github.com/solarmon/solarmon/pkg/types"
)

const (
	HeaderRetryCount = "x-retry-count"
	HeaderRequestID  = "X-Request-Id"

	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 1
	DefaultBaseDelay  = 800 * time.Millisecond

	loginEndpoint    = "/api/auth/login"
	registerEndpoint = "/api/auth/register"
	refreshEndpoint  = "/api/auth/refresh-token"
)

// these never carry a bearer token
var anonymousPaths = map[string]bool{
	loginEndpoint:    true,
	registerEndpoint: true,
	refreshEndpoint:  true,
}

// a 401 from these is final
var noRefreshPaths = map[string]bool{
	loginEndpoint:   true,
	refreshEndpoint: true,
}

var retryStatuses = map[int]bool{
	http.StatusRequestTimeout:     true,
	http.StatusTooManyRequests:    true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// Credentials is the token storage the client reads and updates.
// *session.Store implements it.
type Credentials interface {
	Lookup(ctx context.Context, key string) (string, session.Scope, error)
	Set(ctx context.Context, scope session.Scope, key, value string) error
	Delete(ctx context.Context, scope session.Scope, key string) error
	Clear(ctx context.Context) error
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// Timeout applies to each attempt.
	Timeout time.Duration
	// MaxRetries bounds the retries of a single request. Zero disables retries.
	MaxRetries int
	BaseDelay  time.Duration
	HTTPClient *http.Client
	Notifier   Notifier
	Redirector Redirector
}

// DefaultOptions returns the standard resiliency settings for baseURL.
func DefaultOptions(baseURL string) Options {
	return Options{
		BaseURL:    baseURL,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
	}
}

// Client talks to the SolarMon REST API. It attaches the stored access token,
// refreshes it at most once at a time when the API answers 401, and retries
// transient failures with exponential backoff.
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	creds      Credentials
	coord      *Coordinator
	notifier   Notifier
	redirector Redirector
	maxRetries int
	baseDelay  time.Duration
}

// New returns a Client for opts.BaseURL backed by creds.
func New(creds Credentials, opts Options) (*Client, error) {
	if creds == nil {
		return nil, errors.New("credentials cannot be nil")
	}
	if opts.BaseURL == "" {
		return nil, errors.New("base url cannot be empty")
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid base url: %s", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = common.HTTPClient(opts.Timeout)
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{}
	}
	if opts.Redirector == nil {
		opts.Redirector = LogRedirector{}
	}
	initMetrics()
	return &Client{
		baseURL:    u,
		http:       opts.HTTPClient,
		creds:      creds,
		coord:      &Coordinator{},
		notifier:   opts.Notifier,
		redirector: opts.Redirector,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
	}, nil
}

// Credentials returns the token storage backing the client.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// Request describes one logical API call. It is reused across retries and
// token-refresh replays of the same call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte

	authRetried bool
}

// NewRequest returns a Request with body encoded as JSON. A nil body sends
// no content.
func NewRequest(method, path string, body any) (*Request, error) {
	r := &Request{
		Method: method,
		Path:   path,
		Header: http.Header{},
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r.Body = b
	}
	return r, nil
}

// RetryCount returns the number of retries already made.
func (r *Request) RetryCount() int {
	n, _ := strconv.Atoi(r.Header.Get(HeaderRetryCount))
	return n
}

// AuthRetried reports whether the request was already replayed after a 401.
func (r *Request) AuthRetried() bool {
	return r.authRetried
}

// Response is a successful API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Backoff returns the wait before the retry that follows retryCount earlier
// retries: base * 1.5^retryCount.
func Backoff(base time.Duration, retryCount int) time.Duration {
	return time.Duration(float64(base) * math.Pow(1.5, float64(retryCount)))
}

// Do sends req, recovering from an expired token and retrying transient
// failures. Errors are *HTTPError, *NetworkError or wrap ErrUnauthorized or
// ErrRefreshFailed.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if req.Header.Get(HeaderRetryCount) == "" {
		req.Header.Set(HeaderRetryCount, "0")
	}
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}
	ctx = log.WithAttrs(ctx,
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.String("requestID", req.Header.Get(HeaderRequestID)),
	)

	for {
		resp, err := c.send(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		if StatusCode(err) == http.StatusUnauthorized {
			if !req.authRetried && !noRefreshPaths[req.Path] {
				req.authRetried = true
				log.Ctx(ctx).DebugContext(ctx, "token expired or invalid")
				token, rerr := c.recoverAuth(ctx, req)
				if rerr != nil {
					return nil, rerr
				}
				req.Header.Set("Authorization", "Bearer "+token)
				continue
			}
			if !noRefreshPaths[req.Path] {
				log.Ctx(ctx).ErrorContext(ctx, "authentication failed after token refresh")
				c.expireSession(ctx, "")
			}
			err = fmt.Errorf("%w: %w", ErrUnauthorized, err)
		} else if c.shouldRetry(req, err) {
			n := req.RetryCount()
			req.Header.Set(HeaderRetryCount, strconv.Itoa(n+1))
			delay := Backoff(c.baseDelay, n)
			log.Ctx(ctx).WarnContext(ctx, "retrying API request",
				slog.Int("attempt", n+1),
				slog.Int("maxRetries", c.maxRetries),
				slog.Duration("delay", delay),
				slog.Any("error", err),
			)
			retriesTotal.WithLabelValues(retryReason(err)).Inc()
			if serr := sleep(ctx, delay); serr != nil {
				return nil, serr
			}
			continue
		}

		log.Ctx(ctx).DebugContext(ctx, "API request failed", slog.Int("status", StatusCode(err)), slog.Any("error", err))
		if req.RetryCount() >= c.maxRetries || isServerFault(err) {
			c.notifier.Notify(ctx, err)
		}
		return nil, err
	}
}

// DoJSON sends req and decodes the response body into dest. A nil dest or
// an empty body skips decoding.
func (c *Client) DoJSON(ctx context.Context, req *Request, dest any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if dest == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, dest); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode API response", slog.String("path", req.Path), slog.Any("error", err))
		return fmt.Errorf("failed to decode response from %s: %w", req.Path, err)
	}
	return nil
}

// JSON builds and sends a request in one call.
func (c *Client) JSON(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	req, err := NewRequest(method, path, body)
	if err != nil {
		return err
	}
	req.Query = query
	return c.DoJSON(ctx, req, dest)
}

func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	u := *c.baseURL
	p, err := url.JoinPath(u.Path, req.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", req.Path, err)
	}
	u.Path = p
	u.RawQuery = req.Query.Encode()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")
	for k, v := range req.Header {
		hreq.Header[k] = append([]string(nil), v...)
	}
	c.attach(ctx, req, hreq)

	start := time.Now()
	resp, err := c.http.Do(hreq)
	if err != nil {
		observeAttempt(req.Method, 0, time.Since(start))
		return nil, &NetworkError{Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	observeAttempt(req.Method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &NetworkError{Timeout: isTimeout(err), Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if resp.StatusCode >= 400 {
		return nil, newHTTPError(resp.StatusCode, b)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       b,
	}, nil
}

// attach sets the bearer token from storage. A request replayed after a
// refresh keeps the token it was handed, even if storing it failed.
func (c *Client) attach(ctx context.Context, req *Request, hreq *http.Request) {
	if anonymousPaths[req.Path] {
		hreq.Header.Del("Authorization")
		return
	}
	if req.authRetried && hreq.Header.Get("Authorization") != "" {
		return
	}
	token, _, err := c.creds.Lookup(ctx, session.KeyToken)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to read access token", slog.Any("error", err))
		return
	}
	if token != "" {
		hreq.Header.Set("Authorization", "Bearer "+token)
	}
}

// recoverAuth obtains a fresh access token for req, either by refreshing or
// by waiting on a refresh already in flight.
func (c *Client) recoverAuth(ctx context.Context, req *Request) (string, error) {
	refreshToken, _, err := c.creds.Lookup(ctx, session.KeyRefreshToken)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to read refresh token", slog.Any("error", err))
		refreshToken = ""
	}
	if refreshToken == "" {
		log.Ctx(ctx).InfoContext(ctx, "no refresh token available, cannot refresh")
		c.expireSession(ctx, "")
		return "", fmt.Errorf("%w: no refresh token available", ErrUnauthorized)
	}

	owner, wait := c.coord.Acquire()
	if !owner {
		refreshWaiters.Inc()
		log.Ctx(ctx).DebugContext(ctx, "waiting for in-flight token refresh")
		select {
		case res := <-wait:
			log.Ctx(ctx).DebugContext(ctx, "token refresh finished while waiting", slog.Int("position", res.Position))
			if res.Err != nil {
				return "", fmt.Errorf("%w: %w", ErrRefreshFailed, res.Err)
			}
			return res.Token, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	// waiters depend on this call, so it must not die with the owner's context
	token, reason, err := c.refresh(context.WithoutCancel(ctx), refreshToken)
	c.coord.Release(token, err)
	if err != nil {
		if req.RetryCount() >= c.maxRetries {
			c.expireSession(ctx, reason)
		}
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	return token, nil
}

// refresh exchanges refreshToken for a new access token and stores it. On
// failure it also returns the login reason to use if the session ends.
func (c *Client) refresh(ctx context.Context, refreshToken string) (string, string, error) {
	log.Ctx(ctx).InfoContext(ctx, "refreshing access token", log.Token(refreshToken))
	req, err := NewRequest(http.MethodPost, refreshEndpoint, map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return "", reasonRefreshFailed, err
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		refreshesTotal.WithLabelValues("error").Inc()
		log.Ctx(ctx).ErrorContext(ctx, "token refresh failed", slog.Any("error", err))
		return "", reasonRefreshFailed, err
	}
	var res types.RefreshResponse
	if err := json.Unmarshal(resp.Body, &res); err != nil || res.AccessToken == "" {
		refreshesTotal.WithLabelValues("invalid").Inc()
		log.Ctx(ctx).ErrorContext(ctx, "invalid token refresh response", slog.Any("error", err))
		return "", reasonExpired, errors.New("invalid token refresh response")
	}

	c.storeRotated(ctx, session.KeyToken, res.AccessToken)
	if res.RefreshToken != "" {
		c.storeRotated(ctx, session.KeyRefreshToken, res.RefreshToken)
	}
	refreshesTotal.WithLabelValues("success").Inc()
	log.Ctx(ctx).InfoContext(ctx, "token refresh successful")
	return res.AccessToken, "", nil
}

// storeRotated writes value into the scope that held key, or the session
// scope if none did.
func (c *Client) storeRotated(ctx context.Context, key, value string) {
	_, scope, err := c.creds.Lookup(ctx, key)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to read credential scope", slog.String("key", key), slog.Any("error", err))
	}
	if scope == "" {
		scope = session.Session
	}
	if err := c.creds.Set(ctx, scope, key, value); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to store credential", slog.String("key", key), slog.Any("error", err))
	}
}

func (c *Client) expireSession(ctx context.Context, reason string) {
	authFailedTotal.Inc()
	if err := c.creds.Clear(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to clear credentials", slog.Any("error", err))
	}
	c.redirector.Redirect(ctx, loginLocation(reason))
}

func (c *Client) shouldRetry(req *Request, err error) bool {
	if req.RetryCount() >= c.maxRetries {
		return false
	}
	var nerr *NetworkError
	if errors.As(err, &nerr) {
		return true
	}
	return retryStatuses[StatusCode(err)]
}

func isServerFault(err error) bool {
	code := StatusCode(err)
	return code >= 500 && code != http.StatusServiceUnavailable
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func retryReason(err error) string {
	var nerr *NetworkError
	if errors.As(err, &nerr) {
		if nerr.Timeout {
			return "timeout"
		}
		return "network"
	}
	return strconv.Itoa(StatusCode(err))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
