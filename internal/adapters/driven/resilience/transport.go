// Package resilience provides the HTTP transport shared by every provider adapter.
//
// Each upstream host gets its own token bucket and circuit breaker. Requests
// that fail with a transport error, 429 or 5xx are retried with exponential
// backoff; a Retry-After header replaces the computed delay.
package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/logger"
)

// ErrCircuitOpen is returned when a host's breaker rejects the request.
var ErrCircuitOpen = errors.New("circuit breaker open")

const (
	// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
	HeaderRetryAfter = "Retry-After"

	// MaxRetryAfter caps how long a server may ask us to wait.
	MaxRetryAfter = 30 * time.Second

	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 10 * time.Second
	defaultBreakerTimeout  = 60 * time.Second
	defaultBreakerInterval = 30 * time.Second
	defaultTripRequests    = 5
	defaultTripRatio       = 0.5
)

// Transport is an http.RoundTripper with per-host rate limiting,
// circuit breaking and retries.
type Transport struct {
	base http.RoundTripper

	requestsPerSecond float64
	maxRetries        int
	initialInterval   time.Duration
	maxInterval       time.Duration
	breakerTimeout    time.Duration
	tripRequests      uint32
	tripRatio         float64

	mu    sync.Mutex
	hosts map[string]*hostGuard
}

type hostGuard struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// Option configures a Transport.
type Option func(*Transport)

// WithBase sets the underlying round tripper.
func WithBase(rt http.RoundTripper) Option {
	return func(t *Transport) {
		if rt != nil {
			t.base = rt
		}
	}
}

// WithBackoff sets the retry delay bounds.
func WithBackoff(initial, maxInterval time.Duration) Option {
	return func(t *Transport) {
		if initial > 0 {
			t.initialInterval = initial
		}
		if maxInterval > 0 {
			t.maxInterval = maxInterval
		}
	}
}

// WithBreaker sets how many requests and what failure ratio trip a host's
// breaker, and how long it stays open.
func WithBreaker(requests uint32, ratio float64, openFor time.Duration) Option {
	return func(t *Transport) {
		if requests > 0 {
			t.tripRequests = requests
		}
		if ratio > 0 {
			t.tripRatio = ratio
		}
		if openFor > 0 {
			t.breakerTimeout = openFor
		}
	}
}

// NewTransport creates a transport from the transport settings.
func NewTransport(settings domain.TransportSettings, opts ...Option) *Transport {
	t := &Transport{
		base:              http.DefaultTransport,
		requestsPerSecond: settings.RequestsPerSecond,
		maxRetries:        settings.MaxRetries,
		initialInterval:   defaultInitialInterval,
		maxInterval:       defaultMaxInterval,
		breakerTimeout:    defaultBreakerTimeout,
		tripRequests:      defaultTripRequests,
		tripRatio:         defaultTripRatio,
		hosts:             make(map[string]*hostGuard),
	}
	if t.maxRetries < 0 {
		t.maxRetries = 0
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewClient wraps a Transport in an http.Client with the given timeout.
func NewClient(settings domain.TransportSettings, timeout time.Duration, opts ...Option) *http.Client {
	return &http.Client{
		Transport: NewTransport(settings, opts...),
		Timeout:   timeout,
	}
}

// guard returns the limiter and breaker for a host, creating them on first use.
func (t *Transport) guard(host string) *hostGuard {
	t.mu.Lock()
	defer t.mu.Unlock()

	if g, ok := t.hosts[host]; ok {
		return g
	}

	limit := rate.Inf
	burst := 1
	if t.requestsPerSecond > 0 {
		limit = rate.Limit(t.requestsPerSecond)
		burst = max(1, int(t.requestsPerSecond))
	}

	tripRequests := t.tripRequests
	tripRatio := t.tripRatio
	g := &hostGuard{
		limiter: rate.NewLimiter(limit, burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        host,
			MaxRequests: 1,
			Interval:    defaultBreakerInterval,
			Timeout:     t.breakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < tripRequests {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= tripRatio
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
	t.hosts[host] = g
	return g
}

// statusError marks a response the breaker should count as a failure.
type statusError struct {
	code       int
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.code)
}

// Retryable reports whether a status code is worth retrying.
func Retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	g := t.guard(req.URL.Host)

	if req.Body != nil && req.GetBody == nil && t.maxRetries > 0 {
		body, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("buffering request body: %w", err)
		}
		req = cloneWithBody(req, body)
	}

	ra := &retryAfterBackOff{BackOff: t.newBackOff()}
	var b backoff.BackOff = backoff.WithMaxRetries(ra, uint64(t.maxRetries))
	b = backoff.WithContext(b, ctx)

	var (
		last    *http.Response
		attempt int
	)
	op := func() error {
		attempt++
		if last != nil {
			drain(last)
			last = nil
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		r := req
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(err)
			}
			r = req.Clone(ctx)
			r.Body = body
		}

		out, err := g.breaker.Execute(func() (interface{}, error) {
			resp, err := t.base.RoundTrip(r)
			if err != nil {
				return nil, err
			}
			if Retryable(resp.StatusCode) {
				return resp, &statusError{
					code:       resp.StatusCode,
					retryAfter: parseRetryAfter(resp.Header.Get(HeaderRetryAfter), time.Now()),
				}
			}
			return resp, nil
		})

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrCircuitOpen, req.URL.Host))
		}

		var se *statusError
		if errors.As(err, &se) {
			last, _ = out.(*http.Response)
			ra.next = se.retryAfter
			return err
		}
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		last, _ = out.(*http.Response)
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Debug("retrying %s %s in %s: %v", req.Method, req.URL.Redacted(), wait.Round(time.Millisecond), err)
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		var se *statusError
		if errors.As(err, &se) && last != nil {
			// Out of retries: hand the final response to the caller.
			return last, nil
		}
		if last != nil {
			drain(last)
		}
		return nil, err
	}
	return last, nil
}

func (t *Transport) newBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = t.initialInterval
	exp.MaxInterval = t.maxInterval
	exp.Multiplier = 2.0
	exp.MaxElapsedTime = 0
	return exp
}

// retryAfterBackOff lets a server-provided delay replace the next computed one.
type retryAfterBackOff struct {
	backoff.BackOff
	next time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	d := b.BackOff.NextBackOff()
	if d == backoff.Stop {
		return d
	}
	if b.next > 0 {
		d = b.next
		b.next = 0
	}
	return d
}

func (b *retryAfterBackOff) Reset() {
	b.next = 0
	b.BackOff.Reset()
}

// parseRetryAfter accepts delta seconds or an HTTP date. Zero means absent.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		d = at.Sub(now)
	}
	if d <= 0 {
		return 0
	}
	return min(d, MaxRetryAfter)
}

func cloneWithBody(req *http.Request, body []byte) *http.Request {
	r := req.Clone(req.Context())
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	r.ContentLength = int64(len(body))
	return r
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
