// Package aliexpress is a client for the AliExpress affiliate sync gateway:
// signed requests, regional endpoint fallback, a shared token bucket and a
// circuit breaker per endpoint.
package aliexpress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/shared/retry"
)

const (
	// DefaultPrimaryURL is the Singapore gateway.
	DefaultPrimaryURL = "https://api-sg.aliexpress.com/sync"
	// DefaultFallbackURL is the global gateway used when the primary is unreachable.
	DefaultFallbackURL = "https://api.aliexpress.com/sync"

	// DefaultTimeout bounds a single attempt against one endpoint.
	DefaultTimeout = 10 * time.Second
	// DefaultRequestsPerSecond is the steady rate shared by all outbound calls.
	DefaultRequestsPerSecond = 1.0
	// DefaultFallbackDelay is the pause before trying the next endpoint.
	DefaultFallbackDelay = 250 * time.Millisecond

	timestampLayout = "20060102150405"
	maxBodyBytes    = 4 << 20
)

// Config carries credentials and request defaults.
type Config struct {
	AppKey     string
	AppSecret  string
	TrackingID string

	// Endpoints are tried in order, one attempt each.
	Endpoints []string

	TargetCurrency string
	TargetLanguage string
	ShipToCountry  string

	RequestsPerSecond float64
	Timeout           time.Duration
	// FallbackDelay is waited before each fallback attempt. Zero uses
	// DefaultFallbackDelay; negative disables the pause.
	FallbackDelay time.Duration
}

// RequestObserver is told the outcome of every attempt, e.g. for metrics.
type RequestObserver func(method, endpoint, outcome string)

// WaitObserver is told how long an attempt waited for a limiter token.
type WaitObserver func(wait time.Duration)

// Client issues signed calls to the gateway. Safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	endpoints  []endpoint
	policy     retry.Policy
	now        func() time.Time
	logger     *slog.Logger
	observe    RequestObserver
	observeW   WaitObserver
}

type endpoint struct {
	url     string
	host    string
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the transport. Its Timeout is ignored in favour of Config.Timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLimiter shares an existing limiter instead of building one from Config.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		if limiter != nil {
			c.limiter = limiter
		}
	}
}

// WithLogger sets the logger used for fallback and breaker transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRequestObserver registers a per-attempt outcome callback.
func WithRequestObserver(observe RequestObserver) Option {
	return func(c *Client) {
		c.observe = observe
	}
}

// WithWaitObserver registers a limiter wait callback.
func WithWaitObserver(observe WaitObserver) Option {
	return func(c *Client) {
		c.observeW = observe
	}
}

// NewClient validates cfg and builds the client. Missing credentials are an
// error so that no request is ever sent with a signature that cannot verify.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.AppKey = strings.TrimSpace(cfg.AppKey)
	cfg.AppSecret = strings.TrimSpace(cfg.AppSecret)
	cfg.TrackingID = strings.TrimSpace(cfg.TrackingID)
	switch {
	case cfg.AppKey == "":
		return nil, errors.New("aliexpress app key is required")
	case cfg.AppSecret == "":
		return nil, errors.New("aliexpress app secret is required")
	case cfg.TrackingID == "":
		return nil, errors.New("aliexpress tracking id is required")
	}
	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = []string{DefaultPrimaryURL, DefaultFallbackURL}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.FallbackDelay == 0 {
		cfg.FallbackDelay = DefaultFallbackDelay
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		now:        time.Now,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.limiter == nil {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	for _, raw := range cfg.Endpoints {
		raw = strings.TrimSpace(raw)
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" {
			return nil, fmt.Errorf("aliexpress endpoint %q is not an absolute URL", raw)
		}
		c.endpoints = append(c.endpoints, endpoint{
			url:     raw,
			host:    parsed.Host,
			breaker: c.newBreaker(parsed.Host),
		})
	}

	c.policy = retry.Policy{
		MaxAttempts: len(c.endpoints),
		Backoff:     retry.Constant(max(cfg.FallbackDelay, 0)),
		Retryable:   IsRetryable,
		OnRetry: func(attempt int, err error) {
			c.logger.LogAttrs(context.Background(), slog.LevelWarn, "aliexpress endpoint failed, falling back",
				slog.String("failed_endpoint", c.endpoints[attempt-1].host),
				slog.String("next_endpoint", c.endpoints[attempt].host),
				slog.String("error", err.Error()),
			)
		},
	}
	return c, nil
}

// TrackingID is the affiliate tracking id every call is attributed to.
func (c *Client) TrackingID() string { return c.cfg.TrackingID }

// ShipToCountry is the destination used for price and shipping lookups, if any.
func (c *Client) ShipToCountry() string { return c.cfg.ShipToCountry }

func (c *Client) newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Only connection-class failures say anything about endpoint health.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.LogAttrs(context.Background(), slog.LevelInfo, "aliexpress circuit breaker state changed",
				slog.String("endpoint", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
}

// SignedParams returns the full parameter set for method, including the
// common fields and the trailing sign. Empty fields are dropped.
func (c *Client) SignedParams(method string, fields map[string]string) url.Values {
	params := map[string]string{
		"app_key":     c.cfg.AppKey,
		"method":      method,
		"sign_method": SignMethod,
		"timestamp":   c.now().UTC().Format(timestampLayout),
		"format":      "json",
		"v":           "2.0",
	}
	for key, value := range fields {
		if value = strings.TrimSpace(value); value != "" {
			params[key] = value
		}
	}
	values := make(url.Values, len(params)+1)
	for key, value := range params {
		values.Set(key, value)
	}
	values.Set("sign", Sign(params, c.cfg.AppSecret))
	return values
}

// call signs once and walks the endpoints under the retry policy. The same
// signed parameters are replayed on fallback.
func (c *Client) call(ctx context.Context, method string, fields map[string]string) ([]byte, error) {
	params := c.SignedParams(method, fields)
	var (
		body   []byte
		served string
	)
	err := c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		ep := c.endpoints[attempt%len(c.endpoints)]
		if err := c.wait(ctx); err != nil {
			c.record(method, ep.host, err)
			return err
		}
		b, err := ep.breaker.Execute(func() ([]byte, error) {
			return c.post(ctx, ep.url, params)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %s: %w", ErrEndpointUnavailable, ep.host, err)
		}
		if err != nil {
			c.record(method, ep.host, err)
			return err
		}
		body, served = b, ep.host
		return nil
	})
	if err != nil {
		return nil, err
	}
	result, err := decodeEnvelope(method, body)
	c.record(method, served, err)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "aliexpress call rejected",
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
	}
	return result, err
}

func (c *Client) wait(ctx context.Context) error {
	start := time.Now()
	err := c.limiter.Wait(ctx)
	if c.observeW != nil {
		c.observeW(time.Since(start))
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return fmt.Errorf("%w: rate limiter: %w", ErrTimeout, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpointURL string, params url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build aliexpress request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransportError(err)
	}
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", ErrEndpointUnavailable, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, &APIError{Method: params.Get("method"), Code: fmt.Sprintf("http_%d", resp.StatusCode), Message: http.StatusText(resp.StatusCode)}
	}
	return body, nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrEndpointUnavailable, err)
}

func (c *Client) record(method, host string, err error) {
	if c.observe == nil {
		return
	}
	c.observe(method, host, Outcome(err))
}

// Outcome names the result class of an attempt.
func Outcome(err error) string {
	var apiErr *APIError
	var malformed *MalformedResponseError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrEndpointUnavailable):
		return "unavailable"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.As(err, &malformed):
		return "malformed"
	default:
		return "error"
	}
}
