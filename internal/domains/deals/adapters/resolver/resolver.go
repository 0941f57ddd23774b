package resolver

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

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
)

const (
	// DefaultMaxHops bounds redirect following for one reference.
	DefaultMaxHops = 8
	// DefaultTimeout bounds the whole network part of one resolution.
	DefaultTimeout = 8 * time.Second
	// DefaultUserAgent looks like a desktop browser; short-link services
	// serve bot user agents an interstitial without a Location header.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	embeddedDepth = 3
	maxPageBytes  = 1 << 20
)

var errHopLimit = errors.New("redirect hop limit reached")

// Resolver dereferences tracking and short links into product ids.
type Resolver struct {
	client    *http.Client
	maxHops   int
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithHTTPClient overrides the transport. CheckRedirect is always replaced.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithMaxHops overrides DefaultMaxHops.
func WithMaxHops(hops int) Option {
	return func(r *Resolver) {
		if hops > 0 {
			r.maxHops = hops
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(r *Resolver) {
		if ua = strings.TrimSpace(ua); ua != "" {
			r.userAgent = ua
		}
	}
}

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New builds a Resolver with defaults.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		client:    &http.Client{},
		maxHops:   DefaultMaxHops,
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve returns the product id encoded in or behind input. Direct shapes
// never touch the network. Otherwise redirects are followed, the landing page
// is inspected, and finally embedded destination parameters are tried.
func (r *Resolver) Resolve(ctx context.Context, input string) (domain.ProductID, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", domain.ErrNotResolvable
	}
	if id, ok := domain.ExtractProductID(input); ok {
		return id, nil
	}

	u, err := url.Parse(input)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		if id, ok := domain.ProductIDFromEmbedded(input, embeddedDepth); ok {
			return id, nil
		}
		return "", fmt.Errorf("%w: %q is not a link", domain.ErrNotResolvable, input)
	}

	result := r.follow(ctx, u)
	if result.id != "" {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "reference resolved by redirect",
			slog.String("product.id", result.id.String()),
			slog.Int("hops", len(result.trail)-1),
		)
		return result.id, nil
	}

	for _, hop := range result.trail {
		if id, ok := domain.ProductIDFromEmbedded(hop, embeddedDepth); ok {
			r.logger.LogAttrs(ctx, slog.LevelDebug, "reference resolved from embedded destination",
				slog.String("product.id", id.String()),
			)
			return id, nil
		}
	}

	if result.err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "reference could not be followed",
			slog.String("reference", input),
			slog.Int("hops", len(result.trail)-1),
			slog.String("error", result.err.Error()),
		)
		if isTimeout(result.err) {
			return "", fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, result.err)
		}
		return "", fmt.Errorf("%w: %w", domain.ErrNotResolvable, result.err)
	}
	return "", domain.ErrNotResolvable
}

type followResult struct {
	id    domain.ProductID
	trail []string
	err   error
}

// follow walks the redirect chain from start. It stops as soon as a hop
// carries a direct product shape, and otherwise inspects the landing page.
func (r *Resolver) follow(ctx context.Context, start *url.URL) followResult {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res := followResult{trail: []string{start.String()}}
	client := *r.client
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		hop := req.URL.String()
		res.trail = append(res.trail, hop)
		if id, ok := domain.ExtractProductID(hop); ok {
			res.id = id
			return http.ErrUseLastResponse
		}
		if len(via) > r.maxHops {
			return errHopLimit
		}
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, start.String(), nil)
	if err != nil {
		res.err = err
		return res
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		res.err = err
		return res
	}
	defer resp.Body.Close()
	if res.id != "" {
		return res
	}

	final := resp.Request.URL
	if id, ok := domain.ExtractProductID(final.String()); ok {
		res.id = id
		return res
	}
	if resp.StatusCode != http.StatusOK || !isHTML(resp.Header.Get("Content-Type")) {
		return res
	}
	for _, candidate := range pageDestinations(io.LimitReader(resp.Body, maxPageBytes), final) {
		if id, ok := domain.ExtractProductID(candidate); ok {
			res.id = id
			return res
		}
		res.trail = append(res.trail, candidate)
	}
	if ctx.Err() != nil {
		res.err = ctx.Err()
	}
	return res
}

func isHTML(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return contentType == "" || strings.Contains(contentType, "html")
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.Is(err, errHopLimit) ||
		errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout())
}

var _ ports.Resolver = (*Resolver)(nil)
