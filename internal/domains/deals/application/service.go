package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
)

const (
	// DefaultCacheTTL matches the lifetime the bot has always memoised upstream answers for.
	DefaultCacheTTL = 30 * time.Minute
	// DefaultFlightTimeout bounds one shared upstream lookup, independent of
	// the callers waiting on it.
	DefaultFlightTimeout = 30 * time.Second
)

// Service owns the lookup pipeline and its memoisation. Each instance carries
// its own caches, so tests construct a fresh one.
type Service struct {
	resolver ports.Resolver
	commerce ports.Commerce
	details  ports.Cache[domain.ProductDetails]
	links    ports.Cache[domain.AffiliateLink]
	ttl      time.Duration
	flightTO time.Duration
	flights  singleflight.Group
}

// Option configures the Service.
type Option func(*Service)

// WithDetailsCache memoises product details lookups.
func WithDetailsCache(cache ports.Cache[domain.ProductDetails]) Option {
	return func(s *Service) {
		s.details = cache
	}
}

// WithLinkCache memoises affiliate link generation.
func WithLinkCache(cache ports.Cache[domain.AffiliateLink]) Option {
	return func(s *Service) {
		s.links = cache
	}
}

// WithCacheTTL overrides DefaultCacheTTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithFlightTimeout overrides DefaultFlightTimeout.
func WithFlightTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.flightTO = timeout
		}
	}
}

// NewService wires the deals service with its collaborators.
func NewService(resolver ports.Resolver, commerce ports.Commerce, opts ...Option) *Service {
	s := &Service{
		resolver: resolver,
		commerce: commerce,
		ttl:      DefaultCacheTTL,
		flightTO: DefaultFlightTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// LookupDeal resolves the reference, fetches details, and only then generates
// the affiliate link and renders the message.
func (s *Service) LookupDeal(ctx context.Context, reference string) (*domain.Deal, error) {
	details, err := s.FetchProductDetails(ctx, reference)
	if err != nil {
		return nil, err
	}
	link, err := s.GenerateAffiliateLink(ctx, details.ID)
	if err != nil {
		return nil, err
	}
	message, err := FormatDeal(*details, *link)
	if err != nil {
		return nil, err
	}
	return &domain.Deal{Details: *details, Link: *link, Message: message}, nil
}

// FetchProductDetails is the memoised resolve + details fetch for a raw reference.
func (s *Service) FetchProductDetails(ctx context.Context, reference string) (*domain.ProductDetails, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domain.ErrNotResolvable
	}
	if s.resolver == nil || s.commerce == nil {
		return nil, errors.New("deals service not configured")
	}
	key := "product:" + domain.NormalizeReference(reference)
	if s.details != nil {
		if cached, ok := s.details.Get(key); ok {
			return &cached, nil
		}
	}
	v, err := s.share(ctx, key, func(ctx context.Context) (any, error) {
		id, err := s.resolver.Resolve(ctx, reference)
		if err != nil {
			return nil, err
		}
		details, err := s.commerce.FetchProductDetails(ctx, id)
		if err != nil {
			return nil, err
		}
		if details == nil {
			return nil, &domain.MalformedResponseError{Reason: "empty product details"}
		}
		if details.ID == "" {
			details.ID = id
		}
		if s.details != nil {
			s.details.Set(key, *details, s.ttl)
		}
		return *details, nil
	})
	if err != nil {
		return nil, err
	}
	details := v.(domain.ProductDetails)
	return &details, nil
}

// GenerateAffiliateLink is the memoised affiliate link generation for a resolved id.
func (s *Service) GenerateAffiliateLink(ctx context.Context, id domain.ProductID) (*domain.AffiliateLink, error) {
	if !id.IsResolved() {
		return nil, fmt.Errorf("%w: %q is not a product id", domain.ErrNotResolvable, id)
	}
	if s.commerce == nil {
		return nil, errors.New("deals service not configured")
	}
	key := "affiliate:" + string(id)
	if s.links != nil {
		if cached, ok := s.links.Get(key); ok {
			return &cached, nil
		}
	}
	v, err := s.share(ctx, key, func(ctx context.Context) (any, error) {
		link, err := s.commerce.GenerateAffiliateLink(ctx, id)
		if err != nil {
			return nil, err
		}
		if link == nil || strings.TrimSpace(link.URL) == "" {
			return nil, &domain.MalformedResponseError{Reason: "empty promotion link"}
		}
		if s.links != nil {
			s.links.Set(key, *link, s.ttl)
		}
		return *link, nil
	})
	if err != nil {
		return nil, err
	}
	link := v.(domain.AffiliateLink)
	return &link, nil
}

// share runs fn once per key for all concurrent callers. fn gets a context
// detached from any single caller, so one caller giving up never fails the
// others; each caller still stops waiting when its own ctx ends.
func (s *Service) share(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	flight := s.flights.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.flightTO)
		defer cancel()
		return fn(flightCtx)
	})
	select {
	case res := <-flight:
		return res.Val, res.Err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, ctx.Err())
		}
		return nil, ctx.Err()
	}
}

var _ ports.Service = (*Service)(nil)
