package ports

import (
	"context"
	"time"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
)

// Service exposes the deal lookup use cases to driving adapters.
type Service interface {
	// LookupDeal runs resolve -> details -> affiliate link -> format for a raw reference.
	LookupDeal(ctx context.Context, reference string) (*domain.Deal, error)
}

// Resolver turns a raw user-supplied reference into a product id.
type Resolver interface {
	Resolve(ctx context.Context, input string) (domain.ProductID, error)
}

// Commerce is the outbound port to the commerce API.
type Commerce interface {
	FetchProductDetails(ctx context.Context, id domain.ProductID) (*domain.ProductDetails, error)
	GenerateAffiliateLink(ctx context.Context, id domain.ProductID) (*domain.AffiliateLink, error)
}

// Cache is a time-bounded memo. Expired entries read as absent.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V, ttl time.Duration)
}
