package commerce

import (
	"context"
	"errors"
	"fmt"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/clients/http/aliexpress"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
)

// Commerce implements the outbound commerce port on top of the AliExpress gateway client.
type Commerce struct {
	client *aliexpress.Client
}

// New wires the gateway client into the commerce port.
func New(client *aliexpress.Client) *Commerce {
	return &Commerce{client: client}
}

// FetchProductDetails queries the product and normalises it.
func (c *Commerce) FetchProductDetails(ctx context.Context, id domain.ProductID) (*domain.ProductDetails, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("commerce adapter not configured")
	}
	if !id.IsResolved() {
		return nil, fmt.Errorf("%w: %q is not a product id", domain.ErrNotResolvable, id)
	}
	product, err := c.client.QueryProduct(ctx, id.String())
	if err != nil {
		return nil, MapError(err)
	}
	details := ToDetails(id, *product, c.client.ShipToCountry())
	return &details, nil
}

// GenerateAffiliateLink requests a promotion link for the canonical item page.
func (c *Commerce) GenerateAffiliateLink(ctx context.Context, id domain.ProductID) (*domain.AffiliateLink, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("commerce adapter not configured")
	}
	if !id.IsResolved() {
		return nil, fmt.Errorf("%w: %q is not a product id", domain.ErrNotResolvable, id)
	}
	link, err := c.client.GeneratePromotionLink(ctx, id.ItemURL())
	if err != nil {
		return nil, MapError(err)
	}
	return &domain.AffiliateLink{
		ProductID:  id,
		TrackingID: c.client.TrackingID(),
		URL:        link.PromotionLink,
	}, nil
}

// MapError translates gateway client errors into the domain taxonomy.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *aliexpress.APIError
	var malformed *aliexpress.MalformedResponseError
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case aliexpress.IsRetryable(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
	case errors.As(err, &apiErr):
		code := apiErr.Code
		if apiErr.SubCode != "" {
			code = apiErr.SubCode
		}
		return &domain.UpstreamError{Code: code, Message: apiErr.Message}
	case errors.As(err, &malformed):
		return &domain.MalformedResponseError{Reason: malformed.Reason}
	default:
		return err
	}
}

var _ ports.Commerce = (*Commerce)(nil)
