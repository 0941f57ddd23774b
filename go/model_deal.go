package dealserver

import (
	"strings"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/application"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
)

// Deal is the JSON view of a looked-up deal.
type Deal struct {
	ProductId       string `json:"productId"`
	Title           string `json:"title"`
	SalePrice       string `json:"salePrice"`
	OriginalPrice   string `json:"originalPrice,omitempty"`
	Currency        string `json:"currency,omitempty"`
	DiscountPercent int    `json:"discountPercent,omitempty"`
	Rating          string `json:"rating,omitempty"`
	Orders          int64  `json:"orders,omitempty"`
	ShipTo          string `json:"shipTo,omitempty"`
	Category        string `json:"category,omitempty"`
	ImageUrl        string `json:"imageUrl,omitempty"`
	ProductUrl      string `json:"productUrl,omitempty"`
	AffiliateUrl    string `json:"affiliateUrl"`
	TrackingId      string `json:"trackingId,omitempty"`
	Message         string `json:"message"`
}

func fromDomainDeal(deal *domain.Deal) Deal {
	d := deal.Details
	out := Deal{
		ProductId:     d.ID.String(),
		Title:         d.Title,
		SalePrice:     d.SalePrice,
		OriginalPrice: d.OriginalPrice,
		Currency:      d.Currency,
		Rating:        d.Rating,
		Orders:        d.Orders,
		ShipTo:        d.ShipTo,
		Category:      strings.Join(d.CategoryPath, " > "),
		ImageUrl:      d.ImageURL,
		ProductUrl:    d.ProductURL,
		AffiliateUrl:  deal.Link.URL,
		TrackingId:    deal.Link.TrackingID,
		Message:       deal.Message,
	}
	if pct, ok := application.DiscountPercent(d.SalePrice, d.OriginalPrice); ok {
		out.DiscountPercent = pct
	}
	return out
}
