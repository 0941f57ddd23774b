package domain

import (
	"regexp"
	"strings"
)

var productIDPattern = regexp.MustCompile(`^\d+$`)

// ProductID is the numeric identifier of a commerce listing.
type ProductID string

// IsResolved reports whether the identifier is a strict numeric product id.
func (id ProductID) IsResolved() bool {
	return productIDPattern.MatchString(string(id))
}

func (id ProductID) String() string {
	return string(id)
}

// ItemURL is the canonical product page used as the link-generation source.
func (id ProductID) ItemURL() string {
	return "https://www.aliexpress.com/item/" + string(id) + ".html"
}

// ProductDetails is the normalized view of a product lookup.
type ProductDetails struct {
	ID            ProductID
	Title         string
	SalePrice     string
	OriginalPrice string
	Currency      string
	// Rating is the positive evaluation percentage as reported upstream, e.g. "96.5%".
	Rating       string
	Orders       int64
	ShipFrom     string
	ShipTo       string
	CategoryPath []string
	ImageURL     string
	ProductURL   string
}

// HasMandatoryFields reports whether the details can be rendered.
func (d ProductDetails) HasMandatoryFields() bool {
	return strings.TrimSpace(d.Title) != "" && strings.TrimSpace(d.SalePrice) != ""
}

// AffiliateLink is a promotional URL tied to a product and tracking id.
type AffiliateLink struct {
	ProductID  ProductID
	TrackingID string
	URL        string
}

// Deal is the result of the lookup pipeline for one product reference.
type Deal struct {
	Details ProductDetails
	Link    AffiliateLink
	Message string
}
