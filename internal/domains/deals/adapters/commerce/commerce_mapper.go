package commerce

import (
	"strconv"
	"strings"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/clients/http/aliexpress"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
)

// ToDetails converts a gateway product record into the domain view. requested
// is used when the record carries no id of its own.
func ToDetails(requested domain.ProductID, p aliexpress.Product, shipTo string) domain.ProductDetails {
	id := domain.ProductID(strings.TrimSpace(p.ProductID.String()))
	if !id.IsResolved() {
		id = requested
	}
	original := strings.TrimSpace(p.TargetOriginalPrice)
	if original == p.SalePrice() {
		original = ""
	}
	productURL := strings.TrimSpace(p.DetailURL)
	if productURL == "" {
		productURL = id.ItemURL()
	}
	return domain.ProductDetails{
		ID:            id,
		Title:         strings.TrimSpace(p.Title),
		SalePrice:     p.SalePrice(),
		OriginalPrice: original,
		Currency:      strings.TrimSpace(p.TargetSalePriceCurrency),
		Rating:        strings.TrimSpace(p.EvaluateRate),
		Orders:        parseVolume(p.LatestVolume.String()),
		ShipTo:        strings.TrimSpace(shipTo),
		CategoryPath:  categoryPath(p.FirstLevelCategoryName, p.SecondLevelCategoryName),
		ImageURL:      strings.TrimSpace(p.MainImageURL),
		ProductURL:    productURL,
	}
}

func parseVolume(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func categoryPath(levels ...string) []string {
	var path []string
	for _, level := range levels {
		if level = strings.TrimSpace(level); level != "" {
			path = append(path, level)
		}
	}
	return path
}
