package aliexpress

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

const (
	// MethodProductQuery fetches product details by id.
	MethodProductQuery = "aliexpress.affiliate.product.query"
	// MethodLinkGenerate converts a product URL into a tracked promotion link.
	MethodLinkGenerate = "aliexpress.affiliate.link.generate"

	// PromotionLinkTypeNormal requests a regular (non hot-product) promotion link.
	PromotionLinkTypeNormal = "0"
)

// ProductFields is the field projection requested from the product query.
var ProductFields = []string{
	"product_id",
	"product_title",
	"product_main_image_url",
	"product_detail_url",
	"target_sale_price",
	"target_sale_price_currency",
	"target_original_price",
	"target_app_sale_price",
	"evaluate_rate",
	"lastest_volume",
	"first_level_category_name",
	"second_level_category_name",
}

// Product is a single record of the product query result.
type Product struct {
	ProductID               flexString `json:"product_id"`
	Title                   string     `json:"product_title"`
	MainImageURL            string     `json:"product_main_image_url"`
	DetailURL               string     `json:"product_detail_url"`
	TargetSalePrice         string     `json:"target_sale_price"`
	TargetSalePriceCurrency string     `json:"target_sale_price_currency"`
	TargetOriginalPrice     string     `json:"target_original_price"`
	TargetAppSalePrice      string     `json:"target_app_sale_price"`
	EvaluateRate            string     `json:"evaluate_rate"`
	LatestVolume            flexString `json:"lastest_volume"`
	FirstLevelCategoryName  string     `json:"first_level_category_name"`
	SecondLevelCategoryName string     `json:"second_level_category_name"`
}

// SalePrice prefers the app price, which is what the promotion link lands on.
func (p Product) SalePrice() string {
	if price := strings.TrimSpace(p.TargetAppSalePrice); price != "" {
		return price
	}
	return strings.TrimSpace(p.TargetSalePrice)
}

type productQueryResult struct {
	CurrentRecordCount flexString `json:"current_record_count"`
	Products           struct {
		Product []Product `json:"product"`
	} `json:"products"`
}

// PromotionLink is a single record of the link generation result.
type PromotionLink struct {
	PromotionLink string `json:"promotion_link"`
	SourceValue   string `json:"source_value"`
}

type linkGenerateResult struct {
	TrackingID     string `json:"tracking_id"`
	PromotionLinks struct {
		PromotionLink []PromotionLink `json:"promotion_link"`
	} `json:"promotion_links"`
}

// QueryProduct returns the first product record for productID.
func (c *Client) QueryProduct(ctx context.Context, productID string) (*Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, errors.New("aliexpress product id is required")
	}
	fields := map[string]string{
		"product_ids":     productID,
		"fields":          strings.Join(ProductFields, ","),
		"tracking_id":     c.cfg.TrackingID,
		"target_currency": c.cfg.TargetCurrency,
		"target_language": c.cfg.TargetLanguage,
		"ship_to_country": c.cfg.ShipToCountry,
	}
	raw, err := c.call(ctx, MethodProductQuery, fields)
	if err != nil {
		return nil, err
	}
	var result productQueryResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &MalformedResponseError{Method: MethodProductQuery, Reason: "result: " + err.Error()}
	}
	if len(result.Products.Product) == 0 {
		return nil, &MalformedResponseError{Method: MethodProductQuery, Reason: "no product in result"}
	}
	product := result.Products.Product[0]
	return &product, nil
}

// GeneratePromotionLink returns the tracked link for sourceValue, normally the
// canonical product page URL.
func (c *Client) GeneratePromotionLink(ctx context.Context, sourceValue string) (*PromotionLink, error) {
	sourceValue = strings.TrimSpace(sourceValue)
	if sourceValue == "" {
		return nil, errors.New("aliexpress source value is required")
	}
	fields := map[string]string{
		"source_values":       sourceValue,
		"promotion_link_type": PromotionLinkTypeNormal,
		"tracking_id":         c.cfg.TrackingID,
	}
	raw, err := c.call(ctx, MethodLinkGenerate, fields)
	if err != nil {
		return nil, err
	}
	var result linkGenerateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &MalformedResponseError{Method: MethodLinkGenerate, Reason: "result: " + err.Error()}
	}
	links := result.PromotionLinks.PromotionLink
	if len(links) == 0 || strings.TrimSpace(links[0].PromotionLink) == "" {
		return nil, &MalformedResponseError{Method: MethodLinkGenerate, Reason: "no promotion link in result"}
	}
	link := links[0]
	if link.SourceValue == "" {
		link.SourceValue = sourceValue
	}
	return &link, nil
}
