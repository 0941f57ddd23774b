//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	// ProviderName is the deal lookup API served by the bot.
	ProviderName = "deal-bot-api"
	// ConsumerName is the storefront widget that embeds deals.
	ConsumerName = "deal-widget"

	// CommerceProviderName is the affiliate gateway the bot calls.
	CommerceProviderName = "aliexpress-affiliate-api"
	// CommerceConsumerName is the bot as a gateway client.
	CommerceConsumerName = "deal-bot"

	StateProductOnSale  = "product 1005001 is on sale"
	StateLinkUnresolved = "the short link cannot be resolved"
)

const (
	ExistingProductID = "1005001"
	ExistingItemLink  = "https://www.aliexpress.com/item/1005001.html"
	UnresolvedLink    = "https://s.click.aliexpress.com/e/_unknown"
	ExampleTracking   = "pact-tracker"
	ExampleAffiliate  = "https://s.click.aliexpress.com/e/_pactDeal"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the deal widget consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleDealPayload is the deal the provider returns for StateProductOnSale.
func ExampleDealPayload() map[string]any {
	return map[string]any{
		"productId":       ExistingProductID,
		"title":           "Pact Desk Lamp",
		"salePrice":       "7.50",
		"originalPrice":   "10.00",
		"currency":        "USD",
		"discountPercent": 25,
		"affiliateUrl":    ExampleAffiliate,
		"trackingId":      ExampleTracking,
		"message":         "*Pact Desk Lamp*",
	}
}

// ExampleProductPayload is one product in a gateway product.query response.
func ExampleProductPayload() map[string]any {
	return map[string]any{
		"product_id":                 1005001,
		"product_title":              "Pact Desk Lamp",
		"target_sale_price":          "7.50",
		"target_sale_price_currency": "USD",
		"target_original_price":      "10.00",
		"evaluate_rate":              "96.5%",
		"lastest_volume":             1200,
		"product_main_image_url":     "https://ae01.alicdn.com/kf/pact.jpg",
		"product_detail_url":         ExistingItemLink,
		"first_level_category_name":  "Home",
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
