package application

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
)

// CaptionLimit is Telegram's maximum photo caption length.
const CaptionLimit = 1024

var (
	numericPrice    = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	groupedPrice    = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
	markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)
	currencySymbols = map[string]string{"USD": "$", "EUR": "€", "GBP": "£", "RUB": "₽", "BRL": "R$"}
)

// FormatDeal renders a deal as Telegram Markdown. Optional fields that are
// absent produce no line; a missing title or sale price yields
// domain.ErrIncompleteDetails.
func FormatDeal(details domain.ProductDetails, link domain.AffiliateLink) (string, error) {
	if !details.HasMandatoryFields() {
		return "", domain.ErrIncompleteDetails
	}

	lines := []string{
		"🎯 *" + markdownEscaper.Replace(strings.TrimSpace(details.Title)) + "*",
		"",
		"💰 Price: " + formatMoney(details.SalePrice, details.Currency),
	}
	if pct, ok := DiscountPercent(details.SalePrice, details.OriginalPrice); ok {
		lines = append(lines,
			"🏷 Original: "+formatMoney(details.OriginalPrice, details.Currency),
			fmt.Sprintf("🔥 %d%% OFF", pct),
		)
	}
	if rating := strings.TrimSpace(details.Rating); rating != "" {
		lines = append(lines, "⭐ Rating: "+rating)
	}
	if details.Orders > 0 {
		lines = append(lines, "📦 Orders: "+strconv.FormatInt(details.Orders, 10))
	}
	if shipping := formatShipping(details.ShipFrom, details.ShipTo); shipping != "" {
		lines = append(lines, shipping)
	}
	if len(details.CategoryPath) > 0 {
		lines = append(lines, "🗂 Category: "+markdownEscaper.Replace(strings.Join(details.CategoryPath, " > ")))
	}

	target := strings.TrimSpace(link.URL)
	if target == "" {
		target = strings.TrimSpace(details.ProductURL)
	}
	if target != "" {
		lines = append(lines, "", "🔗 [Get the deal]("+target+")")
	}
	return strings.Join(lines, "\n"), nil
}

// DiscountPercent returns round((1 - sale/original) * 100) when original > sale.
func DiscountPercent(sale, original string) (int, bool) {
	s, ok := parsePrice(sale)
	if !ok {
		return 0, false
	}
	o, ok := parsePrice(original)
	if !ok || o <= 0 || o <= s {
		return 0, false
	}
	pct := int(math.Round((1 - s/o) * 100))
	if pct <= 0 {
		return 0, false
	}
	return pct, true
}

func parsePrice(raw string) (float64, bool) {
	match := strings.TrimRight(numericPrice.FindString(raw), ",")
	if match == "" {
		return 0, false
	}
	if groupedPrice.MatchString(match) {
		// "1,299.00": commas group thousands.
		match = strings.ReplaceAll(match, ",", "")
	} else {
		// "12,50": a lone comma is the decimal mark.
		match = strings.Replace(match, ",", ".", 1)
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func formatMoney(amount, currency string) string {
	amount = strings.TrimSpace(amount)
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return amount
	}
	if symbol, ok := currencySymbols[currency]; ok {
		return symbol + amount
	}
	return amount + " " + currency
}

func formatShipping(from, to string) string {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	switch {
	case from != "" && to != "":
		return "🚚 Ships from " + from + " to " + to
	case from != "":
		return "🚚 Ships from " + from
	case to != "":
		return "🚚 Ships to " + to
	default:
		return ""
	}
}
