package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// Matcher extracts a product id from a URL shape. Matchers are evaluated in
// the order they appear in ProductMatchers; the first hit wins.
type Matcher struct {
	Name    string
	Pattern *regexp.Regexp
	// Extract returns the id from the submatches. Nil means "first group".
	Extract func(groups []string) string
}

func (m Matcher) match(input string) (ProductID, bool) {
	groups := m.Pattern.FindStringSubmatch(input)
	if groups == nil {
		return "", false
	}
	var raw string
	if m.Extract != nil {
		raw = m.Extract(groups)
	} else if len(groups) > 1 {
		raw = groups[1]
	}
	id := ProductID(raw)
	if !id.IsResolved() {
		return "", false
	}
	return id, true
}

// ProductMatchers lists the recognised direct-item shapes in priority order.
var ProductMatchers = []Matcher{
	{Name: "bare-id", Pattern: regexp.MustCompile(`^\s*(\d+)\s*$`)},
	{Name: "item-path", Pattern: regexp.MustCompile(`/item/(\d+)`)},
	{Name: "detail-path", Pattern: regexp.MustCompile(`/detail/(\d+)`)},
	{Name: "product-path", Pattern: regexp.MustCompile(`/product/(\d+)`)},
	{Name: "mobile-path", Pattern: regexp.MustCompile(`/i/(\d+)\.html`)},
	{Name: "product-id-param", Pattern: regexp.MustCompile(`[?&#]productId=(\d+)(?:[&#]|$)`)},
	{Name: "item-id-param", Pattern: regexp.MustCompile(`[?&#](?:itemId|item_id)=(\d+)(?:[&#]|$)`)},
	{Name: "id-param", Pattern: regexp.MustCompile(`[?&#]id=(\d+)(?:[&#]|$)`)},
	{Name: "html-suffix", Pattern: regexp.MustCompile(`/(\d{8,})\.html`)},
}

// ExtractProductID applies ProductMatchers to input without any network access.
func ExtractProductID(input string) (ProductID, bool) {
	for _, m := range ProductMatchers {
		if id, ok := m.match(input); ok {
			return id, true
		}
	}
	return "", false
}

// EmbeddedDestinationParams are query parameters click-tracking links use to
// carry the final destination URL.
var EmbeddedDestinationParams = []string{"dl_target_url", "ulp", "url", "target", "redirectUrl"}

// EmbeddedDestinations returns the decoded values of every destination
// parameter present in rawURL, in EmbeddedDestinationParams order. Values that
// fail percent-decoding are returned as-is.
func EmbeddedDestinations(rawURL string) []string {
	query := rawURL
	if idx := strings.Index(query, "?"); idx >= 0 {
		query = query[idx+1:]
	} else {
		return nil
	}
	if idx := strings.Index(query, "#"); idx >= 0 {
		query = query[:idx]
	}
	found := map[string]string{}
	for _, pair := range strings.Split(query, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || value == "" {
			continue
		}
		key = lenientUnescape(key)
		if _, seen := found[key]; seen {
			continue
		}
		found[key] = lenientUnescape(value)
	}
	var out []string
	for _, name := range EmbeddedDestinationParams {
		if v, ok := found[name]; ok {
			out = append(out, v)
		}
	}
	return out
}

// lenientUnescape decodes s, keeping the raw value when it is not valid
// percent-encoding.
func lenientUnescape(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// ProductIDFromEmbedded tries the embedded destinations of rawURL, decoding
// nested encodings up to depth levels.
func ProductIDFromEmbedded(rawURL string, depth int) (ProductID, bool) {
	if depth <= 0 {
		return "", false
	}
	for _, dest := range EmbeddedDestinations(rawURL) {
		if id, ok := ExtractProductID(dest); ok {
			return id, true
		}
		if id, ok := ExtractProductID(lenientUnescape(dest)); ok {
			return id, true
		}
		if id, ok := ProductIDFromEmbedded(dest, depth-1); ok {
			return id, true
		}
	}
	return "", false
}

// CommerceHostPatterns recognise hosts of the supported marketplace.
var CommerceHostPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(^|\.)aliexpress\.[a-z]{2,3}(\.[a-z]{2})?$`),
	regexp.MustCompile(`(?i)(^|\.)aliexpress-media\.com$`),
}

var linkPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// FindCommerceLink returns the first link in text whose host is a
// recognised commerce domain.
func FindCommerceLink(text string) (string, bool) {
	for _, candidate := range linkPattern.FindAllString(text, -1) {
		candidate = strings.TrimRight(candidate, ".,;:!?)]}'")
		u, err := url.Parse(candidate)
		if err != nil || u.Hostname() == "" {
			continue
		}
		if IsCommerceHost(u.Hostname()) {
			return candidate, true
		}
	}
	return "", false
}

// IsCommerceHost reports whether host belongs to the marketplace.
func IsCommerceHost(host string) bool {
	for _, p := range CommerceHostPatterns {
		if p.MatchString(host) {
			return true
		}
	}
	return false
}

// NormalizeReference produces the details cache key component for a raw
// reference: the product id when one is directly encoded, otherwise the URL
// with lowercased scheme and host and no fragment.
func NormalizeReference(raw string) string {
	raw = strings.TrimSpace(raw)
	if id, ok := ExtractProductID(raw); ok {
		return string(id)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
