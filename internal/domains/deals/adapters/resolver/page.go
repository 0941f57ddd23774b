package resolver

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pageDestinations lists the URLs an interstitial landing page points at:
// canonical link, og:url, app deep links and meta refresh targets, resolved
// against base.
func pageDestinations(body io.Reader, base *url.URL) []string {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil
	}
	var out []string
	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		ref, err := url.Parse(raw)
		if err != nil {
			out = append(out, raw)
			return
		}
		out = append(out, base.ResolveReference(ref).String())
	}

	doc.Find(`link[rel="canonical"]`).Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("href", ""))
	})
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		prop := strings.ToLower(s.AttrOr("property", s.AttrOr("name", "")))
		switch prop {
		case "og:url", "al:android:url", "al:ios:url":
			add(s.AttrOr("content", ""))
			return
		}
		if strings.EqualFold(s.AttrOr("http-equiv", ""), "refresh") {
			add(refreshTarget(s.AttrOr("content", "")))
		}
	})
	return out
}

// refreshTarget extracts the URL from a meta refresh value like "0; url=https://...".
func refreshTarget(content string) string {
	_, rest, ok := strings.Cut(content, ";")
	if !ok {
		return ""
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 4 || !strings.EqualFold(rest[:4], "url=") {
		return ""
	}
	return strings.Trim(strings.TrimSpace(rest[4:]), `'"`)
}
