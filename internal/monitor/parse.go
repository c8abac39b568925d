package monitor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseNotices extracts notices from a listing page, in page order (top of
// page = most recent). Pure function of its inputs.
//
// Entries without a title element are skipped, never fatal: a partially
// malformed listing still yields the parseable remainder. A summary is
// best-effort (missing = empty string). Relative links are resolved by
// plain concatenation BaseURL+link; duplicate slashes that result from a
// trailing-slash base and a leading-slash href are kept as-is, matching
// what the monitored sites actually serve.
func ParseNotices(html string, src Source) ([]Notice, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	var out []Notice
	doc.Find(src.itemSelector()).Each(func(i int, item *goquery.Selection) {
		titleEl := item.Find(src.titleSelector()).First()
		title := normalizeSpace(titleEl.Text())
		if titleEl.Length() == 0 || title == "" {
			return
		}

		link := strings.TrimSpace(titleEl.AttrOr("href", ""))
		link = resolveLink(link, src.BaseURL)

		summary := normalizeSpace(item.Find(src.summarySelector()).First().Text())

		out = append(out, Notice{
			ID:      DeriveID(title, link),
			Title:   title,
			Link:    link,
			Summary: summary,
			Source:  src.Label,
		})
	})
	return out, nil
}

func resolveLink(link, base string) string {
	if link == "" || base == "" {
		return link
	}
	if u, err := url.Parse(link); err == nil && u.Scheme != "" {
		return link
	}
	return base + link
}

// normalizeSpace trims and collapses runs of whitespace to single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
