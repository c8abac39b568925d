package monitor

import (
	"crypto/md5"
	"encoding/hex"
)

// Notice is one discovered announcement, normalized from a listing page.
// Two notices are the same iff their IDs are equal.
type Notice struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Link    string `json:"link"`
	Summary string `json:"summary"`
	Source  string `json:"source"`
}

// DeriveID computes the stable identity of a notice: the md5 digest of the
// UTF-8 concatenation title+link (no separator), rendered as 32 hex chars.
// Deterministic by construction; collision-resistant enough for dedup.
func DeriveID(title, link string) string {
	sum := md5.Sum([]byte(title + link))
	return hex.EncodeToString(sum[:])
}

// Source describes one monitored listing page at runtime. Empty selector
// fields fall back to the common notice-board layout.
type Source struct {
	Label   string
	URL     string
	BaseURL string

	ItemSelector    string
	TitleSelector   string
	SummarySelector string
}

const (
	defaultItemSelector    = "ul.n_listxx1 li"
	defaultTitleSelector   = "h2 a"
	defaultSummarySelector = "p"
)

func (s Source) itemSelector() string {
	if s.ItemSelector != "" {
		return s.ItemSelector
	}
	return defaultItemSelector
}

func (s Source) titleSelector() string {
	if s.TitleSelector != "" {
		return s.TitleSelector
	}
	return defaultTitleSelector
}

func (s Source) summarySelector() string {
	if s.SummarySelector != "" {
		return s.SummarySelector
	}
	return defaultSummarySelector
}
