// Package source fetches outage announcements from the utility
// providers' public pages. Each fetcher owns one provider, knows its
// page layout, and returns raw source-language announcements. Fetchers
// never fail a sibling: a provider outage yields an error from that
// fetcher only.
package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout bounds one provider page fetch.
const DefaultTimeout = 30 * time.Second

const userAgent = "outage-sentinel/1.0"

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// fetchDocument GETs a provider page and parses it. Providers serve
// plain HTML; any non-200 status is an error.
func fetchDocument(ctx context.Context, client *http.Client, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// squashSpace collapses all whitespace runs in extracted text to single
// spaces and trims the ends. Provider markup is full of layout
// whitespace that would otherwise change the announcement fingerprint.
func squashSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// noOutageSentinels are the phrases providers publish when nothing is
// wrong. A page saying "no outages" yields zero announcements rather
// than one announcement that says so.
var noOutageSentinels = []string{
	"անջատումներ չկան",        // no outages
	"հայտարարություններ չկան", // no announcements
	"no outages",
	"no announcements",
}

func isNoOutageSentinel(text string) bool {
	lower := strings.ToLower(text)
	for _, s := range noOutageSentinels {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
