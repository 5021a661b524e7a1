package source

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/utilitywatch/outage-sentinel/internal/domain"
)

const (
	gasDefaultEmergencyURL = "https://armenia-am.gazprom.com/notice/announcement/vtar/"
	gasDefaultPlannedURL   = "https://armenia-am.gazprom.com/notice/announcement/plan/"
)

// GasFetcher scrapes the gas provider's announcement pages. The
// provider publishes emergency and planned works on separate pages, so
// the page itself is a reliable status hint.
type GasFetcher struct {
	httpClient   *http.Client
	emergencyURL string
	plannedURL   string
	logger       *slog.Logger
}

// NewGasFetcher creates a gas announcements fetcher. Empty URLs select
// the production pages.
func NewGasFetcher(emergencyURL, plannedURL string, timeout time.Duration, logger *slog.Logger) *GasFetcher {
	if emergencyURL == "" {
		emergencyURL = gasDefaultEmergencyURL
	}
	if plannedURL == "" {
		plannedURL = gasDefaultPlannedURL
	}
	return &GasFetcher{
		httpClient:   newHTTPClient(timeout),
		emergencyURL: emergencyURL,
		plannedURL:   plannedURL,
		logger:       logger,
	}
}

func (f *GasFetcher) Utility() domain.Utility { return domain.UtilityGas }

// Fetch returns announcements from both pages. One page failing does
// not discard the other's announcements; the error is still reported so
// the cycle can be logged as partial.
func (f *GasFetcher) Fetch(ctx context.Context) ([]domain.RawAnnouncement, error) {
	var anns []domain.RawAnnouncement
	var errs []error

	pages := []struct {
		url  string
		hint domain.Status
	}{
		{f.emergencyURL, domain.StatusEmergency},
		{f.plannedURL, domain.StatusPlanned},
	}
	for _, page := range pages {
		pageAnns, err := f.fetchPage(ctx, page.url, page.hint)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		anns = append(anns, pageAnns...)
	}

	f.logger.Debug("fetched gas announcements", "count", len(anns))
	return anns, errors.Join(errs...)
}

func (f *GasFetcher) fetchPage(ctx context.Context, pageURL string, hint domain.Status) ([]domain.RawAnnouncement, error) {
	doc, err := fetchDocument(ctx, f.httpClient, pageURL)
	if err != nil {
		return nil, err
	}

	now := clock.Now()
	var anns []domain.RawAnnouncement
	doc.Find(".announcements-list .item").Each(func(_ int, item *goquery.Selection) {
		text := squashSpace(item.Text())
		if text == "" || isNoOutageSentinel(text) {
			return
		}
		anns = append(anns, domain.RawAnnouncement{
			Utility:   domain.UtilityGas,
			Text:      text,
			SourceURL: pageURL,
			Hint:      hint,
			FetchedAt: now,
		})
	})
	return anns, nil
}
