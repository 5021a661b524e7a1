package source

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/utilitywatch/outage-sentinel/internal/domain"
)

const waterDefaultURL = "https://interactive.vjur.am/"

// WaterFetcher scrapes the water provider's interactive announcements
// page. Announcements are accordion panels: the heading carries the
// affected-area summary, the body the full notice.
type WaterFetcher struct {
	httpClient *http.Client
	pageURL    string
	logger     *slog.Logger
}

// NewWaterFetcher creates a water announcements fetcher. An empty
// pageURL selects the production page.
func NewWaterFetcher(pageURL string, timeout time.Duration, logger *slog.Logger) *WaterFetcher {
	if pageURL == "" {
		pageURL = waterDefaultURL
	}
	return &WaterFetcher{
		httpClient: newHTTPClient(timeout),
		pageURL:    pageURL,
		logger:     logger,
	}
}

func (f *WaterFetcher) Utility() domain.Utility { return domain.UtilityWater }

// Fetch returns the currently published water announcements. The page
// does not distinguish planned from emergency works, so no status hint
// is attached.
func (f *WaterFetcher) Fetch(ctx context.Context) ([]domain.RawAnnouncement, error) {
	doc, err := fetchDocument(ctx, f.httpClient, f.pageURL)
	if err != nil {
		return nil, err
	}

	now := clock.Now()
	var anns []domain.RawAnnouncement
	doc.Find("div.items div.panel-group div.panel").Each(func(_ int, panel *goquery.Selection) {
		heading := squashSpace(panel.Find(".panel-heading a").Text())
		body := squashSpace(panel.Find(".panel-body").Text())
		text := squashSpace(heading + " " + body)
		if text == "" || isNoOutageSentinel(text) {
			return
		}
		anns = append(anns, domain.RawAnnouncement{
			Utility:   domain.UtilityWater,
			Text:      text,
			SourceURL: f.pageURL,
			Hint:      domain.StatusUnknown,
			FetchedAt: now,
		})
	})

	f.logger.Debug("fetched water announcements", "count", len(anns))
	return anns, nil
}
