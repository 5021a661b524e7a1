package source

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/utilitywatch/outage-sentinel/internal/domain"
)

const electricDefaultURL = "https://www.ena.am/Info.aspx?id=5&lang=1"

// ElectricFetcher scrapes the electric network operator's info page.
// One page carries both kinds of works: planned outages as a free-text
// block, emergency ones as a WebForms table with one row per area.
type ElectricFetcher struct {
	httpClient *http.Client
	pageURL    string
	logger     *slog.Logger
}

// NewElectricFetcher creates an electric announcements fetcher. An
// empty pageURL selects the production page.
func NewElectricFetcher(pageURL string, timeout time.Duration, logger *slog.Logger) *ElectricFetcher {
	if pageURL == "" {
		pageURL = electricDefaultURL
	}
	return &ElectricFetcher{
		httpClient: newHTTPClient(timeout),
		pageURL:    pageURL,
		logger:     logger,
	}
}

func (f *ElectricFetcher) Utility() domain.Utility { return domain.UtilityElectric }

// Fetch returns planned and emergency electric announcements from the
// single info page, each with the hint its page section implies.
func (f *ElectricFetcher) Fetch(ctx context.Context) ([]domain.RawAnnouncement, error) {
	doc, err := fetchDocument(ctx, f.httpClient, f.pageURL)
	if err != nil {
		return nil, err
	}

	now := clock.Now()
	var anns []domain.RawAnnouncement

	if planned := squashSpace(doc.Find("#ctl00_ContentPlaceHolder1_attenbody").Text()); planned != "" && !isNoOutageSentinel(planned) {
		anns = append(anns, domain.RawAnnouncement{
			Utility:   domain.UtilityElectric,
			Text:      planned,
			SourceURL: f.pageURL,
			Hint:      domain.StatusPlanned,
			FetchedAt: now,
		})
	}

	doc.Find("#ctl00_ContentPlaceHolder1_vtarayin tbody tr").Each(func(_ int, row *goquery.Selection) {
		when := squashSpace(row.Find("td.termination-date span").Text())
		area := squashSpace(row.Find("td").Not(".termination-date").Text())
		text := squashSpace(when + " " + area)
		if text == "" || isNoOutageSentinel(text) {
			return
		}
		anns = append(anns, domain.RawAnnouncement{
			Utility:   domain.UtilityElectric,
			Text:      text,
			SourceURL: f.pageURL,
			Hint:      domain.StatusEmergency,
			FetchedAt: now,
		})
	})

	f.logger.Debug("fetched electric announcements", "count", len(anns))
	return anns, nil
}
