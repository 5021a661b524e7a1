// Package geocode resolves free-form addresses through the Yandex
// geocoder, biased to the service area. It backs the address
// verification endpoint; outage matching never depends on it.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/utilitywatch/outage-sentinel/internal/domain"
)

const defaultBaseURL = "https://geocode-maps.yandex.ru/1.x/"

// yerevanCenter biases results toward the capital, matching how
// subscribers phrase addresses. Yandex wants lon,lat order.
const yerevanCenter = "44.5125,40.1772"

// precisionConfidence maps Yandex precision classes onto [0,1].
var precisionConfidence = map[string]float64{
	"exact":  1.0,
	"number": 0.9,
	"near":   0.8,
	"range":  0.7,
	"street": 0.6,
	"other":  0.3,
}

// Client implements domain.Geocoder using the Yandex Geocoding API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Yandex geocoding client.
func NewClient(apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		logger:  logger,
	}
}

// Geocode resolves an address query within Armenia. A query that
// resolves to nothing returns a zero result with Found unset, not an
// error.
func (c *Client) Geocode(ctx context.Context, query string) (domain.GeocodeResult, error) {
	params := url.Values{
		"apikey":  {c.apiKey},
		"geocode": {"Армения, " + query},
		"format":  {"json"},
		"ll":      {yerevanCenter},
		"results": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.GeocodeResult{}, fmt.Errorf("yandex API error: status %d: %s", resp.StatusCode, body)
	}

	var yr response
	if err := json.NewDecoder(resp.Body).Decode(&yr); err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("decode response: %w", err)
	}

	members := yr.Response.GeoObjectCollection.FeatureMember
	if len(members) == 0 {
		return domain.GeocodeResult{}, nil
	}

	obj := members[0].GeoObject
	meta := obj.MetaDataProperty.GeocoderMetaData
	result := domain.GeocodeResult{
		Found:            true,
		FormattedAddress: meta.Text,
		Confidence:       precisionConfidence[meta.Precision],
	}
	if lon, lat, ok := parsePos(obj.Point.Pos); ok {
		result.Lon = lon
		result.Lat = lat
	}
	return result, nil
}

// parsePos splits a Yandex "lon lat" point string.
func parsePos(pos string) (lon, lat float64, ok bool) {
	parts := strings.Fields(pos)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, false
	}
	lat, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, false
	}
	return lon, lat, true
}

// Yandex API response types, trimmed to the fields used.

type response struct {
	Response struct {
		GeoObjectCollection struct {
			FeatureMember []struct {
				GeoObject geoObject `json:"GeoObject"`
			} `json:"featureMember"`
		} `json:"GeoObjectCollection"`
	} `json:"response"`
}

type geoObject struct {
	MetaDataProperty struct {
		GeocoderMetaData struct {
			Precision string `json:"precision"`
			Text      string `json:"text"`
		} `json:"GeocoderMetaData"`
	} `json:"metaDataProperty"`
	Point struct {
		Pos string `json:"pos"` // "lon lat"
	} `json:"Point"`
}
