package domain

import "context"

// GeocodeResult is a resolved address candidate. Confidence is the
// provider's precision class mapped onto [0,1]; Found distinguishes a
// zero-result lookup from an all-zero match.
type GeocodeResult struct {
	Found            bool
	FormattedAddress string
	Lat              float64
	Lon              float64
	Confidence       float64
}

// Geocoder resolves a free-form address within the service area.
// Implementations must be safe for concurrent use.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (GeocodeResult, error)
}
