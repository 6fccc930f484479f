package geocode

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/salesdash/internal/fetcher"
)

const nominatimBaseURL = "https://nominatim.openstreetmap.org"

// nominatimPlace is one element of a Nominatim /search jsonv2 response.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	AddressType string `json:"addresstype"`
	DisplayName string `json:"display_name"`
}

// NominatimProvider geocodes via the OpenStreetMap Nominatim search API.
// The public instance allows one request per second and requires an
// identifying User-Agent.
type NominatimProvider struct {
	cfg *providerConfig
}

// NewNominatimProvider creates a NominatimProvider limited to 1 req/s.
func NewNominatimProvider(opts ...ProviderOption) *NominatimProvider {
	return &NominatimProvider{cfg: newProviderConfig(nominatimBaseURL, 1, opts)}
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

// Available implements Provider.
func (p *NominatimProvider) Available() bool { return p.cfg.baseURL != "" }

// Geocode implements Provider.
func (p *NominatimProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	if err := p.cfg.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}

	params := url.Values{
		"q":      {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("User-Agent", p.cfg.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.cfg.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
	}

	places, err := fetcher.CollectJSONArray[nominatimPlace](ctx, resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}
	if len(places) == 0 {
		return &Result{Matched: false, Source: "nominatim"}, nil
	}

	place := places[0]
	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: nominatim parse lat %q", place.Lat)
	}
	lon, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: nominatim parse lon %q", place.Lon)
	}

	return &Result{
		Latitude:  lat,
		Longitude: lon,
		Source:    "nominatim",
		Quality:   nominatimTypeToQuality(place),
		Matched:   true,
	}, nil
}

// nominatimTypeToQuality maps the OSM feature kind to our quality taxonomy.
func nominatimTypeToQuality(p nominatimPlace) string {
	switch p.AddressType {
	case "house", "building":
		return "rooftop"
	case "road":
		return "range"
	case "city", "town", "village", "municipality", "suburb", "county", "state_district":
		return "centroid"
	}
	if p.Category == "boundary" || p.Category == "place" {
		return "centroid"
	}
	return "approximate"
}
