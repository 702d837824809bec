package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"homeline/pkg/domain"
)

const defaultMapsBaseURL = "https://maps.googleapis.com/maps/api"

// coordPrecision is the number of fractional digits carried end to end for
// latitude and longitude.
const coordPrecision = 8

// LatLng is a fixed-precision coordinate pair.
type LatLng struct {
	Lat decimal.Decimal
	Lng decimal.Decimal
}

func (p LatLng) String() string {
	return p.Lat.StringFixed(coordPrecision) + "," + p.Lng.StringFixed(coordPrecision)
}

// Geocoder resolves free-text addresses to places. The boolean is false when
// the address could not be resolved.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Place, bool, error)
}

// Router produces traffic-aware route estimates. The boolean is false when
// no route exists between the points.
type Router interface {
	Route(ctx context.Context, origin, dest LatLng, departure time.Time) (domain.Route, bool, error)
}

// Client calls a Maps-style REST API for geocoding and directions.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client with the provided API key. baseURL is
// optional and defaults to the public endpoint.
func NewClient(apiKey, baseURL string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("maps api key required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultMapsBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Geocode resolves an address to a place.
func (c *Client) Geocode(ctx context.Context, address string) (domain.Place, bool, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.Place{}, false, nil
	}
	query := url.Values{}
	query.Set("address", address)
	query.Set("key", c.apiKey)
	var resp geocodeResponse
	if err := c.doGET(ctx, c.baseURL+"/geocode/json?"+query.Encode(), &resp); err != nil {
		return domain.Place{}, false, err
	}
	if resp.Status == "ZERO_RESULTS" || len(resp.Results) == 0 {
		return domain.Place{}, false, nil
	}
	if resp.Status != "OK" {
		return domain.Place{}, false, fmt.Errorf("geocode status %s", resp.Status)
	}
	first := resp.Results[0]
	return domain.Place{
		Latitude:         decimal.NewFromFloat(first.Geometry.Location.Lat).Round(coordPrecision),
		Longitude:        decimal.NewFromFloat(first.Geometry.Location.Lng).Round(coordPrecision),
		FormattedAddress: first.FormattedAddress,
	}, true, nil
}

// Route fetches a traffic-aware estimate between two points.
func (c *Client) Route(ctx context.Context, origin, dest LatLng, departure time.Time) (domain.Route, bool, error) {
	query := url.Values{}
	query.Set("origin", origin.String())
	query.Set("destination", dest.String())
	query.Set("departure_time", fmt.Sprintf("%d", departure.Unix()))
	query.Set("key", c.apiKey)
	var resp directionsResponse
	if err := c.doGET(ctx, c.baseURL+"/directions/json?"+query.Encode(), &resp); err != nil {
		return domain.Route{}, false, err
	}
	if resp.Status == "ZERO_RESULTS" || len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return domain.Route{}, false, nil
	}
	if resp.Status != "OK" {
		return domain.Route{}, false, fmt.Errorf("directions status %s", resp.Status)
	}
	leg := resp.Routes[0].Legs[0]
	route := domain.Route{
		DistanceMeters:           leg.Distance.Value,
		DurationSeconds:          leg.Duration.Value,
		DurationInTrafficSeconds: leg.Duration.Value,
		Polyline:                 resp.Routes[0].OverviewPolyline.Points,
	}
	if leg.DurationInTraffic != nil {
		route.DurationInTrafficSeconds = leg.DurationInTraffic.Value
	}
	return route, true, nil
}

func (c *Client) doGET(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("maps api error: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type textValue struct {
	Text  string `json:"text"`
	Value int64  `json:"value"`
}

type directionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Distance          textValue  `json:"distance"`
			Duration          textValue  `json:"duration"`
			DurationInTraffic *textValue `json:"duration_in_traffic"`
		} `json:"legs"`
	} `json:"routes"`
}
