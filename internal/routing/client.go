package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kudaline/dispatch-service/internal/domain"
	"github.com/kudaline/dispatch-service/internal/geo"
	"github.com/kudaline/dispatch-service/internal/pricing"
)

// Client calls the routing provider's distance endpoint. Any failure
// is surfaced as domain.ErrExternalService; the caller decides whether
// that aborts the operation.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type distanceResponse struct {
	DistanceKm float64 `json:"distance_km"`
	Duration   string  `json:"duration"`
}

func (c *Client) Distance(ctx context.Context, origin, destination geo.Point) (pricing.Leg, error) {
	q := url.Values{}
	q.Set("origin", strconv.FormatFloat(origin.Lon, 'f', -1, 64)+","+strconv.FormatFloat(origin.Lat, 'f', -1, 64))
	q.Set("destination", strconv.FormatFloat(destination.Lon, 'f', -1, 64)+","+strconv.FormatFloat(destination.Lat, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/distance?"+q.Encode(), nil)
	if err != nil {
		return pricing.Leg{}, fmt.Errorf("%w: routing request: %v", domain.ErrExternalService, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pricing.Leg{}, fmt.Errorf("%w: routing call: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pricing.Leg{}, fmt.Errorf("%w: routing returned %d", domain.ErrExternalService, resp.StatusCode)
	}

	var body distanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return pricing.Leg{}, fmt.Errorf("%w: routing response: %v", domain.ErrExternalService, err)
	}
	return pricing.Leg{DistanceKm: body.DistanceKm, Duration: body.Duration}, nil
}
