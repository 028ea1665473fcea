// Package routing resolves a start/end coordinate pair into a drivable
// path. Resolution degrades through three tiers: the configured OSRM
// instance, the public OSRM service, and finally a synthetic straight
// line, so spawning a car never fails on routing being unavailable.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetlab/carsim/internal/geo"
	"github.com/fleetlab/carsim/internal/models"
)

// syntheticSteps is the number of equal steps in a straight-line
// fallback route, giving syntheticSteps+1 coordinates.
const syntheticSteps = 10

// Route is a resolved path: ordered waypoints plus totals. Coordinates
// always has at least 2 entries.
type Route struct {
	Coordinates []models.Coordinate
	Distance    float64 // meters
	Duration    float64 // seconds
}

// Geometry returns the route as a GeoJSON LineString.
func (r Route) Geometry() models.LineString {
	return models.NewLineString(r.Coordinates)
}

// Client fetches driving routes from OSRM.
type Client struct {
	primaryURL string
	publicURL  string
	httpClient *http.Client
}

// NewClient builds a routing client. The timeout bounds each tier's
// request separately.
func NewClient(primaryURL, publicURL string, timeout time.Duration) *Client {
	return &Client{
		primaryURL: primaryURL,
		publicURL:  publicURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// osrmResponse is the part of the OSRM answer the client reads.
type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// Resolve returns a driving route from start to end. It never fails:
// any error from the primary OSRM falls through to the public OSRM,
// and any error there falls through to a synthetic straight-line route.
func (c *Client) Resolve(ctx context.Context, start, end models.Coordinate) Route {
	route, err := c.fetch(ctx, c.primaryURL, start, end)
	if err == nil {
		return route
	}
	log.WithError(err).Warn("Primary OSRM failed, trying public OSRM")

	route, err = c.fetch(ctx, c.publicURL, start, end)
	if err == nil {
		return route
	}
	log.WithError(err).Warn("Public OSRM failed, using straight-line fallback")

	return SyntheticRoute(start, end)
}

// fetch runs one routing request against one OSRM base URL. Success
// requires HTTP 200, code "Ok", and a first route with at least two
// usable coordinates; anything else is a tier failure.
func (c *Client) fetch(ctx context.Context, baseURL string, start, end models.Coordinate) (Route, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		baseURL, start.Lng, start.Lat, end.Lng, end.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Route{}, fmt.Errorf("build OSRM request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Route{}, fmt.Errorf("OSRM request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Route{}, fmt.Errorf("OSRM returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Route{}, fmt.Errorf("read OSRM response: %w", err)
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Route{}, fmt.Errorf("decode OSRM response: %w", err)
	}
	if parsed.Code != "Ok" {
		return Route{}, fmt.Errorf("OSRM code %q", parsed.Code)
	}
	if len(parsed.Routes) == 0 {
		return Route{}, errors.New("OSRM returned no routes")
	}

	best := parsed.Routes[0]
	coords := make([]models.Coordinate, 0, len(best.Geometry.Coordinates))
	for _, pair := range best.Geometry.Coordinates {
		if len(pair) < 2 {
			continue
		}
		coords = append(coords, models.Coordinate{Lng: pair[0], Lat: pair[1]})
	}
	if len(coords) < 2 {
		return Route{}, errors.New("OSRM route has too few coordinates")
	}

	return Route{Coordinates: coords, Distance: best.Distance, Duration: best.Duration}, nil
}

// SyntheticRoute interpolates a straight line from start to end: 10
// equal steps, 11 coordinates, endpoints exact. Not geodesically
// correct, but monotonic and deterministic. Distance and duration come
// from the planar estimate.
func SyntheticRoute(start, end models.Coordinate) Route {
	coords := make([]models.Coordinate, 0, syntheticSteps+1)
	for i := 0; i <= syntheticSteps; i++ {
		t := float64(i) / syntheticSteps
		coords = append(coords, models.Coordinate{
			Lng: start.Lng + (end.Lng-start.Lng)*t,
			Lat: start.Lat + (end.Lat-start.Lat)*t,
		})
	}

	distance, duration := geo.PlanarEstimate(start, end)
	return Route{Coordinates: coords, Distance: distance, Duration: duration}
}
