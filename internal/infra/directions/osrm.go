// Package directions talks to the external walking-directions provider and
// shields the rest of the engine from its quota and failure modes.
package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"stroll/config"
	"stroll/internal/domain/entity"
	"stroll/internal/domain/service"
	"stroll/internal/errors"
)

// OSRMClient implements service.DirectionsProvider against an OSRM-compatible
// routing endpoint using a walking profile.
type OSRMClient struct {
	baseURL    string
	profile    string
	httpClient *http.Client
}

type osrmRouteResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64           `json:"distance"` // meters
		Duration float64           `json:"duration"` // seconds
		Geometry *geojson.Geometry `json:"geometry"`
	} `json:"routes"`
}

// NewOSRMClient creates a provider client from configuration.
func NewOSRMClient(cfg *config.DirectionsConfig) service.DirectionsProvider {
	return &OSRMClient{
		baseURL: cfg.BaseURL,
		profile: cfg.Profile,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// Walk returns the walking segment between an ordered coordinate pair.
func (c *OSRMClient) Walk(ctx context.Context, from, to entity.Coordinate) (entity.RouteSegment, error) {
	queryURL := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		c.baseURL, c.profile, from.Lng, from.Lat, to.Lng, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return entity.RouteSegment{}, errors.Wrap(err, "build directions request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entity.RouteSegment{}, errors.Wrap(err, "directions request")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining for connection reuse
		return entity.RouteSegment{}, &service.ThrottleError{
			Provider: "osrm",
			Reason:   resp.Status,
		}
	default:
		body, _ := io.ReadAll(resp.Body)

		return entity.RouteSegment{}, errors.Errorf("directions provider returned %s: %s", resp.Status, string(body))
	}

	var osrmResp osrmRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&osrmResp); err != nil {
		return entity.RouteSegment{}, errors.Wrap(err, "decode directions response")
	}

	if osrmResp.Code != "Ok" {
		if osrmResp.Code == "TooBig" || osrmResp.Code == "TooManyRequests" {
			return entity.RouteSegment{}, &service.ThrottleError{Provider: "osrm", Reason: osrmResp.Code}
		}

		return entity.RouteSegment{}, errors.Errorf("directions provider error code %q", osrmResp.Code)
	}
	if len(osrmResp.Routes) == 0 {
		return entity.RouteSegment{}, errors.New("directions provider returned no routes")
	}

	route := osrmResp.Routes[0]

	var path orb.LineString
	if route.Geometry != nil {
		if line, ok := route.Geometry.Geometry().(orb.LineString); ok {
			path = line
		}
	}

	return entity.RouteSegment{
		From:           from,
		To:             to,
		DistanceMeters: route.Distance,
		Duration:       time.Duration(route.Duration * float64(time.Second)),
		Path:           path,
	}, nil
}
