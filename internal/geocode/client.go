// Package geocode talks to the Google Maps Geocoding and Directions APIs.
package geocode

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ppiankov/roomwatch/internal/model"
	"github.com/ppiankov/roomwatch/internal/ratelimit"
)

// DefaultBaseURL is the Google Maps web service root
const DefaultBaseURL = "https://maps.googleapis.com/maps/api"

// Travel time results that are not durations
const (
	TravelUnknown = 0  // an endpoint was missing
	TravelFailed  = -1 // the directions lookup failed
)

// Config holds the maps API settings
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

// Client resolves addresses and travel times. Lookups never return
// errors: failures are logged and mapped to sentinel values.
type Client struct {
	http    *resty.Client
	baseURL string
	apiKey  string
	limiter *ratelimit.Hosts
	logger  *slog.Logger
}

// NewClient creates a maps client. limiter may be nil.
func NewClient(cfg Config, limiter *ratelimit.Hosts, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Client{
		http:    rc,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		limiter: limiter,
		logger:  logger,
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type directionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		Legs []struct {
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

// Geocode returns the first match for text, or (0, 0) when the text is
// empty or cannot be resolved
func (c *Client) Geocode(ctx context.Context, text string) model.Coordinate {
	text = strings.TrimSpace(text)
	if text == "" {
		c.logger.Warn("geocode skipped: empty location")
		return model.Coordinate{}
	}

	var out geocodeResponse
	if !c.get(ctx, "/geocode/json", map[string]string{"address": text}, &out) {
		return model.Coordinate{}
	}

	if out.Status != "OK" || len(out.Results) == 0 {
		c.logger.Warn("geocode status not OK", "address", text, "status", out.Status)
		return model.Coordinate{}
	}

	loc := out.Results[0].Geometry.Location
	return model.Coordinate{Lat: loc.Lat, Lon: loc.Lng}
}

// TravelTime returns the duration in seconds of the first route from src
// to dst. It returns TravelUnknown when either end is nil and TravelFailed
// when the lookup fails.
func (c *Client) TravelTime(ctx context.Context, src, dst *model.Coordinate, mode string) int {
	if src == nil || dst == nil {
		c.logger.Warn("travel time skipped: source or destination not defined")
		return TravelUnknown
	}
	if mode == "" {
		mode = "transit"
	}

	params := map[string]string{
		"origin":      src.String(),
		"destination": dst.String(),
		"mode":        mode,
	}

	var out directionsResponse
	if !c.get(ctx, "/directions/json", params, &out) {
		return TravelFailed
	}

	if out.Status != "OK" || len(out.Routes) == 0 {
		c.logger.Warn("directions status not OK", "origin", src.String(), "destination", dst.String(), "status", out.Status)
		return TravelFailed
	}

	total := 0
	for _, leg := range out.Routes[0].Legs {
		total += leg.Duration.Value
	}
	return total
}

// get performs a throttled GET and decodes the JSON body into out
func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) bool {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.baseURL+path); err != nil {
			c.logger.Warn("maps request throttled", "path", path, "error", err)
			return false
		}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("key", c.apiKey).
		SetResult(out).
		Get(path)
	if err != nil {
		c.logger.Warn("maps request failed", "path", path, "error", err)
		return false
	}
	if resp.IsError() {
		c.logger.Warn("maps request failed", "path", path, "status", resp.StatusCode())
		return false
	}
	return true
}
