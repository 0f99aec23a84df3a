// Package listing fetches recent housing postings from Craigslist.
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/roomwatch/internal/model"
	"github.com/ppiankov/roomwatch/internal/ratelimit"
)

// DefaultLimit is the batch size fetched per area and cycle
const DefaultLimit = 20

// ErrDisallowed is returned when robots.txt forbids the search URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Query selects postings for one search area
type Query struct {
	Area      string  // Craigslist sub-area, e.g. "see"
	Limit     int     // Maximum postings returned
	Sort      string  // Only "newest" is supported
	Geotagged bool    // Look up geotags, fetching posting pages when needed
	MinPrice  float64 // 0 means no lower bound
	MaxPrice  float64 // 0 means no upper bound
}

// Source returns the most recent postings for an area, newest first
type Source interface {
	Recent(ctx context.Context, q Query) ([]model.RawPosting, error)
}

// Config holds the settings shared by the Craigslist sources
type Config struct {
	Kind          string // html (default) or rss
	Site          string // e.g. "seattle"
	Category      string // e.g. "roo", "apa"
	BaseURL       string // overrides https://<site>.craigslist.org
	UserAgent     string
	Timeout       time.Duration
	MaxBodyBytes  int64
	RespectRobots bool
}

// NewFromConfig builds the configured source
func NewFromConfig(cfg Config, limiter *ratelimit.Hosts, logger *slog.Logger) (Source, error) {
	if cfg.Site == "" && cfg.BaseURL == "" {
		return nil, errors.New("listing site is required")
	}
	if cfg.Category == "" {
		return nil, errors.New("listing category is required")
	}

	switch strings.ToLower(cfg.Kind) {
	case "", "html":
		return NewCraigslist(cfg, limiter, logger), nil
	case "rss", "feed":
		return NewFeed(cfg, limiter, logger), nil
	default:
		return nil, fmt.Errorf("unknown listing source: %s (supported: html, rss)", cfg.Kind)
	}
}

func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s.craigslist.org", c.Site)
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}
