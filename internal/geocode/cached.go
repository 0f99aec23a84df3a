package geocode

import (
	"context"
	"log/slog"

	"github.com/ppiankov/roomwatch/internal/cache"
	"github.com/ppiankov/roomwatch/internal/geo"
	"github.com/ppiankov/roomwatch/internal/model"
)

// Cached memoizes successful lookups of an underlying geocoder. Failed
// lookups ((0, 0)) are not cached so they are retried next cycle.
type Cached struct {
	next   geo.Geocoder
	store  cache.Coordinates
	logger *slog.Logger
}

// NewCached wraps next with store
func NewCached(next geo.Geocoder, store cache.Coordinates, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, store: store, logger: logger}
}

// Geocode serves text from the cache or the underlying geocoder
func (c *Cached) Geocode(ctx context.Context, text string) model.Coordinate {
	key := cache.Key(text)
	if coord, ok := c.store.Get(key); ok {
		return coord
	}

	coord := c.next.Geocode(ctx, text)
	if coord.IsZero() {
		return coord
	}

	if err := c.store.Set(key, coord); err != nil {
		c.logger.Warn("failed to cache geocode", "text", text, "error", err)
	}
	return coord
}
