package condition

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ppiankov/roomwatch/internal/model"
)

// TravelTimer estimates travel time in seconds. Zero means unknown and a
// negative value means the lookup failed.
type TravelTimer interface {
	TravelTime(ctx context.Context, src, dst *model.Coordinate, mode string) int
}

// Commute accepts postings within MaxMinutes of a destination. Postings
// whose travel time cannot be determined are accepted.
type Commute struct {
	travel      TravelTimer
	destination model.Coordinate
	mode        string
	maxSeconds  int
	logger      *slog.Logger
}

// NewCommute creates a commute condition
func NewCommute(travel TravelTimer, dst *model.Coordinate, mode string, maxMinutes float64, logger *slog.Logger) (*Commute, error) {
	if travel == nil {
		return nil, errors.New("commute condition needs a maps client")
	}
	if dst == nil {
		return nil, errors.New("commute condition needs a destination")
	}
	if maxMinutes <= 0 {
		return nil, errors.New("commute condition needs max_minutes")
	}
	if mode == "" {
		mode = "transit"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Commute{
		travel:      travel,
		destination: *dst,
		mode:        mode,
		maxSeconds:  int(maxMinutes * 60),
		logger:      logger,
	}, nil
}

func (*Commute) Name() string { return "commute" }

func (c *Commute) Check(ctx context.Context, p model.EnrichedPosting) bool {
	if !p.Resolved {
		return true
	}
	src := p.Location
	seconds := c.travel.TravelTime(ctx, &src, &c.destination, c.mode)
	if seconds <= 0 {
		c.logger.Warn("travel time unknown, accepting posting", "posting_id", p.ID)
		return true
	}
	return seconds <= c.maxSeconds
}
