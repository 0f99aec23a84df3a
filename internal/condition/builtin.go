package condition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/roomwatch/internal/model"
)

// Located accepts postings that have an area, from a box or a
// neighborhood name, or sit near a transit station
type Located struct{}

func (Located) Name() string { return "located" }

func (Located) Check(_ context.Context, p model.EnrichedPosting) bool {
	return p.AreaFound || p.Area != "" || p.NearTransit
}

// Price bounds the parsed price. Zero bounds are open.
type Price struct {
	Min, Max      float64
	RejectUnknown bool
}

// NewPrice validates the bounds
func NewPrice(lo, hi float64, rejectUnknown bool) (Price, error) {
	if lo < 0 || hi < 0 {
		return Price{}, errors.New("price bounds must not be negative")
	}
	if hi > 0 && lo > hi {
		return Price{}, fmt.Errorf("min price %.0f exceeds max price %.0f", lo, hi)
	}
	return Price{Min: lo, Max: hi, RejectUnknown: rejectUnknown}, nil
}

func (Price) Name() string { return "price" }

func (c Price) Check(_ context.Context, p model.EnrichedPosting) bool {
	if !p.HasPrice() {
		return !c.RejectUnknown
	}
	if c.Min > 0 && p.PriceValue < c.Min {
		return false
	}
	if c.Max > 0 && p.PriceValue > c.Max {
		return false
	}
	return true
}

// Area accepts postings whose area is one of the allowed names
type Area struct {
	allowed map[string]bool
}

// NewArea builds an allow-list; names compare case-insensitively
func NewArea(names []string) (Area, error) {
	if len(names) == 0 {
		return Area{}, errors.New("area condition needs at least one area")
	}
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[strings.ToLower(strings.TrimSpace(n))] = true
	}
	return Area{allowed: allowed}, nil
}

func (Area) Name() string { return "area" }

func (c Area) Check(_ context.Context, p model.EnrichedPosting) bool {
	return p.Area != "" && c.allowed[strings.ToLower(p.Area)]
}

// Transit requires a nearby station, optionally closer than MaxKm
type Transit struct {
	MaxKm float64
}

// NewTransit creates a transit condition. maxKm <= 0 relies on the
// enricher's threshold alone.
func NewTransit(maxKm float64) Transit {
	return Transit{MaxKm: maxKm}
}

func (Transit) Name() string { return "transit" }

func (c Transit) Check(_ context.Context, p model.EnrichedPosting) bool {
	if !p.NearTransit {
		return false
	}
	if c.MaxKm > 0 {
		return p.HasTransitDistance() && p.TransitDistance <= c.MaxKm
	}
	return true
}

// Keyword rejects postings whose title mentions any blocked word
type Keyword struct {
	words []string
}

// NewKeyword builds a keyword blocklist
func NewKeyword(words []string) (Keyword, error) {
	var lowered []string
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			lowered = append(lowered, w)
		}
	}
	if len(lowered) == 0 {
		return Keyword{}, errors.New("keyword condition needs at least one word")
	}
	return Keyword{words: lowered}, nil
}

func (Keyword) Name() string { return "keyword" }

func (c Keyword) Check(_ context.Context, p model.EnrichedPosting) bool {
	title := strings.ToLower(p.Title)
	for _, w := range c.words {
		if strings.Contains(title, w) {
			return false
		}
	}
	return true
}
