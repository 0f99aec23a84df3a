package geo

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ppiankov/roomwatch/internal/model"
)

// Geocoder resolves free text to a coordinate. Implementations return
// (0, 0) when the text cannot be resolved instead of an error.
type Geocoder interface {
	Geocode(ctx context.Context, text string) model.Coordinate
}

// Reference is the static neighborhood and transit data used for enrichment
type Reference struct {
	Boxes         []model.AreaBox
	Stations      []model.TransitStation
	MaxTransitKm  float64
	Neighborhoods []string
}

// Enricher annotates postings with a resolved location, area and transit
// proximity
type Enricher struct {
	geocoder Geocoder
	ref      Reference
	hoods    []string // lower-cased Reference.Neighborhoods, same order
	logger   *slog.Logger
}

// NewEnricher creates an Enricher. geocoder is only consulted for postings
// without a geotag.
func NewEnricher(geocoder Geocoder, ref Reference, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}

	hoods := make([]string, len(ref.Neighborhoods))
	for i, h := range ref.Neighborhoods {
		hoods[i] = strings.ToLower(strings.TrimSpace(h))
	}

	return &Enricher{
		geocoder: geocoder,
		ref:      ref,
		hoods:    hoods,
		logger:   logger,
	}
}

// Enrich resolves the posting's coordinate and computes its points of
// interest. Price and timestamp fields are left for the caller.
func (e *Enricher) Enrich(ctx context.Context, raw model.RawPosting) model.EnrichedPosting {
	p := model.EnrichedPosting{
		RawPosting:      raw,
		PriceValue:      model.NoPrice,
		Location:        model.Unresolved,
		TransitDistance: model.NoDistance,
	}

	p.Location, p.Resolved = e.Resolve(ctx, raw)
	if p.Resolved {
		p.Area, p.AreaFound = e.boxArea(p.Location)
		p.NearTransit, p.TransitDistance, p.TransitName = e.nearestStation(p.Location)
	}

	if p.Area == "" {
		p.Area = e.neighborhood(raw.Where)
	}

	return p
}

// Resolve returns the posting's coordinate: the geotag when present,
// otherwise the mean of the geocoded location fragments. The second
// result is false when nothing could be resolved.
func (e *Enricher) Resolve(ctx context.Context, raw model.RawPosting) (model.Coordinate, bool) {
	if raw.Geotag != nil {
		return *raw.Geotag, true
	}

	fragments := Fragments(raw.Where)
	if len(fragments) == 0 {
		e.logger.Warn("no location fragments to geocode", "posting_id", raw.ID, "where", raw.Where)
		return model.Unresolved, false
	}
	if e.geocoder == nil {
		return model.Unresolved, false
	}

	var sumLat, sumLon float64
	failed := 0
	for _, fragment := range fragments {
		c := e.geocoder.Geocode(ctx, fragment)
		if c.IsZero() {
			failed++
		}
		sumLat += c.Lat
		sumLon += c.Lon
	}

	if failed == len(fragments) {
		e.logger.Warn("could not geocode any location fragment", "posting_id", raw.ID, "fragments", fragments)
		return model.Unresolved, false
	}

	n := float64(len(fragments))
	return model.Coordinate{Lat: sumLat / n, Lon: sumLon / n}, true
}

// boxArea returns the last configured box containing c
func (e *Enricher) boxArea(c model.Coordinate) (string, bool) {
	area, found := "", false
	for _, box := range e.ref.Boxes {
		if InBox(c, box) {
			area, found = box.Name, true
		}
	}
	return area, found
}

// nearestStation finds the globally nearest station. name is only set
// when that station is within the configured threshold.
func (e *Enricher) nearestStation(c model.Coordinate) (near bool, dist float64, name string) {
	dist = model.NoDistance
	nearest := ""
	for _, st := range e.ref.Stations {
		d := Distance(st.Coord, c)
		if dist == model.NoDistance || d < dist {
			dist, nearest = d, st.Name
		}
	}

	if dist != model.NoDistance && dist < e.ref.MaxTransitKm {
		return true, dist, nearest
	}
	return false, dist, ""
}

// neighborhood returns the first configured neighborhood named in where
func (e *Enricher) neighborhood(where string) string {
	lower := strings.ToLower(where)
	for i, hood := range e.hoods {
		if hood != "" && strings.Contains(lower, hood) {
			return e.ref.Neighborhoods[i]
		}
	}
	return ""
}
