package model

import "time"

// RawPosting is a housing posting as returned by the listing source
type RawPosting struct {
	ID     string      `json:"id"`               // Source-unique identifier
	Title  string      `json:"title"`            // Posting title
	Price  string      `json:"price"`            // Free text, e.g. "$750"
	URL    string      `json:"url"`              // Link to the posting
	Where  string      `json:"where,omitempty"`  // Free-text location description
	Geotag *Coordinate `json:"geotag,omitempty"` // Structured coordinate, when the source has one
	Posted string      `json:"posted,omitempty"` // Free-text posting timestamp
}

// HasGeotag reports whether the source attached a coordinate
func (p RawPosting) HasGeotag() bool {
	return p.Geotag != nil
}

// EnrichedPosting is a RawPosting annotated with location context
type EnrichedPosting struct {
	RawPosting

	SearchArea string    `json:"search_area"`         // Configured area the posting was fetched for
	PriceValue float64   `json:"price_value"`         // Parsed price, NoPrice when unparsable
	PostedAt   time.Time `json:"posted_at,omitempty"` // Zero when the timestamp could not be parsed

	Location Coordinate `json:"location"` // Always set; Unresolved when Resolved is false
	Resolved bool       `json:"resolved"`

	Area      string `json:"area"`       // Neighborhood name, empty if none matched
	AreaFound bool   `json:"area_found"` // True when a bounding box matched

	NearTransit     bool    `json:"near_transit"`
	TransitDistance float64 `json:"transit_distance_km"` // NoDistance when unknown
	TransitName     string  `json:"transit_name"`
}

// HasPrice reports whether the price was parsed
func (p EnrichedPosting) HasPrice() bool {
	return p.PriceValue != NoPrice
}

// HasTransitDistance reports whether a nearest-station distance is known
func (p EnrichedPosting) HasTransitDistance() bool {
	return p.TransitDistance != NoDistance
}

// SeenRecord marks a posting identifier as consumed. Records are never
// updated or removed.
type SeenRecord struct {
	ID        string    `json:"id"`
	FirstSeen time.Time `json:"first_seen"`
}
