package model

import "fmt"

// NoDistance marks an unknown nearest-transit distance
const NoDistance = -1.0

// Coordinate is a WGS84 latitude/longitude pair in degrees
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat" mapstructure:"lat"`
	Lon float64 `json:"lon" yaml:"lon" mapstructure:"lon"`
}

// Unresolved is the coordinate assigned when no location could be derived.
// It is always paired with EnrichedPosting.Resolved == false.
var Unresolved = Coordinate{}

// IsZero reports whether c is (0, 0), the value geocoders return on failure
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lon == 0
}

// String formats the coordinate as "lat,lon", the form map APIs accept
func (c Coordinate) String() string {
	return fmt.Sprintf("%g,%g", c.Lat, c.Lon)
}

// AreaBox is a named neighborhood rectangle.
//
// Corners follow the (lat, lon-descending) convention of the configured
// boxes: Min holds the lower latitude and the higher longitude, Max the
// higher latitude and the lower longitude.
type AreaBox struct {
	Name string     `json:"name" yaml:"name" mapstructure:"name"`
	Min  Coordinate `json:"min" yaml:"min" mapstructure:"min"`
	Max  Coordinate `json:"max" yaml:"max" mapstructure:"max"`
}

// TransitStation is a named transit stop
type TransitStation struct {
	Name  string     `json:"name" yaml:"name" mapstructure:"name"`
	Coord Coordinate `json:"coord" yaml:"coord" mapstructure:"coord"`
}
