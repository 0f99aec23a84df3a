// Package geo resolves posting coordinates and annotates them with
// neighborhood and transit context.
package geo

import (
	"math"

	"github.com/ppiankov/roomwatch/internal/model"
)

// EarthRadiusKm is the sphere radius used for great-circle distances
const EarthRadiusKm = 6367.0

// Distance returns the haversine distance between a and b in kilometers
func Distance(a, b model.Coordinate) float64 {
	lat1, lon1 := radians(a.Lat), radians(a.Lon)
	lat2, lon2 := radians(b.Lat), radians(b.Lon)

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	h := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlon/2), 2)
	// Rounding can push h a hair above 1 for antipodal points
	h = math.Min(1, h)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// InBox reports whether c lies strictly inside box. Coordinates on an
// edge or corner are outside.
func InBox(c model.Coordinate, box model.AreaBox) bool {
	return box.Min.Lat < c.Lat && c.Lat < box.Max.Lat &&
		box.Max.Lon < c.Lon && c.Lon < box.Min.Lon
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
