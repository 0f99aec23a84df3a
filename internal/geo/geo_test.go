package geo

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/roomwatch/internal/logging"
	"github.com/ppiankov/roomwatch/internal/model"
)

// fakeGeocoder answers from a fixed table and counts lookups
type fakeGeocoder struct {
	table map[string]model.Coordinate
	calls []string
}

func (f *fakeGeocoder) Geocode(_ context.Context, text string) model.Coordinate {
	f.calls = append(f.calls, text)
	return f.table[text]
}

var (
	capitolHill = model.AreaBox{
		Name: "capitol hill",
		Min:  model.Coordinate{Lat: 47.59, Lon: -122.30},
		Max:  model.Coordinate{Lat: 47.63, Lon: -122.34},
	}
	downtown = model.AreaBox{
		Name: "downtown",
		Min:  model.Coordinate{Lat: 47.58, Lon: -122.32},
		Max:  model.Coordinate{Lat: 47.62, Lon: -122.36},
	}
	westlake = model.TransitStation{Name: "Westlake", Coord: model.Coordinate{Lat: 47.6114, Lon: -122.3370}}
	uw       = model.TransitStation{Name: "University of Washington", Coord: model.Coordinate{Lat: 47.6498, Lon: -122.3038}}
)

func TestDistance_Symmetric(t *testing.T) {
	pairs := [][2]model.Coordinate{
		{{Lat: 47.60, Lon: -122.33}, {Lat: 47.65, Lon: -122.30}},
		{{Lat: 0, Lon: 0}, {Lat: -33.86, Lon: 151.21}},
		{{Lat: 51.5, Lon: -0.12}, {Lat: 40.71, Lon: -74.0}},
		{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 180}},
	}

	for _, p := range pairs {
		assert.InDelta(t, Distance(p[0], p[1]), Distance(p[1], p[0]), 1e-9)
		assert.Equal(t, 0.0, Distance(p[0], p[0]))
	}
}

func TestDistance_KnownValue(t *testing.T) {
	// One degree of latitude on a 6367 km sphere
	got := Distance(model.Coordinate{Lat: 0, Lon: 0}, model.Coordinate{Lat: 1, Lon: 0})
	assert.InDelta(t, 6367*math.Pi/180, got, 1e-6)
}

func TestInBox(t *testing.T) {
	tests := []struct {
		name string
		c    model.Coordinate
		want bool
	}{
		{"inside", model.Coordinate{Lat: 47.60, Lon: -122.33}, true},
		{"min corner", capitolHill.Min, false},
		{"max corner", capitolHill.Max, false},
		{"on lat edge", model.Coordinate{Lat: 47.59, Lon: -122.33}, false},
		{"on lon edge", model.Coordinate{Lat: 47.60, Lon: -122.34}, false},
		{"north of box", model.Coordinate{Lat: 47.70, Lon: -122.33}, false},
		{"east of box", model.Coordinate{Lat: 47.60, Lon: -122.20}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InBox(tt.c, capitolHill))
		})
	}
}

func TestFragments(t *testing.T) {
	assert.Equal(t, []string{"123 main st", "near downtown"}, Fragments("123 Main St, near Downtown!"))
	assert.Equal(t, []string{"queen anne", "queen anne"}, Fragments("Queen Anne / Queen Anne"))
	assert.Equal(t, []string{"o'brien park"}, Fragments("(O'Brien Park)"))
	assert.Equal(t, []string{"a", "b"}, Fragments("a_b"))
	assert.Empty(t, Fragments(""))
	assert.Empty(t, Fragments(" -- !! "))
}

func TestEnrich_GeotagSkipsGeocoder(t *testing.T) {
	geocoder := &fakeGeocoder{}
	e := NewEnricher(geocoder, Reference{Boxes: []model.AreaBox{capitolHill}}, logging.Discard())

	tag := model.Coordinate{Lat: 47.60, Lon: -122.33}
	p := e.Enrich(context.Background(), model.RawPosting{ID: "cl-1", Where: "Capitol Hill", Geotag: &tag})

	assert.Empty(t, geocoder.calls)
	assert.True(t, p.Resolved)
	assert.Equal(t, tag, p.Location)
	assert.Equal(t, "capitol hill", p.Area)
	assert.True(t, p.AreaFound)
}

func TestEnrich_GeocodesFragmentsAndAverages(t *testing.T) {
	geocoder := &fakeGeocoder{table: map[string]model.Coordinate{
		"123 main st":   {Lat: 47.60, Lon: -122.30},
		"near downtown": {Lat: 47.62, Lon: -122.34},
	}}
	e := NewEnricher(geocoder, Reference{}, logging.Discard())

	p := e.Enrich(context.Background(), model.RawPosting{ID: "cl-2", Where: "123 Main St, near Downtown!"})

	assert.Equal(t, []string{"123 main st", "near downtown"}, geocoder.calls)
	require.True(t, p.Resolved)
	assert.InDelta(t, 47.61, p.Location.Lat, 1e-9)
	assert.InDelta(t, -122.32, p.Location.Lon, 1e-9)
}

func TestEnrich_PartialGeocodeFailureKeepsDegradedMean(t *testing.T) {
	geocoder := &fakeGeocoder{table: map[string]model.Coordinate{
		"ballard": {Lat: 47.60, Lon: -122.40},
	}}
	e := NewEnricher(geocoder, Reference{}, logging.Discard())

	p := e.Enrich(context.Background(), model.RawPosting{Where: "Ballard / nowhere"})

	require.True(t, p.Resolved)
	assert.InDelta(t, 23.80, p.Location.Lat, 1e-9)
	assert.InDelta(t, -61.20, p.Location.Lon, 1e-9)
}

func TestEnrich_NoFragmentsIsUnresolved(t *testing.T) {
	geocoder := &fakeGeocoder{}
	e := NewEnricher(geocoder, Reference{Stations: []model.TransitStation{westlake}, MaxTransitKm: 2}, logging.Discard())

	p := e.Enrich(context.Background(), model.RawPosting{ID: "cl-3", Where: "!!!"})

	assert.Empty(t, geocoder.calls)
	assert.False(t, p.Resolved)
	assert.Equal(t, model.Unresolved, p.Location)
	assert.False(t, p.NearTransit)
	assert.Equal(t, model.NoDistance, p.TransitDistance)
	assert.Empty(t, p.TransitName)
	assert.Empty(t, p.Area)
}

func TestEnrich_AllGeocodesFailedIsUnresolved(t *testing.T) {
	e := NewEnricher(&fakeGeocoder{}, Reference{}, logging.Discard())

	p := e.Enrich(context.Background(), model.RawPosting{Where: "somewhere, elsewhere"})

	assert.False(t, p.Resolved)
	assert.Equal(t, model.Unresolved, p.Location)
}

func TestEnrich_LastMatchingBoxWins(t *testing.T) {
	e := NewEnricher(nil, Reference{Boxes: []model.AreaBox{capitolHill, downtown}}, logging.Discard())

	tag := model.Coordinate{Lat: 47.60, Lon: -122.33}
	p := e.Enrich(context.Background(), model.RawPosting{Geotag: &tag})

	assert.Equal(t, "downtown", p.Area)
	assert.True(t, p.AreaFound)
}

func TestEnrich_NeighborhoodFallback(t *testing.T) {
	ref := Reference{
		Boxes:         []model.AreaBox{capitolHill},
		Neighborhoods: []string{"Fremont", "Wallingford", "fremont north"},
	}
	e := NewEnricher(nil, ref, logging.Discard())

	tag := model.Coordinate{Lat: 10, Lon: 10}
	p := e.Enrich(context.Background(), model.RawPosting{Where: "Lovely FREMONT North studio", Geotag: &tag})

	assert.Equal(t, "Fremont", p.Area)
	assert.False(t, p.AreaFound)
}

func TestEnrich_NeighborhoodFallbackWhenUnresolved(t *testing.T) {
	e := NewEnricher(&fakeGeocoder{}, Reference{Neighborhoods: []string{"ballard"}}, logging.Discard())

	p := e.Enrich(context.Background(), model.RawPosting{Where: "Ballard"})

	assert.False(t, p.Resolved)
	assert.Equal(t, "ballard", p.Area)
}

func TestEnrich_NearestStation(t *testing.T) {
	tag := model.Coordinate{Lat: 47.612, Lon: -122.336}

	t.Run("within threshold", func(t *testing.T) {
		e := NewEnricher(nil, Reference{Stations: []model.TransitStation{uw, westlake}, MaxTransitKm: 1}, logging.Discard())
		p := e.Enrich(context.Background(), model.RawPosting{Geotag: &tag})

		assert.True(t, p.NearTransit)
		assert.Equal(t, "Westlake", p.TransitName)
		assert.InDelta(t, Distance(tag, westlake.Coord), p.TransitDistance, 1e-9)
	})

	t.Run("order does not change the minimum", func(t *testing.T) {
		e := NewEnricher(nil, Reference{Stations: []model.TransitStation{westlake, uw}, MaxTransitKm: 1}, logging.Discard())
		p := e.Enrich(context.Background(), model.RawPosting{Geotag: &tag})

		assert.Equal(t, "Westlake", p.TransitName)
		assert.InDelta(t, Distance(tag, westlake.Coord), p.TransitDistance, 1e-9)
	})

	t.Run("beyond threshold keeps distance", func(t *testing.T) {
		e := NewEnricher(nil, Reference{Stations: []model.TransitStation{uw, westlake}, MaxTransitKm: 0.01}, logging.Discard())
		p := e.Enrich(context.Background(), model.RawPosting{Geotag: &tag})

		assert.False(t, p.NearTransit)
		assert.Empty(t, p.TransitName)
		assert.InDelta(t, Distance(tag, westlake.Coord), p.TransitDistance, 1e-9)
	})

	t.Run("no stations", func(t *testing.T) {
		e := NewEnricher(nil, Reference{MaxTransitKm: 1}, logging.Discard())
		p := e.Enrich(context.Background(), model.RawPosting{Geotag: &tag})

		assert.False(t, p.NearTransit)
		assert.Equal(t, model.NoDistance, p.TransitDistance)
	})
}
