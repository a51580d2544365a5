// Package geo computes the rectangular search area used by the marker radius filter.
package geo

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"markers-api/internal/platform/apperr"
)

// KmPerDegree approximates the length of one degree of latitude.
const KmPerDegree = 111.0

// Box is an axis-aligned latitude/longitude rectangle, bounds inclusive.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns the box around (lat, lng) extending radiusKm in each direction. Longitude
// degrees shrink with cos(lat); near the poles the longitude span is left unbounded.
func BoundingBox(lat, lng, radiusKm float64) Box {
	latDelta := radiusKm / KmPerDegree
	box := Box{MinLat: lat - latDelta, MaxLat: lat + latDelta, MinLng: -180, MaxLng: 180}
	cos := math.Cos(lat * math.Pi / 180)
	if cos > 1e-9 {
		lngDelta := radiusKm / (KmPerDegree * cos)
		box.MinLng, box.MaxLng = lng-lngDelta, lng+lngDelta
	}
	return box
}

// Contains reports whether (lat, lng) lies inside b.
func (b Box) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// FromQuery reads lat, lng and radius (km) from q. It returns nil when none is present. Once any
// is present all three are required: lat in [-90, 90], lng in [-180, 180], radius > 0.
func FromQuery(q url.Values) (*Box, error) {
	rawLat, rawLng, rawRadius := q.Get("lat"), q.Get("lng"), q.Get("radius")
	if rawLat == "" && rawLng == "" && rawRadius == "" {
		return nil, nil
	}
	lat, err := parseCoord("lat", rawLat, -90, 90)
	if err != nil {
		return nil, err
	}
	lng, err := parseCoord("lng", rawLng, -180, 180)
	if err != nil {
		return nil, err
	}
	radius, err := strconv.ParseFloat(strings.TrimSpace(rawRadius), 64)
	if err != nil || radius <= 0 || math.IsInf(radius, 0) || math.IsNaN(radius) {
		return nil, apperr.Validation("radius", "radius must be a positive number of kilometres")
	}
	box := BoundingBox(lat, lng, radius)
	return &box, nil
}

func parseCoord(field, raw string, min, max float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || v < min || v > max {
		return 0, apperr.Validation(field, field+" must be a number between "+
			strconv.FormatFloat(min, 'f', -1, 64)+" and "+strconv.FormatFloat(max, 'f', -1, 64))
	}
	return v, nil
}
