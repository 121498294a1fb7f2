// Package rules implements the deterministic business-rule engine: geodesy
// primitives, geofence validation, job outcome classification, and the
// scoring/wage calculations. Every function is pure and safe for concurrent
// use; nothing here performs I/O or holds state.
package rules

import (
	"math"

	"github.com/rotisserie/eris"
)

const (
	// earthRadiusMiles is the Earth radius used by the haversine distance.
	earthRadiusMiles = 3959.0

	// metersPerMile is the conversion constant shared by both unit helpers.
	metersPerMile = 1609.34
)

// ErrInvalidCoordinate is returned when a latitude/longitude pair is
// non-finite or out of range. It is the only error the engine produces.
var ErrInvalidCoordinate = eris.New("rules: invalid coordinate")

// Coordinate is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ValidCoordinate reports whether lat/lng form a usable coordinate:
// both finite, latitude in [-90, 90] and longitude in [-180, 180].
// This is the single range check; every coordinate-accepting function
// in the engine goes through it.
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Valid reports whether the coordinate passes ValidCoordinate.
func (c Coordinate) Valid() bool {
	return ValidCoordinate(c.Lat, c.Lng)
}

// Distance returns the great-circle distance between a and b in miles,
// computed with the haversine formula. It returns ErrInvalidCoordinate if
// either input fails ValidCoordinate; it never clamps or substitutes.
func Distance(a, b Coordinate) (float64, error) {
	if !a.Valid() || !b.Valid() {
		return 0, ErrInvalidCoordinate
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMiles * c, nil
}

// MilesToMeters converts miles to meters.
func MilesToMeters(miles float64) float64 {
	return miles * metersPerMile
}

// MetersToMiles converts meters to miles. Inverse of MilesToMeters up to
// floating-point rounding.
func MetersToMiles(meters float64) float64 {
	return meters / metersPerMile
}
