// Package geo holds the pure geodesic helpers the simulation is built
// on: great-circle distances, initial bearings and a cheap planar
// estimate for when no routing provider is reachable.
package geo

import (
	"math"

	"github.com/fleetlab/carsim/internal/models"
)

// earthRadiusMeters is the mean Earth radius used for all great-circle
// math.
const earthRadiusMeters = 6371000.0

// fallbackSpeedMps is the nominal speed (36 km/h) assumed when
// estimating the duration of a synthetic route.
const fallbackSpeedMps = 10.0

// DistanceMeters returns the haversine distance between two points in
// meters. It is symmetric and zero for identical points.
func DistanceMeters(a, b models.Coordinate) float64 {
	phi1 := toRad(a.Lat)
	phi2 := toRad(b.Lat)
	dPhi := toRad(b.Lat - a.Lat)
	dLambda := toRad(b.Lng - a.Lng)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// HaversineKm is DistanceMeters in kilometers, for radius queries that
// work in km.
func HaversineKm(a, b models.Coordinate) float64 {
	return DistanceMeters(a, b) / 1000.0
}

// BearingDegrees returns the initial bearing from a to b in degrees
// clockwise from north, normalized into [0,360). Identical points have
// no direction; the result is 0 rather than NaN.
func BearingDegrees(a, b models.Coordinate) float64 {
	if a == b {
		return 0
	}

	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLng := toRad(b.Lng - a.Lng)

	x := math.Sin(dLng) * math.Cos(lat2)
	y := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	deg := math.Atan2(x, y) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// PlanarEstimate approximates the distance between start and end with
// an equirectangular projection and derives a duration at the fallback
// speed. Distance is meters, duration seconds. Less accurate than the
// haversine form; only used for synthetic routes.
func PlanarEstimate(start, end models.Coordinate) (distance, duration float64) {
	dx := (end.Lng - start.Lng) * 111.32 * math.Cos(toRad(start.Lat))
	dy := (end.Lat - start.Lat) * 110.57
	distance = math.Sqrt(dx*dx+dy*dy) * 1000
	duration = distance / fallbackSpeedMps
	return distance, duration
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
