package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetlab/carsim/internal/models"
)

func TestDistanceMeters_IdenticalPoints(t *testing.T) {
	p := models.Coordinate{Lng: -7.62379, Lat: 33.55292}
	assert.Equal(t, 0.0, DistanceMeters(p, p))
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	a := models.Coordinate{Lng: 13.404954, Lat: 52.520008}
	b := models.Coordinate{Lng: 13.397634, Lat: 52.529407}
	assert.InDelta(t, DistanceMeters(a, b), DistanceMeters(b, a), 1e-9)
}

func TestDistanceMeters_KnownValue(t *testing.T) {
	// One degree of latitude along a meridian is ~111.19 km for the
	// 6371 km sphere.
	a := models.Coordinate{Lng: 0, Lat: 0}
	b := models.Coordinate{Lng: 0, Lat: 1}
	assert.InDelta(t, 111195, DistanceMeters(a, b), 10)
}

func TestHaversineKm(t *testing.T) {
	a := models.Coordinate{Lng: 0, Lat: 0}
	b := models.Coordinate{Lng: 0, Lat: 1}
	assert.InDelta(t, DistanceMeters(a, b)/1000, HaversineKm(a, b), 1e-9)
}

func TestBearingDegrees_Cardinal(t *testing.T) {
	origin := models.Coordinate{Lng: 0, Lat: 0}

	tests := []struct {
		name string
		to   models.Coordinate
		want float64
	}{
		{"north", models.Coordinate{Lng: 0, Lat: 1}, 0},
		{"east", models.Coordinate{Lng: 1, Lat: 0}, 90},
		{"south", models.Coordinate{Lng: 0, Lat: -1}, 180},
		{"west", models.Coordinate{Lng: -1, Lat: 0}, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, BearingDegrees(origin, tt.to), 1e-6)
		})
	}
}

func TestBearingDegrees_IdenticalPoints(t *testing.T) {
	p := models.Coordinate{Lng: 2.3522, Lat: 48.8566}
	got := BearingDegrees(p, p)
	assert.False(t, math.IsNaN(got))
	assert.Equal(t, 0.0, got)
}

func TestBearingDegrees_Range(t *testing.T) {
	a := models.Coordinate{Lng: -7.94762, Lat: 33.39123}
	pts := []models.Coordinate{
		{Lng: -7.62379, Lat: 33.55292},
		{Lng: -8.1, Lat: 33.2},
		{Lng: -7.94762, Lat: 34.0},
		{Lng: -7.0, Lat: 33.39123},
	}
	for _, b := range pts {
		got := BearingDegrees(a, b)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.Less(t, got, 360.0)
	}
}

func TestPlanarEstimate(t *testing.T) {
	start := models.Coordinate{Lng: 0, Lat: 0}
	end := models.Coordinate{Lng: 0, Lat: 1}

	dist, dur := PlanarEstimate(start, end)
	// 110.57 km per degree of latitude at the equator.
	assert.InDelta(t, 110570, dist, 1)
	assert.InDelta(t, dist/10, dur, 1e-9)
}

func TestPlanarEstimate_ZeroForIdentical(t *testing.T) {
	p := models.Coordinate{Lng: -7.66268, Lat: 33.53779}
	dist, dur := PlanarEstimate(p, p)
	assert.Equal(t, 0.0, dist)
	assert.Equal(t, 0.0, dur)
}

func TestPlanarEstimate_LongitudeScaledByLatitude(t *testing.T) {
	// A degree of longitude shrinks with latitude.
	equator, _ := PlanarEstimate(models.Coordinate{Lng: 0, Lat: 0}, models.Coordinate{Lng: 1, Lat: 0})
	north, _ := PlanarEstimate(models.Coordinate{Lng: 0, Lat: 60}, models.Coordinate{Lng: 1, Lat: 60})
	assert.Greater(t, equator, north)
	assert.InDelta(t, equator*math.Cos(60*math.Pi/180), north, 1)
}
