package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMetersIdentity(t *testing.T) {
	assert.Equal(t, 0.0, DistanceMeters(1.3521, 103.8198, 1.3521, 103.8198))
	assert.Equal(t, 0.0, DistanceMeters(0, 0, 0, 0))
}

func TestDistanceMetersSymmetry(t *testing.T) {
	d1 := DistanceMeters(1.3521, 103.8198, 35.6762, 139.6503)
	d2 := DistanceMeters(35.6762, 139.6503, 1.3521, 103.8198)
	assert.InDelta(t, d1, d2, 1e-6)
}

func TestDistanceMetersKnownDistances(t *testing.T) {
	// Singapore -> Kuala Lumpur, roughly 316km
	d := DistanceMeters(1.3521, 103.8198, 3.1390, 101.6869)
	assert.InDelta(t, 316000, d, 5000)

	// One degree of latitude along a meridian is ~111.2km
	d = DistanceMeters(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 100)
}

func TestDistanceMetersShortRange(t *testing.T) {
	// ~50m north
	d := DistanceMeters(1.3000, 103.8000, 1.30045, 103.8000)
	assert.InDelta(t, 50, d, 1)

	// Diagonal offset lands around 70m
	d = DistanceMeters(1.3000, 103.8000, 1.30045, 103.80045)
	assert.Greater(t, d, 60.0)
	assert.Less(t, d, 80.0)
}

func TestDistanceMetersTriangleInequality(t *testing.T) {
	a := [2]float64{1.3521, 103.8198}  // Singapore
	b := [2]float64{3.1390, 101.6869}  // Kuala Lumpur
	c := [2]float64{13.7563, 100.5018} // Bangkok

	ab := DistanceMeters(a[0], a[1], b[0], b[1])
	bc := DistanceMeters(b[0], b[1], c[0], c[1])
	ac := DistanceMeters(a[0], a[1], c[0], c[1])
	assert.LessOrEqual(t, ac, ab+bc)
}

func TestDistanceMetersAntipodal(t *testing.T) {
	// Half the Earth's circumference, ~20015km
	d := DistanceMeters(0, 0, 0, 180)
	assert.InDelta(t, 20015000, d, 10000)
}

func TestDistanceMetersNaNPropagates(t *testing.T) {
	assert.True(t, math.IsNaN(DistanceMeters(math.NaN(), 0, 0, 0)))
	assert.True(t, math.IsNaN(DistanceMeters(0, 0, 0, math.NaN())))
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(0, 0))
	assert.True(t, ValidCoordinate(-90, -180))
	assert.True(t, ValidCoordinate(90, 180))
	assert.True(t, ValidCoordinate(1.3521, 103.8198))

	assert.False(t, ValidCoordinate(90.1, 0))
	assert.False(t, ValidCoordinate(-90.1, 0))
	assert.False(t, ValidCoordinate(0, 180.1))
	assert.False(t, ValidCoordinate(0, -180.1))
	assert.False(t, ValidCoordinate(math.NaN(), 0))
	assert.False(t, ValidCoordinate(0, math.Inf(1)))
}
