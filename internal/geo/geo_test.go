package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ksfo = Point{Lat: 37.6188056, Lon: -122.3754167}
	klax = Point{Lat: 33.9424964, Lon: -118.4080486}
	koak = Point{Lat: 37.7212597, Lon: -122.2207428}
)

func TestDistanceNM(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{"same point", ksfo, ksfo, 0, 0.001},
		{"KSFO-KLAX", ksfo, klax, 293.0, 3.0},
		{"KSFO-KOAK", ksfo, koak, 9.8, 1.0},
		{"antimeridian", Point{Lat: 0, Lon: 179.5}, Point{Lat: 0, Lon: -179.5}, 60.0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DistanceNM(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, tt.tol)
		})
	}
}

func TestDistanceNMInvalidCoordinates(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
	}{
		{"nan lat", Point{Lat: math.NaN(), Lon: 0}, ksfo},
		{"lat out of range", Point{Lat: 91, Lon: 0}, ksfo},
		{"lon out of range", ksfo, Point{Lat: 0, Lon: 181}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DistanceNM(tt.a, tt.b)
			require.Error(t, err)
			var invalidErr *ErrInvalidCoordinate
			assert.ErrorAs(t, err, &invalidErr)
		})
	}
}

func TestBearing(t *testing.T) {
	// Due north along a meridian
	got, err := Bearing(Point{Lat: 30, Lon: -100}, Point{Lat: 40, Lon: -100})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 0.01)

	// Due east on the equator
	got, err = Bearing(Point{Lat: 0, Lon: 0}, Point{Lat: 0, Lon: 10})
	require.NoError(t, err)
	assert.InDelta(t, 90.0, got, 0.01)

	// KSFO to KLAX is roughly southeast
	got, err = Bearing(ksfo, klax)
	require.NoError(t, err)
	assert.Greater(t, got, 130.0)
	assert.Less(t, got, 150.0)
}

func TestBearingRange(t *testing.T) {
	// Due west must come back as 270, not -90
	got, err := Bearing(Point{Lat: 0, Lon: 10}, Point{Lat: 0, Lon: 0})
	require.NoError(t, err)
	assert.InDelta(t, 270.0, got, 0.01)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.Less(t, got, 360.0)
}
