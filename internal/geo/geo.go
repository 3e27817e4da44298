// Package geo provides great-circle distance and bearing calculations on a
// spherical-Earth approximation.
package geo

import (
	"fmt"
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// Constants
const (
	EarthRadiusNM = 3440.065 // Mean Earth radius in nautical miles
	DegToRad      = math.Pi / 180.0
	RadToDeg      = 180.0 / math.Pi
)

// Point is a geographic coordinate in decimal degrees
type Point struct {
	Lat float64
	Lon float64
}

// Valid reports whether the point holds a usable coordinate
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// ErrInvalidCoordinate is returned when a coordinate is NaN or out of range
type ErrInvalidCoordinate struct {
	Point Point
}

func (e *ErrInvalidCoordinate) Error() string {
	return fmt.Sprintf("invalid coordinate lat=%f lon=%f", e.Point.Lat, e.Point.Lon)
}

// DistanceNM returns the great-circle distance between two points in nautical
// miles using the haversine formula
func DistanceNM(a, b Point) (float64, error) {
	if !a.Valid() {
		return 0, &ErrInvalidCoordinate{Point: a}
	}
	if !b.Valid() {
		return 0, &ErrInvalidCoordinate{Point: b}
	}

	lat1 := a.Lat * DegToRad
	lat2 := b.Lat * DegToRad
	dLat := (b.Lat - a.Lat) * DegToRad
	dLon := (b.Lon - a.Lon) * DegToRad

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusNM * c, nil
}

// Bearing returns the initial true bearing from a to b in degrees [0, 360)
func Bearing(a, b Point) (float64, error) {
	if !a.Valid() {
		return 0, &ErrInvalidCoordinate{Point: a}
	}
	if !b.Valid() {
		return 0, &ErrInvalidCoordinate{Point: b}
	}

	lat1 := a.Lat * DegToRad
	lat2 := b.Lat * DegToRad
	dLon := (b.Lon - a.Lon) * DegToRad

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	brg := math.Atan2(y, x) * RadToDeg
	return math.Mod(brg+360, 360), nil
}

// MagneticBearing returns the bearing from a to b corrected for magnetic
// variation at the origin. Falls back to true bearing if the WMM calculation
// fails.
func MagneticBearing(a, b Point, date time.Time) (float64, error) {
	trueBrg, err := Bearing(a, b)
	if err != nil {
		return 0, err
	}

	loc := egm96.NewLocationGeodetic(a.Lat, a.Lon, 0)
	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		return trueBrg, nil
	}

	magBrg := trueBrg - mag.D()
	return math.Mod(magBrg+360, 360), nil
}
