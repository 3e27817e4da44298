// Package analysis is the per-cycle pipeline core: flight classification,
// ETA estimation, controller staffing resolution, and aggregation into
// per-airport and per-grouping statistics.
package analysis

import (
	"time"

	"github.com/yegors/vatsim-board/internal/weather"
)

// Direction is the classification of a flight relative to an airport
type Direction string

const (
	DirectionDeparture Direction = "departure"
	DirectionArrival   Direction = "arrival"
)

// FlightDetail is the per-flight drill-down record attached to an airport
type FlightDetail struct {
	Callsign     string        `json:"callsign"`
	Direction    Direction     `json:"direction"`
	AircraftType string        `json:"aircraft_type,omitempty"`
	Departure    string        `json:"departure,omitempty"`
	Arrival      string        `json:"arrival,omitempty"`
	Route        string        `json:"route,omitempty"`
	Squawk       string        `json:"squawk,omitempty"`
	OnGround     bool          `json:"on_ground"`
	Groundspeed  int           `json:"groundspeed"`
	ETA          time.Duration `json:"-"`
	ETADisplay   string        `json:"eta,omitempty"`
	DistanceNM   float64       `json:"distance_nm,omitempty"`
	BearingMag   float64       `json:"bearing_mag,omitempty"`
}

// AirportStats is one airport's statistics for one cycle. Immutable once
// returned; owned by the cycle that created it.
type AirportStats struct {
	ICAO            string            `json:"icao"`
	Name            string            `json:"name"`
	Departures      int               `json:"departures"`
	Arrivals        int               `json:"arrivals"`
	ArrivalsAll     int               `json:"arrivals_all"`
	Total           int               `json:"total"`
	NextArrival     string            `json:"next_arrival,omitempty"`
	NextETA         string            `json:"next_eta,omitempty"`
	Wind            string            `json:"wind,omitempty"`
	Altimeter       string            `json:"altimeter,omitempty"`
	Staffing        string            `json:"staffing"`
	Flights         []FlightDetail    `json:"flights,omitempty"`
	WeatherSnapshot *weather.WindInfo `json:"-"`
}

// GroupingStats aggregates per-member counts for one named grouping
type GroupingStats struct {
	Name            string         `json:"name"`
	Members         []string       `json:"members"`
	Departures      int            `json:"departures"`
	Arrivals        int            `json:"arrivals"`
	ArrivalsAll     int            `json:"arrivals_all"`
	Total           int            `json:"total"`
	NextETA         string         `json:"next_eta,omitempty"`
	StaffedAirports []string       `json:"staffed_airports,omitempty"`
	Airports        []AirportStats `json:"airports,omitempty"`
}

// airportBucket accumulates one airport's classification results within a
// cycle before aggregation
type airportBucket struct {
	departures       int
	arrivals         int
	arrivalsAll      int
	arrivalsOnGround int
	arrivalsInFlight int
	nextArrival      string
	nextETA          time.Duration
	hasNextETA       bool
	flights          []FlightDetail
}

// Active reports whether the bucket saw any flight this cycle, counted or
// pending
func (b *airportBucket) Active() bool {
	return b.departures > 0 || b.arrivals > 0 || b.arrivalsAll > 0
}

// Result is the classifier's output for one snapshot
type Result struct {
	Buckets   map[string]*airportBucket
	Flights   int
	Malformed int
}

func (r *Result) bucket(icao string) *airportBucket {
	b, ok := r.Buckets[icao]
	if !ok {
		b = &airportBucket{}
		r.Buckets[icao] = b
	}
	return b
}
