package analysis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yegors/vatsim-board/internal/airports"
	"github.com/yegors/vatsim-board/internal/geo"
	"github.com/yegors/vatsim-board/internal/vatsim"
	"github.com/yegors/vatsim-board/pkg/logger"
)

// ClassifierConfig holds the classification thresholds. The exact radius and
// speed threshold are tunable, not load-bearing constants.
type ClassifierConfig struct {
	GroundRadiusNM         float64 // max distance from an airport to count as on ground
	GroundSpeedThresholdKt float64 // at-or-below this speed a flight is on ground
	MaxETAHours            float64 // arrival window for airborne flights
	IncludeAllArrivals     bool    // include filed arrivals beyond the ETA window
}

// DefaultClassifierConfig returns the standard thresholds
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		GroundRadiusNM:         6,
		GroundSpeedThresholdKt: 40,
		MaxETAHours:            1.0,
	}
}

// Classifier partitions a snapshot's flights into per-airport departure and
// arrival buckets. Classification is CPU-bound and never blocks on I/O.
type Classifier struct {
	config ClassifierConfig
	eta    *ETAEstimator
	logger *logger.Logger
}

// NewClassifier creates a classifier
func NewClassifier(config ClassifierConfig, eta *ETAEstimator, log *logger.Logger) *Classifier {
	return &Classifier{
		config: config,
		eta:    eta,
		logger: log.Named("classifier"),
	}
}

// Classify runs the classification rules over every pilot in the snapshot.
// tracked is the set of airports statistics are produced for; flights not
// attributable to a tracked airport are excluded, which is the common case.
func (c *Classifier) Classify(ctx context.Context, pilots []vatsim.Pilot, tracked map[string]*airports.Airport) *Result {
	result := &Result{Buckets: make(map[string]*airportBucket)}

	for i := range pilots {
		pilot := &pilots[i]
		result.Flights++

		pos := geo.Point{Lat: pilot.Latitude, Lon: pilot.Longitude}
		if !pos.Valid() {
			result.Malformed++
			c.logger.Debug("Skipping pilot with malformed position",
				logger.String("callsign", pilot.Callsign))
			continue
		}

		c.classifyOne(ctx, pilot, pos, tracked, result)
	}

	return result
}

func (c *Classifier) classifyOne(ctx context.Context, pilot *vatsim.Pilot, pos geo.Point, tracked map[string]*airports.Airport, result *Result) {
	departure, arrival := filedAirports(pilot)

	onGroundAt := c.nearestIfOnGround(pos, float64(pilot.Groundspeed), tracked)
	if onGroundAt != "" {
		switch {
		case departure != "" && onGroundAt == departure:
			b := result.bucket(departure)
			b.departures++
			b.flights = append(b.flights, c.detail(pilot, DirectionDeparture, true, 0, pos, tracked[departure]))
		case arrival != "" && onGroundAt == arrival:
			// Already arrived
			b := result.bucket(arrival)
			b.arrivals++
			b.arrivalsAll++
			b.arrivalsOnGround++
			b.flights = append(b.flights, c.detail(pilot, DirectionArrival, true, 0, pos, tracked[arrival]))
		case departure == "" && arrival == "":
			// No flight plan filed, treat as a departure at the field
			b := result.bucket(onGroundAt)
			b.departures++
			b.flights = append(b.flights, c.detail(pilot, DirectionDeparture, true, 0, pos, tracked[onGroundAt]))
		default:
			// On ground somewhere other than the filed endpoints; still a
			// pending arrival for its filed destination
			if arrival != "" {
				if _, ok := tracked[arrival]; ok {
					result.bucket(arrival).arrivalsAll++
				}
			}
		}
		return
	}

	// Airborne: only a filed arrival at a tracked airport matters
	if arrival == "" {
		return
	}
	airport, ok := tracked[arrival]
	if !ok {
		return
	}

	eta, err := c.eta.Estimate(ctx, pos, float64(pilot.Groundspeed), airport.Point(), aircraftType(pilot))
	if err != nil {
		if !errors.Is(err, ErrIndeterminate) {
			result.Malformed++
		}
		return
	}

	b := result.bucket(arrival)
	b.arrivalsAll++

	withinWindow := c.config.MaxETAHours <= 0 || eta <= time.Duration(c.config.MaxETAHours*float64(time.Hour))
	if !withinWindow && !c.config.IncludeAllArrivals {
		return
	}

	b.arrivals++
	b.arrivalsInFlight++
	b.flights = append(b.flights, c.detail(pilot, DirectionArrival, false, eta, pos, airport))

	// Next arrival: smallest non-negative ETA, callsign breaking ties
	if !b.hasNextETA || eta < b.nextETA || (eta == b.nextETA && pilot.Callsign < b.nextArrival) {
		b.hasNextETA = true
		b.nextETA = eta
		b.nextArrival = pilot.Callsign
	}
}

// nearestIfOnGround returns the ICAO of the nearest tracked airport when the
// flight is slow enough and close enough to be on the ground there
func (c *Classifier) nearestIfOnGround(pos geo.Point, groundspeedKt float64, tracked map[string]*airports.Airport) string {
	if groundspeedKt > c.config.GroundSpeedThresholdKt {
		return ""
	}

	var nearest string
	minDistance := c.config.GroundRadiusNM
	for icao, airport := range tracked {
		distance, err := geo.DistanceNM(pos, airport.Point())
		if err != nil {
			continue
		}
		if distance <= minDistance {
			minDistance = distance
			nearest = icao
		}
	}
	return nearest
}

func (c *Classifier) detail(pilot *vatsim.Pilot, direction Direction, onGround bool, eta time.Duration, pos geo.Point, airport *airports.Airport) FlightDetail {
	detail := FlightDetail{
		Callsign:     pilot.Callsign,
		Direction:    direction,
		AircraftType: aircraftType(pilot),
		OnGround:     onGround,
		Groundspeed:  pilot.Groundspeed,
	}
	if pilot.FlightPlan != nil {
		detail.Departure = strings.ToUpper(pilot.FlightPlan.Departure)
		detail.Arrival = strings.ToUpper(pilot.FlightPlan.Arrival)
		detail.Route = pilot.FlightPlan.Route
		detail.Squawk = pilot.FlightPlan.AssignedTransponder
	}
	if direction == DirectionArrival {
		detail.ETA = eta
		detail.ETADisplay = FormatETA(eta)
		if !onGround && airport != nil {
			if distance, err := geo.DistanceNM(pos, airport.Point()); err == nil {
				detail.DistanceNM = distance
			}
			if bearing, err := geo.MagneticBearing(pos, airport.Point(), time.Now()); err == nil {
				detail.BearingMag = bearing
			}
		}
	}
	return detail
}

func filedAirports(pilot *vatsim.Pilot) (departure, arrival string) {
	if pilot.FlightPlan == nil {
		return "", ""
	}
	return strings.ToUpper(strings.TrimSpace(pilot.FlightPlan.Departure)),
		strings.ToUpper(strings.TrimSpace(pilot.FlightPlan.Arrival))
}

func aircraftType(pilot *vatsim.Pilot) string {
	if pilot.FlightPlan == nil {
		return ""
	}
	return pilot.FlightPlan.AircraftShort
}
