package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yegors/vatsim-board/internal/airports"
	"github.com/yegors/vatsim-board/internal/groupings"
	"github.com/yegors/vatsim-board/internal/weather"
	"github.com/yegors/vatsim-board/pkg/logger"
)

// Sort keys for the airport table
const (
	SortByICAO  = "icao"  // ICAO code ascending (default)
	SortByTotal = "total" // total movements descending
)

// AggregatorConfig controls output shaping
type AggregatorConfig struct {
	SortKey           string
	IncludeAllStaffed bool // keep zero-traffic airports that have staffing online
}

// Enrichment carries the per-airport results of the enrichment fan-out
type Enrichment struct {
	Name    string
	Weather *weather.WindInfo
}

// Aggregator merges classification, staffing, and enrichment output into the
// final sorted statistics
type Aggregator struct {
	config   AggregatorConfig
	table    *airports.Table
	resolver *groupings.Resolver
	logger   *logger.Logger
}

// NewAggregator creates an aggregator
func NewAggregator(config AggregatorConfig, table *airports.Table, resolver *groupings.Resolver, log *logger.Logger) *Aggregator {
	return &Aggregator{
		config:   config,
		table:    table,
		resolver: resolver,
		logger:   log.Named("aggregator"),
	}
}

// BuildAirportStats produces the final per-airport statistics. Airports with
// zero traffic are dropped unless they have staffing online and the
// include-all-staffed override is set. "N/A" does not count as staffing.
func (a *Aggregator) BuildAirportStats(result *Result, staffing map[string][]string, enrichment map[string]Enrichment) []AirportStats {
	stats := make([]AirportStats, 0, len(result.Buckets))

	seen := make(map[string]bool, len(result.Buckets))
	for icao := range result.Buckets {
		seen[icao] = true
	}
	// Staffed airports with no traffic still get a row when the override asks
	for icao := range staffing {
		seen[icao] = true
	}

	for icao := range seen {
		bucket := result.Buckets[icao]
		if bucket == nil {
			bucket = &airportBucket{}
		}

		airport, known := a.table.Get(icao)
		towered := known && airport.Towered()
		display := StaffingDisplay(staffing[icao], towered)

		total := bucket.departures + bucket.arrivals
		staffedForInclusion := display != "" && display != StaffingNotApplicable
		if total == 0 && !(staffedForInclusion && a.config.IncludeAllStaffed) {
			continue
		}

		s := AirportStats{
			ICAO:        icao,
			Name:        icao,
			Departures:  bucket.departures,
			Arrivals:    bucket.arrivals,
			ArrivalsAll: bucket.arrivalsAll,
			Total:       total,
			Staffing:    display,
			Flights:     bucket.flights,
		}

		s.NextArrival = bucket.nextArrival
		s.NextETA = nextETADisplay(bucket)

		if e, ok := enrichment[icao]; ok {
			if e.Name != "" {
				s.Name = e.Name
			}
			if e.Weather != nil {
				s.Wind = e.Weather.Wind
				s.Altimeter = e.Weather.Altimeter
				s.WeatherSnapshot = e.Weather
			}
		}

		sortFlights(s.Flights)
		stats = append(stats, s)
	}

	a.sortAirports(stats)
	return stats
}

// BuildGroupingStats expands each requested grouping and sums per-member
// counts. Unknown or cyclic groupings surface a configuration error; a
// grouping with zero traffic is dropped from output.
func (a *Aggregator) BuildGroupingStats(ctx context.Context, names []string, result *Result, staffing map[string][]string, airportStats []AirportStats) ([]GroupingStats, error) {
	byICAO := make(map[string]AirportStats, len(airportStats))
	for _, s := range airportStats {
		byICAO[s.ICAO] = s
	}

	stats := make([]GroupingStats, 0, len(names))
	for _, name := range names {
		members, err := a.resolver.ResolveGrouping(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolving grouping %q: %w", name, err)
		}

		memberList := make([]string, 0, len(members))
		for icao := range members {
			memberList = append(memberList, icao)
		}
		sort.Strings(memberList)

		g := GroupingStats{Name: name, Members: memberList}

		var groupNextETA time.Duration
		var hasNextETA bool
		var onGround, inFlight int
		for _, icao := range memberList {
			bucket := result.Buckets[icao]
			if bucket == nil {
				continue
			}
			g.Departures += bucket.departures
			g.Arrivals += bucket.arrivals
			g.ArrivalsAll += bucket.arrivalsAll
			onGround += bucket.arrivalsOnGround
			inFlight += bucket.arrivalsInFlight
			if bucket.hasNextETA && (!hasNextETA || bucket.nextETA < groupNextETA) {
				hasNextETA = true
				groupNextETA = bucket.nextETA
			}
			if HasControllerStaffing(staffing[icao]) {
				g.StaffedAirports = append(g.StaffedAirports, icao)
			}
			if s, ok := byICAO[icao]; ok {
				g.Airports = append(g.Airports, s)
			}
		}
		g.Total = g.Departures + g.Arrivals

		switch {
		case hasNextETA:
			g.NextETA = FormatETA(groupNextETA)
		case onGround > 0 && inFlight == 0:
			g.NextETA = "LANDED"
		}

		if g.Total == 0 {
			continue
		}
		stats = append(stats, g)
	}

	// Grouping table is always name ascending
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats, nil
}

func nextETADisplay(bucket *airportBucket) string {
	switch {
	case bucket.hasNextETA:
		return FormatETA(bucket.nextETA)
	case bucket.arrivalsOnGround > 0 && bucket.arrivalsInFlight == 0:
		return "LANDED"
	default:
		return ""
	}
}

func (a *Aggregator) sortAirports(stats []AirportStats) {
	switch a.config.SortKey {
	case SortByTotal:
		sort.Slice(stats, func(i, j int) bool {
			if stats[i].Total != stats[j].Total {
				return stats[i].Total > stats[j].Total
			}
			return stats[i].ICAO < stats[j].ICAO
		})
	default:
		sort.Slice(stats, func(i, j int) bool { return stats[i].ICAO < stats[j].ICAO })
	}
}

// sortFlights orders drill-down rows deterministically: arrivals by ETA then
// callsign, departures by callsign, departures first
func sortFlights(flights []FlightDetail) {
	sort.Slice(flights, func(i, j int) bool {
		fi, fj := flights[i], flights[j]
		if fi.Direction != fj.Direction {
			return fi.Direction == DirectionDeparture
		}
		if fi.Direction == DirectionArrival && fi.ETA != fj.ETA {
			return fi.ETA < fj.ETA
		}
		return fi.Callsign < fj.Callsign
	})
}
