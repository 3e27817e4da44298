package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/vatsim-board/internal/airports"
	"github.com/yegors/vatsim-board/internal/groupings"
	"github.com/yegors/vatsim-board/internal/weather"
	"github.com/yegors/vatsim-board/pkg/logger"
)

func newTestAggregator(t *testing.T, cfg AggregatorConfig, custom map[string][]string) *Aggregator {
	t.Helper()
	table := airports.NewTable([]*airports.Airport{testKSFO, testKOAK, testKLAX,
		{ICAO: "KHAF", Country: "US", Latitude: 37.5134167, Longitude: -122.5011111, ARTCC: "ZOA", TowerType: "NON-ATCT"},
	}, logger.NewNop())
	resolver := groupings.NewResolver(custom, table, time.Hour, logger.NewNop())
	return NewAggregator(cfg, table, resolver, logger.NewNop())
}

func resultWith(buckets map[string]*airportBucket) *Result {
	return &Result{Buckets: buckets}
}

func TestBuildAirportStatsDropsInactive(t *testing.T) {
	a := newTestAggregator(t, AggregatorConfig{IncludeAllStaffed: true}, nil)

	result := resultWith(map[string]*airportBucket{
		"KSFO": {departures: 2, arrivals: 1, arrivalsAll: 1},
		"KOAK": {}, // zero traffic, no staffing
	})

	stats := a.BuildAirportStats(result, nil, nil)
	require.Len(t, stats, 1)
	assert.Equal(t, "KSFO", stats[0].ICAO)
	assert.Equal(t, 3, stats[0].Total)
}

func TestBuildAirportStatsKeepsStaffedWhenIncluded(t *testing.T) {
	a := newTestAggregator(t, AggregatorConfig{IncludeAllStaffed: true}, nil)

	staffing := map[string][]string{"KOAK": {"TWR"}}
	stats := a.BuildAirportStats(resultWith(map[string]*airportBucket{}), staffing, nil)

	require.Len(t, stats, 1)
	assert.Equal(t, "KOAK", stats[0].ICAO)
	assert.Equal(t, "TWR", stats[0].Staffing)
}

func TestBuildAirportStatsDropsStaffedWhenNotIncluded(t *testing.T) {
	a := newTestAggregator(t, AggregatorConfig{IncludeAllStaffed: false}, nil)

	staffing := map[string][]string{"KOAK": {"TWR"}}
	stats := a.BuildAirportStats(resultWith(map[string]*airportBucket{}), staffing, nil)
	assert.Empty(t, stats)
}

func TestBuildAirportStatsTopDownCountsAsStaffed(t *testing.T) {
	a := newTestAggregator(t, AggregatorConfig{IncludeAllStaffed: true}, nil)

	staffing := map[string][]string{"KSFO": {"ATIS"}}
	stats := a.BuildAirportStats(resultWith(map[string]*airportBucket{}), staffing, nil)

	require.Len(t, stats, 1)
	assert.Equal(t, StaffingTopDown, stats[0].Staffing)
}

func TestBuildAirportStatsNonToweredNeverStaffed(t *testing.T) {
	a := newTestAggregator(t, AggregatorConfig{IncludeAllStaffed: true}, nil)

	// Positions online at a non-towered airport should not occur, but if
	// present the display is N/A and does not count as staffing
	staffing := map[string][]string{"KHAF": {"TWR"}}
	stats := a.BuildAirportStats(resultWith(map[string]*airportBucket{}), staffing, nil)
	assert.Empty(t, stats)

	// With traffic the airport shows up with N/A staffing
	stats = a.BuildAirportStats(resultWith(map[string]*airportBucket{
		"KHAF": {departures: 1},
	}), staffing, nil)
	require.Len(t, stats, 1)
	assert.Equal(t, StaffingNotApplicable, stats[0].Staffing)
}

func TestBuildAirportStatsEnrichment(t *testing.T) {
	a := newTestAggregator(t, AggregatorConfig{}, nil)

	result := resultWith(map[string]*airportBucket{
		"KSFO": {departures: 1},
	})
	enrichment := map[string]Enrichment{
		"KSFO": {
			Name:    "San Francisco International Airport",
			Weather: &weather.WindInfo{ICAO: "KSFO", Wind: "28012KT", Altimeter: "A3002"},
		},
	}

	stats := a.BuildAirportStats(result, nil, enrichment)
	require.Len(t, stats, 1)
	assert.Equal(t, "San Francisco International Airport", stats[0].Name)
	assert.Equal(t, "28012KT", stats[0].Wind)
	assert.Equal(t, "A3002", stats[0].Altimeter)
}

func TestBuildAirportStatsFailedEnrichmentDegrades(t *testing.T) {
	a := newTestAggregator(t, AggregatorConfig{}, nil)

	result := resultWith(map[string]*airportBucket{
		"KSFO": {departures: 1},
	})

	// No enrichment entry at all: name falls back to the ICAO, wind empty
	stats := a.BuildAirportStats(result, nil, map[string]Enrichment{})
	require.Len(t, stats, 1)
	assert.Equal(t, "KSFO", stats[0].Name)
	assert.Empty(t, stats[0].Wind)
}

func TestBuildAirportStatsSortOrders(t *testing.T) {
	buckets := map[string]*airportBucket{
		"KSFO": {departures: 1},
		"KLAX": {departures: 5},
		"KOAK": {departures: 3},
	}

	a := newTestAggregator(t, AggregatorConfig{SortKey: SortByICAO}, nil)
	stats := a.BuildAirportStats(resultWith(buckets), nil, nil)
	assert.Equal(t, []string{"KLAX", "KOAK", "KSFO"}, icaos(stats))

	a = newTestAggregator(t, AggregatorConfig{SortKey: SortByTotal}, nil)
	stats = a.BuildAirportStats(resultWith(buckets), nil, nil)
	assert.Equal(t, []string{"KLAX", "KOAK", "KSFO"}, icaos(stats))

	buckets["KSFO"] = &airportBucket{departures: 9}
	stats = a.BuildAirportStats(resultWith(buckets), nil, nil)
	assert.Equal(t, []string{"KSFO", "KLAX", "KOAK"}, icaos(stats))
}

func TestBuildAirportStatsNextETA(t *testing.T) {
	a := newTestAggregator(t, AggregatorConfig{}, nil)

	result := resultWith(map[string]*airportBucket{
		"KLAX": {
			arrivals:         1,
			arrivalsInFlight: 1,
			nextArrival:      "AAL9",
			nextETA:          25 * time.Minute,
			hasNextETA:       true,
		},
		"KSFO": {
			arrivals:         1,
			arrivalsOnGround: 1,
		},
	})

	stats := a.BuildAirportStats(result, nil, nil)
	require.Len(t, stats, 2)
	assert.Equal(t, "25m", stats[0].NextETA) // KLAX
	assert.Equal(t, "AAL9", stats[0].NextArrival)
	assert.Equal(t, "LANDED", stats[1].NextETA) // KSFO, all arrivals landed
}

func TestBuildGroupingStats(t *testing.T) {
	custom := map[string][]string{
		"California": {"BayArea", "SoCal"},
		"BayArea":    {"KSFO", "KOAK"},
		"SoCal":      {"KLAX", "KSFO"},
	}
	a := newTestAggregator(t, AggregatorConfig{}, custom)

	result := resultWith(map[string]*airportBucket{
		"KSFO": {departures: 2, arrivals: 1, arrivalsAll: 2, arrivalsInFlight: 1, nextETA: 40 * time.Minute, hasNextETA: true, nextArrival: "UAL1"},
		"KLAX": {departures: 1, arrivals: 2, arrivalsAll: 2, arrivalsInFlight: 2, nextETA: 15 * time.Minute, hasNextETA: true, nextArrival: "AAL9"},
	})
	staffing := map[string][]string{
		"KSFO": {"TWR", "ATIS"},
		"KOAK": {"ATIS"},
	}
	airportStats := a.BuildAirportStats(result, staffing, nil)

	stats, err := a.BuildGroupingStats(context.Background(), []string{"California", "BayArea"}, result, staffing, airportStats)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Name ascending
	assert.Equal(t, "BayArea", stats[0].Name)
	assert.Equal(t, "California", stats[1].Name)

	california := stats[1]
	// KSFO deduplicated across the two nesting paths
	assert.Equal(t, []string{"KLAX", "KOAK", "KSFO"}, california.Members)
	assert.Equal(t, 3, california.Departures)
	assert.Equal(t, 3, california.Arrivals)
	assert.Equal(t, 6, california.Total)
	assert.Equal(t, "15m", california.NextETA)
	// ATIS-only KOAK is not a staffed airport
	assert.Equal(t, []string{"KSFO"}, california.StaffedAirports)
}

func TestBuildGroupingStatsUnknownSurfaces(t *testing.T) {
	a := newTestAggregator(t, AggregatorConfig{}, map[string][]string{"BayArea": {"KSFO"}})

	_, err := a.BuildGroupingStats(context.Background(), []string{"Nowhere"}, resultWith(nil), nil, nil)
	require.Error(t, err)
	var unknownErr *groupings.UnknownError
	assert.ErrorAs(t, err, &unknownErr)
}

func TestBuildGroupingStatsDropsInactive(t *testing.T) {
	a := newTestAggregator(t, AggregatorConfig{}, map[string][]string{"BayArea": {"KSFO", "KOAK"}})

	stats, err := a.BuildGroupingStats(context.Background(), []string{"BayArea"}, resultWith(map[string]*airportBucket{}), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func icaos(stats []AirportStats) []string {
	out := make([]string, len(stats))
	for i, s := range stats {
		out[i] = s.ICAO
	}
	return out
}
