package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/vatsim-board/internal/airports"
	"github.com/yegors/vatsim-board/internal/analysis"
	"github.com/yegors/vatsim-board/internal/board"
	"github.com/yegors/vatsim-board/internal/weather"
	"github.com/yegors/vatsim-board/pkg/logger"
)

type stubStats struct {
	snapshot   *board.Snapshot
	refreshErr error
	refreshed  int
}

func (s *stubStats) Snapshot() *board.Snapshot { return s.snapshot }

func (s *stubStats) RefreshNow() (*board.Snapshot, error) {
	s.refreshed++
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.snapshot, nil
}

type stubWeatherLookup struct{}

func (stubWeatherLookup) Lookup(ctx context.Context, icao string) (*weather.WindInfo, error) {
	if icao == "KSFO" {
		return &weather.WindInfo{ICAO: icao, Wind: "28012KT", Altimeter: "A2992"}, nil
	}
	return nil, errors.New("no data")
}

func testSnapshot() *board.Snapshot {
	return &board.Snapshot{
		UpdatedAt:    time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		TotalFlights: 3,
		Airports: []analysis.AirportStats{
			{ICAO: "KSFO", Name: "San Francisco International Airport", Departures: 2, Arrivals: 1, Total: 3, Staffing: "TWR"},
		},
		Groupings: []analysis.GroupingStats{
			{Name: "Bay Area", Members: []string{"KOAK", "KSFO"}, Departures: 2, Arrivals: 1, Total: 3},
		},
	}
}

func newTestRouter(stats *stubStats) http.Handler {
	log := logger.NewNop()
	table := airports.NewTable([]*airports.Airport{
		{ICAO: "KSFO", Name: "San Francisco International Airport", Country: "US", TowerType: "ATCT"},
		{ICAO: "KOAK", Name: "Metropolitan Oakland International Airport", Country: "US", TowerType: "ATCT"},
	}, log)
	return NewRouter(stats, stubWeatherLookup{}, table, nil, log).Routes()
}

func doRequest(t *testing.T, handler http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGetStats(t *testing.T) {
	router := newTestRouter(&stubStats{snapshot: testSnapshot()})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap board.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 3, snap.TotalFlights)
	require.Len(t, snap.Airports, 1)
	assert.Equal(t, "KSFO", snap.Airports[0].ICAO)
}

func TestGetStatsBeforeFirstCycle(t *testing.T) {
	router := newTestRouter(&stubStats{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stats")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetAirportResolvesShortCode(t *testing.T) {
	router := newTestRouter(&stubStats{snapshot: testSnapshot()})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/airports/sfo")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats analysis.AirportStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "KSFO", stats.ICAO)
	assert.Equal(t, 2, stats.Departures)
}

func TestGetAirportUnknown(t *testing.T) {
	router := newTestRouter(&stubStats{snapshot: testSnapshot()})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/airports/ZZZZ")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAirportInactive(t *testing.T) {
	router := newTestRouter(&stubStats{snapshot: testSnapshot()})

	// Known airport with no entry in the published snapshot
	rec := doRequest(t, router, http.MethodGet, "/api/v1/airports/KOAK")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetGrouping(t *testing.T) {
	router := newTestRouter(&stubStats{snapshot: testSnapshot()})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/groupings/bay%20area")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats analysis.GroupingStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "Bay Area", stats.Name)
	assert.Equal(t, []string{"KOAK", "KSFO"}, stats.Members)
}

func TestRefresh(t *testing.T) {
	stats := &stubStats{snapshot: testSnapshot()}
	router := newTestRouter(stats)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, stats.refreshed)
}

func TestRefreshFailure(t *testing.T) {
	stats := &stubStats{refreshErr: errors.New("feed unavailable")}
	router := newTestRouter(stats)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetWeather(t *testing.T) {
	router := newTestRouter(&stubStats{snapshot: testSnapshot()})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/weather/KSFO")
	require.Equal(t, http.StatusOK, rec.Code)

	var info weather.WindInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "28012KT", info.Wind)
}

func TestGetWeatherFailure(t *testing.T) {
	router := newTestRouter(&stubStats{snapshot: testSnapshot()})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/weather/KOAK")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetHealth(t *testing.T) {
	router := newTestRouter(&stubStats{snapshot: testSnapshot()})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(3), body["total_flights"])
}

func TestGetHealthBeforeFirstCycle(t *testing.T) {
	router := newTestRouter(&stubStats{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "starting", body["status"])
}
