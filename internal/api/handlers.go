// Package api exposes the published statistics over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/vatsim-board/internal/airports"
	"github.com/yegors/vatsim-board/internal/board"
	"github.com/yegors/vatsim-board/internal/weather"
	"github.com/yegors/vatsim-board/pkg/logger"
)

// StatsProvider is the board service surface the handlers need
type StatsProvider interface {
	Snapshot() *board.Snapshot
	RefreshNow() (*board.Snapshot, error)
}

// WeatherProvider resolves current wind and altimeter for one airport.
// Satisfied by *weather.Service.
type WeatherProvider interface {
	Lookup(ctx context.Context, icao string) (*weather.WindInfo, error)
}

// Handler contains the API handlers
type Handler struct {
	stats     StatsProvider
	weather   WeatherProvider
	table     *airports.Table
	logger    *logger.Logger
	startedAt time.Time
}

// NewHandler creates a new API handler
func NewHandler(stats StatsProvider, weatherService WeatherProvider, table *airports.Table, log *logger.Logger) *Handler {
	return &Handler{
		stats:     stats,
		weather:   weatherService,
		table:     table,
		logger:    log.Named("api-handler"),
		startedAt: time.Now().UTC(),
	}
}

// GetStats returns the full published snapshot
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	snapshot := h.stats.Snapshot()
	if snapshot == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no statistics published yet")
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

// GetAirport returns one airport's statistics from the published snapshot
func (h *Handler) GetAirport(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "icao")
	airport, ok := h.table.Resolve(code)
	if !ok {
		h.writeError(w, http.StatusNotFound, "unknown airport "+strings.ToUpper(code))
		return
	}

	snapshot := h.stats.Snapshot()
	if snapshot == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no statistics published yet")
		return
	}

	for i := range snapshot.Airports {
		if snapshot.Airports[i].ICAO == airport.ICAO {
			h.writeJSON(w, http.StatusOK, snapshot.Airports[i])
			return
		}
	}
	h.writeError(w, http.StatusNotFound, "no activity at "+airport.ICAO)
}

// GetGrouping returns one grouping's statistics from the published snapshot
func (h *Handler) GetGrouping(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	snapshot := h.stats.Snapshot()
	if snapshot == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no statistics published yet")
		return
	}

	for i := range snapshot.Groupings {
		if strings.EqualFold(snapshot.Groupings[i].Name, name) {
			h.writeJSON(w, http.StatusOK, snapshot.Groupings[i])
			return
		}
	}
	h.writeError(w, http.StatusNotFound, "no activity in grouping "+name)
}

// Refresh runs a full cycle immediately and returns the fresh snapshot
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.stats.RefreshNow()
	if err != nil {
		h.logger.Error("Manual refresh failed", logger.Error(err))
		h.writeError(w, http.StatusBadGateway, "refresh failed: "+err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

// GetWeather returns current wind and altimeter for one airport
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "icao")
	airport, ok := h.table.Resolve(code)
	if !ok {
		h.writeError(w, http.StatusNotFound, "unknown airport "+strings.ToUpper(code))
		return
	}

	info, err := h.weather.Lookup(r.Context(), airport.ICAO)
	if err != nil {
		h.logger.Error("Weather lookup failed",
			logger.String("icao", airport.ICAO),
			logger.Error(err))
		h.writeError(w, http.StatusBadGateway, "weather unavailable for "+airport.ICAO)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// GetHealth returns process health and feed freshness
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	}
	if snapshot := h.stats.Snapshot(); snapshot != nil {
		response["last_update"] = snapshot.UpdatedAt
		response["feed_timestamp"] = snapshot.FeedTimestamp
		response["total_flights"] = snapshot.TotalFlights
	} else {
		response["status"] = "starting"
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
