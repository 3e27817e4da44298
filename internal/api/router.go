package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yegors/vatsim-board/internal/airports"
	"github.com/yegors/vatsim-board/internal/websocket"
	"github.com/yegors/vatsim-board/pkg/logger"
)

// Router wires the API handlers to their routes
type Router struct {
	handler  *Handler
	wsServer *websocket.Server
	logger   *logger.Logger
}

// NewRouter creates the API router
func NewRouter(stats StatsProvider, weatherService WeatherProvider, table *airports.Table, wsServer *websocket.Server, log *logger.Logger) *Router {
	return &Router{
		handler:  NewHandler(stats, weatherService, table, log),
		wsServer: wsServer,
		logger:   log.Named("api-router"),
	}
}

// Routes returns the HTTP handler for all API routes
func (r *Router) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(60 * time.Second))

	mux.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/stats", r.handler.GetStats)
		v1.Get("/airports/{icao}", r.handler.GetAirport)
		v1.Get("/groupings/{name}", r.handler.GetGrouping)
		v1.Get("/weather/{icao}", r.handler.GetWeather)
		v1.Post("/refresh", r.handler.Refresh)
		v1.Get("/health", r.handler.GetHealth)
	})

	if r.wsServer != nil {
		mux.Get("/ws", r.wsServer.HandleConnection)
	}

	return mux
}
