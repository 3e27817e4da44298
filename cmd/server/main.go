package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/yegors/vatsim-board/internal/airports"
	"github.com/yegors/vatsim-board/internal/analysis"
	"github.com/yegors/vatsim-board/internal/api"
	"github.com/yegors/vatsim-board/internal/board"
	"github.com/yegors/vatsim-board/internal/config"
	"github.com/yegors/vatsim-board/internal/enrichment"
	"github.com/yegors/vatsim-board/internal/groupings"
	"github.com/yegors/vatsim-board/internal/performance"
	"github.com/yegors/vatsim-board/internal/storage/sqlite"
	"github.com/yegors/vatsim-board/internal/vatsim"
	"github.com/yegors/vatsim-board/internal/weather"
	"github.com/yegors/vatsim-board/internal/websocket"
	"github.com/yegors/vatsim-board/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting VATSIM board server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Load reference data
	table, err := airports.LoadTable(cfg.Data.AirportsDBPath, log)
	if err != nil {
		log.Error("Failed to load airport table", logger.Error(err), logger.String("path", cfg.Data.AirportsDBPath))
		os.Exit(1)
	}
	log.Info("Airport table loaded", logger.Int("airports", table.Len()))

	custom := map[string][]string{}
	if cfg.Groupings.Path != "" {
		if _, err := os.Stat(cfg.Groupings.Path); err == nil {
			custom, err = groupings.LoadFile(cfg.Groupings.Path)
			if err != nil {
				log.Error("Failed to load groupings file", logger.Error(err), logger.String("path", cfg.Groupings.Path))
				os.Exit(1)
			}
			log.Info("Custom groupings loaded", logger.Int("groupings", len(custom)))
		} else {
			log.Warn("Groupings file not found, using generated groupings only", logger.String("path", cfg.Groupings.Path))
		}
	}
	resolver := groupings.NewResolver(custom, table, time.Duration(cfg.Groupings.AutoTTLMinutes)*time.Minute, log)

	perf := performance.NewLookup(cfg.Data.PerformanceDBPath, time.Duration(cfg.Data.PerformanceTTLMin)*time.Minute, log)

	// Create SQLite weather store
	if err := os.MkdirAll(cfg.Storage.SQLiteBasePath, 0755); err != nil {
		log.Error("Failed to create database directory", logger.Error(err), logger.String("path", cfg.Storage.SQLiteBasePath))
		os.Exit(1)
	}
	dbPath := filepath.Join(cfg.Storage.SQLiteBasePath, "vatsim-board.db")
	weatherStore, err := sqlite.NewWeatherStore(dbPath, time.Duration(cfg.Storage.WeatherTTLMinutes)*time.Minute, log)
	if err != nil {
		log.Error("Failed to create SQLite weather store", logger.Error(err))
		os.Exit(1)
	}
	defer weatherStore.Close()
	log.Info("Using SQLite weather store", logger.String("path", dbPath))

	weatherService := weather.NewService(weather.Config{
		Source:                weather.WindSource(cfg.Weather.Source),
		METARBaseURL:          cfg.Weather.METARBaseURL,
		METARFallbackBaseURL:  cfg.Weather.METARFallbackBaseURL,
		ObservationsBaseURL:   cfg.Weather.ObservationsBaseURL,
		RequestTimeoutSeconds: cfg.Weather.RequestTimeoutSeconds,
		MaxRetries:            cfg.Weather.MaxRetries,
		CacheSeconds:          cfg.Weather.CacheSeconds,
		CacheSize:             cfg.Weather.CacheSize,
	}, weatherStore, log)

	// Create WebSocket server
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	// Assemble the analysis pipeline
	feedClient := vatsim.NewClient(
		cfg.VATSIM.DataURL,
		time.Duration(cfg.VATSIM.RequestTimeoutSecs)*time.Second,
		cfg.VATSIM.MaxRetries,
		log,
	)

	etaEstimator := analysis.NewETAEstimator(perf, cfg.Analysis.FinalApproachNM, cfg.Analysis.GroundSpeedThresholdKt)
	classifier := analysis.NewClassifier(analysis.ClassifierConfig{
		GroundRadiusNM:         cfg.Analysis.GroundRadiusNM,
		GroundSpeedThresholdKt: cfg.Analysis.GroundSpeedThresholdKt,
		MaxETAHours:            cfg.Analysis.MaxETAHours,
		IncludeAllArrivals:     cfg.Filters.IncludeAllArrivals,
	}, etaEstimator, log)
	staffing := analysis.NewStaffingResolver(table, log)
	aggregator := analysis.NewAggregator(analysis.AggregatorConfig{
		SortKey:           cfg.Filters.SortKey,
		IncludeAllStaffed: cfg.Filters.IncludeAllStaffed,
	}, table, resolver, log)
	batcher := enrichment.NewBatcher(weatherService, &enrichment.TableNamer{Table: table}, enrichment.Config{
		Workers:            cfg.Enrichment.Workers,
		TaskTimeoutSeconds: cfg.Enrichment.TaskTimeoutSeconds,
	}, log)

	boardService := board.NewService(feedClient, table, resolver, classifier, staffing, aggregator, batcher, wsServer, board.Config{
		UpdateIntervalSecs: cfg.VATSIM.UpdateIntervalSecs,
		Airports:           cfg.Filters.Airports,
		Countries:          cfg.Filters.Countries,
		Groupings:          cfg.Filters.Groupings,
		IncludeAllStaffed:  cfg.Filters.IncludeAllStaffed,
	}, log)

	wsServer.SetMessageHandler(board.NewWebSocketHandler(boardService, log))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := boardService.Start(ctx); err != nil {
		log.Error("Failed to start board service", logger.Error(err))
		os.Exit(1)
	}

	// Create API router
	router := api.NewRouter(boardService, weatherService, table, wsServer, log)

	// --- Setup for multiple HTTP servers ---
	var servers []*http.Server
	allPorts := []int{cfg.Server.Port}
	if len(cfg.Server.AdditionalPorts) > 0 {
		allPorts = append(allPorts, cfg.Server.AdditionalPorts...)
	}

	log.Info("Configured listener ports", logger.Any("ports", allPorts))

	for _, port := range allPorts {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
		server := &http.Server{
			Addr:         addr,
			Handler:      router.Routes(),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
		}
		servers = append(servers, server)

		go func(s *http.Server) {
			log.Info("Starting HTTP server", logger.String("addr", s.Addr))
			if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("HTTP server error on startup", logger.String("addr", s.Addr), logger.Error(err))
			}
		}(server)
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	log.Info("Stopping board service...")
	boardService.Stop()
	log.Info("Board service stopped.")

	cancel()

	// Shutdown all HTTP servers
	log.Info("Shutting down HTTP servers...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("HTTP server shutdown error", logger.String("addr", srv.Addr), logger.Error(err))
			} else {
				log.Info("HTTP server shutdown complete", logger.String("addr", srv.Addr))
			}
		}(s)
	}
	wg.Wait()

	log.Info("Server fully stopped")
}
