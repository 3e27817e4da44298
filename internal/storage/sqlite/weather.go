// Package sqlite provides SQLite-backed persistence for weather
// observations, so restarts within the persistence TTL reuse cached data
// instead of refetching.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yegors/vatsim-board/internal/weather"
	"github.com/yegors/vatsim-board/pkg/logger"
	_ "modernc.org/sqlite"
)

// WeatherStore is a SQLite-backed weather.PersistentStore
type WeatherStore struct {
	db     *sql.DB
	ttl    time.Duration
	logger *logger.Logger
}

// NewWeatherStore opens (or creates) the database at dbPath. Entries older
// than ttl are treated as absent and pruned opportunistically.
func NewWeatherStore(dbPath string, ttl time.Duration, log *logger.Logger) (*WeatherStore, error) {
	storeLogger := log.Named("sqlite")

	storeLogger.Info("Initializing SQLite weather store",
		logger.String("path", dbPath),
		logger.Duration("ttl", ttl))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &WeatherStore{
		db:     db,
		ttl:    ttl,
		logger: storeLogger,
	}, nil
}

// Close closes the database connection
func (s *WeatherStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS weather (
			icao TEXT PRIMARY KEY,
			wind TEXT,
			altimeter TEXT,
			source TEXT,
			raw_metar TEXT,
			observed_at TIMESTAMP,
			fetched_at TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create weather table: %w", err)
	}
	return nil
}

// Get returns the stored observation for icao if it is still within the TTL
func (s *WeatherStore) Get(icao string) (*weather.WindInfo, bool) {
	row := s.db.QueryRow(`
		SELECT wind, altimeter, source, raw_metar, observed_at, fetched_at
		FROM weather WHERE icao = ?`, icao)

	var info weather.WindInfo
	var source string
	var fetchedAt time.Time
	err := row.Scan(&info.Wind, &info.Altimeter, &source, &info.RawMETAR, &info.ObservedAt, &fetchedAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to read weather row", logger.String("icao", icao), logger.Error(err))
		}
		return nil, false
	}

	if time.Since(fetchedAt) > s.ttl {
		if _, err := s.db.Exec(`DELETE FROM weather WHERE icao = ?`, icao); err != nil {
			s.logger.Warn("Failed to prune expired weather row", logger.String("icao", icao), logger.Error(err))
		}
		return nil, false
	}

	info.ICAO = icao
	info.Source = weather.WindSource(source)
	return &info, true
}

// Put upserts an observation for an airport
func (s *WeatherStore) Put(info *weather.WindInfo) error {
	_, err := s.db.Exec(`
		INSERT INTO weather (icao, wind, altimeter, source, raw_metar, observed_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(icao) DO UPDATE SET
			wind = excluded.wind,
			altimeter = excluded.altimeter,
			source = excluded.source,
			raw_metar = excluded.raw_metar,
			observed_at = excluded.observed_at,
			fetched_at = excluded.fetched_at`,
		info.ICAO, info.Wind, info.Altimeter, string(info.Source), info.RawMETAR,
		info.ObservedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert weather row: %w", err)
	}
	return nil
}
