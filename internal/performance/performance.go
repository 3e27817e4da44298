// Package performance provides aircraft-type final-approach speed lookups,
// loaded from a reference CSV and served through a TTL cache.
package performance

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yegors/vatsim-board/internal/cache"
	"github.com/yegors/vatsim-board/pkg/logger"
)

// DefaultApproachSpeedKt is used when the aircraft type has no registered
// approach speed
const DefaultApproachSpeedKt = 150.0

const cacheKey = "approach_speeds"

// Lookup resolves ICAO aircraft type codes to approach speeds in knots. The
// reference data is largely static, so the backing cache carries a long TTL
// and is rebuilt from disk on expiry.
type Lookup struct {
	dataPath string
	cache    *cache.Cache[map[string]float64]
	logger   *logger.Logger
}

// NewLookup creates a lookup backed by the given CSV file. Expected columns
// include ICAO_Code and Approach_Speed_knot.
func NewLookup(dataPath string, ttl time.Duration, log *logger.Logger) *Lookup {
	return &Lookup{
		dataPath: dataPath,
		cache:    cache.New[map[string]float64](1, ttl, log),
		logger:   log.Named("performance"),
	}
}

// ApproachSpeed returns the final-approach speed in knots for an aircraft
// type, or DefaultApproachSpeedKt when the type is empty or unknown. A failed
// reference load also falls back to the default so a bad file never stalls a
// cycle.
func (l *Lookup) ApproachSpeed(ctx context.Context, aircraftType string) float64 {
	aircraftType = strings.ToUpper(strings.TrimSpace(aircraftType))
	if aircraftType == "" {
		return DefaultApproachSpeedKt
	}

	speeds, err := l.cache.GetOrFill(ctx, cacheKey, l.loadSpeeds)
	if err != nil {
		l.logger.Warn("Failed to load approach speed data, using default",
			logger.String("type", aircraftType),
			logger.Error(err))
		return DefaultApproachSpeedKt
	}

	if speed, ok := speeds[aircraftType]; ok {
		return speed
	}
	return DefaultApproachSpeedKt
}

// Known reports whether an aircraft type has a registered approach speed
func (l *Lookup) Known(ctx context.Context, aircraftType string) bool {
	speeds, err := l.cache.GetOrFill(ctx, cacheKey, l.loadSpeeds)
	if err != nil {
		return false
	}
	_, ok := speeds[strings.ToUpper(strings.TrimSpace(aircraftType))]
	return ok
}

func (l *Lookup) loadSpeeds(ctx context.Context) (map[string]float64, error) {
	file, err := os.Open(l.dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open aircraft data file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read aircraft data file: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("aircraft data file %s has no data rows", l.dataPath)
	}

	// Locate the columns by header name so column order is not load-bearing
	typeCol, speedCol := -1, -1
	for i, name := range records[0] {
		switch strings.TrimSpace(name) {
		case "ICAO_Code":
			typeCol = i
		case "Approach_Speed_knot":
			speedCol = i
		}
	}
	if typeCol < 0 || speedCol < 0 {
		return nil, fmt.Errorf("aircraft data file %s missing ICAO_Code or Approach_Speed_knot column", l.dataPath)
	}

	speeds := make(map[string]float64, len(records)-1)
	var skipped int
	for _, record := range records[1:] {
		if len(record) <= typeCol || len(record) <= speedCol {
			skipped++
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(record[typeCol]))
		speedStr := strings.TrimSpace(record[speedCol])
		if code == "" || speedStr == "" || speedStr == "N/A" {
			skipped++
			continue
		}
		speed, err := strconv.ParseFloat(speedStr, 64)
		if err != nil || speed <= 0 {
			skipped++
			continue
		}
		speeds[code] = speed
	}

	l.logger.Info("Loaded aircraft approach speeds",
		logger.String("path", l.dataPath),
		logger.Int("types", len(speeds)),
		logger.Int("skipped_rows", skipped))

	return speeds, nil
}
