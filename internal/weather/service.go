package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/yegors/vatsim-board/internal/cache"
	"github.com/yegors/vatsim-board/pkg/logger"
)

// Service serves wind/altimeter lookups through an in-memory TTL cache
// backed by an optional persistent store. Lookups for the same airport that
// miss concurrently collapse into one upstream fetch.
type Service struct {
	config Config
	client *Client
	cache  *cache.Cache[*WindInfo]
	store  PersistentStore
	logger *logger.Logger
}

// NewService creates the weather service. store may be nil, in which case no
// observations survive a restart.
func NewService(config Config, store PersistentStore, log *logger.Logger) *Service {
	if config.CacheSeconds <= 0 {
		config.CacheSeconds = 60
	}
	if config.CacheSize <= 0 {
		config.CacheSize = 2048
	}
	return &Service{
		config: config,
		client: NewClient(config, log),
		cache:  cache.New[*WindInfo](config.CacheSize, time.Duration(config.CacheSeconds)*time.Second, log),
		store:  store,
		logger: log.Named("weather"),
	}
}

// Lookup returns the wind/altimeter snapshot for an airport. On an upstream
// failure the last persisted observation is returned instead; the error is
// only surfaced when nothing cached is available.
func (s *Service) Lookup(ctx context.Context, icao string) (*WindInfo, error) {
	info, err := s.cache.GetOrFill(ctx, icao, func(ctx context.Context) (*WindInfo, error) {
		return s.fetch(ctx, icao)
	})
	if err == nil {
		return info, nil
	}

	if s.store != nil {
		if persisted, ok := s.store.Get(icao); ok {
			s.logger.Debug("Using persisted weather after fetch failure",
				logger.String("airport", icao),
				logger.Time("observed_at", persisted.ObservedAt))
			return persisted, nil
		}
	}
	return nil, fmt.Errorf("weather lookup for %s: %w", icao, err)
}

func (s *Service) fetch(ctx context.Context, icao string) (*WindInfo, error) {
	// A persisted observation still within its TTL beats an upstream call
	if s.store != nil {
		if persisted, ok := s.store.Get(icao); ok {
			return persisted, nil
		}
	}

	var info *WindInfo
	switch s.config.Source {
	case SourceMinute:
		wind, observedAt, err := s.client.FetchMinuteWind(ctx, icao)
		if err != nil {
			return nil, err
		}
		info = &WindInfo{
			ICAO:       icao,
			Wind:       wind,
			Source:     SourceMinute,
			ObservedAt: observedAt,
		}
	default:
		metar, err := s.client.FetchMETAR(ctx, icao)
		if err != nil {
			return nil, err
		}
		info = &WindInfo{
			ICAO:       icao,
			Wind:       ParseWind(metar),
			Altimeter:  ParseAltimeter(metar),
			Source:     SourceMETAR,
			RawMETAR:   metar,
			ObservedAt: time.Now().UTC(),
		}
	}

	if s.store != nil {
		if err := s.store.Put(info); err != nil {
			s.logger.Warn("Failed to persist weather observation",
				logger.String("airport", icao),
				logger.Error(err))
		}
	}
	return info, nil
}
