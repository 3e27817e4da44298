// Package enrichment concurrently fetches per-airport wind/altimeter and
// human-readable names for the airports active in a cycle.
package enrichment

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yegors/vatsim-board/internal/airports"
	"github.com/yegors/vatsim-board/internal/analysis"
	"github.com/yegors/vatsim-board/internal/weather"
	"github.com/yegors/vatsim-board/pkg/logger"
)

// WeatherLookup is the wind/altimeter capability consumed per airport
type WeatherLookup interface {
	Lookup(ctx context.Context, icao string) (*weather.WindInfo, error)
}

// Namer resolves an ICAO code to a human-readable name. May be slow; always
// called through the batcher, never on the classification path.
type Namer interface {
	PrettyName(ctx context.Context, icao string) (string, error)
}

// TableNamer adapts the airport reference table to the Namer interface
type TableNamer struct {
	Table *airports.Table
}

func (n TableNamer) PrettyName(ctx context.Context, icao string) (string, error) {
	return n.Table.PrettyName(icao), nil
}

// Config bounds the enrichment fan-out
type Config struct {
	Workers            int
	TaskTimeoutSeconds int
}

// Batcher runs the per-airport lookups across a bounded worker pool with a
// per-task timeout. One slow or failing lookup never blocks the others.
type Batcher struct {
	weather WeatherLookup
	namer   Namer
	config  Config
	logger  *logger.Logger
}

// NewBatcher creates a batcher
func NewBatcher(weatherLookup WeatherLookup, namer Namer, config Config, log *logger.Logger) *Batcher {
	if config.Workers <= 0 {
		config.Workers = 10
	}
	if config.TaskTimeoutSeconds <= 0 {
		config.TaskTimeoutSeconds = 5
	}
	return &Batcher{
		weather: weatherLookup,
		namer:   namer,
		config:  config,
		logger:  log.Named("enrichment"),
	}
}

// Enrich fans the lookups out over the worker pool and fans back in,
// returning one entry per requested airport. Failures degrade that airport's
// entry (name falls back to the ICAO, weather stays nil) instead of failing
// the batch; ctx cancellation abandons remaining work.
func (b *Batcher) Enrich(ctx context.Context, icaos []string) map[string]analysis.Enrichment {
	results := make(map[string]analysis.Enrichment, len(icaos))
	if len(icaos) == 0 {
		return results
	}

	start := time.Now()
	taskTimeout := time.Duration(b.config.TaskTimeoutSeconds) * time.Second

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Workers)

	for _, icao := range icaos {
		icao := icao
		g.Go(func() error {
			entry := b.enrichOne(ctx, icao, taskTimeout)
			mu.Lock()
			results[icao] = entry
			mu.Unlock()
			// Lookup failures are recorded per airport, never returned, so no
			// worker error can cancel its siblings
			return nil
		})
	}
	g.Wait()

	b.logger.Debug("Enrichment batch complete",
		logger.Int("airports", len(icaos)),
		logger.Duration("elapsed", time.Since(start)))
	return results
}

func (b *Batcher) enrichOne(ctx context.Context, icao string, taskTimeout time.Duration) analysis.Enrichment {
	entry := analysis.Enrichment{Name: icao}

	nameCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	name, err := b.namer.PrettyName(nameCtx, icao)
	cancel()
	if err != nil {
		b.logger.Warn("Name resolution failed, using airport code",
			logger.String("airport", icao),
			logger.Error(err))
	} else if name != "" {
		entry.Name = name
	}

	wxCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	info, err := b.weather.Lookup(wxCtx, icao)
	cancel()
	if err != nil {
		b.logger.Warn("Weather lookup failed, showing unknown wind",
			logger.String("airport", icao),
			logger.Error(err))
	} else {
		entry.Weather = info
	}

	return entry
}
