// Package board orchestrates the per-cycle analysis pipeline: fetch the
// network snapshot, classify flights, resolve staffing, enrich active
// airports, aggregate, and publish the result.
package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yegors/vatsim-board/internal/airports"
	"github.com/yegors/vatsim-board/internal/analysis"
	"github.com/yegors/vatsim-board/internal/enrichment"
	"github.com/yegors/vatsim-board/internal/groupings"
	"github.com/yegors/vatsim-board/internal/vatsim"
	"github.com/yegors/vatsim-board/pkg/logger"
)

// Broadcaster pushes a completed snapshot to connected clients
type Broadcaster interface {
	Broadcast(messageType string, data interface{})
}

// Fetcher produces network snapshots. Satisfied by *vatsim.Client.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) (*vatsim.Snapshot, error)
}

// Snapshot is one cycle's published result set. Immutable once published;
// readers always see a complete, single-cycle view.
type Snapshot struct {
	UpdatedAt        time.Time                `json:"updated_at"`
	FeedTimestamp    time.Time                `json:"feed_timestamp"`
	TotalFlights     int                      `json:"total_flights"`
	MalformedRecords int                      `json:"malformed_records"`
	CycleDuration    time.Duration            `json:"-"`
	Airports         []analysis.AirportStats  `json:"airports"`
	Groupings        []analysis.GroupingStats `json:"groupings"`
}

// Config holds the board service configuration
type Config struct {
	UpdateIntervalSecs int
	Airports           []string // explicit ICAO filter
	Countries          []string // country-code filter
	Groupings          []string // grouping filter; empty displays all groupings
	IncludeAllStaffed  bool
}

// Service owns the refresh loop
type Service struct {
	client     Fetcher
	table      *airports.Table
	resolver   *groupings.Resolver
	classifier *analysis.Classifier
	staffing   *analysis.StaffingResolver
	aggregator *analysis.Aggregator
	batcher    *enrichment.Batcher
	ws         Broadcaster
	config     Config
	logger     *logger.Logger

	mu       sync.RWMutex
	snapshot *Snapshot

	// cycleMu guards the in-flight cycle's cancel handle so a manual refresh
	// can abandon it (stale-result discard)
	cycleMu     sync.Mutex
	cycleCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates the board service. ws may be nil when no live clients
// are served.
func NewService(
	client Fetcher,
	table *airports.Table,
	resolver *groupings.Resolver,
	classifier *analysis.Classifier,
	staffing *analysis.StaffingResolver,
	aggregator *analysis.Aggregator,
	batcher *enrichment.Batcher,
	ws Broadcaster,
	config Config,
	log *logger.Logger,
) *Service {
	if config.UpdateIntervalSecs <= 0 {
		config.UpdateIntervalSecs = 60
	}
	return &Service{
		client:     client,
		table:      table,
		resolver:   resolver,
		classifier: classifier,
		staffing:   staffing,
		aggregator: aggregator,
		batcher:    batcher,
		ws:         ws,
		config:     config,
		logger:     log.Named("board"),
	}
}

// Start validates the configured filters and starts the refresh loop. The
// first cycle runs immediately.
func (s *Service) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	// Surface grouping configuration errors at startup, not mid-cycle
	if len(s.config.Groupings) > 0 {
		if _, err := s.resolver.Resolve(s.ctx, s.config.Groupings); err != nil {
			return fmt.Errorf("invalid grouping filter: %w", err)
		}
	}

	s.wg.Add(1)
	go s.refreshLoop()

	s.logger.Info("Board service started",
		logger.Int("update_interval_secs", s.config.UpdateIntervalSecs),
		logger.Int("airport_filters", len(s.config.Airports)),
		logger.Int("grouping_filters", len(s.config.Groupings)))
	return nil
}

// Stop stops the refresh loop and waits for the in-flight cycle to finish
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Snapshot returns the most recently published result set, or nil before the
// first cycle completes
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// RefreshNow abandons any in-flight cycle and runs a fresh one. The
// abandoned cycle's workers stop writing; its partial result is discarded,
// never published over a newer one.
func (s *Service) RefreshNow() (*Snapshot, error) {
	s.cycleMu.Lock()
	if s.cycleCancel != nil {
		s.cycleCancel()
	}
	s.cycleMu.Unlock()

	return s.runCycle()
}

func (s *Service) refreshLoop() {
	defer s.wg.Done()

	if _, err := s.runCycle(); err != nil {
		s.logger.Error("Initial refresh cycle failed", logger.Error(err))
	}

	ticker := time.NewTicker(time.Duration(s.config.UpdateIntervalSecs) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.runCycle(); err != nil {
				s.logger.Error("Refresh cycle failed", logger.Error(err))
			}
		case <-s.ctx.Done():
			s.logger.Info("Refresh loop stopping")
			return
		}
	}
}

// runCycle executes one fetch-classify-enrich-aggregate pass. On failure the
// previously published snapshot stays in place.
func (s *Service) runCycle() (*Snapshot, error) {
	start := time.Now()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	s.cycleMu.Lock()
	s.cycleCancel = cancel
	s.cycleMu.Unlock()

	// Grouping membership is rebuilt synchronously at cycle start, never
	// mid-cycle, so every worker sees one consistent view
	if err := s.resolver.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("refreshing grouping membership: %w", err)
	}

	tracked, err := s.trackedAirports(ctx)
	if err != nil {
		return nil, err
	}

	feed, err := s.client.FetchSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching network snapshot: %w", err)
	}

	result := s.classifier.Classify(ctx, feed.Pilots, tracked)

	// Staffing at airports outside the tracked set never reaches the output,
	// even with the include-all-staffed override
	staffed := s.staffing.StaffedPositions(feed.Controllers, feed.ATIS)
	for icao := range staffed {
		if _, ok := tracked[icao]; !ok {
			delete(staffed, icao)
		}
	}

	// Enrichment runs for exactly the airports with activity or staffing
	active := s.activeAirports(result, staffed)
	enriched := s.batcher.Enrich(ctx, active)

	airportStats := s.aggregator.BuildAirportStats(result, staffed, enriched)

	groupingNames := s.config.Groupings
	if len(groupingNames) == 0 {
		groupingNames, err = s.resolver.Names(ctx)
		if err != nil {
			return nil, err
		}
	}
	groupingStats, err := s.aggregator.BuildGroupingStats(ctx, groupingNames, result, staffed, airportStats)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		UpdatedAt:        time.Now().UTC(),
		FeedTimestamp:    feed.General.UpdateTimestamp,
		TotalFlights:     result.Flights,
		MalformedRecords: result.Malformed,
		CycleDuration:    time.Since(start),
		Airports:         airportStats,
		Groupings:        groupingStats,
	}

	// A superseded cycle must not overwrite the newer result. Checked under
	// the publish lock so cancellation and store cannot interleave.
	s.mu.Lock()
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		s.logger.Info("Discarding superseded cycle result")
		return nil, err
	}
	s.snapshot = snapshot
	s.mu.Unlock()

	if s.ws != nil {
		s.ws.Broadcast("stats_update", snapshot)
	}

	s.logger.Info("Cycle complete",
		logger.Int("flights", snapshot.TotalFlights),
		logger.Int("airports", len(snapshot.Airports)),
		logger.Int("groupings", len(snapshot.Groupings)),
		logger.Int("malformed", snapshot.MalformedRecords),
		logger.Duration("elapsed", snapshot.CycleDuration))
	return snapshot, nil
}

// trackedAirports builds the set of airports statistics are produced for:
// the union of the explicit airport list, the country filters, and the
// grouping filters. With no filters every airport in the table is tracked.
func (s *Service) trackedAirports(ctx context.Context) (map[string]*airports.Airport, error) {
	if len(s.config.Airports) == 0 && len(s.config.Countries) == 0 && len(s.config.Groupings) == 0 {
		return s.table.All(), nil
	}

	codes := make(map[string]bool)
	for _, code := range s.config.Airports {
		if a, ok := s.table.Resolve(code); ok {
			codes[a.ICAO] = true
		} else {
			s.logger.Warn("Unknown airport in filter, skipping", logger.String("code", code))
		}
	}
	for _, country := range s.config.Countries {
		for _, icao := range s.table.ByCountry(country) {
			codes[icao] = true
		}
	}
	if len(s.config.Groupings) > 0 {
		members, err := s.resolver.Resolve(ctx, s.config.Groupings)
		if err != nil {
			return nil, err
		}
		for icao := range members {
			codes[icao] = true
		}
	}

	tracked := make(map[string]*airports.Airport, len(codes))
	for icao := range codes {
		if a, ok := s.table.Get(icao); ok {
			tracked[icao] = a
		}
	}
	return tracked, nil
}

func (s *Service) activeAirports(result *analysis.Result, staffed map[string][]string) []string {
	seen := make(map[string]bool)
	for icao, counts := range result.Buckets {
		if counts.Active() {
			seen[icao] = true
		}
	}
	for icao := range staffed {
		seen[icao] = true
	}

	active := make([]string, 0, len(seen))
	for icao := range seen {
		active = append(active, icao)
	}
	return active
}
