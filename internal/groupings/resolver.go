// Package groupings expands named airport groupings, including nested
// groupings and auto-generated regional "All" groupings, into flat airport
// sets with cycle detection.
package groupings

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/yegors/vatsim-board/internal/airports"
	"github.com/yegors/vatsim-board/internal/cache"
	"github.com/yegors/vatsim-board/pkg/logger"
)

const autoCacheKey = "artcc_groupings"

// Resolver expands grouping names into flat ICAO sets. Custom groupings come
// from configuration; auto groupings ("ZOA All") are derived from the airport
// reference table and rebuilt once per cache TTL.
type Resolver struct {
	custom map[string][]string
	table  *airports.Table
	auto   *cache.Cache[map[string][]string]
	logger *logger.Logger
}

// NewResolver creates a resolver over the given custom groupings and airport
// table. autoTTL bounds how long the derived regional groupings are reused.
func NewResolver(custom map[string][]string, table *airports.Table, autoTTL time.Duration, log *logger.Logger) *Resolver {
	return &Resolver{
		custom: custom,
		table:  table,
		auto:   cache.New[map[string][]string](1, autoTTL, log),
		logger: log.Named("groupings"),
	}
}

// LoadFile reads custom groupings from a TOML file of the form:
//
//	[groupings]
//	"Bay Area" = ["KSFO", "KOAK", "KSJC"]
//	"California" = ["Bay Area", "SoCal"]
func LoadFile(path string) (map[string][]string, error) {
	var file struct {
		Groupings map[string][]string `toml:"groupings"`
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to load groupings file %s: %w", path, err)
	}
	if file.Groupings == nil {
		file.Groupings = make(map[string][]string)
	}
	return file.Groupings, nil
}

// Refresh rebuilds the auto-grouping cache if expired. Called synchronously
// at cycle start so every worker in a cycle sees one consistent membership
// snapshot.
func (r *Resolver) Refresh(ctx context.Context) error {
	_, err := r.auto.GetOrFill(ctx, autoCacheKey, r.buildAutoGroupings)
	return err
}

// All returns the merged grouping map, custom names shadowing auto names
func (r *Resolver) All(ctx context.Context) (map[string][]string, error) {
	auto, err := r.auto.GetOrFill(ctx, autoCacheKey, r.buildAutoGroupings)
	if err != nil {
		return nil, err
	}

	all := make(map[string][]string, len(auto)+len(r.custom))
	for name, members := range auto {
		all[name] = members
	}
	for name, members := range r.custom {
		all[name] = members
	}
	return all, nil
}

// Names returns every known grouping name, sorted
func (r *Resolver) Names(ctx context.Context) ([]string, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Resolve expands the given grouping names into the union of their member
// airports. A name absent from the grouping map fails with UnknownError; a
// grouping reachable from itself fails with CycleError.
func (r *Resolver) Resolve(ctx context.Context, names []string) (map[string]bool, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	members := make(map[string]bool)
	for _, name := range names {
		if _, ok := all[name]; !ok {
			return nil, &UnknownError{Name: name}
		}
		set, err := resolveOne(name, all, map[string]bool{})
		if err != nil {
			return nil, err
		}
		for icao := range set {
			members[icao] = true
		}
	}
	return members, nil
}

// ResolveGrouping expands a single grouping and additionally fails with
// EmptyError when the expansion contains no airports
func (r *Resolver) ResolveGrouping(ctx context.Context, name string) (map[string]bool, error) {
	members, err := r.Resolve(ctx, []string{name})
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, &EmptyError{Name: name}
	}
	return members, nil
}

// resolveOne walks one grouping. visited holds the current resolution chain
// only, so a grouping reachable through two sibling paths is a union, not a
// cycle. Each recursion gets its own copy of the chain.
func resolveOne(name string, all map[string][]string, visited map[string]bool) (map[string]bool, error) {
	if visited[name] {
		return nil, &CycleError{Name: name}
	}

	chain := make(map[string]bool, len(visited)+1)
	for n := range visited {
		chain[n] = true
	}
	chain[name] = true

	members := make(map[string]bool)
	for _, entry := range all[name] {
		if _, isGrouping := all[entry]; isGrouping {
			nested, err := resolveOne(entry, all, chain)
			if err != nil {
				return nil, err
			}
			for icao := range nested {
				members[icao] = true
			}
		} else {
			// Literal airport code
			members[entry] = true
		}
	}
	return members, nil
}

func (r *Resolver) buildAutoGroupings(ctx context.Context) (map[string][]string, error) {
	auto := make(map[string][]string)
	for _, artcc := range r.table.ARTCCs() {
		members := r.table.ByARTCC(artcc)
		sort.Strings(members)
		auto[artcc+" All"] = members
	}
	r.logger.Info("Built regional groupings", logger.Int("count", len(auto)))
	return auto, nil
}
