package enrichment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/vatsim-board/internal/weather"
	"github.com/yegors/vatsim-board/pkg/logger"
)

type fakeWeather struct {
	mu      sync.Mutex
	delay   time.Duration
	failFor map[string]bool
	active  int32
	peak    int32
}

func (f *fakeWeather) Lookup(ctx context.Context, icao string) (*weather.WindInfo, error) {
	current := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if current <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, current) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	fail := f.failFor[icao]
	f.mu.Unlock()
	if fail {
		return nil, errors.New("upstream unavailable")
	}
	return &weather.WindInfo{ICAO: icao, Wind: "27005KT"}, nil
}

type fakeNamer struct {
	failFor map[string]bool
}

func (f fakeNamer) PrettyName(ctx context.Context, icao string) (string, error) {
	if f.failFor[icao] {
		return "", errors.New("namer down")
	}
	return "Name of " + icao, nil
}

func TestEnrichAllSucceed(t *testing.T) {
	b := NewBatcher(&fakeWeather{}, fakeNamer{}, Config{Workers: 4}, logger.NewNop())

	got := b.Enrich(context.Background(), []string{"KSFO", "KOAK", "KLAX"})
	require.Len(t, got, 3)
	assert.Equal(t, "Name of KSFO", got["KSFO"].Name)
	require.NotNil(t, got["KSFO"].Weather)
	assert.Equal(t, "27005KT", got["KSFO"].Weather.Wind)
}

func TestEnrichFailureIsolated(t *testing.T) {
	wx := &fakeWeather{failFor: map[string]bool{"KOAK": true}}
	b := NewBatcher(wx, fakeNamer{failFor: map[string]bool{"KLAX": true}}, Config{Workers: 4}, logger.NewNop())

	got := b.Enrich(context.Background(), []string{"KSFO", "KOAK", "KLAX"})
	require.Len(t, got, 3)

	// KOAK weather failed but its name resolved and its siblings are intact
	assert.Nil(t, got["KOAK"].Weather)
	assert.Equal(t, "Name of KOAK", got["KOAK"].Name)

	// KLAX name failed, falls back to the code
	assert.Equal(t, "KLAX", got["KLAX"].Name)
	assert.NotNil(t, got["KLAX"].Weather)

	assert.NotNil(t, got["KSFO"].Weather)
}

func TestEnrichRespectsWorkerLimit(t *testing.T) {
	wx := &fakeWeather{delay: 30 * time.Millisecond}
	b := NewBatcher(wx, fakeNamer{}, Config{Workers: 2}, logger.NewNop())

	icaos := []string{"A1", "A2", "A3", "A4", "A5", "A6"}
	got := b.Enrich(context.Background(), icaos)

	require.Len(t, got, len(icaos))
	assert.LessOrEqual(t, atomic.LoadInt32(&wx.peak), int32(2))
}

func TestEnrichTaskTimeout(t *testing.T) {
	wx := &fakeWeather{delay: 200 * time.Millisecond}
	b := NewBatcher(wx, fakeNamer{}, Config{Workers: 4, TaskTimeoutSeconds: 1}, logger.NewNop())
	// Force a sub-second timeout through the context instead
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	got := b.Enrich(ctx, []string{"KSFO"})
	elapsed := time.Since(start)

	require.Len(t, got, 1)
	assert.Nil(t, got["KSFO"].Weather)
	assert.Less(t, elapsed, 150*time.Millisecond)
}

func TestEnrichEmptyInput(t *testing.T) {
	b := NewBatcher(&fakeWeather{}, fakeNamer{}, Config{}, logger.NewNop())
	assert.Empty(t, b.Enrich(context.Background(), nil))
}
