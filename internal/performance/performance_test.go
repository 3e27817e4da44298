package performance

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/vatsim-board/pkg/logger"
)

const testAircraftCSV = `ICAO_Code,Manufacturer,Model,Approach_Speed_knot
B738,Boeing,737-800,141
A320,Airbus,A320,136
C172,Cessna,172 Skyhawk,62
GLID,Various,Glider,N/A
`

func newTestLookup(t *testing.T) *Lookup {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aircraft_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(testAircraftCSV), 0644))
	return NewLookup(path, time.Hour, logger.NewNop())
}

func TestApproachSpeed(t *testing.T) {
	l := newTestLookup(t)
	ctx := context.Background()

	assert.Equal(t, 141.0, l.ApproachSpeed(ctx, "B738"))
	assert.Equal(t, 136.0, l.ApproachSpeed(ctx, "a320"))
	assert.Equal(t, 62.0, l.ApproachSpeed(ctx, " C172 "))
}

func TestApproachSpeedFallsBackToDefault(t *testing.T) {
	l := newTestLookup(t)
	ctx := context.Background()

	assert.Equal(t, DefaultApproachSpeedKt, l.ApproachSpeed(ctx, ""))
	assert.Equal(t, DefaultApproachSpeedKt, l.ApproachSpeed(ctx, "ZZZZ"))
	// N/A rows are skipped, not parsed as zero
	assert.Equal(t, DefaultApproachSpeedKt, l.ApproachSpeed(ctx, "GLID"))
}

func TestApproachSpeedMissingFile(t *testing.T) {
	l := NewLookup(filepath.Join(t.TempDir(), "missing.csv"), time.Hour, logger.NewNop())
	assert.Equal(t, DefaultApproachSpeedKt, l.ApproachSpeed(context.Background(), "B738"))
}

func TestKnown(t *testing.T) {
	l := newTestLookup(t)
	ctx := context.Background()

	assert.True(t, l.Known(ctx, "B738"))
	assert.False(t, l.Known(ctx, "ZZZZ"))
}
