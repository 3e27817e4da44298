package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yegors/vatsim-board/internal/geo"
	"github.com/yegors/vatsim-board/internal/performance"
)

// ErrIndeterminate means an ETA cannot be computed for this flight. The
// flight is excluded from arrival counts; this is not a cycle failure.
var ErrIndeterminate = errors.New("eta indeterminate")

// ETAEstimator produces time-to-arrival estimates. Raw groundspeed
// overestimates arrival speed near the runway, so the final segment is
// modeled at the aircraft type's approach speed instead.
type ETAEstimator struct {
	perf                   *performance.Lookup
	finalApproachNM        float64
	groundSpeedThresholdKt float64
}

// NewETAEstimator creates an estimator. finalApproachNM is the length of the
// final segment flown at approach speed; groundSpeedThresholdKt is the
// at-or-below speed treated as on ground.
func NewETAEstimator(perf *performance.Lookup, finalApproachNM, groundSpeedThresholdKt float64) *ETAEstimator {
	return &ETAEstimator{
		perf:                   perf,
		finalApproachNM:        finalApproachNM,
		groundSpeedThresholdKt: groundSpeedThresholdKt,
	}
}

// Estimate returns the time to arrival from pos to dest. Returns
// ErrIndeterminate when groundspeed is at or below the ground threshold, and
// an invalid-coordinate error when either point is malformed.
func (e *ETAEstimator) Estimate(ctx context.Context, pos geo.Point, groundspeedKt float64, dest geo.Point, aircraftType string) (time.Duration, error) {
	if groundspeedKt <= e.groundSpeedThresholdKt {
		return 0, ErrIndeterminate
	}

	distance, err := geo.DistanceNM(pos, dest)
	if err != nil {
		return 0, err
	}

	approachSpeed := e.perf.ApproachSpeed(ctx, aircraftType)

	var hours float64
	if distance <= e.finalApproachNM {
		// Inside the final segment the whole remaining distance is flown at
		// approach speed regardless of current groundspeed
		hours = distance / approachSpeed
	} else {
		cruiseHours := (distance - e.finalApproachNM) / groundspeedKt
		approachHours := e.finalApproachNM / approachSpeed
		hours = cruiseHours + approachHours
	}

	return time.Duration(hours * float64(time.Hour)), nil
}

// FormatETA renders a duration as a compact display string: "<1m", "45m",
// "1h30m". Zero means the flight has landed.
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "LANDED"
	}
	minutes := int(d.Minutes())
	if minutes < 1 {
		return "<1m"
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}
