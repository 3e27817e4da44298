package analysis

import (
	"strings"

	"github.com/yegors/vatsim-board/internal/airports"
	"github.com/yegors/vatsim-board/internal/vatsim"
	"github.com/yegors/vatsim-board/pkg/logger"
)

// Display order for control positions. ATIS is appended last and handled
// specially in display logic.
var controlPositionOrder = []string{"APP", "DEP", "TWR", "GND", "DEL"}

// Observer placeholder frequency, never a real position
const excludedFrequency = "199.998"

// Staffing display values
const (
	StaffingNotApplicable = "N/A"      // airport has no control tower
	StaffingTopDown       = "TOP-DOWN" // only ATIS online, coverage from above
)

// StaffingResolver maps raw controller and ATIS records to per-airport
// staffed position lists
type StaffingResolver struct {
	table  *airports.Table
	logger *logger.Logger
}

// NewStaffingResolver creates a resolver over the airport reference table
func NewStaffingResolver(table *airports.Table, log *logger.Logger) *StaffingResolver {
	return &StaffingResolver{
		table:  table,
		logger: log.Named("staffing"),
	}
}

// StaffedPositions extracts staffed positions per airport from the
// snapshot's controller and ATIS records. Positions come back in display
// order with ATIS last. Malformed callsigns are logged and skipped.
func (r *StaffingResolver) StaffedPositions(controllers, atis []vatsim.Controller) map[string][]string {
	staffed := make(map[string]map[string]bool)

	add := func(icao, position string) {
		if staffed[icao] == nil {
			staffed[icao] = make(map[string]bool)
		}
		staffed[icao][position] = true
	}

	for i := range controllers {
		controller := &controllers[i]
		if controller.Frequency == excludedFrequency {
			continue
		}
		icao, position, ok := r.parseCallsign(controller.Callsign)
		if !ok {
			continue
		}
		if !isControlPosition(position) {
			continue
		}
		add(icao, position)
	}

	for i := range atis {
		icao, position, ok := r.parseCallsign(atis[i].Callsign)
		if !ok || position != "ATIS" {
			continue
		}
		add(icao, "ATIS")
	}

	ordered := make(map[string][]string, len(staffed))
	for icao, positions := range staffed {
		var sorted []string
		for _, pos := range controlPositionOrder {
			if positions[pos] {
				sorted = append(sorted, pos)
			}
		}
		if positions["ATIS"] {
			sorted = append(sorted, "ATIS")
		}
		ordered[icao] = sorted
	}
	return ordered
}

// parseCallsign splits a controller callsign like "SFO_TWR" or "KSFO_1_GND"
// into a resolved airport ICAO and position suffix
func (r *StaffingResolver) parseCallsign(callsign string) (icao, position string, ok bool) {
	parts := strings.Split(callsign, "_")
	if len(parts) < 2 || parts[0] == "" {
		r.logger.Debug("Skipping malformed controller callsign", logger.String("callsign", callsign))
		return "", "", false
	}

	prefix := parts[0]
	if len(prefix) < 2 || len(prefix) > 5 {
		return "", "", false
	}

	airport, found := r.table.Resolve(prefix)
	if !found {
		return "", "", false
	}
	return airport.ICAO, parts[len(parts)-1], true
}

func isControlPosition(position string) bool {
	for _, pos := range controlPositionOrder {
		if pos == position {
			return true
		}
	}
	return false
}

// StaffingDisplay builds the display string for one airport's staffing.
// Non-towered airports show "N/A" regardless of online positions; an
// ATIS-only airport shows "TOP-DOWN"; otherwise ATIS is suppressed from the
// comma-joined position list. A towered airport with nothing online shows an
// empty string.
func StaffingDisplay(positions []string, towered bool) string {
	if !towered {
		return StaffingNotApplicable
	}
	if len(positions) == 0 {
		return ""
	}
	if len(positions) == 1 && positions[0] == "ATIS" {
		return StaffingTopDown
	}

	display := make([]string, 0, len(positions))
	for _, pos := range positions {
		if pos != "ATIS" {
			display = append(display, pos)
		}
	}
	return strings.Join(display, ", ")
}

// HasControllerStaffing reports whether any non-ATIS position is online
func HasControllerStaffing(positions []string) bool {
	for _, pos := range positions {
		if pos != "ATIS" {
			return true
		}
	}
	return false
}
