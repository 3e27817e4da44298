package weather

import (
	"fmt"
	"regexp"
	"strconv"
)

// Wind group: direction (3 digits or VRB), speed (2-3 digits), optional
// gust, units. METAR is usually in KT but KMH/KPH/MPS appear in some
// regions.
var windPattern = regexp.MustCompile(`\b(\d{3}|VRB)(\d{2,3})(G\d{2,3})?(KT|KMH|KPH|MPS)\b`)

// Altimeter group: A#### inches of mercury or Q#### hectopascals
var altimeterPattern = regexp.MustCompile(`\b([AQ]\d{4})\b`)

// ParseWind extracts the wind group from a METAR string, normalized to
// knots. Returns "" when no wind group is present.
func ParseWind(metar string) string {
	match := windPattern.FindStringSubmatch(metar)
	if match == nil {
		return ""
	}

	direction := match[1]
	speedStr := match[2]
	gust := match[3] // includes the G prefix
	units := match[4]

	speed, _ := strconv.Atoi(speedStr)
	if direction != "VRB" && speed == 0 {
		return "00000KT"
	}

	var divisor float64
	switch units {
	case "KMH", "KPH":
		divisor = 1.852
	case "MPS":
		divisor = 0.514444
	default:
		// Already in knots
		return direction + speedStr + gust + "KT"
	}

	speedKt := int(float64(speed)/divisor + 0.5)
	wind := fmt.Sprintf("%s%02d", direction, speedKt)
	if gust != "" {
		gustVal, _ := strconv.Atoi(gust[1:])
		gustKt := int(float64(gustVal)/divisor + 0.5)
		wind += fmt.Sprintf("G%02d", gustKt)
	}
	return wind + "KT"
}

// ParseAltimeter extracts the altimeter setting ("A2992" or "Q1013") from a
// METAR string, or "" when absent
func ParseAltimeter(metar string) string {
	match := altimeterPattern.FindStringSubmatch(metar)
	if match == nil {
		return ""
	}
	return match[1]
}
