// Package weather provides per-airport wind and altimeter lookups from two
// selectable sources: METAR text and up-to-the-minute surface observations.
package weather

import "time"

// WindSource selects the upstream backend
type WindSource string

const (
	SourceMETAR  WindSource = "metar"  // aviationweather.gov METAR text
	SourceMinute WindSource = "minute" // api.weather.gov latest observation
)

// WindInfo is one airport's parsed wind and altimeter snapshot
type WindInfo struct {
	ICAO       string     `json:"icao"`
	Wind       string     `json:"wind"`                // "27005G12KT", "00000KT", or "" when unavailable
	Altimeter  string     `json:"altimeter,omitempty"` // "A2992" or "Q1013"
	Source     WindSource `json:"source"`
	RawMETAR   string     `json:"raw_metar,omitempty"`
	ObservedAt time.Time  `json:"observed_at"`
}

// PersistentStore survives process restarts so observations fetched within
// the persistence TTL are reused instead of refetched
type PersistentStore interface {
	Get(icao string) (*WindInfo, bool)
	Put(info *WindInfo) error
}

// Config holds weather service configuration
type Config struct {
	Source                WindSource
	METARBaseURL          string
	METARFallbackBaseURL  string
	ObservationsBaseURL   string
	RequestTimeoutSeconds int
	MaxRetries            int
	CacheSeconds          int
	CacheSize             int
}
