package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server     ServerConfig     `toml:"server"`     // HTTP server settings
	Logging    LoggingConfig    `toml:"logging"`    // Application logging settings
	VATSIM     VATSIMConfig     `toml:"vatsim"`     // Network data feed settings
	Data       DataConfig       `toml:"data"`       // Reference data file paths
	Weather    WeatherConfig    `toml:"wx"`         // Weather data fetching and caching settings
	Analysis   AnalysisConfig   `toml:"analysis"`   // Flight classification thresholds
	Enrichment EnrichmentConfig `toml:"enrichment"` // Parallel lookup settings
	Groupings  GroupingsConfig  `toml:"groupings"`  // Airport grouping settings
	Filters    FiltersConfig    `toml:"filters"`    // Which airports and groupings to report on
	Storage    StorageConfig    `toml:"storage"`    // Data persistence settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // Primary HTTP port for the server
	Host             string `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	AdditionalPorts  []int  `toml:"additional_ports"`      // Additional HTTP ports to listen on (useful for multiple interfaces)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// VATSIMConfig contains network data feed configuration
type VATSIMConfig struct {
	DataURL            string `toml:"data_url"`                // Full network state feed URL
	UpdateIntervalSecs int    `toml:"update_interval_seconds"` // How often to run a full refresh cycle
	RequestTimeoutSecs int    `toml:"request_timeout_seconds"` // Per-request timeout for feed fetches
	MaxRetries         int    `toml:"max_retries"`             // Fetch retries before the cycle fails
}

// DataConfig contains reference data file paths
type DataConfig struct {
	AirportsDBPath    string `toml:"airports_db_path"`    // Path to airport database CSV file
	PerformanceDBPath string `toml:"performance_db_path"` // Path to aircraft approach speed CSV file
	PerformanceTTLMin int    `toml:"performance_ttl_minutes"`
}

// WeatherConfig contains weather source configuration
type WeatherConfig struct {
	Source                string `toml:"source"` // "metar" or "minute"
	METARBaseURL          string `toml:"metar_base_url"`
	METARFallbackBaseURL  string `toml:"metar_fallback_base_url"`
	ObservationsBaseURL   string `toml:"observations_base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	MaxRetries            int    `toml:"max_retries"`
	CacheSeconds          int    `toml:"cache_seconds"`
	CacheSize             int    `toml:"cache_size"`
}

// AnalysisConfig contains flight classification thresholds
type AnalysisConfig struct {
	GroundRadiusNM         float64 `toml:"ground_radius_nm"`          // How close to a field a slow aircraft counts as on the ground there
	GroundSpeedThresholdKt float64 `toml:"ground_speed_threshold_kt"` // At or below this groundspeed an aircraft is treated as on the ground
	MaxETAHours            float64 `toml:"max_eta_hours"`             // Arrivals further out than this are not counted (`<= 0` disables the window)
	FinalApproachNM        float64 `toml:"final_approach_nm"`         // Distance inside which ETA uses approach speed alone
}

// EnrichmentConfig contains parallel lookup settings
type EnrichmentConfig struct {
	Workers            int `toml:"workers"`              // Concurrent per-airport lookups
	TaskTimeoutSeconds int `toml:"task_timeout_seconds"` // Per-lookup deadline
}

// GroupingsConfig contains airport grouping settings
type GroupingsConfig struct {
	Path           string `toml:"path"`             // Path to the custom groupings TOML file (optional)
	AutoTTLMinutes int    `toml:"auto_ttl_minutes"` // How long generated regional groupings are reused before a rebuild
}

// FiltersConfig selects which airports and groupings appear in the output
type FiltersConfig struct {
	Airports           []string `toml:"airports"`             // Explicit airport codes; short codes resolve against the table
	Countries          []string `toml:"countries"`            // Country codes; all airports of the country are tracked
	Groupings          []string `toml:"groupings"`            // Grouping names; members are tracked and the grouping is reported
	IncludeAllStaffed  bool     `toml:"include_all_staffed"`  // Keep zero-traffic airports that have staffing online
	IncludeAllArrivals bool     `toml:"include_all_arrivals"` // Count arrivals beyond the ETA window
	SortKey            string   `toml:"sort"`                 // "icao" or "total"
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	SQLiteBasePath    string `toml:"sqlite_base_path"`    // Base path for SQLite database files
	WeatherTTLMinutes int    `toml:"weather_ttl_minutes"` // How long persisted observations stay reusable
}

// Default returns the configuration used when a section or field is absent
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			Host:             "127.0.0.1",
			ReadTimeoutSecs:  30,
			WriteTimeoutSecs: 30,
			IdleTimeoutSecs:  60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		VATSIM: VATSIMConfig{
			DataURL:            "https://data.vatsim.net/v3/vatsim-data.json",
			UpdateIntervalSecs: 60,
			RequestTimeoutSecs: 15,
			MaxRetries:         3,
		},
		Data: DataConfig{
			AirportsDBPath:    "data/airports.csv",
			PerformanceDBPath: "data/approach_speeds.csv",
			PerformanceTTLMin: 60,
		},
		Weather: WeatherConfig{
			Source:                "metar",
			METARBaseURL:          "https://aviationweather.gov/api/data",
			METARFallbackBaseURL:  "https://metar.vatsim.net",
			ObservationsBaseURL:   "https://api.weather.gov",
			RequestTimeoutSeconds: 10,
			MaxRetries:            2,
			CacheSeconds:          60,
			CacheSize:             2048,
		},
		Analysis: AnalysisConfig{
			GroundRadiusNM:         6,
			GroundSpeedThresholdKt: 40,
			MaxETAHours:            1.0,
			FinalApproachNM:        20,
		},
		Enrichment: EnrichmentConfig{
			Workers:            10,
			TaskTimeoutSeconds: 5,
		},
		Groupings: GroupingsConfig{
			Path:           "configs/groupings.toml",
			AutoTTLMinutes: 60,
		},
		Filters: FiltersConfig{
			SortKey: "icao",
		},
		Storage: StorageConfig{
			SQLiteBasePath:    "data",
			WeatherTTLMinutes: 60,
		},
	}
}

// Load loads and validates the configuration from the given path. Fields
// absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	config := Default()
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return config, nil
}

// LoadWithFallback loads configuration from the preferred path, falling back
// to the standard locations
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	portsSeen := map[int]bool{c.Server.Port: true}
	for _, p := range c.Server.AdditionalPorts {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid additional server port: %d", p)
		}
		if portsSeen[p] {
			return fmt.Errorf("duplicate port configured: %d (primary or additional)", p)
		}
		portsSeen[p] = true
	}

	if c.VATSIM.DataURL == "" {
		return fmt.Errorf("vatsim data_url is required")
	}
	if c.VATSIM.UpdateIntervalSecs <= 0 {
		return fmt.Errorf("invalid update interval: %d seconds", c.VATSIM.UpdateIntervalSecs)
	}

	if c.Data.AirportsDBPath == "" {
		return fmt.Errorf("airports_db_path is required")
	}

	switch c.Weather.Source {
	case "metar", "minute":
	default:
		return fmt.Errorf("invalid weather source: %q (must be \"metar\" or \"minute\")", c.Weather.Source)
	}

	if c.Analysis.GroundRadiusNM <= 0 {
		return fmt.Errorf("ground_radius_nm must be positive: %f", c.Analysis.GroundRadiusNM)
	}
	if c.Analysis.GroundSpeedThresholdKt < 0 {
		return fmt.Errorf("ground_speed_threshold_kt must be non-negative: %f", c.Analysis.GroundSpeedThresholdKt)
	}
	if c.Analysis.FinalApproachNM <= 0 {
		return fmt.Errorf("final_approach_nm must be positive: %f", c.Analysis.FinalApproachNM)
	}

	if c.Enrichment.Workers <= 0 {
		return fmt.Errorf("enrichment workers must be positive: %d", c.Enrichment.Workers)
	}

	switch c.Filters.SortKey {
	case "icao", "total":
	default:
		return fmt.Errorf("invalid sort key: %q (must be \"icao\" or \"total\")", c.Filters.SortKey)
	}

	return nil
}
