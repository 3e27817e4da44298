// Package airports loads the unified airport reference table: ICAO code to
// coordinates, tower type, responsible ARTCC, and country.
package airports

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/yegors/vatsim-board/internal/geo"
	"github.com/yegors/vatsim-board/pkg/logger"
)

// Tower type codes from the FAA facility data
const (
	TowerATCT    = "ATCT"
	TowerNonATCT = "NON-ATCT"
)

// Airport is one row of the reference table
type Airport struct {
	ICAO      string  `json:"icao"`
	IATA      string  `json:"iata,omitempty"`
	Name      string  `json:"name"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation int     `json:"elevation"`
	ARTCC     string  `json:"artcc,omitempty"`
	TowerType string  `json:"tower_type,omitempty"`
}

// Point returns the airport's coordinates
func (a *Airport) Point() geo.Point {
	return geo.Point{Lat: a.Latitude, Lon: a.Longitude}
}

// Towered reports whether the airport has a control tower
func (a *Airport) Towered() bool {
	return a.TowerType != "" && a.TowerType != TowerNonATCT
}

// Table is the loaded reference data, read-only after construction
type Table struct {
	byICAO map[string]*Airport
	logger *logger.Logger
}

// LoadTable reads the reference CSV. Expected columns:
// icao,iata,name,city,country,latitude,longitude,elevation,artcc,tower_type
func LoadTable(path string, log *logger.Logger) (*Table, error) {
	tableLogger := log.Named("airports")

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open airport data file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read airport data file: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("airport data file %s has no data rows", path)
	}

	table := &Table{
		byICAO: make(map[string]*Airport, len(records)-1),
		logger: tableLogger,
	}

	var skipped int
	for i, record := range records[1:] {
		if len(record) < 10 {
			skipped++
			continue
		}
		icao := strings.ToUpper(strings.TrimSpace(record[0]))
		if icao == "" {
			skipped++
			continue
		}

		lat, latErr := strconv.ParseFloat(strings.TrimSpace(record[5]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(record[6]), 64)
		if latErr != nil || lonErr != nil {
			tableLogger.Debug("Skipping airport row with bad coordinates",
				logger.String("icao", icao),
				logger.Int("row", i+2))
			skipped++
			continue
		}
		elev, _ := strconv.Atoi(strings.TrimSpace(record[7]))

		table.byICAO[icao] = &Airport{
			ICAO:      icao,
			IATA:      strings.TrimSpace(record[1]),
			Name:      strings.TrimSpace(record[2]),
			City:      strings.TrimSpace(record[3]),
			Country:   strings.ToUpper(strings.TrimSpace(record[4])),
			Latitude:  lat,
			Longitude: lon,
			Elevation: elev,
			ARTCC:     strings.ToUpper(strings.TrimSpace(record[8])),
			TowerType: strings.ToUpper(strings.TrimSpace(record[9])),
		}
	}

	tableLogger.Info("Loaded airport reference table",
		logger.String("path", path),
		logger.Int("airports", len(table.byICAO)),
		logger.Int("skipped_rows", skipped))

	return table, nil
}

// NewTable builds a table from already-constructed airports, for tests
func NewTable(airports []*Airport, log *logger.Logger) *Table {
	table := &Table{
		byICAO: make(map[string]*Airport, len(airports)),
		logger: log.Named("airports"),
	}
	for _, a := range airports {
		table.byICAO[a.ICAO] = a
	}
	return table
}

// Get returns the airport for an exact ICAO code
func (t *Table) Get(icao string) (*Airport, bool) {
	a, ok := t.byICAO[strings.ToUpper(icao)]
	return a, ok
}

// Resolve returns the airport for a code, trying the K-prefix form for
// 3-letter codes (SFO resolves to KSFO). The prefix is only assumed for US
// airports so 3-letter identifiers from other regions are not misresolved.
func (t *Table) Resolve(code string) (*Airport, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if a, ok := t.byICAO[code]; ok {
		return a, true
	}
	if len(code) == 3 {
		if a, ok := t.byICAO["K"+code]; ok && a.Country == "US" {
			return a, true
		}
	}
	return nil, false
}

// PrettyName returns a human-readable name for an ICAO code, falling back to
// the code itself when the table has nothing better
func (t *Table) PrettyName(icao string) string {
	a, ok := t.Get(icao)
	if !ok || a.Name == "" {
		return strings.ToUpper(icao)
	}
	if a.City != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(a.City)) {
		return fmt.Sprintf("%s, %s", a.Name, a.City)
	}
	return a.Name
}

// ByARTCC returns the ICAO codes under a regional control facility, in no
// particular order
func (t *Table) ByARTCC(artcc string) []string {
	artcc = strings.ToUpper(artcc)
	var codes []string
	for icao, a := range t.byICAO {
		if a.ARTCC == artcc {
			codes = append(codes, icao)
		}
	}
	return codes
}

// ByCountry returns all ICAO codes registered to a country code
func (t *Table) ByCountry(country string) []string {
	country = strings.ToUpper(country)
	var codes []string
	for icao, a := range t.byICAO {
		if a.Country == country {
			codes = append(codes, icao)
		}
	}
	return codes
}

// ARTCCs returns the distinct regional facility codes present in the table
func (t *Table) ARTCCs() []string {
	seen := make(map[string]bool)
	for _, a := range t.byICAO {
		if a.ARTCC != "" {
			seen[a.ARTCC] = true
		}
	}
	codes := make([]string, 0, len(seen))
	for artcc := range seen {
		codes = append(codes, artcc)
	}
	return codes
}

// All returns a copy of the full table keyed by ICAO code
func (t *Table) All() map[string]*Airport {
	all := make(map[string]*Airport, len(t.byICAO))
	for icao, a := range t.byICAO {
		all[icao] = a
	}
	return all
}

// Len returns the number of airports loaded
func (t *Table) Len() int {
	return len(t.byICAO)
}
