package airports

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/vatsim-board/pkg/logger"
)

const testCSV = `icao,iata,name,city,country,latitude,longitude,elevation,artcc,tower_type
KSFO,SFO,San Francisco International Airport,San Francisco,US,37.6188056,-122.3754167,13,ZOA,ATCT
KOAK,OAK,Metropolitan Oakland International Airport,Oakland,US,37.7212597,-122.2207428,9,ZOA,ATCT
KLAX,LAX,Los Angeles International Airport,Los Angeles,US,33.9424964,-118.4080486,125,ZLA,ATCT
KHAF,HAF,Half Moon Bay Airport,Half Moon Bay,US,37.5134167,-122.5011111,66,ZOA,NON-ATCT
CYYZ,YYZ,Toronto Pearson International Airport,Toronto,CA,43.6772003,-79.6305999,569,,ATCT
BADROW,,,,,not-a-number,0,0,,
`

func writeTestTable(t *testing.T) *Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "airports.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0644))
	table, err := LoadTable(path, logger.NewNop())
	require.NoError(t, err)
	return table
}

func TestLoadTable(t *testing.T) {
	table := writeTestTable(t)
	assert.Equal(t, 5, table.Len()) // BADROW skipped

	sfo, ok := table.Get("KSFO")
	require.True(t, ok)
	assert.InDelta(t, 37.6188056, sfo.Latitude, 1e-6)
	assert.Equal(t, "ZOA", sfo.ARTCC)
	assert.True(t, sfo.Towered())

	haf, ok := table.Get("KHAF")
	require.True(t, ok)
	assert.False(t, haf.Towered())
}

func TestResolveKPrefix(t *testing.T) {
	table := writeTestTable(t)

	a, ok := table.Resolve("SFO")
	require.True(t, ok)
	assert.Equal(t, "KSFO", a.ICAO)

	a, ok = table.Resolve("klax")
	require.True(t, ok)
	assert.Equal(t, "KLAX", a.ICAO)

	_, ok = table.Resolve("ZZZZ")
	assert.False(t, ok)
}

func TestPrettyName(t *testing.T) {
	table := writeTestTable(t)

	assert.Equal(t, "San Francisco International Airport", table.PrettyName("KSFO"))
	assert.Equal(t, "EGLL", table.PrettyName("EGLL"))
}

func TestByARTCCAndCountry(t *testing.T) {
	table := writeTestTable(t)

	zoa := table.ByARTCC("ZOA")
	assert.ElementsMatch(t, []string{"KSFO", "KOAK", "KHAF"}, zoa)

	ca := table.ByCountry("CA")
	assert.ElementsMatch(t, []string{"CYYZ"}, ca)

	assert.ElementsMatch(t, []string{"ZOA", "ZLA"}, table.ARTCCs())
}
