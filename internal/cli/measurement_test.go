package cli

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/nqrduck/quacksim/internal/measurement"
	"github.com/stretchr/testify/require"
)

func testMeasurement(t *testing.T) *measurement.Measurement {
	t.Helper()
	m, err := measurement.New("test", []float64{8, 9, 10, 11}, []complex128{1, 1i, -1, -1i}, 83.56e6)
	require.NoError(t, err)
	return m
}

func TestValidateDomain(t *testing.T) {
	require.NoError(t, validateDomain(domainTime))
	require.NoError(t, validateDomain(domainFrequency))
	require.Error(t, validateDomain("phase"))
}

func TestWriteMeasurementCSVTimeDomain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMeasurementCSV(&buf, testMeasurement(t), domainTime))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	require.Equal(t, []string{"time_us", "real", "imag"}, records[0])
	require.Equal(t, []string{"8", "1", "0"}, records[1])
	require.Equal(t, []string{"9", "0", "1"}, records[2])
	require.Equal(t, []string{"11", "0", "-1"}, records[4])
}

func TestWriteMeasurementCSVFrequencyDomain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMeasurementCSV(&buf, testMeasurement(t), domainFrequency))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Equal(t, "frequency_khz", records[0][0])
	require.Len(t, records, 5)
}

func TestWriteMeasurementCSVRejectsUnknownDomain(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, writeMeasurementCSV(&buf, testMeasurement(t), "phase"))
	require.Zero(t, buf.Len())
}

func TestWriteMeasurementFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fid.csv")
	require.NoError(t, writeMeasurementFile(path, testMeasurement(t), domainTime))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "time_us,real,imag\n8,1,0\n")
}
