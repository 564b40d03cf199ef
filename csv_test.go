package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCombinedCSVRoundTrip(t *testing.T) {
	loc := helsinki(t)
	records := []CombinedRecord{
		{
			Timestamp:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			NetKWh:      0.123456789012345,
			CentsPerKWh: 12.55,
			CostEuros:   0.0154938670210999,
		},
		{
			Timestamp:   time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC),
			NetKWh:      -3,
			CentsPerKWh: 5.5,
			CostEuros:   -0.165,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeCombined(&buf, records, loc))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, "timestamp,consumption_kWh,price_cents_per_kWh,cost_euros", lines[0],
		"column names and order are the external contract")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[1], "2024-01-01T02:00:00+02:00,"),
		"timestamps are rendered in the local zone with offset")

	parsed, err := readCombined(&buf)
	require.NoError(t, err)
	require.Len(t, parsed, len(records))
	for i := range records {
		require.True(t, parsed[i].Timestamp.Equal(records[i].Timestamp), "record %d timestamp", i)
		require.Equal(t, records[i].NetKWh, parsed[i].NetKWh, "record %d net", i)
		require.Equal(t, records[i].CentsPerKWh, parsed[i].CentsPerKWh, "record %d price", i)
		require.Equal(t, records[i].CostEuros, parsed[i].CostEuros, "record %d cost", i)
	}
}

func TestWriteCombinedFileCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "processed", "combined_data.csv")

	records := []CombinedRecord{{
		Timestamp:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		NetKWh:      1,
		CentsPerKWh: 10,
		CostEuros:   0.1,
	}}
	require.NoError(t, writeCombinedFile(filename, records, helsinki(t)))

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	require.Contains(t, string(data), "timestamp,consumption_kWh")
}

func TestReadCombinedRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrong header", "time,usage,price,cost\n"},
		{"bad timestamp", "timestamp,consumption_kWh,price_cents_per_kWh,cost_euros\nnot-a-time,1,2,3\n"},
		{"bad number", "timestamp,consumption_kWh,price_cents_per_kWh,cost_euros\n2024-01-01T00:00:00Z,x,2,3\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := readCombined(strings.NewReader(test.input))
			require.Error(t, err)
		})
	}
}
