package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteCombinedXLSX(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "combined.xlsx")
	records := []CombinedRecord{
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), NetKWh: 1.5, CentsPerKWh: 10, CostEuros: 0.15},
		{Timestamp: time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), NetKWh: -2, CentsPerKWh: 10, CostEuros: -0.2},
	}

	require.NoError(t, writeCombinedXLSX(filename, records, helsinki(t)))

	f, err := excelize.OpenFile(filename)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("combined")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, combinedHeader, rows[0])
	require.Equal(t, "2024-01-01T02:00:00+02:00", rows[1][0])
	require.Equal(t, "1.5", rows[1][1])
	require.Equal(t, "-2", rows[2][1])
}
