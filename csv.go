package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Column names and order are the external contract consumed by downstream
// sinks; changing them is a version bump.
var combinedHeader = []string{"timestamp", "consumption_kWh", "price_cents_per_kWh", "cost_euros"}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// writeCombined writes the record set as CSV. Timestamps are rendered in loc
// with their offset so the file stands alone.
func writeCombined(w io.Writer, records []CombinedRecord, loc *time.Location) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(combinedHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Timestamp.In(loc).Format(time.RFC3339),
			formatValue(r.NetKWh),
			formatValue(r.CentsPerKWh),
			formatValue(r.CostEuros),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// writeCombinedFile writes the CSV to filename, creating parent directories.
func writeCombinedFile(filename string, records []CombinedRecord, loc *time.Location) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return writeCombined(file, records, loc)
}

// readCombined parses a combined CSV back into records. The margin column is
// not part of the file contract, so MarginCents comes back zero; the four
// contract columns round-trip exactly.
func readCombined(r io.Reader) ([]CombinedRecord, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading combined CSV header: %w", err)
	}
	if len(header) != len(combinedHeader) {
		return nil, fmt.Errorf("unexpected combined CSV header %v", header)
	}
	for i, name := range combinedHeader {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected combined CSV header %v", header)
		}
	}

	var records []CombinedRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad timestamp %q: %w", len(records)+2, row[0], err)
		}
		rec := CombinedRecord{Timestamp: ts}
		for i, dst := range []*float64{&rec.NetKWh, &rec.CentsPerKWh, &rec.CostEuros} {
			v, err := strconv.ParseFloat(row[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad value %q: %w", len(records)+2, row[i+1], err)
			}
			*dst = v
		}
		records = append(records, rec)
	}

	return records, nil
}
