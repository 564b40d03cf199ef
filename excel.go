package main

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// writeCombinedXLSX writes the record set to an Excel workbook with the same
// columns as the CSV contract and the header row frozen.
func writeCombinedXLSX(filename string, records []CombinedRecord, loc *time.Location) error {
	f := excelize.NewFile()
	sheet := "combined"
	f.SetSheetName("Sheet1", sheet)

	for i, name := range combinedHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}

	for i, r := range records {
		row := i + 2
		cells := []struct {
			column string
			value  any
		}{
			{"A", r.Timestamp.In(loc).Format(time.RFC3339)},
			{"B", r.NetKWh},
			{"C", r.CentsPerKWh},
			{"D", r.CostEuros},
		}
		for _, c := range cells {
			if err := f.SetCellValue(sheet, fmt.Sprintf("%s%d", c.column, row), c.value); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	return f.SaveAs(filename)
}
