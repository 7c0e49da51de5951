// Package export writes a dashboard report as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"airquality-server/internal/modules/airquality/engine"
	"airquality-server/internal/modules/airquality/types"
)

// Sheet names, in workbook order.
const (
	SheetTimeSeries    = "TimeSeries"
	SheetHourOfDay     = "HourOfDay"
	SheetDayOfWeek     = "DayOfWeek"
	SheetCorrelation   = "Correlation"
	SheetWindDirection = "WindDirection"
)

const bucketLayout = "2006-01-02 15:04:05"

// WriteReport writes every table of r to w, one sheet per chart. Missing
// values are left as empty cells.
func WriteReport(w io.Writer, r engine.Report) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetTimeSeries); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetHourOfDay, SheetDayOfWeek, SheetCorrelation, SheetWindDirection} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	if err := writeTimeTable(f, SheetTimeSeries, r.Series); err != nil {
		return err
	}
	if err := writeTable(f, SheetHourOfDay, "hour", r.Hourly); err != nil {
		return err
	}
	if err := writeTable(f, SheetDayOfWeek, "weekday", r.Weekday); err != nil {
		return err
	}
	if r.HasCorrelation {
		if err := writeMatrix(f, SheetCorrelation, r.Correlation); err != nil {
			return err
		}
	} else if err := f.SetCellValue(SheetCorrelation, "A1", "nothing to display"); err != nil {
		return err
	}
	if err := writeDirections(f, SheetWindDirection, r.Wind); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}

func headerRow(first string, columns []string) []any {
	out := make([]any, 0, len(columns)+1)
	out = append(out, first)
	for _, c := range columns {
		out = append(out, c)
	}
	return out
}

// dataRow turns missing values into nil so the cell stays empty.
func dataRow(label any, vals []float64) []any {
	out := make([]any, 0, len(vals)+1)
	out = append(out, label)
	for _, v := range vals {
		if types.IsMissing(v) {
			out = append(out, nil)
			continue
		}
		out = append(out, v)
	}
	return out
}

func writeTimeTable(f *excelize.File, sheet string, t types.TimeTable) error {
	if err := setRow(f, sheet, 1, headerRow("datetime", t.Columns)); err != nil {
		return err
	}
	for i, b := range t.Buckets {
		if err := setRow(f, sheet, i+2, dataRow(b.Format(bucketLayout), t.Rows[i])); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(f *excelize.File, sheet, indexName string, t types.Table) error {
	if err := setRow(f, sheet, 1, headerRow(indexName, t.Columns)); err != nil {
		return err
	}
	for i, label := range t.Index {
		if err := setRow(f, sheet, i+2, dataRow(label, t.Rows[i])); err != nil {
			return err
		}
	}
	return nil
}

func writeMatrix(f *excelize.File, sheet string, m types.Matrix) error {
	if err := setRow(f, sheet, 1, headerRow("", m.Columns)); err != nil {
		return err
	}
	for i, c := range m.Columns {
		if err := setRow(f, sheet, i+2, dataRow(c, m.Values[i])); err != nil {
			return err
		}
	}
	return nil
}

func writeDirections(f *excelize.File, sheet string, d types.DirectionMeans) error {
	if err := setRow(f, sheet, 1, []any{"wd", d.Pollutant}); err != nil {
		return err
	}
	for i, dir := range d.Directions {
		if err := setRow(f, sheet, i+2, dataRow(dir, d.Means[i:i+1])); err != nil {
			return err
		}
	}
	return nil
}
