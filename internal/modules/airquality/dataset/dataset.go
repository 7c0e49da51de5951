// Package dataset loads the merged air-quality CSV into an immutable
// types.Dataset.
package dataset

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"airquality-server/internal/modules/airquality/types"
)

const (
	colDatetime = "datetime"
	colStation  = "station"
	colYear     = "year"
	colWindDir  = "wd"
)

// nanValues are the cell spellings treated as a missing measurement.
var nanValues = []string{"", "NA", "NaN", "nan", "<nil>"}

// datetimeLayouts are tried in order when parsing the datetime column.
var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
}

// LoadCSV reads the dataset file at path.
func LoadCSV(path string) (*types.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("close dataset file", "path", path, "error", closeErr)
		}
	}()

	start := time.Now()
	ds, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	slog.Info("dataset loaded",
		"path", path,
		"readings", ds.Len(),
		"years", ds.Years(),
		"stations", len(ds.Stations()),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ds, nil
}

// ReadCSV parses a dataset with a header row. Columns outside the data
// model (No, month, day, hour, ...) are ignored.
func ReadCSV(r io.Reader) (*types.Dataset, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read csv: %w", df.Err)
	}

	if err := checkHeader(df.Names()); err != nil {
		return nil, err
	}

	n := df.Nrow()
	datetimes := df.Col(colDatetime).Records()
	stations := df.Col(colStation).Records()
	windDirs := df.Col(colWindDir).Records()

	var years []int
	if hasColumn(df.Names(), colYear) {
		var err error
		years, err = df.Col(colYear).Int()
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", colYear, err)
		}
	}

	values := make([][]float64, len(types.NumericColumns))
	for j, name := range types.NumericColumns {
		col := df.Col(name)
		raw := col.Records()
		vals := col.Float()
		for i, v := range vals {
			if (types.IsMissing(v) && !isNaNValue(raw[i])) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("line %d: column %s: invalid number %q", i+2, name, raw[i])
			}
		}
		values[j] = vals
	}

	readings := make([]types.Reading, n)
	for i := 0; i < n; i++ {
		ts, err := ParseDatetime(datetimes[i])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		wd := windDirs[i]
		if isNaNValue(wd) {
			wd = ""
		}
		rd := types.NewReading(stations[i], ts, wd)
		if years != nil && years[i] != ts.Year() {
			return nil, fmt.Errorf("line %d: year %d does not match datetime %q", i+2, years[i], datetimes[i])
		}
		for j := range values {
			rd.Values[j] = values[j][i]
		}
		readings[i] = rd
	}

	ds, err := types.NewDataset(readings)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return ds, nil
}

// ParseDatetime parses a naive timestamp as UTC wall-clock time.
func ParseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse datetime %q: unsupported format", s)
}

// RequiredColumns are the header names every dataset must carry. The year
// column is optional and derived from datetime when absent.
func RequiredColumns() []string {
	cols := []string{colDatetime, colStation, colWindDir}
	return append(cols, types.NumericColumns...)
}

func checkHeader(names []string) error {
	var missing []string
	for _, c := range RequiredColumns() {
		if !hasColumn(names, c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func hasColumn(names []string, c string) bool {
	for _, n := range names {
		if n == c {
			return true
		}
	}
	return false
}

func isNaNValue(s string) bool {
	for _, v := range nanValues {
		if s == v {
			return true
		}
	}
	return false
}
