package types

import (
	"math"
	"time"
)

// Pollutant columns in display order.
var Pollutants = []string{"PM2.5", "PM10", "SO2", "NO2", "CO", "O3"}

// Meteorology columns in display order.
var Meteorology = []string{"TEMP", "PRES", "DEWP", "RAIN", "WSPM"}

// NumMeasurements is len(NumericColumns).
const NumMeasurements = 11

// NumericColumns is every measurement a Reading carries, pollutants first.
// The position of a name in this slice is its index into Reading.Values.
var NumericColumns = append(append([]string{}, Pollutants...), Meteorology...)

// Stations is the closed set of monitoring sites in the dataset.
var Stations = []string{
	"Aotizhongxin", "Changping", "Dingling", "Dongsi",
	"Guanyuan", "Gucheng", "Huairou", "Nongzhanguan",
	"Shunyi", "Tiantan", "Wanliu", "Wanshouxigong",
}

// CompassPoints are the 16-point wind directions, clockwise from north.
var CompassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

var columnIndex = func() map[string]int {
	m := make(map[string]int, len(NumericColumns))
	for i, c := range NumericColumns {
		m[c] = i
	}
	return m
}()

// ColumnIndex returns the Reading.Values index of a measurement column.
func ColumnIndex(name string) (int, bool) {
	i, ok := columnIndex[name]
	return i, ok
}

// IsPollutant reports whether name is one of the six pollutant columns.
func IsPollutant(name string) bool {
	i, ok := columnIndex[name]
	return ok && i < len(Pollutants)
}

// IsKnownStation reports whether name belongs to the fixed station set.
func IsKnownStation(name string) bool {
	for _, s := range Stations {
		if s == name {
			return true
		}
	}
	return false
}

// Missing is the in-memory representation of an absent measurement.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v represents an absent measurement.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Reading is one hourly observation at one station.
type Reading struct {
	Time    time.Time
	Station string
	Year    int
	WindDir string
	// Values is indexed like NumericColumns; NaN marks a missing value.
	Values [NumMeasurements]float64
}

// Value returns the named measurement, or NaN when it is missing or the
// column is unknown.
func (r *Reading) Value(column string) float64 {
	i, ok := columnIndex[column]
	if !ok {
		return math.NaN()
	}
	return r.Values[i]
}

// NewReading returns a Reading with every measurement missing.
func NewReading(station string, ts time.Time, windDir string) Reading {
	r := Reading{Time: ts, Station: station, Year: ts.Year(), WindDir: windDir}
	for i := range r.Values {
		r.Values[i] = math.NaN()
	}
	return r
}
