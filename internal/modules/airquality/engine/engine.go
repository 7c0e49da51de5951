// Package engine turns the loaded dataset and the current filter selection
// into the tables each dashboard chart draws. Every function is pure: it
// reads its arguments and never mutates them.
package engine

import (
	"math"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"airquality-server/internal/modules/airquality/types"
)

// SelectScope returns the rows recorded at station during year.
func SelectScope(ds *types.Dataset, year int, station string) []types.Reading {
	var out []types.Reading
	for _, r := range ds.Readings() {
		if r.Year == year && r.Station == station {
			out = append(out, r)
		}
	}
	return out
}

// accumulator collects non-missing values per column for one group.
type accumulator [][]float64

func newAccumulator(columns int) accumulator { return make(accumulator, columns) }

func (a accumulator) add(r *types.Reading, idx []int) {
	for j, ci := range idx {
		if ci < 0 {
			continue
		}
		if v := r.Values[ci]; !types.IsMissing(v) {
			a[j] = append(a[j], v)
		}
	}
}

func (a accumulator) means() []float64 {
	out := make([]float64, len(a))
	for j, vs := range a {
		out[j] = mean(vs)
	}
	return out
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return math.NaN()
	}
	return stat.Mean(vs, nil)
}

// columnIndexes maps column names to Reading.Values indexes; unknown names
// map to -1 and always produce missing means.
func columnIndexes(columns []string) []int {
	idx := make([]int, len(columns))
	for i, c := range columns {
		ci, ok := types.ColumnIndex(c)
		if !ok {
			ci = -1
		}
		idx[i] = ci
	}
	return idx
}

// HourOfDayMeans averages each pollutant per hour of day across all dates.
// The result always has 24 rows, "0" through "23".
func HourOfDayMeans(subset []types.Reading, pollutants []string) types.Table {
	idx := columnIndexes(pollutants)
	groups := make([]accumulator, 24)
	for h := range groups {
		groups[h] = newAccumulator(len(pollutants))
	}
	for i := range subset {
		groups[subset[i].Time.Hour()].add(&subset[i], idx)
	}

	t := types.Table{Columns: append([]string(nil), pollutants...)}
	for h := 0; h < 24; h++ {
		t.Index = append(t.Index, strconv.Itoa(h))
		t.Rows = append(t.Rows, groups[h].means())
	}
	return t
}

// Weekdays is the fixed row order of DayOfWeekMeans.
var Weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// DayOfWeekMeans averages each pollutant per weekday. Rows are always
// Monday through Sunday.
func DayOfWeekMeans(subset []types.Reading, pollutants []string) types.Table {
	idx := columnIndexes(pollutants)
	groups := make(map[time.Weekday]accumulator, 7)
	for _, d := range Weekdays {
		groups[d] = newAccumulator(len(pollutants))
	}
	for i := range subset {
		groups[subset[i].Time.Weekday()].add(&subset[i], idx)
	}

	t := types.Table{Columns: append([]string(nil), pollutants...)}
	for _, d := range Weekdays {
		t.Index = append(t.Index, d.String())
		t.Rows = append(t.Rows, groups[d].means())
	}
	return t
}

// CorrelationMatrix computes pairwise Pearson coefficients between columns
// using pairwise-complete rows. ok is false when columns is empty and there
// is nothing to display.
func CorrelationMatrix(readings []types.Reading, columns []string) (m types.Matrix, ok bool) {
	if len(columns) == 0 {
		return types.Matrix{}, false
	}
	idx := columnIndexes(columns)
	n := len(columns)
	m = types.Matrix{Columns: append([]string(nil), columns...), Values: make([][]float64, n)}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := pairwiseCorrelation(readings, idx[i], idx[j])
			m.Values[i][j] = c
			m.Values[j][i] = c
		}
	}
	return m, true
}

func pairwiseCorrelation(readings []types.Reading, a, b int) float64 {
	if a < 0 || b < 0 {
		return math.NaN()
	}
	var xs, ys []float64
	for i := range readings {
		x, y := readings[i].Values[a], readings[i].Values[b]
		if types.IsMissing(x) || types.IsMissing(y) {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	c := stat.Correlation(xs, ys, nil)
	if math.IsInf(c, 0) {
		return math.NaN()
	}
	return c
}

// WindDirectionMeans averages pollutant per observed wind direction. Rows
// without a direction are dropped. Directions follow compass order (N, NNE,
// ... NNW); labels outside the 16-point set follow in order of first
// appearance.
func WindDirectionMeans(subset []types.Reading, pollutant string) types.DirectionMeans {
	ci, known := types.ColumnIndex(pollutant)
	groups := make(map[string][]float64)
	var extra []string
	for i := range subset {
		wd := subset[i].WindDir
		if wd == "" {
			continue
		}
		vs, seen := groups[wd]
		if !seen {
			vs = []float64{}
			if compassRank(wd) < 0 {
				extra = append(extra, wd)
			}
		}
		if known {
			if v := subset[i].Values[ci]; !types.IsMissing(v) {
				vs = append(vs, v)
			}
		}
		groups[wd] = vs
	}

	out := types.DirectionMeans{Pollutant: pollutant}
	for _, wd := range append(append([]string(nil), types.CompassPoints...), extra...) {
		vs, ok := groups[wd]
		if !ok {
			continue
		}
		out.Directions = append(out.Directions, wd)
		out.Means = append(out.Means, mean(vs))
	}
	return out
}

func compassRank(wd string) int {
	for i, p := range types.CompassPoints {
		if p == wd {
			return i
		}
	}
	return -1
}
