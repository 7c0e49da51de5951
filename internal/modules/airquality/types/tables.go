package types

import (
	"encoding/json"
	"time"
)

// TimeTable is a time-indexed table of per-bucket means.
type TimeTable struct {
	Granularity string
	Columns     []string
	// Buckets holds the start of each bucket, ascending.
	Buckets []time.Time
	// Rows[i][j] is the mean of Columns[j] in Buckets[i]; NaN when missing.
	Rows [][]float64
}

func (t TimeTable) IsEmpty() bool { return len(t.Columns) == 0 || len(t.Buckets) == 0 }

func (t TimeTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Granularity string       `json:"granularity"`
		Columns     []string     `json:"columns"`
		Buckets     []time.Time  `json:"buckets"`
		Rows        [][]*float64 `json:"rows"`
	}{t.Granularity, nonNil(t.Columns), nonNilTimes(t.Buckets), nullableRows(t.Rows)})
}

// Table is a label-indexed table of means, e.g. one row per hour of day.
type Table struct {
	Columns []string
	Index   []string
	Rows    [][]float64
}

func (t Table) IsEmpty() bool { return len(t.Columns) == 0 || len(t.Index) == 0 }

func (t Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Index   []string     `json:"index"`
		Rows    [][]*float64 `json:"rows"`
	}{nonNil(t.Columns), nonNil(t.Index), nullableRows(t.Rows)})
}

// Matrix is a square table; Values[i][j] relates Columns[i] and Columns[j].
type Matrix struct {
	Columns []string
	Values  [][]float64
}

func (m Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}{nonNil(m.Columns), nullableRows(m.Values)})
}

// DirectionMeans is the mean of one pollutant per wind direction.
type DirectionMeans struct {
	Pollutant  string
	Directions []string
	Means      []float64
}

func (d DirectionMeans) IsEmpty() bool { return len(d.Directions) == 0 }

func (d DirectionMeans) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Pollutant  string     `json:"pollutant"`
		Directions []string   `json:"directions"`
		Means      []*float64 `json:"means"`
	}{d.Pollutant, nonNil(d.Directions), nullable(d.Means)})
}

func nullable(vs []float64) []*float64 {
	out := make([]*float64, len(vs))
	for i := range vs {
		if !IsMissing(vs[i]) {
			v := vs[i]
			out[i] = &v
		}
	}
	return out
}

func nullableRows(rows [][]float64) [][]*float64 {
	out := make([][]*float64, len(rows))
	for i, r := range rows {
		out[i] = nullable(r)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilTimes(s []time.Time) []time.Time {
	if s == nil {
		return []time.Time{}
	}
	return s
}
