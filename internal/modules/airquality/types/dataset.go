package types

import (
	"fmt"
	"math"
	"sort"
)

// Dataset is the full reading set, loaded once at startup and shared
// read-only for the life of the process.
type Dataset struct {
	readings []Reading
	years    []int
	stations []string
}

// NewDataset validates readings and takes ownership of the slice.
func NewDataset(readings []Reading) (*Dataset, error) {
	seenYear := make(map[int]bool)
	seenStation := make(map[string]bool)
	var years []int
	var stations []string

	for i := range readings {
		r := &readings[i]
		if r.Time.IsZero() {
			return nil, fmt.Errorf("reading %d: missing datetime", i)
		}
		if r.Year != r.Time.Year() {
			return nil, fmt.Errorf("reading %d: year %d does not match datetime %s", i, r.Year, r.Time.Format("2006-01-02 15:04:05"))
		}
		if !IsKnownStation(r.Station) {
			return nil, fmt.Errorf("reading %d: unknown station %q", i, r.Station)
		}
		for j, v := range r.Values {
			if math.IsInf(v, 0) {
				return nil, fmt.Errorf("reading %d: non-finite %s %v", i, NumericColumns[j], v)
			}
		}
		for j, p := range Pollutants {
			if v := r.Values[j]; !IsMissing(v) && v < 0 {
				return nil, fmt.Errorf("reading %d: negative %s %v", i, p, v)
			}
		}
		if !seenYear[r.Year] {
			seenYear[r.Year] = true
			years = append(years, r.Year)
		}
		if !seenStation[r.Station] {
			seenStation[r.Station] = true
			stations = append(stations, r.Station)
		}
	}
	sort.Ints(years)

	return &Dataset{readings: readings, years: years, stations: stations}, nil
}

// Readings returns the underlying rows. The slice is shared; callers must
// treat it as read-only.
func (d *Dataset) Readings() []Reading { return d.readings }

func (d *Dataset) Len() int { return len(d.readings) }

// Years returns the distinct years in ascending order.
func (d *Dataset) Years() []int { return append([]int(nil), d.years...) }

// Stations returns the distinct stations in order of first appearance.
func (d *Dataset) Stations() []string { return append([]string(nil), d.stations...) }

func (d *Dataset) HasYear(year int) bool {
	for _, y := range d.years {
		if y == year {
			return true
		}
	}
	return false
}

func (d *Dataset) HasStation(station string) bool {
	for _, s := range d.stations {
		if s == station {
			return true
		}
	}
	return false
}
