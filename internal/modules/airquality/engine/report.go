package engine

import (
	"airquality-server/internal/modules/airquality/types"
)

// Selection is the current value of every dashboard control.
type Selection struct {
	Year               int
	Station            string
	Granularity        Granularity
	SeriesPollutants   []string
	HourPollutants     []string
	WeekdayPollutants  []string
	CorrelationColumns []string
	WindPollutant      string
}

var (
	DefaultPollutants         = []string{"PM2.5", "PM10"}
	DefaultCorrelationColumns = []string{"PM2.5", "NO2", "TEMP", "PRES", "DEWP"}
	DefaultWindPollutant      = "PM2.5"
)

// DefaultSelection returns the controls' initial state for ds: the first
// year and first station, hourly buckets, and the default column choices.
func DefaultSelection(ds *types.Dataset) Selection {
	sel := Selection{
		Granularity:        Hourly,
		SeriesPollutants:   append([]string(nil), DefaultPollutants...),
		HourPollutants:     append([]string(nil), DefaultPollutants...),
		WeekdayPollutants:  append([]string(nil), DefaultPollutants...),
		CorrelationColumns: append([]string(nil), DefaultCorrelationColumns...),
		WindPollutant:      DefaultWindPollutant,
	}
	if years := ds.Years(); len(years) > 0 {
		sel.Year = years[0]
	}
	if stations := ds.Stations(); len(stations) > 0 {
		sel.Station = stations[0]
	}
	return sel
}

// Report holds every derived table for one Selection.
type Report struct {
	Selection Selection
	ScopeSize int
	Series    types.TimeTable
	Hourly    types.Table
	Weekday   types.Table
	// Correlation is meaningful only when HasCorrelation is true.
	Correlation    types.Matrix
	HasCorrelation bool
	Wind           types.DirectionMeans
}

// Compute derives all chart tables from ds for sel. Correlation uses the
// whole dataset; every other table uses the selected year and station.
func Compute(ds *types.Dataset, sel Selection) Report {
	scope := SelectScope(ds, sel.Year, sel.Station)
	corr, ok := CorrelationMatrix(ds.Readings(), sel.CorrelationColumns)
	return Report{
		Selection:      sel,
		ScopeSize:      len(scope),
		Series:         ResampleSeries(scope, sel.Granularity, sel.SeriesPollutants),
		Hourly:         HourOfDayMeans(scope, sel.HourPollutants),
		Weekday:        DayOfWeekMeans(scope, sel.WeekdayPollutants),
		Correlation:    corr,
		HasCorrelation: ok,
		Wind:           WindDirectionMeans(scope, sel.WindPollutant),
	}
}
