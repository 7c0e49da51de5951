package controller

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"airquality-server/internal/modules/airquality/engine"
	"airquality-server/internal/modules/airquality/types"
)

// Query parameter names of the dashboard controls.
const (
	paramYear             = "year"
	paramStation          = "station"
	paramResample         = "resample"
	paramPollutant        = "pollutant"
	paramHourPollutant    = "hour_pollutant"
	paramWeekdayPollutant = "weekday_pollutant"
	paramCorrColumn       = "corr_column"
	paramWindPollutant    = "wind_pollutant"
	// paramApplied marks a submitted form, so an absent multiselect means
	// "cleared" rather than "use the default".
	paramApplied = "applied"
)

// parseSelection resolves query parameters into a Selection, starting from
// the dataset defaults. In strict mode any invalid value is an error. In
// lenient mode it is logged and skipped, so a bad year or station keeps the
// default and a multiselect keeps its valid entries.
func parseSelection(ds *types.Dataset, q url.Values, strict bool) (engine.Selection, error) {
	sel := engine.DefaultSelection(ds)
	applied := q.Get(paramApplied) == "1"

	fail := func(err error) error {
		if strict {
			return err
		}
		slog.Warn("invalid selection, using default", "error", err)
		return nil
	}

	if s := strings.TrimSpace(q.Get(paramYear)); s != "" {
		year, err := strconv.Atoi(s)
		switch {
		case err != nil:
			if e := fail(fmt.Errorf("invalid '%s' %q (expected integer)", paramYear, s)); e != nil {
				return engine.Selection{}, e
			}
		case !ds.HasYear(year):
			if e := fail(fmt.Errorf("unknown '%s' %d", paramYear, year)); e != nil {
				return engine.Selection{}, e
			}
		default:
			sel.Year = year
		}
	}

	if s := strings.TrimSpace(q.Get(paramStation)); s != "" {
		if ds.HasStation(s) {
			sel.Station = s
		} else if e := fail(fmt.Errorf("unknown '%s' %q", paramStation, s)); e != nil {
			return engine.Selection{}, e
		}
	}

	if s := strings.TrimSpace(q.Get(paramResample)); s != "" {
		g, err := engine.ParseGranularity(s)
		if err == nil {
			sel.Granularity = g
		} else if e := fail(err); e != nil {
			return engine.Selection{}, e
		}
	}

	multi := []struct {
		param string
		dest  *[]string
		allow func(string) bool
	}{
		{paramPollutant, &sel.SeriesPollutants, types.IsPollutant},
		{paramHourPollutant, &sel.HourPollutants, types.IsPollutant},
		{paramWeekdayPollutant, &sel.WeekdayPollutants, types.IsPollutant},
		{paramCorrColumn, &sel.CorrelationColumns, isNumericColumn},
	}
	for _, m := range multi {
		values, present := q[m.param]
		if !present && !applied {
			continue
		}
		picked, err := pickColumns(m.param, values, m.allow)
		if err != nil {
			if e := fail(err); e != nil {
				return engine.Selection{}, e
			}
		}
		*m.dest = picked
	}

	if s := strings.TrimSpace(q.Get(paramWindPollutant)); s != "" {
		if types.IsPollutant(s) {
			sel.WindPollutant = s
		} else if e := fail(fmt.Errorf("unknown '%s' %q", paramWindPollutant, s)); e != nil {
			return engine.Selection{}, e
		}
	}

	return sel, nil
}

// pickColumns keeps the allowed values in request order without duplicates.
// Blank values are ignored so "pollutant=" clears a multiselect. The first
// disallowed value is reported in err alongside the allowed remainder.
func pickColumns(param string, values []string, allow func(string) bool) ([]string, error) {
	out := []string{}
	seen := make(map[string]bool, len(values))
	var err error
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		if !allow(v) {
			if err == nil {
				err = fmt.Errorf("unknown '%s' %q", param, v)
			}
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, err
}

func isNumericColumn(name string) bool {
	_, ok := types.ColumnIndex(name)
	return ok
}

// encodeSelection is the canonical query string for sel, as submitted by
// the dashboard form.
func encodeSelection(sel engine.Selection) string {
	q := url.Values{}
	q.Set(paramApplied, "1")
	q.Set(paramYear, strconv.Itoa(sel.Year))
	q.Set(paramStation, sel.Station)
	q.Set(paramResample, string(sel.Granularity))
	q.Set(paramWindPollutant, sel.WindPollutant)
	for _, p := range sel.SeriesPollutants {
		q.Add(paramPollutant, p)
	}
	for _, p := range sel.HourPollutants {
		q.Add(paramHourPollutant, p)
	}
	for _, p := range sel.WeekdayPollutants {
		q.Add(paramWeekdayPollutant, p)
	}
	for _, c := range sel.CorrelationColumns {
		q.Add(paramCorrColumn, c)
	}
	return q.Encode()
}

func exportFilename(sel engine.Selection) string {
	return fmt.Sprintf("airquality-%s-%d.xlsx", strings.ToLower(sel.Station), sel.Year)
}
