package views

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"airquality-server/internal/modules/airquality/charts"
	"airquality-server/internal/modules/airquality/engine"
	"airquality-server/internal/modules/airquality/types"
)

const (
	placeholderNothing     = "Nothing to display"
	placeholderCorrelation = "Select columns to view correlation"
)

// Option is one entry of a select or multiselect control.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Panel is one chart section: either an inline SVG or a placeholder text.
type Panel struct {
	Heading     string
	SVG         template.HTML
	Placeholder string
}

// DashboardData is the view model for the dashboard page.
type DashboardData struct {
	Station       string
	Year          int
	TotalReadings string
	ScopeReadings string

	Years         []Option
	Stations      []Option
	Granularities []Option

	SeriesPollutants   []Option
	HourPollutants     []Option
	WeekdayPollutants  []Option
	CorrelationColumns []Option
	WindPollutants     []Option

	Series      Panel
	Hourly      Panel
	Weekday     Panel
	Correlation Panel
	Wind        Panel

	// ExportURL downloads the current selection as a workbook.
	ExportURL template.URL
}

var printer = message.NewPrinter(language.English)

// FormatCount renders n with thousands separators, e.g. 420,768.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// BuildDashboard renders every chart of rep and assembles the page model.
// Tables with nothing to plot become placeholders.
func BuildDashboard(ds *types.Dataset, rep engine.Report, query string) (*DashboardData, error) {
	sel := rep.Selection
	data := &DashboardData{
		Station:            sel.Station,
		Year:               sel.Year,
		TotalReadings:      FormatCount(ds.Len()),
		ScopeReadings:      FormatCount(rep.ScopeSize),
		Years:              yearOptions(ds.Years(), sel.Year),
		Stations:           singleOptions(ds.Stations(), sel.Station),
		Granularities:      granularityOptions(sel.Granularity),
		SeriesPollutants:   multiOptions(types.Pollutants, sel.SeriesPollutants),
		HourPollutants:     multiOptions(types.Pollutants, sel.HourPollutants),
		WeekdayPollutants:  multiOptions(types.Pollutants, sel.WeekdayPollutants),
		CorrelationColumns: multiOptions(types.NumericColumns, sel.CorrelationColumns),
		WindPollutants:     singleOptions(types.Pollutants, sel.WindPollutant),
		ExportURL:          exportURL(query),
	}

	var err error
	data.Series, err = renderPanel(
		fmt.Sprintf("Pollutant Levels Over Time at %s in %d", sel.Station, sel.Year),
		placeholderNothing,
		func(b *bytes.Buffer) error {
			return charts.TimeSeries(b, rep.Series, fmt.Sprintf("Pollutant Levels Over Time (%s Data)", sel.Granularity))
		})
	if err != nil {
		return nil, err
	}

	data.Hourly, err = renderPanel(
		fmt.Sprintf("Pollutant Levels Throughout the Hours of Day at %s Station", sel.Station),
		placeholderNothing,
		func(b *bytes.Buffer) error {
			return charts.HourOfDay(b, rep.Hourly, fmt.Sprintf("Pollutant Levels Throughout the Day at %s", sel.Station))
		})
	if err != nil {
		return nil, err
	}

	data.Weekday, err = renderPanel(
		fmt.Sprintf("Average Pollutant Levels by Day of the Week at %s", sel.Station),
		placeholderNothing,
		func(b *bytes.Buffer) error {
			return charts.DayOfWeek(b, rep.Weekday, fmt.Sprintf("Average Pollutant Levels by Day of the Week at %s station", sel.Station))
		})
	if err != nil {
		return nil, err
	}

	data.Correlation, err = renderPanel(
		"Correlation Matrix of Air Quality Features",
		placeholderCorrelation,
		func(b *bytes.Buffer) error {
			if !rep.HasCorrelation {
				return charts.ErrNothingToDisplay
			}
			return charts.Heatmap(b, rep.Correlation)
		})
	if err != nil {
		return nil, err
	}

	data.Wind, err = renderPanel(
		"Wind Direction Analysis",
		placeholderNothing,
		func(b *bytes.Buffer) error { return charts.WindRose(b, rep.Wind) })
	if err != nil {
		return nil, err
	}

	return data, nil
}

func renderPanel(heading, placeholder string, draw func(*bytes.Buffer) error) (Panel, error) {
	var buf bytes.Buffer
	err := draw(&buf)
	if errors.Is(err, charts.ErrNothingToDisplay) {
		return Panel{Heading: heading, Placeholder: placeholder}, nil
	}
	if err != nil {
		return Panel{}, fmt.Errorf("render %q: %w", heading, err)
	}
	// SVG is produced by the charts package from validated labels only.
	return Panel{Heading: heading, SVG: template.HTML(buf.String())}, nil
}

func yearOptions(years []int, selected int) []Option {
	out := make([]Option, 0, len(years))
	for _, y := range years {
		s := strconv.Itoa(y)
		out = append(out, Option{Value: s, Label: s, Selected: y == selected})
	}
	return out
}

func singleOptions(values []string, selected string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: v, Label: v, Selected: v == selected})
	}
	return out
}

func multiOptions(values, selected []string) []Option {
	chosen := make(map[string]bool, len(selected))
	for _, s := range selected {
		chosen[s] = true
	}
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: v, Label: v, Selected: chosen[v]})
	}
	return out
}

func granularityOptions(selected engine.Granularity) []Option {
	out := make([]Option, 0, len(engine.Granularities))
	for _, g := range engine.Granularities {
		out = append(out, Option{Value: string(g), Label: string(g), Selected: g == selected})
	}
	return out
}

func exportURL(query string) template.URL {
	if query == "" {
		return "/api/v1/export.xlsx"
	}
	// query comes from url.Values.Encode and is already escaped.
	return template.URL("/api/v1/export.xlsx?" + query)
}
