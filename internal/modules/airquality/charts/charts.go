// Package charts renders the dashboard tables as SVG.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"airquality-server/internal/modules/airquality/types"
)

// ErrNothingToDisplay is returned when a table has no plottable value.
// Callers show a placeholder instead of a chart.
var ErrNothingToDisplay = errors.New("nothing to display")

const (
	Width  = 960
	Height = 400
)

// magma, sampled at evenly spaced stops and skipping the near-black end.
var palette = []drawing.Color{
	drawing.ColorFromHex("3b0f70"),
	drawing.ColorFromHex("8c2981"),
	drawing.ColorFromHex("de4968"),
	drawing.ColorFromHex("fe9f6d"),
	drawing.ColorFromHex("51127c"),
	drawing.ColorFromHex("b73779"),
	drawing.ColorFromHex("f7705c"),
	drawing.ColorFromHex("fecf92"),
}

func seriesColor(i int) drawing.Color { return palette[i%len(palette)] }

func lineStyle(i, points int) chart.Style {
	s := chart.Style{
		StrokeColor: seriesColor(i),
		StrokeWidth: 1.5,
	}
	// Dense hourly series read better without markers.
	if points <= 60 {
		s.DotColor = seriesColor(i)
		s.DotWidth = 2.5
	}
	return s
}

// TimeSeries renders a resampled table as one line per pollutant.
func TimeSeries(w io.Writer, t types.TimeTable, title string) error {
	if t.IsEmpty() {
		return ErrNothingToDisplay
	}

	var series []chart.Series
	for j, col := range t.Columns {
		var xs []time.Time
		var ys []float64
		for i, b := range t.Buckets {
			if v := t.Rows[i][j]; !types.IsMissing(v) {
				xs = append(xs, b)
				ys = append(ys, v)
			}
		}
		if len(xs) == 0 {
			continue
		}
		series = append(series, chart.TimeSeries{Name: col, XValues: xs, YValues: ys, Style: lineStyle(j, len(xs))})
	}
	if len(series) == 0 {
		return ErrNothingToDisplay
	}

	lo, hi, _ := valueRange(t.Rows...)
	first, last := t.Buckets[0], t.Buckets[len(t.Buckets)-1]
	if !last.After(first) {
		first, last = first.Add(-time.Hour), last.Add(time.Hour)
	}

	c := chart.Chart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           "Datetime",
			ValueFormatter: timeFormatter(t.Granularity),
			Range:          &chart.ContinuousRange{Min: chart.TimeToFloat64(first), Max: chart.TimeToFloat64(last)},
		},
		YAxis: chart.YAxis{
			Name:  "Concentration",
			Range: &chart.ContinuousRange{Min: math.Min(0, lo), Max: hi},
		},
		Series: series,
	}
	c.Elements = []chart.Renderable{chart.LegendThin(&c)}
	return c.Render(chart.SVG, w)
}

func timeFormatter(granularity string) chart.ValueFormatter {
	switch granularity {
	case "Hourly":
		return chart.TimeValueFormatterWithFormat("2006-01-02 15h")
	case "Monthly":
		return chart.TimeValueFormatterWithFormat("2006-01")
	default:
		return chart.TimeValueFormatterWithFormat("2006-01-02")
	}
}

// HourOfDay renders 24 hourly means as lines with markers.
func HourOfDay(w io.Writer, t types.Table, title string) error {
	if t.IsEmpty() {
		return ErrNothingToDisplay
	}

	var series []chart.Series
	for j, col := range t.Columns {
		var xs, ys []float64
		for i, label := range t.Index {
			v := t.Rows[i][j]
			if types.IsMissing(v) {
				continue
			}
			h, err := strconv.Atoi(label)
			if err != nil {
				return fmt.Errorf("hour label %q: %w", label, err)
			}
			xs = append(xs, float64(h))
			ys = append(ys, v)
		}
		if len(xs) == 0 {
			continue
		}
		s := lineStyle(j, len(xs))
		s.DotWidth = 3
		s.DotColor = seriesColor(j)
		series = append(series, chart.ContinuousSeries{Name: col, XValues: xs, YValues: ys, Style: s})
	}
	if len(series) == 0 {
		return ErrNothingToDisplay
	}

	ticks := make([]chart.Tick, 0, 24)
	for h := 0; h < 24; h++ {
		ticks = append(ticks, chart.Tick{Value: float64(h), Label: strconv.Itoa(h)})
	}
	lo, hi, _ := valueRange(t.Rows...)

	c := chart.Chart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "Hour of the Day", Ticks: ticks},
		YAxis: chart.YAxis{
			Name:  "Concentration",
			Range: &chart.ContinuousRange{Min: math.Min(0, lo), Max: hi},
		},
		Series: series,
	}
	c.Elements = []chart.Renderable{chart.LegendThin(&c)}
	return c.Render(chart.SVG, w)
}

// DayOfWeek renders weekday means as grouped bars, one group per day.
func DayOfWeek(w io.Writer, t types.Table, title string) error {
	if t.IsEmpty() {
		return ErrNothingToDisplay
	}
	lo, hi, ok := valueRange(t.Rows...)
	if !ok {
		return ErrNothingToDisplay
	}
	lo = math.Min(0, lo)

	cv, err := newCanvas(Width, Height, title)
	if err != nil {
		return err
	}

	plot := chart.Box{Top: 60, Left: 70, Right: Width - 20, Bottom: Height - 50}
	ticks := niceTicks(lo, hi, 5)
	hi = math.Max(hi, ticks[len(ticks)-1])
	lo = math.Min(lo, ticks[0])
	yOf := func(v float64) int {
		return plot.Bottom - int(float64(plot.Height())*(v-lo)/(hi-lo))
	}

	for _, tv := range ticks {
		y := yOf(tv)
		cv.line(plot.Left, y, plot.Right, y, gridColor)
		cv.text(strconv.FormatFloat(tv, 'f', -1, 64), plot.Left-6, y+4, 9, textColor, alignRight)
	}
	cv.line(plot.Left, plot.Bottom, plot.Right, plot.Bottom, axisColor)

	groupWidth := float64(plot.Width()) / float64(len(t.Index))
	barWidth := groupWidth * 0.8 / float64(len(t.Columns))
	zero := yOf(math.Max(lo, 0))
	for i, day := range t.Index {
		gx := float64(plot.Left) + groupWidth*float64(i) + groupWidth*0.1
		for j := range t.Columns {
			v := t.Rows[i][j]
			if types.IsMissing(v) {
				continue
			}
			x0 := int(gx + barWidth*float64(j))
			x1 := int(gx + barWidth*float64(j+1))
			cv.rect(x0, yOf(v), x1-1, zero, seriesColor(j), seriesColor(j))
		}
		cv.text(day, int(float64(plot.Left)+groupWidth*(float64(i)+0.5)), plot.Bottom+16, 9, textColor, alignCenter)
	}
	cv.text("Day of the Week", plot.Left+plot.Width()/2, Height-12, 10, textColor, alignCenter)
	cv.legend(t.Columns, plot.Left, 46)
	return cv.save(w)
}

// Heatmap renders a correlation matrix with a diverging colour scale over
// [-1, 1] and each cell annotated to two decimals.
func Heatmap(w io.Writer, m types.Matrix) error {
	n := len(m.Columns)
	if n == 0 {
		return ErrNothingToDisplay
	}

	const size = 560
	cv, err := newCanvas(size+140, size+60, "Correlation heatmap")
	if err != nil {
		return err
	}

	left, top := 100, 50
	cell := (size - 60) / n
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := m.Values[i][j]
			x0, y0 := left+j*cell, top+i*cell
			fill := emptyColor
			label := "n/a"
			if !types.IsMissing(v) {
				fill = coolwarm(v)
				label = strconv.FormatFloat(v, 'f', 2, 64)
			}
			cv.rect(x0, y0, x0+cell, y0+cell, fill, drawing.ColorWhite)
			fc := textColor
			if !types.IsMissing(v) && math.Abs(v) > 0.6 {
				fc = drawing.ColorWhite
			}
			cv.text(label, x0+cell/2, y0+cell/2+4, 9, fc, alignCenter)
		}
		cv.text(m.Columns[i], left-6, top+i*cell+cell/2+4, 9, textColor, alignRight)
		cv.text(m.Columns[i], left+i*cell+cell/2, top+n*cell+16, 9, textColor, alignCenter)
	}

	// colour bar
	barX := left + n*cell + 24
	steps := 20
	barH := n * cell
	for s := 0; s < steps; s++ {
		v := 1 - 2*float64(s)/float64(steps)
		y0 := top + s*barH/steps
		y1 := top + (s+1)*barH/steps
		cv.rect(barX, y0, barX+14, y1, coolwarm(v), coolwarm(v))
	}
	cv.text("1", barX+18, top+8, 9, textColor, alignLeft)
	cv.text("0", barX+18, top+barH/2+4, 9, textColor, alignLeft)
	cv.text("-1", barX+18, top+barH, 9, textColor, alignLeft)
	return cv.save(w)
}

// coolwarm maps v in [-1, 1] onto a blue-grey-red diverging scale.
func coolwarm(v float64) drawing.Color {
	v = math.Max(-1, math.Min(1, v))
	blue := drawing.Color{R: 59, G: 76, B: 192, A: 255}
	mid := drawing.Color{R: 221, G: 221, B: 221, A: 255}
	red := drawing.Color{R: 180, G: 4, B: 38, A: 255}
	if v < 0 {
		return lerp(mid, blue, -v)
	}
	return lerp(mid, red, v)
}

func lerp(a, b drawing.Color, t float64) drawing.Color {
	mix := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t)) }
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// WindRose renders per-direction means as a polar bar chart. Directions
// take equal angular slices, clockwise from north, in the order given.
func WindRose(w io.Writer, d types.DirectionMeans) error {
	if d.IsEmpty() {
		return ErrNothingToDisplay
	}
	_, hi, ok := valueRange(d.Means)
	if !ok {
		return ErrNothingToDisplay
	}
	hi = math.Max(hi, 0)
	if hi == 0 {
		hi = 1
	}

	const size = 520
	cv, err := newCanvas(size, size, fmt.Sprintf("%s Levels by Wind Direction", d.Pollutant))
	if err != nil {
		return err
	}
	cx, cy := size/2, size/2+16
	radius := float64(size)/2 - 60

	for _, tv := range niceTicks(0, hi, 4) {
		if tv <= 0 || tv > hi {
			continue
		}
		r := radius * tv / hi
		cv.circle(cx, cy, r, gridColor)
		cv.text(strconv.FormatFloat(tv, 'f', -1, 64), cx+4, cy-int(r)-2, 8, axisColor, alignLeft)
	}

	n := len(d.Directions)
	slice := 2 * math.Pi / float64(n)
	for i, dir := range d.Directions {
		angle := slice * float64(i)
		v := d.Means[i]
		if !types.IsMissing(v) && v > 0 {
			r := radius * v / hi
			if n == 1 {
				cv.r.ResetStyle()
				cv.r.SetFillColor(seriesColor(0))
				cv.r.Circle(r, cx, cy)
			} else {
				cv.wedge(cx, cy, r, angle, slice*0.9, seriesColor(0))
			}
		}
		lx := cx + int((radius+18)*math.Sin(angle))
		ly := cy - int((radius+18)*math.Cos(angle)) + 4
		cv.text(dir, lx, ly, 9, textColor, alignCenter)
	}
	return cv.save(w)
}
