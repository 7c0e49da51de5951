package charts

import (
	"io"
	"math"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	textColor  = drawing.ColorFromHex("333333")
	gridColor  = drawing.ColorFromHex("dddddd")
	axisColor  = drawing.ColorFromHex("888888")
	emptyColor = drawing.ColorFromHex("eeeeee")
)

type align int

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

// canvas wraps an SVG renderer for charts go-chart has no series type for.
type canvas struct {
	r      chart.Renderer
	font   *truetype.Font
	width  int
	height int
}

func newCanvas(width, height int, title string) (*canvas, error) {
	r, err := chart.SVG(width, height)
	if err != nil {
		return nil, err
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, err
	}
	c := &canvas{r: r, font: font, width: width, height: height}
	c.rect(0, 0, width, height, drawing.ColorWhite, drawing.ColorWhite)
	if title != "" {
		c.text(title, width/2, 24, 13, textColor, alignCenter)
	}
	return c, nil
}

func (c *canvas) text(body string, x, y int, size float64, color drawing.Color, a align) {
	c.r.ResetStyle()
	c.r.SetFont(c.font)
	c.r.SetFontSize(size)
	c.r.SetFontColor(color)
	switch a {
	case alignCenter:
		x -= c.r.MeasureText(body).Width() / 2
	case alignRight:
		x -= c.r.MeasureText(body).Width()
	}
	c.r.Text(body, x, y)
}

func (c *canvas) rect(x0, y0, x1, y1 int, fill, stroke drawing.Color) {
	c.r.ResetStyle()
	c.r.SetFillColor(fill)
	c.r.SetStrokeColor(stroke)
	c.r.SetStrokeWidth(1)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y0)
	c.r.LineTo(x1, y1)
	c.r.LineTo(x0, y1)
	c.r.Close()
	c.r.FillStroke()
}

func (c *canvas) line(x0, y0, x1, y1 int, color drawing.Color) {
	c.r.ResetStyle()
	c.r.SetStrokeColor(color)
	c.r.SetStrokeWidth(1)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y1)
	c.r.Stroke()
}

// wedge draws a filled circular sector centred on angle (radians,
// clockwise from north) spanning width radians.
func (c *canvas) wedge(cx, cy int, radius, angle, width float64, fill drawing.Color) {
	if radius <= 0 {
		return
	}
	c.r.ResetStyle()
	c.r.SetFillColor(fill)
	c.r.SetStrokeColor(drawing.ColorWhite)
	c.r.SetStrokeWidth(1)
	c.r.MoveTo(cx, cy)
	// ArcTo measures angles clockwise from east.
	c.r.ArcTo(cx, cy, radius, radius, angle-width/2-math.Pi/2, width)
	c.r.LineTo(cx, cy)
	c.r.Close()
	c.r.FillStroke()
}

func (c *canvas) circle(cx, cy int, radius float64, stroke drawing.Color) {
	c.r.ResetStyle()
	c.r.SetStrokeColor(stroke)
	c.r.SetStrokeWidth(1)
	c.r.Circle(radius, cx, cy)
}

func (c *canvas) save(w io.Writer) error {
	return c.r.Save(w)
}

// legend draws a row of colour swatches with labels starting at (x, y).
func (c *canvas) legend(labels []string, x, y int) {
	for i, l := range labels {
		c.rect(x, y-9, x+10, y+1, seriesColor(i), seriesColor(i))
		c.text(l, x+14, y, 9, textColor, alignLeft)
		x += 14 + c.r.MeasureText(l).Width() + 16
	}
}

// valueRange returns the finite min and max of vals, widened when equal.
// ok is false when no value is finite.
func valueRange(vals ...[]float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, vs := range vals {
		for _, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	return lo, hi, true
}

// niceTicks returns about n evenly spaced round values covering [lo, hi].
func niceTicks(lo, hi float64, n int) []float64 {
	if n < 1 || hi <= lo {
		return []float64{lo}
	}
	raw := (hi - lo) / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if raw <= m*mag {
			step = m * mag
			break
		}
	}
	start := math.Floor(lo/step) * step
	var out []float64
	for v := start; v <= hi+step/2; v += step {
		out = append(out, v)
	}
	return out
}
