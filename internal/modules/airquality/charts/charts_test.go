package charts

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"airquality-server/internal/modules/airquality/types"
)

func TestTimeSeries(t *testing.T) {
	t0 := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("renders svg", func(t *testing.T) {
		tbl := types.TimeTable{
			Granularity: "Daily",
			Columns:     []string{"PM2.5", "PM10"},
			Buckets:     []time.Time{t0, t0.AddDate(0, 0, 1), t0.AddDate(0, 0, 2)},
			Rows:        [][]float64{{10, 20}, {math.NaN(), 25}, {14, math.NaN()}},
		}
		var buf bytes.Buffer
		if err := TimeSeries(&buf, tbl, "PM2.5, PM10"); err != nil {
			t.Fatalf("TimeSeries() = %v; want nil", err)
		}
		out := buf.String()
		if !strings.HasPrefix(out, "<svg") || !strings.HasSuffix(out, "</svg>") {
			t.Errorf("output is not an svg document: %.60q", out)
		}
		if !strings.Contains(out, "PM10") {
			t.Error("legend missing PM10")
		}
	})

	t.Run("single bucket", func(t *testing.T) {
		tbl := types.TimeTable{
			Granularity: "Monthly",
			Columns:     []string{"PM2.5"},
			Buckets:     []time.Time{t0},
			Rows:        [][]float64{{3}},
		}
		var buf bytes.Buffer
		if err := TimeSeries(&buf, tbl, ""); err != nil {
			t.Fatalf("TimeSeries() = %v; want nil", err)
		}
	})

	t.Run("empty table", func(t *testing.T) {
		var buf bytes.Buffer
		if err := TimeSeries(&buf, types.TimeTable{}, ""); !errors.Is(err, ErrNothingToDisplay) {
			t.Errorf("TimeSeries(empty) = %v; want ErrNothingToDisplay", err)
		}
	})

	t.Run("all missing", func(t *testing.T) {
		tbl := types.TimeTable{
			Columns: []string{"SO2"},
			Buckets: []time.Time{t0, t0.Add(time.Hour)},
			Rows:    [][]float64{{math.NaN()}, {math.NaN()}},
		}
		var buf bytes.Buffer
		if err := TimeSeries(&buf, tbl, ""); !errors.Is(err, ErrNothingToDisplay) {
			t.Errorf("TimeSeries(all NaN) = %v; want ErrNothingToDisplay", err)
		}
	})
}

func hourTable() types.Table {
	tbl := types.Table{Columns: []string{"PM2.5"}}
	for h := 0; h < 24; h++ {
		tbl.Index = append(tbl.Index, strconv.Itoa(h))
		tbl.Rows = append(tbl.Rows, []float64{float64(h)})
	}
	tbl.Rows[5][0] = math.NaN()
	return tbl
}

func TestHourOfDay(t *testing.T) {
	var buf bytes.Buffer
	if err := HourOfDay(&buf, hourTable(), "Pollutant Levels Throughout the Day at Dongsi"); err != nil {
		t.Fatalf("HourOfDay() = %v; want nil", err)
	}
	if !strings.Contains(buf.String(), "Hour of the Day") {
		t.Error("output missing axis name")
	}

	buf.Reset()
	if err := HourOfDay(&buf, types.Table{Index: []string{"0"}}, ""); !errors.Is(err, ErrNothingToDisplay) {
		t.Errorf("HourOfDay(no columns) = %v; want ErrNothingToDisplay", err)
	}
}

func TestDayOfWeek(t *testing.T) {
	tbl := types.Table{
		Columns: []string{"PM2.5", "NO2"},
		Index:   []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
		Rows:    [][]float64{{1, 2}, {3, 4}, {5, 6}, {7, 8}, {9, 10}, {11, math.NaN()}, {13, 14}},
	}
	var buf bytes.Buffer
	if err := DayOfWeek(&buf, tbl, "by day"); err != nil {
		t.Fatalf("DayOfWeek() = %v; want nil", err)
	}
	out := buf.String()
	for _, want := range []string{"Monday", "Sunday", "NO2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	all := types.Table{Columns: []string{"CO"}, Index: []string{"Monday"}, Rows: [][]float64{{math.NaN()}}}
	if err := DayOfWeek(&buf, all, ""); !errors.Is(err, ErrNothingToDisplay) {
		t.Errorf("DayOfWeek(all NaN) = %v; want ErrNothingToDisplay", err)
	}
}

func TestHeatmap(t *testing.T) {
	m := types.Matrix{
		Columns: []string{"PM2.5", "TEMP"},
		Values:  [][]float64{{1, -0.25}, {-0.25, 1}},
	}
	var buf bytes.Buffer
	if err := Heatmap(&buf, m); err != nil {
		t.Fatalf("Heatmap() = %v; want nil", err)
	}
	out := buf.String()
	if !strings.Contains(out, "-0.25") || !strings.Contains(out, "1.00") {
		t.Errorf("annotations missing from heatmap output")
	}

	if err := Heatmap(&buf, types.Matrix{}); !errors.Is(err, ErrNothingToDisplay) {
		t.Errorf("Heatmap(empty) = %v; want ErrNothingToDisplay", err)
	}
}

func TestCoolwarm(t *testing.T) {
	if got := coolwarm(-1); got.B != 192 || got.R != 59 {
		t.Errorf("coolwarm(-1) = %v; want blue end", got)
	}
	if got := coolwarm(1); got.R != 180 || got.B != 38 {
		t.Errorf("coolwarm(1) = %v; want red end", got)
	}
	if got := coolwarm(0); got.R != 221 || got.G != 221 || got.B != 221 {
		t.Errorf("coolwarm(0) = %v; want midpoint", got)
	}
	if coolwarm(5) != coolwarm(1) {
		t.Error("coolwarm does not clamp above 1")
	}
}

func TestWindRose(t *testing.T) {
	d := types.DirectionMeans{
		Pollutant:  "PM2.5",
		Directions: []string{"N", "NE", "E", "SE"},
		Means:      []float64{10, 40, math.NaN(), 5},
	}
	var buf bytes.Buffer
	if err := WindRose(&buf, d); err != nil {
		t.Fatalf("WindRose() = %v; want nil", err)
	}
	out := buf.String()
	if !strings.Contains(out, "PM2.5 Levels by Wind Direction") {
		t.Error("output missing title")
	}
	if !strings.Contains(out, ">SE<") {
		t.Error("output missing SE label")
	}

	t.Run("single direction", func(t *testing.T) {
		var buf bytes.Buffer
		one := types.DirectionMeans{Pollutant: "CO", Directions: []string{"N"}, Means: []float64{2}}
		if err := WindRose(&buf, one); err != nil {
			t.Fatalf("WindRose() = %v; want nil", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WindRose(&buf, types.DirectionMeans{Pollutant: "CO"}); !errors.Is(err, ErrNothingToDisplay) {
			t.Errorf("WindRose(empty) = %v; want ErrNothingToDisplay", err)
		}
	})
}

func TestNiceTicks(t *testing.T) {
	got := niceTicks(0, 100, 5)
	want := []float64{0, 20, 40, 60, 80, 100}
	if len(got) != len(want) {
		t.Fatalf("niceTicks(0, 100, 5) = %v; want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("niceTicks[%d] = %v; want %v", i, got[i], want[i])
		}
	}
}
