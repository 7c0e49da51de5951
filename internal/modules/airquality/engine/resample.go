package engine

import (
	"fmt"
	"time"

	"airquality-server/internal/modules/airquality/types"
)

// Granularity is the bucket width used by ResampleSeries.
type Granularity string

const (
	Hourly  Granularity = "Hourly"
	Daily   Granularity = "Daily"
	Weekly  Granularity = "Weekly"
	Monthly Granularity = "Monthly"
)

// Granularities lists the selectable bucket widths in menu order.
var Granularities = []Granularity{Hourly, Daily, Weekly, Monthly}

func ParseGranularity(s string) (Granularity, error) {
	for _, g := range Granularities {
		if string(g) == s {
			return g, nil
		}
	}
	return "", fmt.Errorf("invalid granularity %q (allowed: Hourly, Daily, Weekly, Monthly)", s)
}

// Floor returns the start of the bucket containing t. Weeks start on
// Monday 00:00, so a bucket holds Monday through Sunday.
func (g Granularity) Floor(t time.Time) time.Time {
	y, m, d := t.Date()
	switch g {
	case Hourly:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, t.Location())
	case Daily:
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case Weekly:
		back := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-back, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	}
}

// Next returns the start of the bucket following the one starting at start.
func (g Granularity) Next(start time.Time) time.Time {
	switch g {
	case Hourly:
		return start.Add(time.Hour)
	case Daily:
		return start.AddDate(0, 0, 1)
	case Weekly:
		return start.AddDate(0, 0, 7)
	default:
		return start.AddDate(0, 1, 0)
	}
}

// ResampleSeries buckets subset by g and averages each pollutant per
// bucket. Every bucket between the first and last observation is present;
// buckets without values hold NaN. Rows are in chronological order.
func ResampleSeries(subset []types.Reading, g Granularity, pollutants []string) types.TimeTable {
	t := types.TimeTable{Granularity: string(g), Columns: append([]string(nil), pollutants...)}
	if len(pollutants) == 0 || len(subset) == 0 {
		return t
	}

	idx := columnIndexes(pollutants)
	groups := make(map[time.Time]accumulator)
	var first, last time.Time
	for i := range subset {
		b := g.Floor(subset[i].Time)
		acc, ok := groups[b]
		if !ok {
			acc = newAccumulator(len(pollutants))
			groups[b] = acc
		}
		acc.add(&subset[i], idx)
		if first.IsZero() || b.Before(first) {
			first = b
		}
		if last.IsZero() || b.After(last) {
			last = b
		}
	}

	for b := first; !b.After(last); b = g.Next(b) {
		t.Buckets = append(t.Buckets, b)
		if acc, ok := groups[b]; ok {
			t.Rows = append(t.Rows, acc.means())
		} else {
			t.Rows = append(t.Rows, newAccumulator(len(pollutants)).means())
		}
	}
	return t
}
