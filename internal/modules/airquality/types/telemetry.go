package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Telemetry is a live reading published by a monitoring station.
type Telemetry struct {
	Station   string    `json:"station"`
	Timestamp time.Time `json:"timestamp"`
	WindDir   string    `json:"wd,omitempty"`
	PM25      *float64  `json:"pm25,omitempty"`
	PM10      *float64  `json:"pm10,omitempty"`
	SO2       *float64  `json:"so2,omitempty"`
	NO2       *float64  `json:"no2,omitempty"`
	CO        *float64  `json:"co,omitempty"`
	O3        *float64  `json:"o3,omitempty"`
	Temp      *float64  `json:"temp,omitempty"`
	Pres      *float64  `json:"pres,omitempty"`
	Dewp      *float64  `json:"dewp,omitempty"`
	Rain      *float64  `json:"rain,omitempty"`
	WSPM      *float64  `json:"wspm,omitempty"`
}

// fields lists the measurements in NumericColumns order.
func (t *Telemetry) fields() []*float64 {
	return []*float64{t.PM25, t.PM10, t.SO2, t.NO2, t.CO, t.O3, t.Temp, t.Pres, t.Dewp, t.Rain, t.WSPM}
}

// Validate checks the message before it is stored.
func (t *Telemetry) Validate() error {
	if t.Station == "" {
		return errors.New("station is required")
	}
	if !IsKnownStation(t.Station) {
		return fmt.Errorf("unknown station %q", t.Station)
	}
	if t.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	present := 0
	for i, v := range t.fields() {
		if v == nil {
			continue
		}
		present++
		if i < len(Pollutants) && *v < 0 {
			return fmt.Errorf("%s must be non-negative: %f", NumericColumns[i], *v)
		}
	}
	if present == 0 {
		return errors.New("at least one measurement is required")
	}
	return nil
}

// Reading converts the message into a dataset row. Timestamps are truncated
// to the hour to match the hourly dataset.
func (t *Telemetry) Reading() Reading {
	ts := t.Timestamp.UTC().Truncate(time.Hour)
	r := NewReading(t.Station, ts, t.WindDir)
	for i, v := range t.fields() {
		if v != nil {
			r.Values[i] = *v
		}
	}
	return r
}

// TelemetryFromReading builds the message a station would publish for r.
// Missing values are left out.
func TelemetryFromReading(r Reading) Telemetry {
	t := Telemetry{Station: r.Station, Timestamp: r.Time, WindDir: r.WindDir}
	ptrs := []**float64{&t.PM25, &t.PM10, &t.SO2, &t.NO2, &t.CO, &t.O3, &t.Temp, &t.Pres, &t.Dewp, &t.Rain, &t.WSPM}
	for i, p := range ptrs {
		if v := r.Values[i]; !math.IsNaN(v) {
			*p = &v
		}
	}
	return t
}
