package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"math"
	"time"

	"airquality-server/internal/modules/airquality/types"
)

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-all-readings.sql
var getAllReadingsSQL string

//go:embed sql/get-readings-count.sql
var getReadingsCountSQL string

//go:embed sql/upsert-reading.sql
var upsertReadingSQL string

// timestampLayout is how readings.ts is stored; it sorts lexically.
const timestampLayout = "2006-01-02 15:04:05"

type AirQualityRepository interface {
	GetStations(ctx context.Context) ([]string, error)
	CountReadings(ctx context.Context) (int, error)
	LoadDataset(ctx context.Context) (*types.Dataset, error)
	InsertReadings(ctx context.Context, readings []types.Reading) (int, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) AirQualityRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetStations(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) CountReadings(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, getReadingsCountSQL).Scan(&n)
	return n, err
}

// LoadDataset reads every stored reading, ordered by station then time,
// and validates it into a Dataset.
func (r *repositoryImpl) LoadDataset(ctx context.Context) (*types.Dataset, error) {
	rows, err := r.db.QueryContext(ctx, getAllReadingsSQL)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()

	var out []types.Reading
	for rows.Next() {
		var (
			station, ts, wd string
			year            int
			vals            [types.NumMeasurements]sql.NullFloat64
		)
		dest := []any{&station, &ts, &year, &wd}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		t, err := time.ParseInLocation(timestampLayout, ts, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		rd := types.NewReading(station, t, wd)
		rd.Year = year
		for i, v := range vals {
			if v.Valid {
				rd.Values[i] = v.Float64
			}
		}
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ds, err := types.NewDataset(out)
	if err != nil {
		return nil, fmt.Errorf("validate stored readings: %w", err)
	}
	return ds, nil
}

// InsertReadings upserts readings in one transaction and returns how many
// rows were written. Readings for stations missing from the stations table
// are skipped.
func (r *repositoryImpl) InsertReadings(ctx context.Context, readings []types.Reading) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("rollback insert readings", "error", err)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsertReadingSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Error("close upsert statement", "error", err)
		}
	}()

	written := 0
	for i := range readings {
		rd := &readings[i]
		args := []any{rd.Time.UTC().Format(timestampLayout), rd.Year, nullString(rd.WindDir)}
		for _, v := range rd.Values {
			args = append(args, nullFloat(v))
		}
		args = append(args, rd.Station)

		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, fmt.Errorf("upsert reading %s %s: %w", rd.Station, rd.Time.Format(timestampLayout), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if n == 0 {
			slog.Warn("skipped reading for unknown station", "station", rd.Station)
		}
		written += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

func nullFloat(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
