package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"airquality-server/internal/migrate"
	"airquality-server/internal/modules/airquality/repository"
	"airquality-server/internal/modules/airquality/types"
)

type captureSubscriber struct {
	handler func(types.Telemetry) error
}

func (c *captureSubscriber) SetMessageHandler(h func(types.Telemetry) error) { c.handler = h }

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	if _, err := migrate.Run(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func ptr(v float64) *float64 { return &v }

func TestRegister_StoresTelemetry(t *testing.T) {
	repo := repository.NewRepository(setupTestDB(t))
	sub := &captureSubscriber{}
	NewService(repo, nil).Register(sub)

	if sub.handler == nil {
		t.Fatal("Register did not set a message handler")
	}

	msg := types.Telemetry{
		Station:   "Tiantan",
		Timestamp: time.Date(2017, 1, 5, 8, 42, 0, 0, time.UTC),
		WindDir:   "NE",
		PM25:      ptr(35),
		Temp:      ptr(-4.5),
	}
	if err := sub.handler(msg); err != nil {
		t.Fatalf("handler() = %v; want nil", err)
	}

	ds, err := repo.LoadDataset(context.Background())
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if ds.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", ds.Len())
	}
	r := ds.Readings()[0]
	if !r.Time.Equal(time.Date(2017, 1, 5, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("Time = %v; want truncated to the hour", r.Time)
	}
	if r.Value("PM2.5") != 35 || r.Value("TEMP") != -4.5 {
		t.Errorf("PM2.5, TEMP = %v, %v; want 35, -4.5", r.Value("PM2.5"), r.Value("TEMP"))
	}
	if !types.IsMissing(r.Value("SO2")) {
		t.Errorf("SO2 = %v; want missing", r.Value("SO2"))
	}
}

func TestRegister_RepositoryError(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	sub := &captureSubscriber{}
	NewService(repo, nil).Register(sub)
	_ = db.Close()

	err := sub.handler(types.Telemetry{
		Station:   "Tiantan",
		Timestamp: time.Date(2017, 1, 5, 8, 0, 0, 0, time.UTC),
		PM25:      ptr(1),
	})
	if err == nil {
		t.Fatal("handler() = nil; want error after db closed")
	}
}
