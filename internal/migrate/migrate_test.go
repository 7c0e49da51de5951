package migrate

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRun_AppliesEmbeddedSchemaOnce(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	n, err := Run(ctx, db)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 2 {
		t.Errorf("applied = %d; want 2", n)
	}

	var stations int
	if err := db.QueryRow(`SELECT COUNT(*) FROM stations`).Scan(&stations); err != nil {
		t.Fatalf("count stations: %v", err)
	}
	if stations != 12 {
		t.Errorf("stations = %d; want 12", stations)
	}

	n, err = Run(ctx, db)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if n != 0 {
		t.Errorf("second Run applied = %d; want 0", n)
	}
}

func TestRun_OrdersByVersionAndStopsOnError(t *testing.T) {
	db := openMemDB(t)
	fsys := fstest.MapFS{
		"sql/0002_insert.sql": {Data: []byte(`INSERT INTO t (id) VALUES (1);`)},
		"sql/0001_create.sql": {Data: []byte(`CREATE TABLE t (id INTEGER PRIMARY KEY);`)},
		"sql/0003_broken.sql": {Data: []byte(`INSERT INTO missing_table VALUES (1);`)},
		"sql/README.md":       {Data: []byte(`ignored`)},
	}

	_, err := run(context.Background(), db, fsys)
	if err == nil {
		t.Fatal("run = nil error; want error from broken migration")
	}

	var versions int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + tableName).Scan(&versions); err != nil {
		t.Fatalf("count versions: %v", err)
	}
	if versions != 2 {
		t.Errorf("recorded versions = %d; want 2", versions)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in      string
		version string
		name    string
		ok      bool
	}{
		{"0001_schema.sql", "0001", "schema", true},
		{"0012_seed_stations.sql", "0012", "seed_stations", true},
		{"1_bad.sql", "", "", false},
		{"0001_schema.txt", "", "", false},
	}
	for _, tt := range tests {
		v, n, ok := parseMigrationFilename(tt.in)
		if v != tt.version || n != tt.name || ok != tt.ok {
			t.Errorf("parseMigrationFilename(%q) = %q, %q, %v", tt.in, v, n, ok)
		}
	}
}
