package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"airquality-server/internal/config"
)

func TestNewLogger_release(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: slog.LevelInfo}
	logger := newLogger(&buf, cfg, "1.2.0", "airquality-server")

	logger.Debug("hidden")
	logger.Info("dataset loaded", "readings", 420768)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines; want 1 (debug filtered): %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	for k, want := range map[string]any{
		"msg":      "dataset loaded",
		"app":      "airquality-server",
		"version":  "1.2.0",
		"env":      "prod",
		"readings": float64(420768),
	} {
		if rec[k] != want {
			t.Errorf("%s = %v; want %v", k, rec[k], want)
		}
	}
}

func TestNewLogger_dev(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "dev", LogLevel: slog.LevelDebug}
	logger := newLogger(&buf, cfg, "dev", "airquality-server")

	logger.Debug("computing report", "station", "Dongsi")

	out := buf.String()
	if !strings.Contains(out, "computing report") || !strings.Contains(out, "Dongsi") {
		t.Errorf("output = %q; want message and attribute", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("dev output should be text, got JSON: %q", out)
	}
}
