package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"airquality-server/internal/config"
	"airquality-server/internal/modules/airquality/types"
)

func newTestDataset(t *testing.T, n int) *types.Dataset {
	t.Helper()
	base := time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC)
	rs := make([]types.Reading, 0, n)
	for i := 0; i < n; i++ {
		rs = append(rs, types.NewReading("Aotizhongxin", base.Add(time.Duration(i)*time.Hour), "N"))
	}
	ds, err := types.NewDataset(rs)
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	return ds
}

func newTestServer(t *testing.T, ds *types.Dataset) *httptest.Server {
	t.Helper()

	srv := NewServer(config.Config{HTTPAddr: ":0"}, NewMux(ds))
	ts := httptest.NewServer(srv.Handler)

	t.Cleanup(ts.Close)
	return ts
}

func mustGetJSON[T any](t *testing.T, client *http.Client, url string, out *T) *http.Response {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, newTestDataset(t, 5))

	var body struct {
		Status   string `json:"status"`
		Readings int    `json:"readings"`
	}
	resp := mustGetJSON(t, ts.Client(), ts.URL+"/healthz", &body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q; want application/json; charset=utf-8", ct)
	}
	if body.Status != "ok" || body.Readings != 5 {
		t.Errorf("body = %+v; want status ok with 5 readings", body)
	}
}

func TestHealthz_noDataset(t *testing.T) {
	h := NewHealthchecker(nil)
	rec := httptest.NewRecorder()
	h.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d; want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHealthz_methodNotAllowed(t *testing.T) {
	ts := newTestServer(t, newTestDataset(t, 1))

	resp, err := ts.Client().Post(ts.URL+"/healthz", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d; want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestRequestLogger_requestID(t *testing.T) {
	h := requestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates an id when missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Header().Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("%s = %q; want a UUID: %v", requestIDHeader, id, err)
		}
		if rec.Code != http.StatusTeapot {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusTeapot)
		}
	})

	t.Run("keeps the client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
			t.Errorf("%s = %q; want abc-123", requestIDHeader, got)
		}
	})
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}
	sr.WriteHeader(http.StatusNotFound)

	if sr.status != http.StatusNotFound || rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, recorder = %d; want 404", sr.status, rec.Code)
	}
}
