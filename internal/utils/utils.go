package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
)

const jsonContentType = "application/json; charset=utf-8"

// WriteJSON encodes v before writing the header. An encode failure is sent
// as a 500 error envelope.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("failed to encode JSON", "status", status, "error", err)
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorBody(http.StatusInternalServerError, "failed to encode response"))
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("failed to write JSON", "error", err)
	}
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, errorBody(status, msg))
}

func errorBody(status int, msg string) map[string]string {
	return map[string]string{
		"error":   http.StatusText(status),
		"message": msg,
	}
}
