package httpapi

import (
	"net/http"

	"airquality-server/internal/utils"
)

// datasetSizer is the part of the loaded dataset the healthcheck reports.
type datasetSizer interface {
	Len() int
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	dataset datasetSizer
}

func NewHealthchecker(dataset datasetSizer) healthchecker {
	return &healthcheckerImpl{dataset: dataset}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.dataset == nil {
		utils.WriteError(w, http.StatusServiceUnavailable, "dataset not loaded")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"readings": h.dataset.Len(),
	})
}

func registerHealthcheck(mux *http.ServeMux, dataset datasetSizer) {
	healthchecker := NewHealthchecker(dataset)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
