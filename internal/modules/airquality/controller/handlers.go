package controller

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"airquality-server/internal/modules/airquality/engine"
	"airquality-server/internal/modules/airquality/export"
	"airquality-server/internal/modules/airquality/types"
	"airquality-server/internal/modules/airquality/views"
	"airquality-server/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type metaResponse struct {
	Readings       int      `json:"readings"`
	Years          []int    `json:"years"`
	Stations       []string `json:"stations"`
	Granularities  []string `json:"granularities"`
	Pollutants     []string `json:"pollutants"`
	NumericColumns []string `json:"numeric_columns"`
}

func (c *airQualityControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	c.renderHTML(w, r, c.renderPage, "failed to render page")
}

func (c *airQualityControllerImpl) handleChartsPartial(w http.ResponseWriter, r *http.Request) {
	c.renderHTML(w, r, c.renderCharts, "failed to render")
}

func (c *airQualityControllerImpl) renderHTML(w http.ResponseWriter, r *http.Request, render renderFunc, failMsg string) {
	sel, _ := parseSelection(c.dataset, r.URL.Query(), false)
	rep := engine.Compute(c.dataset, sel)

	data, err := views.BuildDashboard(c.dataset, rep, encodeSelection(sel))
	if err != nil {
		slog.Error("dashboard: build charts failed", "station", sel.Station, "year", sel.Year, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, failMsg)
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, data); err != nil {
		slog.Error("dashboard template render failed", "path", r.URL.Path, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, failMsg)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("dashboard: write response failed", "error", err)
	}
}

func (c *airQualityControllerImpl) handleMeta(w http.ResponseWriter, r *http.Request) {
	grans := make([]string, 0, len(engine.Granularities))
	for _, g := range engine.Granularities {
		grans = append(grans, string(g))
	}
	utils.WriteJSON(w, http.StatusOK, metaResponse{
		Readings:       c.dataset.Len(),
		Years:          c.dataset.Years(),
		Stations:       c.dataset.Stations(),
		Granularities:  grans,
		Pollutants:     types.Pollutants,
		NumericColumns: types.NumericColumns,
	})
}

// strictSelection parses the query for the JSON API. It writes a 400 and
// returns false on any invalid value.
func (c *airQualityControllerImpl) strictSelection(w http.ResponseWriter, r *http.Request) (engine.Selection, bool) {
	sel, err := parseSelection(c.dataset, r.URL.Query(), true)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return engine.Selection{}, false
	}
	return sel, true
}

func (c *airQualityControllerImpl) handleSeries(w http.ResponseWriter, r *http.Request) {
	sel, ok := c.strictSelection(w, r)
	if !ok {
		return
	}
	scope := engine.SelectScope(c.dataset, sel.Year, sel.Station)
	utils.WriteJSON(w, http.StatusOK, engine.ResampleSeries(scope, sel.Granularity, sel.SeriesPollutants))
}

func (c *airQualityControllerImpl) handleHourly(w http.ResponseWriter, r *http.Request) {
	sel, ok := c.strictSelection(w, r)
	if !ok {
		return
	}
	scope := engine.SelectScope(c.dataset, sel.Year, sel.Station)
	utils.WriteJSON(w, http.StatusOK, engine.HourOfDayMeans(scope, sel.HourPollutants))
}

func (c *airQualityControllerImpl) handleWeekday(w http.ResponseWriter, r *http.Request) {
	sel, ok := c.strictSelection(w, r)
	if !ok {
		return
	}
	scope := engine.SelectScope(c.dataset, sel.Year, sel.Station)
	utils.WriteJSON(w, http.StatusOK, engine.DayOfWeekMeans(scope, sel.WeekdayPollutants))
}

func (c *airQualityControllerImpl) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	sel, ok := c.strictSelection(w, r)
	if !ok {
		return
	}
	m, ok := engine.CorrelationMatrix(c.dataset.Readings(), sel.CorrelationColumns)
	if !ok {
		utils.WriteJSON(w, http.StatusOK, map[string]any{"message": "nothing to display"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, m)
}

func (c *airQualityControllerImpl) handleWind(w http.ResponseWriter, r *http.Request) {
	sel, ok := c.strictSelection(w, r)
	if !ok {
		return
	}
	scope := engine.SelectScope(c.dataset, sel.Year, sel.Station)
	utils.WriteJSON(w, http.StatusOK, engine.WindDirectionMeans(scope, sel.WindPollutant))
}

func (c *airQualityControllerImpl) handleExport(w http.ResponseWriter, r *http.Request) {
	sel, ok := c.strictSelection(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteReport(&buf, engine.Compute(c.dataset, sel)); err != nil {
		slog.Error("export: write workbook failed", "station", sel.Station, "year", sel.Year, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(sel)))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("export: write response failed", "error", err)
	}
}
