package controller

import (
	"io"
	"net/http"

	"airquality-server/internal/modules/airquality/types"
	"airquality-server/internal/modules/airquality/views"
)

type AirQualityController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type renderFunc func(io.Writer, *views.DashboardData) error

type airQualityControllerImpl struct {
	dataset      *types.Dataset
	renderPage   renderFunc
	renderCharts renderFunc
}

func NewAirQualityController(dataset *types.Dataset) AirQualityController {
	return &airQualityControllerImpl{
		dataset:      dataset,
		renderPage:   views.RenderDashboard,
		renderCharts: views.RenderChartsPartial,
	}
}

func (c *airQualityControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/charts", c.handleChartsPartial)

	mux.HandleFunc("GET /api/v1/meta", c.handleMeta)
	mux.HandleFunc("GET /api/v1/series", c.handleSeries)
	mux.HandleFunc("GET /api/v1/hourly", c.handleHourly)
	mux.HandleFunc("GET /api/v1/weekday", c.handleWeekday)
	mux.HandleFunc("GET /api/v1/correlation", c.handleCorrelation)
	mux.HandleFunc("GET /api/v1/wind", c.handleWind)
	mux.HandleFunc("GET /api/v1/export.xlsx", c.handleExport)
}
