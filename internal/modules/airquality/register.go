package airquality

import (
	"net/http"

	"airquality-server/internal/modules/airquality/controller"
	"airquality-server/internal/modules/airquality/types"
)

func RegisterFeature(mux *http.ServeMux, dataset *types.Dataset) {
	airQualityController := controller.NewAirQualityController(dataset)
	airQualityController.RegisterRoutes(mux)
}
