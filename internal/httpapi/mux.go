package httpapi

import (
	"net/http"

	"airquality-server/internal/modules/airquality/types"
)

func NewMux(dataset *types.Dataset) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, dataset)
	return mux
}
