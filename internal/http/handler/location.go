package handler

import (
	"context"
	"net/http"
	"strconv"
)

type CityResolver interface {
	City(ctx context.Context, lat, lon float64) string
}

type LocationHandler struct {
	Geo CityResolver
}

// Reverse names the city at ?lat=&lon=. Lookup trouble still answers 200 with
// the fallback name; only unusable coordinates are rejected.
func (h *LocationHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		writeError(w, http.StatusBadRequest, CodeValidation, "lat must be a number between -90 and 90")
		return
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, CodeValidation, "lon must be a number between -180 and 180")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"city": h.Geo.City(r.Context(), lat, lon)})
}
