package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/waraqa-store/api/internal/locations"
)

// RegisterLocationRoutes registers the static governorate/city lookup: /locations
func RegisterLocationRoutes(r chi.Router) {
	r.Get("/governorates", listGovernorates)
	r.Get("/governorates/{name}/cities", listCities)
}

func listGovernorates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, locations.Names())
}

func listCities(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid governorate"})
		return
	}
	cities := locations.Cities(name)
	if cities == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "governorate not found"})
		return
	}
	writeJSON(w, http.StatusOK, cities)
}
