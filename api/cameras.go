package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sunsetd/backend/services"
)

type CamerasHandler struct {
	registry *services.CameraRegistry
}

func NewCamerasHandler(registry *services.CameraRegistry) *CamerasHandler {
	return &CamerasHandler{registry: registry}
}

func (h *CamerasHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("selected") == "true" {
		writeJSON(w, http.StatusOK, h.registry.Selected())
		return
	}
	writeJSON(w, http.StatusOK, h.registry.All())
}

func (h *CamerasHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cam, err := h.registry.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, cam)
}
