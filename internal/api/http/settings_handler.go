package http

import (
	"net/http"

	"github.com/ibndev/citystaff-backend/internal/service"
)

type SettingsHandler struct {
	settings service.SettingsService
}

func NewSettingsHandler(settings service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Public serves the client-visible subset of settings, no auth required.
func (h *SettingsHandler) Public(w http.ResponseWriter, r *http.Request) {
	values, err := h.settings.Public(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, values)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := decodeBody(r, &values); err != nil {
		respondError(w, err)
		return
	}
	if err := h.settings.UpdateMany(r.Context(), values); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
