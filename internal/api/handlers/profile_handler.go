package handlers

import (
	"net/http"

	"github.com/Rakhazzan/SINTESIS/internal/application/services"
	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
)

// ProfileHandler handles the signed-in user's profile and settings
type ProfileHandler struct {
	profiles *services.ProfileService
	settings *services.SettingsService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles *services.ProfileService, settings *services.SettingsService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, settings: settings}
}

// GetProfile handles GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOf(w, r)
	if !ok {
		return
	}
	profile, err := h.profiles.Get(r.Context(), session)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/profile. An email in the body is ignored.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOf(w, r)
	if !ok {
		return
	}
	var input services.ProfileInput
	if !decodeJSON(w, r, &input) {
		return
	}
	profile, err := h.profiles.Update(r.Context(), session, input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

// GetSettings handles GET /api/settings
func (h *ProfileHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOf(w, r)
	if !ok {
		return
	}
	settings, err := h.settings.Load(r.Context(), session.UserID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/settings
func (h *ProfileHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOf(w, r)
	if !ok {
		return
	}
	var input entities.Settings
	if !decodeJSON(w, r, &input) {
		return
	}
	settings, err := h.settings.Update(r.Context(), session.UserID, input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

// EndSession handles POST /api/session/end
func (h *ProfileHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOf(w, r)
	if !ok {
		return
	}
	if err := h.settings.EndSession(r.Context(), session.UserID); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
