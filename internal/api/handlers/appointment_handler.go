package handlers

import (
	"net/http"
	"time"

	"github.com/Rakhazzan/SINTESIS/internal/application/filter"
	"github.com/Rakhazzan/SINTESIS/internal/application/services"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

// AppointmentHandler handles appointment-related HTTP requests
type AppointmentHandler struct {
	service *services.AppointmentService
	now     func() time.Time
}

// NewAppointmentHandler creates a new appointment handler. now decides
// what "today" means for the date filters.
func NewAppointmentHandler(service *services.AppointmentService, now func() time.Time) *AppointmentHandler {
	if now == nil {
		now = time.Now
	}
	return &AppointmentHandler{service: service, now: now}
}

// ListAppointments handles GET /api/appointments?filter=&search=&patient=
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode, err := filter.ParseMode(query.Get("filter"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	views, err := h.service.ListViews(r.Context(), query.Get("patient"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, filter.Appointments(views, mode, query.Get("search"), h.now()))
}

// GetAppointment handles GET /api/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appointment, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// CreateAppointment handles POST /api/appointments
func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOf(w, r)
	if !ok {
		return
	}
	var input services.AppointmentInput
	if !decodeJSON(w, r, &input) {
		return
	}

	appointment, err := h.service.Create(r.Context(), session, input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, appointment)
}

// UpdateAppointment handles PUT /api/appointments/{id}
func (h *AppointmentHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	var input services.AppointmentInput
	if !decodeJSON(w, r, &input) {
		return
	}

	appointment, err := h.service.Update(r.Context(), r.PathValue("id"), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// DeleteAppointment handles DELETE /api/appointments/{id}
func (h *AppointmentHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithAppError(w, r, apperrors.NewValidationError("appointment ID is required"))
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
