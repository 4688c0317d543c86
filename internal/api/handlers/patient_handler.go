package handlers

import (
	"net/http"

	"github.com/Rakhazzan/SINTESIS/internal/application/filter"
	"github.com/Rakhazzan/SINTESIS/internal/application/services"
)

// PatientHandler handles patient-related HTTP requests
type PatientHandler struct {
	service *services.PatientService
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(service *services.PatientService) *PatientHandler {
	return &PatientHandler{service: service}
}

// ListPatients handles GET /api/patients?search=
func (h *PatientHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.service.List(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, filter.Patients(patients, r.URL.Query().Get("search")))
}

// GetPatient handles GET /api/patients/{id}
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patient, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, patient)
}

// CreatePatient handles POST /api/patients
func (h *PatientHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOf(w, r)
	if !ok {
		return
	}
	var input services.PatientInput
	if !decodeJSON(w, r, &input) {
		return
	}

	patient, err := h.service.Create(r.Context(), session, input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, patient)
}

// UpdatePatient handles PUT /api/patients/{id}
func (h *PatientHandler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	var input services.PatientInput
	if !decodeJSON(w, r, &input) {
		return
	}

	patient, err := h.service.Update(r.Context(), r.PathValue("id"), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, patient)
}

// DeletePatient handles DELETE /api/patients/{id}
func (h *PatientHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
