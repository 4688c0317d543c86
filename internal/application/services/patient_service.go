package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/repositories"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

// PatientInput carries the fields of the patient form
type PatientInput struct {
	Name      string        `json:"name"`
	BirthDate entities.Date `json:"birth_date"`
	Gender    string        `json:"gender"`
	Phone     string        `json:"phone"`
	Notes     string        `json:"notes"`
}

// PatientService handles patient records
type PatientService struct {
	repo repositories.PatientRepository
	now  func() time.Time
}

// NewPatientService creates a new patient service. now defaults to time.Now.
func NewPatientService(repo repositories.PatientRepository, now func() time.Time) *PatientService {
	if now == nil {
		now = time.Now
	}
	return &PatientService{repo: repo, now: now}
}

// List returns every patient ordered by name
func (s *PatientService) List(ctx context.Context) ([]*entities.Patient, error) {
	return s.repo.List(ctx)
}

// Get returns a single patient
func (s *PatientService) Get(ctx context.Context, id string) (*entities.Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates input and stores a new patient owned by the session user
func (s *PatientService) Create(ctx context.Context, session *entities.Session, input PatientInput) (*entities.Patient, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	patient := &entities.Patient{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(input.Name),
		BirthDate: input.BirthDate,
		Gender:    entities.Gender(input.Gender),
		Phone:     strings.TrimSpace(input.Phone),
		Notes:     input.Notes,
		OwnerID:   session.UserID,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, err
	}

	log.Info().Str("patient_id", patient.ID).Str("owner_id", patient.OwnerID).Msg("patient created")
	return patient, nil
}

// Update replaces the editable fields of an existing patient
func (s *PatientService) Update(ctx context.Context, id string, input PatientInput) (*entities.Patient, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	patient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patient.Name = strings.TrimSpace(input.Name)
	patient.BirthDate = input.BirthDate
	patient.Gender = entities.Gender(input.Gender)
	patient.Phone = strings.TrimSpace(input.Phone)
	patient.Notes = input.Notes

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// Delete removes a patient. Its appointments stay and display as orphaned.
func (s *PatientService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("patient_id", id).Msg("patient deleted")
	return nil
}

func (s *PatientService) validate(input PatientInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.NewValidationError("patient name is required")
	}
	if !entities.Gender(input.Gender).Valid() {
		return apperrors.NewValidationError("gender must be male, female or other")
	}
	if !input.BirthDate.IsZero() && input.BirthDate.After(entities.DateOf(s.now())) {
		return apperrors.NewValidationError("birth date cannot be in the future")
	}
	return nil
}
