package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rakhazzan/SINTESIS/internal/application/loaders"
	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/repositories"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

// AppointmentInput carries the fields of the appointment form
type AppointmentInput struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Date        entities.Date `json:"date"`
	Time        string        `json:"time"`
	PatientID   string        `json:"patient_id"`
}

// AppointmentService handles appointment scheduling logic
type AppointmentService struct {
	repo     repositories.AppointmentRepository
	patients repositories.PatientRepository
	loaders  *loaders.Loaders
	now      func() time.Time
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	repo repositories.AppointmentRepository,
	patients repositories.PatientRepository,
	ld *loaders.Loaders,
	now func() time.Time,
) *AppointmentService {
	if now == nil {
		now = time.Now
	}
	return &AppointmentService{repo: repo, patients: patients, loaders: ld, now: now}
}

// ListViews returns appointments joined with their patients, ordered by
// date then time. patientID narrows the list when set.
func (s *AppointmentService) ListViews(ctx context.Context, patientID string) ([]*entities.AppointmentView, error) {
	appointments, err := s.repo.List(ctx, repositories.AppointmentFilter{PatientID: patientID})
	if err != nil {
		return nil, err
	}
	return s.Join(ctx, appointments)
}

// Join attaches each appointment's patient. Appointments whose patient no
// longer exists keep a nil Patient.
func (s *AppointmentService) Join(ctx context.Context, appointments []*entities.Appointment) ([]*entities.AppointmentView, error) {
	ids := make([]string, 0, len(appointments))
	for _, a := range appointments {
		ids = append(ids, a.PatientID)
	}
	byID, err := s.loaders.PatientsByID(ctx, ids)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to load patients", err)
	}

	views := make([]*entities.AppointmentView, 0, len(appointments))
	for _, a := range appointments {
		views = append(views, &entities.AppointmentView{
			Appointment: *a,
			Patient:     byID[a.PatientID].Summary(),
		})
	}
	return views, nil
}

// Get returns a single appointment
func (s *AppointmentService) Get(ctx context.Context, id string) (*entities.Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates input and schedules a new appointment for the session user
func (s *AppointmentService) Create(ctx context.Context, session *entities.Session, input AppointmentInput) (*entities.Appointment, error) {
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}

	appointment := &entities.Appointment{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Date:        input.Date,
		Time:        input.Time,
		PatientID:   input.PatientID,
		CreatedBy:   session.UserID,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, appointment); err != nil {
		return nil, err
	}

	log.Info().
		Str("appointment_id", appointment.ID).
		Str("patient_id", appointment.PatientID).
		Str("date", appointment.Date.String()).
		Msg("appointment created")
	return appointment, nil
}

// Update replaces the editable fields of an existing appointment
func (s *AppointmentService) Update(ctx context.Context, id string, input AppointmentInput) (*entities.Appointment, error) {
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}

	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	appointment.Title = strings.TrimSpace(input.Title)
	appointment.Description = input.Description
	appointment.Date = input.Date
	appointment.Time = input.Time
	appointment.PatientID = input.PatientID

	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Delete removes an appointment
func (s *AppointmentService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *AppointmentService) validate(ctx context.Context, input AppointmentInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return apperrors.NewValidationError("appointment title is required")
	}
	if input.Date.IsZero() {
		return apperrors.NewValidationError("appointment date is required")
	}
	if !entities.ValidTimeOfDay(input.Time) {
		return apperrors.NewValidationError("appointment time must be HH:MM")
	}
	if input.PatientID == "" {
		return apperrors.NewValidationError("a patient must be selected")
	}

	if _, err := s.patients.GetByID(ctx, input.PatientID); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return apperrors.NewValidationError("selected patient does not exist")
		}
		return err
	}
	return nil
}
