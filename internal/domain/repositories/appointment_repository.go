package repositories

import (
	"context"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment data operations
type AppointmentRepository interface {
	// List retrieves appointments ordered by date then time, ascending
	List(ctx context.Context, filter AppointmentFilter) ([]*entities.Appointment, error)

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// Create creates a new appointment
	Create(ctx context.Context, appointment *entities.Appointment) error

	// Update updates an appointment
	Update(ctx context.Context, appointment *entities.Appointment) error

	// Delete deletes an appointment
	Delete(ctx context.Context, id string) error

	// CountOnDate counts appointments on a calendar day
	CountOnDate(ctx context.Context, date entities.Date) (int, error)

	// CountFrom counts appointments on or after a calendar day
	CountFrom(ctx context.Context, from entities.Date) (int, error)
}

// AppointmentFilter defines filters for listing appointments
type AppointmentFilter struct {
	PatientID string
	From      *entities.Date
	Limit     int
}
