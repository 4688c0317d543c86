package repositories

import (
	"context"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
)

// PatientRepository defines the interface for patient data operations
type PatientRepository interface {
	// List retrieves all patients ordered by name ascending
	List(ctx context.Context) ([]*entities.Patient, error)

	// GetByID retrieves a patient by ID
	GetByID(ctx context.Context, id string) (*entities.Patient, error)

	// GetByIDs retrieves the patients that exist among ids, in no particular order
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Patient, error)

	// Create creates a new patient
	Create(ctx context.Context, patient *entities.Patient) error

	// Update updates a patient
	Update(ctx context.Context, patient *entities.Patient) error

	// Delete deletes a patient. Appointments referencing it are left in place.
	Delete(ctx context.Context, id string) error

	// Count returns the number of patients
	Count(ctx context.Context) (int, error)
}
