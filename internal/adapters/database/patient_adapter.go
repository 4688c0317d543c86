package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/repositories"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/clients/postgres"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

var patientColumns = []any{"id", "name", "birth_date", "gender", "phone", "notes", "owner_id", "created_at"}

// PatientAdapter implements the PatientRepository interface
type PatientAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPatientAdapter creates a new patient adapter
func NewPatientAdapter(client *postgres.Client) repositories.PatientRepository {
	return &PatientAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// List retrieves all patients ordered by name
func (a *PatientAdapter) List(ctx context.Context) ([]*entities.Patient, error) {
	query, args, err := a.db.Select(patientColumns...).
		From(entities.TablePatients).
		Order(goqu.I("name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.query(ctx, query, args)
}

// GetByID retrieves a patient by ID
func (a *PatientAdapter) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	query, args, err := a.db.Select(patientColumns...).
		From(entities.TablePatients).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	patient, err := scanPatient(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get patient", err)
	}
	return patient, nil
}

// GetByIDs retrieves the patients that exist among ids
func (a *PatientAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Patient, error) {
	if len(ids) == 0 {
		return []*entities.Patient{}, nil
	}
	query, args, err := a.db.Select(patientColumns...).
		From(entities.TablePatients).
		Where(goqu.Ex{"id": ids}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.query(ctx, query, args)
}

// Create creates a new patient
func (a *PatientAdapter) Create(ctx context.Context, patient *entities.Patient) error {
	record := goqu.Record{
		"id":         patient.ID,
		"name":       patient.Name,
		"birth_date": patient.BirthDate,
		"gender":     patient.Gender,
		"phone":      nullable(patient.Phone),
		"notes":      nullable(patient.Notes),
		"owner_id":   patient.OwnerID,
		"created_at": patient.CreatedAt,
	}

	query, args, err := a.db.Insert(entities.TablePatients).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create patient", err)
	}
	return nil
}

// Update updates the editable fields of a patient
func (a *PatientAdapter) Update(ctx context.Context, patient *entities.Patient) error {
	record := goqu.Record{
		"name":       patient.Name,
		"birth_date": patient.BirthDate,
		"gender":     patient.Gender,
		"phone":      nullable(patient.Phone),
		"notes":      nullable(patient.Notes),
	}

	query, args, err := a.db.Update(entities.TablePatients).
		Set(record).
		Where(goqu.Ex{"id": patient.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update patient", err)
	}
	return expectAffected(result, "patient", patient.ID)
}

// Delete deletes a patient
func (a *PatientAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(entities.TablePatients).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete patient", err)
	}
	return expectAffected(result, "patient", id)
}

// Count returns the number of patients
func (a *PatientAdapter) Count(ctx context.Context) (int, error) {
	query, args, err := a.db.Select(goqu.COUNT("*")).From(entities.TablePatients).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}
	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count patients", err)
	}
	return count, nil
}

func (a *PatientAdapter) query(ctx context.Context, query string, args []any) ([]*entities.Patient, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list patients", err)
	}
	defer rows.Close()

	patients := make([]*entities.Patient, 0)
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan patient", err)
		}
		patients = append(patients, patient)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating patients", err)
	}
	return patients, nil
}

func scanPatient(row rowScanner) (*entities.Patient, error) {
	patient := &entities.Patient{}
	var phone, notes sql.NullString
	err := row.Scan(
		&patient.ID,
		&patient.Name,
		&patient.BirthDate,
		&patient.Gender,
		&phone,
		&notes,
		&patient.OwnerID,
		&patient.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	patient.Phone = phone.String
	patient.Notes = notes.String
	return patient, nil
}
