package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/repositories"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/clients/postgres"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

// TIME columns are read as text so "HH:MM:SS" survives the driver untouched.
var appointmentColumns = []any{
	"id", "title", "description", "date",
	goqu.Cast(goqu.C("time"), "TEXT").As("time"),
	"patient_id", "created_by", "created_at",
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// List retrieves appointments ordered by date then time
func (a *AppointmentAdapter) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ds := a.db.Select(appointmentColumns...).From(entities.TableAppointments)

	if filter.PatientID != "" {
		ds = ds.Where(goqu.Ex{"patient_id": filter.PatientID})
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("date").Gte(*filter.From))
	}

	ds = ds.Order(goqu.I("date").Asc(), goqu.I("time").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	appointments := make([]*entities.Appointment, 0)
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating appointments", err)
	}
	return appointments, nil
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From(entities.TableAppointments).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}
	return appointment, nil
}

// Create creates a new appointment
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	record := goqu.Record{
		"id":          appointment.ID,
		"title":       appointment.Title,
		"description": appointment.Description,
		"date":        appointment.Date,
		"time":        appointment.Time,
		"patient_id":  appointment.PatientID,
		"created_by":  appointment.CreatedBy,
		"created_at":  appointment.CreatedAt,
	}

	query, args, err := a.db.Insert(entities.TableAppointments).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create appointment", err)
	}
	return nil
}

// Update updates an appointment
func (a *AppointmentAdapter) Update(ctx context.Context, appointment *entities.Appointment) error {
	record := goqu.Record{
		"title":       appointment.Title,
		"description": appointment.Description,
		"date":        appointment.Date,
		"time":        appointment.Time,
		"patient_id":  appointment.PatientID,
	}

	query, args, err := a.db.Update(entities.TableAppointments).
		Set(record).
		Where(goqu.Ex{"id": appointment.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update appointment", err)
	}
	return expectAffected(result, "appointment", appointment.ID)
}

// Delete deletes an appointment
func (a *AppointmentAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(entities.TableAppointments).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete appointment", err)
	}
	return expectAffected(result, "appointment", id)
}

// CountOnDate counts appointments on a calendar day
func (a *AppointmentAdapter) CountOnDate(ctx context.Context, date entities.Date) (int, error) {
	return a.count(ctx, goqu.C("date").Eq(date))
}

// CountFrom counts appointments on or after a calendar day
func (a *AppointmentAdapter) CountFrom(ctx context.Context, from entities.Date) (int, error) {
	return a.count(ctx, goqu.C("date").Gte(from))
}

func (a *AppointmentAdapter) count(ctx context.Context, where exp.Expression) (int, error) {
	query, args, err := a.db.Select(goqu.COUNT("*")).
		From(entities.TableAppointments).
		Where(where).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}
	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count appointments", err)
	}
	return count, nil
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	err := row.Scan(
		&appointment.ID,
		&appointment.Title,
		&appointment.Description,
		&appointment.Date,
		&appointment.Time,
		&appointment.PatientID,
		&appointment.CreatedBy,
		&appointment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return appointment, nil
}
