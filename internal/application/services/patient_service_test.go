package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Rakhazzan/SINTESIS/internal/application/services"
	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

var t0 = time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return t0 }

var doctor = &entities.Session{UserID: "doc-1", Email: "doc@example.com"}

func TestPatientService_Create(t *testing.T) {
	t.Run("stores the patient owned by the session user", func(t *testing.T) {
		repo := new(MockPatientRepository)
		service := services.NewPatientService(repo, fixedClock)

		repo.On("Create", mock.Anything, mock.MatchedBy(func(p *entities.Patient) bool {
			return p.Name == "Ana López" && p.OwnerID == "doc-1" && p.ID != "" && p.CreatedAt.Equal(t0)
		})).Return(nil)

		patient, err := service.Create(context.Background(), doctor, services.PatientInput{
			Name:      "  Ana López ",
			BirthDate: entities.Date{Year: 1990, Month: time.May, Day: 2},
			Gender:    "female",
			Phone:     "5551234",
		})

		require.NoError(t, err)
		assert.Equal(t, "Ana López", patient.Name)
		assert.Equal(t, entities.GenderFemale, patient.Gender)
		repo.AssertExpectations(t)
	})

	invalid := map[string]services.PatientInput{
		"blank name":        {Name: "   ", Gender: "male"},
		"unknown gender":    {Name: "Luis", Gender: "unknown"},
		"future birth date": {Name: "Luis", Gender: "male", BirthDate: entities.Date{Year: 2024, Month: time.March, Day: 15}},
	}
	for name, input := range invalid {
		t.Run("rejects "+name, func(t *testing.T) {
			repo := new(MockPatientRepository)
			service := services.NewPatientService(repo, fixedClock)

			_, err := service.Create(context.Background(), doctor, input)

			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}

	t.Run("birth date today is accepted", func(t *testing.T) {
		repo := new(MockPatientRepository)
		service := services.NewPatientService(repo, fixedClock)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := service.Create(context.Background(), doctor, services.PatientInput{
			Name: "Newborn", Gender: "other", BirthDate: entities.DateOf(t0),
		})
		assert.NoError(t, err)
	})
}

func TestPatientService_Update(t *testing.T) {
	t.Run("keeps owner and creation time", func(t *testing.T) {
		repo := new(MockPatientRepository)
		service := services.NewPatientService(repo, fixedClock)

		existing := &entities.Patient{ID: "p1", Name: "Old", Gender: entities.GenderMale, OwnerID: "doc-9", CreatedAt: t0.Add(-time.Hour)}
		repo.On("GetByID", mock.Anything, "p1").Return(existing, nil)
		repo.On("Update", mock.Anything, mock.Anything).Return(nil)

		updated, err := service.Update(context.Background(), "p1", services.PatientInput{Name: "New", Gender: "male", Notes: "allergic"})

		require.NoError(t, err)
		assert.Equal(t, "New", updated.Name)
		assert.Equal(t, "allergic", updated.Notes)
		assert.Equal(t, "doc-9", updated.OwnerID)
		assert.Equal(t, t0.Add(-time.Hour), updated.CreatedAt)
	})

	t.Run("propagates not found", func(t *testing.T) {
		repo := new(MockPatientRepository)
		service := services.NewPatientService(repo, fixedClock)
		repo.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NewNotFoundError("patient not found"))

		_, err := service.Update(context.Background(), "missing", services.PatientInput{Name: "X", Gender: "male"})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestPatientService_Delete(t *testing.T) {
	repo := new(MockPatientRepository)
	service := services.NewPatientService(repo, fixedClock)
	repo.On("Delete", mock.Anything, "p1").Return(nil)

	assert.NoError(t, service.Delete(context.Background(), "p1"))
	repo.AssertExpectations(t)
}
