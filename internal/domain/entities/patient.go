package entities

import (
	"time"
)

// Gender of a patient as captured by the patient form
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid reports whether g is one of the known genders
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// UnknownPatientName is displayed for appointments whose patient no longer exists
const UnknownPatientName = "Paciente Desconocido"

// Patient represents a patient of the office
type Patient struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	BirthDate Date      `json:"birth_date" db:"birth_date"`
	Gender    Gender    `json:"gender" db:"gender"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	Notes     string    `json:"notes,omitempty" db:"notes"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PatientSummary is the part of a patient shown next to an appointment
type PatientSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// Summary returns the appointment-facing view of p
func (p *Patient) Summary() *PatientSummary {
	if p == nil {
		return nil
	}
	return &PatientSummary{ID: p.ID, Name: p.Name, Phone: p.Phone}
}
