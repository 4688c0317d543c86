package entities

import (
	"strconv"
	"strings"
	"time"
)

// Appointment represents a scheduled appointment with a patient
type Appointment struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Date        Date      `json:"date" db:"date"`
	Time        string    `json:"time" db:"time"`
	PatientID   string    `json:"patient_id" db:"patient_id"`
	CreatedBy   string    `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Hour returns the hour of the appointment's time of day. ok is false when
// the stored time cannot be read.
func (a *Appointment) Hour() (hour int, ok bool) {
	head, _, _ := strings.Cut(strings.TrimSpace(a.Time), ":")
	h, err := strconv.Atoi(head)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

// ValidTimeOfDay reports whether s is an HH:MM or HH:MM:SS time of day
func ValidTimeOfDay(s string) bool {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// AppointmentView is an appointment joined with its patient. Patient is nil
// when the referenced patient has been deleted.
type AppointmentView struct {
	Appointment
	Patient *PatientSummary `json:"patient"`
}

// PatientName returns the joined patient's name or UnknownPatientName
func (v *AppointmentView) PatientName() string {
	if v.Patient == nil || v.Patient.Name == "" {
		return UnknownPatientName
	}
	return v.Patient.Name
}

// PatientPhone returns the joined patient's phone, if any
func (v *AppointmentView) PatientPhone() string {
	if v.Patient == nil {
		return ""
	}
	return v.Patient.Phone
}
