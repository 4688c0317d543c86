package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/repositories"
)

// NextAppointmentsLimit caps the appointments listed on the dashboard
const NextAppointmentsLimit = 5

// DashboardService computes the overview cards
type DashboardService struct {
	patients     repositories.PatientRepository
	appointments repositories.AppointmentRepository
	messages     repositories.MessageRepository
	joiner       *AppointmentService
	now          func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	patients repositories.PatientRepository,
	appointments repositories.AppointmentRepository,
	messages repositories.MessageRepository,
	joiner *AppointmentService,
	now func() time.Time,
) *DashboardService {
	if now == nil {
		now = time.Now
	}
	return &DashboardService{
		patients:     patients,
		appointments: appointments,
		messages:     messages,
		joiner:       joiner,
		now:          now,
	}
}

// Stats builds the dashboard for self
func (s *DashboardService) Stats(ctx context.Context, self string) (*entities.DashboardStats, error) {
	today := entities.DateOf(s.now())
	stats := &entities.DashboardStats{}

	var err error
	if stats.TotalPatients, err = s.patients.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}
	if stats.TodayAppointments, err = s.appointments.CountOnDate(ctx, today); err != nil {
		return nil, fmt.Errorf("failed to count today's appointments: %w", err)
	}
	if stats.UpcomingAppointments, err = s.appointments.CountFrom(ctx, today); err != nil {
		return nil, fmt.Errorf("failed to count upcoming appointments: %w", err)
	}
	if stats.UnreadMessages, err = s.messages.CountUnread(ctx, self); err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}

	next, err := s.appointments.List(ctx, repositories.AppointmentFilter{From: &today, Limit: NextAppointmentsLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to list next appointments: %w", err)
	}
	if stats.NextAppointments, err = s.joiner.Join(ctx, next); err != nil {
		return nil, err
	}
	return stats, nil
}
