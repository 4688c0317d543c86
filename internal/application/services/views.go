package services

import (
	"context"
	"time"

	"github.com/Rakhazzan/SINTESIS/internal/application/chat"
	"github.com/Rakhazzan/SINTESIS/internal/application/livesync"
	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/providers"
	"github.com/Rakhazzan/SINTESIS/internal/domain/repositories"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/observability"
)

// View is a mounted view that keeps itself synchronized until stopped
type View interface {
	Name() string
	Start(ctx context.Context) error
	Stop()
	Updates() <-chan struct{}
}

// ViewsConfig tunes the views built by Views
type ViewsConfig struct {
	FetchTimeout time.Duration
	EchoWindow   time.Duration
	Metrics      *observability.SyncMetrics
	Now          func() time.Time
}

// Views builds the synchronized views of the dashboard. Each call returns
// a fresh, unstarted view owning its own subscriptions.
type Views struct {
	feed         providers.ChangeFeed
	patients     repositories.PatientRepository
	messages     repositories.MessageRepository
	appointments *AppointmentService
	dashboard    *DashboardService
	cfg          ViewsConfig
}

// NewViews creates the view factory
func NewViews(
	feed providers.ChangeFeed,
	patients repositories.PatientRepository,
	messages repositories.MessageRepository,
	appointments *AppointmentService,
	dashboard *DashboardService,
	cfg ViewsConfig,
) *Views {
	return &Views{
		feed:         feed,
		patients:     patients,
		messages:     messages,
		appointments: appointments,
		dashboard:    dashboard,
		cfg:          cfg,
	}
}

// Patients is the patients list, refetched on any patient change
func (v *Views) Patients() *livesync.Controller[[]*entities.Patient] {
	return livesync.New(livesync.Options[[]*entities.Patient]{
		Name:         "patients",
		Feed:         v.feed,
		Scopes:       []providers.Scope{providers.TableScope("patients", entities.TablePatients)},
		Fetch:        v.patients.List,
		FetchTimeout: v.cfg.FetchTimeout,
		Metrics:      v.cfg.Metrics,
	})
}

// Appointments is the appointments list joined with patients. When
// patientID is set only that patient's appointments are listed.
func (v *Views) Appointments(patientID string) *livesync.Controller[[]*entities.AppointmentView] {
	appointmentScope := providers.TableScope("appointments", entities.TableAppointments)
	patientScope := providers.TableScope("appointment-patients", entities.TablePatients)
	if patientID != "" {
		appointmentScope.Filter = fieldEquals("patient_id", patientID)
		patientScope.Filter = fieldEquals("id", patientID)
	}

	return livesync.New(livesync.Options[[]*entities.AppointmentView]{
		Name:   "appointments",
		Feed:   v.feed,
		Scopes: []providers.Scope{appointmentScope, patientScope},
		Fetch: func(ctx context.Context) ([]*entities.AppointmentView, error) {
			return v.appointments.ListViews(ctx, patientID)
		},
		FetchTimeout: v.cfg.FetchTimeout,
		Metrics:      v.cfg.Metrics,
	})
}

// Conversation is the chat between self and peer
func (v *Views) Conversation(self, peer string) *chat.Conversation {
	return chat.NewConversation(chat.Options{
		Self:         self,
		Peer:         peer,
		Messages:     v.messages,
		Feed:         v.feed,
		EchoWindow:   v.cfg.EchoWindow,
		FetchTimeout: v.cfg.FetchTimeout,
		Now:          v.cfg.Now,
		Metrics:      v.cfg.Metrics,
	})
}

// Unread is the unread-messages badge of self
func (v *Views) Unread(self string) *livesync.Controller[int] {
	return chat.NewUnreadBadge(self, v.messages, v.feed, v.cfg.FetchTimeout, v.cfg.Metrics)
}

// Dashboard is the overview of self, recomputed on patient and appointment
// changes and on messages addressed to self
func (v *Views) Dashboard(self string) *livesync.Controller[*entities.DashboardStats] {
	return livesync.New(livesync.Options[*entities.DashboardStats]{
		Name: "dashboard",
		Feed: v.feed,
		Scopes: []providers.Scope{
			providers.TableScope("dashboard", entities.TablePatients, entities.TableAppointments),
			providers.ReceiverScope(self),
		},
		Fetch: func(ctx context.Context) (*entities.DashboardStats, error) {
			return v.dashboard.Stats(ctx, self)
		},
		FetchTimeout: v.cfg.FetchTimeout,
		Metrics:      v.cfg.Metrics,
	})
}

// fieldEquals matches rows whose column holds value before or after the change
func fieldEquals(field, value string) func(*entities.ChangeEvent) bool {
	return func(e *entities.ChangeEvent) bool {
		return e.Field(field) == value || e.OldField(field) == value
	}
}
