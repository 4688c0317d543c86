package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Rakhazzan/SINTESIS/internal/api/handlers"
	"github.com/Rakhazzan/SINTESIS/internal/api/middleware"
	"github.com/Rakhazzan/SINTESIS/internal/domain/providers"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	patientHandler     *handlers.PatientHandler
	appointmentHandler *handlers.AppointmentHandler
	messageHandler     *handlers.MessageHandler
	profileHandler     *handlers.ProfileHandler
	sseHandler         *handlers.SSEHandler

	verifier       providers.SessionVerifier
	limiter        *middleware.UserRateLimiter
	allowedOrigins []string
	gatherer       prometheus.Gatherer
	metrics        *observability.Metrics
}

// Options collects the handlers and cross-cutting dependencies of the router
type Options struct {
	Patients       *handlers.PatientHandler
	Appointments   *handlers.AppointmentHandler
	Messages       *handlers.MessageHandler
	Profile        *handlers.ProfileHandler
	Streams        *handlers.SSEHandler
	Verifier       providers.SessionVerifier
	Limiter        *middleware.UserRateLimiter
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer
	Metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(opts Options) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		patientHandler:     opts.Patients,
		appointmentHandler: opts.Appointments,
		messageHandler:     opts.Messages,
		profileHandler:     opts.Profile,
		sseHandler:         opts.Streams,
		verifier:           opts.Verifier,
		limiter:            opts.Limiter,
		allowedOrigins:     opts.AllowedOrigins,
		gatherer:           opts.Gatherer,
		metrics:            opts.Metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	if r.gatherer != nil {
		r.mux.Handle("GET /metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	}

	api := http.NewServeMux()

	// Patient endpoints
	api.HandleFunc("GET /api/patients", r.patientHandler.ListPatients)
	api.HandleFunc("POST /api/patients", r.patientHandler.CreatePatient)
	api.HandleFunc("GET /api/patients/{id}", r.patientHandler.GetPatient)
	api.HandleFunc("PUT /api/patients/{id}", r.patientHandler.UpdatePatient)
	api.HandleFunc("DELETE /api/patients/{id}", r.patientHandler.DeletePatient)

	// Appointment endpoints
	api.HandleFunc("GET /api/appointments", r.appointmentHandler.ListAppointments)
	api.HandleFunc("POST /api/appointments", r.appointmentHandler.CreateAppointment)
	api.HandleFunc("GET /api/appointments/{id}", r.appointmentHandler.GetAppointment)
	api.HandleFunc("PUT /api/appointments/{id}", r.appointmentHandler.UpdateAppointment)
	api.HandleFunc("DELETE /api/appointments/{id}", r.appointmentHandler.DeleteAppointment)

	// Messaging endpoints
	api.HandleFunc("GET /api/contacts", r.messageHandler.ListContacts)
	api.HandleFunc("POST /api/messages/{peerID}", r.messageHandler.SendMessage)

	// Profile and preferences
	api.HandleFunc("GET /api/profile", r.profileHandler.GetProfile)
	api.HandleFunc("PUT /api/profile", r.profileHandler.UpdateProfile)
	api.HandleFunc("GET /api/settings", r.profileHandler.GetSettings)
	api.HandleFunc("PUT /api/settings", r.profileHandler.UpdateSettings)
	api.HandleFunc("POST /api/session/end", r.profileHandler.EndSession)

	// Live views
	api.HandleFunc("GET /api/stream/patients", r.sseHandler.StreamPatients)
	api.HandleFunc("GET /api/stream/appointments", r.sseHandler.StreamAppointments)
	api.HandleFunc("GET /api/stream/messages/{peerID}", r.sseHandler.StreamConversation)
	api.HandleFunc("GET /api/stream/unread", r.sseHandler.StreamUnread)
	api.HandleFunc("GET /api/stream/dashboard", r.sseHandler.StreamDashboard)

	var protected http.Handler = api
	if r.limiter != nil {
		protected = middleware.RateLimitMiddleware(r.limiter)(protected)
	}
	protected = middleware.AuthMiddleware(r.verifier)(protected)
	r.mux.Handle("/api/", protected)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so preflight requests never reach auth
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
