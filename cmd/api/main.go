package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Rakhazzan/SINTESIS/internal/adapters/auth"
	"github.com/Rakhazzan/SINTESIS/internal/adapters/database"
	"github.com/Rakhazzan/SINTESIS/internal/adapters/events"
	"github.com/Rakhazzan/SINTESIS/internal/adapters/preferences"
	"github.com/Rakhazzan/SINTESIS/internal/api/handlers"
	"github.com/Rakhazzan/SINTESIS/internal/api/middleware"
	"github.com/Rakhazzan/SINTESIS/internal/api/routes"
	"github.com/Rakhazzan/SINTESIS/internal/application/loaders"
	"github.com/Rakhazzan/SINTESIS/internal/application/services"
	"github.com/Rakhazzan/SINTESIS/internal/domain/providers"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/clients/postgres"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/clients/redis"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/clients/sqlite"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/observability"
	"github.com/Rakhazzan/SINTESIS/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Log.Env, cfg.Log.Level)
	log.Info().Str("env", cfg.Log.Env).Msg("starting API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled {
		shutdown, err := observability.Setup(ctx, observability.SetupOptions{
			ServiceName:    cfg.OTEL.ServiceName,
			ServiceVersion: cfg.OTEL.ServiceVersion,
			Endpoint:       cfg.OTEL.Endpoint,
			ExportLogs:     cfg.OTEL.ExportLogs,
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize OpenTelemetry")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Error().Err(err).Msg("failed to shutdown OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize metrics")
	}
	registry := observability.NewRegistry()
	syncMetrics := observability.NewSyncMetrics(registry)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	if cfg.Database.Migrate {
		if err := pgClient.Migrate(ctx, cfg.Realtime.NotifyChannel); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
	}
	log.Info().Msg("PostgreSQL client initialized")

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Redis client")
		}
		defer redisClient.Close()
		log.Info().Msg("Redis client initialized")
	}

	var feed providers.ChangeFeed
	if redisClient != nil {
		feed = events.NewRedisEventBus(redisClient)
	} else {
		feed = events.NewMemoryEventBus()
		if !cfg.Realtime.EmbeddedRelay {
			log.Warn().Msg("in-process change feed without embedded relay; views will not receive live changes")
		}
	}
	defer feed.Close()

	if cfg.Realtime.EmbeddedRelay {
		source := events.NewPostgresChangeSource(
			pgClient.DSN(),
			cfg.Realtime.NotifyChannel,
			feed,
			cfg.Realtime.MinReconnect,
			cfg.Realtime.MaxReconnect,
		)
		go func() {
			if err := source.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("change relay stopped")
			}
		}()
		log.Info().Str("channel", cfg.Realtime.NotifyChannel).Msg("embedded change relay started")
	}

	store, closeStore, err := openPreferenceStore(ctx, cfg, redisClient)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Preferences.Backend).Msg("failed to initialize preference store")
	}
	defer closeStore()

	patientRepo := database.NewPatientAdapter(pgClient)
	appointmentRepo := database.NewAppointmentAdapter(pgClient)
	messageRepo := database.NewMessageAdapter(pgClient)
	userRepo := database.NewUserAdapter(pgClient)

	ld := loaders.New(patientRepo, userRepo)
	sessions := services.NewSessions()

	patientService := services.NewPatientService(patientRepo, time.Now)
	appointmentService := services.NewAppointmentService(appointmentRepo, patientRepo, ld, time.Now)
	messageService := services.NewMessageService(messageRepo, userRepo, ld, sessions)
	profileService := services.NewProfileService(userRepo)
	settingsService := services.NewSettingsService(store)
	dashboardService := services.NewDashboardService(patientRepo, appointmentRepo, messageRepo, appointmentService, time.Now)

	views := services.NewViews(feed, patientRepo, messageRepo, appointmentService, dashboardService, services.ViewsConfig{
		FetchTimeout: cfg.Realtime.FetchTimeout,
		EchoWindow:   cfg.Realtime.EchoWindow,
		Metrics:      syncMetrics,
		Now:          time.Now,
	})

	limiter := middleware.NewUserRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	stopLimiter := make(chan struct{})
	defer close(stopLimiter)
	go limiter.Run(stopLimiter)

	router := routes.NewRouter(routes.Options{
		Patients:       handlers.NewPatientHandler(patientService),
		Appointments:   handlers.NewAppointmentHandler(appointmentService, time.Now),
		Messages:       handlers.NewMessageHandler(messageService),
		Profile:        handlers.NewProfileHandler(profileService, settingsService),
		Streams:        handlers.NewSSEHandler(views, sessions, messageService, metrics, cfg.Realtime.HeartbeatEvery, time.Now),
		Verifier:       auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience),
		Limiter:        limiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gatherer:       registry,
		Metrics:        metrics,
	})

	// WriteTimeout stays unset: event streams are long-lived responses.
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancelling the base context ends open streams so Shutdown can drain.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

func openPreferenceStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (providers.PreferenceStore, func(), error) {
	switch cfg.Preferences.Backend {
	case "redis":
		return preferences.NewRedisStore(redisClient), func() {}, nil
	case "memory":
		return preferences.NewMemoryStore(), func() {}, nil
	default:
		client, err := sqlite.Open(cfg.Preferences.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := preferences.NewSQLiteStore(ctx, client)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, func() { client.Close() }, nil
	}
}
