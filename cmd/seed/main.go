package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rakhazzan/SINTESIS/internal/adapters/database"
	"github.com/Rakhazzan/SINTESIS/internal/application/loaders"
	"github.com/Rakhazzan/SINTESIS/internal/application/services"
	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/clients/postgres"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/observability"
	"github.com/Rakhazzan/SINTESIS/pkg/config"
)

// seed fills a development database with two staff accounts, a handful of
// patients, their upcoming appointments and a short conversation.
// SEED_DOCTOR_ID and SEED_NURSE_ID pin the account ids so they can match
// users already known to the auth provider.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-seed", cfg.Log.Env, cfg.Log.Level)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	ctx := context.Background()
	if err := pgClient.Migrate(ctx, cfg.Realtime.NotifyChannel); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	db := pgClient.DB()
	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		if _, err := db.ExecContext(ctx, `TRUNCATE TABLE messages, appointments, patients, users`); err != nil {
			log.Fatal().Err(err).Msg("failed to reset tables")
		}
	}

	doctor := &entities.UserProfile{
		ID:         envOr("SEED_DOCTOR_ID", uuid.New().String()),
		Email:      "dra.garcia@sintesis.local",
		Name:       "Dra. Laura García",
		Phone:      "+34 600 111 222",
		Occupation: "Medicina general",
	}
	nurse := &entities.UserProfile{
		ID:         envOr("SEED_NURSE_ID", uuid.New().String()),
		Email:      "enf.martin@sintesis.local",
		Name:       "Pablo Martín",
		Phone:      "+34 600 333 444",
		Occupation: "Enfermería",
	}

	// 1. Seed staff profiles
	for _, u := range []*entities.UserProfile{doctor, nurse} {
		_, err := db.ExecContext(ctx,
			`INSERT INTO users (id, email, name, phone, occupation)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO NOTHING`,
			u.ID, u.Email, u.Name, u.Phone, u.Occupation,
		)
		if err != nil {
			log.Error().Err(err).Str("email", u.Email).Msg("failed to create user")
		}
	}

	patientRepo := database.NewPatientAdapter(pgClient)
	appointmentRepo := database.NewAppointmentAdapter(pgClient)
	messageRepo := database.NewMessageAdapter(pgClient)
	userRepo := database.NewUserAdapter(pgClient)

	patientService := services.NewPatientService(patientRepo, time.Now)
	appointmentService := services.NewAppointmentService(appointmentRepo, patientRepo, loaders.New(patientRepo, userRepo), time.Now)
	session := &entities.Session{UserID: doctor.ID, Email: doctor.Email}

	// 2. Seed patients
	inputs := []services.PatientInput{
		{Name: "Ana Torres", BirthDate: entities.Date{Year: 1984, Month: time.May, Day: 2}, Gender: "female", Phone: "+34 611 000 001"},
		{Name: "Bruno Díaz", BirthDate: entities.Date{Year: 1972, Month: time.November, Day: 19}, Gender: "male", Phone: "+34 611 000 002", Notes: "Hipertensión controlada"},
		{Name: "Carla Ruiz", BirthDate: entities.Date{Year: 1999, Month: time.February, Day: 8}, Gender: "female"},
		{Name: "Dani López", BirthDate: entities.Date{Year: 2010, Month: time.July, Day: 30}, Gender: "other", Notes: "Alergia a la penicilina"},
	}
	var patients []*entities.Patient
	for _, in := range inputs {
		p, err := patientService.Create(ctx, session, in)
		if err != nil {
			log.Error().Err(err).Str("patient", in.Name).Msg("failed to create patient")
			continue
		}
		patients = append(patients, p)
	}

	// 3. Seed appointments spread over the coming week, morning and afternoon
	today := entities.DateOf(time.Now())
	slots := []string{"09:00", "11:30", "16:00", "18:15"}
	for i, p := range patients {
		in := services.AppointmentInput{
			Title:       "Revisión",
			Description: "Consulta de seguimiento",
			Date:        today.AddDays(i),
			Time:        slots[i%len(slots)],
			PatientID:   p.ID,
		}
		if _, err := appointmentService.Create(ctx, session, in); err != nil {
			log.Error().Err(err).Str("patient", p.Name).Msg("failed to create appointment")
		}
	}

	// 4. Seed a conversation with one unread message for the doctor
	conversation := []*entities.Message{
		{SenderID: doctor.ID, ReceiverID: nurse.ID, Body: "¿Puedes preparar la sala 2?"},
		{SenderID: nurse.ID, ReceiverID: doctor.ID, Body: "Lista en cinco minutos."},
	}
	var read []string
	for _, m := range conversation {
		stored, err := messageRepo.Create(ctx, m)
		if err != nil {
			log.Error().Err(err).Msg("failed to create message")
			continue
		}
		if stored.ReceiverID == nurse.ID {
			read = append(read, stored.ID)
		}
	}
	if err := messageRepo.MarkRead(ctx, read); err != nil {
		log.Error().Err(err).Msg("failed to mark seeded messages read")
	}

	log.Info().
		Str("doctor_id", doctor.ID).
		Str("nurse_id", nurse.ID).
		Int("patients", len(patients)).
		Msg("seeding completed")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
