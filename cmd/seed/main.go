// Command seed loads demo users and appointments into Postgres.
//
// It creates one patient, two providers and the designated admin, replaces
// all appointments with a small fixed set, and optionally adds -fake extra
// patients with generated names.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/crypto/bcrypt"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
	"github.com/healthtech/clinic-scheduler/internal/infrastructure/db/postgres"
	"github.com/healthtech/clinic-scheduler/pkg/logger"
)

const (
	standardPassword = "password123"
	adminPassword    = "Password123"
	adminEmail       = "admin@healthtech.com"
)

type seedConfig struct {
	DatabaseURL string `env:"DATABASE_URL, required"`
	LogLevel    string `env:"LOG_LEVEL, default=info"`
}

type seedUser struct {
	key      string
	email    string
	name     string
	role     string
	password string
}

var users = []seedUser{
	{key: "patient", email: "john@example.com", name: "John Doe", role: "patient", password: standardPassword},
	{key: "sarah", email: "sarah@clinic.com", name: "Dr. Sarah Smith", role: "provider", password: standardPassword},
	{key: "mike", email: "mike@clinic.com", name: "Dr. Mike Johnson", role: "provider", password: standardPassword},
	{key: "admin", email: adminEmail, name: "Master Administrator", role: "admin", password: adminPassword},
}

type seedAppointment struct {
	patient, provider string
	date, time        string
	status, reason    string
}

var appointments = []seedAppointment{
	{"patient", "sarah", "2026-01-15", "10:00", "booked", "Annual Checkup"},
	{"patient", "mike", "2026-01-20", "14:00", "booked", "Follow-up Visit"},
	{"patient", "sarah", "2025-12-10", "09:00", "completed", "Blood Test Results"},
}

func main() {
	fake := flag.Int("fake", 0, "number of extra patients with generated names")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "read .env: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var cfg seedConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Service: "seed"})

	pool, err := postgres.Connect(ctx, postgres.Config{URL: cfg.DatabaseURL, MaxConns: 2})
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	if err := seed(ctx, pool, *fake, log); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	log.Info().Msg("seed complete")
	log.Info().Msgf("patient:  john@example.com / %s", standardPassword)
	log.Info().Msgf("provider: sarah@clinic.com / %s", standardPassword)
	log.Info().Msgf("provider: mike@clinic.com  / %s", standardPassword)
	log.Info().Msgf("admin:    %s / %s", adminEmail, adminPassword)
}

func seed(ctx context.Context, pool *pgxpool.Pool, fake int, log zerolog.Logger) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make(map[string]int64, len(users))
	for _, u := range users {
		id, err := upsertUser(ctx, tx, u)
		if err != nil {
			return fmt.Errorf("user %s: %w", u.email, err)
		}
		ids[u.key] = id
	}
	log.Info().Int("users", len(users)).Msg("users and admin ready")

	if _, err := tx.Exec(ctx, `DELETE FROM appointments`); err != nil {
		return fmt.Errorf("clear appointments: %w", err)
	}
	for _, a := range appointments {
		date, err := domain.ParseDate(a.date)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO appointments (patient_id, provider_id, appointment_date, slot_time, status, reason)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, ids[a.patient], ids[a.provider], date, a.time, a.status, a.reason)
		if err != nil {
			return fmt.Errorf("appointment %s %s: %w", a.date, a.time, err)
		}
	}
	log.Info().Int("appointments", len(appointments)).Msg("appointments created")

	if fake > 0 {
		if err := seedFakePatients(ctx, tx, fake); err != nil {
			return err
		}
		log.Info().Int("patients", fake).Msg("fake patients created")
	}

	return tx.Commit(ctx)
}

// upsertUser creates the user or returns the existing id. The admin password
// is always reset so the documented credentials keep working.
func upsertUser(ctx context.Context, tx pgx.Tx, u seedUser) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET password_hash = CASE WHEN users.role = 'admin' THEN EXCLUDED.password_hash ELSE users.password_hash END,
		    updated_at = now()
		RETURNING id
	`, u.email, string(hash), u.name, u.role).Scan(&id)
	return id, err
}

func seedFakePatients(ctx context.Context, tx pgx.Tx, n int) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(standardPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	faker := gofakeit.New(uint64(time.Now().UnixNano()))
	for i := 0; i < n; i++ {
		name := faker.Name()
		email := fmt.Sprintf("%s.%d@example.com", strings.ToLower(faker.Username()), i)
		if _, err := tx.Exec(ctx, `
			INSERT INTO users (email, password_hash, name, role)
			VALUES ($1, $2, $3, 'patient')
			ON CONFLICT (email) DO NOTHING
		`, email, string(hash), name); err != nil {
			return fmt.Errorf("fake patient %d: %w", i, err)
		}
	}
	return nil
}
