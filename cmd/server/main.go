// Command server runs the clinic scheduling API.
//
//	@title						Clinic Scheduler API
//	@version					1.0
//	@description				Appointment booking for patients, providers and clinic staff.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/healthtech/clinic-scheduler/internal/api"
	"github.com/healthtech/clinic-scheduler/internal/api/handler"
	"github.com/healthtech/clinic-scheduler/internal/api/middleware"
	"github.com/healthtech/clinic-scheduler/internal/core/ports"
	"github.com/healthtech/clinic-scheduler/internal/core/service"
	"github.com/healthtech/clinic-scheduler/internal/infrastructure/config"
	"github.com/healthtech/clinic-scheduler/internal/infrastructure/db/mongo"
	"github.com/healthtech/clinic-scheduler/internal/infrastructure/db/postgres"
	"github.com/healthtech/clinic-scheduler/internal/infrastructure/db/redis"
	"github.com/healthtech/clinic-scheduler/internal/infrastructure/messaging"
	"github.com/healthtech/clinic-scheduler/internal/infrastructure/queue"
	"github.com/healthtech/clinic-scheduler/internal/infrastructure/telemetry"
	"github.com/healthtech/clinic-scheduler/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		l := logger.Init(logger.Options{})
		l.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.Telemetry.ServiceName,
	})
	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("clinic scheduler starting")

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("clinic scheduler stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	otelShutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("otel shutdown")
		}
	}()

	// --- Postgres (required) ---
	pool, err := postgres.Connect(ctx, postgres.Config{URL: cfg.Postgres.URL, MaxConns: cfg.Postgres.MaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()
	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
	}
	log.Info().Msg("connected to postgres")

	userRepo := postgres.NewUserRepository(pool)
	appointmentRepo := postgres.NewAppointmentRepository(pool)
	checks := []handler.DependencyCheck{handler.PostgresCheck(pool)}

	var workers sync.WaitGroup
	opts := service.AppointmentOptions{
		SlotTimes: cfg.SlotTimes,
		Location:  cfg.Location(),
	}

	// --- Redis slot lock (optional) ---
	if cfg.Redis.Enabled {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		opts.Locker = redis.NewSlotLocker(rdb, cfg.Redis.LockTTL)
		checks = append(checks, handler.RedisCheck(rdb))
		log.Info().Msg("connected to redis, slot locking enabled")
	}

	// --- Mongo audit trail (optional) ---
	if cfg.Mongo.Enabled {
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		auditRepo := mongo.NewAuditRepository(db)
		if err := auditRepo.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("audit indexes not created")
		}
		dispatcher := queue.NewDispatcher(cfg.Mongo.Workers, service.NewAuditService(auditRepo, logger.Component("audit")), logger.Component("audit"))
		dispatcher.Start(ctx)
		workers.Add(1)
		go func() {
			defer workers.Done()
			dispatcher.Wait()
		}()

		opts.Audit = dispatcher
		checks = append(checks, handler.MongoCheck(db))
		log.Info().Int("workers", cfg.Mongo.Workers).Msg("connected to mongo, audit trail enabled")
	}

	// --- Kafka outbox relay (optional) ---
	if cfg.Kafka.Enabled {
		publisher := messaging.NewPublisher(postgres.NewOutboxRepository(pool), messaging.PublisherConfig{
			Brokers:   cfg.Kafka.Brokers,
			PollEvery: cfg.Kafka.PollEvery,
			BatchSize: cfg.Kafka.BatchSize,
		}, logger.Component("outbox"))
		if publisher == nil {
			log.Warn().Msg("kafka enabled without brokers, outbox relay disabled")
		} else {
			workers.Add(1)
			go func() {
				defer workers.Done()
				publisher.Run(ctx)
			}()
		}
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go limiter.Run(ctx)

	var (
		authSvc        ports.AuthService        = service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
		appointmentSvc ports.AppointmentService = service.NewAppointmentService(appointmentRepo, userRepo, logger.Component("appointments"), opts)
		userSvc        ports.UserService        = service.NewUserService(userRepo, appointmentRepo)
	)

	e := api.NewRouter(api.Dependencies{
		Logger:       log,
		JWTSecret:    cfg.JWTSecret,
		CORSOrigins:  cfg.CORSOrigins,
		Auth:         authSvc,
		Appointments: appointmentSvc,
		Users:        userSvc,
		RateLimiter:  limiter,
		HealthChecks: checks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(e, "clinic-api"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	shutdownErr := srv.Shutdown(shutdownCtx)

	// Background workers flush after the last request has been served.
	cancel()
	workers.Wait()

	return errors.Join(serveErr, shutdownErr)
}
