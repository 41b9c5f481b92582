package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/events"
	"github.com/kozaktomas/face-attendance/internal/facecache"
	"github.com/kozaktomas/face-attendance/internal/health"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// backend is everything a command needs to work with face data: the
// PostgreSQL repositories, this process's encoding cache and the optional
// Redis and RabbitMQ side channels.
type backend struct {
	cfg       *config.Config
	log       logrus.FieldLogger
	employees database.EmployeeWriter
	cache     *facecache.Cache
	service   *attendance.Service
	checker   *health.Checker

	redis       *redis.Client
	broadcaster *events.RedisBroadcaster
	publisher   *events.AMQPPublisher
	async       *events.AsyncPublisher
}

// registerBackends registers the PostgreSQL repositories with the database
// provider.
func registerBackends(pool *postgres.Pool) {
	employeeRepo := postgres.NewEmployeeRepository(pool)
	attendanceRepo := postgres.NewAttendanceRepository(pool)
	attemptRepo := postgres.NewAttemptRepository(pool)
	database.RegisterPostgresBackend(
		func() database.EmployeeWriter { return employeeRepo },
		func() database.AttendanceWriter { return attendanceRepo },
		func() database.AttemptRecorder { return attemptRepo },
	)
}

// openBackend connects to PostgreSQL, runs migrations and wires the
// recognition service. Redis and RabbitMQ are used when configured; a Redis
// outage only downgrades invalidation to this process.
func openBackend(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*backend, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	applied, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	for _, file := range applied {
		log.WithField("migration", file).Info("applied migration")
	}
	registerBackends(postgres.GetGlobalPool())

	employees, err := database.GetEmployeeWriter(ctx)
	if err != nil {
		return nil, err
	}
	records, err := database.GetAttendanceWriter(ctx)
	if err != nil {
		return nil, err
	}
	attempts := database.GetAttemptRecorder(ctx)

	b := &backend{cfg: cfg, log: log, employees: employees}
	b.cache = facecache.New(employees, cfg.Recognition.CacheValidity(), facecache.WithLogger(log))

	deps := attendance.Deps{
		Employees:  employees,
		Attendance: records,
		Attempts:   attempts,
		Cache:      b.cache,
	}

	if cfg.Redis.URL != "" {
		client, err := events.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, cache invalidation stays local")
		} else {
			b.redis = client
			b.broadcaster = events.NewRedisBroadcaster(client, cfg.Redis.Channel, log)
			deps.Notifier = b.broadcaster
		}
	}
	if cfg.RabbitMQ.URL != "" {
		b.publisher = events.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		b.async = events.NewAsyncPublisher(b.publisher, constants.EventBuffer, constants.EventPublishTimeout, log)
		deps.Events = b.async
	}

	b.service = attendance.NewService(deps, cfg.Recognition, log)
	b.checker = health.NewChecker(health.Deps{
		Employees:  employees,
		Attendance: records,
		Attempts:   attempts,
		Cache:      b.cache,
	}, cfg, log)
	return b, nil
}

// Close releases the side channels and the database pool.
func (b *backend) Close() {
	if b.async != nil {
		_ = b.async.Close()
	}
	if b.publisher != nil {
		if err := b.publisher.Close(); err != nil {
			b.log.WithError(err).Warn("closing RabbitMQ publisher")
		}
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if pool := postgres.GetGlobalPool(); pool != nil {
		_ = pool.Close()
	}
	database.ResetBackend()
}
