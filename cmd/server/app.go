package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"rental-service/internal/config"
	"rental-service/internal/database/minio"
	"rental-service/internal/database/postgres"
	redisdb "rental-service/internal/database/redis"
	"rental-service/internal/event"
	"rental-service/internal/handlers"
	"rental-service/internal/mail"
	"rental-service/internal/metrics"
	"rental-service/internal/repository"
	"rental-service/internal/security"
	"rental-service/internal/services"
)

type application struct {
	db       *sqlx.DB
	redis    *redisdb.Client
	rabbit   *event.RabbitMQConnection
	metrics  *metrics.Metrics
	services handlers.Services
}

// buildApp connects every backing store and wires the services on top.
// Redis, RabbitMQ and SMTP are optional and fall back to in-process or
// disabled channels.
func buildApp(ctx context.Context, cfg *config.RentalServiceConfig) (*application, error) {
	a := &application{metrics: metrics.New()}

	slog.Info("connecting to postgres",
		"host", cfg.PostgresCfg.Host, "port", cfg.PostgresCfg.Port,
		"user", cfg.PostgresCfg.Username, "dbname", cfg.PostgresCfg.DBname)
	db, err := postgres.ConnectWithRetry(ctx, cfg.PostgresCfg, 10, 3*time.Second)
	if err != nil {
		return nil, err
	}
	a.db = db
	if err := postgres.Migrate(ctx, db); err != nil {
		a.Close()
		return nil, err
	}

	cipher, err := security.NewFieldCipher(cfg.AuthCfg.PIIKey)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("PII_ENCRYPTION_KEY: %w", err)
	}

	sessions := repository.NewMemorySessionRepository(cfg.AuthCfg.TokenTTL)
	var locker services.Locker
	if cfg.RedisCfg.Enabled {
		client, err := redisdb.NewRedisClient(cfg.RedisCfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		sessions = repository.NewRedisSessionRepository(client.GetClient(), cfg.AuthCfg.TokenTTL)
		locker = services.NewRedisLocker(client)
	} else {
		slog.Warn("redis disabled, sessions are kept in memory and the sweep runs unlocked")
	}

	blobs, err := minio.NewMinioClient(ctx, cfg.MinioCfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var email services.EmailSender
	if cfg.SMTPCfg.Enabled {
		email = mail.NewEmailService(cfg.SMTPCfg)
	}

	var publisher services.EventPublisher
	if cfg.RabbitMQCfg.Enabled {
		conn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.rabbit = conn
		publisher = event.NewNotificationPublisher(conn, cfg.RabbitMQCfg.Queue)
	}

	userRepo := repository.NewUserRepository(db)
	apartmentRepo := repository.NewApartmentRepository(db)
	contractRepo := repository.NewContractRepository(db)
	billingRepo := repository.NewBillingRepository(db)

	users := services.NewUserService(userRepo,
		services.NewSessionService(sessions),
		services.NewJWTService(cfg.AuthCfg.JWTSecret, cfg.AuthCfg.TokenTTL),
		cipher,
		cfg.AuthCfg)
	notifications := services.NewNotificationService(repository.NewNotificationRepository(db), userRepo, email, publisher, a.metrics)
	files := services.NewFileService(repository.NewFileRepository(db), blobs, cfg.UploadCfg, cfg.MinioCfg.PresignExpiry)
	apartments := services.NewApartmentService(db, apartmentRepo, userRepo, contractRepo, files)

	a.services = handlers.Services{
		Users:         users,
		Apartments:    apartments,
		Contracts:     services.NewContractService(db, contractRepo, apartmentRepo, notifications),
		Billings:      services.NewBillingService(db, billingRepo, contractRepo, apartmentRepo, notifications, a.metrics),
		Payments:      services.NewPaymentService(db, repository.NewPaymentRepository(db), billingRepo, userRepo, notifications, a.metrics),
		Bids:          services.NewBidService(db, repository.NewBidRepository(db), apartmentRepo, apartments, notifications),
		Files:         files,
		Notifications: notifications,
		Sweep: services.NewSweepService(billingRepo, repository.NewReminderRepository(db), notifications,
			locker, cfg.SweepCfg.LockTTL, a.metrics),
	}

	if cfg.AuthCfg.AdminEmail != "" {
		if err := users.EnsureAdmin(ctx, cfg.AuthCfg.AdminEmail, cfg.AuthCfg.AdminPassword); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to seed admin: %w", err)
		}
	}
	return a, nil
}

func (a *application) Close() {
	if a.rabbit != nil {
		if err := a.rabbit.Close(); err != nil {
			slog.Error("failed to close rabbitmq connection", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Error("failed to close redis client", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}
}
