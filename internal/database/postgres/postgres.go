package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"rental-service/internal/config"
)

func dsn(cfg config.PostgresConfig, dbname string) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, dbname, cfg.SSLMode)
}

// ConnectAndCreateDB connects to the configured database, creating it first
// through the maintenance "postgres" database when it does not exist.
func ConnectAndCreateDB(ctx context.Context, cfg config.PostgresConfig) (*sqlx.DB, error) {
	slog.Info("connecting to postgres", "host", cfg.Host, "port", cfg.Port, "user", cfg.Username, "db", cfg.DBname)

	defaultDB, err := sql.Open("postgres", dsn(cfg, "postgres"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to default postgres db: %w", err)
	}
	defer defaultDB.Close()

	var exists bool
	checkQuery := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`
	if err := defaultDB.QueryRowContext(ctx, checkQuery, cfg.DBname).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check if database exists: %w", err)
	}

	if !exists {
		createQuery := fmt.Sprintf(`CREATE DATABASE "%s"`, cfg.DBname)
		if _, err := defaultDB.ExecContext(ctx, createQuery); err != nil {
			return nil, fmt.Errorf("failed to create database %s: %w", cfg.DBname, err)
		}
		slog.Info("database created", "db", cfg.DBname)
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn(cfg, cfg.DBname))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to target database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// ConnectWithRetry keeps trying ConnectAndCreateDB until it succeeds, the
// attempts run out, or ctx is cancelled.
func ConnectWithRetry(ctx context.Context, cfg config.PostgresConfig, attempts int, wait time.Duration) (*sqlx.DB, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := ConnectAndCreateDB(ctx, cfg)
		if err == nil {
			return db, nil
		}
		lastErr = err
		slog.Warn("database connection failed, retrying", "attempt", i, "wait", wait, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", attempts, lastErr)
}

// Migrate applies Schema statement by statement. Every statement is
// idempotent so it is safe to run on each start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	statements := strings.Split(Schema, ";")

	applied := 0
	for i, statement := range statements {
		statement = strings.TrimSpace(statement)
		if statement == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
		applied++
	}

	slog.Info("schema applied", "statements", applied, "driver", db.DriverName())
	return nil
}
