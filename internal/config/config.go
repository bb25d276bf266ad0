package config

import (
	"os"
	"strconv"
	"time"
)

type RentalServiceConfig struct {
	Port        string
	Environment string
	LogDir      string
	PostgresCfg PostgresConfig
	RedisCfg    RedisConfig
	MinioCfg    MinioConfig
	RabbitMQCfg RabbitMQConfig
	SMTPCfg     SMTPConfig
	AuthCfg     AuthConfig
	SweepCfg    SweepConfig
	UploadCfg   UploadConfig
}

type PostgresConfig struct {
	DBname   string
	Username string
	Password string
	Host     string
	Port     string
	SSLMode  string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type MinioConfig struct {
	MinioURL       string
	MinioAccessKey string
	MinioSecretKey string
	MinioLocation  string
	MinioSecure    string
	PresignExpiry  time.Duration
}

type RabbitMQConfig struct {
	Enabled  bool
	Username string
	Password string
	Host     string
	Port     string
	Queue    string
}

type SMTPConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type AuthConfig struct {
	JWTSecret        string
	TokenTTL         time.Duration
	PIIKey           string
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	AdminEmail       string
	AdminPassword    string
}

type SweepConfig struct {
	Enabled  bool
	Interval time.Duration
	LockTTL  time.Duration
	Workers  int
}

type UploadConfig struct {
	MaxImageMB int64
	MaxPDFMB   int64
	MaxVideoMB int64
	MaxDocMB   int64
}

func New() *RentalServiceConfig {
	return &RentalServiceConfig{
		Port:        getEnvOrDefault("PORT", "8080"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		LogDir:      getEnvOrDefault("LOG_DIR", ""),
		PostgresCfg: PostgresConfig{
			DBname:   getEnvOrDefault("POSTGRES_DB", "rental"),
			Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
			SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		},
		RedisCfg: RedisConfig{
			Enabled:  getBoolOrDefault("REDIS_ENABLED", true),
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		MinioCfg: MinioConfig{
			MinioURL:       getEnvOrDefault("MINIO_ENDPOINT", "http://localhost:9000"),
			MinioAccessKey: getEnvOrDefault("MINIO_ACCESS_KEY", "minio"),
			MinioSecretKey: getEnvOrDefault("MINIO_SECRET_KEY", "minio123"),
			MinioLocation:  getEnvOrDefault("MINIO_LOCATION", "us-east-1"),
			MinioSecure:    getEnvOrDefault("MINIO_SECURE", "false"),
			PresignExpiry:  getDurationOrDefault("MINIO_PRESIGN_EXPIRY", 15*time.Minute),
		},
		RabbitMQCfg: RabbitMQConfig{
			Enabled:  getBoolOrDefault("RABBITMQ_ENABLED", false),
			Username: getEnvOrDefault("RABBITMQ_USER", "guest"),
			Password: getEnvOrDefault("RABBITMQ_PWD", "guest"),
			Host:     getEnvOrDefault("RABBITMQ_HOST", "localhost"),
			Port:     getEnvOrDefault("RABBITMQ_PORT", "5672"),
			Queue:    getEnvOrDefault("RABBITMQ_NOTIFICATION_QUEUE", "rental_notification_events"),
		},
		SMTPCfg: SMTPConfig{
			Enabled:  getBoolOrDefault("SMTP_ENABLED", false),
			Host:     getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
			Port:     getIntOrDefault("SMTP_PORT", 587),
			Username: getEnvOrDefault("SMTP_USERNAME", ""),
			Password: getEnvOrDefault("SMTP_PASSWORD", ""),
			From:     getEnvOrDefault("SMTP_FROM", "no-reply@rental.local"),
		},
		AuthCfg: AuthConfig{
			JWTSecret:        getEnvOrDefault("JWT_SECRET", "change-me"),
			TokenTTL:         getDurationOrDefault("TOKEN_TTL", 24*time.Hour),
			PIIKey:           getEnvOrDefault("PII_ENCRYPTION_KEY", ""),
			MaxLoginAttempts: getIntOrDefault("MAX_LOGIN_ATTEMPTS", 5),
			LockoutDuration:  getDurationOrDefault("LOGIN_LOCKOUT", 15*time.Minute),
			AdminEmail:       getEnvOrDefault("ADMIN_EMAIL", ""),
			AdminPassword:    getEnvOrDefault("ADMIN_PASSWORD", ""),
		},
		SweepCfg: SweepConfig{
			Enabled:  getBoolOrDefault("SWEEP_ENABLED", true),
			Interval: getDurationOrDefault("SWEEP_INTERVAL", 24*time.Hour),
			LockTTL:  getDurationOrDefault("SWEEP_LOCK_TTL", 10*time.Minute),
			Workers:  getIntOrDefault("SWEEP_WORKERS", 2),
		},
		UploadCfg: UploadConfig{
			MaxImageMB: int64(getIntOrDefault("UPLOAD_MAX_IMAGE_MB", 10)),
			MaxPDFMB:   int64(getIntOrDefault("UPLOAD_MAX_PDF_MB", 20)),
			MaxVideoMB: int64(getIntOrDefault("UPLOAD_MAX_VIDEO_MB", 200)),
			MaxDocMB:   int64(getIntOrDefault("UPLOAD_MAX_DOC_MB", 20)),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
