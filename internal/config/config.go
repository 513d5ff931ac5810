package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/money"
	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	App      AppConfig
	Payroll  PayrollConfig
	Tracing  TracingConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// RedisConfig backs the idempotency store.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port               int
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	RunMigrations      bool
}

type PayrollConfig struct {
	// ReferenceBaseSalary applies to formulas that do not carry their own.
	ReferenceBaseSalary money.Amount
	// SerializationRetries bounds retries of a transfer rejected by the database.
	SerializationRetries int
	// StalledAfter is how long a batch may sit in PROCESSING before it is reported.
	StalledAfter time.Duration
	// MonitorEnabled opts in to the read-only stalled batch report. Off by
	// default so that nothing runs unless a request asks for it.
	MonitorEnabled  bool
	MonitorInterval time.Duration
}

// TracingConfig controls the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	} else if err != nil {
		slog.Info("no .env file found, using process environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.ParseInt(getEnv("DB_MAX_CONNS", "25"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.ParseInt(getEnv("DB_MIN_CONNS", "5"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "payroll_ledger"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
		MinConns: int32(minConns),
	}

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	idempotencyTTL, err := time.ParseDuration(getEnv("IDEMPOTENCY_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:           getEnv("REDIS_ADDR", "localhost:6379"),
		Password:       getEnv("REDIS_PASSWORD", ""),
		DB:             redisDB,
		IdempotencyTTL: idempotencyTTL,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}
	runMigrations, err := strconv.ParseBool(getEnv("RUN_MIGRATIONS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid RUN_MIGRATIONS: %w", err)
	}

	config.App = AppConfig{
		Port:               appPort,
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		RunMigrations:      runMigrations,
	}

	// JWT configuration
	jwtAccessExpiration, err := time.ParseDuration(getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: jwtAccessExpiration,
	}

	// Payroll configuration
	referenceBaseSalary, err := money.Parse(getEnv("PAYROLL_REFERENCE_BASE_SALARY", "30000.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_REFERENCE_BASE_SALARY: %w", err)
	}
	retries, err := strconv.Atoi(getEnv("LEDGER_SERIALIZATION_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_SERIALIZATION_RETRIES: %w", err)
	}

	stalledAfter, err := time.ParseDuration(getEnv("PAYROLL_STALLED_AFTER", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_STALLED_AFTER: %w", err)
	}
	monitorInterval, err := time.ParseDuration(getEnv("PAYROLL_MONITOR_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_MONITOR_INTERVAL: %w", err)
	}

	monitorEnabled, err := strconv.ParseBool(getEnv("PAYROLL_MONITOR_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_MONITOR_ENABLED: %w", err)
	}

	config.Payroll = PayrollConfig{
		ReferenceBaseSalary:  referenceBaseSalary,
		SerializationRetries: retries,
		StalledAfter:         stalledAfter,
		MonitorEnabled:       monitorEnabled,
		MonitorInterval:      monitorInterval,
	}

	// Tracing configuration
	tracingEnabled, err := strconv.ParseBool(getEnv("OTEL_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid OTEL_ENABLED: %w", err)
	}
	sampleRatio, err := strconv.ParseFloat(getEnv("OTEL_TRACES_SAMPLER_RATIO", "1.0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OTEL_TRACES_SAMPLER_RATIO: %w", err)
	}

	config.Tracing = TracingConfig{
		Enabled:     tracingEnabled,
		Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		SampleRatio: sampleRatio,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS must not exceed DB_MAX_CONNS")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if !c.Payroll.ReferenceBaseSalary.IsPositive() {
		return fmt.Errorf("PAYROLL_REFERENCE_BASE_SALARY must be positive")
	}
	if c.Payroll.SerializationRetries < 0 {
		return fmt.Errorf("LEDGER_SERIALIZATION_RETRIES must not be negative")
	}
	if c.Payroll.StalledAfter <= 0 || c.Payroll.MonitorInterval <= 0 {
		return fmt.Errorf("PAYROLL_STALLED_AFTER and PAYROLL_MONITOR_INTERVAL must be positive")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLER_RATIO must be between 0 and 1")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED is true")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env, fallback string) []string {
	value := getEnv(env, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
