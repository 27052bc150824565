// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.
type Config struct {
	Env         string // APP_ENV (dev, test, prod)
	Port        string // APP_PORT
	StoreDriver string // STORE_DRIVER: mysql or memory

	DBUser string // DB_USER
	DBPass string // DB_PASS (optional)
	DBHost string // DB_HOST
	DBPort string // DB_PORT
	DBName string // DB_NAME

	JWTSecret      string // JWT_SECRET
	AccessTTLMin   int    // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays int    // REFRESH_TOKEN_TTL_DAYS
	BcryptCost     int    // BCRYPT_COST

	SessionTTL        time.Duration // SESSION_TTL_SECONDS
	MFAIssuer         string        // MFA_ISSUER
	MFATimeout        time.Duration // MFA_TIMEOUT
	StoreTimeout      time.Duration // STORE_TIMEOUT
	AuditTimeout      time.Duration // AUDIT_TIMEOUT
	RequestUniqueness string        // ACCESS_REQUEST_UNIQUENESS: none, pending or open

	SweepSchedule    string        // SESSION_SWEEP_SCHEDULE, empty disables the sweeper
	SessionRetention time.Duration // SESSION_RETENTION

	RabbitURL   string // RABBITMQ_URL (or AMQP_URL); empty disables the broker
	AuditLogDir string // AUDIT_LOG_DIR for the consumer's audit.log
}

// LoadDotEnv loads path into the environment without overriding variables
// that are already set.  A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from the environment.  It reports every missing
// or malformed variable at once.
func Load() (Config, error) {
	var l loader
	cfg := Config{
		Env:         l.must("APP_ENV"),
		Port:        l.must("APP_PORT"),
		StoreDriver: strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),

		JWTSecret:      l.must("JWT_SECRET"),
		AccessTTLMin:   l.int("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: l.int("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     l.int("BCRYPT_COST", 12),

		SessionTTL:        time.Duration(l.int("SESSION_TTL_SECONDS", 180)) * time.Second,
		MFAIssuer:         envStr("MFA_ISSUER", "SecureVault"),
		MFATimeout:        l.dur("MFA_TIMEOUT", 3*time.Second),
		StoreTimeout:      l.dur("STORE_TIMEOUT", 5*time.Second),
		AuditTimeout:      l.dur("AUDIT_TIMEOUT", 2*time.Second),
		RequestUniqueness: envStr("ACCESS_REQUEST_UNIQUENESS", "none"),

		SweepSchedule:    os.Getenv("SESSION_SWEEP_SCHEDULE"),
		SessionRetention: l.dur("SESSION_RETENTION", 24*time.Hour),

		RabbitURL:   envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		AuditLogDir: envStr("AUDIT_LOG_DIR", "logs"),
	}

	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DBUser = l.must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = l.must("DB_HOST")
		cfg.DBPort = l.must("DB_PORT")
		cfg.DBName = l.must("DB_NAME")
	case DriverMemory:
	default:
		l.fail("STORE_DRIVER must be mysql or memory, got %q", cfg.StoreDriver)
	}
	if cfg.SessionTTL <= 0 {
		l.fail("SESSION_TTL_SECONDS must be positive")
	}
	return cfg, errors.Join(l.errs...)
}

// loader collects problems instead of stopping at the first one.
type loader struct{ errs []error }

func (l *loader) fail(format string, args ...any) {
	l.errs = append(l.errs, fmt.Errorf(format, args...))
}

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.fail("missing required env var: %s", key)
	}
	return v
}

func (l *loader) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.fail("invalid int for %s: %q", key, v)
		return def
	}
	return n
}

func (l *loader) dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.fail("invalid duration for %s: %q", key, v)
		return def
	}
	return d
}
