package config

import (
	"os"
	"strconv"
	"time"

	pstrings "smartgate/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	// TrustedProxies lists peers (addresses or CIDRs) whose X-Forwarded-For
	// and X-Real-IP headers are honored. Empty means the socket peer is the client.
	TrustedProxies []string

	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Audit     AuditConfig
	Lockout   LockoutConfig
	Bootstrap BootstrapConfig
}

// DatabaseConfig selects the relational store. An empty URL keeps every store
// in memory, which is what tests and local demos use.
type DatabaseConfig struct {
	URL             string
	Driver          string // "postgres" (lib/pq) or "pgx"
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
}

// RedisConfig configures the session store. An empty URL keeps sessions in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SessionConfig controls session token issuance and cookies.
type SessionConfig struct {
	SigningKey    string
	TTL           time.Duration
	CookieName    string
	SecureCookies bool
	Issuer        string
}

// AuditConfig configures where audit events are published besides the store.
type AuditConfig struct {
	KafkaBrokers []string
	Topic        string
}

// LockoutConfig bounds failed logins per email and client IP. After
// MaxFailures inside Window the pair is refused for LockDuration.
type LockoutConfig struct {
	MaxFailures  int
	Window       time.Duration
	LockDuration time.Duration
}

// BootstrapConfig creates a default administrator at startup when both fields are set.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

// Enabled reports whether a bootstrap admin should be ensured.
func (b BootstrapConfig) Enabled() bool {
	return b.AdminEmail != "" && b.AdminPassword != ""
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	signingKey := os.Getenv("SESSION_SIGNING_KEY")
	if signingKey == "" {
		// Use a default for development - should be overridden in production
		signingKey = "dev-session-key-change-in-production"
	}

	return Server{
		Addr:            getEnv("SMARTGATE_ADDR", ":8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		TrustedProxies:  pstrings.SplitList(os.Getenv("TRUSTED_PROXIES"), ","),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Driver:          getEnv("DATABASE_DRIVER", "postgres"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			TxTimeout:       getDuration("DATABASE_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Session: SessionConfig{
			SigningKey:    signingKey,
			TTL:           getDuration("SESSION_TTL", 12*time.Hour),
			CookieName:    getEnv("SESSION_COOKIE_NAME", "smartgate_session"),
			SecureCookies: os.Getenv("SECURE_COOKIES") == "true",
			Issuer:        getEnv("SESSION_ISSUER", "smartgate"),
		},
		Audit: AuditConfig{
			KafkaBrokers: pstrings.SplitList(os.Getenv("KAFKA_BROKERS"), ","),
			Topic:        getEnv("AUDIT_TOPIC", "smartgate.audit"),
		},
		Lockout: LockoutConfig{
			MaxFailures:  getInt("LOGIN_MAX_FAILURES", 5),
			Window:       getDuration("LOGIN_FAILURE_WINDOW", 15*time.Minute),
			LockDuration: getDuration("LOGIN_LOCK_DURATION", 15*time.Minute),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    os.Getenv("ADMIN_EMAIL"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}
