package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. Empty POSTGRES_URL, REDIS_URL
// or KAFKA_BROKERS select the in-memory implementations, keeping local
// development dependency-free.
type Config struct {
	Addr          string
	PostgresURL   string
	RedisURL      string
	KafkaBrokers  []string
	AuditTopic    string
	JWTSigningKey string

	// LedgerTimeout bounds a single ledger call; LedgerMaxRetries bounds the
	// inline retry loop on unavailability before the pending state is
	// surfaced to the caller.
	LedgerTimeout    time.Duration
	LedgerMaxRetries uint64

	// RepairInterval is the background sweep cadence for records stuck in
	// PENDING_REGISTRATION.
	RepairInterval time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("VERILEDGER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "veriledger.audit"
	}

	return Config{
		Addr:             addr,
		PostgresURL:      os.Getenv("POSTGRES_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		AuditTopic:       auditTopic,
		JWTSigningKey:    jwtSigningKey,
		LedgerTimeout:    durationEnv("LEDGER_TIMEOUT", 5*time.Second),
		LedgerMaxRetries: uintEnv("LEDGER_MAX_RETRIES", 3),
		RepairInterval:   durationEnv("REPAIR_INTERVAL", 30*time.Second),
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
	}
	return fallback
}

func uintEnv(key string, fallback uint64) uint64 {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
