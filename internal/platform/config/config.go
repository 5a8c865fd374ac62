// Package config centralizes environment-driven configuration so main stays
// lean. Every knob has a development default; production deployments set the
// BAZAAR_* variables explicitly.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server process needs at startup.
type Config struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string
	JWTSigningKey string

	// AdminAccount is the identity allowed to run admin operations (set
	// fee, withdraw, pause). Both factories initialize under it.
	AdminAccount string

	UserRegistrationFee   uint64
	VendorRegistrationFee uint64

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:                  envOr("BAZAAR_ADDR", ":8080"),
		DatabaseURL:           os.Getenv("BAZAAR_DATABASE_URL"),
		RedisURL:              os.Getenv("BAZAAR_REDIS_URL"),
		KafkaBrokers:          splitList(os.Getenv("BAZAAR_KAFKA_BROKERS")),
		JWTSigningKey:         envOr("BAZAAR_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminAccount:          os.Getenv("BAZAAR_ADMIN_ACCOUNT"),
		UserRegistrationFee:   envUint("BAZAAR_USER_REGISTRATION_FEE", 1000),
		VendorRegistrationFee: envUint("BAZAAR_VENDOR_REGISTRATION_FEE", 5000),
		RequestTimeout:        envDuration("BAZAAR_REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:       envDuration("BAZAAR_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envUint(key string, fallback uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
