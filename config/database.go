package config

import (
	"fmt"
	"strings"
)

// StoreBackend names a session store implementation.
type StoreBackend string

const (
	// StoreBackendRedis keeps sessions in Redis with a TTL.
	StoreBackendRedis StoreBackend = "redis"
	// StoreBackendPostgres keeps sessions in PostgreSQL.
	StoreBackendPostgres StoreBackend = "postgres"
	// StoreBackendMemory keeps sessions in process memory (dev only).
	StoreBackendMemory StoreBackend = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for StoreBackend.
func (s *StoreBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "redis", "postgres", "memory":
		*s = StoreBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid StoreBackend: %q (valid options: redis, postgres, memory)", v)
	}
}

// StoreConfig selects which backend holds sessions.
type StoreConfig struct {
	Backend StoreBackend `env:"STORE" envDefault:"redis"`
}

// Sanitize applies guardrails to store configuration values.
func (s *StoreConfig) Sanitize() {
	if s.Backend == "" {
		s.Backend = StoreBackendRedis
	}
}

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"xeroflow"`
	Password string `env:"PASSWORD" envDefault:"xeroflow"`
	Name     string `env:"NAME"     envDefault:"xeroflow"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
}
