// Package testutil provides testing utilities for the token lifecycle and
// session stores. Infrastructure-backed helpers skip when the backing
// service is unavailable unless TEST_REQUIRE_INFRA is set.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx database/sql driver
	"github.com/redis/go-redis/v9"

	domainauth "github.com/xeroflow/xeroflow/internal/domain/auth"
)

// TestingTB is an interface that covers both *testing.T and *testing.B.
type TestingTB interface {
	Helper()
	Skip(args ...interface{})
	Skipf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	Logf(format string, args ...interface{})
	Cleanup(func())
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envBool parses common truthy values from env vars.
func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }

// SetupTestRedis creates a Redis client for testing. The test is skipped
// if Redis is not available (unless TEST_REQUIRE_REDIS/INFRA is set).
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	addr := getEnvOrDefault("TEST_REDIS_ADDR", "localhost:6379")
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   15, // keep test data out of the default DB
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			t.Logf("warning: failed to close redis client after ping error: %v", cerr)
		}
		if requireRedis() {
			t.Fatalf("Redis not available for testing at %s: %v", addr, err)
		}
		t.Skipf("Redis not available for testing at %s: %v", addr, err)
	}

	// Clean up any existing test data
	client.FlushDB(ctx)

	return client
}

// TestDBConfig holds configuration for the test database.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig returns default test database configuration.
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "5432"),
		User:     getEnvOrDefault("TEST_DB_USER", "xeroflow"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "xeroflow"),
		DBName:   getEnvOrDefault("TEST_DB_NAME", "xeroflow"),
	}
}

// SetupTestDB creates a test database connection. The test is skipped if
// Postgres is not available (unless TEST_REQUIRE_DB/INFRA is set).
func SetupTestDB(t TestingTB) *sql.DB {
	t.Helper()

	cfg := DefaultTestDBConfig()
	hostPort := net.JoinHostPort(cfg.Host, cfg.Port)
	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		cfg.User, cfg.Password, hostPort, cfg.DBName)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatal("Failed to open database:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		if cerr := db.Close(); cerr != nil {
			t.Logf("test db close failed: %v", cerr)
		}
		if requireDB() {
			t.Fatal("Test database not available:", pingErr)
		}
		t.Skip("Test database not available:", pingErr)
	}

	t.Cleanup(func() {
		if cerr := db.Close(); cerr != nil {
			t.Logf("test db close failed: %v", cerr)
		}
	})

	return db
}

// FixedTimeFunc returns a function that always returns the same time.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time {
		return t
	}
}

// TestTime returns a fixed time for testing.
func TestTime() time.Time {
	return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
}

// TokenBuilder provides a fluent interface for building Tokens in tests.
type TokenBuilder struct {
	tok domainauth.Token
}

// NewToken creates a TokenBuilder with sensible defaults: a Bearer token
// pair valid for 30 minutes.
func NewToken() *TokenBuilder {
	return &TokenBuilder{
		tok: domainauth.Token{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			TokenType:    "Bearer",
			Scopes:       []string{"openid", "accounting.transactions", "offline_access"},
			ExpiresAt:    time.Now().Add(30 * time.Minute),
		},
	}
}

// WithAccessToken sets the access token.
func (b *TokenBuilder) WithAccessToken(v string) *TokenBuilder {
	b.tok.AccessToken = v
	return b
}

// WithRefreshToken sets the refresh token.
func (b *TokenBuilder) WithRefreshToken(v string) *TokenBuilder {
	b.tok.RefreshToken = v
	return b
}

// WithScopes sets the granted scopes.
func (b *TokenBuilder) WithScopes(scopes ...string) *TokenBuilder {
	b.tok.Scopes = scopes
	return b
}

// WithExpiresAt sets the token expiry.
func (b *TokenBuilder) WithExpiresAt(at time.Time) *TokenBuilder {
	b.tok.ExpiresAt = at
	return b
}

// Expired marks the token as already expired.
func (b *TokenBuilder) Expired() *TokenBuilder {
	b.tok.ExpiresAt = time.Now().Add(-time.Minute)
	return b
}

// Build returns the token value.
func (b *TokenBuilder) Build() domainauth.Token {
	return b.tok
}

// BuildPtr returns a pointer to a copy of the token value.
func (b *TokenBuilder) BuildPtr() *domainauth.Token {
	tok := b.tok
	return &tok
}

// SessionBuilder provides a fluent interface for building Sessions in tests.
type SessionBuilder struct {
	sess domainauth.Session
}

// NewSession creates a SessionBuilder holding a valid token.
func NewSession(id string) *SessionBuilder {
	now := time.Now()
	return &SessionBuilder{
		sess: domainauth.Session{
			ID:        id,
			Token:     NewToken().BuildPtr(),
			Version:   1,
			CreatedAt: now,
			ExpiresAt: now.Add(24 * time.Hour),
		},
	}
}

// WithToken sets the session token (nil means unauthenticated).
func (b *SessionBuilder) WithToken(tok *domainauth.Token) *SessionBuilder {
	b.sess.Token = tok
	return b
}

// WithTenantID sets the cached tenant id.
func (b *SessionBuilder) WithTenantID(id string) *SessionBuilder {
	b.sess.TenantID = id
	return b
}

// WithVersion sets the session version stamp.
func (b *SessionBuilder) WithVersion(v int64) *SessionBuilder {
	b.sess.Version = v
	return b
}

// Build returns the session value.
func (b *SessionBuilder) Build() domainauth.Session {
	return b.sess
}
