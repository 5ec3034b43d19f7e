// Package auth contains simple hand-written test doubles for the token
// lifecycle ports. These are lightweight and suitable for unit tests
// without codegen.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/xeroflow/xeroflow/internal/domain/auth"
	apperrors "github.com/xeroflow/xeroflow/internal/errors"
	"github.com/xeroflow/xeroflow/internal/ports"
)

// Ensure compile-time conformance to the ports.
var (
	_ ports.AuthProvider   = (*MockAuthProvider)(nil)
	_ ports.SessionStore   = (*MemorySessionStore)(nil)
	_ ports.IdentityClient = (*MockIdentityClient)(nil)
)

// MockAuthProvider simulates the identity provider for tests with
// deterministic state/nonce handling and countable refresh exchanges.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Token, error)
	RefreshFunc  func(ctx context.Context, refreshToken string) (domainauth.Token, error)

	// Deterministic values for predictable testing
	AuthURL     string
	StatePrefix string
	NoncePrefix string

	mu           sync.Mutex
	beginCount   int
	refreshCount int
}

// NewMockAuthProvider creates a MockAuthProvider with sensible defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL:     "https://mock-idp/authorize",
		StatePrefix: "state",
		NoncePrefix: "nonce",
	}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}

	m.mu.Lock()
	m.beginCount++
	n := m.beginCount
	m.mu.Unlock()

	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/authorize"
	}
	statePrefix := m.StatePrefix
	if statePrefix == "" {
		statePrefix = "state"
	}
	noncePrefix := m.NoncePrefix
	if noncePrefix == "" {
		noncePrefix = "nonce"
	}

	state := fmt.Sprintf("%s-%d", statePrefix, n)
	nonce := fmt.Sprintf("%s-%d", noncePrefix, n)

	return authURL, state, nonce, nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Token, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}

	return domainauth.Token{
		AccessToken:  "access-" + in.Code,
		RefreshToken: "refresh-" + in.Code,
		TokenType:    "Bearer",
		Scopes:       []string{"openid", "accounting.transactions", "offline_access"},
		ExpiresAt:    time.Now().Add(30 * time.Minute),
	}, nil
}

func (m *MockAuthProvider) Refresh(ctx context.Context, refreshToken string) (domainauth.Token, error) {
	m.mu.Lock()
	m.refreshCount++
	n := m.refreshCount
	m.mu.Unlock()

	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	if refreshToken == "" {
		return domainauth.Token{}, apperrors.TokenInvalid("refresh token is empty")
	}

	return domainauth.Token{
		AccessToken:  fmt.Sprintf("access-refreshed-%d", n),
		RefreshToken: fmt.Sprintf("refresh-rotated-%d", n),
		TokenType:    "Bearer",
		Scopes:       []string{"openid", "accounting.transactions", "offline_access"},
		ExpiresAt:    time.Now().Add(30 * time.Minute),
	}, nil
}

// RefreshCount returns how many refresh exchanges were performed.
func (m *MockAuthProvider) RefreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCount
}

// MemorySessionStore is an in-memory session store for unit tests. It
// honors the same version-stamp semantics as the production stores.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.Session),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Update(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[sess.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version >= sess.Version {
		return apperrors.Conflict("stale session update")
	}
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	if id == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// ErrNotFound aliases the shared session store sentinel.
var ErrNotFound = ports.ErrSessionNotFound

// MockIdentityClient returns a fixed set of tenant connections.
type MockIdentityClient struct {
	ConnectionsFunc func(ctx context.Context, accessToken string) ([]domainauth.Connection, error)

	Result []domainauth.Connection
	Err    error

	mu    sync.Mutex
	calls int
}

func (m *MockIdentityClient) Connections(ctx context.Context, accessToken string) ([]domainauth.Connection, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ConnectionsFunc != nil {
		return m.ConnectionsFunc(ctx, accessToken)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// Calls returns how many times Connections was invoked.
func (m *MockIdentityClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
