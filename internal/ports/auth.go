// Package ports defines interfaces (hexagonal ports) for the token
// lifecycle and the downstream accounting API. Implementations live in
// internal/adapters; orchestration in internal/service.
package ports

import (
	"context"
	"errors"

	domainauth "github.com/xeroflow/xeroflow/internal/domain/auth"
)

// ErrSessionNotFound is returned by session stores when no session
// exists for an id. Every store implementation returns this same
// sentinel so callers can match it regardless of backend.
var ErrSessionNotFound = errors.New("session not found")

// BeginInput carries inputs for initiating an auth flow.
type BeginInput struct {
	RedirectURL string
}

// AuthProvider drives the authorization-code flow against the identity
// provider and performs refresh-token exchanges.
type AuthProvider interface {
	// Begin starts the login flow and returns the provider authorize URL,
	// an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, trading the authorization code for
	// an access/refresh token pair. The nonce is verified against the ID
	// token when one is issued.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Token, error)

	// Refresh exchanges the refresh token for a new token pair. A rejected
	// refresh token yields a token-invalid error; transport failures yield
	// a network error.
	Refresh(ctx context.Context, refreshToken string) (domainauth.Token, error)
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	Nonce string
}

// SessionStore persists and retrieves browser sessions.
//
// Save creates or unconditionally replaces a session (login, logout).
// Update replaces a session only when sess.Version is newer than the
// stored version, returning a conflict error otherwise; the refresh gate
// relies on this so concurrent refreshes cannot lose the newest token.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Update(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}
