package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	domainauth "github.com/xeroflow/xeroflow/internal/domain/auth"
	apperrors "github.com/xeroflow/xeroflow/internal/errors"
	"github.com/xeroflow/xeroflow/internal/ports"
)

const defaultSessionTTL = 24 * time.Hour

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider   ports.AuthProvider
	Sessions   ports.SessionStore
	SessionTTL time.Duration
	Now        func() time.Time
}

// AuthService orchestrates the authorization-code flow and owns the
// token refresh gate: token expiry is only ever checked and acted on
// here, so callers never see an expired access token.
type AuthService struct {
	provider   ports.AuthProvider
	sessions   ports.SessionStore
	sessionTTL time.Duration
	now        func() time.Time

	// refreshGroup collapses concurrent refreshes for the same session
	// into a single provider round trip.
	refreshGroup singleflight.Group
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		provider:   opts.Provider,
		sessions:   opts.Sessions,
		sessionTTL: ttl,
		now:        now,
	}
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an authentication flow and returns the provider
// auth URL with state and nonce. The caller must hold the state and
// nonce (cookie) and present them at callback time.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}

	return &BeginLoginResult{
		AuthURL: authURL,
		State:   state,
		Nonce:   nonce,
	}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
// State verification happens at the HTTP layer where the issued state
// cookie lives; by the time we get here the state already matched.
type CompleteLoginInput struct {
	Code  string
	Nonce string
}

// CompleteLoginResult contains the result of completing a login flow.
type CompleteLoginResult struct {
	Session domainauth.Session
}

// CompleteLogin exchanges the authorization code for a token pair and
// persists a fresh session.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	if input.Code == "" {
		return nil, apperrors.AccessDenied("authorization code is required")
	}

	token, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	now := s.now()
	session := domainauth.Session{
		ID:        uuid.New().String(),
		Token:     &token,
		Version:   1,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}

	return &CompleteLoginResult{Session: session}, nil
}

// GetSession retrieves a session by ID. A missing session comes back as
// an unauthenticated error so handlers can redirect to login.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (domainauth.Session, error) {
	if sessionID == "" {
		return domainauth.Session{}, apperrors.Unauthenticated("no session")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, ports.ErrSessionNotFound) {
		return domainauth.Session{}, apperrors.Unauthenticated("session not found")
	}
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// Logout removes a session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// FreshToken returns the session together with an access token that is
// valid at call time, refreshing it first when needed. Concurrent
// callers for the same session trigger at most one refresh exchange.
func (s *AuthService) FreshToken(ctx context.Context, sessionID string) (domainauth.Session, domainauth.Token, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return domainauth.Session{}, domainauth.Token{}, err
	}
	if !session.Authenticated() {
		return domainauth.Session{}, domainauth.Token{}, apperrors.Unauthenticated("session has no token")
	}

	if !session.Token.Expired(s.now()) {
		return session, *session.Token, nil
	}

	refreshed, err := s.refreshSession(ctx, sessionID, false)
	if err != nil {
		return domainauth.Session{}, domainauth.Token{}, err
	}
	return refreshed, *refreshed.Token, nil
}

// RefreshResult pairs the token that was replaced with its successor.
type RefreshResult struct {
	Old domainauth.Token
	New domainauth.Token
}

// ForceRefresh performs a refresh exchange even when the current access
// token is still valid and reports both token pairs.
func (s *AuthService) ForceRefresh(ctx context.Context, sessionID string) (*RefreshResult, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Authenticated() {
		return nil, apperrors.Unauthenticated("session has no token")
	}
	old := *session.Token

	refreshed, err := s.refreshSession(ctx, sessionID, true)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{Old: old, New: *refreshed.Token}, nil
}

// refreshSession performs the guarded refresh. All concurrent callers
// share one in-flight exchange per session id; the session is re-read
// inside the flight so a refresh that already happened is not repeated
// unless force is set.
func (s *AuthService) refreshSession(ctx context.Context, sessionID string, force bool) (domainauth.Session, error) {
	v, err, _ := s.refreshGroup.Do(sessionID, func() (any, error) {
		return s.doRefresh(ctx, sessionID, force)
	})
	if err != nil {
		return domainauth.Session{}, err
	}
	session, ok := v.(domainauth.Session)
	if !ok {
		return domainauth.Session{}, apperrors.Internal("unexpected refresh result type")
	}
	return session, nil
}

func (s *AuthService) doRefresh(ctx context.Context, sessionID string, force bool) (domainauth.Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return domainauth.Session{}, err
	}
	if !session.Authenticated() {
		return domainauth.Session{}, apperrors.Unauthenticated("session has no token")
	}

	// A caller that queued behind an in-flight refresh sees the fresh
	// token here and skips its own exchange.
	if !force && !session.Token.Expired(s.now()) {
		return session, nil
	}

	token, err := s.provider.Refresh(ctx, session.Token.RefreshToken)
	if err != nil {
		if apperrors.IsTokenInvalid(err) {
			// The refresh token is dead. Drop the session so the next
			// request starts a clean login instead of looping here.
			if delErr := s.sessions.Delete(ctx, sessionID); delErr != nil {
				return domainauth.Session{}, errors.Join(err, fmt.Errorf("delete session: %w", delErr))
			}
		}
		return domainauth.Session{}, err
	}

	updated := session
	updated.Token = &token
	updated.Version = session.Version + 1

	err = s.sessions.Update(ctx, updated)
	switch {
	case err == nil:
		return updated, nil
	case apperrors.IsConflict(err):
		// A competing refresh landed first. Its token is newer; use it.
		return s.GetSession(ctx, sessionID)
	case errors.Is(err, ports.ErrSessionNotFound):
		return domainauth.Session{}, apperrors.Unauthenticated("session removed during refresh")
	default:
		return domainauth.Session{}, fmt.Errorf("update session: %w", err)
	}
}
