package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/xeroflow/xeroflow/internal/domain/auth"
	apperrors "github.com/xeroflow/xeroflow/internal/errors"
	"github.com/xeroflow/xeroflow/internal/ports"
)

func TestMockAuthProvider_Begin_Defaults(t *testing.T) {
	provider := NewMockAuthProvider()
	ctx := context.Background()

	input := ports.BeginInput{RedirectURL: "http://localhost:8080/callback"}
	authURL, state, nonce, err := provider.Begin(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/authorize", authURL)
	assert.Equal(t, "state-1", state)
	assert.Equal(t, "nonce-1", nonce)

	// Second call should increment counters
	_, state2, nonce2, err2 := provider.Begin(ctx, input)
	require.NoError(t, err2)
	assert.Equal(t, "state-2", state2)
	assert.Equal(t, "nonce-2", nonce2)
}

func TestMockAuthProvider_Exchange_Defaults(t *testing.T) {
	provider := NewMockAuthProvider()
	ctx := context.Background()

	token, err := provider.Exchange(ctx, ports.ExchangeInput{Code: "auth-code", Nonce: "nonce-1"})

	require.NoError(t, err)
	assert.Equal(t, "access-auth-code", token.AccessToken)
	assert.Equal(t, "refresh-auth-code", token.RefreshToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.False(t, token.Expired(time.Now()))
}

func TestMockAuthProvider_Refresh(t *testing.T) {
	provider := NewMockAuthProvider()
	ctx := context.Background()

	first, err := provider.Refresh(ctx, "refresh-old")
	require.NoError(t, err)
	assert.Equal(t, "access-refreshed-1", first.AccessToken)
	assert.Equal(t, "refresh-rotated-1", first.RefreshToken)

	second, err := provider.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "access-refreshed-2", second.AccessToken)
	assert.Equal(t, 2, provider.RefreshCount())
}

func TestMockAuthProvider_Refresh_EmptyToken(t *testing.T) {
	provider := NewMockAuthProvider()

	_, err := provider.Refresh(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsTokenInvalid(err))
}

func TestMemorySessionStore_SaveAndGet(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	session := domainauth.Session{
		ID: "test-session-1",
		Token: &domainauth.Token{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Scopes:       []string{"openid"},
			ExpiresAt:    time.Now().Add(30 * time.Minute),
		},
		Version:   1,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}

	err := store.Save(ctx, session)
	require.NoError(t, err)

	retrieved, err := store.Get(ctx, "test-session-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, retrieved.ID)
	require.NotNil(t, retrieved.Token)
	assert.Equal(t, session.Token.AccessToken, retrieved.Token.AccessToken)
	assert.Equal(t, session.Token.RefreshToken, retrieved.Token.RefreshToken)
	assert.Equal(t, session.Version, retrieved.Version)
}

func TestMemorySessionStore_Update_Stale(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	sess := domainauth.Session{ID: "s1", Version: 2}
	require.NoError(t, store.Save(ctx, sess))

	// Same or older version must be rejected.
	err := store.Update(ctx, domainauth.Session{ID: "s1", Version: 2})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	err = store.Update(ctx, domainauth.Session{ID: "s1", Version: 1})
	require.Error(t, err)

	// Newer version is accepted.
	require.NoError(t, store.Update(ctx, domainauth.Session{ID: "s1", Version: 3}))
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
}

func TestMemorySessionStore_GetNonExistent(t *testing.T) {
	store := NewMemorySessionStore()

	_, err := store.Get(context.Background(), "non-existent")
	assert.Equal(t, ErrNotFound, err)
}

func TestMemorySessionStore_Delete(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "s1"}))
	require.NoError(t, store.Delete(ctx, "s1"))

	_, err := store.Get(ctx, "s1")
	assert.Equal(t, ErrNotFound, err)

	// Delete with empty ID should not error
	assert.NoError(t, store.Delete(ctx, ""))
}

func TestMockIdentityClient(t *testing.T) {
	client := &MockIdentityClient{
		Result: []domainauth.Connection{
			{TenantID: "A", TenantType: "BANK"},
			{TenantID: "B", TenantType: domainauth.TenantTypeOrganisation},
		},
	}

	conns, err := client.Connections(context.Background(), "access")
	require.NoError(t, err)
	assert.Len(t, conns, 2)
	assert.Equal(t, 1, client.Calls())
}
