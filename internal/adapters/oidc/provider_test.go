package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/xeroflow/xeroflow/internal/errors"
	"github.com/xeroflow/xeroflow/internal/ports"
)

// newTestIdP serves a discovery document plus a scriptable token endpoint.
func newTestIdP(t *testing.T, tokenHandler http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		doc := DiscoveryDocument{
			Issuer:                server.URL,
			AuthorizationEndpoint: server.URL + "/authorize",
			TokenEndpoint:         server.URL + "/token",
			UserinfoEndpoint:      server.URL + "/userinfo",
			JwksURI:               server.URL + "/jwks",
		}
		_ = json.NewEncoder(w).Encode(doc)
	})
	if tokenHandler != nil {
		mux.HandleFunc("/token", tokenHandler)
	}
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestProvider(t *testing.T, tokenHandler http.HandlerFunc) *Provider {
	t.Helper()

	idp := newTestIdP(t, tokenHandler)
	provider, err := NewProvider(ProviderConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:8080/callback",
		Scope:        "accounting.transactions offline_access",
		DiscoveryURL: idp.URL + "/.well-known/openid-configuration",
	})
	require.NoError(t, err)
	return provider
}

func TestNewProvider_Success(t *testing.T) {
	idp := newTestIdP(t, nil)

	provider, err := NewProvider(ProviderConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:8080/callback",
		Scope:        "openid accounting.transactions",
		DiscoveryURL: idp.URL + "/.well-known/openid-configuration",
	})
	require.NoError(t, err)
	assert.NotNil(t, provider)
	assert.Equal(t, idp.URL+"/authorize", provider.config.Endpoint.AuthURL)
	assert.Equal(t, idp.URL+"/token", provider.config.Endpoint.TokenURL)
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{
			name: "missing client ID",
			config: ProviderConfig{
				ClientSecret: "secret",
				RedirectURL:  "http://localhost/callback",
				DiscoveryURL: "http://example.com",
			},
			errMsg: "client ID is required",
		},
		{
			name: "missing client secret",
			config: ProviderConfig{
				ClientID:     "client",
				RedirectURL:  "http://localhost/callback",
				DiscoveryURL: "http://example.com",
			},
			errMsg: "client secret is required",
		},
		{
			name:   "missing redirect URL",
			config: ProviderConfig{ClientID: "client", ClientSecret: "secret", DiscoveryURL: "http://example.com"},
			errMsg: "redirect URL is required",
		},
		{
			name: "missing discovery URL",
			config: ProviderConfig{
				ClientID:     "client",
				ClientSecret: "secret",
				RedirectURL:  "http://localhost/callback",
			},
			errMsg: "discovery URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestProvider_Begin(t *testing.T) {
	provider := newTestProvider(t, nil)
	ctx := context.Background()

	authURL, state, nonce, err := provider.Begin(ctx, ports.BeginInput{RedirectURL: "http://localhost:8080/callback"})

	require.NoError(t, err)
	assert.NotEmpty(t, authURL)
	assert.Len(t, state, 32)
	assert.Len(t, nonce, 32)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "test-client", q.Get("client_id"))
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, nonce, q.Get("nonce"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Contains(t, q.Get("scope"), "accounting.transactions")
}

func TestProvider_Begin_UniqueState(t *testing.T) {
	provider := newTestProvider(t, nil)
	ctx := context.Background()

	_, state1, _, err := provider.Begin(ctx, ports.BeginInput{RedirectURL: "http://localhost:8080/callback"})
	require.NoError(t, err)
	_, state2, _, err := provider.Begin(ctx, ports.BeginInput{RedirectURL: "http://localhost:8080/callback"})
	require.NoError(t, err)
	assert.NotEqual(t, state1, state2)
}

func TestProvider_Begin_EmptyRedirectURL(t *testing.T) {
	provider := newTestProvider(t, nil)

	_, _, _, err := provider.Begin(context.Background(), ports.BeginInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect URL is required")
}

func TestProvider_Exchange_Success(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"token_type":    "Bearer",
			"expires_in":    1800,
			"scope":         "accounting.transactions offline_access",
		})
	})

	token, err := provider.Exchange(context.Background(), ports.ExchangeInput{Code: "the-code"})
	require.NoError(t, err)
	assert.Equal(t, "new-access", token.AccessToken)
	assert.Equal(t, "new-refresh", token.RefreshToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Contains(t, token.Scopes, "offline_access")
	assert.False(t, token.Expired(time.Now()))
}

func TestProvider_Exchange_MissingCode(t *testing.T) {
	provider := newTestProvider(t, nil)

	_, err := provider.Exchange(context.Background(), ports.ExchangeInput{})
	require.Error(t, err)
	assert.True(t, apperrors.IsAccessDenied(err))
}

func TestProvider_Exchange_MissingAccessToken(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"token_type": "Bearer"})
	})

	_, err := provider.Exchange(context.Background(), ports.ExchangeInput{Code: "the-code"})
	require.Error(t, err)
	assert.True(t, apperrors.IsAccessDenied(err))
}

func TestProvider_Refresh_Success(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "rotated-access",
			"refresh_token": "rotated-refresh",
			"token_type":    "Bearer",
			"expires_in":    1800,
		})
	})

	token, err := provider.Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "rotated-access", token.AccessToken)
	assert.Equal(t, "rotated-refresh", token.RefreshToken)
}

func TestProvider_Refresh_InvalidGrant(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant"})
	})

	_, err := provider.Refresh(context.Background(), "revoked-refresh")
	require.Error(t, err)
	assert.True(t, apperrors.IsTokenInvalid(err))
}

func TestProvider_Refresh_EmptyToken(t *testing.T) {
	provider := newTestProvider(t, nil)

	_, err := provider.Refresh(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsTokenInvalid(err))
}
