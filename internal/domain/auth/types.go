// Package auth contains domain-level types for the OAuth2 token lifecycle
// and tenant resolution. It is pure and free of framework/adapter concerns.
package auth

import (
	"slices"
	"time"
)

// expiryLeeway is subtracted from the token expiry when deciding whether a
// refresh is needed, so a token never expires mid-flight to the API.
const expiryLeeway = 30 * time.Second

// Token is the OAuth2 access/refresh token pair issued by the identity
// provider. It is owned by the session; only the refresh gate and the
// callback handler replace it.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Scopes       []string  `json:"scopes"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token has passed its expiry
// (with a small leeway) at the given instant.
func (t Token) Expired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return true
	}
	return now.After(t.ExpiresAt.Add(-expiryLeeway))
}

// HasScope reports whether the token was granted the given scope.
func (t Token) HasScope(scope string) bool {
	return slices.Contains(t.Scopes, scope)
}

// TenantType classifies an identity connection.
type TenantType string

const (
	TenantTypeOrganisation TenantType = "ORGANISATION"
	TenantTypePractice     TenantType = "PRACTICEMANAGER"
)

// Connection is one tenant the current token is authorized against,
// as returned by the identity connections endpoint.
type Connection struct {
	TenantID   string     `json:"tenantId"`
	TenantType TenantType `json:"tenantType"`
	TenantName string     `json:"tenantName,omitempty"`
}

// Session is the server-side record keyed by the browser's session cookie.
// It holds at most one Token; a nil Token means the browser is
// unauthenticated. TenantID caches the resolved organisation so tenant
// resolution does not cost a round trip per request; it is cleared on
// logout and on refresh failure.
//
// Version is a monotonic stamp bumped on every token replacement. Stores
// use it for compare-and-swap saves so concurrent refreshes cannot
// overwrite a newer token with an older one.
type Session struct {
	ID        string    `json:"id"`
	Token     *Token    `json:"token,omitempty"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Authenticated reports whether the session holds a token. This is a
// presence check only; expiry is repaired just-in-time by the refresh gate.
func (s Session) Authenticated() bool { return s.Token != nil }
