package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses the real OAuth/OIDC provider.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses a mock provider (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// defaultScope is the full scope set the demo requests from Xero. The
// offline_access scope is what yields a refresh token.
const defaultScope = "offline_access openid profile email accounting.transactions " +
	"accounting.journals.read payroll.payruns accounting.reports.read " +
	"files accounting.settings.read accounting.settings accounting.attachments " +
	"payroll.payslip payroll.settings files.read assets.read payroll.employees " +
	"projects.read accounting.contacts.read accounting.attachments.read projects " +
	"assets accounting.contacts payroll.timesheets accounting.budgets.read"

// OAuthConfig contains OAuth/OIDC configuration for the Xero identity
// provider.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/callback"`
	Scope        string `env:"SCOPE"`
	DiscoveryURL string `env:"DISCOVERY_URL" envDefault:"https://identity.xero.com/.well-known/openid-configuration"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// SessionTTL bounds how long a browser session lives, independent of
	// token expiry.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
}

// EffectiveScope returns the configured scope, or the full demo scope
// set when none is configured.
func (a AuthConfig) EffectiveScope() string {
	if strings.TrimSpace(a.OAuth.Scope) != "" {
		return a.OAuth.Scope
	}
	return defaultScope
}
