package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/xeroflow/xeroflow/internal/domain/auth"
	apperrors "github.com/xeroflow/xeroflow/internal/errors"
	"github.com/xeroflow/xeroflow/internal/service"
)

// Cookie names used by the auth flow.
const (
	sessionCookieName    = "session_id"
	oauthStateCookieName = "oauth_state"
	oauthNonceCookieName = "oauth_nonce"
)

// oauthCookieMaxAge bounds how long the state and nonce cookies live. The
// user has this long to come back from the identity provider.
const oauthCookieMaxAge = 600

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	GetSession(ctx context.Context, sessionID string) (domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
	ForceRefresh(ctx context.Context, sessionID string) (*service.RefreshResult, error)
}

// AuthHandlers provides HTTP handlers for the login flow and token pages.
type AuthHandlers struct {
	Svc      AuthServiceInterface
	Renderer *TemplateRenderer

	// CallbackURL is the absolute OAuth redirect URI registered with the
	// identity provider. When empty it is derived from the request host.
	CallbackURL string

	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Home renders the current token as pretty-printed JSON. An anonymous
// visitor sees an empty object, matching what an expired or absent
// session looks like.
// GET /.
func (h *AuthHandlers) Home(w http.ResponseWriter, r *http.Request) {
	code := "{}"
	if sessionCookie, err := r.Cookie(sessionCookieName); err == nil {
		if session, getErr := h.Svc.GetSession(r.Context(), sessionCookie.Value); getErr == nil && session.Authenticated() {
			code = tokenJSON(*session.Token)
		}
	}

	h.Renderer.RenderCode(w, CodePage{
		Title: "Home | oauth token",
		Code:  code,
	})
}

// Login begins the OAuth flow: it asks the provider for an authorize URL
// and parks state and nonce in short-lived cookies for the callback.
// GET /login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	result, err := h.Svc.BeginLogin(r.Context(), h.callbackURL(r))
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "login_failed",
			Err:     err,
		})
		return
	}

	h.setOAuthCookies(w, r, result.State, result.Nonce)
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback completes the OAuth flow. The state parameter must match the
// cookie issued at login time; a mismatch is rejected before any token
// exchange happens.
// GET /callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if denied := q.Get("error"); denied != "" {
		h.clearOAuthCookies(w, r)
		WriteAppError(w, apperrors.AccessDenied("provider reported: "+denied))
		return
	}

	state := q.Get("state")
	stateCookie, err := r.Cookie(oauthStateCookieName)
	if err != nil || state == "" || stateCookie.Value != state {
		WriteAppError(w, apperrors.StateMismatch("state parameter does not match login request"))
		return
	}

	nonce := ""
	if nonceCookie, nonceErr := r.Cookie(oauthNonceCookieName); nonceErr == nil {
		nonce = nonceCookie.Value
	}

	result, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:  q.Get("code"),
		Nonce: nonce,
	})
	if err != nil {
		h.clearOAuthCookies(w, r)
		h.logger().WarnContext(r.Context(), "login completion failed", "error", err)
		WriteAppError(w, err)
		return
	}

	h.setSessionCookie(w, r, result.Session)
	h.clearOAuthCookies(w, r)

	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout invalidates the server-side session and clears the cookie.
// GET /logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionCookie, err := r.Cookie(sessionCookieName); err == nil {
		if logoutErr := h.Svc.Logout(r.Context(), sessionCookie.Value); logoutErr != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", logoutErr)
		}
	}

	h.clearCookie(w, r, sessionCookieName)
	http.Redirect(w, r, "/", http.StatusFound)
}

// RefreshToken forces a refresh exchange and renders the replaced and the
// new token side by side.
// GET /refresh-token.
func (h *AuthHandlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteAppError(w, apperrors.Unauthenticated("no session"))
		return
	}

	result, err := h.Svc.ForceRefresh(r.Context(), session.ID)
	if err != nil {
		if apperrors.IsAuth(err) {
			h.clearCookie(w, r, sessionCookieName)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		WriteAppError(w, err)
		return
	}

	code, marshalErr := json.MarshalIndent(map[string]domainauth.Token{
		"old": result.Old,
		"new": result.New,
	}, "", "    ")
	if marshalErr != nil {
		WriteAppError(w, apperrors.Wrap(marshalErr, apperrors.ErrCodeInternal, "encode tokens"))
		return
	}

	h.Renderer.RenderCode(w, CodePage{
		Title:    "Refreshed token",
		SubTitle: "The previous refresh token is no longer valid.",
		Code:     string(code),
	})
}

// ExportToken serves the current token as a JSON file download.
// GET /export-token.
func (h *AuthHandlers) ExportToken(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSessionFromContext(r.Context())
	if !ok || !session.Authenticated() {
		WriteAppError(w, apperrors.Unauthenticated("no session"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="oauth2_token.json"`)
	if _, err := w.Write([]byte(tokenJSON(*session.Token))); err != nil {
		h.logger().WarnContext(r.Context(), "token export write failed", "error", err)
	}
}

// callbackURL returns the configured redirect URI, or derives one from
// the request when none is configured.
func (h *AuthHandlers) callbackURL(r *http.Request) string {
	if h.CallbackURL != "" {
		return h.CallbackURL
	}
	scheme := "http"
	if requestIsSecure(r) {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: "/callback"}
	return u.String()
}

func tokenJSON(token domainauth.Token) string {
	b, err := json.MarshalIndent(token, "", "    ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func requestIsSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// setOAuthCookies stores OAuth state and nonce in short-lived cookies.
func (h *AuthHandlers) setOAuthCookies(w http.ResponseWriter, r *http.Request, state, nonce string) {
	h.setOAuthCookie(w, r, oauthStateCookieName, state)
	h.setOAuthCookie(w, r, oauthNonceCookieName, nonce)
}

func (h *AuthHandlers) setOAuthCookie(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   oauthCookieMaxAge,
	})
}

func (h *AuthHandlers) clearOAuthCookies(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, r, oauthStateCookieName)
	h.clearCookie(w, r, oauthNonceCookieName)
}

// setSessionCookie writes the session cookie based on the session's expiry.
func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
	})
}

// clearCookie clears a cookie by setting it to expire immediately. It
// mirrors the attributes used when setting cookies so browsers match the
// deletion against the original.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}
