package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestRouter(t *testing.T, authSvc *mockAuthService, invoiceSvc *mockInvoiceService) http.Handler {
	t.Helper()
	renderer := newTestRenderer(t)
	return NewRouter(RouterConfig{
		Auth:     &AuthHandlers{Svc: authSvc, Renderer: renderer, Logger: discardLogger()},
		Invoices: &InvoiceHandlers{Svc: invoiceSvc, Renderer: renderer, Logger: discardLogger()},
		AuthSvc:  authSvc,
		Logger:   discardLogger(),
	})
}

func TestRouter_HealthzIsOpen(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{}, &mockInvoiceService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestRouter_HomeIsOpen(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{}, &mockInvoiceService{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Home | oauth token")
}

func TestRouter_InvoicesAreGated(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{}, &mockInvoiceService{})

	req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRouter_GatedRouteWithSession(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{}, &mockInvoiceService{})

	req := httptest.NewRequest(http.MethodGet, "/invoices/inv-7/exists", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-42"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Invoice inv-7 exists: true")
}

func TestRouter_NumberRouteWinsOverID(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{}, &mockInvoiceService{})

	req := httptest.NewRequest(http.MethodGet, "/invoices/number/INV-949", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-42"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "INV-949")
}
