package httpx

import (
	"log/slog"
	"net/http"
)

// RouterConfig groups the dependencies the router wires together.
type RouterConfig struct {
	Auth     *AuthHandlers
	Invoices *InvoiceHandlers
	AuthSvc  AuthServiceInterface
	Logger   *slog.Logger
}

// NewRouter builds the HTTP mux. Token and invoice routes sit behind the
// token presence gate; the home page and the login flow do not, since
// they are how a visitor gets a token in the first place.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", cfg.Auth.Home)
	mux.HandleFunc("GET /login", cfg.Auth.Login)
	mux.HandleFunc("GET /callback", cfg.Auth.Callback)
	mux.HandleFunc("GET /logout", cfg.Auth.Logout)
	mux.HandleFunc("GET /healthz", Health)

	gate := RequireToken(cfg.AuthSvc)
	mux.Handle("GET /refresh-token", gate(http.HandlerFunc(cfg.Auth.RefreshToken)))
	mux.Handle("GET /export-token", gate(http.HandlerFunc(cfg.Auth.ExportToken)))

	mux.Handle("GET /invoices", gate(http.HandlerFunc(cfg.Invoices.List)))
	mux.Handle("POST /invoices", gate(http.HandlerFunc(cfg.Invoices.Create)))
	mux.Handle("GET /invoices/exists", gate(http.HandlerFunc(cfg.Invoices.ExistsBatch)))
	mux.Handle("GET /invoices/number/{number}", gate(http.HandlerFunc(cfg.Invoices.GetByNumber)))
	mux.Handle("GET /invoices/{id}", gate(http.HandlerFunc(cfg.Invoices.Get)))
	mux.Handle("POST /invoices/{id}", gate(http.HandlerFunc(cfg.Invoices.Update)))
	mux.Handle("GET /invoices/{id}/exists", gate(http.HandlerFunc(cfg.Invoices.Exists)))

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
