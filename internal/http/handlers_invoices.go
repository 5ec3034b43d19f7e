package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/xeroflow/xeroflow/internal/domain/model"
	apperrors "github.com/xeroflow/xeroflow/internal/errors"
	"github.com/xeroflow/xeroflow/internal/ports"
)

// InvoiceServiceInterface defines the invoice operations the handlers use.
type InvoiceServiceInterface interface {
	List(ctx context.Context, sessionID string, q ports.InvoiceQuery) (model.Invoices, error)
	Get(ctx context.Context, sessionID, invoiceID string) (model.Invoice, error)
	GetByNumber(ctx context.Context, sessionID, invoiceNumber string) (model.Invoice, error)
	Create(ctx context.Context, sessionID string, in model.Invoices) (model.Invoices, error)
	Update(ctx context.Context, sessionID, invoiceID string, in model.Invoices) (model.Invoices, error)
	Exists(ctx context.Context, sessionID, invoiceID string) (bool, error)
	ExistsBatch(ctx context.Context, sessionID string, invoiceIDs []string) (map[string]bool, error)
}

// InvoiceHandlers provides HTTP handlers for invoice operations. Every
// handler runs behind the token gate, so the session is always present
// in the request context.
type InvoiceHandlers struct {
	Svc      InvoiceServiceInterface
	Renderer *TemplateRenderer
	Logger   *slog.Logger
}

// List fetches draft and submitted invoices and renders them.
// GET /invoices.
func (h *InvoiceHandlers) List(w http.ResponseWriter, r *http.Request) {
	session, _ := GetSessionFromContext(r.Context())

	invoices, err := h.Svc.List(r.Context(), session.ID, ports.InvoiceQuery{
		Statuses: []model.InvoiceStatus{model.InvoiceStatusDraft, model.InvoiceStatusSubmitted},
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.Renderer.RenderCode(w, CodePage{
		Title:    "Invoices",
		SubTitle: fmt.Sprintf("Total invoices found: %d", len(invoices.Invoices)),
		Code:     prettyJSON(invoices),
	})
}

// Get fetches a single invoice by id.
// GET /invoices/{id}.
func (h *InvoiceHandlers) Get(w http.ResponseWriter, r *http.Request) {
	session, _ := GetSessionFromContext(r.Context())

	invoice, err := h.Svc.Get(r.Context(), session.ID, r.PathValue("id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.Renderer.RenderCode(w, CodePage{
		Title:    "Invoice",
		SubTitle: "Invoice found:",
		Code:     prettyJSON(invoice),
	})
}

// GetByNumber fetches a single invoice by its invoice number.
// GET /invoices/number/{number}.
func (h *InvoiceHandlers) GetByNumber(w http.ResponseWriter, r *http.Request) {
	session, _ := GetSessionFromContext(r.Context())

	invoice, err := h.Svc.GetByNumber(r.Context(), session.ID, r.PathValue("number"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.Renderer.RenderCode(w, CodePage{
		Title:    "Invoice",
		SubTitle: "Invoice found:",
		Code:     prettyJSON(invoice),
	})
}

// Create submits the sample draft invoices and reports a per-invoice
// result line, since the accounting API can accept some invoices in a
// batch while rejecting others.
// POST /invoices.
func (h *InvoiceHandlers) Create(w http.ResponseWriter, r *http.Request) {
	session, _ := GetSessionFromContext(r.Context())

	created, err := h.Svc.Create(r.Context(), session.ID, SampleInvoices())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	results := make([]string, 0, len(created.Invoices))
	for _, invoice := range created.Invoices {
		if invoice.HasErrors {
			message := ""
			if len(invoice.ValidationErrs) > 0 {
				message = invoice.ValidationErrs[0].Message
			}
			results = append(results, "Error: "+message)
			continue
		}
		results = append(results, fmt.Sprintf("Invoice %s created.", invoice.InvoiceNumber))
	}

	h.Renderer.RenderCode(w, CodePage{
		Title:   "Create Multiple Invoices",
		Results: results,
		Code:    prettyJSON(created),
	})
}

// Update replaces an invoice by id. The request body carries the invoice
// in the accounting API's wire shape; an empty body updates with the
// sample payload so the demo works without a client.
// POST /invoices/{id}.
func (h *InvoiceHandlers) Update(w http.ResponseWriter, r *http.Request) {
	session, _ := GetSessionFromContext(r.Context())
	invoiceID := r.PathValue("id")

	payload := SampleInvoices()
	if r.Body != nil && r.ContentLength != 0 {
		var body model.Invoices
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
			return
		}
		payload = body
	}

	updated, err := h.Svc.Update(r.Context(), session.ID, invoiceID, payload)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.Renderer.RenderCode(w, CodePage{
		Title:    "Updated Invoice",
		SubTitle: fmt.Sprintf("Invoice %s updated.", invoiceID),
		Code:     prettyJSON(updated),
	})
}

// Exists reports whether an invoice id resolves to a real invoice. Only
// a definitive downstream not-found reads as absent; any other failure
// surfaces as an error.
// GET /invoices/{id}/exists.
func (h *InvoiceHandlers) Exists(w http.ResponseWriter, r *http.Request) {
	session, _ := GetSessionFromContext(r.Context())
	invoiceID := r.PathValue("id")

	exists, err := h.Svc.Exists(r.Context(), session.ID, invoiceID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.Renderer.RenderCode(w, CodePage{
		Title:    "Invoice existence",
		SubTitle: fmt.Sprintf("Invoice %s exists: %t", invoiceID, exists),
		Code:     prettyJSON(map[string]bool{invoiceID: exists}),
	})
}

// ExistsBatch checks several invoice ids concurrently.
// GET /invoices/exists?ids=a,b.
func (h *InvoiceHandlers) ExistsBatch(w http.ResponseWriter, r *http.Request) {
	session, _ := GetSessionFromContext(r.Context())

	ids := splitIDs(r.URL.Query().Get("ids"))
	if len(ids) == 0 {
		WriteAppError(w, apperrors.Validation("ids query parameter is required"))
		return
	}

	found, err := h.Svc.ExistsBatch(r.Context(), session.ID, ids)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	keys := make([]string, 0, len(found))
	for id := range found {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	results := make([]string, 0, len(keys))
	for _, id := range keys {
		results = append(results, fmt.Sprintf("Invoice %s exists: %t", id, found[id]))
	}

	h.Renderer.RenderCode(w, CodePage{
		Title:   "Invoice existence",
		Results: results,
		Code:    prettyJSON(found),
	})
}

// renderError turns an auth-class failure into a login redirect for
// browsers and renders everything else as a JSON error.
func (h *InvoiceHandlers) renderError(w http.ResponseWriter, r *http.Request, err error) {
	if h.Logger != nil {
		h.Logger.WarnContext(r.Context(), "invoice request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	if apperrors.IsAuth(err) && isBrowserRequest(r) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	WriteAppError(w, err)
}

// SampleInvoices builds the demo invoice payload: one dated receivable
// and one without a due date.
func SampleInvoices() model.Invoices {
	contact := &model.Contact{
		Name:         "John Doe",
		EmailAddress: "john.doe@example.com",
	}
	lineItems := []model.LineItem{{
		Description: "Consulting services",
		Quantity:    10,
		UnitAmount:  100.00,
		AccountCode: "200",
	}}

	base := model.Invoice{
		Type:            model.InvoiceTypeAccRec,
		Contact:         contact,
		LineItems:       lineItems,
		LineAmountTypes: model.LineAmountTypesExclusive,
		CurrencyCode:    "AUD",
		Status:          model.InvoiceStatusDraft,
		Total:           1000.00,
		TotalTax:        100.00,
		AmountDue:       1100.00,
	}

	dated := base
	dated.InvoiceNumber = "INV-949"
	dated.DueDate = model.NewDate(2026, time.November, 12)

	undated := base
	undated.InvoiceNumber = "INV-001"

	return model.Invoices{Invoices: []model.Invoice{dated, undated}}
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
