package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/xeroflow/xeroflow/internal/domain/model"
	apperrors "github.com/xeroflow/xeroflow/internal/errors"
	"github.com/xeroflow/xeroflow/internal/ports"
)

// existsBatchConcurrency bounds parallel lookups in ExistsBatch.
const existsBatchConcurrency = 4

// InvoiceServiceOptions groups dependencies for InvoiceService.
type InvoiceServiceOptions struct {
	Auth    *AuthService
	Tenants *TenantService
	API     ports.InvoiceAPI
}

// InvoiceService exposes invoice operations keyed by session id. Every
// call goes through the authenticated request gate: a fresh access
// token plus a resolved tenant, or an auth-class error that sends the
// browser back to login.
type InvoiceService struct {
	auth    *AuthService
	tenants *TenantService
	api     ports.InvoiceAPI
}

// NewInvoiceService constructs a new InvoiceService.
func NewInvoiceService(opts InvoiceServiceOptions) *InvoiceService {
	return &InvoiceService{
		auth:    opts.Auth,
		tenants: opts.Tenants,
		api:     opts.API,
	}
}

// requestAuth runs the gate for one request.
func (s *InvoiceService) requestAuth(ctx context.Context, sessionID string) (ports.RequestAuth, error) {
	session, token, err := s.auth.FreshToken(ctx, sessionID)
	if err != nil {
		return ports.RequestAuth{}, err
	}

	tenantID, err := s.tenants.Resolve(ctx, session, token.AccessToken)
	if err != nil {
		return ports.RequestAuth{}, err
	}

	return ports.RequestAuth{
		AccessToken: token.AccessToken,
		TenantID:    tenantID,
	}, nil
}

// List returns invoices matching the query.
func (s *InvoiceService) List(ctx context.Context, sessionID string, q ports.InvoiceQuery) (model.Invoices, error) {
	auth, err := s.requestAuth(ctx, sessionID)
	if err != nil {
		return model.Invoices{}, err
	}
	return s.api.ListInvoices(ctx, auth, q)
}

// Get fetches a single invoice by id or number.
func (s *InvoiceService) Get(ctx context.Context, sessionID, invoiceID string) (model.Invoice, error) {
	if strings.TrimSpace(invoiceID) == "" {
		return model.Invoice{}, apperrors.Validation("invoice id is required")
	}

	auth, err := s.requestAuth(ctx, sessionID)
	if err != nil {
		return model.Invoice{}, err
	}
	return s.api.GetInvoice(ctx, auth, invoiceID)
}

// GetByNumber fetches a single invoice by its invoice number. It goes
// through the list filter so the number is never confused with an id
// in the resource path.
func (s *InvoiceService) GetByNumber(ctx context.Context, sessionID, invoiceNumber string) (model.Invoice, error) {
	if strings.TrimSpace(invoiceNumber) == "" {
		return model.Invoice{}, apperrors.Validation("invoice number is required")
	}

	out, err := s.List(ctx, sessionID, ports.InvoiceQuery{InvoiceNumbers: []string{invoiceNumber}})
	if err != nil {
		return model.Invoice{}, err
	}
	if len(out.Invoices) == 0 {
		return model.Invoice{}, apperrors.NotFoundf("invoice %q not found", invoiceNumber)
	}
	return out.Invoices[0], nil
}

// Create submits new invoices.
func (s *InvoiceService) Create(ctx context.Context, sessionID string, in model.Invoices) (model.Invoices, error) {
	if len(in.Invoices) == 0 {
		return model.Invoices{}, apperrors.Validation("at least one invoice is required")
	}
	for i, inv := range in.Invoices {
		if !inv.Type.Valid() {
			return model.Invoices{}, apperrors.Validation(fmt.Sprintf("invoice %d: invalid type %q", i, inv.Type))
		}
		if inv.Contact == nil || inv.Contact.Name == "" {
			return model.Invoices{}, apperrors.Validation(fmt.Sprintf("invoice %d: contact name is required", i))
		}
		if len(inv.LineItems) == 0 {
			return model.Invoices{}, apperrors.Validation(fmt.Sprintf("invoice %d: at least one line item is required", i))
		}
	}

	auth, err := s.requestAuth(ctx, sessionID)
	if err != nil {
		return model.Invoices{}, err
	}
	return s.api.CreateInvoices(ctx, auth, in)
}

// Update applies a partial update to an invoice.
func (s *InvoiceService) Update(ctx context.Context, sessionID, invoiceID string, in model.Invoices) (model.Invoices, error) {
	if strings.TrimSpace(invoiceID) == "" {
		return model.Invoices{}, apperrors.Validation("invoice id is required")
	}
	if len(in.Invoices) == 0 {
		return model.Invoices{}, apperrors.Validation("invoice body is required")
	}

	auth, err := s.requestAuth(ctx, sessionID)
	if err != nil {
		return model.Invoices{}, err
	}
	return s.api.UpdateInvoice(ctx, auth, invoiceID, in)
}

// Exists reports whether an invoice is present. Only a definitive
// not-found answer maps to false; auth failures, network failures, and
// downstream errors are returned as errors so a flaky connection is
// never mistaken for a missing invoice.
func (s *InvoiceService) Exists(ctx context.Context, sessionID, invoiceID string) (bool, error) {
	_, err := s.Get(ctx, sessionID, invoiceID)
	switch {
	case err == nil:
		return true, nil
	case apperrors.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// ExistsBatch checks several invoices concurrently. The whole batch
// fails when any check fails with a non-not-found error.
func (s *InvoiceService) ExistsBatch(ctx context.Context, sessionID string, invoiceIDs []string) (map[string]bool, error) {
	if len(invoiceIDs) == 0 {
		return map[string]bool{}, nil
	}

	// Resolve auth once so a batch of N does not hit the refresh gate
	// N times.
	auth, err := s.requestAuth(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := make(map[string]bool, len(invoiceIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(existsBatchConcurrency)
	for _, id := range invoiceIDs {
		g.Go(func() error {
			_, err := s.api.GetInvoice(gctx, auth, id)
			exists := true
			switch {
			case apperrors.IsNotFound(err):
				exists = false
			case err != nil:
				return fmt.Errorf("check invoice %s: %w", id, err)
			}
			mu.Lock()
			results[id] = exists
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
