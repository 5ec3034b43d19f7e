package ports

import (
	"context"

	domainauth "github.com/xeroflow/xeroflow/internal/domain/auth"
	"github.com/xeroflow/xeroflow/internal/domain/model"
)

// RequestAuth carries the per-call credentials every accounting request
// needs: a non-expired bearer token and the resolved tenant id.
type RequestAuth struct {
	AccessToken string
	TenantID    string
}

// IdentityClient lists the tenant connections visible to a token.
type IdentityClient interface {
	Connections(ctx context.Context, accessToken string) ([]domainauth.Connection, error)
}

// InvoiceQuery filters an invoice listing. Zero fields are omitted.
type InvoiceQuery struct {
	Statuses       []model.InvoiceStatus
	InvoiceNumbers []string
}

// InvoiceAPI is the accounting API surface this application consumes.
type InvoiceAPI interface {
	ListInvoices(ctx context.Context, auth RequestAuth, q InvoiceQuery) (model.Invoices, error)
	GetInvoice(ctx context.Context, auth RequestAuth, invoiceID string) (model.Invoice, error)
	CreateInvoices(ctx context.Context, auth RequestAuth, in model.Invoices) (model.Invoices, error)
	UpdateInvoice(ctx context.Context, auth RequestAuth, invoiceID string, in model.Invoices) (model.Invoices, error)
}
