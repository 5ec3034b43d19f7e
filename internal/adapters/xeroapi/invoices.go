package xeroapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/xeroflow/xeroflow/internal/domain/model"
	apperrors "github.com/xeroflow/xeroflow/internal/errors"
	"github.com/xeroflow/xeroflow/internal/ports"
)

// ListInvoices fetches invoices matching the query. Empty query fields
// are not sent, so a zero query lists everything the tenant has.
func (c *Client) ListInvoices(ctx context.Context, auth ports.RequestAuth, q ports.InvoiceQuery) (model.Invoices, error) {
	endpoint := c.accountingURL + "/Invoices"

	params := url.Values{}
	if len(q.Statuses) > 0 {
		statuses := make([]string, 0, len(q.Statuses))
		for _, s := range q.Statuses {
			statuses = append(statuses, s.String())
		}
		params.Set("Statuses", strings.Join(statuses, ","))
	}
	if len(q.InvoiceNumbers) > 0 {
		params.Set("InvoiceNumbers", strings.Join(q.InvoiceNumbers, ","))
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var out model.Invoices
	if err := c.get(ctx, endpoint, auth, &out); err != nil {
		return model.Invoices{}, err
	}
	return out, nil
}

// GetInvoice fetches a single invoice by id or invoice number.
func (c *Client) GetInvoice(ctx context.Context, auth ports.RequestAuth, invoiceID string) (model.Invoice, error) {
	if strings.TrimSpace(invoiceID) == "" {
		return model.Invoice{}, apperrors.Validation("invoice id is required")
	}

	var out model.Invoices
	endpoint := c.accountingURL + "/Invoices/" + url.PathEscape(invoiceID)
	if err := c.get(ctx, endpoint, auth, &out); err != nil {
		return model.Invoice{}, err
	}
	if len(out.Invoices) == 0 {
		return model.Invoice{}, apperrors.NotFoundf("invoice %q not found", invoiceID)
	}
	return out.Invoices[0], nil
}

// CreateInvoices creates the given invoices. The API uses PUT for
// creation and returns the created records with server-assigned ids.
func (c *Client) CreateInvoices(ctx context.Context, auth ports.RequestAuth, in model.Invoices) (model.Invoices, error) {
	if len(in.Invoices) == 0 {
		return model.Invoices{}, apperrors.Validation("at least one invoice is required")
	}

	var out model.Invoices
	_, err := c.do(ctx, http.MethodPut, c.accountingURL+"/Invoices", auth, in, &out)
	if err != nil {
		return model.Invoices{}, err
	}
	return out, nil
}

// UpdateInvoice applies a partial update to an existing invoice. The
// API expects a POST to the invoice resource with an envelope body.
func (c *Client) UpdateInvoice(ctx context.Context, auth ports.RequestAuth, invoiceID string, in model.Invoices) (model.Invoices, error) {
	if strings.TrimSpace(invoiceID) == "" {
		return model.Invoices{}, apperrors.Validation("invoice id is required")
	}
	if len(in.Invoices) == 0 {
		return model.Invoices{}, apperrors.Validation("invoice body is required")
	}

	var out model.Invoices
	endpoint := c.accountingURL + "/Invoices/" + url.PathEscape(invoiceID)
	_, err := c.do(ctx, http.MethodPost, endpoint, auth, in, &out)
	if err != nil {
		return model.Invoices{}, err
	}
	return out, nil
}
