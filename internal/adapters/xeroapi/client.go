// Package xeroapi implements the identity and accounting API ports
// against the Xero REST endpoints.
package xeroapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/xeroflow/xeroflow/internal/errors"
	"github.com/xeroflow/xeroflow/internal/ports"
)

const (
	defaultAccountingURL = "https://api.xero.com/api.xro/2.0"
	defaultIdentityURL   = "https://api.xero.com"
	tenantHeader         = "Xero-tenant-id"
)

// Config captures the subset of API client behaviour we need.
type Config struct {
	AccountingURL string
	IdentityURL   string
	Timeout       time.Duration
	RetryLimit    int
	Client        *http.Client
}

// Client talks to the Xero identity and accounting APIs. Reads are
// retried with a short linear backoff; writes are attempted once.
type Client struct {
	accountingURL string
	identityURL   string
	retryLimit    int
	client        *http.Client
}

var (
	_ ports.IdentityClient = (*Client)(nil)
	_ ports.InvoiceAPI     = (*Client)(nil)
)

// NewClient builds an API client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	accountingURL := strings.TrimRight(strings.TrimSpace(cfg.AccountingURL), "/")
	if accountingURL == "" {
		accountingURL = defaultAccountingURL
	}
	identityURL := strings.TrimRight(strings.TrimSpace(cfg.IdentityURL), "/")
	if identityURL == "" {
		identityURL = defaultIdentityURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	retries := cfg.RetryLimit
	if retries < 0 {
		retries = 0
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		accountingURL: accountingURL,
		identityURL:   identityURL,
		retryLimit:    retries,
		client:        hc,
	}, nil
}

// get issues a GET and retries transient failures. Only reads go through
// here: a retried write could duplicate an invoice.
func (c *Client) get(ctx context.Context, url string, auth ports.RequestAuth, out any) error {
	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		retryable, err := c.do(ctx, http.MethodGet, url, auth, nil, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable || attempt == attempts-1 {
			break
		}
		// Simple linear backoff to avoid thundering retries.
		delay := time.Duration(attempt+1) * 200 * time.Millisecond
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return classifyTransportError(ctx.Err())
		case <-timer.C:
		}
	}
	return lastErr
}

// do performs a single request. The returned bool reports whether the
// failure is safe to retry for idempotent methods.
func (c *Client) do(ctx context.Context, method, url string, auth ports.RequestAuth, body, out any) (bool, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "create api request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	if auth.TenantID != "" {
		req.Header.Set(tenantHeader, auth.TenantID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		classified := classifyTransportError(err)
		return apperrors.IsNetwork(classified), classified
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleErrorResponse(resp)
	}

	return false, decodeSuccess(resp, out)
}

func decodeSuccess(resp *http.Response, out any) error {
	if out == nil {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			_ = resp.Body.Close()
			return apperrors.Wrap(err, apperrors.ErrCodeNetwork, "drain api response")
		}
		if err := resp.Body.Close(); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeNetwork, "close response body")
		}
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		_ = resp.Body.Close()
		return apperrors.Wrap(err, apperrors.ErrCodeDownstream, "decode api response")
	}
	if err := resp.Body.Close(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeNetwork, "close response body")
	}
	return nil
}

// apiError is the accounting API's error envelope. Validation failures
// nest per-element messages under Elements.
type apiError struct {
	ErrorNumber int    `json:"ErrorNumber"`
	Type        string `json:"Type"`
	Message     string `json:"Message"`
	Elements    []struct {
		ValidationErrors []struct {
			Message string `json:"Message"`
		} `json:"ValidationErrors"`
	} `json:"Elements"`
}

func (e apiError) fieldMessages() []string {
	var msgs []string
	for _, el := range e.Elements {
		for _, ve := range el.ValidationErrors {
			if ve.Message != "" {
				msgs = append(msgs, ve.Message)
			}
		}
	}
	return msgs
}

func (c *Client) handleErrorResponse(resp *http.Response) (bool, error) {
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	closeErr := resp.Body.Close()
	if readErr != nil {
		return false, apperrors.Wrap(readErr, apperrors.ErrCodeNetwork, "read api error response")
	}
	if closeErr != nil {
		return false, apperrors.Wrap(closeErr, apperrors.ErrCodeNetwork, "close response body")
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		var apiErr apiError
		if err := json.Unmarshal(respBody, &apiErr); err == nil {
			if fields := apiErr.fieldMessages(); len(fields) > 0 {
				msg := apiErr.Message
				if msg == "" {
					msg = "request rejected"
				}
				return false, apperrors.ValidationFields(msg, fields)
			}
			if apiErr.Message != "" {
				return false, apperrors.Downstream(apiErr.Message)
			}
		}
		return false, apperrors.Downstream(trimmedBody(resp.Status, respBody))
	case resp.StatusCode == http.StatusUnauthorized:
		return false, apperrors.TokenInvalid("api rejected access token")
	case resp.StatusCode == http.StatusForbidden:
		return false, apperrors.Downstream("api denied access: " + trimmedBody(resp.Status, respBody))
	case resp.StatusCode == http.StatusNotFound:
		return false, apperrors.NotFound("resource not found")
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return true, apperrors.Downstream(trimmedBody(resp.Status, respBody))
	default:
		return false, apperrors.Downstream(trimmedBody(resp.Status, respBody))
	}
}

func trimmedBody(status string, body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return fmt.Sprintf("api responded %s", status)
	}
	if len(text) > 256 {
		text = text[:256]
	}
	return fmt.Sprintf("api responded %s: %s", status, text)
}

func classifyTransportError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "api request timed out")
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(err, apperrors.ErrCodeCanceled, "api request canceled")
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeNetwork, "api request failed")
	}
}
