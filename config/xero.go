package config

import "time"

// XeroConfig contains configuration for the Xero API client.
type XeroConfig struct {
	// AccountingURL overrides the accounting API base URL. Leave empty
	// for the production endpoint.
	AccountingURL string `env:"ACCOUNTING_URL" envDefault:""`

	// IdentityURL overrides the identity host used for /connections.
	IdentityURL string `env:"IDENTITY_URL" envDefault:""`

	// Timeout bounds each outbound API call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`

	// RetryLimit is the number of retries for idempotent reads. Writes
	// are never retried.
	RetryLimit int `env:"RETRY_LIMIT" envDefault:"2"`
}

// Sanitize applies guardrails to Xero client configuration values.
func (x *XeroConfig) Sanitize() {
	if x.Timeout <= 0 {
		x.Timeout = 10 * time.Second
	}
	if x.RetryLimit < 0 {
		x.RetryLimit = 0
	}
	const maxRetryLimit = 5
	if x.RetryLimit > maxRetryLimit {
		x.RetryLimit = maxRetryLimit
	}
}
