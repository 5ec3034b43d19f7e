package model

import "time"

// Invoice mirrors the accounting API's invoice wire shape. Field names
// follow the upstream JSON, which uses PascalCase keys.
type Invoice struct {
	Type            InvoiceType       `json:"Type,omitempty"`
	InvoiceID       string            `json:"InvoiceID,omitempty"`
	InvoiceNumber   string            `json:"InvoiceNumber,omitempty"`
	Contact         *Contact          `json:"Contact,omitempty"`
	LineItems       []LineItem        `json:"LineItems,omitempty"`
	LineAmountTypes LineAmountTypes   `json:"LineAmountTypes,omitempty"`
	CurrencyCode    string            `json:"CurrencyCode,omitempty"`
	DueDate         *Date             `json:"DueDate,omitempty"`
	Status          InvoiceStatus     `json:"Status,omitempty"`
	Total           float64           `json:"Total,omitempty"`
	TotalTax        float64           `json:"TotalTax,omitempty"`
	AmountDue       float64           `json:"AmountDue,omitempty"`
	HasErrors       bool              `json:"HasErrors,omitempty"`
	ValidationErrs  []ValidationError `json:"ValidationErrors,omitempty"`
}

// Invoices is the envelope the accounting API wraps invoice collections in.
type Invoices struct {
	Invoices []Invoice `json:"Invoices"`
}

// Contact is the invoice counterparty.
type Contact struct {
	ContactID    string `json:"ContactID,omitempty"`
	Name         string `json:"Name,omitempty"`
	EmailAddress string `json:"EmailAddress,omitempty"`
}

// LineItem is a single invoice line.
type LineItem struct {
	Description string  `json:"Description,omitempty"`
	Quantity    float64 `json:"Quantity,omitempty"`
	UnitAmount  float64 `json:"UnitAmount,omitempty"`
	AccountCode string  `json:"AccountCode,omitempty"`
	LineAmount  float64 `json:"LineAmount,omitempty"`
	TaxAmount   float64 `json:"TaxAmount,omitempty"`
}

// ValidationError is a field-level rejection attached to an invoice by the
// accounting API.
type ValidationError struct {
	Message string `json:"Message"`
}

// InvoiceType distinguishes receivable from payable invoices.
type InvoiceType string

const (
	InvoiceTypeAccRec InvoiceType = "ACCREC"
	InvoiceTypeAccPay InvoiceType = "ACCPAY"
)

// Valid returns true if the invoice type is one the accounting API accepts.
func (t InvoiceType) Valid() bool {
	switch t {
	case InvoiceTypeAccRec, InvoiceTypeAccPay:
		return true
	default:
		return false
	}
}

// String returns the string representation of the invoice type.
func (t InvoiceType) String() string {
	return string(t)
}

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft      InvoiceStatus = "DRAFT"
	InvoiceStatusSubmitted  InvoiceStatus = "SUBMITTED"
	InvoiceStatusAuthorised InvoiceStatus = "AUTHORISED"
	InvoiceStatusPaid       InvoiceStatus = "PAID"
	InvoiceStatusVoided     InvoiceStatus = "VOIDED"
	InvoiceStatusDeleted    InvoiceStatus = "DELETED"
)

// Valid returns true if the invoice status is valid.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSubmitted, InvoiceStatusAuthorised,
		InvoiceStatusPaid, InvoiceStatusVoided, InvoiceStatusDeleted:
		return true
	default:
		return false
	}
}

// String returns the string representation of the invoice status.
func (s InvoiceStatus) String() string {
	return string(s)
}

// LineAmountTypes states whether line amounts include tax.
type LineAmountTypes string

const (
	LineAmountTypesExclusive LineAmountTypes = "Exclusive"
	LineAmountTypesInclusive LineAmountTypes = "Inclusive"
	LineAmountTypesNoTax     LineAmountTypes = "NoTax"
)

// Date is a calendar date serialized as "2006-01-02", the format the
// accounting API uses for due dates.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a Date from year, month, day in UTC.
func NewDate(year int, month time.Month, day int) *Date {
	return &Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. It accepts both the plain
// date layout and RFC 3339 timestamps, since the API is inconsistent
// about which it returns.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		return nil
	}
	s = s[1 : len(s)-1]
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}
