package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceType_Valid(t *testing.T) {
	assert.True(t, InvoiceTypeAccRec.Valid())
	assert.True(t, InvoiceTypeAccPay.Valid())
	assert.False(t, InvoiceType("SALES").Valid())
}

func TestInvoiceStatus_Valid(t *testing.T) {
	valid := []InvoiceStatus{
		InvoiceStatusDraft, InvoiceStatusSubmitted, InvoiceStatusAuthorised,
		InvoiceStatusPaid, InvoiceStatusVoided, InvoiceStatusDeleted,
	}
	for _, s := range valid {
		assert.True(t, s.Valid(), s.String())
	}
	assert.False(t, InvoiceStatus("OPEN").Valid())
}

func TestDate_JSON(t *testing.T) {
	d := NewDate(2026, time.November, 12)
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-11-12"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Equal(d.Time))

	// RFC 3339 timestamps from the API decode too.
	var ts Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-11-12T00:00:00Z"`), &ts))
	assert.True(t, ts.Equal(d.Time))

	var empty Date
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.True(t, empty.IsZero())
}

func TestInvoice_RoundTrip(t *testing.T) {
	inv := Invoice{
		Type:          InvoiceTypeAccRec,
		InvoiceNumber: "INV-949",
		Contact:       &Contact{Name: "John Doe", EmailAddress: "john.doe@example.com"},
		LineItems: []LineItem{
			{Description: "Consulting services", Quantity: 10, UnitAmount: 100, AccountCode: "200"},
		},
		LineAmountTypes: LineAmountTypesExclusive,
		CurrencyCode:    "AUD",
		DueDate:         NewDate(2026, time.November, 12),
		Status:          InvoiceStatusDraft,
		Total:           1000,
		TotalTax:        100,
		AmountDue:       1100,
	}

	b, err := json.Marshal(Invoices{Invoices: []Invoice{inv}})
	require.NoError(t, err)

	var back Invoices
	require.NoError(t, json.Unmarshal(b, &back))
	require.Len(t, back.Invoices, 1)
	got := back.Invoices[0]
	assert.Equal(t, inv.InvoiceNumber, got.InvoiceNumber)
	assert.Equal(t, inv.Contact.Name, got.Contact.Name)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, inv.LineItems[0].AccountCode, got.LineItems[0].AccountCode)
	assert.Equal(t, inv.Total, got.Total)
}
