package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/xeroflow/xeroflow/internal/domain/auth"
	"github.com/xeroflow/xeroflow/internal/domain/model"
	apperrors "github.com/xeroflow/xeroflow/internal/errors"
	mocks "github.com/xeroflow/xeroflow/internal/mocks/auth"
	"github.com/xeroflow/xeroflow/internal/ports"
	"github.com/xeroflow/xeroflow/internal/testutil"
)

// fakeInvoiceAPI is a scriptable InvoiceAPI double. The default
// behaviour returns empty envelopes.
type fakeInvoiceAPI struct {
	listFunc   func(context.Context, ports.RequestAuth, ports.InvoiceQuery) (model.Invoices, error)
	getFunc    func(context.Context, ports.RequestAuth, string) (model.Invoice, error)
	createFunc func(context.Context, ports.RequestAuth, model.Invoices) (model.Invoices, error)
	updateFunc func(context.Context, ports.RequestAuth, string, model.Invoices) (model.Invoices, error)

	mu       sync.Mutex
	getCalls int
	lastAuth ports.RequestAuth
}

func (f *fakeInvoiceAPI) record(auth ports.RequestAuth) {
	f.mu.Lock()
	f.lastAuth = auth
	f.mu.Unlock()
}

func (f *fakeInvoiceAPI) ListInvoices(ctx context.Context, auth ports.RequestAuth, q ports.InvoiceQuery) (model.Invoices, error) {
	f.record(auth)
	if f.listFunc != nil {
		return f.listFunc(ctx, auth, q)
	}
	return model.Invoices{}, nil
}

func (f *fakeInvoiceAPI) GetInvoice(ctx context.Context, auth ports.RequestAuth, id string) (model.Invoice, error) {
	f.record(auth)
	f.mu.Lock()
	f.getCalls++
	f.mu.Unlock()
	if f.getFunc != nil {
		return f.getFunc(ctx, auth, id)
	}
	return model.Invoice{InvoiceID: id}, nil
}

func (f *fakeInvoiceAPI) CreateInvoices(ctx context.Context, auth ports.RequestAuth, in model.Invoices) (model.Invoices, error) {
	f.record(auth)
	if f.createFunc != nil {
		return f.createFunc(ctx, auth, in)
	}
	return in, nil
}

func (f *fakeInvoiceAPI) UpdateInvoice(ctx context.Context, auth ports.RequestAuth, id string, in model.Invoices) (model.Invoices, error) {
	f.record(auth)
	if f.updateFunc != nil {
		return f.updateFunc(ctx, auth, id, in)
	}
	return in, nil
}

func (f *fakeInvoiceAPI) GetCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

func (f *fakeInvoiceAPI) LastAuth() ports.RequestAuth {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

type invoiceFixture struct {
	provider *mocks.MockAuthProvider
	sessions *mocks.MemorySessionStore
	identity *mocks.MockIdentityClient
	api      *fakeInvoiceAPI
	service  *InvoiceService
}

func newInvoiceFixture(t *testing.T) *invoiceFixture {
	t.Helper()

	provider := mocks.NewMockAuthProvider()
	sessions := mocks.NewMemorySessionStore()
	identity := &mocks.MockIdentityClient{Result: []domainauth.Connection{
		{TenantID: "tenant-1", TenantType: domainauth.TenantTypeOrganisation, TenantName: "Demo Company"},
	}}
	api := &fakeInvoiceAPI{}

	auth := NewAuthService(AuthServiceOptions{Provider: provider, Sessions: sessions})
	tenants := NewTenantService(TenantServiceOptions{Identity: identity, Sessions: sessions})
	service := NewInvoiceService(InvoiceServiceOptions{Auth: auth, Tenants: tenants, API: api})

	return &invoiceFixture{
		provider: provider,
		sessions: sessions,
		identity: identity,
		api:      api,
		service:  service,
	}
}

func (f *invoiceFixture) login(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.sessions.Save(context.Background(), testutil.NewSession(id).Build()))
}

func sampleCreate() model.Invoices {
	return model.Invoices{Invoices: []model.Invoice{{
		Type:    model.InvoiceTypeAccRec,
		Contact: &model.Contact{Name: "John Doe"},
		LineItems: []model.LineItem{{
			Description: "Consulting services",
			Quantity:    10,
			UnitAmount:  100.00,
			AccountCode: "200",
		}},
	}}}
}

func TestListRunsRequestGate(t *testing.T) {
	f := newInvoiceFixture(t)
	f.login(t, "sess-1")

	_, err := f.service.List(context.Background(), "sess-1", ports.InvoiceQuery{})
	require.NoError(t, err)

	auth := f.api.LastAuth()
	assert.NotEmpty(t, auth.AccessToken)
	assert.Equal(t, "tenant-1", auth.TenantID)
}

func TestListUnknownSessionIsUnauthenticated(t *testing.T) {
	f := newInvoiceFixture(t)

	_, err := f.service.List(context.Background(), "missing", ports.InvoiceQuery{})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthenticated(err))
}

func TestListRefreshesExpiredTokenFirst(t *testing.T) {
	f := newInvoiceFixture(t)
	require.NoError(t, f.sessions.Save(context.Background(),
		testutil.NewSession("sess-1").WithToken(testutil.NewToken().Expired().BuildPtr()).Build()))

	_, err := f.service.List(context.Background(), "sess-1", ports.InvoiceQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.provider.RefreshCount())
	assert.Equal(t, "access-refreshed-1", f.api.LastAuth().AccessToken)
}

func TestCreateValidation(t *testing.T) {
	f := newInvoiceFixture(t)
	f.login(t, "sess-1")
	ctx := context.Background()

	_, err := f.service.Create(ctx, "sess-1", model.Invoices{})
	assert.True(t, apperrors.IsValidation(err))

	bad := sampleCreate()
	bad.Invoices[0].Type = "BOGUS"
	_, err = f.service.Create(ctx, "sess-1", bad)
	assert.True(t, apperrors.IsValidation(err))

	bad = sampleCreate()
	bad.Invoices[0].Contact = nil
	_, err = f.service.Create(ctx, "sess-1", bad)
	assert.True(t, apperrors.IsValidation(err))

	bad = sampleCreate()
	bad.Invoices[0].LineItems = nil
	_, err = f.service.Create(ctx, "sess-1", bad)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreatePassesThrough(t *testing.T) {
	f := newInvoiceFixture(t)
	f.login(t, "sess-1")

	out, err := f.service.Create(context.Background(), "sess-1", sampleCreate())
	require.NoError(t, err)
	require.Len(t, out.Invoices, 1)
	assert.Equal(t, "John Doe", out.Invoices[0].Contact.Name)
}

func TestGetRequiresID(t *testing.T) {
	f := newInvoiceFixture(t)
	f.login(t, "sess-1")

	_, err := f.service.Get(context.Background(), "sess-1", "   ")
	assert.True(t, apperrors.IsValidation(err))
}

func TestExistsClassification(t *testing.T) {
	f := newInvoiceFixture(t)
	f.login(t, "sess-1")
	ctx := context.Background()

	exists, err := f.service.Exists(ctx, "sess-1", "inv-1")
	require.NoError(t, err)
	assert.True(t, exists)

	f.api.getFunc = func(context.Context, ports.RequestAuth, string) (model.Invoice, error) {
		return model.Invoice{}, apperrors.NotFound("invoice not found")
	}
	exists, err = f.service.Exists(ctx, "sess-1", "inv-2")
	require.NoError(t, err)
	assert.False(t, exists)

	// A transport failure is an error, never a "does not exist".
	f.api.getFunc = func(context.Context, ports.RequestAuth, string) (model.Invoice, error) {
		return model.Invoice{}, apperrors.Network("timeout talking to api")
	}
	_, err = f.service.Exists(ctx, "sess-1", "inv-3")
	require.Error(t, err)
	assert.True(t, apperrors.IsNetwork(err))
}

func TestExistsBatch(t *testing.T) {
	f := newInvoiceFixture(t)
	f.login(t, "sess-1")

	f.api.getFunc = func(_ context.Context, _ ports.RequestAuth, id string) (model.Invoice, error) {
		if id == "inv-missing" {
			return model.Invoice{}, apperrors.NotFound("invoice not found")
		}
		return model.Invoice{InvoiceID: id}, nil
	}

	results, err := f.service.ExistsBatch(context.Background(), "sess-1", []string{"inv-1", "inv-missing", "inv-3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{
		"inv-1":       true,
		"inv-missing": false,
		"inv-3":       true,
	}, results)

	// Auth was resolved once for the whole batch.
	assert.Equal(t, 1, f.identity.Calls())
}

func TestExistsBatchEmptyInput(t *testing.T) {
	f := newInvoiceFixture(t)
	f.login(t, "sess-1")

	results, err := f.service.ExistsBatch(context.Background(), "sess-1", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestExistsBatchFailsOnDownstreamError(t *testing.T) {
	f := newInvoiceFixture(t)
	f.login(t, "sess-1")

	f.api.getFunc = func(_ context.Context, _ ports.RequestAuth, id string) (model.Invoice, error) {
		if id == "inv-bad" {
			return model.Invoice{}, apperrors.Downstream("api responded 502")
		}
		return model.Invoice{InvoiceID: id}, nil
	}

	_, err := f.service.ExistsBatch(context.Background(), "sess-1", []string{"inv-1", "inv-bad"})
	require.Error(t, err)
	assert.True(t, apperrors.IsDownstream(err))
}

func TestGetByNumberUsesListFilter(t *testing.T) {
	f := newInvoiceFixture(t)
	f.login(t, "sess-1")

	f.api.listFunc = func(_ context.Context, _ ports.RequestAuth, q ports.InvoiceQuery) (model.Invoices, error) {
		if len(q.InvoiceNumbers) == 1 && q.InvoiceNumbers[0] == "INV-949" {
			return model.Invoices{Invoices: []model.Invoice{{InvoiceNumber: "INV-949"}}}, nil
		}
		return model.Invoices{}, nil
	}

	inv, err := f.service.GetByNumber(context.Background(), "sess-1", "INV-949")
	require.NoError(t, err)
	assert.Equal(t, "INV-949", inv.InvoiceNumber)

	_, err = f.service.GetByNumber(context.Background(), "sess-1", "INV-000")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdatePassesThrough(t *testing.T) {
	f := newInvoiceFixture(t)
	f.login(t, "sess-1")

	patch := model.Invoices{Invoices: []model.Invoice{{Status: model.InvoiceStatusSubmitted}}}
	out, err := f.service.Update(context.Background(), "sess-1", "inv-1", patch)
	require.NoError(t, err)
	require.Len(t, out.Invoices, 1)
	assert.Equal(t, model.InvoiceStatusSubmitted, out.Invoices[0].Status)
}
