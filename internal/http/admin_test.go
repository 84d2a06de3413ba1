package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/adapters/messaging"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/adapters/payment"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/flows"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store/memory"
)

type fakeInstanceCreator struct {
	created []models.TenantID
}

func (f *fakeInstanceCreator) CreateInstance(ctx context.Context, tenantID models.TenantID) (*messaging.Instance, error) {
	f.created = append(f.created, tenantID)
	return &messaging.Instance{
		ID:     messaging.InstanceName(tenantID),
		Status: "created",
		QRCode: "data:image/png;base64,xxx",
	}, nil
}

type fakeSubscriptionProvider struct{}

func (fakeSubscriptionProvider) UpsertCustomer(ctx context.Context, info payment.CustomerInfo) (string, error) {
	return "cus_1", nil
}

func (fakeSubscriptionProvider) CreateCharge(ctx context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	return &payment.Charge{ID: "pay_1"}, nil
}

func (fakeSubscriptionProvider) CreateSubscription(ctx context.Context, req payment.SubscriptionRequest) (*payment.Charge, error) {
	return &payment.Charge{ID: "sub_1", InvoiceURL: "https://pay.example/sub_1"}, nil
}

func TestAdmin_onboardTenant(t *testing.T) {
	ctx := context.Background()
	signKey, verifier := newTestVerifier(t)

	tenants := memory.NewTenantStore()
	instances := &fakeInstanceCreator{}
	paymentFlow := flows.NewPaymentFlow(memory.NewPaymentStore(), memory.NewQuoteStore(), fakeSubscriptionProvider{})

	admin := NewAdminHandler(tenants, instances, paymentFlow, 99.90)

	handler := NewRouter(RouterConfig{
		Dispatcher: nil,
		Registry:   nil,
		Verifier:   verifier,
		Admin:      admin,
	})
	fxAdmin := &routerFixture{handler: handler, signKey: signKey}

	body := `{"id": 9, "name": "Nova Assistência", "cnpj": "98765432000100", "email": "nova@example.com"}`
	rec := fxAdmin.post("/admin/tenants", body, map[string]string{
		"Authorization": "Bearer " + fxAdmin.adminToken(t),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), "empresa_9")
	require.Contains(t, rec.Body.String(), "https://pay.example/sub_1")

	tenant, err := tenants.GetTenant(ctx, 9)
	require.NoError(t, err)
	require.True(t, tenant.Active)

	cfg, err := tenants.GetConfig(ctx, 9)
	require.NoError(t, err)
	require.Equal(t, "empresa_9", cfg.MessagingInstance)
	require.Equal(t, []models.TenantID{9}, instances.created)

	// Re-onboarding the same tenant id is rejected
	rec = fxAdmin.post("/admin/tenants", body, map[string]string{
		"Authorization": "Bearer " + fxAdmin.adminToken(t),
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdmin_onboardValidation(t *testing.T) {
	signKey, verifier := newTestVerifier(t)

	admin := NewAdminHandler(
		memory.NewTenantStore(),
		&fakeInstanceCreator{},
		flows.NewPaymentFlow(memory.NewPaymentStore(), memory.NewQuoteStore(), fakeSubscriptionProvider{}),
		99.90,
	)
	handler := NewRouter(RouterConfig{
		Verifier: verifier,
		Admin:    admin,
	})
	fxAdmin := &routerFixture{handler: handler, signKey: signKey}
	authHeader := map[string]string{"Authorization": "Bearer " + fxAdmin.adminToken(t)}

	rec := fxAdmin.post("/admin/tenants", `{not json`, authHeader)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = fxAdmin.post("/admin/tenants", `{"id": 9}`, authHeader)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
