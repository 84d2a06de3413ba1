package flows

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/adapters/payment"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store/memory"
)

type fakePaymentProvider struct {
	customers     map[string]string // tax id -> customer id
	charges       []payment.ChargeRequest
	subscriptions []payment.SubscriptionRequest
	nextID        int
}

func newFakePaymentProvider() *fakePaymentProvider {
	return &fakePaymentProvider{customers: make(map[string]string)}
}

func (f *fakePaymentProvider) UpsertCustomer(ctx context.Context, info payment.CustomerInfo) (string, error) {
	if id, ok := f.customers[info.TaxID]; ok {
		return id, nil
	}
	id := "cus_" + info.TaxID
	f.customers[info.TaxID] = id
	return id, nil
}

func (f *fakePaymentProvider) CreateCharge(ctx context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	f.charges = append(f.charges, req)
	f.nextID++
	return &payment.Charge{
		ID:         "pay_1",
		Status:     "PENDING",
		InvoiceURL: "https://pay.example/pay_1",
	}, nil
}

func (f *fakePaymentProvider) CreateSubscription(ctx context.Context, req payment.SubscriptionRequest) (*payment.Charge, error) {
	f.subscriptions = append(f.subscriptions, req)
	return &payment.Charge{
		ID:         "sub_1",
		Status:     "PENDING",
		InvoiceURL: "https://pay.example/sub_1",
	}, nil
}

func paymentContext(clientID uuid.UUID) *FlowContext {
	return &FlowContext{
		Tenant: &models.Tenant{ID: 7, Active: true},
		Config: &models.TenantConfig{TenantID: 7, PaymentWalletID: "wal_7"},
		Client: &models.Client{
			ID: clientID, TenantID: 7,
			Name: "João", Phone: "5511999999999", TaxID: "12345678901",
		},
		Event: &models.InboundEvent{
			Source: models.SourceMessaging,
			From:   "5511999999999",
			Text:   "me manda o link de pagamento",
		},
	}
}

func callbackContext(paymentID, status string) *FlowContext {
	return &FlowContext{
		Tenant: &models.Tenant{ID: 7, Active: true},
		Config: &models.TenantConfig{TenantID: 7},
		Client: &models.Client{TenantID: 7},
		Event: &models.InboundEvent{
			Source:    models.SourcePayment,
			PaymentID: paymentID,
			Status:    status,
		},
	}
}

func seedQuote(t *testing.T, quotes *memory.QuoteStore, clientID uuid.UUID, value float64) {
	t.Helper()
	err := quotes.CreateQuote(context.Background(), &models.Quote{
		ID:        uuid.New(),
		TenantID:  7,
		ClientID:  clientID,
		Value:     value,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
}

func TestPayment_chargePersistsIntentBeforeLink(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()

	quotes := memory.NewQuoteStore()
	seedQuote(t, quotes, clientID, 135.00)

	payments := memory.NewPaymentStore()
	provider := newFakePaymentProvider()
	f := NewPaymentFlow(payments, quotes, provider)

	res, err := f.Handle(ctx, paymentContext(clientID))
	require.NoError(t, err)
	require.Contains(t, res.Reply, "135.00")
	require.Contains(t, res.Reply, "https://pay.example/pay_1")

	intent, err := payments.GetPaymentIntentByProviderID(ctx, 7, "pay_1")
	require.NoError(t, err)
	require.Equal(t, models.PaymentPending, intent.Status)
	require.Equal(t, models.PaymentCharge, intent.Kind)
	require.Equal(t, 135.00, intent.Amount)

	require.Len(t, provider.charges, 1)
	require.Equal(t, "wal_7", provider.charges[0].WalletID)
	require.NotEmpty(t, provider.charges[0].IdempotencyKey)
}

func TestPayment_chargeWithoutQuoteFails(t *testing.T) {
	ctx := context.Background()
	f := NewPaymentFlow(memory.NewPaymentStore(), memory.NewQuoteStore(), newFakePaymentProvider())

	_, err := f.Handle(ctx, paymentContext(uuid.New()))
	require.ErrorIs(t, err, ErrNoChargeable)
}

func TestPayment_callbackAppliesStatus(t *testing.T) {
	ctx := context.Background()
	payments := memory.NewPaymentStore()
	f := NewPaymentFlow(payments, memory.NewQuoteStore(), newFakePaymentProvider())

	err := payments.CreatePaymentIntent(ctx, &models.PaymentIntent{
		TenantID:          7,
		ProviderPaymentID: "pay_1",
		Status:            models.PaymentPending,
	})
	require.NoError(t, err)

	_, err = f.Handle(ctx, callbackContext("pay_1", "RECEIVED"))
	require.NoError(t, err)

	intent, err := payments.GetPaymentIntentByProviderID(ctx, 7, "pay_1")
	require.NoError(t, err)
	require.Equal(t, models.PaymentPaid, intent.Status)
}

func TestPayment_duplicateCallbackIsNoOp(t *testing.T) {
	ctx := context.Background()
	payments := memory.NewPaymentStore()
	f := NewPaymentFlow(payments, memory.NewQuoteStore(), newFakePaymentProvider())

	err := payments.CreatePaymentIntent(ctx, &models.PaymentIntent{
		TenantID:          7,
		ProviderPaymentID: "pay_1",
		Status:            models.PaymentPending,
	})
	require.NoError(t, err)

	_, err = f.Handle(ctx, callbackContext("pay_1", "RECEIVED"))
	require.NoError(t, err)

	// A late OVERDUE delivery must not regress the terminal status
	_, err = f.Handle(ctx, callbackContext("pay_1", "OVERDUE"))
	require.NoError(t, err)

	intent, err := payments.GetPaymentIntentByProviderID(ctx, 7, "pay_1")
	require.NoError(t, err)
	require.Equal(t, models.PaymentPaid, intent.Status)
}

func TestPayment_unknownCallbackStatusIgnored(t *testing.T) {
	ctx := context.Background()
	payments := memory.NewPaymentStore()
	f := NewPaymentFlow(payments, memory.NewQuoteStore(), newFakePaymentProvider())

	err := payments.CreatePaymentIntent(ctx, &models.PaymentIntent{
		TenantID:          7,
		ProviderPaymentID: "pay_1",
		Status:            models.PaymentPending,
	})
	require.NoError(t, err)

	_, err = f.Handle(ctx, callbackContext("pay_1", "SOMETHING_NEW"))
	require.NoError(t, err)

	intent, err := payments.GetPaymentIntentByProviderID(ctx, 7, "pay_1")
	require.NoError(t, err)
	require.Equal(t, models.PaymentPending, intent.Status)
}

func TestPayment_subscribeTenant(t *testing.T) {
	ctx := context.Background()
	payments := memory.NewPaymentStore()
	provider := newFakePaymentProvider()
	f := NewPaymentFlow(payments, memory.NewQuoteStore(), provider)

	tenant := &models.Tenant{ID: 7, Name: "TechFix", TaxID: "12345678000190"}
	intent, err := f.SubscribeTenant(ctx, tenant, 99.90)
	require.NoError(t, err)
	require.Equal(t, models.PaymentSubscription, intent.Kind)
	require.Equal(t, models.PaymentPending, intent.Status)
	require.Equal(t, "https://pay.example/sub_1", intent.PaymentLink)

	require.Len(t, provider.subscriptions, 1)
	require.Equal(t, "MONTHLY", provider.subscriptions[0].Cycle)
	require.Equal(t, 99.90, provider.subscriptions[0].Amount)
}
