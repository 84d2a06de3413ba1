package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/adapters/payment"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// ErrNoChargeable means a payment was requested but no quote exists to
// charge for.
var ErrNoChargeable = errors.New("no quote to charge for")

// Provider-reported statuses mapped to the intent lifecycle. Unknown
// statuses are ignored rather than guessed at.
var callbackStatuses = map[string]models.PaymentStatus{
	"PENDING":           models.PaymentPending,
	"RECEIVED":          models.PaymentPaid,
	"CONFIRMED":         models.PaymentPaid,
	"PAYMENT_RECEIVED":  models.PaymentPaid,
	"PAYMENT_CONFIRMED": models.PaymentPaid,
	"OVERDUE":           models.PaymentExpired,
	"PAYMENT_OVERDUE":   models.PaymentExpired,
	"REFUNDED":          models.PaymentFailed,
	"PAYMENT_DELETED":   models.PaymentFailed,
	"PAYMENT_REFUNDED":  models.PaymentFailed,
}

// PaymentFlow creates charges for issued quotes and applies provider
// callbacks. An intent is persisted in pending status before the payment
// link leaves the platform, and status moves only through callbacks.
type PaymentFlow struct {
	payments store.PaymentStore
	quotes   store.QuoteStore
	provider payment.Provider
	now      func() time.Time
}

// NewPaymentFlow creates the payment handler.
func NewPaymentFlow(payments store.PaymentStore, quotes store.QuoteStore, provider payment.Provider) *PaymentFlow {
	return &PaymentFlow{
		payments: payments,
		quotes:   quotes,
		provider: provider,
		now:      time.Now,
	}
}

// Handle routes provider callbacks to status application and messaging
// requests to charge creation.
func (f *PaymentFlow) Handle(ctx context.Context, fc *FlowContext) (*Result, error) {
	if fc.Event.Source == models.SourcePayment {
		return f.applyCallback(ctx, fc)
	}
	return f.createCharge(ctx, fc)
}

// applyCallback applies a provider-reported status transition. Duplicate
// and out-of-order callbacks for terminal intents are accepted and
// dropped.
func (f *PaymentFlow) applyCallback(ctx context.Context, fc *FlowContext) (*Result, error) {
	status, ok := callbackStatuses[strings.ToUpper(fc.Event.Status)]
	if !ok {
		log.Warn().
			Int64("tenant_id", int64(fc.Tenant.ID)).
			Str("payment_id", fc.Event.PaymentID).
			Str("status", fc.Event.Status).
			Msg("ignoring unknown payment callback status")
		return &Result{}, nil
	}

	applied, err := f.payments.ApplyCallbackStatus(ctx, fc.Tenant.ID, fc.Event.PaymentID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to apply payment callback: %w", err)
	}

	log.Debug().
		Int64("tenant_id", int64(fc.Tenant.ID)).
		Str("payment_id", fc.Event.PaymentID).
		Str("status", string(status)).
		Bool("applied", applied).
		Msg("payment callback processed")

	return &Result{}, nil
}

// createCharge charges the client's most recent quote. The intent record
// is written before the link is released, so a crash between the two never
// loses a charge we pointed a client at.
func (f *PaymentFlow) createCharge(ctx context.Context, fc *FlowContext) (*Result, error) {
	quotes, err := f.quotes.ListQuotesByClient(ctx, fc.Tenant.ID, fc.Client.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	if len(quotes) == 0 {
		return nil, ErrNoChargeable
	}
	quote := quotes[0]

	customerID, err := f.provider.UpsertCustomer(ctx, payment.CustomerInfo{
		Name:  fc.Client.Name,
		TaxID: fc.Client.TaxID,
		Email: fc.Client.Email,
		Phone: fc.Client.Phone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure provider customer: %w", err)
	}

	charge, err := f.provider.CreateCharge(ctx, payment.ChargeRequest{
		CustomerID:     customerID,
		Amount:         quote.Value,
		Description:    fmt.Sprintf("Reparo %s %s", quote.DeviceType, quote.DeviceBrand),
		WalletID:       fc.Config.PaymentWalletID,
		IdempotencyKey: "charge-" + quote.ID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create charge: %w", err)
	}

	intent := &models.PaymentIntent{
		ID:                uuid.New(),
		TenantID:          fc.Tenant.ID,
		ClientID:          fc.Client.ID,
		Kind:              models.PaymentCharge,
		ProviderPaymentID: charge.ID,
		Amount:            quote.Value,
		Status:            models.PaymentPending,
		PaymentLink:       charge.Link(),
		CreatedAt:         f.now(),
		UpdatedAt:         f.now(),
	}
	if err := f.payments.CreatePaymentIntent(ctx, intent); err != nil {
		return nil, fmt.Errorf("failed to persist payment intent: %w", err)
	}

	log.Debug().
		Int64("tenant_id", int64(fc.Tenant.ID)).
		Str("payment_id", charge.ID).
		Float64("amount", quote.Value).
		Msg("charge created")

	reply := fmt.Sprintf("Segue o link para pagamento de R$ %.2f:\n%s", quote.Value, charge.Link())
	return &Result{Reply: reply}, nil
}

// SubscribeTenant creates the platform subscription billed to a newly
// onboarded tenant. Used by the onboarding path, not by message handling.
func (f *PaymentFlow) SubscribeTenant(ctx context.Context, tenant *models.Tenant, amount float64) (*models.PaymentIntent, error) {
	customerID, err := f.provider.UpsertCustomer(ctx, payment.CustomerInfo{
		Name:  tenant.Name,
		TaxID: tenant.TaxID,
		Email: tenant.Email,
		Phone: tenant.Phone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure provider customer: %w", err)
	}

	sub, err := f.provider.CreateSubscription(ctx, payment.SubscriptionRequest{
		CustomerID:     customerID,
		Plan:           tenant.Name,
		Amount:         amount,
		Cycle:          "MONTHLY",
		IdempotencyKey: fmt.Sprintf("subscription-%d", tenant.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	intent := &models.PaymentIntent{
		ID:                uuid.New(),
		TenantID:          tenant.ID,
		Kind:              models.PaymentSubscription,
		ProviderPaymentID: sub.ID,
		Amount:            amount,
		Status:            models.PaymentPending,
		PaymentLink:       sub.Link(),
		CreatedAt:         f.now(),
		UpdatedAt:         f.now(),
	}
	if err := f.payments.CreatePaymentIntent(ctx, intent); err != nil {
		return nil, fmt.Errorf("failed to persist subscription intent: %w", err)
	}
	return intent, nil
}
