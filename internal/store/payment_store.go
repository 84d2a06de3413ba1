package store

import (
	"context"
	"errors"

	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
)

// Sentinel errors for payment store operations
var (
	ErrPaymentNotFound = errors.New("payment intent not found")
)

// PaymentStore defines the interface for payment-intent storage. Status
// transitions are applied only from provider callbacks, keyed by the
// provider's payment id, with at-most-once semantics.
type PaymentStore interface {
	// CreatePaymentIntent persists a new intent in pending status. This
	// must complete before any payment link is sent to the client.
	CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) error

	// GetPaymentIntentByProviderID retrieves an intent by tenant and the
	// provider's payment id. Returns ErrPaymentNotFound if none exists.
	GetPaymentIntentByProviderID(ctx context.Context, tenantID models.TenantID, providerPaymentID string) (*models.PaymentIntent, error)

	// ApplyCallbackStatus applies a provider-reported status transition.
	// The applied return is false when the stored status is already
	// terminal: duplicate callbacks are accepted but are no-ops, and a
	// terminal status never regresses.
	ApplyCallbackStatus(ctx context.Context, tenantID models.TenantID, providerPaymentID string, status models.PaymentStatus) (applied bool, err error)
}
