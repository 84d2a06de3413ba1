package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

type paymentKey struct {
	tenantID   models.TenantID
	providerID string
}

// PaymentStore implements store.PaymentStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type PaymentStore struct {
	mu sync.Mutex

	intents map[paymentKey]*models.PaymentIntent
}

// NewPaymentStore creates a new in-memory payment store.
func NewPaymentStore() *PaymentStore {
	return &PaymentStore{
		intents: make(map[paymentKey]*models.PaymentIntent),
	}
}

// CreatePaymentIntent persists a new intent in pending status.
func (s *PaymentStore) CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}

	clone := *intent
	s.intents[paymentKey{tenantID: intent.TenantID, providerID: intent.ProviderPaymentID}] = &clone

	return nil
}

// GetPaymentIntentByProviderID retrieves an intent by the provider's
// payment id.
func (s *PaymentStore) GetPaymentIntentByProviderID(ctx context.Context, tenantID models.TenantID, providerPaymentID string) (*models.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, exists := s.intents[paymentKey{tenantID: tenantID, providerID: providerPaymentID}]
	if !exists {
		return nil, store.ErrPaymentNotFound
	}

	clone := *intent
	return &clone, nil
}

// ApplyCallbackStatus applies a provider-reported status transition with
// at-most-once semantics. A terminal stored status is never overwritten.
func (s *PaymentStore) ApplyCallbackStatus(ctx context.Context, tenantID models.TenantID, providerPaymentID string, status models.PaymentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, exists := s.intents[paymentKey{tenantID: tenantID, providerID: providerPaymentID}]
	if !exists {
		return false, store.ErrPaymentNotFound
	}

	if intent.Status.Terminal() {
		return false, nil
	}

	intent.Status = status
	intent.UpdatedAt = time.Now()

	return true, nil
}
