package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// PaymentStore implements store.PaymentStore using PostgreSQL.
type PaymentStore struct {
	pool *pgxpool.Pool
}

// NewPaymentStore creates a new PostgreSQL-backed payment store.
func NewPaymentStore(pool *pgxpool.Pool) *PaymentStore {
	return &PaymentStore{
		pool: pool,
	}
}

// CreatePaymentIntent persists a new intent in pending status.
func (s *PaymentStore) CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) error {
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	now := time.Now()
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = now
	}
	intent.UpdatedAt = now

	var orderID any
	if intent.ServiceOrderID != uuid.Nil {
		orderID = intent.ServiceOrderID
	}

	query := `
		INSERT INTO payment_intents (
			intent_id, tenant_id, client_id, service_order_id, kind,
			provider_payment_id, amount, status, payment_link,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := s.pool.Exec(ctx, query,
		intent.ID,
		intent.TenantID,
		intent.ClientID,
		orderID,
		intent.Kind,
		intent.ProviderPaymentID,
		intent.Amount,
		intent.Status,
		intent.PaymentLink,
		intent.CreatedAt,
		intent.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create payment intent: %w", mapPostgresError(err))
	}

	log.Debug().
		Int64("tenant_id", int64(intent.TenantID)).
		Str("provider_payment_id", intent.ProviderPaymentID).
		Float64("amount", intent.Amount).
		Msg("Created payment intent")

	return nil
}

// GetPaymentIntentByProviderID retrieves an intent by the provider's
// payment id.
func (s *PaymentStore) GetPaymentIntentByProviderID(ctx context.Context, tenantID models.TenantID, providerPaymentID string) (*models.PaymentIntent, error) {
	query := `
		SELECT intent_id, tenant_id, client_id,
			COALESCE(service_order_id, '00000000-0000-0000-0000-000000000000'),
			kind, provider_payment_id, amount, status, payment_link,
			created_at, updated_at
		FROM payment_intents
		WHERE tenant_id = $1 AND provider_payment_id = $2
	`

	var intent models.PaymentIntent
	err := s.pool.QueryRow(ctx, query, tenantID, providerPaymentID).Scan(
		&intent.ID,
		&intent.TenantID,
		&intent.ClientID,
		&intent.ServiceOrderID,
		&intent.Kind,
		&intent.ProviderPaymentID,
		&intent.Amount,
		&intent.Status,
		&intent.PaymentLink,
		&intent.CreatedAt,
		&intent.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment intent: %w", mapPostgresError(err))
	}

	return &intent, nil
}

// ApplyCallbackStatus applies a provider-reported status transition.
// The terminal-state guard lives in SQL so duplicate callbacks racing each
// other still apply at most once.
func (s *PaymentStore) ApplyCallbackStatus(ctx context.Context, tenantID models.TenantID, providerPaymentID string, status models.PaymentStatus) (bool, error) {
	query := `
		UPDATE payment_intents SET
			status = $3,
			updated_at = $4
		WHERE tenant_id = $1 AND provider_payment_id = $2
			AND status NOT IN ('paid', 'failed', 'expired')
	`

	result, err := s.pool.Exec(ctx, query, tenantID, providerPaymentID, status, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to apply callback status: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		// Either the intent doesn't exist or it's already terminal
		if _, err := s.GetPaymentIntentByProviderID(ctx, tenantID, providerPaymentID); err != nil {
			return false, err
		}

		log.Debug().
			Int64("tenant_id", int64(tenantID)).
			Str("provider_payment_id", providerPaymentID).
			Str("status", string(status)).
			Msg("Duplicate payment callback ignored")

		return false, nil
	}

	return true, nil
}
