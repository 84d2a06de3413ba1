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

// QuoteStore implements store.QuoteStore using PostgreSQL.
type QuoteStore struct {
	pool *pgxpool.Pool
}

// NewQuoteStore creates a new PostgreSQL-backed quote store.
func NewQuoteStore(pool *pgxpool.Pool) *QuoteStore {
	return &QuoteStore{
		pool: pool,
	}
}

// CreateQuote persists a newly computed quote.
func (s *QuoteStore) CreateQuote(ctx context.Context, quote *models.Quote) error {
	if quote.ID == uuid.Nil {
		quote.ID = uuid.New()
	}
	if quote.CreatedAt.IsZero() {
		quote.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO quotes (
			quote_id, tenant_id, client_id, device_type, device_brand,
			device_model, value, discount_applied, message, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := s.pool.Exec(ctx, query,
		quote.ID,
		quote.TenantID,
		quote.ClientID,
		quote.DeviceType,
		quote.DeviceBrand,
		quote.DeviceModel,
		quote.Value,
		quote.DiscountApplied,
		quote.Message,
		quote.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create quote: %w", mapPostgresError(err))
	}

	log.Debug().
		Int64("tenant_id", int64(quote.TenantID)).
		Str("quote_id", quote.ID.String()).
		Float64("value", quote.Value).
		Msg("Created quote")

	return nil
}

// GetQuote retrieves a quote by tenant and id.
func (s *QuoteStore) GetQuote(ctx context.Context, tenantID models.TenantID, quoteID uuid.UUID) (*models.Quote, error) {
	query := `
		SELECT quote_id, tenant_id, client_id, device_type, device_brand,
			device_model, value, discount_applied, message, created_at
		FROM quotes
		WHERE tenant_id = $1 AND quote_id = $2
	`

	var quote models.Quote
	err := s.pool.QueryRow(ctx, query, tenantID, quoteID).Scan(
		&quote.ID,
		&quote.TenantID,
		&quote.ClientID,
		&quote.DeviceType,
		&quote.DeviceBrand,
		&quote.DeviceModel,
		&quote.Value,
		&quote.DiscountApplied,
		&quote.Message,
		&quote.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", mapPostgresError(err))
	}

	return &quote, nil
}

// ListQuotesByClient returns a client's quotes, newest first.
func (s *QuoteStore) ListQuotesByClient(ctx context.Context, tenantID models.TenantID, clientID uuid.UUID) ([]*models.Quote, error) {
	query := `
		SELECT quote_id, tenant_id, client_id, device_type, device_brand,
			device_model, value, discount_applied, message, created_at
		FROM quotes
		WHERE tenant_id = $1 AND client_id = $2
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, tenantID, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var quotes []*models.Quote
	for rows.Next() {
		var quote models.Quote
		err := rows.Scan(
			&quote.ID,
			&quote.TenantID,
			&quote.ClientID,
			&quote.DeviceType,
			&quote.DeviceBrand,
			&quote.DeviceModel,
			&quote.Value,
			&quote.DiscountApplied,
			&quote.Message,
			&quote.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, &quote)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quotes: %w", err)
	}

	return quotes, nil
}
