package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// TokenStore implements store.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *pgxpool.Pool
}

// NewTokenStore creates a new PostgreSQL-backed token store.
func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{
		pool: pool,
	}
}

// GetTokenSet retrieves a tenant's calendar credentials.
func (s *TokenStore) GetTokenSet(ctx context.Context, tenantID models.TenantID) (*models.OAuthTokenSet, error) {
	query := `
		SELECT tenant_id, access_token, refresh_token, expiry, updated_at
		FROM oauth_tokens
		WHERE tenant_id = $1
	`

	var set models.OAuthTokenSet
	err := s.pool.QueryRow(ctx, query, tenantID).Scan(
		&set.TenantID,
		&set.AccessToken,
		&set.RefreshToken,
		&set.Expiry,
		&set.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTokenSetNotFound
		}
		return nil, fmt.Errorf("failed to get token set: %w", mapPostgresError(err))
	}

	return &set, nil
}

// SaveTokenSet persists a (new or refreshed) token set.
func (s *TokenStore) SaveTokenSet(ctx context.Context, set *models.OAuthTokenSet) error {
	set.UpdatedAt = time.Now()

	query := `
		INSERT INTO oauth_tokens (
			tenant_id, access_token, refresh_token, expiry, updated_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
		ON CONFLICT (tenant_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expiry = EXCLUDED.expiry,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		set.TenantID,
		set.AccessToken,
		set.RefreshToken,
		set.Expiry,
		set.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save token set: %w", mapPostgresError(err))
	}

	log.Debug().
		Int64("tenant_id", int64(set.TenantID)).
		Time("expiry", set.Expiry).
		Msg("Saved oauth token set")

	return nil
}
