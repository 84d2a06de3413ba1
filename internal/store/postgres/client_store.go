package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// ClientStore implements store.ClientStore using PostgreSQL.
type ClientStore struct {
	pool *pgxpool.Pool
}

// NewClientStore creates a new PostgreSQL-backed client store.
func NewClientStore(pool *pgxpool.Pool) *ClientStore {
	return &ClientStore{
		pool: pool,
	}
}

// UpsertClient creates the client or updates contact details for an
// existing (tenant, phone) record. registered_at is preserved on conflict.
func (s *ClientStore) UpsertClient(ctx context.Context, client *models.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	if client.RegisteredAt.IsZero() {
		client.RegisteredAt = time.Now()
	}

	query := `
		INSERT INTO clients (
			client_id, tenant_id, name, phone, email, tax_id, registered_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (tenant_id, phone) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			tax_id = EXCLUDED.tax_id
		RETURNING client_id, registered_at
	`

	err := s.pool.QueryRow(ctx, query,
		client.ID,
		client.TenantID,
		client.Name,
		client.Phone,
		client.Email,
		client.TaxID,
		client.RegisteredAt,
	).Scan(&client.ID, &client.RegisteredAt)

	if err != nil {
		return fmt.Errorf("failed to upsert client: %w", mapPostgresError(err))
	}

	return nil
}

// GetClientByPhone retrieves a client by tenant and phone number.
func (s *ClientStore) GetClientByPhone(ctx context.Context, tenantID models.TenantID, phone string) (*models.Client, error) {
	query := `
		SELECT client_id, tenant_id, name, phone, email, tax_id, registered_at
		FROM clients
		WHERE tenant_id = $1 AND phone = $2
	`

	var client models.Client
	err := s.pool.QueryRow(ctx, query, tenantID, phone).Scan(
		&client.ID,
		&client.TenantID,
		&client.Name,
		&client.Phone,
		&client.Email,
		&client.TaxID,
		&client.RegisteredAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", mapPostgresError(err))
	}

	return &client, nil
}

// FindTenantByClientPhone returns the single tenant a phone is bound to.
// An ambiguous binding (same phone under multiple tenants) is treated as
// unresolved.
func (s *ClientStore) FindTenantByClientPhone(ctx context.Context, phone string) (models.TenantID, error) {
	query := `
		SELECT tenant_id
		FROM clients
		WHERE phone = $1
		LIMIT 2
	`

	rows, err := s.pool.Query(ctx, query, phone)
	if err != nil {
		return 0, fmt.Errorf("failed to find tenant by client phone: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var ids []models.TenantID
	for rows.Next() {
		var id models.TenantID
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating tenant ids: %w", err)
	}

	if len(ids) != 1 {
		return 0, store.ErrClientNotFound
	}

	return ids[0], nil
}
