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

// TenantStore implements store.TenantStore using PostgreSQL.
type TenantStore struct {
	pool *pgxpool.Pool
}

// NewTenantStore creates a new PostgreSQL-backed tenant store.
// It shares the connection pool with other stores.
func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{
		pool: pool,
	}
}

// CreateTenant creates a new tenant in the database.
func (s *TenantStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (
			tenant_id, name, tax_id, email, phone, active, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.TaxID,
		tenant.Email,
		tenant.Phone,
		tenant.Active,
		tenant.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrTenantAlreadyExists
		}
		return fmt.Errorf("failed to create tenant: %w", mapPostgresError(err))
	}

	log.Debug().
		Int64("tenant_id", int64(tenant.ID)).
		Str("name", tenant.Name).
		Msg("Created tenant")

	return nil
}

// GetTenant retrieves a tenant by ID.
func (s *TenantStore) GetTenant(ctx context.Context, tenantID models.TenantID) (*models.Tenant, error) {
	query := `
		SELECT tenant_id, name, tax_id, email, phone, active, created_at
		FROM tenants
		WHERE tenant_id = $1
	`

	var tenant models.Tenant
	err := s.pool.QueryRow(ctx, query, tenantID).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.TaxID,
		&tenant.Email,
		&tenant.Phone,
		&tenant.Active,
		&tenant.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", mapPostgresError(err))
	}

	return &tenant, nil
}

// DeactivateTenant soft-deletes a tenant.
func (s *TenantStore) DeactivateTenant(ctx context.Context, tenantID models.TenantID) error {
	query := `UPDATE tenants SET active = FALSE WHERE tenant_id = $1`

	result, err := s.pool.Exec(ctx, query, tenantID)
	if err != nil {
		return fmt.Errorf("failed to deactivate tenant: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrTenantNotFound
	}

	log.Info().
		Int64("tenant_id", int64(tenantID)).
		Msg("Deactivated tenant")

	return nil
}

// GetConfig retrieves the active config for a tenant.
func (s *TenantStore) GetConfig(ctx context.Context, tenantID models.TenantID) (*models.TenantConfig, error) {
	query := `
		SELECT tenant_id, messaging_instance, calendar_id, payment_wallet_id,
			business_hours, welcome_message, out_of_hours_message,
			handoff_message, quote_template, pricing, discount_enabled,
			discount_rate, discount_min_age_secs, token_refresh_margin_secs,
			updated_at
		FROM tenant_configs
		WHERE tenant_id = $1
	`

	var cfg models.TenantConfig
	var minAgeSecs, marginSecs int64
	err := s.pool.QueryRow(ctx, query, tenantID).Scan(
		&cfg.TenantID,
		&cfg.MessagingInstance,
		&cfg.CalendarID,
		&cfg.PaymentWalletID,
		&cfg.BusinessHours,
		&cfg.WelcomeMessage,
		&cfg.OutOfHoursMessage,
		&cfg.HandoffMessage,
		&cfg.QuoteTemplate,
		&cfg.Pricing,
		&cfg.DiscountEnabled,
		&cfg.DiscountRate,
		&minAgeSecs,
		&marginSecs,
		&cfg.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to get tenant config: %w", mapPostgresError(err))
	}

	cfg.DiscountMinAge = time.Duration(minAgeSecs) * time.Second
	cfg.TokenRefreshMargin = time.Duration(marginSecs) * time.Second
	cfg.ApplyDefaults()

	return &cfg, nil
}

// UpdateConfig replaces the tenant's config (administrative path).
func (s *TenantStore) UpdateConfig(ctx context.Context, cfg *models.TenantConfig) error {
	cfg.UpdatedAt = time.Now()

	query := `
		INSERT INTO tenant_configs (
			tenant_id, messaging_instance, calendar_id, payment_wallet_id,
			business_hours, welcome_message, out_of_hours_message,
			handoff_message, quote_template, pricing, discount_enabled,
			discount_rate, discount_min_age_secs, token_refresh_margin_secs,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT (tenant_id) DO UPDATE SET
			messaging_instance = EXCLUDED.messaging_instance,
			calendar_id = EXCLUDED.calendar_id,
			payment_wallet_id = EXCLUDED.payment_wallet_id,
			business_hours = EXCLUDED.business_hours,
			welcome_message = EXCLUDED.welcome_message,
			out_of_hours_message = EXCLUDED.out_of_hours_message,
			handoff_message = EXCLUDED.handoff_message,
			quote_template = EXCLUDED.quote_template,
			pricing = EXCLUDED.pricing,
			discount_enabled = EXCLUDED.discount_enabled,
			discount_rate = EXCLUDED.discount_rate,
			discount_min_age_secs = EXCLUDED.discount_min_age_secs,
			token_refresh_margin_secs = EXCLUDED.token_refresh_margin_secs,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		cfg.TenantID,
		cfg.MessagingInstance,
		cfg.CalendarID,
		cfg.PaymentWalletID,
		cfg.BusinessHours,
		cfg.WelcomeMessage,
		cfg.OutOfHoursMessage,
		cfg.HandoffMessage,
		cfg.QuoteTemplate,
		cfg.Pricing,
		cfg.DiscountEnabled,
		cfg.DiscountRate,
		int64(cfg.DiscountMinAge/time.Second),
		int64(cfg.TokenRefreshMargin/time.Second),
		cfg.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update tenant config: %w", mapPostgresError(err))
	}

	log.Debug().
		Int64("tenant_id", int64(cfg.TenantID)).
		Msg("Updated tenant config")

	return nil
}

// GetTenantByInstance maps a messaging-provider instance name back to its
// tenant.
func (s *TenantStore) GetTenantByInstance(ctx context.Context, instance string) (*models.Tenant, error) {
	query := `
		SELECT t.tenant_id, t.name, t.tax_id, t.email, t.phone, t.active, t.created_at
		FROM tenants t
		JOIN tenant_configs c ON c.tenant_id = t.tenant_id
		WHERE c.messaging_instance = $1
	`

	var tenant models.Tenant
	err := s.pool.QueryRow(ctx, query, instance).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.TaxID,
		&tenant.Email,
		&tenant.Phone,
		&tenant.Active,
		&tenant.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant by instance: %w", mapPostgresError(err))
	}

	return &tenant, nil
}
