package store

import (
	"context"
	"errors"

	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
)

// Sentinel errors for tenant store operations
var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrTenantAlreadyExists = errors.New("tenant already exists")
	ErrConfigNotFound      = errors.New("tenant config not found")
)

// TenantStore defines the interface for tenant and tenant-config storage.
// Every tenant has at most one active config; config writes happen only
// through the administrative update path.
type TenantStore interface {
	// CreateTenant creates a new tenant.
	// Returns ErrTenantAlreadyExists if the ID or tax id is taken.
	CreateTenant(ctx context.Context, tenant *models.Tenant) error

	// GetTenant retrieves a tenant by ID.
	// Returns ErrTenantNotFound if the tenant doesn't exist.
	GetTenant(ctx context.Context, tenantID models.TenantID) (*models.Tenant, error)

	// DeactivateTenant soft-deletes a tenant. Existing data is retained.
	DeactivateTenant(ctx context.Context, tenantID models.TenantID) error

	// GetConfig retrieves the active config for a tenant.
	// Returns ErrConfigNotFound if no config has been provisioned.
	GetConfig(ctx context.Context, tenantID models.TenantID) (*models.TenantConfig, error)

	// UpdateConfig replaces the tenant's config (administrative path).
	UpdateConfig(ctx context.Context, cfg *models.TenantConfig) error

	// GetTenantByInstance maps a messaging-provider instance name back to
	// its tenant. This is the resolver's instance index.
	GetTenantByInstance(ctx context.Context, instance string) (*models.Tenant, error)
}
