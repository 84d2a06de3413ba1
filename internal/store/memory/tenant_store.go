package memory

import (
	"context"
	"sync"
	"time"

	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// TenantStore implements store.TenantStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type TenantStore struct {
	mu sync.RWMutex

	tenants    map[models.TenantID]*models.Tenant
	configs    map[models.TenantID]*models.TenantConfig
	byInstance map[string]models.TenantID
}

// NewTenantStore creates a new in-memory tenant store.
func NewTenantStore() *TenantStore {
	return &TenantStore{
		tenants:    make(map[models.TenantID]*models.Tenant),
		configs:    make(map[models.TenantID]*models.TenantConfig),
		byInstance: make(map[string]models.TenantID),
	}
}

// CreateTenant creates a new tenant in memory.
func (s *TenantStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenants[tenant.ID]; exists {
		return store.ErrTenantAlreadyExists
	}

	clone := *tenant
	s.tenants[tenant.ID] = &clone

	return nil
}

// GetTenant retrieves a tenant by ID.
func (s *TenantStore) GetTenant(ctx context.Context, tenantID models.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenant, exists := s.tenants[tenantID]
	if !exists {
		return nil, store.ErrTenantNotFound
	}

	clone := *tenant
	return &clone, nil
}

// DeactivateTenant soft-deletes a tenant.
func (s *TenantStore) DeactivateTenant(ctx context.Context, tenantID models.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, exists := s.tenants[tenantID]
	if !exists {
		return store.ErrTenantNotFound
	}

	tenant.Active = false

	return nil
}

// GetConfig retrieves the active config for a tenant.
func (s *TenantStore) GetConfig(ctx context.Context, tenantID models.TenantID) (*models.TenantConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, exists := s.configs[tenantID]
	if !exists {
		return nil, store.ErrConfigNotFound
	}

	clone := *cfg
	return &clone, nil
}

// UpdateConfig replaces the tenant's config.
func (s *TenantStore) UpdateConfig(ctx context.Context, cfg *models.TenantConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenants[cfg.TenantID]; !exists {
		return store.ErrTenantNotFound
	}

	cfg.UpdatedAt = time.Now()

	// Keep the instance index in sync with the config binding
	if old, ok := s.configs[cfg.TenantID]; ok && old.MessagingInstance != "" {
		delete(s.byInstance, old.MessagingInstance)
	}
	if cfg.MessagingInstance != "" {
		s.byInstance[cfg.MessagingInstance] = cfg.TenantID
	}

	clone := *cfg
	s.configs[cfg.TenantID] = &clone

	return nil
}

// GetTenantByInstance maps a messaging-provider instance name to a tenant.
func (s *TenantStore) GetTenantByInstance(ctx context.Context, instance string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID, exists := s.byInstance[instance]
	if !exists {
		return nil, store.ErrTenantNotFound
	}

	tenant, exists := s.tenants[tenantID]
	if !exists {
		return nil, store.ErrTenantNotFound
	}

	clone := *tenant
	return &clone, nil
}
