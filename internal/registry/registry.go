// Package registry caches per-tenant configuration in front of the tenant
// store, bounding store load under bursty inbound traffic.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// ErrConfigUnavailable is returned when a config can't be loaded and no
// last-known-good value exists (cold start).
var ErrConfigUnavailable = errors.New("tenant config unavailable")

// DefaultTTL bounds how long a cached config is served without a reload.
const DefaultTTL = 60 * time.Second

// Snapshot is an immutable view of a tenant's config. Stale is set when
// the value is a last-known-good copy served because a reload failed.
type Snapshot struct {
	Tenant *models.Tenant
	Config *models.TenantConfig
	Stale  bool
}

type cachedConfig struct {
	tenant    *models.Tenant
	config    *models.TenantConfig
	fetchedAt time.Time
}

// Registry resolves tenant configuration with a bounded-TTL cache.
// Reads and writes are safe for concurrent use; values are copied on read
// so invalidation never tears an in-flight request.
type Registry struct {
	tenants store.TenantStore
	ttl     time.Duration

	mu    sync.RWMutex
	cache map[models.TenantID]*cachedConfig
}

// New creates a registry over the tenant store. A non-positive ttl falls
// back to DefaultTTL.
func New(tenants store.TenantStore, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		tenants: tenants,
		ttl:     ttl,
		cache:   make(map[models.TenantID]*cachedConfig),
	}
}

// GetConfig returns the tenant's config snapshot. A cache miss or expiry
// triggers a synchronous reload; a reload failure falls back to the
// last-known-good value with the staleness flag set, unless no prior value
// exists, in which case ErrConfigUnavailable is returned.
func (r *Registry) GetConfig(ctx context.Context, tenantID models.TenantID) (*Snapshot, error) {
	r.mu.RLock()
	cached, ok := r.cache[tenantID]
	r.mu.RUnlock()

	if ok && time.Since(cached.fetchedAt) < r.ttl {
		log.Debug().Int64("tenant_id", int64(tenantID)).Msg("Config cache hit")
		return snapshotOf(cached, false), nil
	}

	tenant, cfg, err := r.load(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrTenantNotFound) || errors.Is(err, store.ErrConfigNotFound) {
			return nil, err
		}
		if ok {
			log.Warn().
				Err(err).
				Int64("tenant_id", int64(tenantID)).
				Msg("Config reload failed, serving last-known-good")
			return snapshotOf(cached, true), nil
		}
		return nil, fmt.Errorf("%w: %s", ErrConfigUnavailable, err)
	}

	entry := &cachedConfig{tenant: tenant, config: cfg, fetchedAt: time.Now()}

	r.mu.Lock()
	r.cache[tenantID] = entry
	r.mu.Unlock()

	return snapshotOf(entry, false), nil
}

// Invalidate drops the cached entry for a tenant. Called by the
// administrative update path; the next read reloads synchronously.
func (r *Registry) Invalidate(tenantID models.TenantID) {
	r.mu.Lock()
	delete(r.cache, tenantID)
	r.mu.Unlock()

	log.Debug().Int64("tenant_id", int64(tenantID)).Msg("Config cache invalidated")
}

func (r *Registry) load(ctx context.Context, tenantID models.TenantID) (*models.Tenant, *models.TenantConfig, error) {
	tenant, err := r.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := r.tenants.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	cfg.ApplyDefaults()

	return tenant, cfg, nil
}

func snapshotOf(entry *cachedConfig, stale bool) *Snapshot {
	tenant := *entry.tenant
	cfg := *entry.config
	return &Snapshot{Tenant: &tenant, Config: &cfg, Stale: stale}
}
