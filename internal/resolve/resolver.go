// Package resolve maps inbound events to the tenant they belong to.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// ErrTenantResolution is returned when no strategy can bind an event to a
// tenant. The caller must not proceed to load any configuration.
var ErrTenantResolution = errors.New("unable to resolve tenant")

// Resolver extracts tenant identity from an inbound event. Resolution is
// read-only; it never creates or mutates records.
type Resolver struct {
	tenants store.TenantStore
	clients store.ClientStore
}

// New creates a resolver over the tenant and client stores.
func New(tenants store.TenantStore, clients store.ClientStore) *Resolver {
	return &Resolver{
		tenants: tenants,
		clients: clients,
	}
}

// Resolve returns the tenant an event belongs to. Strategies in priority
// order: explicit tenant id carried on the event (URL path/query), the
// messaging-provider instance name in the payload, then the sender phone
// bound to exactly one tenant's client records.
func (r *Resolver) Resolve(ctx context.Context, event *models.InboundEvent) (models.TenantID, error) {
	if event.TenantID != 0 {
		tenant, err := r.tenants.GetTenant(ctx, event.TenantID)
		if err != nil {
			if errors.Is(err, store.ErrTenantNotFound) {
				return 0, fmt.Errorf("%w: unknown tenant id %d", ErrTenantResolution, event.TenantID)
			}
			return 0, fmt.Errorf("failed to verify tenant id: %w", err)
		}
		if !tenant.Active {
			return 0, fmt.Errorf("%w: tenant %d is deactivated", ErrTenantResolution, event.TenantID)
		}
		return tenant.ID, nil
	}

	if event.Instance != "" {
		tenant, err := r.tenants.GetTenantByInstance(ctx, event.Instance)
		if err == nil {
			if !tenant.Active {
				return 0, fmt.Errorf("%w: tenant for instance %q is deactivated", ErrTenantResolution, event.Instance)
			}
			return tenant.ID, nil
		}
		if !errors.Is(err, store.ErrTenantNotFound) {
			return 0, fmt.Errorf("failed to look up instance binding: %w", err)
		}
		log.Debug().Str("instance", event.Instance).Msg("No tenant bound to instance, trying sender lookup")
	}

	if event.From != "" {
		tenantID, err := r.clients.FindTenantByClientPhone(ctx, event.From)
		if err == nil {
			tenant, err := r.tenants.GetTenant(ctx, tenantID)
			if err != nil {
				if errors.Is(err, store.ErrTenantNotFound) {
					return 0, fmt.Errorf("%w: sender bound to unknown tenant %d", ErrTenantResolution, tenantID)
				}
				return 0, fmt.Errorf("failed to verify sender tenant: %w", err)
			}
			if !tenant.Active {
				return 0, fmt.Errorf("%w: tenant %d is deactivated", ErrTenantResolution, tenantID)
			}
			return tenant.ID, nil
		}
		if !errors.Is(err, store.ErrClientNotFound) {
			return 0, fmt.Errorf("failed to look up sender binding: %w", err)
		}
	}

	return 0, ErrTenantResolution
}
