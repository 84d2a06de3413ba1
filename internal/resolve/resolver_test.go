package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store/memory"
)

func newFixture(t *testing.T) (*Resolver, *memory.TenantStore, *memory.ClientStore) {
	t.Helper()
	ctx := context.Background()

	tenants := memory.NewTenantStore()
	clients := memory.NewClientStore()

	require.NoError(t, tenants.CreateTenant(ctx, &models.Tenant{ID: 7, Name: "TechFix", Active: true}))
	require.NoError(t, tenants.UpdateConfig(ctx, &models.TenantConfig{
		TenantID:          7,
		MessagingInstance: "empresa_7",
	}))

	return New(tenants, clients), tenants, clients
}

func TestResolve_explicitTenantID(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newFixture(t)

	event := &models.InboundEvent{Source: models.SourceMessaging, TenantID: 7}
	tenantID, err := r.Resolve(ctx, event)
	require.NoError(t, err)
	require.Equal(t, models.TenantID(7), tenantID)
}

func TestResolve_explicitTenantIDUnknown(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newFixture(t)

	event := &models.InboundEvent{Source: models.SourceMessaging, TenantID: 99}
	_, err := r.Resolve(ctx, event)
	require.ErrorIs(t, err, ErrTenantResolution)
}

func TestResolve_deactivatedTenant(t *testing.T) {
	ctx := context.Background()
	r, tenants, _ := newFixture(t)

	require.NoError(t, tenants.DeactivateTenant(ctx, 7))

	event := &models.InboundEvent{Source: models.SourceMessaging, TenantID: 7}
	_, err := r.Resolve(ctx, event)
	require.ErrorIs(t, err, ErrTenantResolution)
}

func TestResolve_byInstance(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newFixture(t)

	event := &models.InboundEvent{Source: models.SourceMessaging, Instance: "empresa_7"}
	tenantID, err := r.Resolve(ctx, event)
	require.NoError(t, err)
	require.Equal(t, models.TenantID(7), tenantID)
}

func TestResolve_bySenderPhoneFallback(t *testing.T) {
	ctx := context.Background()
	r, _, clients := newFixture(t)

	require.NoError(t, clients.UpsertClient(ctx, &models.Client{
		ID:           uuid.New(),
		TenantID:     7,
		Phone:        "5511999999999",
		RegisteredAt: time.Now(),
	}))

	event := &models.InboundEvent{
		Source:   models.SourceMessaging,
		Instance: "unknown_instance",
		From:     "5511999999999",
	}
	tenantID, err := r.Resolve(ctx, event)
	require.NoError(t, err)
	require.Equal(t, models.TenantID(7), tenantID)
}

func TestResolve_bySenderPhoneDeactivatedTenant(t *testing.T) {
	ctx := context.Background()
	r, tenants, clients := newFixture(t)

	require.NoError(t, clients.UpsertClient(ctx, &models.Client{
		ID:           uuid.New(),
		TenantID:     7,
		Phone:        "5511999999999",
		RegisteredAt: time.Now(),
	}))
	require.NoError(t, tenants.DeactivateTenant(ctx, 7))

	event := &models.InboundEvent{Source: models.SourceMessaging, From: "5511999999999"}
	_, err := r.Resolve(ctx, event)
	require.ErrorIs(t, err, ErrTenantResolution)
}

func TestResolve_phoneBoundToTwoTenantsIsAmbiguous(t *testing.T) {
	ctx := context.Background()
	r, tenants, clients := newFixture(t)

	require.NoError(t, tenants.CreateTenant(ctx, &models.Tenant{ID: 8, Name: "Outra", Active: true}))

	for _, tenantID := range []models.TenantID{7, 8} {
		require.NoError(t, clients.UpsertClient(ctx, &models.Client{
			ID:           uuid.New(),
			TenantID:     tenantID,
			Phone:        "5511988888888",
			RegisteredAt: time.Now(),
		}))
	}

	event := &models.InboundEvent{Source: models.SourceMessaging, From: "5511988888888"}
	_, err := r.Resolve(ctx, event)
	require.ErrorIs(t, err, ErrTenantResolution)
}

func TestResolve_nothingMatches(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newFixture(t)

	event := &models.InboundEvent{Source: models.SourceMessaging, From: "550000000000"}
	_, err := r.Resolve(ctx, event)
	require.ErrorIs(t, err, ErrTenantResolution)
}
