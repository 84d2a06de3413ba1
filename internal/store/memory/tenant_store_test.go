package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

func TestTenantStore_instanceIndexFollowsConfig(t *testing.T) {
	ctx := context.Background()
	s := NewTenantStore()

	require.NoError(t, s.CreateTenant(ctx, &models.Tenant{ID: 7, Name: "TechFix", Active: true}))
	require.NoError(t, s.UpdateConfig(ctx, &models.TenantConfig{
		TenantID:          7,
		MessagingInstance: "empresa_7",
	}))

	tenant, err := s.GetTenantByInstance(ctx, "empresa_7")
	require.NoError(t, err)
	require.Equal(t, models.TenantID(7), tenant.ID)

	// Rebinding the instance updates the index and drops the old name
	require.NoError(t, s.UpdateConfig(ctx, &models.TenantConfig{
		TenantID:          7,
		MessagingInstance: "empresa_7_v2",
	}))

	_, err = s.GetTenantByInstance(ctx, "empresa_7")
	require.ErrorIs(t, err, store.ErrTenantNotFound)

	tenant, err = s.GetTenantByInstance(ctx, "empresa_7_v2")
	require.NoError(t, err)
	require.Equal(t, models.TenantID(7), tenant.ID)
}

func TestTenantStore_duplicateCreate(t *testing.T) {
	ctx := context.Background()
	s := NewTenantStore()

	require.NoError(t, s.CreateTenant(ctx, &models.Tenant{ID: 7, Active: true}))
	err := s.CreateTenant(ctx, &models.Tenant{ID: 7, Active: true})
	require.ErrorIs(t, err, store.ErrTenantAlreadyExists)
}

func TestTenantStore_configRequiresTenant(t *testing.T) {
	ctx := context.Background()
	s := NewTenantStore()

	err := s.UpdateConfig(ctx, &models.TenantConfig{TenantID: 99})
	require.ErrorIs(t, err, store.ErrTenantNotFound)

	require.NoError(t, s.CreateTenant(ctx, &models.Tenant{ID: 7, Active: true}))
	_, err = s.GetConfig(ctx, 7)
	require.ErrorIs(t, err, store.ErrConfigNotFound)
}
