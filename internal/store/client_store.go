package store

import (
	"context"
	"errors"

	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
)

// Sentinel errors for client store operations
var (
	ErrClientNotFound = errors.New("client not found")
)

// ClientStore defines the interface for client storage. Clients are unique
// per (tenant, phone) mirroring the messaging-provider sender identity.
type ClientStore interface {
	// UpsertClient creates the client or updates its contact details when a
	// record with the same (tenant, phone) already exists. The stored
	// registration date is never moved forward by an upsert.
	UpsertClient(ctx context.Context, client *models.Client) error

	// GetClientByPhone retrieves a client by tenant and phone number.
	// Returns ErrClientNotFound if no such client exists.
	GetClientByPhone(ctx context.Context, tenantID models.TenantID, phone string) (*models.Client, error)

	// FindTenantByClientPhone returns the tenant a phone number is bound
	// to. Used as the resolver's last strategy; returns ErrClientNotFound
	// when the phone is unknown or bound to more than one tenant.
	FindTenantByClientPhone(ctx context.Context, phone string) (models.TenantID, error)
}
