package store

import (
	"context"
	"errors"

	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
)

// Sentinel errors for token store operations
var (
	ErrTokenSetNotFound = errors.New("oauth token set not found")
)

// TokenStore defines the interface for calendar-provider credential
// storage. A refreshed set must be persisted before any dependent calendar
// call returns success (write-before-use).
type TokenStore interface {
	// GetTokenSet retrieves a tenant's calendar credentials.
	// Returns ErrTokenSetNotFound when the tenant hasn't authorized yet.
	GetTokenSet(ctx context.Context, tenantID models.TenantID) (*models.OAuthTokenSet, error)

	// SaveTokenSet persists a (new or refreshed) token set.
	SaveTokenSet(ctx context.Context, set *models.OAuthTokenSet) error
}
