package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
)

// Sentinel errors for service-order store operations
var (
	ErrServiceOrderNotFound = errors.New("service order not found")
)

// ServiceOrderStore defines read access to service orders. Order
// management lives in the external ERP; the status flow only looks orders
// up to answer "cadê minha OS" style queries.
type ServiceOrderStore interface {
	// GetServiceOrderByNumber retrieves an order by tenant and the
	// tenant-visible order number.
	GetServiceOrderByNumber(ctx context.Context, tenantID models.TenantID, number int64) (*models.ServiceOrder, error)

	// ListOpenOrdersByClient returns a client's non-delivered orders,
	// newest first.
	ListOpenOrdersByClient(ctx context.Context, tenantID models.TenantID, clientID uuid.UUID) ([]*models.ServiceOrder, error)
}
