package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// ServiceOrderStore implements store.ServiceOrderStore using in-memory
// storage. This implementation is for testing only - data is lost on
// restart.
type ServiceOrderStore struct {
	mu sync.RWMutex

	orders map[uuid.UUID]*models.ServiceOrder
}

// NewServiceOrderStore creates a new in-memory service-order store.
func NewServiceOrderStore() *ServiceOrderStore {
	return &ServiceOrderStore{
		orders: make(map[uuid.UUID]*models.ServiceOrder),
	}
}

// AddOrder seeds an order. Test helper; production orders come from the ERP.
func (s *ServiceOrderStore) AddOrder(order *models.ServiceOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	clone := *order
	s.orders[order.ID] = &clone
}

// GetServiceOrderByNumber retrieves an order by tenant and number.
func (s *ServiceOrderStore) GetServiceOrderByNumber(ctx context.Context, tenantID models.TenantID, number int64) (*models.ServiceOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, order := range s.orders {
		if order.TenantID == tenantID && order.Number == number {
			clone := *order
			return &clone, nil
		}
	}

	return nil, store.ErrServiceOrderNotFound
}

// ListOpenOrdersByClient returns a client's non-delivered orders, newest first.
func (s *ServiceOrderStore) ListOpenOrdersByClient(ctx context.Context, tenantID models.TenantID, clientID uuid.UUID) ([]*models.ServiceOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.ServiceOrder
	for _, order := range s.orders {
		if order.TenantID == tenantID && order.ClientID == clientID && order.Status != "entregue" {
			clone := *order
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OpenedAt.After(result[j].OpenedAt)
	})

	return result, nil
}
