package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

type clientKey struct {
	tenantID models.TenantID
	phone    string
}

// ClientStore implements store.ClientStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type ClientStore struct {
	mu sync.RWMutex

	clients map[clientKey]*models.Client
}

// NewClientStore creates a new in-memory client store.
func NewClientStore() *ClientStore {
	return &ClientStore{
		clients: make(map[clientKey]*models.Client),
	}
}

// UpsertClient creates or updates a client keyed by (tenant, phone).
func (s *ClientStore) UpsertClient(ctx context.Context, client *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := clientKey{tenantID: client.TenantID, phone: client.Phone}

	if existing, ok := s.clients[key]; ok {
		// Registration date never moves forward on an upsert
		client.ID = existing.ID
		client.RegisteredAt = existing.RegisteredAt
	} else if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}

	clone := *client
	s.clients[key] = &clone

	return nil
}

// GetClientByPhone retrieves a client by tenant and phone number.
func (s *ClientStore) GetClientByPhone(ctx context.Context, tenantID models.TenantID, phone string) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, exists := s.clients[clientKey{tenantID: tenantID, phone: phone}]
	if !exists {
		return nil, store.ErrClientNotFound
	}

	clone := *client
	return &clone, nil
}

// FindTenantByClientPhone returns the single tenant a phone is bound to.
func (s *ClientStore) FindTenantByClientPhone(ctx context.Context, phone string) (models.TenantID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []models.TenantID
	for key := range s.clients {
		if key.phone == phone {
			found = append(found, key.tenantID)
		}
	}

	// An ambiguous binding is treated as unresolved
	if len(found) != 1 {
		return 0, store.ErrClientNotFound
	}

	return found[0], nil
}
