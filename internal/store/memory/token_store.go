package memory

import (
	"context"
	"sync"
	"time"

	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// TokenStore implements store.TokenStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type TokenStore struct {
	mu sync.RWMutex

	sets map[models.TenantID]*models.OAuthTokenSet

	// SaveCount is exposed for tests that assert write-before-use.
	SaveCount int
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		sets: make(map[models.TenantID]*models.OAuthTokenSet),
	}
}

// GetTokenSet retrieves a tenant's calendar credentials.
func (s *TokenStore) GetTokenSet(ctx context.Context, tenantID models.TenantID) (*models.OAuthTokenSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, exists := s.sets[tenantID]
	if !exists {
		return nil, store.ErrTokenSetNotFound
	}

	clone := *set
	return &clone, nil
}

// SaveTokenSet persists a token set.
func (s *TokenStore) SaveTokenSet(ctx context.Context, set *models.OAuthTokenSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set.UpdatedAt = time.Now()

	clone := *set
	s.sets[set.TenantID] = &clone
	s.SaveCount++

	return nil
}
