package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// QuoteStore implements store.QuoteStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type QuoteStore struct {
	mu sync.RWMutex

	quotes map[uuid.UUID]*models.Quote
}

// NewQuoteStore creates a new in-memory quote store.
func NewQuoteStore() *QuoteStore {
	return &QuoteStore{
		quotes: make(map[uuid.UUID]*models.Quote),
	}
}

// CreateQuote persists a newly computed quote.
func (s *QuoteStore) CreateQuote(ctx context.Context, quote *models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quote.ID == uuid.Nil {
		quote.ID = uuid.New()
	}

	clone := *quote
	s.quotes[quote.ID] = &clone

	return nil
}

// GetQuote retrieves a quote by tenant and id.
func (s *QuoteStore) GetQuote(ctx context.Context, tenantID models.TenantID, quoteID uuid.UUID) (*models.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quote, exists := s.quotes[quoteID]
	if !exists || quote.TenantID != tenantID {
		return nil, store.ErrQuoteNotFound
	}

	clone := *quote
	return &clone, nil
}

// ListQuotesByClient returns a client's quotes, newest first.
func (s *QuoteStore) ListQuotesByClient(ctx context.Context, tenantID models.TenantID, clientID uuid.UUID) ([]*models.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Quote
	for _, quote := range s.quotes {
		if quote.TenantID == tenantID && quote.ClientID == clientID {
			clone := *quote
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}
