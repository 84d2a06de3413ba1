package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
)

// Sentinel errors for quote store operations
var (
	ErrQuoteNotFound = errors.New("quote not found")
)

// QuoteStore defines the interface for quote storage. Quotes are
// append-only; a new quote supersedes an earlier one, never edits it.
type QuoteStore interface {
	// CreateQuote persists a newly computed quote.
	CreateQuote(ctx context.Context, quote *models.Quote) error

	// GetQuote retrieves a quote by tenant and id.
	// Returns ErrQuoteNotFound if it doesn't exist.
	GetQuote(ctx context.Context, tenantID models.TenantID, quoteID uuid.UUID) (*models.Quote, error)

	// ListQuotesByClient returns a client's quotes, newest first.
	ListQuotesByClient(ctx context.Context, tenantID models.TenantID, clientID uuid.UUID) ([]*models.Quote, error)
}
