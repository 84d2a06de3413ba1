package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// ServiceOrderStore implements store.ServiceOrderStore using PostgreSQL.
// Writes go through the external ERP; this store only reads.
type ServiceOrderStore struct {
	pool *pgxpool.Pool
}

// NewServiceOrderStore creates a new PostgreSQL-backed service-order store.
func NewServiceOrderStore(pool *pgxpool.Pool) *ServiceOrderStore {
	return &ServiceOrderStore{
		pool: pool,
	}
}

// GetServiceOrderByNumber retrieves an order by tenant and number.
func (s *ServiceOrderStore) GetServiceOrderByNumber(ctx context.Context, tenantID models.TenantID, number int64) (*models.ServiceOrder, error) {
	query := `
		SELECT order_id, tenant_id, client_id, number, problem, diagnosis,
			status, quote_value, final_value, opened_at
		FROM service_orders
		WHERE tenant_id = $1 AND number = $2
	`

	var order models.ServiceOrder
	err := s.pool.QueryRow(ctx, query, tenantID, number).Scan(
		&order.ID,
		&order.TenantID,
		&order.ClientID,
		&order.Number,
		&order.Problem,
		&order.Diagnosis,
		&order.Status,
		&order.QuoteValue,
		&order.FinalValue,
		&order.OpenedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrServiceOrderNotFound
		}
		return nil, fmt.Errorf("failed to get service order: %w", mapPostgresError(err))
	}

	return &order, nil
}

// ListOpenOrdersByClient returns a client's non-delivered orders, newest
// first.
func (s *ServiceOrderStore) ListOpenOrdersByClient(ctx context.Context, tenantID models.TenantID, clientID uuid.UUID) ([]*models.ServiceOrder, error) {
	query := `
		SELECT order_id, tenant_id, client_id, number, problem, diagnosis,
			status, quote_value, final_value, opened_at
		FROM service_orders
		WHERE tenant_id = $1 AND client_id = $2 AND status <> 'entregue'
		ORDER BY opened_at DESC
	`

	rows, err := s.pool.Query(ctx, query, tenantID, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list service orders: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var orders []*models.ServiceOrder
	for rows.Next() {
		var order models.ServiceOrder
		err := rows.Scan(
			&order.ID,
			&order.TenantID,
			&order.ClientID,
			&order.Number,
			&order.Problem,
			&order.Diagnosis,
			&order.Status,
			&order.QuoteValue,
			&order.FinalValue,
			&order.OpenedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service order: %w", err)
		}
		orders = append(orders, &order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating service orders: %w", err)
	}

	return orders, nil
}
