package models

import (
	"time"

	"github.com/google/uuid"
)

// ServiceOrder is a repair job opened for a client's device. The
// dispatcher only reads it (status lookups); order management itself is an
// external collaborator.
type ServiceOrder struct {
	ID         uuid.UUID
	TenantID   TenantID
	ClientID   uuid.UUID
	Number     int64 // tenant-visible order number
	Problem    string
	Diagnosis  string
	Status     string // recebido, em_analise, aguardando_peca, pronto, entregue
	QuoteValue float64
	FinalValue float64
	OpenedAt   time.Time
}
