package models

import (
	"time"

	"github.com/google/uuid"
)

// Quote is a computed repair estimate for a client's device. Quotes are
// immutable once issued; a new quote supersedes, never edits.
type Quote struct {
	ID              uuid.UUID
	TenantID        TenantID
	ClientID        uuid.UUID
	DeviceType      string
	DeviceBrand     string
	DeviceModel     string
	Value           float64
	DiscountApplied bool
	Message         string // rendered tenant template
	CreatedAt       time.Time
}
