package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus tracks a PaymentIntent's lifecycle. Paid, Failed and
// Expired are terminal; once reached the status never regresses.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
	PaymentExpired PaymentStatus = "expired"
)

// Terminal reports whether the status accepts no further transitions.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentFailed || s == PaymentExpired
}

// PaymentKind distinguishes one-off charges from recurring subscriptions.
type PaymentKind string

const (
	PaymentCharge       PaymentKind = "charge"
	PaymentSubscription PaymentKind = "subscription"
)

// PaymentIntent records a requested charge or subscription. It is created
// in pending status before any payment link is sent; status transitions
// happen only via provider callbacks keyed by ProviderPaymentID, never by
// flow logic directly.
type PaymentIntent struct {
	ID                uuid.UUID
	TenantID          TenantID
	ClientID          uuid.UUID
	ServiceOrderID    uuid.UUID // uuid.Nil for platform subscriptions
	Kind              PaymentKind
	ProviderPaymentID string
	Amount            float64
	Status            PaymentStatus
	PaymentLink       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
