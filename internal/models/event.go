package models

import "encoding/json"

// EventSource identifies which provider produced an inbound event.
type EventSource string

const (
	SourceMessaging EventSource = "messaging"
	SourceCalendar  EventSource = "calendar"
	SourcePayment   EventSource = "payment"
)

// InboundEvent is the transient per-request envelope for a webhook
// delivery. It is created per request and discarded after handling; only
// entities derived from it are persisted.
type InboundEvent struct {
	Source    EventSource
	TenantID  TenantID // zero until resolved
	Instance  string   // messaging-provider instance name, when present
	From      string   // sender phone / account id
	Text      string   // message body for messaging events
	PaymentID string   // provider payment id for payment callbacks
	Status    string   // provider-reported status for callbacks
	Device    *Device  // parsed device details, when the payload carries them
	Raw       json.RawMessage
}
