package models

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus tracks the scheduling state machine. Synced and Failed
// are terminal.
type AppointmentStatus string

const (
	AppointmentRequested     AppointmentStatus = "requested"
	AppointmentProposalsSent AppointmentStatus = "proposals_sent"
	AppointmentConfirmed     AppointmentStatus = "confirmed"
	AppointmentSynced        AppointmentStatus = "synced"
	AppointmentCancelled     AppointmentStatus = "cancelled"
	AppointmentFailed        AppointmentStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentSynced || s == AppointmentFailed || s == AppointmentCancelled
}

// Appointment is a scheduled service visit, linked to the external
// calendar event once synced. Status transitions are the only mutation
// path after creation.
type Appointment struct {
	ID              uuid.UUID
	TenantID        TenantID
	ClientID        uuid.UUID
	ServiceOrderID  uuid.UUID // optional link, uuid.Nil when absent
	ScheduledAt     time.Time
	CalendarEventID string
	CalendarLink    string
	Status          AppointmentStatus
	FailureReason   string
	CreatedAt       time.Time
}

// Slot is a candidate appointment window proposed to the client.
type Slot struct {
	Start time.Time
	End   time.Time
}
