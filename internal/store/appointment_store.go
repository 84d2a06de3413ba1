package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
)

// Sentinel errors for appointment store operations
var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrStatusTerminal      = errors.New("appointment status is terminal")
)

// AppointmentStore defines the interface for appointment storage. After
// creation, status transitions are the only mutation path.
type AppointmentStore interface {
	// CreateAppointment persists an appointment. The scheduling flow only
	// calls this with the external calendar event id already assigned, so a
	// stored appointment never claims an unsynced booking succeeded.
	CreateAppointment(ctx context.Context, appt *models.Appointment) error

	// GetAppointment retrieves an appointment by tenant and id.
	// Returns ErrAppointmentNotFound if it doesn't exist.
	GetAppointment(ctx context.Context, tenantID models.TenantID, apptID uuid.UUID) (*models.Appointment, error)

	// UpdateAppointmentStatus transitions the appointment status. Returns
	// ErrStatusTerminal when the current status is terminal.
	UpdateAppointmentStatus(ctx context.Context, tenantID models.TenantID, apptID uuid.UUID, status models.AppointmentStatus, reason string) error
}
