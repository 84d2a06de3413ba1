package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// AppointmentStore implements store.AppointmentStore using in-memory
// storage. This implementation is for testing only - data is lost on
// restart.
type AppointmentStore struct {
	mu sync.RWMutex

	appointments map[uuid.UUID]*models.Appointment
}

// NewAppointmentStore creates a new in-memory appointment store.
func NewAppointmentStore() *AppointmentStore {
	return &AppointmentStore{
		appointments: make(map[uuid.UUID]*models.Appointment),
	}
}

// CreateAppointment persists an appointment.
func (s *AppointmentStore) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}

	clone := *appt
	s.appointments[appt.ID] = &clone

	return nil
}

// AllForTenant returns every stored appointment for a tenant. Test helper.
func (s *AppointmentStore) AllForTenant(tenantID models.TenantID) []*models.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Appointment
	for _, appt := range s.appointments {
		if appt.TenantID == tenantID {
			clone := *appt
			result = append(result, &clone)
		}
	}
	return result
}

// GetAppointment retrieves an appointment by tenant and id.
func (s *AppointmentStore) GetAppointment(ctx context.Context, tenantID models.TenantID, apptID uuid.UUID) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, exists := s.appointments[apptID]
	if !exists || appt.TenantID != tenantID {
		return nil, store.ErrAppointmentNotFound
	}

	clone := *appt
	return &clone, nil
}

// UpdateAppointmentStatus transitions the appointment status.
func (s *AppointmentStore) UpdateAppointmentStatus(ctx context.Context, tenantID models.TenantID, apptID uuid.UUID, status models.AppointmentStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, exists := s.appointments[apptID]
	if !exists || appt.TenantID != tenantID {
		return store.ErrAppointmentNotFound
	}

	if appt.Status.Terminal() {
		return store.ErrStatusTerminal
	}

	appt.Status = status
	appt.FailureReason = reason

	return nil
}
