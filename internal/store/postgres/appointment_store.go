package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// AppointmentStore implements store.AppointmentStore using PostgreSQL.
type AppointmentStore struct {
	pool *pgxpool.Pool
}

// NewAppointmentStore creates a new PostgreSQL-backed appointment store.
func NewAppointmentStore(pool *pgxpool.Pool) *AppointmentStore {
	return &AppointmentStore{
		pool: pool,
	}
}

// CreateAppointment persists an appointment.
func (s *AppointmentStore) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now()
	}

	var orderID any
	if appt.ServiceOrderID != uuid.Nil {
		orderID = appt.ServiceOrderID
	}

	query := `
		INSERT INTO appointments (
			appointment_id, tenant_id, client_id, service_order_id,
			scheduled_at, calendar_event_id, calendar_link, status,
			failure_reason, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := s.pool.Exec(ctx, query,
		appt.ID,
		appt.TenantID,
		appt.ClientID,
		orderID,
		appt.ScheduledAt,
		appt.CalendarEventID,
		appt.CalendarLink,
		appt.Status,
		appt.FailureReason,
		appt.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", mapPostgresError(err))
	}

	log.Debug().
		Int64("tenant_id", int64(appt.TenantID)).
		Str("appointment_id", appt.ID.String()).
		Str("status", string(appt.Status)).
		Msg("Created appointment")

	return nil
}

// GetAppointment retrieves an appointment by tenant and id.
func (s *AppointmentStore) GetAppointment(ctx context.Context, tenantID models.TenantID, apptID uuid.UUID) (*models.Appointment, error) {
	query := `
		SELECT appointment_id, tenant_id, client_id,
			COALESCE(service_order_id, '00000000-0000-0000-0000-000000000000'),
			scheduled_at, calendar_event_id, calendar_link, status,
			failure_reason, created_at
		FROM appointments
		WHERE tenant_id = $1 AND appointment_id = $2
	`

	var appt models.Appointment
	err := s.pool.QueryRow(ctx, query, tenantID, apptID).Scan(
		&appt.ID,
		&appt.TenantID,
		&appt.ClientID,
		&appt.ServiceOrderID,
		&appt.ScheduledAt,
		&appt.CalendarEventID,
		&appt.CalendarLink,
		&appt.Status,
		&appt.FailureReason,
		&appt.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", mapPostgresError(err))
	}

	return &appt, nil
}

// UpdateAppointmentStatus transitions the appointment status. Terminal
// states are guarded in SQL so two racing writers can't both win.
func (s *AppointmentStore) UpdateAppointmentStatus(ctx context.Context, tenantID models.TenantID, apptID uuid.UUID, status models.AppointmentStatus, reason string) error {
	query := `
		UPDATE appointments SET
			status = $3,
			failure_reason = $4
		WHERE tenant_id = $1 AND appointment_id = $2
			AND status NOT IN ('synced', 'failed', 'cancelled')
	`

	result, err := s.pool.Exec(ctx, query, tenantID, apptID, status, reason)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		// Distinguish a missing row from a terminal one
		if _, err := s.GetAppointment(ctx, tenantID, apptID); err != nil {
			return err
		}
		return store.ErrStatusTerminal
	}

	return nil
}
