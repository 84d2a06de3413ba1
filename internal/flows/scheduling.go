package flows

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/adapters/calendar"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/token"
)

// ErrCalendarAuth means the tenant's calendar credentials could not be
// used, after at most one refresh retry. The event routes to a human.
var ErrCalendarAuth = errors.New("calendar authorization failed")

// TokenSource supplies a valid calendar access token for a tenant. The
// margin is the tenant's configured refresh safety margin.
type TokenSource interface {
	GetValidToken(ctx context.Context, tenantID models.TenantID, margin time.Duration) (string, error)
}

const (
	proposalWindowDays = 7
	maxProposals       = 3
	appointmentLength  = time.Hour
)

var confirmPattern = regexp.MustCompile(`(\d{2}/\d{2})\s+(\d{2}:\d{2})`)

// SchedulingFlow walks an appointment from requested to synced against the
// tenant's calendar. The calendar provider is the source of truth for
// availability: the chosen window is re-validated immediately before event
// creation, and the later of two concurrent confirmations loses.
type SchedulingFlow struct {
	appointments store.AppointmentStore
	tokens       TokenSource
	calendar     calendar.Provider
	now          func() time.Time
	loc          *time.Location
}

// NewSchedulingFlow creates the scheduling handler.
func NewSchedulingFlow(appointments store.AppointmentStore, tokens TokenSource, cal calendar.Provider) *SchedulingFlow {
	loc, err := time.LoadLocation(calendar.EventTimeZone)
	if err != nil {
		loc = time.UTC
	}
	return &SchedulingFlow{
		appointments: appointments,
		tokens:       tokens,
		calendar:     cal,
		now:          time.Now,
		loc:          loc,
	}
}

// Handle either proposes open slots or confirms one, depending on whether
// the message names a slot ("confirmar 02/09 09:00").
func (f *SchedulingFlow) Handle(ctx context.Context, fc *FlowContext) (*Result, error) {
	if start, ok := f.parseConfirmation(fc.Event.Text); ok {
		return f.confirm(ctx, fc, start)
	}
	return f.propose(ctx, fc)
}

// parseConfirmation extracts a dd/mm hh:mm slot choice from the message.
// The year is the current one, rolling to the next when the date already
// passed.
func (f *SchedulingFlow) parseConfirmation(text string) (time.Time, bool) {
	if !strings.Contains(strings.ToLower(text), "confirmar") {
		return time.Time{}, false
	}
	m := confirmPattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}

	now := f.now().In(f.loc)
	start, err := time.ParseInLocation("02/01 15:04 2006", m[1]+" "+m[2]+" "+now.Format("2006"), f.loc)
	if err != nil {
		return time.Time{}, false
	}
	if start.Before(now) {
		start = start.AddDate(1, 0, 0)
	}
	return start, true
}

// propose queries availability and sends up to three open slots inside the
// tenant's business hours.
func (f *SchedulingFlow) propose(ctx context.Context, fc *FlowContext) (*Result, error) {
	accessToken, err := f.getToken(ctx, fc)
	if err != nil {
		return nil, err
	}

	now := f.now().In(f.loc)
	window := models.Slot{Start: now, End: now.AddDate(0, 0, proposalWindowDays)}
	busy, err := f.calendar.QueryBusy(ctx, fc.Config.CalendarID, accessToken, window)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}

	slots := f.openSlots(fc.Config.BusinessHours, now, busy, maxProposals)
	if len(slots) == 0 {
		log.Debug().
			Int64("tenant_id", int64(fc.Tenant.ID)).
			Msg("no open slots in proposal window")
		return &Result{Handoff: true}, nil
	}

	var b strings.Builder
	b.WriteString("Horários disponíveis:\n")
	for i, s := range slots {
		fmt.Fprintf(&b, "%d) %s\n", i+1, s.Start.Format("02/01 15:04"))
	}
	b.WriteString("\nResponda com: confirmar <dia/mês hora>")

	return &Result{Reply: b.String()}, nil
}

// confirm books the chosen slot. The typed slot must be bookable: inside
// the proposal window and the tenant's business hours, never in the past.
// The window is checked again right before event creation; a conflict
// fails this attempt and re-proposes once.
func (f *SchedulingFlow) confirm(ctx context.Context, fc *FlowContext, start time.Time) (*Result, error) {
	now := f.now().In(f.loc)
	end := start.Add(appointmentLength)
	if start.Before(now) || start.After(now.AddDate(0, 0, proposalWindowDays)) ||
		!fc.Config.BusinessHours.Contains(start) || !fc.Config.BusinessHours.Contains(end.Add(-time.Minute)) {
		return f.unbookableSlot(ctx, fc, start)
	}

	accessToken, err := f.getToken(ctx, fc)
	if err != nil {
		return nil, err
	}

	slot := models.Slot{Start: start, End: end}

	busy, err := f.calendar.QueryBusy(ctx, fc.Config.CalendarID, accessToken, slot)
	if err != nil {
		return nil, fmt.Errorf("failed to re-validate slot: %w", err)
	}
	for _, b := range busy {
		if overlaps(slot, b) {
			return f.slotConflict(ctx, fc, slot)
		}
	}

	event, err := f.calendar.CreateEvent(ctx, fc.Config.CalendarID, accessToken, calendar.EventSpec{
		Summary:     "Atendimento - " + fc.Client.Name,
		Description: fc.Event.Text,
		Start:       slot.Start,
		End:         slot.End,
	})
	if errors.Is(err, calendar.ErrSlotConflict) {
		return f.slotConflict(ctx, fc, slot)
	}
	if err != nil {
		f.recordFailure(ctx, fc, slot, "calendar_error")
		return nil, fmt.Errorf("failed to create calendar event: %w", err)
	}

	appt := &models.Appointment{
		ID:              uuid.New(),
		TenantID:        fc.Tenant.ID,
		ClientID:        fc.Client.ID,
		ScheduledAt:     slot.Start,
		CalendarEventID: event.ID,
		CalendarLink:    event.Link,
		Status:          models.AppointmentSynced,
		CreatedAt:       f.now(),
	}
	if err := f.appointments.CreateAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("failed to persist appointment: %w", err)
	}

	log.Debug().
		Int64("tenant_id", int64(fc.Tenant.ID)).
		Str("appointment_id", appt.ID.String()).
		Time("scheduled_at", appt.ScheduledAt).
		Msg("appointment synced")

	reply := fmt.Sprintf("Agendamento confirmado para %s. Até lá!", slot.Start.Format("02/01 às 15:04"))
	return &Result{Reply: reply}, nil
}

// unbookableSlot re-proposes when the typed slot is in the past, beyond
// the proposal window or outside business hours. Nothing was booked, so no
// failure record is written.
func (f *SchedulingFlow) unbookableSlot(ctx context.Context, fc *FlowContext, start time.Time) (*Result, error) {
	log.Debug().
		Int64("tenant_id", int64(fc.Tenant.ID)).
		Time("slot_start", start).
		Msg("confirmation names an unbookable slot")

	res, err := f.propose(ctx, fc)
	if err != nil || res.Handoff {
		return &Result{Handoff: true}, nil
	}
	res.Reply = "Esse horário não está disponível para agendamento.\n\n" + res.Reply
	return res, nil
}

// slotConflict records the losing attempt as failed and re-proposes.
func (f *SchedulingFlow) slotConflict(ctx context.Context, fc *FlowContext, slot models.Slot) (*Result, error) {
	f.recordFailure(ctx, fc, slot, "slot_conflict")

	log.Debug().
		Int64("tenant_id", int64(fc.Tenant.ID)).
		Time("slot_start", slot.Start).
		Msg("slot taken between validation and creation")

	res, err := f.propose(ctx, fc)
	if err != nil || res.Handoff {
		return &Result{Handoff: true}, nil
	}
	res.Reply = "Esse horário acabou de ser preenchido.\n\n" + res.Reply
	return res, nil
}

func (f *SchedulingFlow) recordFailure(ctx context.Context, fc *FlowContext, slot models.Slot, reason string) {
	appt := &models.Appointment{
		ID:            uuid.New(),
		TenantID:      fc.Tenant.ID,
		ClientID:      fc.Client.ID,
		ScheduledAt:   slot.Start,
		Status:        models.AppointmentFailed,
		FailureReason: reason,
		CreatedAt:     f.now(),
	}
	if err := f.appointments.CreateAppointment(ctx, appt); err != nil {
		log.Error().Err(err).
			Int64("tenant_id", int64(fc.Tenant.ID)).
			Msg("failed to record failed appointment attempt")
	}
}

// getToken fetches a valid access token using the tenant's configured
// refresh margin, retrying exactly once on a transient refresh failure. A
// second failure or a revoked refresh token surfaces as ErrCalendarAuth.
func (f *SchedulingFlow) getToken(ctx context.Context, fc *FlowContext) (string, error) {
	margin := fc.Config.TokenRefreshMargin
	accessToken, err := f.tokens.GetValidToken(ctx, fc.Tenant.ID, margin)
	if errors.Is(err, token.ErrTokenRefreshTimeout) {
		accessToken, err = f.tokens.GetValidToken(ctx, fc.Tenant.ID, margin)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCalendarAuth, err)
	}
	return accessToken, nil
}

// openSlots generates hourly slots inside business hours over the proposal
// window, skipping past times and busy overlaps.
func (f *SchedulingFlow) openSlots(hours models.BusinessHours, from time.Time, busy []models.Slot, limit int) []models.Slot {
	var out []models.Slot

	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, f.loc)
	for d := 0; d <= proposalWindowDays && len(out) < limit; d++ {
		for h := 0; h < 24 && len(out) < limit; h++ {
			start := day.AddDate(0, 0, d).Add(time.Duration(h) * time.Hour)
			if start.Before(from) {
				continue
			}
			end := start.Add(appointmentLength)
			if !hours.Contains(start) || !hours.Contains(end.Add(-time.Minute)) {
				continue
			}

			slot := models.Slot{Start: start, End: end}
			taken := false
			for _, b := range busy {
				if overlaps(slot, b) {
					taken = true
					break
				}
			}
			if !taken {
				out = append(out, slot)
			}
		}
	}
	return out
}

func overlaps(a, b models.Slot) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
