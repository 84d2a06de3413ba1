// Package dispatch is the pipeline an inbound event runs through:
// resolve tenant, load config, classify, hand to the flow, reply. Any
// stage failure short-circuits to human handoff so a client never gets a
// partial automated response.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/adapters/calendar"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/adapters/messaging"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/classify"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/flows"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/registry"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/resolve"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// DefaultEventTimeout bounds the handling of one inbound event.
const DefaultEventTimeout = 30 * time.Second

// Outcome reports what one event produced.
type Outcome struct {
	TenantID models.TenantID
	Intent   classify.Intent
	Reply    string
	Handoff  bool
}

// Dispatcher routes inbound events to flow handlers.
type Dispatcher struct {
	resolver *resolve.Resolver
	registry *registry.Registry
	clients  store.ClientStore
	flows    *flows.Registry
	sender   messaging.Sender
	timeout  time.Duration
	now      func() time.Time
	loc      *time.Location
}

// New creates a dispatcher. A non-positive timeout falls back to
// DefaultEventTimeout.
func New(resolver *resolve.Resolver, reg *registry.Registry, clients store.ClientStore, flowReg *flows.Registry, sender messaging.Sender, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultEventTimeout
	}
	loc, err := time.LoadLocation(calendar.EventTimeZone)
	if err != nil {
		loc = time.UTC
	}
	return &Dispatcher{
		resolver: resolver,
		registry: reg,
		clients:  clients,
		flows:    flowReg,
		sender:   sender,
		timeout:  timeout,
		now:      time.Now,
		loc:      loc,
	}
}

// Dispatch runs one event through the pipeline. A resolve failure returns
// resolve.ErrTenantResolution with nothing persisted; after resolution,
// failures route to human handoff and the handoff message is sent when the
// tenant has one configured.
func (d *Dispatcher) Dispatch(ctx context.Context, event *models.InboundEvent) (*Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	tenantID, err := d.resolver.Resolve(ctx, event)
	if err != nil {
		return nil, err
	}
	event.TenantID = tenantID

	snap, err := d.registry.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant config: %w", err)
	}
	if snap.Stale {
		log.Warn().
			Int64("tenant_id", int64(tenantID)).
			Msg("serving stale tenant config")
	}

	intent := classify.Classify(event)
	outcome := &Outcome{TenantID: tenantID, Intent: intent}

	client, created, err := d.ensureClient(ctx, event, snap)
	if err != nil {
		return nil, fmt.Errorf("failed to load client: %w", err)
	}

	if created && snap.Config.WelcomeMessage != "" {
		if err := d.send(ctx, snap.Config, event, snap.Config.WelcomeMessage); err != nil {
			// Greeting failure is not worth dropping the event over
			log.Error().Err(err).
				Int64("tenant_id", int64(tenantID)).
				Msg("failed to send welcome message")
		}
	}

	// Payment callbacks are processed regardless of business hours;
	// clients expect a message only when they wrote during them. Tenant
	// hours are tenant-local, so the clock is translated first.
	if event.Source == models.SourceMessaging && snap.Config.OutOfHoursMessage != "" &&
		!snap.Config.BusinessHours.Contains(d.now().In(d.loc)) {
		outcome.Reply = snap.Config.OutOfHoursMessage
		return outcome, d.send(ctx, snap.Config, event, outcome.Reply)
	}

	handler, ok := d.flows.Lookup(intent)
	if !ok {
		return d.handoff(ctx, snap.Config, event, outcome, nil)
	}

	fc := &flows.FlowContext{
		Tenant: snap.Tenant,
		Config: snap.Config,
		Client: client,
		Event:  event,
		Stale:  snap.Stale,
	}

	result, err := handler.Handle(ctx, fc)
	if err != nil {
		return d.handoff(ctx, snap.Config, event, outcome, err)
	}
	if result.Handoff {
		return d.handoff(ctx, snap.Config, event, outcome, nil)
	}

	outcome.Reply = result.Reply
	if result.Reply != "" && event.From != "" {
		if err := d.send(ctx, snap.Config, event, result.Reply); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}

// ensureClient loads the sender's client record, creating a bare one on
// first contact so later flows have a registration date to work from. The
// second return reports whether this was a first contact.
func (d *Dispatcher) ensureClient(ctx context.Context, event *models.InboundEvent, snap *registry.Snapshot) (*models.Client, bool, error) {
	if event.From == "" {
		return &models.Client{TenantID: event.TenantID}, false, nil
	}

	client, err := d.clients.GetClientByPhone(ctx, event.TenantID, event.From)
	if err == nil {
		return client, false, nil
	}
	if !errors.Is(err, store.ErrClientNotFound) {
		return nil, false, err
	}

	client = &models.Client{
		ID:           uuid.New(),
		TenantID:     event.TenantID,
		Phone:        event.From,
		RegisteredAt: d.now(),
	}
	if err := d.clients.UpsertClient(ctx, client); err != nil {
		return nil, false, err
	}

	log.Debug().
		Int64("tenant_id", int64(event.TenantID)).
		Str("phone", event.From).
		Msg("registered first-contact client")
	return client, true, nil
}

func (d *Dispatcher) handoff(ctx context.Context, cfg *models.TenantConfig, event *models.InboundEvent, outcome *Outcome, cause error) (*Outcome, error) {
	outcome.Handoff = true

	evt := log.Info()
	if cause != nil {
		evt = log.Error().Err(cause)
	}
	evt.
		Int64("tenant_id", int64(outcome.TenantID)).
		Str("intent", string(outcome.Intent)).
		Str("source", string(event.Source)).
		Msg("routing event to human handoff")

	if event.Source != models.SourceMessaging || cfg.HandoffMessage == "" || event.From == "" {
		return outcome, nil
	}

	outcome.Reply = cfg.HandoffMessage
	if err := d.send(ctx, cfg, event, cfg.HandoffMessage); err != nil {
		// The event is already marked for a human; a failed courtesy
		// message is not worth failing the webhook over.
		log.Error().Err(err).
			Int64("tenant_id", int64(outcome.TenantID)).
			Msg("failed to send handoff message")
	}
	return outcome, nil
}

func (d *Dispatcher) send(ctx context.Context, cfg *models.TenantConfig, event *models.InboundEvent, body string) error {
	if _, err := d.sender.SendMessage(ctx, cfg.MessagingInstance, event.From, body); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}
