package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// Sentinel errors for quote computation
var (
	// ErrPricingUndefined means the tenant's pricing table has no price
	// for the device type, even as a type-level default.
	ErrPricingUndefined = errors.New("no price defined for device")

	// ErrTemplateRender means the tenant's quote template is missing a
	// required placeholder.
	ErrTemplateRender = errors.New("quote template missing placeholder")
)

// Template placeholders the quote template must carry.
const (
	PlaceholderValue  = "{{VALOR}}"
	PlaceholderClient = "{{CLIENTE}}"
	PlaceholderDevice = "{{APARELHO}}"
)

// QuoteFlow computes repair estimates from the tenant's pricing table and
// replies with the rendered tenant template. The quote is persisted before
// the reply is released.
type QuoteFlow struct {
	quotes store.QuoteStore
	now    func() time.Time
}

// NewQuoteFlow creates the quote handler.
func NewQuoteFlow(quotes store.QuoteStore) *QuoteFlow {
	return &QuoteFlow{
		quotes: quotes,
		now:    time.Now,
	}
}

// Handle computes, persists and replies with a quote for the device in the
// event. Events without device details route to a human.
func (f *QuoteFlow) Handle(ctx context.Context, fc *FlowContext) (*Result, error) {
	if fc.Event.Device == nil {
		log.Debug().
			Int64("tenant_id", int64(fc.Tenant.ID)).
			Str("from", fc.Event.From).
			Msg("quote request without device details")
		return &Result{Handoff: true}, nil
	}

	quote, err := f.Compute(fc.Config, fc.Client, *fc.Event.Device)
	if err != nil {
		return nil, err
	}

	if err := f.quotes.CreateQuote(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to persist quote: %w", err)
	}

	log.Debug().
		Int64("tenant_id", int64(fc.Tenant.ID)).
		Str("quote_id", quote.ID.String()).
		Float64("value", quote.Value).
		Bool("discount_applied", quote.DiscountApplied).
		Msg("quote issued")

	return &Result{Reply: quote.Message}, nil
}

// Compute builds a quote for a device. Price resolution falls back from
// brand-specific to the type-level default, the loyalty discount applies
// when the policy is enabled and the client's registration age meets the
// threshold (inclusive), and the tenant template is rendered last. The
// same config, client and device always yield the same value.
func (f *QuoteFlow) Compute(cfg *models.TenantConfig, client *models.Client, device models.Device) (*models.Quote, error) {
	base, ok := cfg.Pricing.BasePrice(device.Type, device.Brand)
	if !ok {
		return nil, fmt.Errorf("%w: type %q brand %q", ErrPricingUndefined, device.Type, device.Brand)
	}

	value := base
	discounted := false
	if cfg.DiscountEnabled && f.now().Sub(client.RegisteredAt) >= cfg.DiscountMinAge {
		value = base * (1 - cfg.DiscountRate)
		discounted = true
	}

	message, err := renderQuoteTemplate(cfg.QuoteTemplate, value, client.Name, device.Label())
	if err != nil {
		return nil, err
	}

	return &models.Quote{
		ID:              uuid.New(),
		TenantID:        cfg.TenantID,
		ClientID:        client.ID,
		DeviceType:      device.Type,
		DeviceBrand:     device.Brand,
		DeviceModel:     device.Model,
		Value:           value,
		DiscountApplied: discounted,
		Message:         message,
		CreatedAt:       f.now(),
	}, nil
}

func renderQuoteTemplate(tmpl string, value float64, clientName, deviceLabel string) (string, error) {
	for _, ph := range []string{PlaceholderValue, PlaceholderClient, PlaceholderDevice} {
		if !strings.Contains(tmpl, ph) {
			return "", fmt.Errorf("%w: %s", ErrTemplateRender, ph)
		}
	}

	out := strings.ReplaceAll(tmpl, PlaceholderValue, fmt.Sprintf("%.2f", value))
	out = strings.ReplaceAll(out, PlaceholderClient, clientName)
	out = strings.ReplaceAll(out, PlaceholderDevice, deviceLabel)
	return out, nil
}
