package flows

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store/memory"
)

var quoteNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func quoteConfig() *models.TenantConfig {
	cfg := &models.TenantConfig{
		TenantID:      7,
		QuoteTemplate: "Olá {{CLIENTE}}! O reparo do seu {{APARELHO}} fica R$ {{VALOR}}.",
		Pricing: models.PricingTable{
			"celular": {
				"padrao": 150.00,
				"Apple":  250.00,
			},
			"tablet": {
				"Apple": 300.00,
			},
		},
		DiscountEnabled: true,
	}
	cfg.ApplyDefaults()
	return cfg
}

func quoteClient(registeredDaysAgo int) *models.Client {
	return &models.Client{
		ID:           uuid.New(),
		TenantID:     7,
		Name:         "João",
		Phone:        "5511999999999",
		RegisteredAt: quoteNow.AddDate(0, 0, -registeredDaysAgo),
	}
}

func newQuoteFlow() *QuoteFlow {
	f := NewQuoteFlow(memory.NewQuoteStore())
	f.now = func() time.Time { return quoteNow }
	return f
}

func TestCompute_brandFallbackWithLoyaltyDiscount(t *testing.T) {
	f := newQuoteFlow()

	// Samsung has no brand price; the type default 150.00 applies, and a
	// 200-day client gets the 10% loyalty discount
	quote, err := f.Compute(quoteConfig(), quoteClient(200), models.Device{
		Type:  "celular",
		Brand: "Samsung",
		Model: "A10",
	})
	require.NoError(t, err)
	require.Equal(t, 135.00, quote.Value)
	require.True(t, quote.DiscountApplied)
	require.Equal(t, "Olá João! O reparo do seu Samsung A10 fica R$ 135.00.", quote.Message)
}

func TestCompute_brandSpecificPriceWins(t *testing.T) {
	f := newQuoteFlow()

	quote, err := f.Compute(quoteConfig(), quoteClient(10), models.Device{
		Type:  "celular",
		Brand: "Apple",
	})
	require.NoError(t, err)
	require.Equal(t, 250.00, quote.Value)
	require.False(t, quote.DiscountApplied)
}

func TestCompute_discountBoundaryIsInclusive(t *testing.T) {
	tests := []struct {
		name       string
		daysAgo    int
		discounted bool
	}{
		{name: "one day short of the threshold", daysAgo: 179, discounted: false},
		{name: "exactly at the threshold", daysAgo: 180, discounted: true},
		{name: "past the threshold", daysAgo: 181, discounted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newQuoteFlow()
			quote, err := f.Compute(quoteConfig(), quoteClient(tt.daysAgo), models.Device{
				Type:  "celular",
				Brand: "Samsung",
			})
			require.NoError(t, err)
			require.Equal(t, tt.discounted, quote.DiscountApplied)
		})
	}
}

func TestCompute_discountDisabledByPolicy(t *testing.T) {
	f := newQuoteFlow()
	cfg := quoteConfig()
	cfg.DiscountEnabled = false

	quote, err := f.Compute(cfg, quoteClient(400), models.Device{Type: "celular", Brand: "Samsung"})
	require.NoError(t, err)
	require.Equal(t, 150.00, quote.Value)
	require.False(t, quote.DiscountApplied)
}

func TestCompute_noPriceDefined(t *testing.T) {
	f := newQuoteFlow()

	// tablet has an Apple price but no type default
	_, err := f.Compute(quoteConfig(), quoteClient(10), models.Device{Type: "tablet", Brand: "Samsung"})
	require.ErrorIs(t, err, ErrPricingUndefined)

	_, err = f.Compute(quoteConfig(), quoteClient(10), models.Device{Type: "notebook", Brand: "Dell"})
	require.ErrorIs(t, err, ErrPricingUndefined)
}

func TestCompute_templateMissingPlaceholder(t *testing.T) {
	f := newQuoteFlow()
	cfg := quoteConfig()
	cfg.QuoteTemplate = "O reparo fica R$ {{VALOR}}."

	_, err := f.Compute(cfg, quoteClient(10), models.Device{Type: "celular", Brand: "Samsung"})
	require.ErrorIs(t, err, ErrTemplateRender)
}

func TestCompute_deterministic(t *testing.T) {
	f := newQuoteFlow()
	client := quoteClient(200)
	device := models.Device{Type: "celular", Brand: "Samsung", Model: "A10"}

	first, err := f.Compute(quoteConfig(), client, device)
	require.NoError(t, err)
	second, err := f.Compute(quoteConfig(), client, device)
	require.NoError(t, err)

	require.Equal(t, first.Value, second.Value)
	require.Equal(t, first.Message, second.Message)
}

func TestHandle_persistsBeforeReply(t *testing.T) {
	ctx := context.Background()
	quotes := memory.NewQuoteStore()
	f := NewQuoteFlow(quotes)
	f.now = func() time.Time { return quoteNow }

	client := quoteClient(200)
	fc := &FlowContext{
		Tenant: &models.Tenant{ID: 7, Active: true},
		Config: quoteConfig(),
		Client: client,
		Event: &models.InboundEvent{
			Source: models.SourceMessaging,
			From:   client.Phone,
			Text:   "quero um orçamento",
			Device: &models.Device{Type: "celular", Brand: "Samsung", Model: "A10"},
		},
	}

	res, err := f.Handle(ctx, fc)
	require.NoError(t, err)
	require.False(t, res.Handoff)
	require.Contains(t, res.Reply, "135.00")

	stored, err := quotes.ListQuotesByClient(ctx, 7, client.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, 135.00, stored[0].Value)
	require.Equal(t, res.Reply, stored[0].Message)
}

func TestHandle_withoutDeviceGoesToHuman(t *testing.T) {
	ctx := context.Background()
	f := newQuoteFlow()

	fc := &FlowContext{
		Tenant: &models.Tenant{ID: 7, Active: true},
		Config: quoteConfig(),
		Client: quoteClient(10),
		Event:  &models.InboundEvent{Source: models.SourceMessaging, Text: "quanto custa?"},
	}

	res, err := f.Handle(ctx, fc)
	require.NoError(t, err)
	require.True(t, res.Handoff)
	require.Empty(t, res.Reply)
}
