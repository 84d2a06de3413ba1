package classify

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
)

func TestClassify_messagingKeywords(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected Intent
	}{
		{
			name:     "quote request",
			text:     "Oi, queria um orçamento para minha tela",
			expected: IntentQuote,
		},
		{
			name:     "quote by price question",
			text:     "quanto custa trocar a bateria?",
			expected: IntentQuote,
		},
		{
			name:     "stock query",
			text:     "vocês tem a peça do A10 em estoque?",
			expected: IntentStockQuery,
		},
		{
			name:     "status query",
			text:     "qual o status da minha OS 42?",
			expected: IntentStatusQuery,
		},
		{
			name:     "scheduling",
			text:     "quero agendar um horário amanhã",
			expected: IntentScheduling,
		},
		{
			name:     "payment",
			text:     "me manda o link de pagamento",
			expected: IntentPayment,
		},
		{
			name:     "no match goes to human",
			text:     "bom dia, tudo bem?",
			expected: IntentOther,
		},
		{
			name:     "empty text goes to human",
			text:     "",
			expected: IntentOther,
		},
		{
			name:     "ambiguous match goes to human",
			text:     "quero pagar o orçamento",
			expected: IntentOther,
		},
		{
			name:     "case insensitive",
			text:     "ORÇAMENTO por favor",
			expected: IntentQuote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &models.InboundEvent{Source: models.SourceMessaging, Text: tt.text}
			require.Equal(t, tt.expected, Classify(event))
		})
	}
}

func TestClassify_sourceOverridesText(t *testing.T) {
	payment := &models.InboundEvent{Source: models.SourcePayment, Text: "quero agendar"}
	require.Equal(t, IntentPayment, Classify(payment))

	cal := &models.InboundEvent{Source: models.SourceCalendar}
	require.Equal(t, IntentScheduling, Classify(cal))
}
