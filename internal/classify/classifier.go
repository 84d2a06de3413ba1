// Package classify determines the intent of an inbound event from its
// payload. Classification is a deterministic rule match, not a model:
// unclassifiable input must never trigger an automated financial or
// scheduling action, so anything that doesn't match routes to human
// handoff.
package classify

import (
	"strings"

	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
)

// Intent is the classified purpose of an inbound event.
type Intent string

const (
	IntentQuote       Intent = "quote"
	IntentStockQuery  Intent = "stock_query"
	IntentStatusQuery Intent = "status_query"
	IntentScheduling  Intent = "scheduling"
	IntentPayment     Intent = "payment"
	IntentOther       Intent = "other"
)

// Keyword rules per intent, matched against the normalized message text.
// The vocabulary follows what clients of Brazilian repair shops actually
// type.
var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentQuote, []string{"orcamento", "orçamento", "quanto custa", "valor do conserto", "preco", "preço"}},
	{IntentStockQuery, []string{"estoque", "tem a peca", "tem a peça", "disponivel", "disponível"}},
	{IntentStatusQuery, []string{"status", "minha os", "ordem de servico", "ordem de serviço", "ficou pronto", "ta pronto", "tá pronto"}},
	{IntentScheduling, []string{"agendar", "agendamento", "marcar", "horario", "horário", "remarcar"}},
	{IntentPayment, []string{"pagamento", "pagar", "boleto", "pix", "link de pagamento", "cobranca", "cobrança"}},
}

// Classify returns the intent of an inbound event. Payment-provider
// callbacks are payment events by construction; messaging events are
// matched against the keyword rules. An event matching zero or more than
// one intent resolves to IntentOther.
func Classify(event *models.InboundEvent) Intent {
	if event.Source == models.SourcePayment {
		return IntentPayment
	}
	if event.Source == models.SourceCalendar {
		return IntentScheduling
	}

	text := normalize(event.Text)
	if text == "" {
		return IntentOther
	}

	var matched []Intent
	for _, rule := range intentKeywords {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, rule.intent)
				break
			}
		}
	}

	// Ties resolve to Other: ambiguous input goes to a human
	if len(matched) != 1 {
		return IntentOther
	}

	return matched[0]
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
