package flows

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

var orderNumberPattern = regexp.MustCompile(`\d+`)

// Customer-facing labels for service-order statuses.
var orderStatusLabels = map[string]string{
	"recebido":        "Recebido",
	"em_analise":      "Em análise",
	"aguardando_peca": "Aguardando peça",
	"pronto":          "Pronto para retirada",
	"entregue":        "Entregue",
}

// StatusFlow answers "cadê minha OS" queries from the service-order
// records. Order management itself lives elsewhere; this flow only reads.
type StatusFlow struct {
	orders store.ServiceOrderStore
}

// NewStatusFlow creates the status-lookup handler.
func NewStatusFlow(orders store.ServiceOrderStore) *StatusFlow {
	return &StatusFlow{orders: orders}
}

// Handle looks up the order named in the message, or the client's open
// orders when no number was given.
func (f *StatusFlow) Handle(ctx context.Context, fc *FlowContext) (*Result, error) {
	if m := orderNumberPattern.FindString(fc.Event.Text); m != "" {
		number, err := strconv.ParseInt(m, 10, 64)
		if err == nil {
			return f.byNumber(ctx, fc, number)
		}
	}
	return f.openOrders(ctx, fc)
}

func (f *StatusFlow) byNumber(ctx context.Context, fc *FlowContext, number int64) (*Result, error) {
	order, err := f.orders.GetServiceOrderByNumber(ctx, fc.Tenant.ID, number)
	if err == store.ErrServiceOrderNotFound {
		return &Result{Reply: fmt.Sprintf("Não encontramos a OS %d. Confira o número ou fale com um atendente.", number)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up service order: %w", err)
	}
	if order.ClientID != fc.Client.ID {
		// Order numbers are guessable; never leak another client's order.
		return &Result{Reply: fmt.Sprintf("Não encontramos a OS %d. Confira o número ou fale com um atendente.", number)}, nil
	}

	return &Result{Reply: renderOrder(order)}, nil
}

func (f *StatusFlow) openOrders(ctx context.Context, fc *FlowContext) (*Result, error) {
	orders, err := f.orders.ListOpenOrdersByClient(ctx, fc.Tenant.ID, fc.Client.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open orders: %w", err)
	}
	if len(orders) == 0 {
		return &Result{Reply: "Você não tem ordens de serviço em aberto no momento."}, nil
	}

	var b strings.Builder
	b.WriteString("Suas ordens de serviço:\n")
	for _, order := range orders {
		fmt.Fprintf(&b, "\n%s", renderOrder(order))
	}
	return &Result{Reply: b.String()}, nil
}

func renderOrder(order *models.ServiceOrder) string {
	label, ok := orderStatusLabels[order.Status]
	if !ok {
		label = order.Status
	}
	line := fmt.Sprintf("OS %d: %s", order.Number, label)
	if order.Diagnosis != "" {
		line += "\nDiagnóstico: " + order.Diagnosis
	}
	if order.Status == "pronto" && order.FinalValue > 0 {
		line += fmt.Sprintf("\nValor: R$ %.2f", order.FinalValue)
	}
	return line
}
