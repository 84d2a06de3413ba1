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

func statusContext(clientID uuid.UUID, text string) *FlowContext {
	return &FlowContext{
		Tenant: &models.Tenant{ID: 7, Active: true},
		Config: &models.TenantConfig{TenantID: 7},
		Client: &models.Client{ID: clientID, TenantID: 7, Name: "João", Phone: "5511999999999"},
		Event:  &models.InboundEvent{Source: models.SourceMessaging, From: "5511999999999", Text: text},
	}
}

func TestStatus_byOrderNumber(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()

	orders := memory.NewServiceOrderStore()
	orders.AddOrder(&models.ServiceOrder{
		TenantID:   7,
		ClientID:   clientID,
		Number:     42,
		Status:     "pronto",
		Diagnosis:  "Troca de tela",
		FinalValue: 180.00,
		OpenedAt:   time.Now(),
	})

	f := NewStatusFlow(orders)
	res, err := f.Handle(ctx, statusContext(clientID, "status da OS 42"))
	require.NoError(t, err)
	require.Contains(t, res.Reply, "OS 42")
	require.Contains(t, res.Reply, "Pronto para retirada")
	require.Contains(t, res.Reply, "Troca de tela")
	require.Contains(t, res.Reply, "180.00")
}

func TestStatus_unknownNumber(t *testing.T) {
	ctx := context.Background()
	f := NewStatusFlow(memory.NewServiceOrderStore())

	res, err := f.Handle(ctx, statusContext(uuid.New(), "status da OS 99"))
	require.NoError(t, err)
	require.Contains(t, res.Reply, "Não encontramos a OS 99")
}

func TestStatus_anotherClientsOrderIsHidden(t *testing.T) {
	ctx := context.Background()

	orders := memory.NewServiceOrderStore()
	orders.AddOrder(&models.ServiceOrder{
		TenantID: 7,
		ClientID: uuid.New(), // someone else
		Number:   42,
		Status:   "pronto",
		OpenedAt: time.Now(),
	})

	f := NewStatusFlow(orders)
	res, err := f.Handle(ctx, statusContext(uuid.New(), "status da OS 42"))
	require.NoError(t, err)
	require.Contains(t, res.Reply, "Não encontramos a OS 42")
}

func TestStatus_listsOpenOrdersWithoutNumber(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()

	orders := memory.NewServiceOrderStore()
	orders.AddOrder(&models.ServiceOrder{
		TenantID: 7, ClientID: clientID, Number: 40,
		Status: "em_analise", OpenedAt: time.Now().Add(-time.Hour),
	})
	orders.AddOrder(&models.ServiceOrder{
		TenantID: 7, ClientID: clientID, Number: 41,
		Status: "aguardando_peca", OpenedAt: time.Now(),
	})
	orders.AddOrder(&models.ServiceOrder{
		TenantID: 7, ClientID: clientID, Number: 39,
		Status: "entregue", OpenedAt: time.Now().Add(-48 * time.Hour),
	})

	f := NewStatusFlow(orders)
	res, err := f.Handle(ctx, statusContext(clientID, "cadê minha ordem de serviço?"))
	require.NoError(t, err)
	require.Contains(t, res.Reply, "OS 40")
	require.Contains(t, res.Reply, "OS 41")
	require.NotContains(t, res.Reply, "OS 39")
}

func TestStatus_noOpenOrders(t *testing.T) {
	ctx := context.Background()
	f := NewStatusFlow(memory.NewServiceOrderStore())

	res, err := f.Handle(ctx, statusContext(uuid.New(), "meu aparelho ficou pronto?"))
	require.NoError(t, err)
	require.Contains(t, res.Reply, "não tem ordens de serviço em aberto")
}
