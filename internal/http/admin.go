package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/adapters/messaging"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/flows"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
)

// InstanceCreator provisions a tenant's messaging instance.
type InstanceCreator interface {
	CreateInstance(ctx context.Context, tenantID models.TenantID) (*messaging.Instance, error)
}

// AdminHandler serves tenant onboarding: tenant record, default config,
// messaging instance and the platform subscription in one call.
type AdminHandler struct {
	tenants   store.TenantStore
	messaging InstanceCreator
	payments  *flows.PaymentFlow

	// SubscriptionAmount is the monthly platform fee billed to tenants.
	SubscriptionAmount float64
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(tenants store.TenantStore, instances InstanceCreator, payments *flows.PaymentFlow, subscriptionAmount float64) *AdminHandler {
	return &AdminHandler{
		tenants:            tenants,
		messaging:          instances,
		payments:           payments,
		SubscriptionAmount: subscriptionAmount,
	}
}

type onboardRequest struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	TaxID string `json:"cnpj"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (h *AdminHandler) handleOnboard(w http.ResponseWriter, r *http.Request) {
	var req onboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed payload")
		return
	}
	if req.ID <= 0 || req.Name == "" || req.TaxID == "" {
		writeError(w, http.StatusUnprocessableEntity, "id, name and cnpj are required")
		return
	}

	ctx := r.Context()
	tenant := &models.Tenant{
		ID:        models.TenantID(req.ID),
		Name:      req.Name,
		TaxID:     req.TaxID,
		Email:     req.Email,
		Phone:     req.Phone,
		Active:    true,
		CreatedAt: time.Now(),
	}

	if err := h.tenants.CreateTenant(ctx, tenant); err != nil {
		if errors.Is(err, store.ErrTenantAlreadyExists) {
			writeError(w, http.StatusConflict, "tenant already exists")
			return
		}
		log.Error().Err(err).Int64("tenant_id", req.ID).Msg("failed to create tenant")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	instance, err := h.messaging.CreateInstance(ctx, tenant.ID)
	if err != nil {
		log.Error().Err(err).Int64("tenant_id", req.ID).Msg("failed to provision messaging instance")
		writeError(w, http.StatusBadGateway, "messaging provisioning failed")
		return
	}

	cfg := &models.TenantConfig{
		TenantID:          tenant.ID,
		MessagingInstance: instance.ID,
		UpdatedAt:         time.Now(),
	}
	cfg.ApplyDefaults()
	if err := h.tenants.UpdateConfig(ctx, cfg); err != nil {
		log.Error().Err(err).Int64("tenant_id", req.ID).Msg("failed to store tenant config")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	intent, err := h.payments.SubscribeTenant(ctx, tenant, h.SubscriptionAmount)
	if err != nil {
		// Tenant and instance exist; billing can be retried out-of-band.
		log.Error().Err(err).Int64("tenant_id", req.ID).Msg("failed to create platform subscription")
		writeJSON(w, http.StatusCreated, map[string]any{
			"tenant_id": req.ID,
			"instance":  instance.ID,
			"qrcode":    instance.QRCode,
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"tenant_id":    req.ID,
		"instance":     instance.ID,
		"qrcode":       instance.QRCode,
		"subscription": intent.PaymentLink,
	})
}
