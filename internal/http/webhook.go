// Package http exposes the webhook surface: provider webhooks in, replies
// out through the dispatcher, plus the administrative endpoints.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/auth"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/dispatch"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/registry"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/resolve"
)

// Defaults for the router knobs.
const (
	DefaultMaxBodyBytes = 64 * 1024
	DefaultRateLimit    = 120 // requests per minute per client IP
)

// RouterConfig wires the handlers into the router.
type RouterConfig struct {
	Dispatcher *dispatch.Dispatcher
	Registry   *registry.Registry
	Verifier   *auth.Verifier
	Admin      *AdminHandler

	MaxBodyBytes int64
	RateLimit    int
}

// NewRouter builds the service's HTTP surface.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}

	wh := &webhookHandler{
		dispatcher: cfg.Dispatcher,
		maxBody:    cfg.MaxBodyBytes,
	}

	r := chi.NewRouter()
	r.Use(ClientIPMiddleware())
	r.Use(RequestLogger())
	r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))

	r.Get("/health", handleHealth)

	r.Post("/webhook", wh.handleMessaging)
	r.Post("/webhook/{tenantID}", wh.handleMessaging)
	r.Post("/callbacks/payment/{tenantID}", wh.handlePaymentCallback)
	r.Post("/callbacks/calendar/{tenantID}", wh.handleCalendarCallback)

	if cfg.Verifier != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(cfg.Verifier.Middleware())
			if cfg.Admin != nil {
				r.Post("/tenants", cfg.Admin.handleOnboard)
			}
			r.Post("/tenants/{tenantID}/config/invalidate", func(w http.ResponseWriter, req *http.Request) {
				tenantID, ok := tenantIDParam(w, req)
				if !ok {
					return
				}
				cfg.Registry.Invalidate(tenantID)
				w.WriteHeader(http.StatusNoContent)
			})
		})
	}

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type webhookHandler struct {
	dispatcher *dispatch.Dispatcher
	maxBody    int64
}

// messagingPayload is the Evolution-style webhook body.
type messagingPayload struct {
	Instance string `json:"instance"`
	Data     struct {
		Key struct {
			RemoteJid string `json:"remoteJid"`
		} `json:"key"`
		Message struct {
			Conversation string `json:"conversation"`
		} `json:"message"`
		Device *struct {
			Type    string `json:"tipo"`
			Brand   string `json:"marca"`
			Model   string `json:"modelo"`
			Problem string `json:"problema"`
		} `json:"device"`
	} `json:"data"`
}

func (h *webhookHandler) handleMessaging(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unreadable payload")
		return
	}

	var payload messagingPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed payload")
		return
	}
	if payload.Data.Message.Conversation == "" {
		writeError(w, http.StatusUnprocessableEntity, "missing message body")
		return
	}

	event := &models.InboundEvent{
		Source:   models.SourceMessaging,
		Instance: payload.Instance,
		From:     senderPhone(payload.Data.Key.RemoteJid),
		Text:     payload.Data.Message.Conversation,
		Raw:      body,
	}
	if d := payload.Data.Device; d != nil {
		event.Device = &models.Device{
			Type:    d.Type,
			Brand:   d.Brand,
			Model:   d.Model,
			Problem: d.Problem,
		}
	}

	if raw := chi.URLParam(r, "tenantID"); raw != "" {
		tenantID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid tenant id")
			return
		}
		event.TenantID = models.TenantID(tenantID)
	}

	h.dispatch(w, r, event)
}

// paymentCallbackPayload is the Asaas-style callback body.
type paymentCallbackPayload struct {
	Event   string `json:"event"`
	Payment struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"payment"`
}

func (h *webhookHandler) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unreadable payload")
		return
	}

	var payload paymentCallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed payload")
		return
	}
	if payload.Payment.ID == "" {
		writeError(w, http.StatusUnprocessableEntity, "missing payment id")
		return
	}

	status := payload.Payment.Status
	if status == "" {
		status = payload.Event
	}

	event := &models.InboundEvent{
		Source:    models.SourcePayment,
		TenantID:  tenantID,
		PaymentID: payload.Payment.ID,
		Status:    status,
		Raw:       body,
	}

	h.dispatch(w, r, event)
}

// handleCalendarCallback acknowledges calendar push notifications. The
// calendar is queried live for availability on every proposal, so a change
// notification needs no state update here.
func (h *webhookHandler) handleCalendarCallback(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}

	log.Debug().
		Int64("tenant_id", int64(tenantID)).
		Str("channel_id", r.Header.Get("X-Goog-Channel-ID")).
		Str("resource_state", r.Header.Get("X-Goog-Resource-State")).
		Msg("calendar notification acknowledged")
	w.WriteHeader(http.StatusOK)
}

func (h *webhookHandler) dispatch(w http.ResponseWriter, r *http.Request, event *models.InboundEvent) {
	outcome, err := h.dispatcher.Dispatch(r.Context(), event)
	if errors.Is(err, resolve.ErrTenantResolution) {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}
	if err != nil {
		log.Error().Err(err).
			Str("source", string(event.Source)).
			Str("client_ip", ClientIPFromContext(r.Context())).
			Msg("webhook dispatch failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "accepted",
		"intent":  string(outcome.Intent),
		"handoff": outcome.Handoff,
	})
}

// senderPhone strips the messaging-provider JID suffix,
// "5511999999999@s.whatsapp.net" -> "5511999999999".
func senderPhone(jid string) string {
	if before, _, ok := strings.Cut(jid, "@"); ok {
		return before
	}
	return jid
}

func tenantIDParam(w http.ResponseWriter, r *http.Request) (models.TenantID, bool) {
	raw := chi.URLParam(r, "tenantID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "invalid tenant id")
		return 0, false
	}
	return models.TenantID(id), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
