// Package messaging is the typed client for the Evolution-style WhatsApp
// provider. Instances are per-tenant; messages are sent through a tenant's
// bound instance.
package messaging

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/adapters"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
)

// Instance is a tenant-bound messaging-provider connection.
type Instance struct {
	ID     string `json:"instanceName"`
	Status string `json:"status"`
	QRCode string `json:"qrcode"`
}

// Sender is the capability the flows need from the messaging provider.
type Sender interface {
	SendMessage(ctx context.Context, instanceID, to, body string) (string, error)
}

// Client talks to the Evolution-style messaging API.
type Client struct {
	http *resty.Client
}

// NewClient creates a messaging client. The provider authenticates with a
// static api key header.
func NewClient(baseURL, apiKey string) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(adapters.DefaultCallTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("apikey", apiKey)

	return &Client{http: client}
}

// InstanceName returns the provider instance name for a tenant.
func InstanceName(tenantID models.TenantID) string {
	return fmt.Sprintf("empresa_%d", tenantID)
}

// CreateInstance provisions the tenant's messaging instance. Creation is
// idempotent: re-invocation for an existing instance returns it rather
// than failing.
func (c *Client) CreateInstance(ctx context.Context, tenantID models.TenantID) (*Instance, error) {
	name := InstanceName(tenantID)

	return adapters.Retry(ctx, func() (*Instance, error) {
		var instance Instance
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(map[string]any{
				"instanceName": name,
				"qrcode":       true,
			}).
			SetResult(&instance).
			Post("/instance/create")

		if err != nil {
			if adapters.IsRetryable(err) {
				return nil, err
			}
			return nil, adapters.Permanent(fmt.Errorf("failed to create instance: %w", err))
		}

		switch {
		case resp.IsSuccess():
			instance.ID = name
			log.Info().
				Int64("tenant_id", int64(tenantID)).
				Str("instance", name).
				Msg("Created messaging instance")
			return &instance, nil

		case resp.StatusCode() == http.StatusConflict:
			// Already provisioned: a no-op, not an error
			log.Debug().
				Str("instance", name).
				Msg("Messaging instance already exists")
			return &Instance{ID: name, Status: "open"}, nil

		case resp.StatusCode() >= http.StatusInternalServerError:
			return nil, fmt.Errorf("messaging provider error: %s", resp.Status())

		default:
			return nil, adapters.Permanent(fmt.Errorf("messaging provider rejected instance create: %s", resp.Status()))
		}
	})
}

// SendMessage sends a text message through a tenant's instance and returns
// the provider delivery id.
func (c *Client) SendMessage(ctx context.Context, instanceID, to, body string) (string, error) {
	return adapters.Retry(ctx, func() (string, error) {
		var result struct {
			Key struct {
				ID string `json:"id"`
			} `json:"key"`
		}

		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(map[string]any{
				"number": to,
				"text":   body,
			}).
			SetResult(&result).
			Post("/message/sendText/" + instanceID)

		if err != nil {
			if adapters.IsRetryable(err) {
				return "", err
			}
			return "", adapters.Permanent(fmt.Errorf("failed to send message: %w", err))
		}

		if resp.StatusCode() >= http.StatusInternalServerError {
			return "", fmt.Errorf("messaging provider error: %s", resp.Status())
		}
		if !resp.IsSuccess() {
			return "", adapters.Permanent(fmt.Errorf("messaging provider rejected send: %s", resp.Status()))
		}

		log.Debug().
			Str("instance", instanceID).
			Str("to", to).
			Str("delivery_id", result.Key.ID).
			Msg("Sent message")

		return result.Key.ID, nil
	})
}
