// Package payment is the typed client for the Asaas-style payment
// provider. Customers are keyed by tax id so retried creates can't
// duplicate records; charge and subscription creation is never blindly
// retried without an idempotency key.
package payment

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/adapters"
)

// CustomerInfo is the profile sent when creating a provider customer.
type CustomerInfo struct {
	Name  string `json:"name"`
	TaxID string `json:"cpfCnpj"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// ChargeRequest describes a one-off charge.
type ChargeRequest struct {
	CustomerID     string
	Amount         float64
	Description    string
	WalletID       string
	IdempotencyKey string
}

// SubscriptionRequest describes a recurring subscription.
type SubscriptionRequest struct {
	CustomerID     string
	Plan           string
	Amount         float64
	Cycle          string // e.g. "MONTHLY"
	IdempotencyKey string
}

// Charge is a created charge or subscription payment.
type Charge struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	InvoiceURL  string `json:"invoiceUrl"`
	BankSlipURL string `json:"bankSlipUrl"`
}

// Link returns the customer-facing payment link.
func (c Charge) Link() string {
	if c.InvoiceURL != "" {
		return c.InvoiceURL
	}
	return c.BankSlipURL
}

// Provider is the capability the payment flow needs.
type Provider interface {
	UpsertCustomer(ctx context.Context, info CustomerInfo) (string, error)
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Charge, error)
}

// Client talks to the Asaas-style payment API.
type Client struct {
	http *resty.Client
}

// NewClient creates a payment client authenticated with the platform api
// key.
func NewClient(baseURL, apiKey string) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(adapters.DefaultCallTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("access_token", apiKey)

	return &Client{http: client}
}

// UpsertCustomer returns the provider customer id for a tax id, creating
// the customer if absent. Lookup-then-create keyed by the stable tax id
// keeps retries from minting duplicate customer records.
func (c *Client) UpsertCustomer(ctx context.Context, info CustomerInfo) (string, error) {
	return adapters.Retry(ctx, func() (string, error) {
		var list struct {
			Data []struct {
				ID string `json:"id"`
			} `json:"data"`
		}

		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("cpfCnpj", info.TaxID).
			SetResult(&list).
			Get("/customers")

		if err != nil {
			if adapters.IsRetryable(err) {
				return "", err
			}
			return "", adapters.Permanent(fmt.Errorf("failed to look up customer: %w", err))
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return "", fmt.Errorf("payment provider error: %s", resp.Status())
		}
		if !resp.IsSuccess() {
			return "", adapters.Permanent(fmt.Errorf("payment provider rejected customer lookup: %s", resp.Status()))
		}

		if len(list.Data) > 0 {
			return list.Data[0].ID, nil
		}

		var created struct {
			ID string `json:"id"`
		}
		resp, err = c.http.R().
			SetContext(ctx).
			SetBody(info).
			SetResult(&created).
			Post("/customers")

		if err != nil {
			if adapters.IsRetryable(err) {
				return "", err
			}
			return "", adapters.Permanent(fmt.Errorf("failed to create customer: %w", err))
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return "", fmt.Errorf("payment provider error: %s", resp.Status())
		}
		if !resp.IsSuccess() {
			return "", adapters.Permanent(fmt.Errorf("payment provider rejected customer create: %s", resp.Status()))
		}

		log.Info().Str("customer_id", created.ID).Msg("Created payment-provider customer")
		return created.ID, nil
	})
}

// CreateCharge creates a one-off charge due tomorrow. Without an
// idempotency key the call is made exactly once; duplicate charges are
// worse than a handed-off event.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	body := map[string]any{
		"customer":    req.CustomerID,
		"billingType": "UNDEFINED",
		"value":       req.Amount,
		"dueDate":     time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		"description": req.Description,
	}
	if req.WalletID != "" {
		body["walletId"] = req.WalletID
	}

	return c.createPayment(ctx, "/payments", body, req.IdempotencyKey)
}

// CreateSubscription creates a recurring subscription.
func (c *Client) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Charge, error) {
	cycle := req.Cycle
	if cycle == "" {
		cycle = "MONTHLY"
	}

	body := map[string]any{
		"customer":    req.CustomerID,
		"billingType": "CREDIT_CARD",
		"value":       req.Amount,
		"nextDueDate": time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		"cycle":       cycle,
		"description": fmt.Sprintf("Assinatura %s - Sistema de Assistência Técnica", req.Plan),
	}

	return c.createPayment(ctx, "/subscriptions", body, req.IdempotencyKey)
}

func (c *Client) createPayment(ctx context.Context, path string, body map[string]any, idempotencyKey string) (*Charge, error) {
	call := func() (*Charge, error) {
		var charge Charge
		r := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&charge)

		if idempotencyKey != "" {
			r.SetHeader("Idempotency-Key", idempotencyKey)
		}

		resp, err := r.Post(path)
		if err != nil {
			if adapters.IsRetryable(err) {
				return nil, err
			}
			return nil, adapters.Permanent(fmt.Errorf("failed to create payment: %w", err))
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, fmt.Errorf("payment provider error: %s", resp.Status())
		}
		if !resp.IsSuccess() {
			return nil, adapters.Permanent(fmt.Errorf("payment provider rejected create: %s", resp.Status()))
		}

		log.Debug().Str("payment_id", charge.ID).Msg("Created provider payment")
		return &charge, nil
	}

	// Retry only when the provider can deduplicate via the idempotency key
	if idempotencyKey == "" {
		return call()
	}
	return adapters.Retry(ctx, call)
}
