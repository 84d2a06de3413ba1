package models

import (
	"time"

	"github.com/google/uuid"
)

// Client is an end customer of a tenant, identified within the tenant by
// phone number (the messaging-provider sender id).
type Client struct {
	ID           uuid.UUID
	TenantID     TenantID
	Name         string
	Phone        string
	Email        string
	TaxID        string // CPF/CNPJ, the stable key on the payment provider
	RegisteredAt time.Time
}

// Device is an appliance a client brought in for service.
type Device struct {
	Type         string // celular, tablet, computador
	Brand        string
	Model        string
	SerialNumber string
	Problem      string
}

// Label renders the device as shown in customer-facing messages.
func (d Device) Label() string {
	if d.Model == "" {
		return d.Brand
	}
	return d.Brand + " " + d.Model
}
