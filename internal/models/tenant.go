package models

import (
	"time"
)

// TenantID identifies one technical-assistance company on the platform.
// It is the root of isolation: every other entity carries one, and no
// cross-tenant read or write is permitted at any layer.
type TenantID int64

// Tenant represents a technical-assistance company using the shared platform.
// Tenants are created via onboarding and deactivated (soft-delete) rather
// than destroyed; flow handlers never mutate them.
type Tenant struct {
	ID        TenantID
	Name      string
	TaxID     string // CNPJ
	Email     string
	Phone     string
	Active    bool
	CreatedAt time.Time
}

// BusinessHours describes the tenant's operating window. Weekdays holds
// time.Weekday values the tenant is open on.
type BusinessHours struct {
	Start    string `yaml:"start"` // "09:00"
	End      string `yaml:"end"`   // "18:00"
	Weekdays []int  `yaml:"weekdays"`
}

// Contains reports whether t falls inside the business hours window.
func (h BusinessHours) Contains(t time.Time) bool {
	open := false
	for _, wd := range h.Weekdays {
		if time.Weekday(wd) == t.Weekday() {
			open = true
			break
		}
	}
	if !open {
		return false
	}

	hhmm := t.Format("15:04")
	return hhmm >= h.Start && hhmm < h.End
}

// PricingTable maps device type -> brand -> base price. The reserved brand
// key "padrao" is the type-level default applied when no brand-specific
// price exists.
type PricingTable map[string]map[string]float64

// DefaultBrandKey is the reserved pricing-table key for the type-level
// fallback price.
const DefaultBrandKey = "padrao"

// BasePrice returns the base price for a device type and brand, falling
// back to the type-level default. The second return reports whether any
// price was found.
func (p PricingTable) BasePrice(deviceType, brand string) (float64, bool) {
	byBrand, ok := p[deviceType]
	if !ok {
		return 0, false
	}
	if price, ok := byBrand[brand]; ok {
		return price, true
	}
	price, ok := byBrand[DefaultBrandKey]
	return price, ok
}

// TenantConfig holds the per-tenant automation configuration. It belongs to
// exactly one tenant, is mutated only through the administrative update
// path, and is read-only to the dispatcher and flows.
type TenantConfig struct {
	TenantID           TenantID
	MessagingInstance  string // messaging-provider instance binding, e.g. "empresa_7"
	CalendarID         string
	PaymentWalletID    string
	BusinessHours      BusinessHours
	WelcomeMessage     string
	OutOfHoursMessage  string
	HandoffMessage     string
	QuoteTemplate      string // placeholders: {{VALOR}} {{CLIENTE}} {{APARELHO}}
	Pricing            PricingTable
	DiscountEnabled    bool
	DiscountRate       float64       // fraction, e.g. 0.10
	DiscountMinAge     time.Duration // client registration age threshold
	TokenRefreshMargin time.Duration // refresh when less than this remains
	UpdatedAt          time.Time
}

// Documented defaults for tenant-configurable knobs. Applied when the
// stored config leaves them unset.
const (
	DefaultDiscountRate       = 0.10
	DefaultDiscountMinAge     = 180 * 24 * time.Hour
	DefaultTokenRefreshMargin = 60 * time.Second
)

// ApplyDefaults fills unset tenant-configurable values with the documented
// defaults.
func (c *TenantConfig) ApplyDefaults() {
	if c.DiscountRate == 0 {
		c.DiscountRate = DefaultDiscountRate
	}
	if c.DiscountMinAge == 0 {
		c.DiscountMinAge = DefaultDiscountMinAge
	}
	if c.TokenRefreshMargin == 0 {
		c.TokenRefreshMargin = DefaultTokenRefreshMargin
	}
}
