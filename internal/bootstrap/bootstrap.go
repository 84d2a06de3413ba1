// Package bootstrap seeds the stores from a YAML file for development and
// demos. Production tenants arrive through the onboarding endpoint; this
// exists so a dev server starts with usable data.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
	"gopkg.in/yaml.v3"
)

// SeedFile is the root of the YAML seed document.
type SeedFile struct {
	Tenants []SeedTenant `yaml:"tenants"`
}

type SeedTenant struct {
	ID      int64        `yaml:"id"`
	Name    string       `yaml:"name"`
	TaxID   string       `yaml:"cnpj"`
	Email   string       `yaml:"email"`
	Phone   string       `yaml:"phone"`
	Config  SeedConfig   `yaml:"config"`
	Clients []SeedClient `yaml:"clients"`
}

type SeedConfig struct {
	Instance          string               `yaml:"instance"`
	CalendarID        string               `yaml:"calendar_id"`
	WalletID          string               `yaml:"wallet_id"`
	BusinessHours     models.BusinessHours `yaml:"business_hours"`
	WelcomeMessage    string               `yaml:"welcome_message"`
	OutOfHoursMessage string               `yaml:"out_of_hours_message"`
	HandoffMessage    string               `yaml:"handoff_message"`
	QuoteTemplate     string               `yaml:"quote_template"`
	Pricing           models.PricingTable  `yaml:"pricing"`
	DiscountEnabled   bool                 `yaml:"discount_enabled"`
	DiscountRate      float64              `yaml:"discount_rate"`
	DiscountMinDays   int                  `yaml:"discount_min_age_days"`
}

type SeedClient struct {
	Phone          string `yaml:"phone"`
	Name           string `yaml:"name"`
	TaxID          string `yaml:"cpf"`
	Email          string `yaml:"email"`
	RegisteredDays int    `yaml:"registered_days_ago"`
}

// Load applies a seed file to the stores. Existing tenants are left alone
// so the loader is safe to run on every dev-server start.
func Load(ctx context.Context, path string, tenants store.TenantStore, clients store.ClientStore) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	now := time.Now()
	for _, st := range seed.Tenants {
		tenant := &models.Tenant{
			ID:        models.TenantID(st.ID),
			Name:      st.Name,
			TaxID:     st.TaxID,
			Email:     st.Email,
			Phone:     st.Phone,
			Active:    true,
			CreatedAt: now,
		}
		err := tenants.CreateTenant(ctx, tenant)
		if errors.Is(err, store.ErrTenantAlreadyExists) {
			log.Debug().Int64("tenant_id", st.ID).Msg("seed tenant already present")
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to seed tenant %d: %w", st.ID, err)
		}

		cfg := &models.TenantConfig{
			TenantID:          tenant.ID,
			MessagingInstance: st.Config.Instance,
			CalendarID:        st.Config.CalendarID,
			PaymentWalletID:   st.Config.WalletID,
			BusinessHours:     st.Config.BusinessHours,
			WelcomeMessage:    st.Config.WelcomeMessage,
			OutOfHoursMessage: st.Config.OutOfHoursMessage,
			HandoffMessage:    st.Config.HandoffMessage,
			QuoteTemplate:     st.Config.QuoteTemplate,
			Pricing:           st.Config.Pricing,
			DiscountEnabled:   st.Config.DiscountEnabled,
			DiscountRate:      st.Config.DiscountRate,
			DiscountMinAge:    time.Duration(st.Config.DiscountMinDays) * 24 * time.Hour,
			UpdatedAt:         now,
		}
		cfg.ApplyDefaults()
		if err := tenants.UpdateConfig(ctx, cfg); err != nil {
			return fmt.Errorf("failed to seed config for tenant %d: %w", st.ID, err)
		}

		for _, sc := range st.Clients {
			client := &models.Client{
				ID:           uuid.New(),
				TenantID:     tenant.ID,
				Name:         sc.Name,
				Phone:        sc.Phone,
				Email:        sc.Email,
				TaxID:        sc.TaxID,
				RegisteredAt: now.AddDate(0, 0, -sc.RegisteredDays),
			}
			if err := clients.UpsertClient(ctx, client); err != nil {
				return fmt.Errorf("failed to seed client %s for tenant %d: %w", sc.Phone, st.ID, err)
			}
		}

		log.Info().
			Int64("tenant_id", st.ID).
			Int("clients", len(st.Clients)).
			Msg("seeded tenant")
	}

	return nil
}
