package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/adapters/calendar"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/adapters/messaging"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/adapters/payment"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/auth"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/bootstrap"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/classify"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/dispatch"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/flows"
	httpapi "github.com/robertdiaspereira/assistencia-tecnica-saas/internal/http"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/logger"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/registry"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/resolve"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
	memorystore "github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store/memory"
	postgresstore "github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store/postgres"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/token"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"ATS_LISTEN"`

	// Admin API configuration
	AdminJWTPublicKey string `help:"PEM-encoded EC public key for admin bearer tokens" env:"ATS_ADMIN_JWT_PUBLIC_KEY"`

	// Request handling
	EventTimeout time.Duration `help:"per-event handling timeout" default:"30s" env:"ATS_EVENT_TIMEOUT"`
	ConfigTTL    time.Duration `help:"tenant config cache TTL" default:"60s" env:"ATS_CONFIG_TTL"`
	RateLimit    int           `help:"webhook requests per minute per client IP" default:"120" env:"ATS_RATE_LIMIT"`

	// Development seeding
	SeedFile string `help:"YAML seed file applied at startup (development)" default:"" env:"ATS_SEED_FILE"`

	// Provider configuration
	Messaging MessagingFlags `embed:"" prefix:"messaging-"`
	Calendar  CalendarFlags  `embed:"" prefix:"calendar-"`
	Payment   PaymentFlags   `embed:"" prefix:"payment-"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"ATS_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type MessagingFlags struct {
	URL    string `help:"Evolution API base URL" default:"http://localhost:8081" env:"ATS_MESSAGING_URL"`
	APIKey string `help:"Evolution API key" env:"ATS_MESSAGING_API_KEY"`
}

type CalendarFlags struct {
	URL          string `help:"calendar API base URL" default:"https://www.googleapis.com/calendar/v3" env:"ATS_CALENDAR_URL"`
	ClientID     string `help:"OAuth client id" env:"ATS_CALENDAR_CLIENT_ID"`
	ClientSecret string `help:"OAuth client secret" env:"ATS_CALENDAR_CLIENT_SECRET"`
	TokenURL     string `help:"OAuth token endpoint" default:"https://oauth2.googleapis.com/token" env:"ATS_CALENDAR_TOKEN_URL"`
}

type PaymentFlags struct {
	URL                string  `help:"Asaas API base URL" default:"https://api.asaas.com/v3" env:"ATS_PAYMENT_URL"`
	APIKey             string  `help:"Asaas API key" env:"ATS_PAYMENT_API_KEY"`
	SubscriptionAmount float64 `help:"monthly platform fee billed to tenants" default:"99.90" env:"ATS_SUBSCRIPTION_AMOUNT"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	ConnectTimeout  int32 `help:"connection timeout in seconds" default:"10"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"ATS_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

type stores struct {
	tenants      store.TenantStore
	clients      store.ClientStore
	quotes       store.QuoteStore
	appointments store.AppointmentStore
	payments     store.PaymentStore
	tokens       store.TokenStore
	orders       store.ServiceOrderStore
}

func (c *ServerCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Dev)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := c.buildStores(ctx)
	if err != nil {
		return err
	}

	if c.SeedFile != "" {
		if err := bootstrap.Load(ctx, c.SeedFile, st.tenants, st.clients); err != nil {
			return fmt.Errorf("failed to apply seed file: %w", err)
		}
	}

	configRegistry := registry.New(st.tenants, c.ConfigTTL)
	resolver := resolve.New(st.tenants, st.clients)

	refresher := token.NewOAuth2Refresher(c.Calendar.ClientID, c.Calendar.ClientSecret, c.Calendar.TokenURL)
	tokenManager := token.NewManager(st.tokens, refresher, 0)

	messagingClient := messaging.NewClient(c.Messaging.URL, c.Messaging.APIKey)
	calendarClient := calendar.NewClient(c.Calendar.URL)
	paymentClient := payment.NewClient(c.Payment.URL, c.Payment.APIKey)

	paymentFlow := flows.NewPaymentFlow(st.payments, st.quotes, paymentClient)

	flowRegistry := flows.NewRegistry()
	flowRegistry.Register(classify.IntentQuote, flows.NewQuoteFlow(st.quotes))
	flowRegistry.Register(classify.IntentScheduling, flows.NewSchedulingFlow(st.appointments, tokenManager, calendarClient))
	flowRegistry.Register(classify.IntentStatusQuery, flows.NewStatusFlow(st.orders))
	flowRegistry.Register(classify.IntentPayment, paymentFlow)

	dispatcher := dispatch.New(resolver, configRegistry, st.clients, flowRegistry, messagingClient, c.EventTimeout)

	// Admin routes are only mounted when a verification key is configured.
	var verifier *auth.Verifier
	var admin *httpapi.AdminHandler
	if c.AdminJWTPublicKey != "" {
		verifier, err = auth.NewVerifierFromPEM(c.AdminJWTPublicKey)
		if err != nil {
			return fmt.Errorf("failed to load admin JWT key: %w", err)
		}
		admin = httpapi.NewAdminHandler(st.tenants, messagingClient, paymentFlow, c.Payment.SubscriptionAmount)
	} else {
		log.Warn().Msg("admin JWT public key not set, admin endpoints disabled")
	}

	handler := httpapi.NewRouter(httpapi.RouterConfig{
		Dispatcher: dispatcher,
		Registry:   configRegistry,
		Verifier:   verifier,
		Admin:      admin,
		RateLimit:  c.RateLimit,
	})

	server := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("version", globals.Version).
			Str("listen", c.Listen).
			Str("store", c.StoreType).
			Msg("starting webhook server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (c *ServerCmd) buildStores(ctx context.Context) (*stores, error) {
	switch c.StoreType {
	case "postgres":
		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			ConnectTimeout:  c.PostgresStore.ConnectTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}

		if c.PostgresStore.AutoMigrate {
			if err := postgresstore.Migrate(ctx, pool); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		log.Info().Msg("Using PostgreSQL stores")
		return &stores{
			tenants:      postgresstore.NewTenantStore(pool),
			clients:      postgresstore.NewClientStore(pool),
			quotes:       postgresstore.NewQuoteStore(pool),
			appointments: postgresstore.NewAppointmentStore(pool),
			payments:     postgresstore.NewPaymentStore(pool),
			tokens:       postgresstore.NewTokenStore(pool),
			orders:       postgresstore.NewServiceOrderStore(pool),
		}, nil

	default:
		log.Info().Msg("Using in-memory stores")
		return &stores{
			tenants:      memorystore.NewTenantStore(),
			clients:      memorystore.NewClientStore(),
			quotes:       memorystore.NewQuoteStore(),
			appointments: memorystore.NewAppointmentStore(),
			payments:     memorystore.NewPaymentStore(),
			tokens:       memorystore.NewTokenStore(),
			orders:       memorystore.NewServiceOrderStore(),
		}, nil
	}
}
