package config

import (
	"context"
	"errors"
	"fmt"

	"documind-api/internal/domain"
	"documind-api/internal/infra/aiqna"
	"documind-api/internal/infra/paypal"
	"documind-api/internal/infra/postgres"
	"documind-api/internal/infra/redis"
	"documind-api/internal/infra/stripe"
	"documind-api/internal/infra/supabase"
	"documind-api/internal/infra/telegram"
	"documind-api/internal/repository"
	"documind-api/internal/service"
	"documind-api/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
)

// Container holds all application dependencies
type Container struct {
	Config *AppConfig
	Logger *logger.AppLogger

	Pool  *pgxpool.Pool
	Redis *goredis.Client

	SupabaseClient domain.SupabaseClient

	AuthService         *service.AuthService
	AdminService        *service.AdminService
	DocumentService     *service.DocumentService
	LimitService        *service.LimitService
	SubscriptionService *service.SubscriptionService
	CheckoutService     *service.CheckoutService
	ContactService      *service.ContactService
}

// NewContainer loads the configuration and builds the logger. Connections are opened by Connect.
func NewContainer() (*Container, error) {
	cfg, err := NewConfig()
	if err != nil {
		return nil, err
	}

	return &Container{
		Config: cfg,
		Logger: logger.NewLogger(cfg.GetLogLevel(), cfg.GetLogFormat()),
	}, nil
}

// ConnectDatabase opens the billing pool. It is all the migrate and sweep commands need.
func (c *Container) ConnectDatabase(ctx context.Context) error {
	pool, err := postgres.Connect(ctx, c.Config.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	c.Pool = pool
	return nil
}

// Wire connects every backing service and builds the service graph used by the HTTP server.
func (c *Container) Wire(ctx context.Context) error {
	if c.Pool == nil {
		if err := c.ConnectDatabase(ctx); err != nil {
			return err
		}
	}

	supabaseClient := supabase.NewSupabaseClient(c.Config, c.Logger)
	if err := supabaseClient.Initialize(); err != nil {
		return err
	}
	c.SupabaseClient = supabaseClient

	billingRepo := repository.NewPostgresBillingRepository(c.Pool, c.Logger)
	documentRepo := repository.NewSupabaseDocumentRepository(supabaseClient, c.Logger)
	roleRepo := repository.NewSupabaseRoleRepository(supabaseClient, c.Logger)
	fileStorage := repository.NewSupabaseFileStorage(supabaseClient, c.Logger)

	c.AuthService = service.NewAuthService(supabaseClient, roleRepo, c.Logger)
	c.LimitService = service.NewLimitService(billingRepo, documentRepo, c.Logger)
	c.SubscriptionService = service.NewSubscriptionService(billingRepo, c.planCache(ctx), c.Logger)
	c.DocumentService = service.NewDocumentService(
		documentRepo,
		fileStorage,
		c.LimitService,
		aiqna.NewClient(c.Config.GetAIEndpoint(), c.Logger),
		service.NewPDFProcessor(c.Logger),
		repository.DocumentsBucket,
		c.Config.GetMaxFileSize(),
		c.Logger,
	)
	c.CheckoutService = service.NewCheckoutService(
		billingRepo,
		c.cardGateway(),
		c.payPalGateway(),
		c.cryptoWallets(),
		c.Config.GetCheckoutOrderTTL(),
		c.Logger,
	)
	c.AdminService = service.NewAdminService(roleRepo, c.CheckoutService, c.AuthService, c.Logger)
	c.ContactService = service.NewContactService(c.contactNotifier(), c.Logger)

	return nil
}

// planCache returns nil when REDIS_URL is unset or unreachable; plans are then read from postgres on every call.
func (c *Container) planCache(ctx context.Context) domain.PlanCache {
	if c.Config.GetRedisURL() == "" {
		return nil
	}

	client, err := redis.Connect(ctx, c.Config.Redis)
	if err != nil {
		c.Logger.Warn("Redis unavailable, plan cache disabled", "error", err.Error())
		return nil
	}
	c.Redis = client
	return repository.NewRedisPlanCache(client, c.Logger)
}

// cardGateway returns a nil interface, not a typed nil, when Stripe is not configured.
func (c *Container) cardGateway() domain.CardGateway {
	gateway, err := stripe.NewGateway(c.Config.GetStripeSecretKey(), "", c.Logger)
	if err != nil {
		if !errors.Is(err, domain.ErrProviderUnavailable) {
			c.Logger.Error("Failed to create Stripe gateway", err)
		}
		c.Logger.Warn("Card payments disabled")
		return nil
	}
	return gateway
}

func (c *Container) payPalGateway() domain.PayPalGateway {
	client, err := paypal.NewClient(
		c.Config.GetPayPalClientID(),
		c.Config.GetPayPalClientSecret(),
		c.Config.GetPayPalBaseURL(),
		c.Config.GetAppURL(),
		c.Logger,
	)
	if err != nil {
		if !errors.Is(err, domain.ErrProviderUnavailable) {
			c.Logger.Error("Failed to create PayPal client", err)
		}
		c.Logger.Warn("PayPal payments disabled")
		return nil
	}
	return client
}

func (c *Container) contactNotifier() domain.ContactNotifier {
	client, err := telegram.NewClient(
		c.Config.GetTelegramBotToken(),
		c.Config.GetTelegramChatID(),
		c.Config.GetTelegramAPIURL(),
		c.Logger,
	)
	if err != nil {
		c.Logger.Warn("Contact form disabled", "error", err.Error())
		return nil
	}
	return client
}

func (c *Container) cryptoWallets() map[domain.PaymentMethodKind]string {
	wallets := make(map[domain.PaymentMethodKind]string)
	for _, kind := range []domain.PaymentMethodKind{domain.PaymentMethodBTC, domain.PaymentMethodETH, domain.PaymentMethodSOL} {
		if address := c.Config.GetCryptoWallet(kind); address != "" {
			wallets[kind] = address
		}
	}
	return wallets
}

// ReadinessChecks returns the pings served by /health/ready.
func (c *Container) ReadinessChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{}
	if c.Pool != nil {
		checks["postgres"] = postgres.Healthcheck(c.Pool)
	}
	if c.Redis != nil {
		checks["redis"] = redis.Healthcheck(c.Redis)
	}
	return checks
}

// Close releases the redis client and the pool.
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Error("Failed to close redis client", err)
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
