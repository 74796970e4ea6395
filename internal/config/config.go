package config

import (
	"fmt"
	"sync"
	"time"

	"documind-api/internal/domain"
	"documind-api/internal/infra/postgres"
	"documind-api/internal/infra/redis"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var loadDotenv sync.Once

// AppConfig implements the domain.Config interface
type AppConfig struct {
	// Cloud Run (and many PaaS) provide the listening port via PORT.
	// SERVER_PORT is kept for local/dev compatibility.
	Port        string `env:"PORT"`
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	MaxFileSize int64  `env:"MAX_FILE_SIZE" envDefault:"52428800"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`

	SupabaseURL            string `env:"SUPABASE_URL"`
	SupabaseKey            string `env:"SUPABASE_ANON_KEY"`
	SupabaseServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`

	Database postgres.Config
	Redis    redis.Config

	AIEndpoint     string   `env:"AI_QNA_ENDPOINT" envDefault:"http://localhost:8000"`
	AppURL         string   `env:"APP_URL" envDefault:"http://localhost:3000"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`

	StripeSecretKey    string `env:"STRIPE_SECRET_KEY"`
	PayPalClientID     string `env:"PAYPAL_CLIENT_ID"`
	PayPalClientSecret string `env:"PAYPAL_CLIENT_SECRET"`
	PayPalBaseURL      string `env:"PAYPAL_BASE_URL" envDefault:"https://api-m.sandbox.paypal.com"`

	BTCWallet string `env:"CRYPTO_BTC_ADDRESS" envDefault:"bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"`
	ETHWallet string `env:"CRYPTO_ETH_ADDRESS" envDefault:"0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb"`
	SOLWallet string `env:"CRYPTO_SOL_ADDRESS" envDefault:"7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"`

	CheckoutOrderTTL time.Duration `env:"CHECKOUT_ORDER_TTL" envDefault:"30m"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `env:"TELEGRAM_CHAT_ID"`
	TelegramAPIURL   string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
}

// NewConfig loads .env once (missing file is fine) and parses the environment.
func NewConfig() (*AppConfig, error) {
	loadDotenv.Do(func() {
		_ = godotenv.Load()
	})

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Port == "" {
		cfg.Port = cfg.ServerPort
	}
	return cfg, nil
}

var _ domain.Config = (*AppConfig)(nil)

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.Port
}

// GetMaxFileSize returns the maximum allowed file size
func (c *AppConfig) GetMaxFileSize() int64 {
	return c.MaxFileSize
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

func (c *AppConfig) GetLogFormat() string {
	return c.LogFormat
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

func (c *AppConfig) GetSupabaseServiceRoleKey() string {
	return c.SupabaseServiceRoleKey
}

func (c *AppConfig) GetDatabaseURL() string {
	return c.Database.ConnectionString
}

func (c *AppConfig) GetRedisURL() string {
	return c.Redis.ConnectionURL
}

func (c *AppConfig) GetAIEndpoint() string {
	return c.AIEndpoint
}

func (c *AppConfig) GetAppURL() string {
	return c.AppURL
}

func (c *AppConfig) GetAllowedOrigins() []string {
	return c.AllowedOrigins
}

func (c *AppConfig) GetStripeSecretKey() string {
	return c.StripeSecretKey
}

func (c *AppConfig) GetPayPalClientID() string {
	return c.PayPalClientID
}

func (c *AppConfig) GetPayPalClientSecret() string {
	return c.PayPalClientSecret
}

func (c *AppConfig) GetPayPalBaseURL() string {
	return c.PayPalBaseURL
}

// GetCryptoWallet returns the receiving address for a crypto network, or "" for other kinds.
func (c *AppConfig) GetCryptoWallet(kind domain.PaymentMethodKind) string {
	switch kind {
	case domain.PaymentMethodBTC:
		return c.BTCWallet
	case domain.PaymentMethodETH:
		return c.ETHWallet
	case domain.PaymentMethodSOL:
		return c.SOLWallet
	default:
		return ""
	}
}

func (c *AppConfig) GetCheckoutOrderTTL() time.Duration {
	return c.CheckoutOrderTTL
}

func (c *AppConfig) GetTelegramBotToken() string {
	return c.TelegramBotToken
}

func (c *AppConfig) GetTelegramChatID() string {
	return c.TelegramChatID
}

func (c *AppConfig) GetTelegramAPIURL() string {
	return c.TelegramAPIURL
}
