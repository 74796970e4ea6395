package domain

import "time"

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetLogLevel() string
	GetLogFormat() string
	GetMaxFileSize() int64

	GetSupabaseURL() string
	GetSupabaseKey() string
	GetSupabaseServiceRoleKey() string

	GetDatabaseURL() string
	GetRedisURL() string

	GetAIEndpoint() string
	GetAppURL() string
	GetAllowedOrigins() []string

	GetStripeSecretKey() string
	GetPayPalClientID() string
	GetPayPalClientSecret() string
	GetPayPalBaseURL() string

	GetCryptoWallet(kind PaymentMethodKind) string
	GetCheckoutOrderTTL() time.Duration

	GetTelegramBotToken() string
	GetTelegramChatID() string
	GetTelegramAPIURL() string
}
