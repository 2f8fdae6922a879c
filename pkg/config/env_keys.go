package config

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "MELISSE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Canonical environment variable names, shared with tests and deploy docs.
const (
	EnvAppEnv            = "MELISSE_APP_ENV"
	EnvLogLevel          = "MELISSE_LOG_LEVEL"
	EnvPlatformToken     = "MELISSE_PLATFORM_TOKEN"
	EnvGuildID           = "MELISSE_GUILD_ID"
	EnvTicketCategoryID  = "MELISSE_TICKET_CATEGORY_ID"
	EnvCartCategoryID    = "MELISSE_CART_CATEGORY_ID"
	EnvReceiptCategoryID = "MELISSE_RECEIPT_CATEGORY_ID"
	EnvOrderCategoryID   = "MELISSE_ORDER_CATEGORY_ID"
	EnvLogChannelID      = "MELISSE_LOG_CHANNEL_ID"
	EnvPaymentLink       = "MELISSE_PAYMENT_LINK"
	EnvLedgerPath        = "MELISSE_LEDGER_PATH"
	EnvRedisURL          = "MELISSE_REDIS_URL"
	EnvHTTPAddr          = "MELISSE_HTTP_ADDR"
)
