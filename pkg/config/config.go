package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Platform PlatformConfig
	Workflow WorkflowConfig
	Ledger   LedgerConfig
	Redis    RedisConfig
	HTTP     HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MELISSE_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"MELISSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MELISSE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// PlatformConfig holds the messaging-platform collaborator settings. The
// token arrives out-of-band and its absence is a fatal startup error.
type PlatformConfig struct {
	Gateway           string `envconfig:"MELISSE_PLATFORM_GATEWAY" default:"discord"`
	Token             string `envconfig:"MELISSE_PLATFORM_TOKEN" required:"true"`
	GuildID           string `envconfig:"MELISSE_GUILD_ID" required:"true"`
	TicketCategoryID  string `envconfig:"MELISSE_TICKET_CATEGORY_ID" required:"true"`
	CartCategoryID    string `envconfig:"MELISSE_CART_CATEGORY_ID" required:"true"`
	ReceiptCategoryID string `envconfig:"MELISSE_RECEIPT_CATEGORY_ID" required:"true"`
	OrderCategoryID   string `envconfig:"MELISSE_ORDER_CATEGORY_ID" required:"true"`
	LogChannelID      string `envconfig:"MELISSE_LOG_CHANNEL_ID"`
	AdminMention      string `envconfig:"MELISSE_ADMIN_MENTION" default:"<@&admin>"`
}

type WorkflowConfig struct {
	PaymentLink     string        `envconfig:"MELISSE_PAYMENT_LINK" required:"true"`
	TicketCloseTTL  time.Duration `envconfig:"MELISSE_TICKET_CLOSE_TTL" default:"3h"`
	OrderPurgeTTL   time.Duration `envconfig:"MELISSE_ORDER_PURGE_TTL" default:"24h"`
	ReceiptWait     time.Duration `envconfig:"MELISSE_RECEIPT_WAIT" default:"120s"`
	SummaryScanBack int           `envconfig:"MELISSE_SUMMARY_SCAN_BACK" default:"20"`
}

type LedgerConfig struct {
	Path string `envconfig:"MELISSE_LEDGER_PATH" default:"orders.csv"`
}

// RedisConfig is optional; when URL is empty the process falls back to
// in-memory locking and dedup.
type RedisConfig struct {
	URL          string        `envconfig:"MELISSE_REDIS_URL"`
	PoolSize     int           `envconfig:"MELISSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MELISSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MELISSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MELISSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MELISSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

type HTTPConfig struct {
	Addr string `envconfig:"MELISSE_HTTP_ADDR" default:":8080"`
}
