package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Telegram    Telegram
	API         API
	Jobs        Jobs
	Account     Account
	Limits      Limits
	GoogleDrive GoogleDrive
	Currency    string `env:"CURRENCY" envDefault:"INR"`
}

type Telegram struct {
	Token            string        `env:"TELEGRAM_TOKEN"`
	UpdTimeout       time.Duration `env:"TELEGRAM_UPD_TIMEOUT" envDefault:"10s"`
	AllowedChatID    int64         `env:"TELEGRAM_ALLOWED_CHAT_ID"`
	FileLimitInBytes int           `env:"TELEGRAM_FILE_LIMIT_IN_BYTES" envDefault:"52428800"`
}

type API struct {
	Debug      bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout    time.Duration `env:"API_TIMEOUT" envDefault:"15s"`
	RateLimit  float64       `env:"API_RATE_LIMIT" envDefault:"20"`
	RateBurst  int           `env:"API_RATE_BURST" envDefault:"10"`
	BackendApi BackendApi
}

type BackendApi struct {
	Url string `env:"BACKEND_API_URL"`
}

type Jobs struct {
	RefreshInterval        time.Duration `env:"REFRESH_INTERVAL" envDefault:"10s"`
	ReportsCleanupInterval time.Duration `env:"REPORTS_CLEANUP_INTERVAL" envDefault:"1h"`
}

type Account struct {
	UID int64 `env:"ACCOUNT_UID"`
}

type Limits struct {
	MaxOrderQuantity int64           `env:"MAX_ORDER_QUANTITY" envDefault:"50"`
	MaxOrderNotional decimal.Decimal `env:"MAX_ORDER_NOTIONAL" envDefault:"100000"`
	BaseMarginCredit decimal.Decimal `env:"BASE_MARGIN_CREDIT" envDefault:"100000"`
}

// GoogleDrive is optional. Without credentials oversized reports are not uploaded.
type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"24h"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
