package api

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/clients/http/aliexpress"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/adapters/telegram"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
)

// ErrConfig is returned when the environment cannot produce a usable configuration.
var ErrConfig = errors.New("invalid configuration")

// Config carries environment-driven settings for the bot process.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	TelegramToken   string `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
	TelegramChannel string `env:"TELEGRAM_CHANNEL_ID,required,notEmpty"`
	WebhookURL      string `env:"WEBHOOK_URL"`
	WebhookSecret   string `env:"WEBHOOK_SECRET"`

	AppKey         string `env:"ALIEXPRESS_APP_KEY,required,notEmpty"`
	AppSecret      string `env:"ALIEXPRESS_APP_SECRET,required,notEmpty"`
	TrackingID     string `env:"ALIEXPRESS_TRACKING_ID,required,notEmpty"`
	APIURL         string `env:"ALIEXPRESS_API_URL" envDefault:"https://api-sg.aliexpress.com/sync"`
	FallbackAPIURL string `env:"ALIEXPRESS_FALLBACK_API_URL" envDefault:"https://api.aliexpress.com/sync"`
	TargetCurrency string `env:"ALIEXPRESS_TARGET_CURRENCY" envDefault:"USD"`
	TargetLanguage string `env:"ALIEXPRESS_TARGET_LANGUAGE" envDefault:"EN"`
	ShipToCountry  string `env:"ALIEXPRESS_SHIP_TO_COUNTRY"`

	CommerceRPS     float64       `env:"COMMERCE_RPS" envDefault:"1"`
	CommerceTimeout time.Duration `env:"COMMERCE_TIMEOUT" envDefault:"10s"`
	FallbackDelay   time.Duration `env:"COMMERCE_FALLBACK_DELAY" envDefault:"250ms"`
	ResolveTimeout  time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"8s"`
	ResolveMaxHops  int           `env:"RESOLVE_MAX_HOPS" envDefault:"8"`

	CacheTTL           time.Duration `env:"CACHE_TTL" envDefault:"30m"`
	CacheSweepSchedule string        `env:"CACHE_SWEEP_SCHEDULE" envDefault:"@every 5m"`
	CacheMaxEntries    int           `env:"CACHE_MAX_ENTRIES" envDefault:"10000"`

	ProcessTimeout time.Duration `env:"PROCESS_TIMEOUT" envDefault:"25s"`
	ProgressNotice bool          `env:"PROGRESS_NOTICE" envDefault:"false"`

	TemporalAddress   string `env:"TEMPORAL_ADDRESS" envDefault:"localhost:7233"`
	TemporalNamespace string `env:"TEMPORAL_NAMESPACE" envDefault:"default"`
	TemporalDisabled  bool   `env:"TEMPORAL_DISABLED" envDefault:"false"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Channel is TelegramChannel parsed into a chat target.
	Channel ports.ChatTarget
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()
	return parseConfig(env.Options{})
}

func parseConfig(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	channel, err := telegram.ParseChatTarget(c.TelegramChannel)
	if err != nil {
		return fmt.Errorf("TELEGRAM_CHANNEL_ID: %w", err)
	}
	c.Channel = channel
	c.WebhookSecret = strings.TrimSpace(c.WebhookSecret)
	if c.WebhookSecret == "" {
		c.WebhookSecret = DefaultWebhookSecret(c.TelegramToken)
	}
	if c.CommerceRPS <= 0 {
		return errors.New("COMMERCE_RPS must be positive")
	}
	if c.CommerceTimeout <= 0 || c.ResolveTimeout <= 0 || c.ProcessTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.FallbackDelay < 0 {
		return errors.New("COMMERCE_FALLBACK_DELAY must not be negative")
	}
	if c.ResolveMaxHops <= 0 {
		return errors.New("RESOLVE_MAX_HOPS must be positive")
	}
	if c.CacheTTL <= 0 {
		return errors.New("CACHE_TTL must be positive")
	}
	if c.CacheMaxEntries < 0 {
		return errors.New("CACHE_MAX_ENTRIES must not be negative")
	}
	if _, err := cron.ParseStandard(c.CacheSweepSchedule); err != nil {
		return fmt.Errorf("CACHE_SWEEP_SCHEDULE: %w", err)
	}
	return nil
}

// Endpoints lists the commerce gateways in fallback order.
func (c Config) Endpoints() []string {
	endpoints := []string{c.APIURL}
	if fallback := strings.TrimSpace(c.FallbackAPIURL); fallback != "" && fallback != c.APIURL {
		endpoints = append(endpoints, fallback)
	}
	return endpoints
}

// CommerceConfig maps the settings onto the gateway client configuration.
func (c Config) CommerceConfig() aliexpress.Config {
	return aliexpress.Config{
		AppKey:            c.AppKey,
		AppSecret:         c.AppSecret,
		TrackingID:        c.TrackingID,
		Endpoints:         c.Endpoints(),
		TargetCurrency:    c.TargetCurrency,
		TargetLanguage:    c.TargetLanguage,
		ShipToCountry:     c.ShipToCountry,
		RequestsPerSecond: c.CommerceRPS,
		Timeout:           c.CommerceTimeout,
		FallbackDelay:     c.FallbackDelay,
	}
}

// WebhookPath is the route Telegram posts updates to.
func (c Config) WebhookPath() string {
	return "/webhook/" + c.WebhookSecret
}

// DefaultWebhookSecret derives a path secret from the bot token so the route is
// unguessable without extra configuration.
func DefaultWebhookSecret(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// WebhookConfig is the subset of settings needed to manage the webhook registration.
type WebhookConfig struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
	WebhookURL    string `env:"WEBHOOK_URL"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

// LoadWebhookConfig reads the webhook settings without requiring commerce credentials.
func LoadWebhookConfig() (WebhookConfig, error) {
	_ = godotenv.Load()
	return parseWebhookConfig(env.Options{})
}

func parseWebhookConfig(opts env.Options) (WebhookConfig, error) {
	cfg, err := env.ParseAsWithOptions[WebhookConfig](opts)
	if err != nil {
		return WebhookConfig{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	cfg.WebhookSecret = strings.TrimSpace(cfg.WebhookSecret)
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = DefaultWebhookSecret(cfg.TelegramToken)
	}
	return cfg, nil
}

// WebhookPath is the route Telegram posts updates to.
func (c WebhookConfig) WebhookPath() string {
	return "/webhook/" + c.WebhookSecret
}
