// Package config loads and validates the bot configuration from a YAML file
// with an environment-variable overlay.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coredatabase "github.com/p2pdesk/exbot/core/database"
)

// TelegramConfig holds Telegram bot transport settings.
type TelegramConfig struct {
	Token    string  `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminIDs []int64 `yaml:"admin_ids" envconfig:"TELEGRAM_ADMIN_IDS"`
	RunMode  string  `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

// RateLimitConfig holds settings for the per-user rate limit middleware.
// ExcludeUpdates accepts update types to bypass limiting: "callback",
// "message", "inline_query".
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// ExchangeConfig carries the intake-flow settings: the community channel
// link and the seed rate tables. Currency codes are normalized to upper-case
// during Normalize; missing tables fall back to the built-in defaults.
type ExchangeConfig struct {
	ChannelURL string             `yaml:"channel_url" envconfig:"EXCHANGE_CHANNEL_URL"`
	BuyRates   map[string]float64 `yaml:"buy_rates"`
	SellRates  map[string]float64 `yaml:"sell_rates"`
}

// JournalConfig enables the optional request journal.
type JournalConfig struct {
	Enabled  bool                `yaml:"enabled" envconfig:"JOURNAL_ENABLED"`
	Database coredatabase.Config `yaml:"database"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// Config aggregates the full application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Exchange  ExchangeConfig  `yaml:"exchange"`
	Journal   JournalConfig   `yaml:"journal"`
}

// Rates seeded when the config file provides none, matching the service's
// launch tables.
var (
	defaultBuyRates  = map[string]float64{"PLN": 3.14, "USD": 0.84, "EUR": 0.74}
	defaultSellRates = map[string]float64{"PLN": 3.97, "USD": 1.06, "EUR": 0.93}
)

// Load reads the YAML file, applies the environment overlay, and validates
// the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults. A missing token is
// the one fatal pre-flight error of the whole system.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if err := normalizeRunMode(cfg); err != nil {
		return err
	}
	if err := normalizeRateLimit(&cfg.RateLimit); err != nil {
		return err
	}
	if err := normalizeExchange(&cfg.Exchange); err != nil {
		return err
	}
	if cfg.Journal.Enabled && (cfg.Journal.Database.Host == "" || cfg.Journal.Database.Name == "") {
		return fmt.Errorf("journal.database.host and journal.database.name are required when journal is enabled")
	}
	return nil
}

func normalizeRunMode(cfg *Config) error {
	mode := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	switch mode {
	case "":
		mode = RunModeLongpoll
	case "polling": // accepted alias
		mode = RunModeLongpoll
	}

	switch mode {
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	case RunModeWebhook:
		switch {
		case strings.TrimSpace(cfg.Webhook.URL) == "":
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		case strings.TrimSpace(cfg.Webhook.Listen) == "":
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		case cfg.Webhook.Port <= 0:
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}

	cfg.Telegram.RunMode = mode
	return nil
}

func normalizeRateLimit(rl *RateLimitConfig) error {
	for i, v := range rl.ExcludeUpdates {
		kind := strings.ToLower(strings.TrimSpace(v))
		switch kind {
		case "", UpdateCallback, UpdateMessage, UpdateInlineQuery:
			rl.ExcludeUpdates[i] = kind
		default:
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
	}
	return nil
}

func normalizeExchange(ex *ExchangeConfig) error {
	if len(ex.BuyRates) == 0 {
		ex.BuyRates = copyRates(defaultBuyRates)
	}
	if len(ex.SellRates) == 0 {
		ex.SellRates = copyRates(defaultSellRates)
	}
	var err error
	if ex.BuyRates, err = normalizeRates("buy_rates", ex.BuyRates); err != nil {
		return err
	}
	if ex.SellRates, err = normalizeRates("sell_rates", ex.SellRates); err != nil {
		return err
	}
	return nil
}

func normalizeRates(field string, rates map[string]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(rates))
	for cur, v := range rates {
		key := strings.ToUpper(strings.TrimSpace(cur))
		if key == "" {
			return nil, fmt.Errorf("exchange.%s contains an empty currency code", field)
		}
		if v <= 0 {
			return nil, fmt.Errorf("exchange.%s[%s] must be > 0", field, key)
		}
		out[key] = v
	}
	return out, nil
}

func copyRates(src map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
