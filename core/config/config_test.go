package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
	}
}

func TestNormalizeRequiresToken(t *testing.T) {
	cfg := &Config{}
	if err := Normalize(cfg); err == nil || !strings.Contains(err.Error(), "token") {
		t.Errorf("Normalize() err = %v, want token error", err)
	}
}

func TestNormalizeRunMode(t *testing.T) {
	cases := []struct {
		name    string
		mode    string
		want    string
		wantErr bool
	}{
		{"empty defaults to longpoll", "", RunModeLongpoll, false},
		{"polling alias", "polling", RunModeLongpoll, false},
		{"mixed case", "LongPoll", RunModeLongpoll, false},
		{"unknown", "carrier-pigeon", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Telegram.RunMode = tc.mode
			err := Normalize(cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatal("Normalize() = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(): %v", err)
			}
			if cfg.Telegram.RunMode != tc.want {
				t.Errorf("run_mode = %q, want %q", cfg.Telegram.RunMode, tc.want)
			}
		})
	}
}

func TestNormalizeWebhookValidation(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(cfg); err == nil {
		t.Error("Normalize() = nil, want error for missing webhook url")
	}

	cfg = validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	cfg.Webhook = WebhookConfig{URL: "https://bot.example.com/hook", Listen: "0.0.0.0", Port: 8443}
	if err := Normalize(cfg); err != nil {
		t.Errorf("Normalize(): %v", err)
	}
}

func TestNormalizeSeedsDefaultRates(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize(): %v", err)
	}

	if got := cfg.Exchange.BuyRates["PLN"]; got != 3.14 {
		t.Errorf("buy PLN = %v, want 3.14", got)
	}
	if got := cfg.Exchange.SellRates["EUR"]; got != 0.93 {
		t.Errorf("sell EUR = %v, want 0.93", got)
	}

	// The seeded maps are copies of the defaults.
	cfg.Exchange.BuyRates["PLN"] = 1
	if defaultBuyRates["PLN"] != 3.14 {
		t.Error("mutating the config leaked into the default table")
	}
}

func TestNormalizeRateTables(t *testing.T) {
	cfg := validConfig()
	cfg.Exchange.BuyRates = map[string]float64{" pln ": 3.5}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize(): %v", err)
	}
	if got := cfg.Exchange.BuyRates["PLN"]; got != 3.5 {
		t.Errorf("buy PLN = %v, want currency code upper-cased and trimmed", got)
	}

	cfg = validConfig()
	cfg.Exchange.SellRates = map[string]float64{"USD": -1}
	if err := Normalize(cfg); err == nil {
		t.Error("Normalize() = nil, want error for non-positive rate")
	}

	cfg = validConfig()
	cfg.Exchange.BuyRates = map[string]float64{"  ": 2}
	if err := Normalize(cfg); err == nil {
		t.Error("Normalize() = nil, want error for empty currency code")
	}
}

func TestNormalizeExcludeUpdates(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{" Callback ", "message"}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize(): %v", err)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != UpdateCallback {
		t.Errorf("exclude_updates[0] = %q", cfg.RateLimit.ExcludeUpdates[0])
	}

	cfg = validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{"webhooks"}
	if err := Normalize(cfg); err == nil {
		t.Error("Normalize() = nil, want error for unknown update type")
	}
}

func TestNormalizeJournalRequiresDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.Journal.Enabled = true
	if err := Normalize(cfg); err == nil {
		t.Error("Normalize() = nil, want error for missing journal database")
	}

	cfg = validConfig()
	cfg.Journal.Enabled = true
	cfg.Journal.Database.Host = "localhost"
	cfg.Journal.Database.Name = "exbot"
	if err := Normalize(cfg); err != nil {
		t.Errorf("Normalize(): %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	raw := `
telegram:
  token: "123:abc"
  admin_ids: [100, 200]
logging:
  level: debug
exchange:
  channel_url: "https://t.me/example"
  buy_rates:
    pln: 3.2
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if len(cfg.Telegram.AdminIDs) != 2 || cfg.Telegram.AdminIDs[0] != 100 {
		t.Errorf("admin_ids = %v", cfg.Telegram.AdminIDs)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Errorf("run_mode = %q, want default longpoll", cfg.Telegram.RunMode)
	}
	if got := cfg.Exchange.BuyRates["PLN"]; got != 3.2 {
		t.Errorf("buy PLN = %v, want 3.2 from file", got)
	}
	if got := cfg.Exchange.SellRates["PLN"]; got != 3.97 {
		t.Errorf("sell PLN = %v, want seeded default", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() = nil, want error for missing file")
	}
}
