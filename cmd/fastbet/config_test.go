package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/daszybak/fastbet/internal/feed"
	"github.com/daszybak/fastbet/internal/polymarket"
)

const minimalConfig = `
orders:
  signer_url: http://localhost:8081
  funder_address: "0xabc"
  api_key: key
  api_secret: c2VjcmV0
  api_passphrase: pass
`

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig([]byte(minimalConfig))
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}

	if cfg.HTTP.ListenAddr != ":5050" {
		t.Errorf("listen_addr = %q", cfg.HTTP.ListenAddr)
	}
	if cfg.Feed.URL != defaultFeedURL || cfg.Feed.MaxTokens != feed.MaxTokens {
		t.Errorf("feed = %+v", cfg.Feed)
	}
	if got := cfg.Feed.BackoffInitial.Duration(); got != 5*time.Second {
		t.Errorf("backoff_initial = %v", got)
	}
	if got := cfg.Feed.BackoffMax.Duration(); got != 60*time.Second {
		t.Errorf("backoff_max = %v", got)
	}
	if cfg.Feed.BackoffMultiplier != 1.5 {
		t.Errorf("backoff_multiplier = %v", cfg.Feed.BackoffMultiplier)
	}
	if got := cfg.Polymarket.CacheTTL.Duration(); got != 5*time.Second {
		t.Errorf("cache_ttl = %v", got)
	}
	if !*cfg.Polymarket.LiveOnly {
		t.Error("live_only should default to true")
	}
	if len(cfg.Polymarket.EsportsSportCodes) != len(polymarket.DefaultEsportsCodes) {
		t.Errorf("esports codes = %v", cfg.Polymarket.EsportsSportCodes)
	}
	if cfg.Redis.Key != polymarket.DefaultRedisKey {
		t.Errorf("redis key = %q", cfg.Redis.Key)
	}
	o := cfg.Orders
	if o.DefaultAmountUSD != 10 || o.MinOrderUSD != 1 || o.MaxOrderUSD != 100 || *o.Slippage != 0.01 || !*o.UseMarketOrder {
		t.Errorf("orders = %+v", o)
	}
	if string(o.APISecret.Bytes()) != "secret" {
		t.Errorf("api_secret = %q", o.APISecret.Bytes())
	}
}

func TestParseConfigExplicitFalse(t *testing.T) {
	raw := minimalConfig + `
  use_market_order: false
  slippage: 0
polymarket:
  live_only: false
`
	cfg, err := parseConfig([]byte(raw))
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if *cfg.Orders.UseMarketOrder || *cfg.Orders.Slippage != 0 || *cfg.Polymarket.LiveOnly {
		t.Errorf("explicit values overwritten: orders=%+v live_only=%v", cfg.Orders, *cfg.Polymarket.LiveOnly)
	}
}

func TestParseConfigExpandsEnv(t *testing.T) {
	t.Setenv("FASTBET_TEST_API_KEY", "from-env")
	raw := strings.Replace(minimalConfig, "api_key: key", "api_key: ${FASTBET_TEST_API_KEY}", 1)

	cfg, err := parseConfig([]byte(raw))
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.Orders.APIKey != "from-env" {
		t.Errorf("api_key = %q", cfg.Orders.APIKey)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"missing signer", strings.Replace(minimalConfig, "signer_url: http://localhost:8081", "", 1), "orders.signer_url is required"},
		{"missing secret", strings.Replace(minimalConfig, "api_secret: c2VjcmV0", "", 1), "orders.api_secret is required"},
		{"missing funder", strings.Replace(minimalConfig, `funder_address: "0xabc"`, "", 1), "orders.funder_address is required"},
		{"bad secret", strings.Replace(minimalConfig, "c2VjcmV0", "not*base64!", 1), "decode secret"},
		{"bad level", minimalConfig + "log_level: loud\n", "log_level"},
		{"bad format", minimalConfig + "log_format: xml\n", "log_format"},
		{"feed url scheme", minimalConfig + "feed:\n  url: http://example.com/ws\n", "feed.url must be a ws or wss URL"},
		{"backoff order", minimalConfig + "feed:\n  backoff_initial: 2m\n", "feed.backoff_max"},
		{"too many tokens", minimalConfig + "feed:\n  max_tokens: 501\n", "feed.max_tokens"},
		{"bad duration", minimalConfig + "polymarket:\n  sync_interval: soon\n", "couldn't parse config"},
		{"order bounds", minimalConfig + "  min_order_usd: 50\n  max_order_usd: 20\n", "orders.max_order_usd"},
		{"slippage", minimalConfig + "  slippage: 1.5\n", "orders.slippage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig([]byte(tt.raw))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(minimalConfig), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readConfig(&path); err != nil {
		t.Fatalf("readConfig: %v", err)
	}

	missing := filepath.Join(dir, "missing.yaml")
	if _, err := readConfig(&missing); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestNewLogger(t *testing.T) {
	cfg, err := parseConfig([]byte(minimalConfig + "log_level: warn\nlog_format: json\n"))
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}

	var buf bytes.Buffer
	logger := newLogger(cfg, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("log output = %q", out)
	}
}
