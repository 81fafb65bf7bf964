package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"

	configtypes "github.com/daszybak/fastbet/internal/config"
	"github.com/daszybak/fastbet/internal/feed"
	"github.com/daszybak/fastbet/internal/order"
	"github.com/daszybak/fastbet/internal/polymarket"
	"github.com/daszybak/fastbet/internal/polymarket/clob"
	"github.com/daszybak/fastbet/internal/polymarket/gamma"
)

const defaultFeedURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

type config struct {
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json
	HTTP      struct {
		ListenAddr      string               `yaml:"listen_addr"`
		ReadTimeout     configtypes.Duration `yaml:"read_timeout"`
		WriteTimeout    configtypes.Duration `yaml:"write_timeout"`
		ShutdownTimeout configtypes.Duration `yaml:"shutdown_timeout"`
	} `yaml:"http"`
	Feed struct {
		URL                 string               `yaml:"url"`
		KeepaliveInterval   configtypes.Duration `yaml:"keepalive_interval"`
		ReadTimeout         configtypes.Duration `yaml:"read_timeout"`
		BackoffInitial      configtypes.Duration `yaml:"backoff_initial"`
		BackoffMultiplier   float64              `yaml:"backoff_multiplier"`
		BackoffMax          configtypes.Duration `yaml:"backoff_max"`
		MaxTokens           int                  `yaml:"max_tokens"`
		ResubscribeOnChange bool                 `yaml:"resubscribe_on_change"`
	} `yaml:"feed"`
	Polymarket struct {
		GammaURL          string               `yaml:"gamma_url"`
		ClobURL           string               `yaml:"clob_url"`
		GammaRateLimit    float64              `yaml:"gamma_rate_limit"` // requests per second, 0 = unlimited
		SyncInterval      configtypes.Duration `yaml:"sync_interval"`
		CacheTTL          configtypes.Duration `yaml:"cache_ttl"`
		LiveOnly          *bool                `yaml:"live_only"`
		EsportsSportCodes []string             `yaml:"esports_sport_codes"`
		FallbackTagIDs    []int                `yaml:"fallback_tag_ids"`
	} `yaml:"polymarket"`
	Redis struct {
		Addr     string `yaml:"addr"` // empty keeps the event cache in memory
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Key      string `yaml:"key"`
	} `yaml:"redis"`
	Database struct {
		URL      string `yaml:"url"` // empty disables the order journal
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"database"`
	Orders struct {
		SignerURL        string             `yaml:"signer_url"`
		FunderAddress    string             `yaml:"funder_address"`
		APIKey           string             `yaml:"api_key"`
		APISecret        configtypes.Secret `yaml:"api_secret"`
		APIPassphrase    string             `yaml:"api_passphrase"`
		DefaultAmountUSD float64            `yaml:"default_amount_usd"`
		MinOrderUSD      float64            `yaml:"min_order_usd"`
		MaxOrderUSD      float64            `yaml:"max_order_usd"`
		Slippage         *float64           `yaml:"slippage"`
		UseMarketOrder   *bool              `yaml:"use_market_order"`
	} `yaml:"orders"`
}

// readConfig loads .env next to the working directory when there is one,
// expands ${VAR} references in the YAML file and parses it.
func readConfig(configPath *string) (*config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("couldn't load .env: %w", err)
	}

	rawConfig, err := os.ReadFile(*configPath)
	if err != nil {
		return nil, fmt.Errorf("couldn't read file %s: %w", *configPath, err)
	}

	return parseConfig(rawConfig)
}

func parseConfig(rawConfig []byte) (*config, error) {
	expanded := os.ExpandEnv(string(rawConfig))

	cfg := &config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("couldn't parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("couldn't validate config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	if cfg.HTTP.ListenAddr == "" {
		cfg.HTTP.ListenAddr = ":5050"
	}
	setDuration(&cfg.HTTP.ReadTimeout, 10*time.Second)
	setDuration(&cfg.HTTP.WriteTimeout, 30*time.Second)
	setDuration(&cfg.HTTP.ShutdownTimeout, 10*time.Second)

	if cfg.Feed.URL == "" {
		cfg.Feed.URL = defaultFeedURL
	}
	setDuration(&cfg.Feed.KeepaliveInterval, feed.DefaultKeepaliveInterval)
	setDuration(&cfg.Feed.ReadTimeout, 30*time.Second)
	setDuration(&cfg.Feed.BackoffInitial, feed.DefaultBackoffInitial)
	setDuration(&cfg.Feed.BackoffMax, feed.DefaultBackoffMax)
	if cfg.Feed.BackoffMultiplier == 0 {
		cfg.Feed.BackoffMultiplier = feed.DefaultBackoffMultiplier
	}
	if cfg.Feed.MaxTokens == 0 {
		cfg.Feed.MaxTokens = feed.MaxTokens
	}

	pm := &cfg.Polymarket
	if pm.GammaURL == "" {
		pm.GammaURL = gamma.DefaultBaseURL
	}
	if pm.ClobURL == "" {
		pm.ClobURL = clob.DefaultBaseURL
	}
	setDuration(&pm.SyncInterval, polymarket.DefaultSyncInterval)
	setDuration(&pm.CacheTTL, polymarket.DefaultCacheTTL)
	if pm.LiveOnly == nil {
		liveOnly := true
		pm.LiveOnly = &liveOnly
	}
	if pm.EsportsSportCodes == nil {
		pm.EsportsSportCodes = polymarket.DefaultEsportsCodes
	}
	if len(pm.FallbackTagIDs) == 0 {
		pm.FallbackTagIDs = polymarket.DefaultFallbackTagIDs
	}

	if cfg.Redis.Key == "" {
		cfg.Redis.Key = polymarket.DefaultRedisKey
	}
	if cfg.Database.PoolSize == 0 {
		cfg.Database.PoolSize = 4
	}

	o := &cfg.Orders
	if o.DefaultAmountUSD == 0 {
		o.DefaultAmountUSD = order.DefaultAmountUSD
	}
	if o.MinOrderUSD == 0 {
		o.MinOrderUSD = order.DefaultMinUSD
	}
	if o.MaxOrderUSD == 0 {
		o.MaxOrderUSD = order.DefaultMaxUSD
	}
	if o.Slippage == nil {
		slippage := order.DefaultSlippage
		o.Slippage = &slippage
	}
	if o.UseMarketOrder == nil {
		useMarket := true
		o.UseMarketOrder = &useMarket
	}
}

func setDuration(d *configtypes.Duration, fallback time.Duration) {
	*d = configtypes.Duration(d.Or(fallback))
}

func validateConfig(cfg *config) error {
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json")
	}

	// Feed
	if err := validateURL("feed.url", cfg.Feed.URL, "ws", "wss"); err != nil {
		return err
	}
	if cfg.Feed.BackoffMultiplier < 1 {
		return fmt.Errorf("feed.backoff_multiplier must be at least 1")
	}
	if cfg.Feed.BackoffMax < cfg.Feed.BackoffInitial {
		return fmt.Errorf("feed.backoff_max must not be below feed.backoff_initial")
	}
	if cfg.Feed.MaxTokens < 0 || cfg.Feed.MaxTokens > feed.MaxTokens {
		return fmt.Errorf("feed.max_tokens must be between 1 and %d", feed.MaxTokens)
	}

	// Polymarket
	if err := validateURL("polymarket.gamma_url", cfg.Polymarket.GammaURL, "http", "https"); err != nil {
		return err
	}
	if err := validateURL("polymarket.clob_url", cfg.Polymarket.ClobURL, "http", "https"); err != nil {
		return err
	}
	if cfg.Polymarket.GammaRateLimit < 0 {
		return fmt.Errorf("polymarket.gamma_rate_limit must not be negative")
	}

	// Orders
	o := cfg.Orders
	if err := validateURL("orders.signer_url", o.SignerURL, "http", "https"); err != nil {
		return err
	}
	if o.FunderAddress == "" {
		return fmt.Errorf("orders.funder_address is required")
	}
	if o.APIKey == "" {
		return fmt.Errorf("orders.api_key is required")
	}
	if o.APISecret.IsZero() {
		return fmt.Errorf("orders.api_secret is required")
	}
	if o.APIPassphrase == "" {
		return fmt.Errorf("orders.api_passphrase is required")
	}
	if o.DefaultAmountUSD < 0 || o.MinOrderUSD < 0 || o.MaxOrderUSD < 0 {
		return fmt.Errorf("orders amounts must not be negative")
	}
	if o.MaxOrderUSD < o.MinOrderUSD {
		return fmt.Errorf("orders.max_order_usd must not be below orders.min_order_usd")
	}
	if *o.Slippage < 0 || *o.Slippage >= 1 {
		return fmt.Errorf("orders.slippage must be in [0, 1)")
	}

	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %s URL", field, strings.Join(schemes, " or "))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
