package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/daszybak/fastbet/internal/api"
	"github.com/daszybak/fastbet/internal/feed"
	"github.com/daszybak/fastbet/internal/order"
	"github.com/daszybak/fastbet/internal/platform"
	"github.com/daszybak/fastbet/internal/polymarket"
	"github.com/daszybak/fastbet/internal/polymarket/clob"
	"github.com/daszybak/fastbet/internal/polymarket/gamma"
	"github.com/daszybak/fastbet/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/fastbet/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := readConfig(configPath)
	if err != nil {
		log.Fatalf("Couldn't read config: %v", err)
	}

	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fastbet stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config, w io.Writer) *slog.Logger {
	level, _ := parseLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func run(ctx context.Context, cfg *config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Live prices
	quotes := feed.NewStore()
	if err := feed.RegisterStore(reg, quotes); err != nil {
		return err
	}
	supervisor := feed.NewSupervisor(
		quotes,
		feed.WebsocketDialer(cfg.Feed.URL, cfg.Feed.ReadTimeout.Duration()),
		feed.SupervisorConfig{
			Connection: feed.ConnectionConfig{
				KeepaliveInterval: cfg.Feed.KeepaliveInterval.Duration(),
				BackoffInitial:    cfg.Feed.BackoffInitial.Duration(),
				BackoffMultiplier: cfg.Feed.BackoffMultiplier,
				BackoffMax:        cfg.Feed.BackoffMax.Duration(),
			},
			MaxTokens:           cfg.Feed.MaxTokens,
			ResubscribeOnChange: cfg.Feed.ResubscribeOnChange,
		},
		feed.NewMetrics(reg),
		logger,
	)
	defer func() {
		if err := supervisor.Close(context.Background()); err != nil {
			logger.Warn("couldn't close feed", "error", err)
		}
	}()

	// Discovery
	var cache polymarket.Cache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("couldn't reach redis: %w", err)
		}
		cache = polymarket.NewRedisCache(rdb, cfg.Redis.Key)
		logger.Info("caching events in redis", "addr", cfg.Redis.Addr)
	}

	pm := cfg.Polymarket
	gammaClient := gamma.New(pm.GammaURL, rate.Limit(pm.GammaRateLimit), 1)
	discovery := polymarket.New(polymarket.Config{
		SyncInterval:   pm.SyncInterval.Duration(),
		CacheTTL:       pm.CacheTTL.Duration(),
		LiveOnly:       *pm.LiveOnly,
		EsportsCodes:   pm.EsportsSportCodes,
		FallbackTagIDs: pm.FallbackTagIDs,
	}, gammaClient, cache, supervisor, logger)

	platforms := []platform.Platform{discovery}
	for _, p := range platforms {
		if err := p.Start(ctx); err != nil {
			return err
		}
	}
	defer func() {
		for _, p := range platforms {
			if err := p.Stop(context.Background()); err != nil {
				logger.Warn("couldn't stop platform", "error", err)
			}
		}
	}()

	// Order journal
	var (
		journal order.Journal
		history api.OrderHistory
	)
	if cfg.Database.URL != "" {
		pool, err := store.NewPool(ctx, store.PoolConfig{
			URL:      cfg.Database.URL,
			PoolSize: cfg.Database.PoolSize,
		})
		if err != nil {
			return fmt.Errorf("couldn't connect to database: %w", err)
		}
		db := store.New(pool)
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("couldn't migrate database: %w", err)
		}
		journal, history = db, db
		logger.Info("journaling orders to database")
	}

	o := cfg.Orders
	gateway := clob.NewOrderClient(pm.ClobURL, o.SignerURL, clob.Credentials{
		Address:    o.FunderAddress,
		APIKey:     o.APIKey,
		Secret:     o.APISecret,
		Passphrase: o.APIPassphrase,
	})
	orders := order.NewService(order.Config{
		DefaultAmountUSD: o.DefaultAmountUSD,
		MinOrderUSD:      o.MinOrderUSD,
		MaxOrderUSD:      o.MaxOrderUSD,
		Slippage:         *o.Slippage,
		UseMarketOrder:   *o.UseMarketOrder,
	}, gateway, journal, logger)

	srv := &http.Server{
		Addr:         cfg.HTTP.ListenAddr,
		Handler:      api.New(discovery, supervisor, orders, history, reg, reg, logger).Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("couldn't shut down http server", "error", err)
	}
	return nil
}
