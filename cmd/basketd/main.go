package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"basketScope/internal/cache"
	"basketScope/internal/chain"
	"basketScope/internal/config"
	"basketScope/internal/dex"
	"basketScope/internal/feeds"
	"basketScope/internal/model"
	"basketScope/internal/server"
	"basketScope/internal/storage/postgres"
	"basketScope/internal/token"
	"basketScope/internal/verify"
)

func main() {
	root := &cobra.Command{
		Use:          "basketd",
		Short:        "Fund basket verification service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the verification API",
		RunE:  runServe,
	}

	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN for the feed directory")
	serveCmd.Flags().String("redis-addr", "", "Redis address for the price cache (empty disables caching)")
	serveCmd.Flags().Duration("price-cache-ttl", 30*time.Second, "price cache TTL")
	serveCmd.Flags().String("min-liquidity-usd", "50000", "minimum route liquidity in USD")
	serveCmd.Flags().Int("rate-per-minute", 120, "per-IP request rate limit (0 disables)")
	serveCmd.Flags().Float64("rpc-rps", 20, "per-endpoint RPC requests per second")
	serveCmd.Flags().Int("rpc-burst", 5, "per-endpoint RPC burst")
	serveCmd.Flags().Int("rpc-max-failures", 3, "consecutive failures before an endpoint is marked down")
	serveCmd.Flags().String("ingest-schedule", "@hourly", "cron schedule for feed directory refresh (empty disables)")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	ingestCmd := &cobra.Command{
		Use:   "ingest-feeds",
		Short: "Refresh the price feed directory once",
		RunE:  runIngest,
	}

	ingestCmd.Flags().String("pg-dsn", "", "Postgres DSN for the feed directory")
	ingestCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(ingestCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// feedSource routes price reads through the cache while resolution stays on
// the directory-backed resolver.
type feedSource struct {
	*feeds.Resolver
	prices cache.PriceReader
}

func (f *feedSource) LatestPrice(ctx context.Context, chainID uint64, feed model.PriceFeedRecord) *model.PriceQuote {
	return f.prices.LatestPrice(ctx, chainID, feed)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PgDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	if len(cfg.RPCEndpoints) == 0 {
		return fmt.Errorf("rpc-endpoints is required (config file or env)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PgDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	pools := chain.Pools{}
	for chainID, urls := range cfg.RPCEndpoints {
		pool, err := chain.NewPool(ctx, urls, chain.PoolConfig{
			RequestsPerSecond: cfg.RPCRate,
			Burst:             cfg.RPCBurst,
			MaxFailures:       cfg.RPCMaxFailures,
		}, logger)
		if err != nil {
			return fmt.Errorf("rpc pool for chain %d: %w", chainID, err)
		}
		pools[chainID] = pool
	}
	defer pools.Close()

	resolver := feeds.NewResolver(store, pools, logger)

	var prices cache.PriceReader = resolver
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		prices = cache.NewPriceCache(rdb, resolver, cfg.PriceCacheTTL, logger)
	}

	graph := dex.NewChainPoolGraph(pools)
	verifier := verify.NewVerifier(
		token.NewProvider(pools, logger),
		&feedSource{Resolver: resolver, prices: prices},
		dex.NewV2PathFinder(graph, cfg.MinLiquidityUSD, logger),
		dex.NewV3PoolFinder(graph, cfg.MinLiquidityUSD, logger),
		cfg.MinLiquidityUSD,
		logger,
	)

	if len(cfg.FeedSources) > 0 && cfg.IngestSchedule != "" {
		ingestor := feeds.NewIngestor(store, cfg.FeedSources, logger)
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.IngestSchedule, func() {
			if err := ingestor.RunOnce(ctx); err != nil {
				logger.Warn("scheduled feed ingestion failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("ingest schedule: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	logger.Info("basketd start",
		zap.String("listen", cfg.ListenAddr),
		zap.Int("chains", len(cfg.RPCEndpoints)),
		zap.String("min_liquidity_usd", cfg.MinLiquidityUSD.String()),
		zap.Int("rate_per_minute", cfg.RatePerMinute),
		zap.Bool("price_cache", cfg.RedisAddr != ""),
	)

	srv := server.NewServer(server.Config{
		ListenAddr:    cfg.ListenAddr,
		RatePerMinute: cfg.RatePerMinute,
	}, verifier, logger)

	return srv.Run(ctx)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PgDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	if len(cfg.FeedSources) == 0 {
		return fmt.Errorf("feed-sources is required (config file or env)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PgDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	return feeds.NewIngestor(store, cfg.FeedSources, logger).RunOnce(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
