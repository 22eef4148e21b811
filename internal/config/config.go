package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	ListenAddr      string
	RPCEndpoints    map[uint64][]string
	FeedSources     map[uint64]string
	PgDSN           string
	RedisAddr       string
	PriceCacheTTL   time.Duration
	MinLiquidityUSD decimal.Decimal
	RatePerMinute   int
	RPCRate         float64
	RPCBurst        int
	RPCMaxFailures  int
	IngestSchedule  string
	LogLevel        string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BASKETD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":8080")
	v.SetDefault("price-cache-ttl", 30*time.Second)
	v.SetDefault("min-liquidity-usd", "50000")
	v.SetDefault("rate-per-minute", 120)
	v.SetDefault("rpc-rps", 20.0)
	v.SetDefault("rpc-burst", 5)
	v.SetDefault("rpc-max-failures", 3)
	v.SetDefault("ingest-schedule", "@hourly")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	rpcEndpoints, err := chainStringSlices(v.GetStringMapString("rpc-endpoints"))
	if err != nil {
		return Config{}, fmt.Errorf("rpc-endpoints: %w", err)
	}
	feedSources, err := chainStrings(v.GetStringMapString("feed-sources"))
	if err != nil {
		return Config{}, fmt.Errorf("feed-sources: %w", err)
	}

	minLiquidity, err := decimal.NewFromString(v.GetString("min-liquidity-usd"))
	if err != nil {
		return Config{}, fmt.Errorf("min-liquidity-usd: %w", err)
	}

	cfg := Config{
		ListenAddr:      v.GetString("listen"),
		RPCEndpoints:    rpcEndpoints,
		FeedSources:     feedSources,
		PgDSN:           v.GetString("pg-dsn"),
		RedisAddr:       v.GetString("redis-addr"),
		PriceCacheTTL:   v.GetDuration("price-cache-ttl"),
		MinLiquidityUSD: minLiquidity,
		RatePerMinute:   v.GetInt("rate-per-minute"),
		RPCRate:         v.GetFloat64("rpc-rps"),
		RPCBurst:        v.GetInt("rpc-burst"),
		RPCMaxFailures:  v.GetInt("rpc-max-failures"),
		IngestSchedule:  v.GetString("ingest-schedule"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

func chainStringSlices(raw map[string]string) (map[uint64][]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[uint64][]string, len(raw))
	for key, value := range raw {
		chainID, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chain id %q: %w", key, err)
		}
		items := splitAndClean(value)
		if len(items) == 0 {
			continue
		}
		out[chainID] = items
	}
	return out, nil
}

func chainStrings(raw map[string]string) (map[uint64]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[uint64]string, len(raw))
	for key, value := range raw {
		chainID, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chain id %q: %w", key, err)
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		out[chainID] = value
	}
	return out, nil
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
