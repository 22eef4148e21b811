package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"basketScope/internal/model"
)

// PriceReader is the price-read operation the cache wraps.
type PriceReader interface {
	LatestPrice(ctx context.Context, chainID uint64, feed model.PriceFeedRecord) *model.PriceQuote
}

// PriceCache is a cache-aside wrapper for feed price reads. Cache failures
// fall through to the inner reader; a stale or missing cache never changes
// whether a price resolves, only how fast.
type PriceCache struct {
	rdb    *redis.Client
	inner  PriceReader
	ttl    time.Duration
	logger *zap.Logger
}

func NewPriceCache(rdb *redis.Client, inner PriceReader, ttl time.Duration, logger *zap.Logger) *PriceCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PriceCache{rdb: rdb, inner: inner, ttl: ttl, logger: logger}
}

func (c *PriceCache) LatestPrice(ctx context.Context, chainID uint64, feed model.PriceFeedRecord) *model.PriceQuote {
	key := priceKey(chainID, feed)

	val, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		value, parseErr := decimal.NewFromString(val)
		if parseErr == nil {
			return &model.PriceQuote{Value: value, Decimals: feed.Decimals}
		}
		c.logger.Debug("cached price unparsable", zap.String("key", key), zap.Error(parseErr))
	} else if err != redis.Nil {
		c.logger.Debug("price cache read failed", zap.String("key", key), zap.Error(err))
	}

	quote := c.inner.LatestPrice(ctx, chainID, feed)
	if quote != nil {
		if err := c.rdb.Set(ctx, key, quote.Value.String(), c.ttl).Err(); err != nil {
			c.logger.Debug("price cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return quote
}

func priceKey(chainID uint64, feed model.PriceFeedRecord) string {
	return fmt.Sprintf("feedprice:%d:%s", chainID, strings.ToLower(feed.ProxyAddress.Hex()))
}
