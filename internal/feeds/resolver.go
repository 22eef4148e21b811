package feeds

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"basketScope/internal/chain"
	"basketScope/internal/model"
	"basketScope/internal/registry"
)

// Directory is the persisted feed store the resolver reads from.
type Directory interface {
	LookupFeed(ctx context.Context, chainID uint64, pathKey string) (*model.PriceFeedRecord, error)
}

// Resolver looks up oracle feed records and reads their latest prices.
// Both operations report misses and read failures as nil, never as an
// error: callers treat "no reliable price" uniformly.
type Resolver struct {
	dir    Directory
	pools  chain.CallerRegistry
	logger *zap.Logger
}

func NewResolver(dir Directory, pools chain.CallerRegistry, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{dir: dir, pools: pools, logger: logger}
}

// ResolveFeed returns the feed record for the symbol's "{symbol}-usd" path
// key, requiring a non-zero proxy address and a status other than
// deprecated. Lookup failures are logged and treated as a miss.
func (r *Resolver) ResolveFeed(ctx context.Context, chainID uint64, symbol string) *model.PriceFeedRecord {
	pathKey := strings.ToLower(symbol) + "-usd"

	record, err := r.dir.LookupFeed(ctx, chainID, pathKey)
	if err != nil {
		r.logger.Warn("feed lookup failed",
			zap.Uint64("chain_id", chainID),
			zap.String("path_key", pathKey),
			zap.Error(err),
		)
		return nil
	}
	if record == nil {
		return nil
	}
	if record.ProxyAddress == (common.Address{}) || record.Status == model.FeedStatusDeprecated {
		return nil
	}
	return record
}

// ResolveFeedWithWrapFallback resolves the symbol, retrying exactly once
// with the wrap prefix stripped when the first lookup misses (WBTC -> BTC).
func (r *Resolver) ResolveFeedWithWrapFallback(ctx context.Context, chainID uint64, symbol string) *model.PriceFeedRecord {
	if record := r.ResolveFeed(ctx, chainID, symbol); record != nil {
		return record
	}
	upper := strings.ToUpper(symbol)
	if len(symbol) > 1 && strings.HasPrefix(upper, registry.WrapPrefix) {
		return r.ResolveFeed(ctx, chainID, symbol[1:])
	}
	return nil
}

// LatestPrice reads the feed's most recent round and rescales the answer by
// the feed's declared decimal count. Read failures and non-positive answers
// yield nil.
func (r *Resolver) LatestPrice(ctx context.Context, chainID uint64, feed model.PriceFeedRecord) *model.PriceQuote {
	caller, ok := r.pools.Caller(chainID)
	if !ok {
		r.logger.Warn("no rpc pool for chain", zap.Uint64("chain_id", chainID))
		return nil
	}

	parsed, err := aggregatorABIInstance()
	if err != nil {
		r.logger.Error("parse aggregator abi", zap.Error(err))
		return nil
	}

	data, err := parsed.Pack("latestRoundData")
	if err != nil {
		r.logger.Error("pack latestRoundData", zap.Error(err))
		return nil
	}

	proxy := feed.ProxyAddress
	msg := ethereum.CallMsg{To: &proxy, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		r.logger.Debug("latestRoundData call failed",
			zap.String("feed", proxy.Hex()),
			zap.Error(err),
		)
		return nil
	}

	values, err := parsed.Unpack("latestRoundData", resp)
	if err != nil || len(values) < 2 {
		r.logger.Debug("latestRoundData unpack failed", zap.String("feed", proxy.Hex()), zap.Error(err))
		return nil
	}
	answer, ok := values[1].(*big.Int)
	if !ok || answer.Sign() <= 0 {
		return nil
	}

	return &model.PriceQuote{
		Value:    decimal.NewFromBigInt(answer, -int32(feed.Decimals)),
		Decimals: feed.Decimals,
	}
}
