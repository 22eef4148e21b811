package dex

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"basketScope/internal/model"
	"basketScope/internal/registry"
)

// V3PoolFinder scans the fixed fee tiers for a direct pool between two
// tokens. Multi-hop V3 routing is not supported.
type V3PoolFinder struct {
	graph           PoolGraph
	minLiquidityUSD decimal.Decimal
	logger          *zap.Logger
}

func NewV3PoolFinder(graph PoolGraph, minLiquidityUSD decimal.Decimal, logger *zap.Logger) *V3PoolFinder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &V3PoolFinder{graph: graph, minLiquidityUSD: minLiquidityUSD, logger: logger}
}

// FindBestPool returns the fee tier with the greatest USD liquidity that
// meets the threshold. When pools exist but none qualifies, the result
// carries BelowThreshold and the best liquidity seen.
func (f *V3PoolFinder) FindBestPool(
	ctx context.Context,
	chainID uint64,
	tokenA, tokenB common.Address,
	decimalsA, decimalsB uint8,
	priceA, priceB *decimal.Decimal,
) (model.V3PoolResult, error) {
	if _, ok := registry.Chain(chainID); !ok {
		return model.V3PoolResult{}, fmt.Errorf("unsupported chain %d", chainID)
	}

	prices := RefPrices{TokenA: tokenA, PriceA: priceA, TokenB: tokenB, PriceB: priceB}

	var (
		best      model.V3PoolResult
		poolSeen  bool
		bestBelow decimal.Decimal
	)
	for _, feeTier := range registry.V3FeeTiers {
		exists, reserveA, reserveB, err := f.graph.V3Pool(ctx, chainID, tokenA, tokenB, feeTier)
		if err != nil {
			return model.V3PoolResult{}, err
		}
		if !exists {
			continue
		}
		poolSeen = true

		liquidity, ok := poolValueUSD(chainID, tokenA, tokenB, decimalsA, decimalsB, reserveA, reserveB, prices)
		if !ok {
			continue
		}
		if liquidity.LessThan(f.minLiquidityUSD) {
			if liquidity.GreaterThan(bestBelow) {
				bestBelow = liquidity
			}
			continue
		}
		if !best.Exists || liquidity.GreaterThan(best.LiquidityUSD) {
			best = model.V3PoolResult{
				Exists:       true,
				FeeTier:      feeTier,
				LiquidityUSD: liquidity,
				DirectPool:   true,
			}
		}
	}

	if best.Exists {
		f.logger.Debug("v3 pool selected",
			zap.Uint64("chain_id", chainID),
			zap.Uint32("fee_tier", best.FeeTier),
			zap.String("liquidity_usd", best.LiquidityUSD.String()),
		)
		return best, nil
	}
	if poolSeen {
		return model.V3PoolResult{BelowThreshold: true, LiquidityUSD: bestBelow}, nil
	}
	return model.V3PoolResult{}, nil
}
