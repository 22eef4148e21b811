package dex

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"basketScope/internal/model"
	"basketScope/internal/registry"
)

// V2PathFinder searches a bounded routing graph for an existing V2 route
// between two tokens: the direct pair plus single hops through the chain's
// canonical intermediates. A multi-hop route is valued by its weakest hop.
type V2PathFinder struct {
	graph           PoolGraph
	minLiquidityUSD decimal.Decimal
	logger          *zap.Logger
}

func NewV2PathFinder(graph PoolGraph, minLiquidityUSD decimal.Decimal, logger *zap.Logger) *V2PathFinder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &V2PathFinder{graph: graph, minLiquidityUSD: minLiquidityUSD, logger: logger}
}

type scoredRoute struct {
	hops         []common.Address
	liquidityUSD decimal.Decimal
}

// FindRoute returns the best route from tokenA to tokenB. Among routes
// meeting the liquidity threshold the fewest hops win, then the highest
// liquidity; candidate order is fixed, so the choice is deterministic.
// When routes exist but none qualifies, the result carries BelowThreshold
// and the best liquidity seen.
func (f *V2PathFinder) FindRoute(
	ctx context.Context,
	chainID uint64,
	tokenA, tokenB common.Address,
	decimalsA, decimalsB uint8,
	priceA, priceB *decimal.Decimal,
) (model.V2RouteResult, error) {
	info, ok := registry.Chain(chainID)
	if !ok {
		return model.V2RouteResult{}, fmt.Errorf("unsupported chain %d", chainID)
	}

	prices := RefPrices{TokenA: tokenA, PriceA: priceA, TokenB: tokenB, PriceB: priceB}

	decimalsOf := map[common.Address]uint8{tokenA: decimalsA, tokenB: decimalsB}
	for _, inter := range info.Intermediates {
		if _, seen := decimalsOf[inter.Address]; !seen {
			decimalsOf[inter.Address] = inter.Decimals
		}
	}

	candidates := [][]common.Address{{tokenA, tokenB}}
	for _, inter := range info.Intermediates {
		if inter.Address == tokenA || inter.Address == tokenB {
			continue
		}
		candidates = append(candidates, []common.Address{tokenA, inter.Address, tokenB})
	}

	var (
		qualifying []scoredRoute
		routeSeen  bool
		belowSeen  bool
		bestBelow  decimal.Decimal
	)
	for _, route := range candidates {
		liquidity, exists, valued, err := f.routeValue(ctx, chainID, route, decimalsOf, prices)
		if err != nil {
			return model.V2RouteResult{}, err
		}
		if !exists {
			continue
		}
		routeSeen = true
		if !valued {
			// No USD reference for any hop: cannot prove depth, so the
			// route cannot qualify.
			belowSeen = true
			continue
		}
		if liquidity.GreaterThanOrEqual(f.minLiquidityUSD) {
			qualifying = append(qualifying, scoredRoute{hops: route, liquidityUSD: liquidity})
		} else {
			belowSeen = true
			if liquidity.GreaterThan(bestBelow) {
				bestBelow = liquidity
			}
		}
	}

	if len(qualifying) > 0 {
		sort.SliceStable(qualifying, func(i, j int) bool {
			if len(qualifying[i].hops) != len(qualifying[j].hops) {
				return len(qualifying[i].hops) < len(qualifying[j].hops)
			}
			return qualifying[i].liquidityUSD.GreaterThan(qualifying[j].liquidityUSD)
		})
		best := qualifying[0]
		f.logger.Debug("v2 route selected",
			zap.Uint64("chain_id", chainID),
			zap.Int("hops", len(best.hops)),
			zap.String("liquidity_usd", best.liquidityUSD.String()),
		)
		return model.V2RouteResult{Exists: true, Hops: best.hops, LiquidityUSD: best.liquidityUSD}, nil
	}
	if routeSeen || belowSeen {
		return model.V2RouteResult{BelowThreshold: true, LiquidityUSD: bestBelow}, nil
	}
	return model.V2RouteResult{}, nil
}

// routeValue checks every hop pool and returns the minimum hop value. valued
// is false when any hop cannot be priced in USD.
func (f *V2PathFinder) routeValue(
	ctx context.Context,
	chainID uint64,
	route []common.Address,
	decimalsOf map[common.Address]uint8,
	prices RefPrices,
) (decimal.Decimal, bool, bool, error) {
	var (
		minValue decimal.Decimal
		valued   = true
		first    = true
	)
	for i := 0; i < len(route)-1; i++ {
		hopX, hopY := route[i], route[i+1]
		exists, reserveX, reserveY, err := f.graph.V2Pair(ctx, chainID, hopX, hopY)
		if err != nil {
			return decimal.Decimal{}, false, false, err
		}
		if !exists {
			return decimal.Decimal{}, false, false, nil
		}
		value, ok := poolValueUSD(chainID, hopX, hopY, decimalsOf[hopX], decimalsOf[hopY], reserveX, reserveY, prices)
		if !ok {
			valued = false
			continue
		}
		if first || value.LessThan(minValue) {
			minValue = value
			first = false
		}
	}
	if !valued || first {
		return decimal.Decimal{}, true, false, nil
	}
	return minValue, true, true, nil
}
