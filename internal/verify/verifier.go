// Package verify resolves a proposed fund basket into executable swap paths:
// per-token pricing-mode discovery, basket-wide common-mode arbitration, and
// final path resolution under the chosen mode.
package verify

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"basketScope/internal/model"
	"basketScope/internal/path"
	"basketScope/internal/registry"
)

// MetadataReader reads an ERC-20 token's symbol and decimals.
type MetadataReader interface {
	TokenMetadata(ctx context.Context, chainID uint64, token common.Address) (model.TokenMetadata, error)
}

// FeedSource resolves oracle feed records and their latest prices. Both
// operations report "no reliable price" as nil.
type FeedSource interface {
	ResolveFeedWithWrapFallback(ctx context.Context, chainID uint64, symbol string) *model.PriceFeedRecord
	LatestPrice(ctx context.Context, chainID uint64, feed model.PriceFeedRecord) *model.PriceQuote
}

// V2Finder searches for a V2 route between two tokens.
type V2Finder interface {
	FindRoute(ctx context.Context, chainID uint64, tokenA, tokenB common.Address, decimalsA, decimalsB uint8, priceA, priceB *decimal.Decimal) (model.V2RouteResult, error)
}

// V3Finder scans fee tiers for a direct V3 pool between two tokens.
type V3Finder interface {
	FindBestPool(ctx context.Context, chainID uint64, tokenA, tokenB common.Address, decimalsA, decimalsB uint8, priceA, priceB *decimal.Decimal) (model.V3PoolResult, error)
}

// weightTolerance is the allowed deviation of the basket weight sum from 100.
var (
	weightTolerance = decimal.NewFromFloat(0.01)
	weightTotal     = decimal.NewFromInt(100)
)

// Verifier drives basket verification. Each call is computed fresh from the
// request plus external state; nothing is shared between requests.
type Verifier struct {
	meta            MetadataReader
	feeds           FeedSource
	v2              V2Finder
	v3              V3Finder
	minLiquidityUSD decimal.Decimal
	logger          *zap.Logger
}

func NewVerifier(meta MetadataReader, feeds FeedSource, v2 V2Finder, v3 V3Finder, minLiquidityUSD decimal.Decimal, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		meta:            meta,
		feeds:           feeds,
		v2:              v2,
		v3:              v3,
		minLiquidityUSD: minLiquidityUSD,
		logger:          logger,
	}
}

// candidate is one non-deposit component after Phase 1 discovery.
type candidate struct {
	meta      model.TokenMetadata
	feed      *model.PriceFeedRecord
	price     *decimal.Decimal
	supported model.ModeSet
}

// Verify runs the three-phase resolution and returns exactly one result
// variant. Components are processed strictly in request order; the first
// failure short-circuits.
func (v *Verifier) Verify(ctx context.Context, req model.VerifyRequest) (result model.VerifyResult) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("verify panicked", zap.Any("panic", r))
			result = model.Failure(internalError(fmt.Errorf("unexpected failure: %v", r)))
		}
	}()

	if verr := validateRequest(req); verr != nil {
		return model.Failure(verr)
	}
	info, _ := registry.Chain(req.ChainID)

	depositMeta, err := v.meta.TokenMetadata(ctx, req.ChainID, req.DepositToken)
	if err != nil {
		return model.Failure(invalidToken(req.DepositToken, "deposit token metadata unavailable: %v", err))
	}

	// Deposit-side reference price, used to value liquidity when the target
	// token's own feed is missing. Resolution failures are not errors here.
	var depositPrice *decimal.Decimal
	if feed := v.feeds.ResolveFeedWithWrapFallback(ctx, req.ChainID, depositMeta.Symbol); feed != nil {
		if quote := v.feeds.LatestPrice(ctx, req.ChainID, *feed); quote != nil {
			price := quote.Value
			depositPrice = &price
		}
	}

	// Phase 1: per-token candidate discovery.
	depositIncluded := false
	candidates := make([]*candidate, 0, len(req.Components))
	for _, comp := range req.Components {
		if comp.Token == req.DepositToken {
			depositIncluded = true
			continue
		}
		cand, verr := v.discover(ctx, req.ChainID, req.DepositToken, depositMeta, depositPrice, comp.Token)
		if verr != nil {
			return model.Failure(verr)
		}
		candidates = append(candidates, cand)
	}

	// Phase 2: common-mode selection.
	sets := make([]model.ModeSet, len(candidates))
	for i, cand := range candidates {
		sets[i] = cand.supported
	}
	mode, ok := ChooseCommonMode(sets)
	if !ok {
		return model.Failure(noPoolFound("", common.Address{}, "no common pricing mode across basket components"))
	}
	v.logger.Debug("common mode selected",
		zap.Uint64("chain_id", req.ChainID),
		zap.Stringer("mode", mode),
		zap.Int("components", len(candidates)),
	)

	// Phase 3: final resolution under the fixed mode.
	components := make([]model.ComponentVerification, 0, len(candidates)+1)
	for _, cand := range candidates {
		comp, verr := v.resolveFinal(ctx, req.ChainID, req.DepositToken, depositMeta, depositPrice, cand, mode)
		if verr != nil {
			return model.Failure(verr)
		}
		components = append(components, comp)
	}
	if depositIncluded {
		comp, verr := v.depositPlaceholder(ctx, req.ChainID, depositMeta, mode)
		if verr != nil {
			return model.Failure(verr)
		}
		components = append(components, comp)
	}

	return model.Success(info.FundFactory, components)
}

func validateRequest(req model.VerifyRequest) *model.VerifyError {
	if len(req.Components) == 0 {
		return invalidInput("components must not be empty")
	}
	if req.DepositToken == (common.Address{}) {
		return invalidInput("deposit token is required")
	}
	if _, ok := registry.Chain(req.ChainID); !ok {
		return invalidInput("unsupported chain id %d", req.ChainID)
	}

	sum := decimal.Zero
	for _, comp := range req.Components {
		if comp.Token == (common.Address{}) {
			return invalidInput("component token address is required")
		}
		if comp.Weight.Sign() <= 0 {
			return invalidToken(comp.Token, "component weight must be positive")
		}
		sum = sum.Add(comp.Weight)
	}
	if sum.Sub(weightTotal).Abs().GreaterThan(weightTolerance) {
		return invalidInput("component weights sum to %s, expected 100", sum.String())
	}
	return nil
}

// discover computes the set of pricing modes one target token supports.
// Feed-gated modes require a resolvable feed and price; DEX-only modes are
// attempted regardless.
func (v *Verifier) discover(
	ctx context.Context,
	chainID uint64,
	depositToken common.Address,
	depositMeta model.TokenMetadata,
	depositPrice *decimal.Decimal,
	target common.Address,
) (*candidate, *model.VerifyError) {
	meta, err := v.meta.TokenMetadata(ctx, chainID, target)
	if err != nil {
		return nil, invalidToken(target, "token metadata unavailable: %v", err)
	}

	cand := &candidate{meta: meta}
	cand.feed = v.feeds.ResolveFeedWithWrapFallback(ctx, chainID, meta.Symbol)
	if cand.feed != nil {
		if quote := v.feeds.LatestPrice(ctx, chainID, *cand.feed); quote != nil {
			price := quote.Value
			cand.price = &price
		}
	}

	belowSeen := false

	if cand.price != nil {
		v2Route, err := v.v2.FindRoute(ctx, chainID, depositToken, target, depositMeta.Decimals, meta.Decimals, depositPrice, cand.price)
		if err != nil {
			return nil, internalError(err)
		}
		if v2Route.Exists {
			cand.supported = cand.supported.Add(model.ModeV2PlusFeed)
		} else if v2Route.BelowThreshold {
			belowSeen = true
		}

		v3Pool, err := v.v3.FindBestPool(ctx, chainID, depositToken, target, depositMeta.Decimals, meta.Decimals, depositPrice, cand.price)
		if err != nil {
			return nil, internalError(err)
		}
		if v3Pool.Exists {
			cand.supported = cand.supported.Add(model.ModeV3PlusFeed)
		} else if v3Pool.BelowThreshold {
			belowSeen = true
		}
	}

	v2Route, err := v.v2.FindRoute(ctx, chainID, depositToken, target, depositMeta.Decimals, meta.Decimals, nil, nil)
	if err != nil {
		return nil, internalError(err)
	}
	if v2Route.Exists {
		cand.supported = cand.supported.Add(model.ModeV2PlusV2)
	} else if v2Route.BelowThreshold {
		belowSeen = true
	}

	v3Pool, err := v.v3.FindBestPool(ctx, chainID, depositToken, target, depositMeta.Decimals, meta.Decimals, nil, nil)
	if err != nil {
		return nil, internalError(err)
	}
	if v3Pool.Exists {
		cand.supported = cand.supported.Add(model.ModeV3PlusV3)
	} else if v3Pool.BelowThreshold {
		belowSeen = true
	}

	if cand.supported.Empty() {
		if belowSeen {
			return nil, insufficientLiquidity(meta.Symbol, meta.Address, v.minLiquidityUSD)
		}
		return nil, noPoolFound(meta.Symbol, meta.Address, "no route or pool found for %s", meta.Symbol)
	}
	return cand, nil
}

// resolveFinal re-derives the route or pool for the chosen mode and encodes
// the swap paths. Rediscovery is intentional: against unchanged chain state
// it reproduces the Phase 1 outcome.
func (v *Verifier) resolveFinal(
	ctx context.Context,
	chainID uint64,
	depositToken common.Address,
	depositMeta model.TokenMetadata,
	depositPrice *decimal.Decimal,
	cand *candidate,
	mode model.PricingMode,
) (model.ComponentVerification, *model.VerifyError) {
	var priceA, priceB *decimal.Decimal
	var feedAddress *common.Address
	if mode.UsesFeed() {
		priceA, priceB = depositPrice, cand.price
		if cand.feed != nil {
			proxy := cand.feed.ProxyAddress
			feedAddress = &proxy
		}
	}

	comp := model.ComponentVerification{
		TokenSymbol:  cand.meta.Symbol,
		TokenAddress: cand.meta.Address,
		Decimals:     cand.meta.Decimals,
		PricingMode:  mode,
		FeedAddress:  feedAddress,
	}

	if mode.UsesV2() {
		route, err := v.v2.FindRoute(ctx, chainID, depositToken, cand.meta.Address, depositMeta.Decimals, cand.meta.Decimals, priceA, priceB)
		if err != nil {
			return model.ComponentVerification{}, internalError(err)
		}
		if !route.Exists {
			if route.BelowThreshold {
				return model.ComponentVerification{}, insufficientLiquidity(cand.meta.Symbol, cand.meta.Address, v.minLiquidityUSD)
			}
			return model.ComponentVerification{}, noPoolFound(cand.meta.Symbol, cand.meta.Address, "no route found for %s under mode %s", cand.meta.Symbol, mode)
		}
		deposit, withdraw, encErr := path.EncodeV2Route(route.Hops)
		if encErr != nil {
			return model.ComponentVerification{}, internalError(encErr)
		}
		comp.DepositPath = deposit
		comp.WithdrawPath = withdraw
		comp.LiquidityUSD = route.LiquidityUSD
		return comp, nil
	}

	pool, err := v.v3.FindBestPool(ctx, chainID, depositToken, cand.meta.Address, depositMeta.Decimals, cand.meta.Decimals, priceA, priceB)
	if err != nil {
		return model.ComponentVerification{}, internalError(err)
	}
	if !pool.Exists {
		if pool.BelowThreshold {
			return model.ComponentVerification{}, insufficientLiquidity(cand.meta.Symbol, cand.meta.Address, v.minLiquidityUSD)
		}
		return model.ComponentVerification{}, noPoolFound(cand.meta.Symbol, cand.meta.Address, "no pool found for %s under mode %s", cand.meta.Symbol, mode)
	}
	deposit, withdraw := path.EncodeV3Pool(depositToken, cand.meta.Address, pool.FeeTier)
	comp.DepositPath = deposit
	comp.WithdrawPath = withdraw
	comp.LiquidityUSD = pool.LiquidityUSD
	return comp, nil
}

// depositPlaceholder synthesizes the entry for a basket that contains its
// own deposit token: a shape-correct all-zero path and the liquidity
// sentinel, gated on the deposit token having a resolvable feed.
func (v *Verifier) depositPlaceholder(
	ctx context.Context,
	chainID uint64,
	depositMeta model.TokenMetadata,
	mode model.PricingMode,
) (model.ComponentVerification, *model.VerifyError) {
	feed := v.feeds.ResolveFeedWithWrapFallback(ctx, chainID, depositMeta.Symbol)
	if feed == nil {
		return model.ComponentVerification{}, noPoolFound(depositMeta.Symbol, depositMeta.Address, "no price feed for deposit token %s", depositMeta.Symbol)
	}
	proxy := feed.ProxyAddress

	var deposit, withdraw model.SwapPath
	if mode.UsesV2() {
		var err error
		deposit, withdraw, err = path.PlaceholderV2()
		if err != nil {
			return model.ComponentVerification{}, internalError(err)
		}
	} else {
		deposit, withdraw = path.PlaceholderV3()
	}

	return model.ComponentVerification{
		TokenSymbol:  depositMeta.Symbol,
		TokenAddress: depositMeta.Address,
		Decimals:     depositMeta.Decimals,
		PricingMode:  mode,
		FeedAddress:  &proxy,
		DepositPath:  deposit,
		WithdrawPath: withdraw,
		LiquidityUSD: model.LiquidityNotApplicable,
	}, nil
}
