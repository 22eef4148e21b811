package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// V2RouteResult is the outcome of a V2 route search between two tokens.
// When Exists is false and BelowThreshold is true, a route was found but its
// valued liquidity missed the configured minimum; LiquidityUSD then carries
// the best value seen so callers can report it.
type V2RouteResult struct {
	Exists         bool
	Hops           []common.Address
	LiquidityUSD   decimal.Decimal
	BelowThreshold bool
}

// V3PoolResult is the outcome of a direct V3 pool scan across fee tiers.
type V3PoolResult struct {
	Exists         bool
	FeeTier        uint32
	LiquidityUSD   decimal.Decimal
	DirectPool     bool
	BelowThreshold bool
}
