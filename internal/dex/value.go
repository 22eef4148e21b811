package dex

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"basketScope/internal/registry"
)

var (
	two = decimal.NewFromInt(2)
	one = decimal.NewFromInt(1)
)

// RefPrices carries the USD reference prices available to a route search:
// the deposit-side price, the target-side price, or neither. Canonical
// stables are always valued at face value.
type RefPrices struct {
	TokenA common.Address
	PriceA *decimal.Decimal
	TokenB common.Address
	PriceB *decimal.Decimal
}

// PriceOf returns the USD price for token when one is available.
func (r RefPrices) PriceOf(chainID uint64, token common.Address) (decimal.Decimal, bool) {
	if r.PriceA != nil && token == r.TokenA {
		return *r.PriceA, true
	}
	if r.PriceB != nil && token == r.TokenB {
		return *r.PriceB, true
	}
	if registry.IsStable(chainID, token) {
		return one, true
	}
	return decimal.Decimal{}, false
}

// poolValueUSD values one pool as twice the priced-side reserve. The second
// return is false when neither side can be priced; unvaluable pools never
// qualify a route.
func poolValueUSD(
	chainID uint64,
	token0, token1 common.Address,
	decimals0, decimals1 uint8,
	reserve0, reserve1 *big.Int,
	prices RefPrices,
) (decimal.Decimal, bool) {
	if price, ok := prices.PriceOf(chainID, token0); ok {
		return scaleAmount(reserve0, decimals0).Mul(price).Mul(two), true
	}
	if price, ok := prices.PriceOf(chainID, token1); ok {
		return scaleAmount(reserve1, decimals1).Mul(price).Mul(two), true
	}
	return decimal.Decimal{}, false
}

func scaleAmount(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Decimal{}
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}
