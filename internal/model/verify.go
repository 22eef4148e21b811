package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ReasonCode classifies a failed verification.
type ReasonCode string

const (
	ReasonInvalidInput          ReasonCode = "INVALID_INPUT"
	ReasonNoPoolFound           ReasonCode = "NO_POOL_FOUND"
	ReasonInsufficientLiquidity ReasonCode = "INSUFFICIENT_LIQUIDITY"
	ReasonInternalError         ReasonCode = "INTERNAL_ERROR"
)

// BasketComponent is one (target token, weight) pair of a proposed fund.
type BasketComponent struct {
	Token  common.Address  `json:"token"`
	Weight decimal.Decimal `json:"weight"`
}

// VerifyRequest is the single operation the core exposes: an ordered
// component list whose weights must sum to 100 within ±0.01.
type VerifyRequest struct {
	ChainID      uint64            `json:"chain_id"`
	DepositToken common.Address    `json:"deposit_token"`
	Components   []BasketComponent `json:"components"`
}

// LiquidityNotApplicable is the sentinel used for the synthesized
// deposit-token placeholder entry.
var LiquidityNotApplicable = decimal.NewFromInt(-1)

// ComponentVerification is the per-token outcome of a successful basket
// verification.
type ComponentVerification struct {
	TokenSymbol  string          `json:"token_symbol"`
	TokenAddress common.Address  `json:"token_address"`
	Decimals     uint8           `json:"decimals"`
	PricingMode  PricingMode     `json:"pricing_mode"`
	FeedAddress  *common.Address `json:"feed_address"`
	DepositPath  SwapPath        `json:"deposit_path"`
	WithdrawPath SwapPath        `json:"withdraw_path"`
	LiquidityUSD decimal.Decimal `json:"liquidity_usd"`
}

// VerifyError is the single error object a failed request carries.
type VerifyError struct {
	Reason       ReasonCode       `json:"reason"`
	TokenSymbol  string           `json:"token_symbol,omitempty"`
	TokenAddress common.Address   `json:"token_address,omitempty"`
	Message      string           `json:"message"`
	RequiredUSD  *decimal.Decimal `json:"required_usd,omitempty"`
}

func (e *VerifyError) Error() string {
	if e.TokenSymbol != "" {
		return string(e.Reason) + " (" + e.TokenSymbol + "): " + e.Message
	}
	return string(e.Reason) + ": " + e.Message
}

// VerifyResult has exactly one variant per request: the success fields or
// Err, never both and never a partial component list.
type VerifyResult struct {
	OK               bool
	ReadyForCreation bool
	FactoryAddress   common.Address
	Components       []ComponentVerification
	Err              *VerifyError
}

// Failure builds the error variant.
func Failure(err *VerifyError) VerifyResult {
	return VerifyResult{Err: err}
}

// Success builds the success variant.
func Success(factory common.Address, components []ComponentVerification) VerifyResult {
	return VerifyResult{
		OK:               true,
		ReadyForCreation: true,
		FactoryAddress:   factory,
		Components:       components,
	}
}
