package verify

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"basketScope/internal/model"
)

func invalidInput(format string, args ...interface{}) *model.VerifyError {
	return &model.VerifyError{
		Reason:  model.ReasonInvalidInput,
		Message: fmt.Sprintf(format, args...),
	}
}

func invalidToken(token common.Address, format string, args ...interface{}) *model.VerifyError {
	return &model.VerifyError{
		Reason:       model.ReasonInvalidInput,
		TokenAddress: token,
		Message:      fmt.Sprintf(format, args...),
	}
}

func noPoolFound(symbol string, token common.Address, format string, args ...interface{}) *model.VerifyError {
	return &model.VerifyError{
		Reason:       model.ReasonNoPoolFound,
		TokenSymbol:  symbol,
		TokenAddress: token,
		Message:      fmt.Sprintf(format, args...),
	}
}

func insufficientLiquidity(symbol string, token common.Address, requiredUSD decimal.Decimal) *model.VerifyError {
	required := requiredUSD
	return &model.VerifyError{
		Reason:       model.ReasonInsufficientLiquidity,
		TokenSymbol:  symbol,
		TokenAddress: token,
		Message:      fmt.Sprintf("liquidity for %s is below the required %s USD", symbol, required.String()),
		RequiredUSD:  &required,
	}
}

func internalError(err error) *model.VerifyError {
	return &model.VerifyError{
		Reason:  model.ReasonInternalError,
		Message: err.Error(),
	}
}
