package token

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"basketScope/internal/chain"
	"basketScope/internal/model"
)

// Provider reads ERC-20 symbol and decimals from chain state. Reads are
// fresh per call; no retries happen at this layer.
type Provider struct {
	pools  chain.CallerRegistry
	logger *zap.Logger
}

func NewProvider(pools chain.CallerRegistry, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{pools: pools, logger: logger}
}

// TokenMetadata returns the token's symbol and decimal count. It fails when
// either read errors (non-existent contract, non-ERC-20 contract, transient
// RPC failure).
func (p *Provider) TokenMetadata(ctx context.Context, chainID uint64, token common.Address) (model.TokenMetadata, error) {
	caller, ok := p.pools.Caller(chainID)
	if !ok {
		return model.TokenMetadata{}, fmt.Errorf("no rpc pool for chain %d", chainID)
	}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return model.TokenMetadata{}, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return model.TokenMetadata{}, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &token, Data: data}
		resp, err := caller.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		return values, nil
	}

	meta := model.TokenMetadata{Address: token}

	values, err := call("decimals", stringABI)
	if err != nil {
		return model.TokenMetadata{}, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return model.TokenMetadata{}, fmt.Errorf("decimals: %w", err)
	}
	meta.Decimals = decimals

	if values, err := call("symbol", stringABI); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := call("symbol", bytes32ABI); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else {
		p.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
		return model.TokenMetadata{}, err
	}
	if meta.Symbol == "" {
		return model.TokenMetadata{}, fmt.Errorf("empty symbol for %s", token.Hex())
	}

	return meta, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
