package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"basketScope/internal/chain"
	"basketScope/internal/registry"
)

// PoolGraph answers pool-existence and reserve queries for both AMM designs.
// Reserves are reported in (tokenX, tokenY) order regardless of the pool's
// own token ordering.
type PoolGraph interface {
	V2Pair(ctx context.Context, chainID uint64, tokenX, tokenY common.Address) (bool, *big.Int, *big.Int, error)
	V3Pool(ctx context.Context, chainID uint64, tokenX, tokenY common.Address, feeTier uint32) (bool, *big.Int, *big.Int, error)
}

// ChainPoolGraph reads pools through factory and pair contracts.
type ChainPoolGraph struct {
	pools chain.CallerRegistry
}

func NewChainPoolGraph(pools chain.CallerRegistry) *ChainPoolGraph {
	return &ChainPoolGraph{pools: pools}
}

// V2Pair resolves the factory pair for (tokenX, tokenY) and returns its
// reserves. A zero pair address means the pool does not exist.
func (g *ChainPoolGraph) V2Pair(ctx context.Context, chainID uint64, tokenX, tokenY common.Address) (bool, *big.Int, *big.Int, error) {
	info, ok := registry.Chain(chainID)
	if !ok {
		return false, nil, nil, fmt.Errorf("unsupported chain %d", chainID)
	}
	caller, ok := g.pools.Caller(chainID)
	if !ok {
		return false, nil, nil, fmt.Errorf("no rpc pool for chain %d", chainID)
	}

	factoryABI, err := v2FactoryABIInstance()
	if err != nil {
		return false, nil, nil, fmt.Errorf("parse v2 factory abi: %w", err)
	}
	values, err := callMethod(ctx, caller, info.V2Factory, factoryABI, "getPair", tokenX, tokenY)
	if err != nil {
		return false, nil, nil, err
	}
	pair, ok := values[0].(common.Address)
	if !ok {
		return false, nil, nil, fmt.Errorf("getPair: unexpected type %T", values[0])
	}
	if pair == (common.Address{}) {
		return false, nil, nil, nil
	}

	pairABI, err := v2PairABIInstance()
	if err != nil {
		return false, nil, nil, fmt.Errorf("parse v2 pair abi: %w", err)
	}
	values, err = callMethod(ctx, caller, pair, pairABI, "getReserves")
	if err != nil {
		return false, nil, nil, err
	}
	if len(values) < 2 {
		return false, nil, nil, fmt.Errorf("getReserves: %d values", len(values))
	}
	reserve0, ok0 := values[0].(*big.Int)
	reserve1, ok1 := values[1].(*big.Int)
	if !ok0 || !ok1 {
		return false, nil, nil, fmt.Errorf("getReserves: unexpected types %T, %T", values[0], values[1])
	}

	// Pair contracts order reserves by sorted token address.
	if bytes.Compare(tokenX.Bytes(), tokenY.Bytes()) < 0 {
		return true, reserve0, reserve1, nil
	}
	return true, reserve1, reserve0, nil
}

// V3Pool resolves the factory pool for (tokenX, tokenY, feeTier) and returns
// the pool's token balances as reserves.
func (g *ChainPoolGraph) V3Pool(ctx context.Context, chainID uint64, tokenX, tokenY common.Address, feeTier uint32) (bool, *big.Int, *big.Int, error) {
	info, ok := registry.Chain(chainID)
	if !ok {
		return false, nil, nil, fmt.Errorf("unsupported chain %d", chainID)
	}
	caller, ok := g.pools.Caller(chainID)
	if !ok {
		return false, nil, nil, fmt.Errorf("no rpc pool for chain %d", chainID)
	}

	factoryABI, err := v3FactoryABIInstance()
	if err != nil {
		return false, nil, nil, fmt.Errorf("parse v3 factory abi: %w", err)
	}
	values, err := callMethod(ctx, caller, info.V3Factory, factoryABI, "getPool", tokenX, tokenY, big.NewInt(int64(feeTier)))
	if err != nil {
		return false, nil, nil, err
	}
	pool, ok := values[0].(common.Address)
	if !ok {
		return false, nil, nil, fmt.Errorf("getPool: unexpected type %T", values[0])
	}
	if pool == (common.Address{}) {
		return false, nil, nil, nil
	}

	balanceX, err := g.balanceOf(ctx, caller, tokenX, pool)
	if err != nil {
		return false, nil, nil, err
	}
	balanceY, err := g.balanceOf(ctx, caller, tokenY, pool)
	if err != nil {
		return false, nil, nil, err
	}
	return true, balanceX, balanceY, nil
}

func (g *ChainPoolGraph) balanceOf(ctx context.Context, caller chain.ContractCaller, token, owner common.Address) (*big.Int, error) {
	parsed, err := balanceOfABIInstance()
	if err != nil {
		return nil, fmt.Errorf("parse balanceOf abi: %w", err)
	}
	values, err := callMethod(ctx, caller, token, parsed, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: unexpected type %T", values[0])
	}
	return balance, nil
}

func callMethod(ctx context.Context, caller chain.ContractCaller, contract common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &contract, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: empty return", method)
	}
	return values, nil
}
