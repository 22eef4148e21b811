package registry

import "github.com/ethereum/go-ethereum/common"

// WrapPrefix is the canonical wrapped-asset symbol prefix. Feed lookups that
// miss retry exactly once with this prefix stripped (WBTC -> BTC).
const WrapPrefix = "W"

// V3FeeTiers is the fixed set of fee tiers scanned for direct V3 pools.
var V3FeeTiers = []uint32{100, 500, 3000, 10000}

// Intermediate is a canonical routing asset on a chain.
type Intermediate struct {
	Address  common.Address
	Decimals uint8
	Stable   bool
}

// ChainInfo holds the fixed per-chain contract set.
type ChainInfo struct {
	ChainID       uint64
	V2Factory     common.Address
	V3Factory     common.Address
	FundFactory   common.Address
	Intermediates []Intermediate
}

var chains = map[uint64]ChainInfo{
	1: {
		ChainID:     1,
		V2Factory:   common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
		V3Factory:   common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		FundFactory: common.HexToAddress("0x9A6bF2a53Bc8FE96Bd9cbd1A0c2FFB0A5a3b2c11"),
		Intermediates: []Intermediate{
			// WETH
			{Address: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), Decimals: 18},
			// USDC
			{Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Decimals: 6, Stable: true},
			// USDT
			{Address: common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"), Decimals: 6, Stable: true},
		},
	},
	56: {
		ChainID:     56,
		V2Factory:   common.HexToAddress("0xcA143Ce32Fe78f1f7019d7d551a6402fC5350c73"),
		V3Factory:   common.HexToAddress("0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865"),
		FundFactory: common.HexToAddress("0x2D4e10Ee64CCF407C7F765B363348f7F62D2E06e"),
		Intermediates: []Intermediate{
			// WBNB
			{Address: common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEF60aF814a3f6F0Ee75"), Decimals: 18},
			// USDT
			{Address: common.HexToAddress("0x55d398326f99059fF775485246999027B3197955"), Decimals: 18, Stable: true},
			// BUSD
			{Address: common.HexToAddress("0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56"), Decimals: 18, Stable: true},
		},
	},
}

// Chain returns the contract set for a chain id.
func Chain(chainID uint64) (ChainInfo, bool) {
	info, ok := chains[chainID]
	return info, ok
}

// IsStable reports whether token is a canonical stable asset on the chain.
func IsStable(chainID uint64, token common.Address) bool {
	info, ok := chains[chainID]
	if !ok {
		return false
	}
	for _, inter := range info.Intermediates {
		if inter.Stable && inter.Address == token {
			return true
		}
	}
	return false
}
