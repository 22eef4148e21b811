package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// PathKind tags the two supported on-chain path encodings.
type PathKind uint8

const (
	// PathKindV2 is an array-of-addresses route.
	PathKindV2 PathKind = iota
	// PathKindV3 is a packed token/fee byte sequence.
	PathKindV3
)

func (k PathKind) String() string {
	if k == PathKindV3 {
		return "v3"
	}
	return "v2"
}

func (k PathKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// SwapPath is a tagged union with exactly two cases: exactly one of V2 or V3
// is set, selected by Kind.
type SwapPath struct {
	Kind PathKind `json:"kind"`
	V2   *V2Path  `json:"v2,omitempty"`
	V3   *V3Path  `json:"v3,omitempty"`
}

// V2Path is an ordered address route with its ABI-encoded form.
type V2Path struct {
	Encoded   hexutil.Bytes    `json:"encoded"`
	Addresses []common.Address `json:"addresses"`
}

// V3Path is a single-hop packed path: token0 | fee | token1.
type V3Path struct {
	Encoded hexutil.Bytes  `json:"encoded"`
	Token0  common.Address `json:"token0"`
	Token1  common.Address `json:"token1"`
	FeeTier uint32         `json:"fee_tier"`
}
