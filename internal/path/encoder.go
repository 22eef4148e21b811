// Package path serializes discovered routes into the two supported on-chain
// encodings. Encoding is pure: identical inputs always produce identical
// bytes.
package path

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"basketScope/internal/model"
)

var (
	addressSliceArgs abi.Arguments
	addressSliceOnce sync.Once
	addressSliceErr  error
)

func addressSliceArguments() (abi.Arguments, error) {
	addressSliceOnce.Do(func() {
		typ, err := abi.NewType("address[]", "", nil)
		if err != nil {
			addressSliceErr = err
			return
		}
		addressSliceArgs = abi.Arguments{{Type: typ}}
	})
	return addressSliceArgs, addressSliceErr
}

// EncodeV2Route encodes a route as its forward address sequence and the
// exact mirrored reverse for the withdraw direction.
func EncodeV2Route(route []common.Address) (model.SwapPath, model.SwapPath, error) {
	if len(route) < 2 {
		return model.SwapPath{}, model.SwapPath{}, fmt.Errorf("route needs at least 2 addresses, got %d", len(route))
	}

	reversed := make([]common.Address, len(route))
	for i, addr := range route {
		reversed[len(route)-1-i] = addr
	}

	deposit, err := v2Path(route)
	if err != nil {
		return model.SwapPath{}, model.SwapPath{}, err
	}
	withdraw, err := v2Path(reversed)
	if err != nil {
		return model.SwapPath{}, model.SwapPath{}, err
	}
	return deposit, withdraw, nil
}

func v2Path(route []common.Address) (model.SwapPath, error) {
	args, err := addressSliceArguments()
	if err != nil {
		return model.SwapPath{}, fmt.Errorf("address[] type: %w", err)
	}
	encoded, err := args.Pack(route)
	if err != nil {
		return model.SwapPath{}, fmt.Errorf("pack route: %w", err)
	}
	addresses := make([]common.Address, len(route))
	copy(addresses, route)
	return model.SwapPath{
		Kind: model.PathKindV2,
		V2:   &model.V2Path{Encoded: encoded, Addresses: addresses},
	}, nil
}

// EncodeV3Pool encodes a direct pool as the packed tokenIn|fee|tokenOut byte
// sequence; the withdraw direction is the token-swapped mirror at the same
// fee tier.
func EncodeV3Pool(tokenIn, tokenOut common.Address, feeTier uint32) (model.SwapPath, model.SwapPath) {
	return v3Path(tokenIn, tokenOut, feeTier), v3Path(tokenOut, tokenIn, feeTier)
}

func v3Path(token0, token1 common.Address, feeTier uint32) model.SwapPath {
	packed := make([]byte, 0, 2*common.AddressLength+3)
	packed = append(packed, token0.Bytes()...)
	packed = append(packed, byte(feeTier>>16), byte(feeTier>>8), byte(feeTier))
	packed = append(packed, token1.Bytes()...)
	return model.SwapPath{
		Kind: model.PathKindV3,
		V3:   &model.V3Path{Encoded: packed, Token0: token0, Token1: token1, FeeTier: feeTier},
	}
}

// PlaceholderV2 builds the shape-correct all-zero-address V2 path pair used
// for the deposit-token placeholder entry.
func PlaceholderV2() (model.SwapPath, model.SwapPath, error) {
	zero := []common.Address{{}, {}}
	return EncodeV2Route(zero)
}

// PlaceholderV3 builds the all-zero-address, zero-fee V3 path pair.
func PlaceholderV3() (model.SwapPath, model.SwapPath) {
	return EncodeV3Pool(common.Address{}, common.Address{}, 0)
}
