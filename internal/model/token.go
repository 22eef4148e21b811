package model

import "github.com/ethereum/go-ethereum/common"

// TokenMetadata is an immutable ERC-20 snapshot taken per request. It is
// never cached across requests.
type TokenMetadata struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}
