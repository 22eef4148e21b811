package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// FeedStatusDeprecated marks a feed record that must not pass lookups.
const FeedStatusDeprecated = "deprecated"

// PriceFeedRecord is a persisted oracle feed entry, keyed by chain id and a
// normalized "{symbol}-usd" path key. The directory is populated by the
// ingestion job; resolution only reads it.
type PriceFeedRecord struct {
	ChainID      uint64         `json:"chain_id"`
	PathKey      string         `json:"path_key"`
	ProxyAddress common.Address `json:"proxy_address"`
	Pair         string         `json:"pair"`
	Decimals     uint8          `json:"decimals"`
	Status       string         `json:"status"`
}

// PriceQuote is a feed's latest reported value, rescaled by the feed's
// decimal count.
type PriceQuote struct {
	Value    decimal.Decimal `json:"value"`
	Decimals uint8           `json:"decimals"`
}
