package model

// PricingMode is a route-finding algorithm paired with a price-reference
// source.
type PricingMode uint8

const (
	ModeV2PlusFeed PricingMode = iota
	ModeV3PlusFeed
	ModeV2PlusV2
	ModeV3PlusV3
)

// ModePriority lists every mode in fixed preference order. Common-mode
// arbitration picks the first entry supported by all basket components.
var ModePriority = []PricingMode{ModeV2PlusFeed, ModeV3PlusFeed, ModeV2PlusV2, ModeV3PlusV3}

func (m PricingMode) String() string {
	switch m {
	case ModeV2PlusFeed:
		return "V2_PLUS_FEED"
	case ModeV3PlusFeed:
		return "V3_PLUS_FEED"
	case ModeV2PlusV2:
		return "V2_PLUS_V2"
	case ModeV3PlusV3:
		return "V3_PLUS_V3"
	default:
		return "UNKNOWN"
	}
}

// UsesFeed reports whether the mode prices liquidity with an oracle feed.
func (m PricingMode) UsesFeed() bool {
	return m == ModeV2PlusFeed || m == ModeV3PlusFeed
}

// UsesV2 reports whether the mode routes through V2-style pairs.
func (m PricingMode) UsesV2() bool {
	return m == ModeV2PlusFeed || m == ModeV2PlusV2
}

func (m PricingMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ModeSet is a set of pricing modes supported by one token.
type ModeSet uint8

func (s ModeSet) Contains(m PricingMode) bool {
	return s&(1<<m) != 0
}

func (s ModeSet) Add(m PricingMode) ModeSet {
	return s | (1 << m)
}

func (s ModeSet) Intersect(other ModeSet) ModeSet {
	return s & other
}

func (s ModeSet) Empty() bool {
	return s == 0
}
