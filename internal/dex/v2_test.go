package dex

import (
	"context"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	testTokenA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testTokenB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	// Canonical BSC intermediates.
	usdt = common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")
	busd = common.HexToAddress("0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56")

	testMinLiquidity = decimal.NewFromInt(10000)
)

type pairKey struct {
	x, y common.Address
}

type poolState struct {
	reserveX, reserveY *big.Int
}

type v3Key struct {
	x, y common.Address
	fee  uint32
}

type fakeGraph struct {
	pairs map[pairKey]poolState
	v3    map[v3Key]poolState
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		pairs: make(map[pairKey]poolState),
		v3:    make(map[v3Key]poolState),
	}
}

// addPair registers the pool under both query orders.
func (g *fakeGraph) addPair(x, y common.Address, reserveX, reserveY *big.Int) {
	g.pairs[pairKey{x, y}] = poolState{reserveX, reserveY}
	g.pairs[pairKey{y, x}] = poolState{reserveY, reserveX}
}

func (g *fakeGraph) addV3(x, y common.Address, fee uint32, reserveX, reserveY *big.Int) {
	g.v3[v3Key{x, y, fee}] = poolState{reserveX, reserveY}
	g.v3[v3Key{y, x, fee}] = poolState{reserveY, reserveX}
}

func (g *fakeGraph) V2Pair(_ context.Context, _ uint64, tokenX, tokenY common.Address) (bool, *big.Int, *big.Int, error) {
	state, ok := g.pairs[pairKey{tokenX, tokenY}]
	if !ok {
		return false, nil, nil, nil
	}
	return true, state.reserveX, state.reserveY, nil
}

func (g *fakeGraph) V3Pool(_ context.Context, _ uint64, tokenX, tokenY common.Address, feeTier uint32) (bool, *big.Int, *big.Int, error) {
	state, ok := g.v3[v3Key{tokenX, tokenY, feeTier}]
	if !ok {
		return false, nil, nil, nil
	}
	return true, state.reserveX, state.reserveY, nil
}

// units scales a whole-token amount to raw 18-decimal units.
func units(amount int64) *big.Int {
	exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(amount), exp)
}

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestV2FindRouteDirectWithFeedPrice(t *testing.T) {
	graph := newFakeGraph()
	graph.addPair(testTokenA, testTokenB, units(100000), units(40000))
	finder := NewV2PathFinder(graph, testMinLiquidity, nil)

	route, err := finder.FindRoute(context.Background(), 56, testTokenA, testTokenB, 18, 18, decPtr(1), decPtr(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !route.Exists {
		t.Fatalf("expected a route, got %+v", route)
	}
	if !reflect.DeepEqual(route.Hops, []common.Address{testTokenA, testTokenB}) {
		t.Fatalf("unexpected hops: %v", route.Hops)
	}
	// Twice the priced deposit-side reserve.
	if want := decimal.NewFromInt(200000); !route.LiquidityUSD.Equal(want) {
		t.Fatalf("liquidity = %s, want %s", route.LiquidityUSD, want)
	}
}

func TestV2FindRouteHopThroughStable(t *testing.T) {
	graph := newFakeGraph()
	graph.addPair(testTokenA, usdt, units(7), units(50000))
	graph.addPair(usdt, testTokenB, units(30000), units(12))
	finder := NewV2PathFinder(graph, testMinLiquidity, nil)

	route, err := finder.FindRoute(context.Background(), 56, testTokenA, testTokenB, 18, 18, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !route.Exists {
		t.Fatalf("expected a route, got %+v", route)
	}
	if !reflect.DeepEqual(route.Hops, []common.Address{testTokenA, usdt, testTokenB}) {
		t.Fatalf("unexpected hops: %v", route.Hops)
	}
	// The weaker hop bounds the route: 2 * 30000.
	if want := decimal.NewFromInt(60000); !route.LiquidityUSD.Equal(want) {
		t.Fatalf("liquidity = %s, want %s", route.LiquidityUSD, want)
	}
}

func TestV2FindRoutePrefersFewerHops(t *testing.T) {
	// Deposit side is the canonical stable, so every pool it touches is
	// valued. The direct route qualifies at 20000 USD and wins over the
	// much deeper hop route through BUSD.
	graph := newFakeGraph()
	graph.addPair(usdt, testTokenB, units(10000), units(4000))
	graph.addPair(usdt, busd, units(500000), units(500000))
	graph.addPair(busd, testTokenB, units(400000), units(12))
	finder := NewV2PathFinder(graph, testMinLiquidity, nil)

	route, err := finder.FindRoute(context.Background(), 56, usdt, testTokenB, 18, 18, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !route.Exists {
		t.Fatalf("expected a route, got %+v", route)
	}
	if len(route.Hops) != 2 {
		t.Fatalf("expected the direct route, got hops %v", route.Hops)
	}
	if want := decimal.NewFromInt(20000); !route.LiquidityUSD.Equal(want) {
		t.Fatalf("liquidity = %s, want %s", route.LiquidityUSD, want)
	}
}

func TestV2FindRouteBelowThreshold(t *testing.T) {
	graph := newFakeGraph()
	graph.addPair(testTokenA, testTokenB, units(2500), units(900))
	finder := NewV2PathFinder(graph, testMinLiquidity, nil)

	route, err := finder.FindRoute(context.Background(), 56, testTokenA, testTokenB, 18, 18, decPtr(1), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.Exists {
		t.Fatalf("route should not qualify: %+v", route)
	}
	if !route.BelowThreshold {
		t.Fatalf("expected BelowThreshold, got %+v", route)
	}
	if want := decimal.NewFromInt(5000); !route.LiquidityUSD.Equal(want) {
		t.Fatalf("best-below liquidity = %s, want %s", route.LiquidityUSD, want)
	}
}

func TestV2FindRouteUnvaluableNeverQualifies(t *testing.T) {
	// A deep pool between two unpriced, non-stable tokens cannot prove depth.
	graph := newFakeGraph()
	graph.addPair(testTokenA, testTokenB, units(1000000), units(1000000))
	finder := NewV2PathFinder(graph, testMinLiquidity, nil)

	route, err := finder.FindRoute(context.Background(), 56, testTokenA, testTokenB, 18, 18, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.Exists {
		t.Fatalf("unvaluable route must not qualify: %+v", route)
	}
	if !route.BelowThreshold {
		t.Fatalf("expected BelowThreshold for an unvaluable route, got %+v", route)
	}
}

func TestV2FindRouteNoPool(t *testing.T) {
	finder := NewV2PathFinder(newFakeGraph(), testMinLiquidity, nil)

	route, err := finder.FindRoute(context.Background(), 56, testTokenA, testTokenB, 18, 18, decPtr(1), decPtr(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.Exists || route.BelowThreshold {
		t.Fatalf("expected an empty result, got %+v", route)
	}
}

func TestV2FindRouteUnsupportedChain(t *testing.T) {
	finder := NewV2PathFinder(newFakeGraph(), testMinLiquidity, nil)

	if _, err := finder.FindRoute(context.Background(), 999, testTokenA, testTokenB, 18, 18, nil, nil); err == nil {
		t.Fatalf("expected an error for an unsupported chain")
	}
}
