package feeds

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"basketScope/internal/chain"
	"basketScope/internal/model"
)

type fakeDirectory struct {
	records map[string]*model.PriceFeedRecord
	err     error
}

func (d *fakeDirectory) LookupFeed(_ context.Context, _ uint64, pathKey string) (*model.PriceFeedRecord, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.records[pathKey], nil
}

type fakeCaller struct {
	resp []byte
	err  error
}

func (c *fakeCaller) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return c.resp, c.err
}

type fakeCallers map[uint64]chain.ContractCaller

func (f fakeCallers) Caller(chainID uint64) (chain.ContractCaller, bool) {
	caller, ok := f[chainID]
	return caller, ok
}

var testProxy = common.HexToAddress("0x00000000000000000000000000000000000000f1")

func activeRecord(pathKey string) *model.PriceFeedRecord {
	return &model.PriceFeedRecord{
		ChainID:      56,
		PathKey:      pathKey,
		ProxyAddress: testProxy,
		Decimals:     8,
		Status:       "active",
	}
}

func TestResolveFeed(t *testing.T) {
	dir := &fakeDirectory{records: map[string]*model.PriceFeedRecord{
		"aaa-usd": activeRecord("aaa-usd"),
	}}
	r := NewResolver(dir, fakeCallers{}, nil)

	if record := r.ResolveFeed(context.Background(), 56, "AAA"); record == nil {
		t.Fatalf("expected a feed record")
	}
	if record := r.ResolveFeed(context.Background(), 56, "ZZZ"); record != nil {
		t.Fatalf("expected a miss, got %+v", record)
	}
}

func TestResolveFeedFiltersUnusableRecords(t *testing.T) {
	deprecated := activeRecord("bbb-usd")
	deprecated.Status = model.FeedStatusDeprecated
	zeroProxy := activeRecord("ccc-usd")
	zeroProxy.ProxyAddress = common.Address{}

	dir := &fakeDirectory{records: map[string]*model.PriceFeedRecord{
		"bbb-usd": deprecated,
		"ccc-usd": zeroProxy,
	}}
	r := NewResolver(dir, fakeCallers{}, nil)

	if record := r.ResolveFeed(context.Background(), 56, "BBB"); record != nil {
		t.Fatalf("deprecated feed must be filtered, got %+v", record)
	}
	if record := r.ResolveFeed(context.Background(), 56, "CCC"); record != nil {
		t.Fatalf("zero-proxy feed must be filtered, got %+v", record)
	}
}

func TestResolveFeedLookupErrorIsAMiss(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("connection refused")}
	r := NewResolver(dir, fakeCallers{}, nil)

	if record := r.ResolveFeed(context.Background(), 56, "AAA"); record != nil {
		t.Fatalf("lookup error must read as a miss, got %+v", record)
	}
}

func TestResolveFeedWithWrapFallback(t *testing.T) {
	dir := &fakeDirectory{records: map[string]*model.PriceFeedRecord{
		"btc-usd": activeRecord("btc-usd"),
	}}
	r := NewResolver(dir, fakeCallers{}, nil)
	ctx := context.Background()

	if record := r.ResolveFeedWithWrapFallback(ctx, 56, "WBTC"); record == nil {
		t.Fatalf("expected the stripped-prefix fallback to hit")
	}
	// The fallback strips exactly one leading W.
	if record := r.ResolveFeedWithWrapFallback(ctx, 56, "WWBTC"); record != nil {
		t.Fatalf("double prefix must not resolve, got %+v", record)
	}
	// A bare W never retries.
	if record := r.ResolveFeedWithWrapFallback(ctx, 56, "W"); record != nil {
		t.Fatalf("single-character symbol must not retry, got %+v", record)
	}
}

func packRoundData(t *testing.T, answer *big.Int) []byte {
	t.Helper()
	parsed, err := aggregatorABIInstance()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	out, err := parsed.Methods["latestRoundData"].Outputs.Pack(
		big.NewInt(1), answer, big.NewInt(1700000000), big.NewInt(1700000000), big.NewInt(1),
	)
	if err != nil {
		t.Fatalf("pack round data: %v", err)
	}
	return out
}

func TestLatestPriceRescalesAnswer(t *testing.T) {
	caller := &fakeCaller{resp: packRoundData(t, big.NewInt(250000000000))}
	r := NewResolver(&fakeDirectory{}, fakeCallers{56: caller}, nil)

	quote := r.LatestPrice(context.Background(), 56, *activeRecord("btc-usd"))
	if quote == nil {
		t.Fatalf("expected a quote")
	}
	if want := decimal.NewFromInt(2500); !quote.Value.Equal(want) {
		t.Fatalf("price = %s, want %s", quote.Value, want)
	}
	if quote.Decimals != 8 {
		t.Fatalf("decimals = %d, want 8", quote.Decimals)
	}
}

func TestLatestPriceRejectsNonPositiveAnswer(t *testing.T) {
	for _, answer := range []*big.Int{big.NewInt(0), big.NewInt(-1)} {
		caller := &fakeCaller{resp: packRoundData(t, answer)}
		r := NewResolver(&fakeDirectory{}, fakeCallers{56: caller}, nil)
		if quote := r.LatestPrice(context.Background(), 56, *activeRecord("btc-usd")); quote != nil {
			t.Fatalf("answer %s must yield nil, got %+v", answer, quote)
		}
	}
}

func TestLatestPriceSwallowsReadFailures(t *testing.T) {
	caller := &fakeCaller{err: errors.New("execution reverted")}
	r := NewResolver(&fakeDirectory{}, fakeCallers{56: caller}, nil)

	if quote := r.LatestPrice(context.Background(), 56, *activeRecord("btc-usd")); quote != nil {
		t.Fatalf("call failure must yield nil, got %+v", quote)
	}
	if quote := r.LatestPrice(context.Background(), 1, *activeRecord("btc-usd")); quote != nil {
		t.Fatalf("missing rpc pool must yield nil, got %+v", quote)
	}
}
