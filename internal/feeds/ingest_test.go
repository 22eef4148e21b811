package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"basketScope/internal/model"
)

type fakeStore struct {
	upserted []model.PriceFeedRecord
	err      error
}

func (s *fakeStore) UpsertFeeds(_ context.Context, feeds []model.PriceFeedRecord) error {
	if s.err != nil {
		return s.err
	}
	s.upserted = append(s.upserted, feeds...)
	return nil
}

const directoryJSON = `[
  {"path": "BTC-USD", "proxyAddress": "0x0000000000000000000000000000000000000b7c", "name": "BTC / USD", "decimals": 8, "feedCategory": "verified"},
  {"path": "eth-usd", "proxyAddress": "0x0000000000000000000000000000000000000e74", "name": "ETH / USD", "decimals": 8, "feedCategory": "deprecating"},
  {"path": "eur-chf", "proxyAddress": "0x0000000000000000000000000000000000000123", "name": "EUR / CHF", "decimals": 8, "feedCategory": "verified"},
  {"path": "doge-usd", "proxyAddress": "not-an-address", "name": "DOGE / USD", "decimals": 8, "feedCategory": "verified"}
]`

func TestIngestorRunOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(directoryJSON))
	}))
	defer srv.Close()

	store := &fakeStore{}
	ing := NewIngestor(store, map[uint64]string{56: srv.URL}, nil)

	if err := ing.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Non-USD pairs and malformed proxies are dropped; path keys are
	// lowercased.
	if len(store.upserted) != 2 {
		t.Fatalf("upserted %d records, want 2: %+v", len(store.upserted), store.upserted)
	}

	byKey := make(map[string]model.PriceFeedRecord, len(store.upserted))
	for _, rec := range store.upserted {
		byKey[rec.PathKey] = rec
	}

	btc, ok := byKey["btc-usd"]
	if !ok {
		t.Fatalf("missing btc-usd record: %+v", byKey)
	}
	if btc.ChainID != 56 || btc.Status != "active" || btc.Decimals != 8 {
		t.Fatalf("unexpected btc record: %+v", btc)
	}
	if btc.ProxyAddress != common.HexToAddress("0x0000000000000000000000000000000000000b7c") {
		t.Fatalf("unexpected btc proxy: %s", btc.ProxyAddress.Hex())
	}

	eth, ok := byKey["eth-usd"]
	if !ok {
		t.Fatalf("missing eth-usd record: %+v", byKey)
	}
	if eth.Status != model.FeedStatusDeprecated {
		t.Fatalf("deprecating category must map to %q, got %q", model.FeedStatusDeprecated, eth.Status)
	}
}

func TestIngestorRunOnceSourceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ing := NewIngestor(&fakeStore{}, map[uint64]string{56: srv.URL}, nil)
	if err := ing.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected an error from a failing source")
	}
}

func TestStatusFromCategory(t *testing.T) {
	cases := map[string]string{
		"verified":    "active",
		"monitored":   "active",
		"deprecating": model.FeedStatusDeprecated,
		"Deprecated":  model.FeedStatusDeprecated,
		"hidden":      model.FeedStatusDeprecated,
		"":            "active",
	}
	for category, want := range cases {
		if got := statusFromCategory(category); got != want {
			t.Fatalf("statusFromCategory(%q) = %q, want %q", category, got, want)
		}
	}
}
