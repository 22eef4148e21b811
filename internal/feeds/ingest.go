package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"basketScope/internal/model"
)

// FeedStore is the write side of the feed directory, used only by ingestion.
type FeedStore interface {
	UpsertFeeds(ctx context.Context, feeds []model.PriceFeedRecord) error
}

// directoryEntry mirrors the fields we consume from the reference-data JSON.
type directoryEntry struct {
	Path         string `json:"path"`
	ProxyAddress string `json:"proxyAddress"`
	Name         string `json:"name"`
	Decimals     uint8  `json:"decimals"`
	FeedCategory string `json:"feedCategory"`
}

// Ingestor refreshes the persisted feed directory from per-chain reference
// data URLs. It is scheduled externally; the resolution core never writes.
type Ingestor struct {
	store      FeedStore
	sources    map[uint64]string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewIngestor(store FeedStore, sources map[uint64]string, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		store:      store,
		sources:    sources,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// RunOnce fetches and upserts every configured chain's directory. A failing
// chain does not block the others; the first error is returned after all
// chains were attempted.
func (i *Ingestor) RunOnce(ctx context.Context) error {
	var firstErr error
	for chainID, url := range i.sources {
		records, err := i.fetchChain(ctx, chainID, url)
		if err == nil {
			err = i.store.UpsertFeeds(ctx, records)
		}
		if err != nil {
			i.logger.Warn("feed ingestion failed",
				zap.Uint64("chain_id", chainID),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		i.logger.Info("feed directory refreshed",
			zap.Uint64("chain_id", chainID),
			zap.Int("feeds", len(records)),
		)
	}
	return firstErr
}

func (i *Ingestor) fetchChain(ctx context.Context, chainID uint64, url string) ([]model.PriceFeedRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	var entries []directoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}

	records := make([]model.PriceFeedRecord, 0, len(entries))
	for _, entry := range entries {
		pathKey := strings.ToLower(entry.Path)
		if !strings.HasSuffix(pathKey, "-usd") {
			continue
		}
		if !common.IsHexAddress(entry.ProxyAddress) {
			continue
		}
		records = append(records, model.PriceFeedRecord{
			ChainID:      chainID,
			PathKey:      pathKey,
			ProxyAddress: common.HexToAddress(entry.ProxyAddress),
			Pair:         entry.Name,
			Decimals:     entry.Decimals,
			Status:       statusFromCategory(entry.FeedCategory),
		})
	}
	return records, nil
}

func statusFromCategory(category string) string {
	switch strings.ToLower(category) {
	case "deprecating", "deprecated", "hidden":
		return model.FeedStatusDeprecated
	default:
		return "active"
	}
}
