package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"basketScope/internal/model"
)

// Store provides Postgres persistence for the price-feed directory.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertFeeds inserts or updates feed directory records.
func (s *Store) UpsertFeeds(ctx context.Context, feeds []model.PriceFeedRecord) error {
	if len(feeds) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, feed := range feeds {
		batch.Queue(`
			INSERT INTO price_feeds (
				chain_id, path_key, proxy_address, pair, decimals, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			ON CONFLICT (chain_id, path_key)
			DO UPDATE SET
				proxy_address = EXCLUDED.proxy_address,
				pair = EXCLUDED.pair,
				decimals = EXCLUDED.decimals,
				status = EXCLUDED.status,
				updated_at = now()
		`,
			int64(feed.ChainID),
			feed.PathKey,
			feed.ProxyAddress.Hex(),
			feed.Pair,
			int16(feed.Decimals),
			feed.Status,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range feeds {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LookupFeed returns the record for (chain_id, path_key), or nil when no row
// matches.
func (s *Store) LookupFeed(ctx context.Context, chainID uint64, pathKey string) (*model.PriceFeedRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT chain_id, path_key, proxy_address, pair, decimals, status
		FROM price_feeds
		WHERE chain_id = $1 AND path_key = $2
	`, int64(chainID), pathKey)

	var (
		dbChainID int64
		key       string
		proxy     string
		pair      string
		decimals  int16
		status    string
	)
	if err := row.Scan(&dbChainID, &key, &proxy, &pair, &decimals, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &model.PriceFeedRecord{
		ChainID:      uint64(dbChainID),
		PathKey:      key,
		ProxyAddress: common.HexToAddress(proxy),
		Pair:         pair,
		Decimals:     uint8(decimals),
		Status:       status,
	}, nil
}
