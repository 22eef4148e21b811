package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// endpoint is one RPC backend with its limiter and failure count.
type endpoint struct {
	url      string
	client   *Client
	limiter  *rate.Limiter
	failures int
}

// Pool distributes eth_calls across RPC endpoints for one chain. Each
// endpoint is rate limited independently; an endpoint is skipped once its
// consecutive failure count reaches maxFailures and rejoins after its next
// successful call (every endpoint is retried when all are marked down).
// The resolution core never retries; a call that fails on every endpoint
// surfaces the last error.
type Pool struct {
	mu          sync.Mutex
	endpoints   []*endpoint
	next        int
	maxFailures int
	logger      *zap.Logger
}

// PoolConfig bounds per-endpoint request rates.
type PoolConfig struct {
	RequestsPerSecond float64
	Burst             int
	MaxFailures       int
}

// NewPool dials every URL and returns a pool over the successful ones.
func NewPool(ctx context.Context, urls []string, cfg PoolConfig, logger *zap.Logger) (*Pool, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one rpc url is required")
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	endpoints := make([]*endpoint, 0, len(urls))
	for _, url := range urls {
		client, err := NewClient(ctx, url)
		if err != nil {
			logger.Warn("rpc dial failed", zap.String("url", url), zap.Error(err))
			continue
		}
		endpoints = append(endpoints, &endpoint{
			url:     url,
			client:  client,
			limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		})
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no rpc endpoint could be dialed")
	}

	return &Pool{
		endpoints:   endpoints,
		maxFailures: cfg.MaxFailures,
		logger:      logger,
	}, nil
}

// Close closes every endpoint client.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ep := range p.endpoints {
		ep.client.Close()
	}
}

// CallContract performs an eth_call, failing over across endpoints. Each
// endpoint is tried at most once per call.
func (p *Pool) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	order := p.callOrder()

	var lastErr error
	for _, ep := range order {
		if err := ep.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := ep.client.CallContract(ctx, msg, blockNumber)
		if err == nil {
			p.markSuccess(ep)
			return resp, nil
		}
		p.markFailure(ep)
		p.logger.Debug("eth_call failed", zap.String("url", ep.url), zap.Error(err))
		lastErr = err
	}
	return nil, lastErr
}

// callOrder returns healthy endpoints starting at the round-robin cursor,
// falling back to all endpoints when everything is marked down.
func (p *Pool) callOrder() []*endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.endpoints)
	healthy := make([]*endpoint, 0, n)
	for i := 0; i < n; i++ {
		ep := p.endpoints[(p.next+i)%n]
		if ep.failures < p.maxFailures {
			healthy = append(healthy, ep)
		}
	}
	p.next = (p.next + 1) % n

	if len(healthy) == 0 {
		all := make([]*endpoint, n)
		copy(all, p.endpoints)
		return all
	}
	return healthy
}

func (p *Pool) markSuccess(ep *endpoint) {
	p.mu.Lock()
	ep.failures = 0
	p.mu.Unlock()
}

func (p *Pool) markFailure(ep *endpoint) {
	p.mu.Lock()
	ep.failures++
	down := ep.failures == p.maxFailures
	p.mu.Unlock()
	if down {
		p.logger.Warn("rpc endpoint marked down", zap.String("url", ep.url))
	}
}

// CallerRegistry resolves the contract caller for a chain id.
type CallerRegistry interface {
	Caller(chainID uint64) (ContractCaller, bool)
}

// Pools holds one Pool per supported chain id.
type Pools map[uint64]*Pool

// Caller returns the caller for a chain id.
func (p Pools) Caller(chainID uint64) (ContractCaller, bool) {
	pool, ok := p[chainID]
	return pool, ok
}

// Close closes every pool.
func (p Pools) Close() {
	for _, pool := range p {
		pool.Close()
	}
}
