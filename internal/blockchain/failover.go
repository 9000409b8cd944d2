package blockchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	unhealthyDuration  = 5 * time.Minute // Cooldown before retry
	healthCheckTimeout = 5 * time.Second
)

// ErrNoHealthyEndpoint is returned when every RPC endpoint is down or cooling off
var ErrNoHealthyEndpoint = errors.New("no healthy RPC endpoints available")

type endpointStatus struct {
	url           string
	name          string // log-safe form of url
	client        *ethclient.Client
	healthy       bool
	lastError     error
	lastErrorTime time.Time
	mu            sync.RWMutex
}

// FailoverClient is a round-robin pool of RPC endpoints serving one chain.
// Event logs and contract state must come from the same chain, so an
// endpoint reporting another chain id is never used.
type FailoverClient struct {
	endpoints    []*endpointStatus
	currentIndex int
	chainID      *big.Int
	now          func() time.Time
	mu           sync.RWMutex
}

// NewFailoverClient dials every endpoint and requires at least one to answer
// eth_chainId. The first endpoint that answers fixes the pool's chain.
func NewFailoverClient(ctx context.Context, urls []string) (*FailoverClient, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one RPC URL is required")
	}

	fc := &FailoverClient{
		endpoints: make([]*endpointStatus, 0, len(urls)),
		now:       time.Now,
	}

	names := make(map[string]int, len(urls))
	healthyCount := 0
	for _, raw := range urls {
		ep := &endpointStatus{url: raw, name: endpointName(raw, names)}
		fc.endpoints = append(fc.endpoints, ep)

		client, err := fc.dial(ctx, ep.url)
		ep.client = client
		ep.healthy = err == nil
		ep.lastError = err
		ep.lastErrorTime = fc.now()

		if err != nil {
			slog.Warn("RPC endpoint unavailable, will retry later", "endpoint", ep.name, "error", err)
			continue
		}
		healthyCount++
		slog.Info("Connected to RPC endpoint", "endpoint", ep.name, "chain_id", fc.chainID)
	}

	if healthyCount == 0 {
		return nil, ErrNoHealthyEndpoint
	}
	return fc, nil
}

// ChainID returns the chain the pool is pinned to
func (fc *FailoverClient) ChainID() *big.Int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	if fc.chainID == nil {
		return nil
	}
	return new(big.Int).Set(fc.chainID)
}

// GetClient returns a healthy client, reconnecting an endpoint whose cooldown expired
func (fc *FailoverClient) GetClient(ctx context.Context) (*ethclient.Client, string, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	startIndex := fc.currentIndex

	for i := range fc.endpoints {
		idx := (startIndex + i) % len(fc.endpoints)
		ep := fc.endpoints[idx]

		ep.mu.RLock()
		healthy := ep.healthy
		client := ep.client
		canRetry := fc.now().Sub(ep.lastErrorTime) > unhealthyDuration
		ep.mu.RUnlock()

		if healthy && client != nil {
			fc.currentIndex = idx
			return client, ep.url, nil
		}
		if healthy || !canRetry {
			continue
		}

		newClient, err := fc.dialLocked(ctx, ep.url)
		ep.mu.Lock()
		if err != nil {
			ep.lastError = err
			ep.lastErrorTime = fc.now()
			ep.mu.Unlock()
			slog.Debug("RPC endpoint still unavailable", "endpoint", ep.name, "error", err)
			continue
		}
		if ep.client != nil {
			ep.client.Close()
		}
		ep.client = newClient
		ep.healthy = true
		ep.lastError = nil
		ep.mu.Unlock()

		fc.currentIndex = idx
		slog.Info("Reconnected to RPC endpoint", "endpoint", ep.name)
		return newClient, ep.url, nil
	}

	return nil, "", ErrNoHealthyEndpoint
}

// MarkUnhealthy takes an endpoint out of rotation for the cooldown period
func (fc *FailoverClient) MarkUnhealthy(rawURL string, err error) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	for _, ep := range fc.endpoints {
		if ep.url != rawURL {
			continue
		}
		ep.mu.Lock()
		ep.healthy = false
		ep.lastError = err
		ep.lastErrorTime = fc.now()
		if ep.client != nil {
			ep.client.Close()
			ep.client = nil
		}
		ep.mu.Unlock()

		slog.Warn("RPC endpoint out of rotation",
			"endpoint", ep.name,
			"error", err,
			"retry_after", unhealthyDuration)
		return
	}
}

// Health reports each endpoint's health keyed by its log-safe name
func (fc *FailoverClient) Health() map[string]bool {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	out := make(map[string]bool, len(fc.endpoints))
	for _, ep := range fc.endpoints {
		ep.mu.RLock()
		out[ep.name] = ep.healthy
		ep.mu.RUnlock()
	}
	return out
}

func (fc *FailoverClient) dial(ctx context.Context, rawURL string) (*ethclient.Client, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.dialLocked(ctx, rawURL)
}

// dialLocked connects to rawURL, checks eth_chainId and pins the pool's chain
// on first success. fc.mu must be held.
func (fc *FailoverClient) dialLocked(ctx context.Context, rawURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	id, err := client.ChainID(checkCtx)
	if err != nil {
		client.Close()
		return nil, err
	}

	if fc.chainID == nil {
		fc.chainID = id
	} else if fc.chainID.Cmp(id) != 0 {
		client.Close()
		return nil, fmt.Errorf("endpoint serves chain %s, pool is on chain %s", id, fc.chainID)
	}
	return client, nil
}

// Close closes all endpoint connections
func (fc *FailoverClient) Close() {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	for _, ep := range fc.endpoints {
		ep.mu.Lock()
		if ep.client != nil {
			ep.client.Close()
			ep.client = nil
		}
		ep.mu.Unlock()
	}
}

// redactURL keeps scheme and host; provider URLs often carry an API key in the
// path or query.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "rpc"
	}
	return u.Scheme + "://" + u.Host
}

// endpointName returns redactURL(raw), suffixed when another endpoint shares the host
func endpointName(raw string, seen map[string]int) string {
	name := redactURL(raw)
	seen[name]++
	if n := seen[name]; n > 1 {
		return fmt.Sprintf("%s#%d", name, n)
	}
	return name
}
