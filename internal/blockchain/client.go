package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	rpcTimeout    = 10 * time.Second
	maxRetries    = 3
	retryInterval = 500 * time.Millisecond
)

// Client wraps Ethereum RPC client functionality with failover support
type Client struct {
	failoverClient *FailoverClient
}

// NewClient creates a new blockchain client with failover support
func NewClient(ctx context.Context, rpcURLs []string) (*Client, error) {
	failoverClient, err := NewFailoverClient(ctx, rpcURLs)
	if err != nil {
		return nil, err
	}
	return &Client{failoverClient: failoverClient}, nil
}

// Close closes all RPC client connections
func (c *Client) Close() {
	c.failoverClient.Close()
}

// do runs fn against a healthy endpoint with a per-attempt timeout, backing off
// between attempts. Transport failures mark the endpoint unhealthy so the next
// attempt fails over; a JSON-RPC error reply is returned at once since the
// node answered and a retry would get the same answer.
func (c *Client) do(ctx context.Context, fn func(ctx context.Context, ec *ethclient.Client) error) error {
	var lastErr error

	for attempt := range maxRetries {
		if attempt > 0 {
			backoff := retryInterval * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		ec, url, err := c.failoverClient.GetClient(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
		err = fn(callCtx, ec)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return err
		}
		c.failoverClient.MarkUnhealthy(url, err)
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// LatestBlock returns the current head block number
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	var number uint64
	err := c.do(ctx, func(ctx context.Context, ec *ethclient.Client) error {
		n, err := ec.BlockNumber(ctx)
		number = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("block number: %w", err)
	}
	return number, nil
}

// BlockTime returns the timestamp of block number
func (c *Client) BlockTime(ctx context.Context, number uint64) (time.Time, error) {
	var ts uint64
	err := c.do(ctx, func(ctx context.Context, ec *ethclient.Client) error {
		header, err := ec.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		if err != nil {
			return err
		}
		ts = header.Time
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("block %d header: %w", number, err)
	}
	return time.Unix(int64(ts), 0).UTC(), nil
}

// ChainID returns the chain id reported by the node
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var id *big.Int
	err := c.do(ctx, func(ctx context.Context, ec *ethclient.Client) error {
		v, err := ec.ChainID(ctx)
		id = v
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	return id, nil
}

// GetHealthyEndpoint returns the endpoint currently selected by the failover pool
func (c *Client) GetHealthyEndpoint(ctx context.Context) (*ethclient.Client, string, error) {
	return c.failoverClient.GetClient(ctx)
}

// GetEndpointsHealth reports the health flag of every configured endpoint
func (c *Client) GetEndpointsHealth() map[string]bool {
	return c.failoverClient.Health()
}
