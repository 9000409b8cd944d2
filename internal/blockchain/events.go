package blockchain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/matrixise/coinledger/internal/events"
)

// SupportsUserFilter reports whether the user argument of kind is an indexed topic
func (c *Contract) SupportsUserFilter(kind events.Kind) bool {
	ev, ok := c.abi.Events[string(kind)]
	if !ok {
		return false
	}
	for _, in := range ev.Inputs {
		if in.Name == "user" {
			return in.Indexed
		}
	}
	return false
}

// QueryLogs runs eth_getLogs for kind over r and decodes the results.
// Logs that fail to decode are logged and dropped.
func (c *Contract) QueryLogs(ctx context.Context, kind events.Kind, r events.BlockRange, user *common.Address) ([]events.Record, error) {
	ev, ok := c.abi.Events[string(kind)]
	if !ok {
		return nil, fmt.Errorf("unknown event %q", kind)
	}

	topics := [][]common.Hash{{ev.ID}}
	if user != nil && c.SupportsUserFilter(kind) {
		topics = append(topics, []common.Hash{common.BytesToHash(user.Bytes())})
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(r.From),
		ToBlock:   new(big.Int).SetUint64(r.To),
		Addresses: []common.Address{c.address},
		Topics:    topics,
	}

	var logs []types.Log
	err := c.client.do(ctx, func(ctx context.Context, ec *ethclient.Client) error {
		l, err := ec.FilterLogs(ctx, query)
		logs = l
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s logs %s: %w", kind, r, err)
	}

	records := make([]events.Record, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		rec, err := c.decodeLog(kind, lg)
		if err != nil {
			slog.Warn("Dropping undecodable log",
				"event", kind,
				"block", lg.BlockNumber,
				"tx", lg.TxHash.Hex(),
				"error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Contract) decodeLog(kind events.Kind, lg types.Log) (events.Record, error) {
	ev := c.abi.Events[string(kind)]
	if len(lg.Topics) == 0 || lg.Topics[0] != ev.ID {
		return events.Record{}, fmt.Errorf("topic mismatch for %s", kind)
	}

	fields := make(map[string]any)
	if len(lg.Data) > 0 {
		if err := c.abi.UnpackIntoMap(fields, ev.Name, lg.Data); err != nil {
			return events.Record{}, fmt.Errorf("unpack data: %w", err)
		}
	}

	var indexed abi.Arguments
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, lg.Topics[1:]); err != nil {
		return events.Record{}, fmt.Errorf("parse topics: %w", err)
	}

	user, ok := fields["user"].(common.Address)
	if !ok {
		return events.Record{}, fmt.Errorf("missing user argument")
	}
	symbol, ok := fields["symbol"].(string)
	if !ok {
		return events.Record{}, fmt.Errorf("missing symbol argument")
	}
	quantity, ok := fields["quantity"].(*big.Int)
	if !ok {
		return events.Record{}, fmt.Errorf("missing quantity argument")
	}

	rec := events.Record{
		Kind:        kind,
		BlockNumber: lg.BlockNumber,
		LogIndex:    lg.Index,
		TxHash:      lg.TxHash.Hex(),
	}

	switch kind {
	case events.KindBuy:
		args := &events.BuyArgs{
			User:     user,
			Symbol:   symbol,
			Quantity: bigToDecimal(quantity),
		}
		if v, ok := fields["totalCost"].(*big.Int); ok {
			d := bigToDecimal(v)
			args.TotalCost = &d
		}
		if v, ok := fields["pricePerToken"].(*big.Int); ok {
			d := bigToDecimal(v)
			args.PricePerToken = &d
		}
		rec.Buy = args
	case events.KindSell:
		rec.Sell = &events.SellArgs{
			User:     user,
			Symbol:   symbol,
			Quantity: bigToDecimal(quantity),
		}
	default:
		return events.Record{}, fmt.Errorf("unsupported event %q", kind)
	}
	return rec, nil
}

// compile-time checks against the fetcher's collaborators
var (
	_ events.Source     = (*Contract)(nil)
	_ events.BlockTimer = (*Contract)(nil)
)
