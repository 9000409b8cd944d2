package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/matrixise/coinledger/internal/apperr"
)

// Source runs one log query against the chain
type Source interface {
	// QueryLogs returns decoded logs of kind within r, in block order.
	// user is only honoured when SupportsUserFilter(kind) is true.
	QueryLogs(ctx context.Context, kind Kind, r BlockRange, user *common.Address) ([]Record, error)
	// SupportsUserFilter reports whether the user argument of kind is indexed
	SupportsUserFilter(kind Kind) bool
}

// BlockTimer resolves a block number to its timestamp
type BlockTimer interface {
	BlockTime(ctx context.Context, number uint64) (time.Time, error)
}

// Skip records a chunk or an event left out of a result, and why
type Skip struct {
	Range  BlockRange `json:"range"`
	Block  uint64     `json:"block,omitempty"`
	TxHash string     `json:"tx_hash,omitempty"`
	Reason string     `json:"reason"`
}

// Result is the outcome of a chunked fetch. Events are in block order.
type Result struct {
	Events  []Record
	Skipped []Skip
}

// Fetcher queries event logs across a block range in bounded chunks
type Fetcher struct {
	source    Source
	timer     BlockTimer
	chunkSize uint64
	logger    *slog.Logger
}

// NewFetcher creates a fetcher. A zero chunkSize selects DefaultChunkSize.
func NewFetcher(source Source, timer BlockTimer, chunkSize uint64) *Fetcher {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	return &Fetcher{
		source:    source,
		timer:     timer,
		chunkSize: chunkSize,
		logger:    slog.Default(),
	}
}

// Fetch collects kind events in [from, to], optionally restricted to user.
// A failing chunk is skipped and the loop continues; only invalid input
// or context cancellation are returned as errors.
func (f *Fetcher) Fetch(ctx context.Context, kind Kind, from, to uint64, user *common.Address) (Result, error) {
	if from > to {
		return Result{}, fmt.Errorf("%w: deploy block %d is after latest block %d", apperr.ErrMalformedInput, from, to)
	}
	if f.chunkSize == 0 {
		return Result{}, fmt.Errorf("%w: chunk size must be positive", apperr.ErrMalformedInput)
	}

	serverSide := user != nil && f.source.SupportsUserFilter(kind)
	var queryUser *common.Address
	if serverSide {
		queryUser = user
	}

	chunks := Chunks(from, to, f.chunkSize)
	var result Result
	var raw []Record

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		logs, err := f.source.QueryLogs(ctx, kind, chunk, queryUser)
		if err != nil {
			f.logger.Warn("Skipping block range", "event", kind, "range", chunk.String(), "error", err)
			result.Skipped = append(result.Skipped, Skip{Range: chunk, Reason: err.Error()})
			continue
		}

		for _, rec := range logs {
			if user != nil && !serverSide && rec.User() != *user {
				continue
			}
			raw = append(raw, rec)
		}
	}

	times := newBlockTimes(f.timer)
	for _, rec := range raw {
		ts, err := times.lookup(ctx, rec.BlockNumber)
		if err != nil {
			result.Skipped = append(result.Skipped, Skip{
				Range:  BlockRange{From: rec.BlockNumber, To: rec.BlockNumber},
				Block:  rec.BlockNumber,
				TxHash: rec.TxHash,
				Reason: fmt.Sprintf("block timestamp: %v", err),
			})
			continue
		}
		rec.Timestamp = ts
		result.Events = append(result.Events, rec)
	}

	f.logger.Debug("Fetched events",
		"event", kind,
		"from", from,
		"to", to,
		"chunks", len(chunks),
		"events", len(result.Events),
		"skipped", len(result.Skipped),
		"block_lookups", times.lookups)

	return result, nil
}

// blockTimes memoizes timestamp lookups, including failures, for one fetch
type blockTimes struct {
	timer   BlockTimer
	ok      map[uint64]time.Time
	failed  map[uint64]error
	lookups int
}

func newBlockTimes(timer BlockTimer) *blockTimes {
	return &blockTimes{
		timer:  timer,
		ok:     make(map[uint64]time.Time),
		failed: make(map[uint64]error),
	}
}

func (b *blockTimes) lookup(ctx context.Context, number uint64) (time.Time, error) {
	if ts, ok := b.ok[number]; ok {
		return ts, nil
	}
	if err, ok := b.failed[number]; ok {
		return time.Time{}, err
	}

	b.lookups++
	ts, err := b.timer.BlockTime(ctx, number)
	if err != nil {
		b.failed[number] = err
		return time.Time{}, err
	}
	b.ok[number] = ts.UTC()
	return b.ok[number], nil
}
