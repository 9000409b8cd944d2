package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
)

// Store manages PostgreSQL operations
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL store with connection pooling
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	// Parse and configure connection pool
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Tune connection pool
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	// NUMERIC <-> decimal.Decimal on every connection
	config.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// SaveSnapshot writes a snapshot and its holdings in one transaction
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO portfolio_snapshots
		(id, run_id, taken_at, wallet, latest_block, usd_balance, borrowed_amount,
		 total_value, profit, ledger_entries, skipped_items)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		snap.ID,
		snap.RunID,
		snap.TakenAt,
		snap.Wallet,
		int64(snap.LatestBlock),
		snap.USDBalance,
		snap.BorrowedAmount,
		snap.TotalValue,
		snap.Profit,
		snap.LedgerEntries,
		snap.SkippedItems,
	)

	for _, h := range snap.Holdings {
		batch.Queue(`
			INSERT INTO holding_snapshots
			(snapshot_id, symbol, balance, average_buy_price, live_price, total_value)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			snap.ID,
			h.Symbol,
			h.Balance,
			h.AverageBuyPrice,
			h.LivePrice,
			h.TotalValue,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range batch.Len() {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("batch insert failed: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("batch close: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot of wallet without its holdings
func (s *Store) LatestSnapshot(ctx context.Context, wallet string) (*Snapshot, error) {
	var snap Snapshot
	var block int64
	err := s.pool.QueryRow(ctx, `
		SELECT id, run_id, taken_at, wallet, latest_block, usd_balance, borrowed_amount,
		       total_value, profit, ledger_entries, skipped_items
		FROM portfolio_snapshots
		WHERE wallet = $1
		ORDER BY taken_at DESC
		LIMIT 1`, wallet).Scan(
		&snap.ID,
		&snap.RunID,
		&snap.TakenAt,
		&snap.Wallet,
		&block,
		&snap.USDBalance,
		&snap.BorrowedAmount,
		&snap.TotalValue,
		&snap.Profit,
		&snap.LedgerEntries,
		&snap.SkippedItems,
	)
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	snap.LatestBlock = uint64(block)
	return &snap, nil
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
