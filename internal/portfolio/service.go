package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/matrixise/coinledger/internal/apperr"
	"github.com/matrixise/coinledger/internal/events"
	"github.com/matrixise/coinledger/internal/ledger"
	"github.com/shopspring/decimal"
)

// ContractReader is the read side of the platform contract needed for a wallet view
type ContractReader interface {
	BalanceReader
	USDBalance(ctx context.Context, wallet common.Address) (decimal.Decimal, error)
	BorrowedAmount(ctx context.Context, wallet common.Address) (decimal.Decimal, error)
	TransactionHistory(ctx context.Context, wallet common.Address) ([]ledger.StoredTransaction, error)
	LatestBlock(ctx context.Context) (uint64, error)
}

// EventFetcher collects decoded event logs over a block range
type EventFetcher interface {
	Fetch(ctx context.Context, kind events.Kind, from, to uint64, user *common.Address) (events.Result, error)
}

// Skipped collects every item left out of a view
type Skipped struct {
	Chunks  []events.Skip       `json:"chunks,omitempty"`
	Rows    []ledger.SkippedRow `json:"rows,omitempty"`
	Symbols []SymbolSkip        `json:"symbols,omitempty"`
}

// IsEmpty reports whether nothing was skipped
func (s Skipped) IsEmpty() bool {
	return len(s.Chunks) == 0 && len(s.Rows) == 0 && len(s.Symbols) == 0
}

// History is a wallet's merged ledger plus the buy events it was built from
type History struct {
	Wallet      common.Address
	LatestBlock uint64
	Ledger      ledger.Ledger
	Buys        []events.Record
	Skipped     Skipped
}

// WalletView is the read model served for one wallet
type WalletView struct {
	Wallet         string          `json:"wallet"`
	LatestBlock    uint64          `json:"latest_block"`
	Ledger         []ledger.Entry  `json:"ledger"`
	Holdings       []Holding       `json:"holdings"`
	Profit         decimal.Decimal `json:"profit"`
	USDBalance     decimal.Decimal `json:"usd_balance"`
	BorrowedAmount decimal.Decimal `json:"borrowed_amount"`
	Skipped        Skipped         `json:"skipped"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// Service assembles wallet views from the contract, its event logs and live prices
type Service struct {
	reader      ContractReader
	fetcher     EventFetcher
	valuator    *Valuator
	deployBlock uint64
	logger      *slog.Logger
}

// NewService creates a service scanning events from deployBlock onwards
func NewService(reader ContractReader, fetcher EventFetcher, prices PriceSource, deployBlock uint64) *Service {
	return &Service{
		reader:      reader,
		fetcher:     fetcher,
		valuator:    NewValuator(reader, prices),
		deployBlock: deployBlock,
		logger:      slog.Default(),
	}
}

// ParseWallet validates a hex wallet address
func ParseWallet(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: invalid wallet address %q", apperr.ErrMalformedInput, s)
	}
	return common.HexToAddress(s), nil
}

// History builds the full, unfiltered ledger of wallet
func (s *Service) History(ctx context.Context, wallet common.Address) (*History, error) {
	latest, err := s.reader.LatestBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest block: %w", err)
	}

	stored, err := s.reader.TransactionHistory(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("transaction history: %w", err)
	}

	buys, err := s.fetcher.Fetch(ctx, events.KindBuy, s.deployBlock, latest, &wallet)
	if err != nil {
		return nil, fmt.Errorf("buy events: %w", err)
	}
	sells, err := s.fetcher.Fetch(ctx, events.KindSell, s.deployBlock, latest, &wallet)
	if err != nil {
		return nil, fmt.Errorf("sell events: %w", err)
	}

	l := ledger.BuildLedger(stored, buys.Events, sells.Events)

	h := &History{
		Wallet:      wallet,
		LatestBlock: latest,
		Ledger:      l,
		Buys:        buys.Events,
	}
	h.Skipped.Chunks = append(h.Skipped.Chunks, buys.Skipped...)
	h.Skipped.Chunks = append(h.Skipped.Chunks, sells.Skipped...)
	h.Skipped.Rows = l.Skipped

	if !h.Skipped.IsEmpty() {
		s.logger.Warn("Ledger built with omissions",
			"wallet", wallet.Hex(),
			"skipped_chunks", len(h.Skipped.Chunks),
			"skipped_rows", len(h.Skipped.Rows))
	}
	return h, nil
}

// WalletView builds ledger, holdings, profit and balances for wallet.
// Profit is computed on the full ledger; filter narrows only the returned entries.
func (s *Service) WalletView(ctx context.Context, wallet common.Address, filter ledger.Filter) (*WalletView, error) {
	h, err := s.History(ctx, wallet)
	if err != nil {
		return nil, err
	}

	valuation, err := s.valuator.BuildHoldings(ctx, wallet, h.Ledger, h.Buys)
	if err != nil {
		return nil, fmt.Errorf("holdings: %w", err)
	}

	usdCents, err := s.reader.USDBalance(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("usd balance: %w", err)
	}
	borrowed, err := s.reader.BorrowedAmount(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("borrowed amount: %w", err)
	}

	view := &WalletView{
		Wallet:         wallet.Hex(),
		LatestBlock:    h.LatestBlock,
		Ledger:         h.Ledger.Filter(filter),
		Holdings:       valuation.Holdings,
		Profit:         ComputeProfit(h.Ledger, valuation.Holdings),
		USDBalance:     usdCents.Shift(-2),
		BorrowedAmount: borrowed,
		Skipped:        h.Skipped,
		GeneratedAt:    time.Now().UTC(),
	}
	view.Skipped.Symbols = valuation.Skipped
	if view.Ledger == nil {
		view.Ledger = []ledger.Entry{}
	}
	if view.Holdings == nil {
		view.Holdings = []Holding{}
	}

	s.logger.Info("Wallet view built",
		"wallet", view.Wallet,
		"entries", len(h.Ledger.Entries),
		"holdings", len(view.Holdings),
		"profit", view.Profit.StringFixed(2))

	return view, nil
}
