package portfolio

import (
	"context"
	"log/slog"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/matrixise/coinledger/internal/events"
	"github.com/matrixise/coinledger/internal/ledger"
	"github.com/shopspring/decimal"
)

// BalanceReader reads on-chain coin balances
type BalanceReader interface {
	CoinBalance(ctx context.Context, wallet common.Address, symbol string) (decimal.Decimal, error)
	UserHoldings(ctx context.Context, wallet common.Address) (map[string]decimal.Decimal, error)
}

// PriceSource quotes live USD prices
type PriceSource interface {
	LivePrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Holding is the mark-to-market position of one symbol
type Holding struct {
	Symbol          string          `json:"symbol"`
	Balance         decimal.Decimal `json:"balance"`
	AverageBuyPrice decimal.Decimal `json:"average_buy_price"`
	LivePrice       decimal.Decimal `json:"live_price"`
	TotalValue      decimal.Decimal `json:"total_value"`
	// DegenerateBuys counts buys that carried no price and were valued at their quantity
	DegenerateBuys int `json:"degenerate_buys,omitempty"`
}

// SymbolSkip records a symbol left out of the valuation, and why
type SymbolSkip struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// Valuation is the outcome of BuildHoldings
type Valuation struct {
	Holdings []Holding
	Skipped  []SymbolSkip
}

// TotalValue sums the value of every holding
func (v Valuation) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, h := range v.Holdings {
		total = total.Add(h.TotalValue)
	}
	return total
}

// Valuator prices a wallet's positions
type Valuator struct {
	balances BalanceReader
	prices   PriceSource
	logger   *slog.Logger
}

// NewValuator creates a valuator
func NewValuator(balances BalanceReader, prices PriceSource) *Valuator {
	return &Valuator{
		balances: balances,
		prices:   prices,
		logger:   slog.Default(),
	}
}

// BuildHoldings values every symbol the wallet has traded or holds. A symbol
// is kept only when both its balance and its live price are positive. Lookup
// failures skip the symbol; only context cancellation aborts the loop.
func (v *Valuator) BuildHoldings(ctx context.Context, wallet common.Address, l ledger.Ledger, buys []events.Record) (Valuation, error) {
	var out Valuation
	bases := ledger.CostBases(buys)

	for _, symbol := range v.symbols(ctx, wallet, l) {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		balance, err := v.balances.CoinBalance(ctx, wallet, symbol)
		if err != nil {
			v.logger.Warn("Skipping symbol, balance lookup failed", "wallet", wallet.Hex(), "symbol", symbol, "error", err)
			out.Skipped = append(out.Skipped, SymbolSkip{Symbol: symbol, Reason: "balance: " + err.Error()})
			continue
		}

		live, err := v.prices.LivePrice(ctx, symbol)
		if err != nil {
			v.logger.Warn("Skipping symbol, price lookup failed", "wallet", wallet.Hex(), "symbol", symbol, "error", err)
			out.Skipped = append(out.Skipped, SymbolSkip{Symbol: symbol, Reason: "price: " + err.Error()})
			continue
		}

		if balance.Sign() <= 0 || live.Sign() <= 0 {
			continue
		}

		h := Holding{
			Symbol:     symbol,
			Balance:    balance,
			LivePrice:  live,
			TotalValue: balance.Mul(live),
		}
		if basis, ok := bases[symbol]; ok {
			h.AverageBuyPrice = basis.AveragePrice()
			h.DegenerateBuys = basis.Degenerate
		}
		out.Holdings = append(out.Holdings, h)
	}

	return out, nil
}

// symbols is the sorted union of ledger symbols and symbols the contract tracks
func (v *Valuator) symbols(ctx context.Context, wallet common.Address, l ledger.Ledger) []string {
	set := make(map[string]struct{})
	for _, s := range l.Symbols() {
		set[s] = struct{}{}
	}

	onChain, err := v.balances.UserHoldings(ctx, wallet)
	if err != nil {
		v.logger.Warn("Holdings query failed, valuing ledger symbols only", "wallet", wallet.Hex(), "error", err)
	}
	for s := range onChain {
		if s = ledger.NormalizeSymbol(s); s != "" {
			set[s] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ComputeProfit is the value of all holdings minus the USD value of every buy entry
func ComputeProfit(l ledger.Ledger, holdings []Holding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.TotalValue)
	}
	return total.Sub(l.TotalBought())
}
