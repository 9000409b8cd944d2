package ledger

import (
	"fmt"
	"sort"

	"github.com/matrixise/coinledger/internal/events"
	"github.com/shopspring/decimal"
)

// BuildLedger merges contract-stored rows with buy and sell event logs into
// one timeline, newest first. Sources are complementary views: a trade that
// appears both in storage and as a log is listed twice. Entries with equal
// timestamps keep their insertion order: contract rows, then buys, then sells.
func BuildLedger(stored []StoredTransaction, buys, sells []events.Record) Ledger {
	var l Ledger
	l.Entries = make([]Entry, 0, len(stored)+len(buys)+len(sells))

	for i, row := range stored {
		kind, ok := ParseKind(row.TxType)
		if !ok {
			l.Skipped = append(l.Skipped, SkippedRow{
				Index:  i,
				TxType: row.TxType,
				Symbol: row.Symbol,
				Reason: fmt.Sprintf("unknown transaction type %q", row.TxType),
			})
			continue
		}
		// The stored amount doubles as the USD value.
		l.Entries = append(l.Entries, Entry{
			Kind:      kind,
			Symbol:    NormalizeSymbol(row.Symbol),
			Quantity:  row.Amount,
			Timestamp: row.Timestamp,
			USDValue:  row.Amount,
			Source:    SourceContractStorage,
		})
	}

	buyEntries := make([]Entry, 0, len(buys))
	for _, rec := range buys {
		if rec.Buy == nil {
			continue
		}
		buyEntries = append(buyEntries, buyEntry(rec))
	}
	l.Entries = append(l.Entries, buyEntries...)

	prior := newPriorBuys(buyEntries)
	for _, rec := range sells {
		if rec.Sell == nil {
			continue
		}
		l.Entries = append(l.Entries, sellEntry(rec, prior))
	}

	sort.SliceStable(l.Entries, func(i, j int) bool {
		return l.Entries[i].Timestamp.After(l.Entries[j].Timestamp)
	})

	return l
}

func buyEntry(rec events.Record) Entry {
	spent, _ := BuySpent(*rec.Buy)
	e := Entry{
		Kind:      KindBuy,
		Symbol:    NormalizeSymbol(rec.Buy.Symbol),
		Quantity:  rec.Buy.Quantity,
		Timestamp: rec.Timestamp,
		USDValue:  spent,
		TxHash:    rec.TxHash,
		Source:    SourceBuyEvent,
	}
	// USDValue stays the exact spent amount; only the price is rounded.
	if !e.Quantity.IsZero() {
		price := spent.DivRound(e.Quantity, divisionPrecision)
		e.BuyPrice = &price
	}
	return e
}

func sellEntry(rec events.Record, prior priorBuys) Entry {
	e := Entry{
		Kind:      KindSell,
		Symbol:    NormalizeSymbol(rec.Sell.Symbol),
		Quantity:  rec.Sell.Quantity,
		Timestamp: rec.Timestamp,
		USDValue:  rec.Sell.Quantity,
		TxHash:    rec.TxHash,
		Source:    SourceSellEvent,
	}
	if buy, ok := prior.latest(e.Symbol, e); ok && buy.BuyPrice != nil {
		price := *buy.BuyPrice
		e.BuyPrice = &price
		e.USDValue = e.Quantity.Mul(price)
	}
	return e
}

// priorBuys indexes buy entries per symbol in chronological order
type priorBuys map[string][]Entry

func newPriorBuys(buys []Entry) priorBuys {
	p := make(priorBuys)
	for _, b := range buys {
		p[b.Symbol] = append(p[b.Symbol], b)
	}
	for symbol := range p {
		sort.SliceStable(p[symbol], func(i, j int) bool {
			return p[symbol][i].Timestamp.Before(p[symbol][j].Timestamp)
		})
	}
	return p
}

// latest returns the last buy of symbol at or before the sell's timestamp
func (p priorBuys) latest(symbol string, sell Entry) (Entry, bool) {
	buys := p[symbol]
	idx := sort.Search(len(buys), func(i int) bool {
		return buys[i].Timestamp.After(sell.Timestamp)
	})
	if idx == 0 {
		return Entry{}, false
	}
	return buys[idx-1], true
}

// TotalBought sums the USD value of every buy entry
func (l Ledger) TotalBought() decimal.Decimal {
	total := decimal.Zero
	for _, e := range l.Entries {
		if e.Kind == KindBuy {
			total = total.Add(e.USDValue)
		}
	}
	return total
}
