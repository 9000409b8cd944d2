package ledger

import (
	"github.com/matrixise/coinledger/internal/events"
	"github.com/shopspring/decimal"
)

// divisionPrecision is the number of fractional digits kept by price divisions
const divisionPrecision = 18

var hundred = decimal.NewFromInt(100)

// BuySpent returns the USD spent by a buy. Prices on chain are in cents.
// degenerate is true when the log carried no price at all and the
// quantity itself stands in for the amount spent.
func BuySpent(b events.BuyArgs) (spent decimal.Decimal, degenerate bool) {
	switch {
	case b.TotalCost != nil:
		return b.TotalCost.Div(hundred), false
	case b.PricePerToken != nil:
		return b.Quantity.Mul(b.PricePerToken.Div(hundred)), false
	default:
		return b.Quantity, true
	}
}

// CostBasis accumulates buys of one symbol
type CostBasis struct {
	Symbol        string          `json:"symbol"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	Degenerate    int             `json:"degenerate,omitempty"`
}

// Add folds one buy into the basis
func (c *CostBasis) Add(b events.BuyArgs) {
	spent, degenerate := BuySpent(b)
	c.TotalQuantity = c.TotalQuantity.Add(b.Quantity)
	c.TotalSpent = c.TotalSpent.Add(spent)
	if degenerate {
		c.Degenerate++
	}
}

// AveragePrice is TotalSpent / TotalQuantity, zero when nothing was bought
func (c CostBasis) AveragePrice() decimal.Decimal {
	if c.TotalQuantity.Sign() <= 0 {
		return decimal.Zero
	}
	return c.TotalSpent.DivRound(c.TotalQuantity, divisionPrecision)
}

// AverageBuyPrice returns the volume-weighted average price of buys
func AverageBuyPrice(buys []events.BuyArgs) decimal.Decimal {
	var basis CostBasis
	for _, b := range buys {
		basis.Add(b)
	}
	return basis.AveragePrice()
}

// CostBases groups buy events by symbol and accumulates each basis.
// Sell events and records without buy arguments are ignored.
func CostBases(records []events.Record) map[string]*CostBasis {
	out := make(map[string]*CostBasis)
	for _, rec := range records {
		if rec.Buy == nil {
			continue
		}
		symbol := NormalizeSymbol(rec.Buy.Symbol)
		basis, ok := out[symbol]
		if !ok {
			basis = &CostBasis{Symbol: symbol}
			out[symbol] = basis
		}
		basis.Add(*rec.Buy)
	}
	return out
}

// CostBasisFor returns the basis of a single symbol
func CostBasisFor(symbol string, records []events.Record) CostBasis {
	symbol = NormalizeSymbol(symbol)
	if basis, ok := CostBases(records)[symbol]; ok {
		return *basis
	}
	return CostBasis{Symbol: symbol}
}
