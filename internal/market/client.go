package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/matrixise/coinledger/internal/apperr"
	"github.com/shopspring/decimal"
)

// SpotProvider quotes a live USD price for a normalized symbol
type SpotProvider interface {
	Name() string
	SpotPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// CandleProvider returns OHLC bars for a normalized symbol
type CandleProvider interface {
	Candles(ctx context.Context, symbol, interval string, start, end time.Time) ([]Candle, error)
}

// GlobalProvider returns aggregate market statistics
type GlobalProvider interface {
	Global(ctx context.Context) (GlobalStats, error)
}

// Client blends two spot providers with a fixed fallback order
type Client struct {
	primary   SpotProvider
	secondary SpotProvider
	candles   CandleProvider
	global    GlobalProvider
	now       func() time.Time
	logger    *slog.Logger
}

// NewClient wires providers explicitly
func NewClient(primary, secondary SpotProvider, candles CandleProvider, global GlobalProvider) *Client {
	return &Client{
		primary:   primary,
		secondary: secondary,
		candles:   candles,
		global:    global,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

// NewDefaultClient uses Binance as primary and candle source, CoinGecko as secondary and global source
func NewDefaultClient(binanceURL string, binanceTimeout time.Duration, cg CoinGeckoConfig) *Client {
	b := NewBinance(binanceURL, binanceTimeout)
	g := NewCoinGecko(cg)
	return NewClient(b, g, b, g)
}

// LivePrice returns the current USD price of symbol. When both providers
// fail it returns exactly zero together with ErrPriceUnavailable; zero is
// never a real price.
func (c *Client) LivePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	s, err := NormalizeSymbol(symbol)
	if err != nil {
		return decimal.Zero, err
	}

	price, primaryErr := c.primary.SpotPrice(ctx, s)
	if primaryErr == nil {
		return price, nil
	}
	c.logger.Debug("Primary price provider failed, falling back",
		"symbol", s, "provider", c.primary.Name(), "error", primaryErr)

	price, secondaryErr := c.secondary.SpotPrice(ctx, s)
	if secondaryErr == nil {
		return price, nil
	}

	c.logger.Warn("All price providers failed",
		"symbol", s,
		c.primary.Name(), primaryErr,
		c.secondary.Name(), secondaryErr)
	return decimal.Zero, fmt.Errorf("%w: %s: %s: %v; %s: %v", apperr.ErrPriceUnavailable, s,
		c.primary.Name(), primaryErr, c.secondary.Name(), secondaryErr)
}

// MaxHistoryDays bounds the window of HistoricalSeries
const MaxHistoryDays = 3650

// HistoricalSeries returns close prices and volumes of symbol over the last days
func (c *Client) HistoricalSeries(ctx context.Context, symbol string, days int) (Series, error) {
	s, err := NormalizeSymbol(symbol)
	if err != nil {
		return Series{}, err
	}
	if days <= 0 || days > MaxHistoryDays {
		return Series{}, fmt.Errorf("%w: days must be between 1 and %d, got %d", apperr.ErrMalformedInput, MaxHistoryDays, days)
	}

	interval := IntervalForDays(days)
	end := c.now()
	start := end.Add(-time.Duration(days) * 24 * time.Hour)

	candles, err := c.candles.Candles(ctx, s, interval, start, end)
	if err != nil {
		return Series{}, fmt.Errorf("%w: %v", apperr.ErrNoDataAvailable, err)
	}
	if len(candles) == 0 {
		return Series{}, fmt.Errorf("%w: no candles for %s", apperr.ErrNoDataAvailable, s)
	}

	series := Series{
		Symbol:     s,
		Interval:   interval,
		Prices:     make([]Point, 0, len(candles)),
		Volumes:    make([]Point, 0, len(candles)),
		MarketCaps: []Point{},
	}
	for _, k := range candles {
		series.Prices = append(series.Prices, Point{Time: k.OpenTime, Value: k.Close})
		series.Volumes = append(series.Volumes, Point{Time: k.OpenTime, Value: k.Volume})
	}
	return series, nil
}

// GlobalMarket returns aggregate market statistics
func (c *Client) GlobalMarket(ctx context.Context) (GlobalStats, error) {
	stats, err := c.global.Global(ctx)
	if err != nil {
		return GlobalStats{}, fmt.Errorf("%w: %v", apperr.ErrNoDataAvailable, err)
	}
	return stats, nil
}
