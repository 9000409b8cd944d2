package market

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/matrixise/coinledger/internal/apperr"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,15}$`)

// binancePairs maps a ticker to its Binance spot pair
var binancePairs = map[string]string{
	"BNB":   "BNBUSDT",
	"USDT":  "USDTUSDT",
	"XRP":   "XRPUSDT",
	"SOL":   "SOLUSDT",
	"BTC":   "BTCUSDT",
	"ETH":   "ETHUSDT",
	"STETH": "STETHUSDT",
	"ADA":   "ADAUSDT",
	"DOGE":  "DOGEUSDT",
	"DOT":   "DOTUSDT",
	"MATIC": "MATICUSDT",
	"CRV":   "CRVUSDT",
}

// coingeckoIDs maps a ticker to its CoinGecko coin id
var coingeckoIDs = map[string]string{
	"BNB":   "binancecoin",
	"USDT":  "tether",
	"XRP":   "ripple",
	"SOL":   "solana",
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"STETH": "staked-ether",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"CRV":   "curve-dao-token",
}

// NormalizeSymbol upper-cases symbol and rejects anything that is not a plain ticker
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("%w: invalid symbol %q", apperr.ErrMalformedInput, symbol)
	}
	return s, nil
}

// BinancePair returns the spot pair for a normalized symbol, SYMBOL+USDT when unmapped
func BinancePair(symbol string) string {
	if pair, ok := binancePairs[symbol]; ok {
		return pair
	}
	return symbol + "USDT"
}

// CoinGeckoID returns the coin id for a normalized symbol, the lowercased symbol when unmapped
func CoinGeckoID(symbol string) string {
	if id, ok := coingeckoIDs[symbol]; ok {
		return id
	}
	return strings.ToLower(symbol)
}
