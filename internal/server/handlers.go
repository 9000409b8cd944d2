package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/matrixise/coinledger/internal/apperr"
	"github.com/matrixise/coinledger/internal/ledger"
	"github.com/matrixise/coinledger/internal/portfolio"
	"github.com/shopspring/decimal"
)

const defaultHistoryDays = 7

// transactionsResponse is the body of GET /api/wallets/{wallet}/transactions
type transactionsResponse struct {
	Wallet       string            `json:"wallet"`
	LatestBlock  uint64            `json:"latest_block"`
	Transactions []ledger.Entry    `json:"transactions"`
	Skipped      portfolio.Skipped `json:"skipped"`
}

// priceResponse is the body of GET /api/markets/{symbol}/price
type priceResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	At     time.Time       `json:"at"`
}

// GET /api/wallets/{wallet}/portfolio
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	wallet, err := portfolio.ParseWallet(chi.URLParam(r, "wallet"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filter, err := filterFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.portfolios.WalletView(r.Context(), wallet, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// GET /api/wallets/{wallet}/transactions?type=&start=&end=
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	wallet, err := portfolio.ParseWallet(chi.URLParam(r, "wallet"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filter, err := filterFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	h, err := s.portfolios.History(r.Context(), wallet)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entries := h.Ledger.Filter(filter)
	if entries == nil {
		entries = []ledger.Entry{}
	}
	s.writeJSON(w, http.StatusOK, transactionsResponse{
		Wallet:       wallet.Hex(),
		LatestBlock:  h.LatestBlock,
		Transactions: entries,
		Skipped:      h.Skipped,
	})
}

// GET /api/markets/{symbol}/price
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	price, err := s.markets.LivePrice(r.Context(), symbol)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, priceResponse{
		Symbol: ledger.NormalizeSymbol(symbol),
		Price:  price,
		At:     time.Now().UTC(),
	})
}

// GET /api/markets/{symbol}/history?days=N
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	days := defaultHistoryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: days must be an integer, got %q", apperr.ErrMalformedInput, raw))
			return
		}
		days = n
	}

	series, err := s.markets.HistoricalSeries(r.Context(), chi.URLParam(r, "symbol"), days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, series)
}

// GET /api/markets/global
func (s *Server) handleGlobal(w http.ResponseWriter, r *http.Request) {
	stats, err := s.markets.GlobalMarket(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func filterFromQuery(r *http.Request) (ledger.Filter, error) {
	q := r.URL.Query()
	return ledger.ParseFilter(q.Get("type"), q.Get("start"), q.Get("end"))
}
