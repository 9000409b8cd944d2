// Package server exposes wallet read models and market data as JSON over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/matrixise/coinledger/internal/apperr"
	"github.com/matrixise/coinledger/internal/ledger"
	"github.com/matrixise/coinledger/internal/market"
	"github.com/matrixise/coinledger/internal/portfolio"
	"github.com/shopspring/decimal"
)

// Portfolios builds per-wallet read models
type Portfolios interface {
	WalletView(ctx context.Context, wallet common.Address, filter ledger.Filter) (*portfolio.WalletView, error)
	History(ctx context.Context, wallet common.Address) (*portfolio.History, error)
}

// Markets serves live and historical market data
type Markets interface {
	LivePrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	HistoricalSeries(ctx context.Context, symbol string, days int) (market.Series, error)
	GlobalMarket(ctx context.Context) (market.GlobalStats, error)
}

// Config holds server dependencies
type Config struct {
	Port       int
	Health     http.Handler
	Portfolios Portfolios
	Markets    Markets
}

// Server is the JSON read-model API
type Server struct {
	router     *chi.Mux
	server     *http.Server
	portfolios Portfolios
	markets    Markets
	logger     *slog.Logger
}

// New creates a server with all routes mounted
func New(cfg Config) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		portfolios: cfg.Portfolios,
		markets:    cfg.Markets,
		logger:     slog.Default().With("component", "server"),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if cfg.Health != nil {
		s.router.Method(http.MethodGet, "/health", cfg.Health)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/wallets/{wallet}", func(r chi.Router) {
			r.Get("/portfolio", s.handlePortfolio)
			r.Get("/transactions", s.handleTransactions)
		})
		r.Route("/markets", func(r chi.Router) {
			r.Get("/global", s.handleGlobal)
			r.Get("/{symbol}/price", s.handlePrice)
			r.Get("/{symbol}/history", s.handleHistory)
		})
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps error sentinels to status codes
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, apperr.ErrMalformedInput):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperr.ErrNoDataAvailable):
		status, message = http.StatusNotFound, apperr.ErrNoDataAvailable.Error()
	case errors.Is(err, apperr.ErrPriceUnavailable):
		status, message = http.StatusServiceUnavailable, apperr.ErrPriceUnavailable.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusGatewayTimeout, "upstream timeout"
	default:
		s.logger.Error("Request failed", "path", r.URL.Path, "error", err)
	}

	s.writeJSON(w, status, map[string]string{"error": message})
}
