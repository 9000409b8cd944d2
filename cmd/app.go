package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/matrixise/coinledger/internal/blockchain"
	"github.com/matrixise/coinledger/internal/config"
	"github.com/matrixise/coinledger/internal/events"
	"github.com/matrixise/coinledger/internal/market"
	"github.com/matrixise/coinledger/internal/portfolio"
)

// app holds the collaborators shared by the sub-commands
type app struct {
	cfg       *config.Config
	client    *blockchain.Client
	contract  *blockchain.Contract
	markets   *market.Client
	portfolio *portfolio.Service
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	client, err := blockchain.NewClient(ctx, cfg.RPCUrls)
	if err != nil {
		return nil, fmt.Errorf("RPC connection failed: %w", err)
	}

	if len(cfg.RPCUrls) == 1 {
		slog.Info("RPC connection established", "endpoint", cfg.RPCUrls[0])
	} else {
		slog.Info("RPC connection established with failover",
			"endpoints", len(cfg.RPCUrls),
			"primary", cfg.RPCUrls[0])
	}

	if cfg.ChainID > 0 {
		id, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, err
		}
		if id.Cmp(big.NewInt(cfg.ChainID)) != 0 {
			client.Close()
			return nil, fmt.Errorf("RPC endpoint is on chain %s, expected %d", id, cfg.ChainID)
		}
	}

	contract, err := blockchain.NewContract(client, cfg.ContractAddress)
	if err != nil {
		client.Close()
		return nil, err
	}

	markets := market.NewDefaultClient(cfg.Binance.BaseURL, cfg.Binance.Timeout, market.CoinGeckoConfig{
		BaseURL:   cfg.CoinGecko.BaseURL,
		APIKey:    cfg.CoinGecko.APIKey,
		RateLimit: cfg.CoinGecko.RateLimit,
		Burst:     cfg.CoinGecko.Burst,
		Timeout:   cfg.CoinGecko.Timeout,
	})

	fetcher := events.NewFetcher(contract, contract, cfg.ChunkSize)

	return &app{
		cfg:       cfg,
		client:    client,
		contract:  contract,
		markets:   markets,
		portfolio: portfolio.NewService(contract, fetcher, markets, cfg.DeployBlock),
	}, nil
}

// enableSigner loads the admin key so the contract can submit transactions
func (a *app) enableSigner(ctx context.Context) error {
	key, err := config.AdminPrivateKey()
	if err != nil {
		return err
	}
	chainID := big.NewInt(a.cfg.ChainID)
	if a.cfg.ChainID == 0 {
		if chainID, err = a.client.ChainID(ctx); err != nil {
			return err
		}
	}
	if err := a.contract.WithSigner(key, chainID); err != nil {
		return err
	}
	from, _ := a.contract.SignerAddress()
	owner, err := a.contract.Admin(ctx)
	if err != nil {
		return fmt.Errorf("read contract admin: %w", err)
	}
	if owner != from {
		slog.Warn("Signer is not the contract admin, transactions will revert",
			"signer", from.Hex(), "admin", owner.Hex())
	}
	slog.Debug("Admin signer loaded", "address", from.Hex())
	return nil
}

func (a *app) Close() {
	a.client.Close()
}
