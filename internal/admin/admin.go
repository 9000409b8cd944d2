// Package admin drives the borrow-request workflow of the platform contract
// through the administrator's signing key.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/matrixise/coinledger/internal/apperr"
	"github.com/matrixise/coinledger/internal/blockchain"
	"github.com/shopspring/decimal"
)

var (
	// ErrAlreadyRegistered is returned by Register for a known user
	ErrAlreadyRegistered = errors.New("user already registered")

	// ErrNoPendingRequest is returned when approving or rejecting a user without a request
	ErrNoPendingRequest = errors.New("no pending request")
)

// Contract is the part of the platform contract the workflow needs
type Contract interface {
	PendingRequests(ctx context.Context) ([]blockchain.PendingRequest, error)
	PendingAmount(ctx context.Context, user common.Address) (decimal.Decimal, error)
	IsRegistered(ctx context.Context, user common.Address) (bool, error)
	Submit(ctx context.Context, method string, args ...any) (string, error)
}

// Service runs administrator operations
type Service struct {
	contract Contract
	logger   *slog.Logger
}

// NewService creates an admin service
func NewService(contract Contract) *Service {
	return &Service{
		contract: contract,
		logger:   slog.Default(),
	}
}

// Pending lists outstanding borrow requests with a non-zero amount
func (s *Service) Pending(ctx context.Context) ([]blockchain.PendingRequest, error) {
	all, err := s.contract.PendingRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending requests: %w", err)
	}

	out := make([]blockchain.PendingRequest, 0, len(all))
	for _, r := range all {
		if r.Amount.Sign() > 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

// Approve grants the pending request of user
func (s *Service) Approve(ctx context.Context, user string) (string, error) {
	return s.settle(ctx, user, "approveFunds")
}

// Reject discards the pending request of user
func (s *Service) Reject(ctx context.Context, user string) (string, error) {
	return s.settle(ctx, user, "rejectFunds")
}

func (s *Service) settle(ctx context.Context, user, method string) (string, error) {
	addr, err := parseAddress(user)
	if err != nil {
		return "", err
	}

	amount, err := s.contract.PendingAmount(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("pending amount: %w", err)
	}
	if amount.Sign() <= 0 {
		return "", fmt.Errorf("%w for %s", ErrNoPendingRequest, addr.Hex())
	}

	txHash, err := s.contract.Submit(ctx, method, addr)
	if err != nil {
		return "", err
	}
	s.logger.Info("Borrow request settled", "method", method, "user", addr.Hex(), "amount", amount.String(), "tx", txHash)
	return txHash, nil
}

// Register enrols user on the platform unless already registered
func (s *Service) Register(ctx context.Context, user string) (string, error) {
	addr, err := parseAddress(user)
	if err != nil {
		return "", err
	}

	registered, err := s.contract.IsRegistered(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("registration check: %w", err)
	}
	if registered {
		return "", fmt.Errorf("%w: %s", ErrAlreadyRegistered, addr.Hex())
	}

	txHash, err := s.contract.Submit(ctx, "adminRegister", addr)
	if err != nil {
		return "", err
	}
	s.logger.Info("User registered", "user", addr.Hex(), "tx", txHash)
	return txHash, nil
}

func parseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: invalid address %q", apperr.ErrMalformedInput, s)
	}
	return common.HexToAddress(s), nil
}
