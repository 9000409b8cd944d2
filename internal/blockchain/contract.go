package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/matrixise/coinledger/internal/apperr"
	"github.com/matrixise/coinledger/internal/ledger"
	"github.com/shopspring/decimal"
)

// ErrNoSigner is returned by Submit when no admin key was configured
var ErrNoSigner = errors.New("no transaction signer configured")

// PendingRequest is an outstanding virtual USD borrow request
type PendingRequest struct {
	User   common.Address  `json:"user"`
	Amount decimal.Decimal `json:"amount"`
}

// rawTransaction mirrors one element of getTransactionHistory's tuple[]
type rawTransaction struct {
	TxType    string
	Symbol    string
	Amount    *big.Int
	Timestamp *big.Int
}

// Contract is a typed adapter over the trading platform contract
type Contract struct {
	client  *Client
	address common.Address
	abi     abi.ABI
	signer  *bind.TransactOpts
}

// NewContract binds address with the platform ABI
func NewContract(client *Client, address string) (*Contract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: contract address %q", apperr.ErrMalformedInput, address)
	}

	parsedABI, err := abi.JSON(strings.NewReader(platformABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	return &Contract{
		client:  client,
		address: common.HexToAddress(address),
		abi:     parsedABI,
	}, nil
}

// WithSigner enables Submit using a hex-encoded private key
func (c *Contract) WithSigner(hexKey string, chainID *big.Int) error {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return fmt.Errorf("transactor: %w", err)
	}
	c.signer = opts
	return nil
}

// SignerAddress returns the account Submit signs with
func (c *Contract) SignerAddress() (common.Address, bool) {
	if c.signer == nil {
		return common.Address{}, false
	}
	return c.signer.From, true
}

// Address returns the bound contract address
func (c *Contract) Address() common.Address {
	return c.address
}

// Call runs a read-only contract method as from and returns the unpacked outputs
func (c *Contract) Call(ctx context.Context, from common.Address, method string, args ...any) ([]any, error) {
	var out []any
	err := c.client.do(ctx, func(ctx context.Context, ec *ethclient.Client) error {
		out = nil
		bound := bind.NewBoundContract(c.address, c.abi, ec, ec, ec)
		return bound.Call(&bind.CallOpts{Context: ctx, From: from}, &out, method, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

// Submit sends a state-changing transaction and returns its hash without waiting for inclusion
func (c *Contract) Submit(ctx context.Context, method string, args ...any) (string, error) {
	if c.signer == nil {
		return "", ErrNoSigner
	}

	ec, _, err := c.client.GetHealthyEndpoint(ctx)
	if err != nil {
		return "", fmt.Errorf("no RPC endpoint available: %w", err)
	}

	txCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	opts := *c.signer
	opts.Context = txCtx
	bound := bind.NewBoundContract(c.address, c.abi, ec, ec, ec)
	tx, err := bound.Transact(&opts, method, args...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}
	return tx.Hash().Hex(), nil
}

// CoinBalance returns the on-chain quantity of symbol held by wallet
func (c *Contract) CoinBalance(ctx context.Context, wallet common.Address, symbol string) (decimal.Decimal, error) {
	return c.callUint(ctx, wallet, "getCoinBalance", wallet, symbol)
}

// USDBalance returns the virtual USD credit of wallet, in cents
func (c *Contract) USDBalance(ctx context.Context, wallet common.Address) (decimal.Decimal, error) {
	return c.callUint(ctx, wallet, "getUSDBalance", wallet)
}

// BorrowedAmount returns the outstanding borrowed amount of wallet
func (c *Contract) BorrowedAmount(ctx context.Context, wallet common.Address) (decimal.Decimal, error) {
	return c.callUint(ctx, wallet, "getBorrowedAmount", wallet)
}

// PendingAmount returns the amount wallet has requested and not yet had approved
func (c *Contract) PendingAmount(ctx context.Context, wallet common.Address) (decimal.Decimal, error) {
	return c.callUint(ctx, common.Address{}, "pendingRequests", wallet)
}

// TransactionHistory returns the rows stored by the contract for wallet.
// The contract keys history on msg.sender, so the call is made from wallet.
func (c *Contract) TransactionHistory(ctx context.Context, wallet common.Address) ([]ledger.StoredTransaction, error) {
	out, err := c.Call(ctx, wallet, "getTransactionHistory")
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("getTransactionHistory: expected 1 output, got %d", len(out))
	}

	raw := *abi.ConvertType(out[0], new([]rawTransaction)).(*[]rawTransaction)
	return toStoredTransactions(raw), nil
}

func toStoredTransactions(raw []rawTransaction) []ledger.StoredTransaction {
	rows := make([]ledger.StoredTransaction, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, ledger.StoredTransaction{
			TxType:    r.TxType,
			Symbol:    r.Symbol,
			Amount:    bigToDecimal(r.Amount),
			Timestamp: time.Unix(bigToInt64(r.Timestamp), 0).UTC(),
		})
	}
	return rows
}

// UserHoldings returns the symbols and balances the contract tracks for wallet
func (c *Contract) UserHoldings(ctx context.Context, wallet common.Address) (map[string]decimal.Decimal, error) {
	out, err := c.Call(ctx, wallet, "getUserHoldings", wallet)
	if err != nil {
		return nil, err
	}
	if len(out) != 2 {
		return nil, fmt.Errorf("getUserHoldings: expected 2 outputs, got %d", len(out))
	}
	symbols, ok := out[0].([]string)
	if !ok {
		return nil, fmt.Errorf("getUserHoldings: unexpected symbols type %T", out[0])
	}
	amounts, ok := out[1].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("getUserHoldings: unexpected amounts type %T", out[1])
	}
	if len(symbols) != len(amounts) {
		return nil, fmt.Errorf("getUserHoldings: %d symbols for %d amounts", len(symbols), len(amounts))
	}

	holdings := make(map[string]decimal.Decimal, len(symbols))
	for i, s := range symbols {
		holdings[ledger.NormalizeSymbol(s)] = bigToDecimal(amounts[i])
	}
	return holdings, nil
}

// PendingRequests lists every outstanding borrow request
func (c *Contract) PendingRequests(ctx context.Context) ([]PendingRequest, error) {
	out, err := c.Call(ctx, common.Address{}, "getAllPendingRequests")
	if err != nil {
		return nil, err
	}
	if len(out) != 2 {
		return nil, fmt.Errorf("getAllPendingRequests: expected 2 outputs, got %d", len(out))
	}
	users, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("getAllPendingRequests: unexpected users type %T", out[0])
	}
	amounts, ok := out[1].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("getAllPendingRequests: unexpected amounts type %T", out[1])
	}
	if len(users) != len(amounts) {
		return nil, fmt.Errorf("getAllPendingRequests: %d users for %d amounts", len(users), len(amounts))
	}

	requests := make([]PendingRequest, 0, len(users))
	for i, u := range users {
		requests = append(requests, PendingRequest{User: u, Amount: bigToDecimal(amounts[i])})
	}
	return requests, nil
}

// IsRegistered reports whether user has been registered on the platform
func (c *Contract) IsRegistered(ctx context.Context, user common.Address) (bool, error) {
	out, err := c.Call(ctx, common.Address{}, "registered", user)
	if err != nil {
		return false, err
	}
	if len(out) != 1 {
		return false, fmt.Errorf("registered: expected 1 output, got %d", len(out))
	}
	ok, isBool := out[0].(bool)
	if !isBool {
		return false, fmt.Errorf("registered: unexpected type %T", out[0])
	}
	return ok, nil
}

// Admin returns the contract administrator
func (c *Contract) Admin(ctx context.Context) (common.Address, error) {
	out, err := c.Call(ctx, common.Address{}, "admin")
	if err != nil {
		return common.Address{}, err
	}
	if len(out) != 1 {
		return common.Address{}, fmt.Errorf("admin: expected 1 output, got %d", len(out))
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("admin: unexpected type %T", out[0])
	}
	return addr, nil
}

// LatestBlock returns the current head block number
func (c *Contract) LatestBlock(ctx context.Context) (uint64, error) {
	return c.client.LatestBlock(ctx)
}

// BlockTime returns the timestamp of block number
func (c *Contract) BlockTime(ctx context.Context, number uint64) (time.Time, error) {
	return c.client.BlockTime(ctx, number)
}

func (c *Contract) callUint(ctx context.Context, from common.Address, method string, args ...any) (decimal.Decimal, error) {
	out, err := c.Call(ctx, from, method, args...)
	if err != nil {
		return decimal.Zero, err
	}
	if len(out) != 1 {
		return decimal.Zero, fmt.Errorf("%s: expected 1 output, got %d", method, len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: unexpected type %T", method, out[0])
	}
	return bigToDecimal(v), nil
}

func bigToDecimal(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, 0)
}

func bigToInt64(v *big.Int) int64 {
	if v == nil || !v.IsInt64() {
		return 0
	}
	return v.Int64()
}

// PublicKeyAddress derives the address of a hex private key
func PublicKeyAddress(hexKey string) (common.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid private key: %w", err)
	}
	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, errors.New("unexpected public key type")
	}
	return crypto.PubkeyToAddress(*pub), nil
}
