package snapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/matrixise/coinledger/internal/ledger"
	"github.com/matrixise/coinledger/internal/portfolio"
	"github.com/matrixise/coinledger/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type mockViews struct {
	mock.Mock
}

func (m *mockViews) WalletView(ctx context.Context, wallet common.Address, filter ledger.Filter) (*portfolio.WalletView, error) {
	args := m.Called(ctx, wallet, filter)
	view, _ := args.Get(0).(*portfolio.WalletView)
	return view, args.Error(1)
}

type fakeStore struct {
	saved    []storage.Snapshot
	previous map[string]*storage.Snapshot
	saveErr  error
}

func (f *fakeStore) SaveSnapshot(_ context.Context, snap storage.Snapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, snap)
	return nil
}

func (f *fakeStore) LatestSnapshot(_ context.Context, wallet string) (*storage.Snapshot, error) {
	if s, ok := f.previous[wallet]; ok {
		return s, nil
	}
	return nil, pgx.ErrNoRows
}

func view(wallet common.Address, profit int64) *portfolio.WalletView {
	return &portfolio.WalletView{
		Wallet: wallet.Hex(),
		Holdings: []portfolio.Holding{
			{Symbol: "BTC", Balance: decimal.NewFromInt(1), LivePrice: decimal.NewFromInt(100), TotalValue: decimal.NewFromInt(100)},
		},
		Profit: decimal.NewFromInt(profit),
	}
}

func TestRecorderRun(t *testing.T) {
	views := &mockViews{}
	views.On("WalletView", mock.Anything, alice, ledger.Filter{}).Return(view(alice, 10), nil)
	views.On("WalletView", mock.Anything, bob, ledger.Filter{}).Return(view(bob, -3), nil)
	store := &fakeStore{previous: map[string]*storage.Snapshot{
		alice.Hex(): {Profit: decimal.NewFromInt(4)},
	}}

	err := NewRecorder(views, store, []common.Address{alice, bob}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, store.saved, 2)
	assert.Equal(t, store.saved[0].RunID, store.saved[1].RunID)
	assert.NotEqual(t, uuid.Nil, store.saved[0].RunID)
	assert.Equal(t, alice.Hex(), store.saved[0].Wallet)
	assert.True(t, decimal.NewFromInt(100).Equal(store.saved[0].TotalValue))
	assert.Equal(t, bob.Hex(), store.saved[1].Wallet)
	views.AssertExpectations(t)
}

func TestRecorderSkipsFailingWallet(t *testing.T) {
	views := &mockViews{}
	views.On("WalletView", mock.Anything, alice, ledger.Filter{}).Return(nil, errors.New("latest block: timeout"))
	views.On("WalletView", mock.Anything, bob, ledger.Filter{}).Return(view(bob, 1), nil)
	store := &fakeStore{}

	err := NewRecorder(views, store, []common.Address{alice, bob}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, store.saved, 1)
	assert.Equal(t, bob.Hex(), store.saved[0].Wallet)
}

func TestRecorderAllWalletsFail(t *testing.T) {
	views := &mockViews{}
	views.On("WalletView", mock.Anything, alice, ledger.Filter{}).Return(view(alice, 1), nil)
	store := &fakeStore{saveErr: errors.New("connection reset")}

	err := NewRecorder(views, store, []common.Address{alice}).Run(context.Background())
	assert.ErrorContains(t, err, "no snapshot recorded")
}

func TestRecorderContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	views := &mockViews{}
	err := NewRecorder(views, &fakeStore{}, []common.Address{alice}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	views.AssertNotCalled(t, "WalletView", mock.Anything, mock.Anything, mock.Anything)
}
