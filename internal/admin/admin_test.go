package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/matrixise/coinledger/internal/apperr"
	"github.com/matrixise/coinledger/internal/blockchain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const userHex = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

var user = common.HexToAddress(userHex)

type mockContract struct {
	mock.Mock
}

func (m *mockContract) PendingRequests(ctx context.Context) ([]blockchain.PendingRequest, error) {
	args := m.Called(ctx)
	reqs, _ := args.Get(0).([]blockchain.PendingRequest)
	return reqs, args.Error(1)
}

func (m *mockContract) PendingAmount(ctx context.Context, u common.Address) (decimal.Decimal, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockContract) IsRegistered(ctx context.Context, u common.Address) (bool, error) {
	args := m.Called(ctx, u)
	return args.Bool(0), args.Error(1)
}

func (m *mockContract) Submit(ctx context.Context, method string, a ...any) (string, error) {
	args := m.Called(ctx, method, a)
	return args.String(0), args.Error(1)
}

func TestPending(t *testing.T) {
	other := common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	c := &mockContract{}
	c.On("PendingRequests", mock.Anything).Return([]blockchain.PendingRequest{
		{User: user, Amount: decimal.NewFromInt(500)},
		{User: other, Amount: decimal.Zero},
	}, nil)

	reqs, err := NewService(c).Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, user, reqs[0].User)

	failing := &mockContract{}
	failing.On("PendingRequests", mock.Anything).Return(nil, errors.New("connection refused"))
	_, err = NewService(failing).Pending(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name    string
		call    func(*Service, context.Context, string) (string, error)
		method  string
		pending int64
		wantErr error
	}{
		{"approve", (*Service).Approve, "approveFunds", 500, nil},
		{"reject", (*Service).Reject, "rejectFunds", 500, nil},
		{"approve without request", (*Service).Approve, "approveFunds", 0, ErrNoPendingRequest},
		{"reject without request", (*Service).Reject, "rejectFunds", 0, ErrNoPendingRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &mockContract{}
			c.On("PendingAmount", mock.Anything, user).Return(decimal.NewFromInt(tt.pending), nil)
			c.On("Submit", mock.Anything, tt.method, []any{user}).Return("0xabc", nil).Maybe()

			hash, err := tt.call(NewService(c), context.Background(), userHex)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				c.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "0xabc", hash)
			c.AssertExpectations(t)
		})
	}
}

func TestRegister(t *testing.T) {
	t.Run("new user", func(t *testing.T) {
		c := &mockContract{}
		c.On("IsRegistered", mock.Anything, user).Return(false, nil)
		c.On("Submit", mock.Anything, "adminRegister", []any{user}).Return("0xdef", nil)

		hash, err := NewService(c).Register(context.Background(), userHex)
		require.NoError(t, err)
		assert.Equal(t, "0xdef", hash)
	})

	t.Run("already registered", func(t *testing.T) {
		c := &mockContract{}
		c.On("IsRegistered", mock.Anything, user).Return(true, nil)

		_, err := NewService(c).Register(context.Background(), userHex)
		assert.ErrorIs(t, err, ErrAlreadyRegistered)
		c.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("submit fails", func(t *testing.T) {
		c := &mockContract{}
		c.On("IsRegistered", mock.Anything, user).Return(false, nil)
		c.On("Submit", mock.Anything, "adminRegister", []any{user}).Return("", blockchain.ErrNoSigner)

		_, err := NewService(c).Register(context.Background(), userHex)
		assert.ErrorIs(t, err, blockchain.ErrNoSigner)
	})
}

func TestMalformedAddress(t *testing.T) {
	svc := NewService(&mockContract{})
	ctx := context.Background()

	for _, input := range []string{"", "0x123", "not-an-address"} {
		_, err := svc.Approve(ctx, input)
		assert.ErrorIs(t, err, apperr.ErrMalformedInput, "approve %q", input)
		_, err = svc.Reject(ctx, input)
		assert.ErrorIs(t, err, apperr.ErrMalformedInput, "reject %q", input)
		_, err = svc.Register(ctx, input)
		assert.ErrorIs(t, err, apperr.ErrMalformedInput, "register %q", input)
	}
}
