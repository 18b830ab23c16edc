package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"skillstreak/address"
	"skillstreak/events"
	"skillstreak/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newMockEscrow() (*Escrow, *MockTokenAccountRepository, *MockTransferRepository, *MockEventPublisher) {
	tokens := new(MockTokenAccountRepository)
	transfers := new(MockTransferRepository)
	publisher := new(MockEventPublisher)

	uow := new(MockUnitOfWork)
	uow.SetRepositories(MockRepositories{
		TokenAccounts: tokens,
		Transfers:     transfers,
		EventBus:      publisher,
	})
	return NewEscrow(uow), tokens, transfers, publisher
}

func TestEscrow_Deposit(t *testing.T) {
	ctx := context.Background()
	escrow, tokens, transfers, publisher := newMockEscrow()

	wallet := address.FromSeed("wallet")
	vault := address.FromSeed("vault")

	tokens.On("Debit", ctx, wallet, uint64(40)).Return(uint64(60), nil)
	tokens.On("Credit", ctx, vault, uint64(40)).Return(uint64(140), nil)
	transfers.On("Record", ctx, mock.MatchedBy(func(tr *models.Transfer) bool {
		return tr.FromAddress != nil && *tr.FromAddress == wallet &&
			tr.ToAddress == vault &&
			tr.Amount == 40 &&
			tr.Kind == models.TransferKindStakeDeposit
	})).Return(nil)
	publisher.On("Publish", events.BalanceChangeEvent{
		Account: wallet, OldBalance: 100, NewBalance: 60, TransferKind: models.TransferKindStakeDeposit, Amount: 40,
	}).Return()
	publisher.On("Publish", events.BalanceChangeEvent{
		Account: vault, OldBalance: 100, NewBalance: 140, TransferKind: models.TransferKindStakeDeposit, Credit: true, Amount: 40,
	}).Return()

	err := escrow.Deposit(ctx, wallet, vault, 40, Movement{Kind: models.TransferKindStakeDeposit})

	assert.NoError(t, err)
	tokens.AssertExpectations(t)
	transfers.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestEscrow_ShortfallErrors(t *testing.T) {
	ctx := context.Background()
	from := address.FromSeed("from")
	to := address.FromSeed("to")

	tests := []struct {
		name     string
		debitErr error
		deposit  bool
		wantErr  error
	}{
		{"deposit with low balance", ErrInsufficientBalance, true, ErrInsufficientFunds},
		{"deposit without wallet", ErrTokenAccountNotFound, true, ErrInsufficientFunds},
		{"withdraw from low vault", ErrInsufficientBalance, false, ErrVaultUnderfunded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			escrow, tokens, transfers, publisher := newMockEscrow()
			tokens.On("Debit", ctx, from, uint64(5)).Return(uint64(0), tt.debitErr)

			var err error
			if tt.deposit {
				err = escrow.Deposit(ctx, from, to, 5, Movement{})
			} else {
				err = escrow.Withdraw(ctx, from, to, 5, Movement{})
			}

			assert.ErrorIs(t, err, tt.wantErr)
			tokens.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
			transfers.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
			publisher.AssertNotCalled(t, "Publish", mock.Anything)
		})
	}
}

func TestEscrow_AmountChecks(t *testing.T) {
	ctx := context.Background()
	escrow, tokens, _, _ := newMockEscrow()
	a, b := address.FromSeed("a"), address.FromSeed("b")

	assert.ErrorIs(t, escrow.Deposit(ctx, a, b, 0, Movement{}), ErrInvalidAmount)
	assert.ErrorIs(t, escrow.Deposit(ctx, a, b, math.MaxInt64+1, Movement{}), ErrArithmeticOverflow)
	tokens.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
}

func TestEscrow_CreditOverflow(t *testing.T) {
	ctx := context.Background()
	escrow, tokens, _, _ := newMockEscrow()
	a, b := address.FromSeed("a"), address.FromSeed("b")

	tokens.On("Debit", ctx, a, uint64(1)).Return(uint64(0), nil)
	tokens.On("Credit", ctx, b, uint64(1)).Return(uint64(0), ErrBalanceOverflow)

	err := escrow.Deposit(ctx, a, b, 1, Movement{})
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestEscrow_RecordFailure(t *testing.T) {
	ctx := context.Background()
	escrow, tokens, transfers, _ := newMockEscrow()
	a, b := address.FromSeed("a"), address.FromSeed("b")

	tokens.On("Debit", ctx, a, uint64(3)).Return(uint64(0), nil)
	tokens.On("Credit", ctx, b, uint64(3)).Return(uint64(3), nil)
	transfers.On("Record", ctx, mock.Anything).Return(errors.New("connection reset"))

	err := escrow.Withdraw(ctx, a, b, 3, Movement{Kind: models.TransferKindPayout})
	assert.ErrorContains(t, err, "failed to record transfer")
}
