package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"skillstreak/address"
	"skillstreak/events"
	"skillstreak/models"
)

// Movement describes why tokens move, for the transfer history
type Movement struct {
	Kind     models.TransferKind
	Related  *address.Address
	Metadata map[string]any
}

// Escrow moves tokens between token accounts inside a unit of work.
// It is the single entry point for every balance change in the system.
type Escrow struct {
	uow UnitOfWork
}

// NewEscrow binds an escrow to a started unit of work
func NewEscrow(uow UnitOfWork) *Escrow {
	return &Escrow{uow: uow}
}

// Open creates the token account if it does not exist yet
func (e *Escrow) Open(ctx context.Context, addr, owner address.Address) error {
	return e.uow.TokenAccountRepository().EnsureExists(ctx, addr, owner)
}

// Deposit moves amount from a payer's wallet into a program vault
func (e *Escrow) Deposit(ctx context.Context, payer, vault address.Address, amount uint64, m Movement) error {
	return e.move(ctx, payer, vault, amount, m, ErrInsufficientFunds)
}

// Withdraw moves amount out of a program vault
func (e *Escrow) Withdraw(ctx context.Context, vault, payee address.Address, amount uint64, m Movement) error {
	return e.move(ctx, vault, payee, amount, m, ErrVaultUnderfunded)
}

// Mint credits new tokens to an existing account. Only the dev faucet mints.
func (e *Escrow) Mint(ctx context.Context, to address.Address, amount uint64, m Movement) (uint64, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}

	repo := e.uow.TokenAccountRepository()
	before, err := repo.GetForUpdate(ctx, to)
	if err != nil {
		return 0, err
	}
	if before == nil {
		return 0, fmt.Errorf("mint to %s: %w", to, ErrTokenAccountNotFound)
	}

	after, err := repo.Credit(ctx, to, amount)
	if err != nil {
		return 0, creditError(err)
	}

	if err := e.record(ctx, nil, to, amount, m); err != nil {
		return 0, err
	}
	e.publishChange(to, before.Balance, after, amount, true, m.Kind)
	return after, nil
}

func (e *Escrow) move(ctx context.Context, from, to address.Address, amount uint64, m Movement, shortfall error) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	repo := e.uow.TokenAccountRepository()
	fromAfter, err := repo.Debit(ctx, from, amount)
	switch {
	case errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrTokenAccountNotFound):
		return fmt.Errorf("%s cannot pay %d: %w", from, amount, shortfall)
	case err != nil:
		return err
	}

	toAfter, err := repo.Credit(ctx, to, amount)
	if err != nil {
		return creditError(err)
	}

	if err := e.record(ctx, &from, to, amount, m); err != nil {
		return err
	}
	e.publishChange(from, fromAfter+amount, fromAfter, amount, false, m.Kind)
	e.publishChange(to, toAfter-amount, toAfter, amount, true, m.Kind)
	return nil
}

func (e *Escrow) record(ctx context.Context, from *address.Address, to address.Address, amount uint64, m Movement) error {
	transfer := &models.Transfer{
		FromAddress:    from,
		ToAddress:      to,
		Amount:         amount,
		Kind:           m.Kind,
		RelatedAddress: m.Related,
		Metadata:       m.Metadata,
	}
	if err := e.uow.TransferRepository().Record(ctx, transfer); err != nil {
		return fmt.Errorf("failed to record transfer: %w", err)
	}
	return nil
}

func (e *Escrow) publishChange(account address.Address, oldBalance, newBalance, amount uint64, credit bool, kind models.TransferKind) {
	e.uow.EventBus().Publish(events.BalanceChangeEvent{
		Account:      account,
		OldBalance:   oldBalance,
		NewBalance:   newBalance,
		TransferKind: kind,
		Credit:       credit,
		Amount:       amount,
	})
}

func checkAmount(amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if amount > math.MaxInt64 {
		return fmt.Errorf("amount %d: %w", amount, ErrArithmeticOverflow)
	}
	return nil
}

func creditError(err error) error {
	switch {
	case errors.Is(err, ErrBalanceOverflow):
		return fmt.Errorf("%v: %w", err, ErrArithmeticOverflow)
	case errors.Is(err, ErrTokenAccountNotFound):
		return err
	default:
		return fmt.Errorf("failed to credit: %w", err)
	}
}
