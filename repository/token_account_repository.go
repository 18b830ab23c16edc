package repository

import (
	"context"
	"errors"
	"fmt"

	"skillstreak/address"
	"skillstreak/database"
	"skillstreak/models"
	"skillstreak/service"

	"github.com/jackc/pgx/v5"
)

// TokenAccountRepository implements the TokenAccountRepository interface
type TokenAccountRepository struct {
	q queryable
}

// NewTokenAccountRepository creates a new token account repository
func NewTokenAccountRepository(db *database.DB) *TokenAccountRepository {
	return &TokenAccountRepository{q: db.Pool}
}

func newTokenAccountRepositoryWithTx(tx queryable) *TokenAccountRepository {
	return &TokenAccountRepository{q: tx}
}

const tokenAccountColumns = `address, owner, balance, created_at, updated_at`

func scanTokenAccount(row pgx.Row) (*models.TokenAccount, error) {
	var acct models.TokenAccount
	var balance int64
	err := row.Scan(&acct.Address, &acct.Owner, &balance, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return nil, err
	}
	acct.Balance = uint64(balance)
	return &acct, nil
}

// Create creates a token account with a zero balance
func (r *TokenAccountRepository) Create(ctx context.Context, addr, owner address.Address) (*models.TokenAccount, error) {
	query := `
		INSERT INTO token_accounts (address, owner, balance)
		VALUES ($1, $2, 0)
		RETURNING ` + tokenAccountColumns

	acct, err := scanTokenAccount(r.q.QueryRow(ctx, query, addr, owner))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("token account %s: %w", addr, service.ErrAccountExists)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create token account %s: %w", addr, err)
	}
	return acct, nil
}

// EnsureExists creates the account if it is missing
func (r *TokenAccountRepository) EnsureExists(ctx context.Context, addr, owner address.Address) error {
	query := `
		INSERT INTO token_accounts (address, owner, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (address) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, query, addr, owner); err != nil {
		return fmt.Errorf("failed to ensure token account %s: %w", addr, err)
	}
	return nil
}

// GetByAddress retrieves a token account
func (r *TokenAccountRepository) GetByAddress(ctx context.Context, addr address.Address) (*models.TokenAccount, error) {
	return r.get(ctx, addr, "")
}

// GetForUpdate retrieves and locks a token account until the transaction ends
func (r *TokenAccountRepository) GetForUpdate(ctx context.Context, addr address.Address) (*models.TokenAccount, error) {
	return r.get(ctx, addr, " FOR UPDATE")
}

func (r *TokenAccountRepository) get(ctx context.Context, addr address.Address, lock string) (*models.TokenAccount, error) {
	query := `SELECT ` + tokenAccountColumns + ` FROM token_accounts WHERE address = $1` + lock

	acct, err := scanTokenAccount(r.q.QueryRow(ctx, query, addr))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token account %s: %w", addr, err)
	}
	return acct, nil
}

// Debit subtracts amount, failing instead of going negative
func (r *TokenAccountRepository) Debit(ctx context.Context, addr address.Address, amount uint64) (uint64, error) {
	amt, err := signed(amount)
	if err != nil {
		return 0, err
	}

	query := `
		UPDATE token_accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE address = $2 AND balance >= $1
		RETURNING balance
	`
	var balance int64
	err = r.q.QueryRow(ctx, query, amt, addr).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, r.explainMiss(ctx, addr, service.ErrInsufficientBalance)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to debit token account %s: %w", addr, err)
	}
	return uint64(balance), nil
}

// Credit adds amount, failing if the balance would leave the BIGINT range
func (r *TokenAccountRepository) Credit(ctx context.Context, addr address.Address, amount uint64) (uint64, error) {
	amt, err := signed(amount)
	if err != nil {
		return 0, err
	}

	query := `
		UPDATE token_accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE address = $2 AND balance <= 9223372036854775807 - $1
		RETURNING balance
	`
	var balance int64
	err = r.q.QueryRow(ctx, query, amt, addr).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, r.explainMiss(ctx, addr, service.ErrBalanceOverflow)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to credit token account %s: %w", addr, err)
	}
	return uint64(balance), nil
}

// explainMiss tells a missing account apart from a failed balance guard
func (r *TokenAccountRepository) explainMiss(ctx context.Context, addr address.Address, guardErr error) error {
	acct, err := r.GetByAddress(ctx, addr)
	if err != nil {
		return err
	}
	if acct == nil {
		return fmt.Errorf("token account %s: %w", addr, service.ErrTokenAccountNotFound)
	}
	return fmt.Errorf("token account %s holds %d: %w", addr, acct.Balance, guardErr)
}
