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

// UserAccountRepository implements the UserAccountRepository interface
type UserAccountRepository struct {
	q queryable
}

// NewUserAccountRepository creates a new user account repository
func NewUserAccountRepository(db *database.DB) *UserAccountRepository {
	return &UserAccountRepository{q: db.Pool}
}

func newUserAccountRepositoryWithTx(tx queryable) *UserAccountRepository {
	return &UserAccountRepository{q: tx}
}

const userAccountColumns = `
	address, owner, deposited_amount, deposit_timestamp, lock_in_end_timestamp,
	task_count, last_task_timestamp, created_at, updated_at`

func scanUserAccount(row pgx.Row) (*models.UserAccount, error) {
	var u models.UserAccount
	var deposited, taskCount int64
	err := row.Scan(
		&u.Address,
		&u.Owner,
		&deposited,
		&u.DepositTimestamp,
		&u.LockInEndTimestamp,
		&taskCount,
		&u.LastTaskTimestamp,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.DepositedAmount = uint64(deposited)
	u.TaskCount = uint64(taskCount)
	return &u, nil
}

// Create inserts a new user account
func (r *UserAccountRepository) Create(ctx context.Context, account *models.UserAccount) error {
	deposited, err := signed(account.DepositedAmount)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO user_accounts
		(address, owner, deposited_amount, deposit_timestamp, lock_in_end_timestamp, task_count, last_task_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err = r.q.QueryRow(ctx, query,
		account.Address,
		account.Owner,
		deposited,
		account.DepositTimestamp,
		account.LockInEndTimestamp,
		int64(account.TaskCount),
		account.LastTaskTimestamp,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("user account %s: %w", account.Address, service.ErrAccountExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create user account %s: %w", account.Address, err)
	}
	return nil
}

// GetByAddress retrieves a user account
func (r *UserAccountRepository) GetByAddress(ctx context.Context, addr address.Address) (*models.UserAccount, error) {
	return r.get(ctx, addr, "")
}

// GetForUpdate retrieves and locks a user account
func (r *UserAccountRepository) GetForUpdate(ctx context.Context, addr address.Address) (*models.UserAccount, error) {
	return r.get(ctx, addr, " FOR UPDATE")
}

func (r *UserAccountRepository) get(ctx context.Context, addr address.Address, lock string) (*models.UserAccount, error) {
	query := `SELECT ` + userAccountColumns + ` FROM user_accounts WHERE address = $1` + lock

	u, err := scanUserAccount(r.q.QueryRow(ctx, query, addr))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user account %s: %w", addr, err)
	}
	return u, nil
}

// Update persists the mutable fields of a user account
func (r *UserAccountRepository) Update(ctx context.Context, account *models.UserAccount) error {
	deposited, err := signed(account.DepositedAmount)
	if err != nil {
		return err
	}

	query := `
		UPDATE user_accounts
		SET deposited_amount = $1,
		    lock_in_end_timestamp = $2,
		    task_count = $3,
		    last_task_timestamp = $4,
		    updated_at = NOW()
		WHERE address = $5
		RETURNING updated_at
	`
	err = r.q.QueryRow(ctx, query,
		deposited,
		account.LockInEndTimestamp,
		int64(account.TaskCount),
		account.LastTaskTimestamp,
		account.Address,
	).Scan(&account.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("user account %s not found", account.Address)
	}
	if err != nil {
		return fmt.Errorf("failed to update user account %s: %w", account.Address, err)
	}
	return nil
}

// SumDeposits returns the total deposited over every user
func (r *UserAccountRepository) SumDeposits(ctx context.Context) (uint64, error) {
	// NUMERIC sum so the aggregate itself cannot overflow
	query := `SELECT COALESCE(SUM(deposited_amount), 0)::TEXT FROM user_accounts`

	var total string
	if err := r.q.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum deposits: %w", err)
	}

	var sum uint64
	if _, err := fmt.Sscan(total, &sum); err != nil {
		return 0, fmt.Errorf("deposit total %s: %w", total, service.ErrArithmeticOverflow)
	}
	return sum, nil
}
