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

// BetRepository implements the BetRepository interface
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

func newBetRepositoryWithTx(tx queryable) *BetRepository {
	return &BetRepository{q: tx}
}

const betColumns = `address, market_address, bettor, amount, position_is_long, claimed, payout_amount, created_at`

func scanBet(row pgx.Row) (*models.Bet, error) {
	var b models.Bet
	var amount int64
	var payout *int64
	err := row.Scan(
		&b.Address,
		&b.MarketAddress,
		&b.Bettor,
		&amount,
		&b.PositionIsLong,
		&b.Claimed,
		&payout,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Amount = uint64(amount)
	if payout != nil {
		p := uint64(*payout)
		b.PayoutAmount = &p
	}
	return &b, nil
}

// Create inserts a new bet
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	amount, err := signed(bet.Amount)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bets (address, market_address, bettor, amount, position_is_long)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err = r.q.QueryRow(ctx, query,
		bet.Address,
		bet.MarketAddress,
		bet.Bettor,
		amount,
		bet.PositionIsLong,
	).Scan(&bet.CreatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("bet %s: %w", bet.Address, service.ErrAccountExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create bet %s: %w", bet.Address, err)
	}
	return nil
}

// GetByAddress retrieves a bet
func (r *BetRepository) GetByAddress(ctx context.Context, addr address.Address) (*models.Bet, error) {
	return r.get(ctx, addr, "")
}

// GetForUpdate retrieves and locks a bet
func (r *BetRepository) GetForUpdate(ctx context.Context, addr address.Address) (*models.Bet, error) {
	return r.get(ctx, addr, " FOR UPDATE")
}

func (r *BetRepository) get(ctx context.Context, addr address.Address, lock string) (*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE address = $1` + lock

	b, err := scanBet(r.q.QueryRow(ctx, query, addr))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %s: %w", addr, err)
	}
	return b, nil
}

// GetByMarket returns the bets of a market in placement order
func (r *BetRepository) GetByMarket(ctx context.Context, market address.Address) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE market_address = $1 ORDER BY created_at, address`

	rows, err := r.q.Query(ctx, query, market)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets for market %s: %w", market, err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bets: %w", err)
	}
	return bets, nil
}

// UpdatePayouts stores the settled payout of each bet
func (r *BetRepository) UpdatePayouts(ctx context.Context, bets []*models.Bet) error {
	query := `UPDATE bets SET payout_amount = $1 WHERE address = $2`

	for _, b := range bets {
		if b.PayoutAmount == nil {
			return fmt.Errorf("bet %s has no payout to store", b.Address)
		}
		payout, err := signed(*b.PayoutAmount)
		if err != nil {
			return err
		}
		result, err := r.q.Exec(ctx, query, payout, b.Address)
		if err != nil {
			return fmt.Errorf("failed to store payout for bet %s: %w", b.Address, err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("bet %s not found", b.Address)
		}
	}
	return nil
}

// MarkClaimed sets claimed exactly once
func (r *BetRepository) MarkClaimed(ctx context.Context, addr address.Address) error {
	query := `UPDATE bets SET claimed = TRUE WHERE address = $1 AND claimed = FALSE`

	result, err := r.q.Exec(ctx, query, addr)
	if err != nil {
		return fmt.Errorf("failed to mark bet %s claimed: %w", addr, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("bet %s: %w", addr, service.ErrAlreadyClaimed)
	}
	return nil
}
