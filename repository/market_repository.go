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

// MarketRepository implements the MarketRepository interface
type MarketRepository struct {
	q queryable
}

// NewMarketRepository creates a new market repository
func NewMarketRepository(db *database.DB) *MarketRepository {
	return &MarketRepository{q: db.Pool}
}

func newMarketRepositoryWithTx(tx queryable) *MarketRepository {
	return &MarketRepository{q: tx}
}

const marketColumns = `
	address, escrow_address, nonce, creator, subject_user, description,
	opened_timestamp, betting_ends_timestamp, task_deadline_timestamp,
	total_long_amount, total_short_amount, platform_fee_basis_points, status,
	outcome_is_long, fee_amount, residual_amount, settled_timestamp,
	created_at, updated_at`

func scanMarket(row pgx.Row) (*models.Market, error) {
	var m models.Market
	var nonce, totalLong, totalShort, fee, residual int64
	var feeBps int32
	err := row.Scan(
		&m.Address,
		&m.EscrowAddress,
		&nonce,
		&m.Creator,
		&m.SubjectUser,
		&m.Description,
		&m.OpenedTimestamp,
		&m.BettingEndsTimestamp,
		&m.TaskDeadlineTimestamp,
		&totalLong,
		&totalShort,
		&feeBps,
		&m.Status,
		&m.OutcomeIsLong,
		&fee,
		&residual,
		&m.SettledTimestamp,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Nonce = uint64(nonce)
	m.TotalLongAmount = uint64(totalLong)
	m.TotalShortAmount = uint64(totalShort)
	m.PlatformFeeBasisPoints = uint16(feeBps)
	m.FeeAmount = uint64(fee)
	m.ResidualAmount = uint64(residual)
	return &m, nil
}

// Create inserts a new market
func (r *MarketRepository) Create(ctx context.Context, market *models.Market) error {
	query := `
		INSERT INTO markets
		(address, escrow_address, nonce, creator, subject_user, description,
		 opened_timestamp, betting_ends_timestamp, task_deadline_timestamp,
		 total_long_amount, total_short_amount, platform_fee_basis_points, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0, $10, $11)
		RETURNING created_at, updated_at
	`
	// Nonces are opaque; store the bit pattern
	err := r.q.QueryRow(ctx, query,
		market.Address,
		market.EscrowAddress,
		int64(market.Nonce),
		market.Creator,
		market.SubjectUser,
		market.Description,
		market.OpenedTimestamp,
		market.BettingEndsTimestamp,
		market.TaskDeadlineTimestamp,
		int32(market.PlatformFeeBasisPoints),
		string(market.Status),
	).Scan(&market.CreatedAt, &market.UpdatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("market %s: %w", market.Address, service.ErrAccountExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create market %s: %w", market.Address, err)
	}
	return nil
}

// GetByAddress retrieves a market
func (r *MarketRepository) GetByAddress(ctx context.Context, addr address.Address) (*models.Market, error) {
	return r.get(ctx, addr, "")
}

// GetForUpdate retrieves and locks a market
func (r *MarketRepository) GetForUpdate(ctx context.Context, addr address.Address) (*models.Market, error) {
	return r.get(ctx, addr, " FOR UPDATE")
}

func (r *MarketRepository) get(ctx context.Context, addr address.Address, lock string) (*models.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets WHERE address = $1` + lock

	m, err := scanMarket(r.q.QueryRow(ctx, query, addr))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market %s: %w", addr, err)
	}
	return m, nil
}

// Update persists pools, status and settlement fields
func (r *MarketRepository) Update(ctx context.Context, market *models.Market) error {
	totalLong, err := signed(market.TotalLongAmount)
	if err != nil {
		return err
	}
	totalShort, err := signed(market.TotalShortAmount)
	if err != nil {
		return err
	}
	fee, err := signed(market.FeeAmount)
	if err != nil {
		return err
	}
	residual, err := signed(market.ResidualAmount)
	if err != nil {
		return err
	}

	query := `
		UPDATE markets
		SET total_long_amount = $1,
		    total_short_amount = $2,
		    status = $3,
		    outcome_is_long = $4,
		    fee_amount = $5,
		    residual_amount = $6,
		    settled_timestamp = $7,
		    updated_at = NOW()
		WHERE address = $8
		RETURNING updated_at
	`
	err = r.q.QueryRow(ctx, query,
		totalLong,
		totalShort,
		string(market.Status),
		market.OutcomeIsLong,
		fee,
		residual,
		market.SettledTimestamp,
		market.Address,
	).Scan(&market.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("market %s not found", market.Address)
	}
	if err != nil {
		return fmt.Errorf("failed to update market %s: %w", market.Address, err)
	}
	return nil
}

// List returns markets newest first, optionally filtered by status as of now.
// An open market whose betting window ended counts as closed even before an
// instruction persists the flip.
func (r *MarketRepository) List(ctx context.Context, status *models.MarketStatus, now int64, limit int) ([]*models.Market, error) {
	query := `
		SELECT ` + marketColumns + `
		FROM markets
		WHERE $1::TEXT IS NULL
			OR ($1 = 'open' AND status = 'open' AND betting_ends_timestamp > $2)
			OR ($1 = 'closed' AND (status = 'closed' OR (status = 'open' AND betting_ends_timestamp <= $2)))
			OR ($1 = 'settled' AND status = 'settled')
		ORDER BY created_at DESC, address
		LIMIT $3
	`
	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}

	rows, err := r.q.Query(ctx, query, statusArg, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	defer rows.Close()

	var markets []*models.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate markets: %w", err)
	}
	return markets, nil
}
