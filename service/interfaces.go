package service

import (
	"context"
	"time"

	"skillstreak/address"
	"skillstreak/events"
	"skillstreak/models"
)

// TokenAccountRepository defines the interface for ledger balance access
type TokenAccountRepository interface {
	// Create creates a token account with a zero balance. Returns ErrAccountExists on duplicates.
	Create(ctx context.Context, addr, owner address.Address) (*models.TokenAccount, error)

	// EnsureExists creates the account if it is missing
	EnsureExists(ctx context.Context, addr, owner address.Address) error

	// GetByAddress retrieves a token account, nil if missing
	GetByAddress(ctx context.Context, addr address.Address) (*models.TokenAccount, error)

	// GetForUpdate retrieves and row-locks a token account, nil if missing
	GetForUpdate(ctx context.Context, addr address.Address) (*models.TokenAccount, error)

	// Debit subtracts amount, failing with ErrInsufficientBalance instead of going negative
	Debit(ctx context.Context, addr address.Address, amount uint64) (uint64, error)

	// Credit adds amount, failing with ErrBalanceOverflow past the column range
	Credit(ctx context.Context, addr address.Address, amount uint64) (uint64, error)
}

// UserAccountRepository defines the interface for staking record access
type UserAccountRepository interface {
	Create(ctx context.Context, account *models.UserAccount) error
	GetByAddress(ctx context.Context, addr address.Address) (*models.UserAccount, error)
	GetForUpdate(ctx context.Context, addr address.Address) (*models.UserAccount, error)
	Update(ctx context.Context, account *models.UserAccount) error

	// SumDeposits returns Σ deposited_amount over every user
	SumDeposits(ctx context.Context) (uint64, error)
}

// TaskEventRepository defines the interface for task completion events
type TaskEventRepository interface {
	Record(ctx context.Context, event *models.TaskEvent) error

	// CountInWindow counts events of a user with from <= recorded_at <= to
	CountInWindow(ctx context.Context, user address.Address, from, to int64) (int64, error)

	// HasEventOnDay reports whether the user already has an event on the UTC day
	HasEventOnDay(ctx context.Context, user address.Address, day time.Time) (bool, error)
}

// MarketRepository defines the interface for market data access
type MarketRepository interface {
	// Create inserts a market. Returns ErrAccountExists when the address is taken.
	Create(ctx context.Context, market *models.Market) error
	GetByAddress(ctx context.Context, addr address.Address) (*models.Market, error)
	GetForUpdate(ctx context.Context, addr address.Address) (*models.Market, error)
	Update(ctx context.Context, market *models.Market) error

	// List returns markets, newest first, optionally filtered by status as of now
	List(ctx context.Context, status *models.MarketStatus, now int64, limit int) ([]*models.Market, error)

}

// BetRepository defines the interface for bet data access
type BetRepository interface {
	// Create inserts a bet. Returns ErrAccountExists for a second bet by the same bettor.
	Create(ctx context.Context, bet *models.Bet) error
	GetByAddress(ctx context.Context, addr address.Address) (*models.Bet, error)
	GetForUpdate(ctx context.Context, addr address.Address) (*models.Bet, error)

	// GetByMarket returns every bet of a market in placement order
	GetByMarket(ctx context.Context, market address.Address) ([]*models.Bet, error)

	// UpdatePayouts stores the settled payout of each bet
	UpdatePayouts(ctx context.Context, bets []*models.Bet) error

	// MarkClaimed flips claimed to true. Returns ErrAlreadyClaimed if it already was.
	MarkClaimed(ctx context.Context, addr address.Address) error
}

// TransferRepository defines the interface for the token transfer history
type TransferRepository interface {
	Record(ctx context.Context, transfer *models.Transfer) error
	GetByAccount(ctx context.Context, addr address.Address, limit int) ([]*models.Transfer, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// StakingService defines the interface for user staking operations
type StakingService interface {
	// InitializeUser creates the owner's account and escrows the first deposit
	InitializeUser(ctx context.Context, owner address.Address, depositAmount uint64, lockInDays uint32) (*models.UserAccount, error)

	// Stake escrows more tokens and optionally extends the lock-in
	Stake(ctx context.Context, owner address.Address, additionalAmount uint64, newLockInDays uint32) (*models.UserAccount, error)

	// RecordTask appends a task completion event
	RecordTask(ctx context.Context, owner address.Address) (*models.UserAccount, error)

	// Withdraw returns unlocked deposits to the owner's wallet
	Withdraw(ctx context.Context, owner address.Address, amount uint64) (*models.WithdrawResult, error)

	// EarlyWithdraw returns locked deposits minus a penalty paid to the treasury
	EarlyWithdraw(ctx context.Context, owner address.Address, amount uint64) (*models.WithdrawResult, error)

	GetUser(ctx context.Context, owner address.Address) (*models.UserAccount, error)

	// VerifyVaultConservation checks vault balance == Σ deposits
	VerifyVaultConservation(ctx context.Context) error
}

// MarketService defines the interface for prediction market operations
type MarketService interface {
	OpenMarket(ctx context.Context, params models.OpenMarketParams) (*models.Market, error)
	PlaceBet(ctx context.Context, bettor, market address.Address, amount uint64, positionIsLong bool) (*models.Bet, error)
	CloseMarket(ctx context.Context, signer, market address.Address) (*models.Market, error)
	SettleMarket(ctx context.Context, signer, market address.Address) (*models.SettlementResult, error)
	ClaimPayout(ctx context.Context, bettor, market address.Address) (*models.Bet, error)

	GetMarket(ctx context.Context, market address.Address) (*models.Market, error)
	ListMarkets(ctx context.Context, status *models.MarketStatus) ([]*models.Market, error)
	GetBet(ctx context.Context, market, bettor address.Address) (*models.Bet, error)

}

// AccountService resolves any derived address to its record
type AccountService interface {
	FetchAccount(ctx context.Context, addr address.Address) (*models.AccountView, error)
	Fund(ctx context.Context, owner address.Address, amount uint64) (*models.TokenAccount, error)

	// History returns the latest transfers in or out of a token account
	History(ctx context.Context, addr address.Address, limit int) ([]*models.Transfer, error)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	TokenAccountRepository() TokenAccountRepository
	UserAccountRepository() UserAccountRepository
	TaskEventRepository() TaskEventRepository
	MarketRepository() MarketRepository
	BetRepository() BetRepository
	TransferRepository() TransferRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// Clock supplies the engine's notion of now
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
