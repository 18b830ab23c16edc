package service

import (
	"context"
	"time"

	"skillstreak/address"
	"skillstreak/events"
	"skillstreak/models"

	"github.com/stretchr/testify/mock"
)

// MockTokenAccountRepository is a mock implementation of TokenAccountRepository
type MockTokenAccountRepository struct {
	mock.Mock
}

func (m *MockTokenAccountRepository) Create(ctx context.Context, addr, owner address.Address) (*models.TokenAccount, error) {
	args := m.Called(ctx, addr, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenAccount), args.Error(1)
}

func (m *MockTokenAccountRepository) EnsureExists(ctx context.Context, addr, owner address.Address) error {
	args := m.Called(ctx, addr, owner)
	return args.Error(0)
}

func (m *MockTokenAccountRepository) GetByAddress(ctx context.Context, addr address.Address) (*models.TokenAccount, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenAccount), args.Error(1)
}

func (m *MockTokenAccountRepository) GetForUpdate(ctx context.Context, addr address.Address) (*models.TokenAccount, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenAccount), args.Error(1)
}

func (m *MockTokenAccountRepository) Debit(ctx context.Context, addr address.Address, amount uint64) (uint64, error) {
	args := m.Called(ctx, addr, amount)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockTokenAccountRepository) Credit(ctx context.Context, addr address.Address, amount uint64) (uint64, error) {
	args := m.Called(ctx, addr, amount)
	return args.Get(0).(uint64), args.Error(1)
}

// MockUserAccountRepository is a mock implementation of UserAccountRepository
type MockUserAccountRepository struct {
	mock.Mock
}

func (m *MockUserAccountRepository) Create(ctx context.Context, account *models.UserAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockUserAccountRepository) GetByAddress(ctx context.Context, addr address.Address) (*models.UserAccount, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAccount), args.Error(1)
}

func (m *MockUserAccountRepository) GetForUpdate(ctx context.Context, addr address.Address) (*models.UserAccount, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAccount), args.Error(1)
}

func (m *MockUserAccountRepository) Update(ctx context.Context, account *models.UserAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockUserAccountRepository) SumDeposits(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

// MockTaskEventRepository is a mock implementation of TaskEventRepository
type MockTaskEventRepository struct {
	mock.Mock
}

func (m *MockTaskEventRepository) Record(ctx context.Context, event *models.TaskEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockTaskEventRepository) CountInWindow(ctx context.Context, user address.Address, from, to int64) (int64, error) {
	args := m.Called(ctx, user, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskEventRepository) HasEventOnDay(ctx context.Context, user address.Address, day time.Time) (bool, error) {
	args := m.Called(ctx, user, day)
	return args.Bool(0), args.Error(1)
}

// MockMarketRepository is a mock implementation of MarketRepository
type MockMarketRepository struct {
	mock.Mock
}

func (m *MockMarketRepository) Create(ctx context.Context, market *models.Market) error {
	args := m.Called(ctx, market)
	return args.Error(0)
}

func (m *MockMarketRepository) GetByAddress(ctx context.Context, addr address.Address) (*models.Market, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Market), args.Error(1)
}

func (m *MockMarketRepository) GetForUpdate(ctx context.Context, addr address.Address) (*models.Market, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Market), args.Error(1)
}

func (m *MockMarketRepository) Update(ctx context.Context, market *models.Market) error {
	args := m.Called(ctx, market)
	return args.Error(0)
}

func (m *MockMarketRepository) List(ctx context.Context, status *models.MarketStatus, now int64, limit int) ([]*models.Market, error) {
	args := m.Called(ctx, status, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Market), args.Error(1)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) GetByAddress(ctx context.Context, addr address.Address) (*models.Bet, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) GetForUpdate(ctx context.Context, addr address.Address) (*models.Bet, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) GetByMarket(ctx context.Context, market address.Address) ([]*models.Bet, error) {
	args := m.Called(ctx, market)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) UpdatePayouts(ctx context.Context, bets []*models.Bet) error {
	args := m.Called(ctx, bets)
	return args.Error(0)
}

func (m *MockBetRepository) MarkClaimed(ctx context.Context, addr address.Address) error {
	args := m.Called(ctx, addr)
	return args.Error(0)
}

// MockTransferRepository is a mock implementation of TransferRepository
type MockTransferRepository struct {
	mock.Mock
}

func (m *MockTransferRepository) Record(ctx context.Context, transfer *models.Transfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

func (m *MockTransferRepository) GetByAccount(ctx context.Context, addr address.Address, limit int) ([]*models.Transfer, error) {
	args := m.Called(ctx, addr, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transfer), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork.
// Transaction calls are mocked; repositories are plain fields.
type MockUnitOfWork struct {
	mock.Mock
	tokenAccountRepo TokenAccountRepository
	userAccountRepo  UserAccountRepository
	taskEventRepo    TaskEventRepository
	marketRepo       MarketRepository
	betRepo          BetRepository
	transferRepo     TransferRepository
	eventBus         EventPublisher
}

// MockRepositories bundles the repositories handed out by a MockUnitOfWork
type MockRepositories struct {
	TokenAccounts TokenAccountRepository
	UserAccounts  UserAccountRepository
	TaskEvents    TaskEventRepository
	Markets       MarketRepository
	Bets          BetRepository
	Transfers     TransferRepository
	EventBus      EventPublisher
}

// SetRepositories configures the repositories returned by the getters
func (m *MockUnitOfWork) SetRepositories(r MockRepositories) {
	m.tokenAccountRepo = r.TokenAccounts
	m.userAccountRepo = r.UserAccounts
	m.taskEventRepo = r.TaskEvents
	m.marketRepo = r.Markets
	m.betRepo = r.Bets
	m.transferRepo = r.Transfers
	m.eventBus = r.EventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) TokenAccountRepository() TokenAccountRepository { return m.tokenAccountRepo }
func (m *MockUnitOfWork) UserAccountRepository() UserAccountRepository { return m.userAccountRepo }
func (m *MockUnitOfWork) TaskEventRepository() TaskEventRepository { return m.taskEventRepo }
func (m *MockUnitOfWork) MarketRepository() MarketRepository { return m.marketRepo }
func (m *MockUnitOfWork) BetRepository() BetRepository { return m.betRepo }
func (m *MockUnitOfWork) TransferRepository() TransferRepository { return m.transferRepo }
func (m *MockUnitOfWork) EventBus() EventPublisher { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	return m.Called().Get(0).(UnitOfWork)
}
