package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"skillstreak/address"
	"skillstreak/events"
	"skillstreak/models"
)

// memState is one snapshot of every table
type memState struct {
	tokens      map[address.Address]models.TokenAccount
	users       map[address.Address]models.UserAccount
	tasks       []models.TaskEvent
	markets     map[address.Address]models.Market
	marketOrder []address.Address
	bets        map[address.Address]models.Bet
	betOrder    []address.Address
	transfers   []models.Transfer
}

func newMemState() *memState {
	return &memState{
		tokens:  map[address.Address]models.TokenAccount{},
		users:   map[address.Address]models.UserAccount{},
		markets: map[address.Address]models.Market{},
		bets:    map[address.Address]models.Bet{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.markets {
		c.markets[k] = v
	}
	for k, v := range s.bets {
		c.bets[k] = v
	}
	c.tasks = append(c.tasks, s.tasks...)
	c.marketOrder = append(c.marketOrder, s.marketOrder...)
	c.betOrder = append(c.betOrder, s.betOrder...)
	c.transfers = append(c.transfers, s.transfers...)
	return c
}

// memStore is a UnitOfWorkFactory over in-memory tables. A unit of work holds
// the store lock from Begin to Commit/Rollback, which serializes instructions
// the way row locks do.
type memStore struct {
	mu        sync.Mutex
	state     *memState
	published []events.Event
	commits   int
}

func newMemStore() *memStore {
	return &memStore{state: newMemState()}
}

func (s *memStore) Create() UnitOfWork {
	return &memUoW{store: s}
}

func (s *memStore) snapshot() *memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *memStore) balance(addr address.Address) uint64 {
	return s.snapshot().tokens[addr].Balance
}

func (s *memStore) eventsOf(t events.EventType) []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []events.Event
	for _, e := range s.published {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

type memUoW struct {
	store   *memStore
	work    *memState
	pending []events.Event
}

func (u *memUoW) Begin(ctx context.Context) error {
	if u.work != nil {
		return fmt.Errorf("transaction already started")
	}
	u.store.mu.Lock()
	u.work = u.store.state.clone()
	return nil
}

func (u *memUoW) Commit() error {
	if u.work == nil {
		return fmt.Errorf("no transaction to commit")
	}
	u.store.state = u.work
	u.store.published = append(u.store.published, u.pending...)
	u.store.commits++
	u.work, u.pending = nil, nil
	u.store.mu.Unlock()
	return nil
}

func (u *memUoW) Rollback() error {
	if u.work == nil {
		return nil
	}
	u.work, u.pending = nil, nil
	u.store.mu.Unlock()
	return nil
}

func (u *memUoW) Publish(e events.Event) { u.pending = append(u.pending, e) }

func (u *memUoW) TokenAccountRepository() TokenAccountRepository { return memTokens{u.work} }
func (u *memUoW) UserAccountRepository() UserAccountRepository { return memUsers{u.work} }
func (u *memUoW) TaskEventRepository() TaskEventRepository { return memTasks{u.work} }
func (u *memUoW) MarketRepository() MarketRepository { return memMarkets{u.work} }
func (u *memUoW) BetRepository() BetRepository { return memBets{u.work} }
func (u *memUoW) TransferRepository() TransferRepository { return memTransfers{u.work} }
func (u *memUoW) EventBus() EventPublisher { return u }

type memTokens struct{ s *memState }

func (r memTokens) Create(ctx context.Context, addr, owner address.Address) (*models.TokenAccount, error) {
	if _, ok := r.s.tokens[addr]; ok {
		return nil, ErrAccountExists
	}
	acct := models.TokenAccount{Address: addr, Owner: owner}
	r.s.tokens[addr] = acct
	return &acct, nil
}

func (r memTokens) EnsureExists(ctx context.Context, addr, owner address.Address) error {
	if _, ok := r.s.tokens[addr]; !ok {
		r.s.tokens[addr] = models.TokenAccount{Address: addr, Owner: owner}
	}
	return nil
}

func (r memTokens) GetByAddress(ctx context.Context, addr address.Address) (*models.TokenAccount, error) {
	acct, ok := r.s.tokens[addr]
	if !ok {
		return nil, nil
	}
	return &acct, nil
}

func (r memTokens) GetForUpdate(ctx context.Context, addr address.Address) (*models.TokenAccount, error) {
	return r.GetByAddress(ctx, addr)
}

func (r memTokens) Debit(ctx context.Context, addr address.Address, amount uint64) (uint64, error) {
	acct, ok := r.s.tokens[addr]
	if !ok {
		return 0, ErrTokenAccountNotFound
	}
	if acct.Balance < amount {
		return 0, ErrInsufficientBalance
	}
	acct.Balance -= amount
	r.s.tokens[addr] = acct
	return acct.Balance, nil
}

func (r memTokens) Credit(ctx context.Context, addr address.Address, amount uint64) (uint64, error) {
	acct, ok := r.s.tokens[addr]
	if !ok {
		return 0, ErrTokenAccountNotFound
	}
	if acct.Balance > math.MaxInt64-amount {
		return 0, ErrBalanceOverflow
	}
	acct.Balance += amount
	r.s.tokens[addr] = acct
	return acct.Balance, nil
}

type memUsers struct{ s *memState }

func (r memUsers) Create(ctx context.Context, account *models.UserAccount) error {
	if _, ok := r.s.users[account.Address]; ok {
		return ErrAccountExists
	}
	r.s.users[account.Address] = *account
	return nil
}

func (r memUsers) GetByAddress(ctx context.Context, addr address.Address) (*models.UserAccount, error) {
	acct, ok := r.s.users[addr]
	if !ok {
		return nil, nil
	}
	return &acct, nil
}

func (r memUsers) GetForUpdate(ctx context.Context, addr address.Address) (*models.UserAccount, error) {
	return r.GetByAddress(ctx, addr)
}

func (r memUsers) Update(ctx context.Context, account *models.UserAccount) error {
	if _, ok := r.s.users[account.Address]; !ok {
		return fmt.Errorf("user account %s not found", account.Address)
	}
	r.s.users[account.Address] = *account
	return nil
}

func (r memUsers) SumDeposits(ctx context.Context) (uint64, error) {
	var sum uint64
	for _, u := range r.s.users {
		sum += u.DepositedAmount
	}
	return sum, nil
}

type memTasks struct{ s *memState }

func (r memTasks) Record(ctx context.Context, event *models.TaskEvent) error {
	event.ID = int64(len(r.s.tasks) + 1)
	r.s.tasks = append(r.s.tasks, *event)
	return nil
}

func (r memTasks) CountInWindow(ctx context.Context, user address.Address, from, to int64) (int64, error) {
	var n int64
	for _, e := range r.s.tasks {
		if e.UserAddress == user && e.RecordedAt >= from && e.RecordedAt <= to {
			n++
		}
	}
	return n, nil
}

func (r memTasks) HasEventOnDay(ctx context.Context, user address.Address, day time.Time) (bool, error) {
	for _, e := range r.s.tasks {
		if e.UserAddress == user && e.RecordedDay.Equal(day) {
			return true, nil
		}
	}
	return false, nil
}

type memMarkets struct{ s *memState }

func (r memMarkets) Create(ctx context.Context, market *models.Market) error {
	if _, ok := r.s.markets[market.Address]; ok {
		return ErrAccountExists
	}
	r.s.markets[market.Address] = *market
	r.s.marketOrder = append(r.s.marketOrder, market.Address)
	return nil
}

func (r memMarkets) GetByAddress(ctx context.Context, addr address.Address) (*models.Market, error) {
	m, ok := r.s.markets[addr]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r memMarkets) GetForUpdate(ctx context.Context, addr address.Address) (*models.Market, error) {
	return r.GetByAddress(ctx, addr)
}

func (r memMarkets) Update(ctx context.Context, market *models.Market) error {
	if _, ok := r.s.markets[market.Address]; !ok {
		return fmt.Errorf("market %s not found", market.Address)
	}
	r.s.markets[market.Address] = *market
	return nil
}

func (r memMarkets) List(ctx context.Context, status *models.MarketStatus, now int64, limit int) ([]*models.Market, error) {
	var out []*models.Market
	for i := len(r.s.marketOrder) - 1; i >= 0 && len(out) < limit; i-- {
		m := r.s.markets[r.s.marketOrder[i]]
		gated := m
		gated.RefreshStatus(now)
		if status == nil || gated.Status == *status {
			out = append(out, &m)
		}
	}
	return out, nil
}

type memBets struct{ s *memState }

func (r memBets) Create(ctx context.Context, bet *models.Bet) error {
	if _, ok := r.s.bets[bet.Address]; ok {
		return ErrAccountExists
	}
	r.s.bets[bet.Address] = *bet
	r.s.betOrder = append(r.s.betOrder, bet.Address)
	return nil
}

func (r memBets) GetByAddress(ctx context.Context, addr address.Address) (*models.Bet, error) {
	b, ok := r.s.bets[addr]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r memBets) GetForUpdate(ctx context.Context, addr address.Address) (*models.Bet, error) {
	return r.GetByAddress(ctx, addr)
}

func (r memBets) GetByMarket(ctx context.Context, market address.Address) ([]*models.Bet, error) {
	var out []*models.Bet
	for _, addr := range r.s.betOrder {
		b := r.s.bets[addr]
		if b.MarketAddress == market {
			out = append(out, &b)
		}
	}
	return out, nil
}

func (r memBets) UpdatePayouts(ctx context.Context, bets []*models.Bet) error {
	for _, b := range bets {
		stored, ok := r.s.bets[b.Address]
		if !ok {
			return fmt.Errorf("bet %s not found", b.Address)
		}
		payout := *b.PayoutAmount
		stored.PayoutAmount = &payout
		r.s.bets[b.Address] = stored
	}
	return nil
}

func (r memBets) MarkClaimed(ctx context.Context, addr address.Address) error {
	b, ok := r.s.bets[addr]
	if !ok || b.Claimed {
		return ErrAlreadyClaimed
	}
	b.Claimed = true
	r.s.bets[addr] = b
	return nil
}

type memTransfers struct{ s *memState }

func (r memTransfers) Record(ctx context.Context, transfer *models.Transfer) error {
	transfer.ID = int64(len(r.s.transfers) + 1)
	r.s.transfers = append(r.s.transfers, *transfer)
	return nil
}

func (r memTransfers) GetByAccount(ctx context.Context, addr address.Address, limit int) ([]*models.Transfer, error) {
	var out []*models.Transfer
	for i := len(r.s.transfers) - 1; i >= 0 && len(out) < limit; i-- {
		t := r.s.transfers[i]
		if t.ToAddress == addr || (t.FromAddress != nil && *t.FromAddress == addr) {
			out = append(out, &t)
		}
	}
	return out, nil
}

// testClock is a settable Clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
