package service

import (
	"context"
	"testing"
	"time"

	"skillstreak/address"
	"skillstreak/config"
	"skillstreak/models"

	"github.com/stretchr/testify/require"
)

type harness struct {
	store    *memStore
	clock    *testClock
	cfg      *config.Config
	derive   *address.Deriver
	staking  StakingService
	markets  MarketService
	accounts AccountService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.NewTestConfig()
	return newHarnessWithConfig(t, cfg)
}

func newHarnessWithConfig(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	store := newMemStore()
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return &harness{
		store:    store,
		clock:    clock,
		cfg:      cfg,
		derive:   address.NewDeriver(cfg.ProgramID),
		staking:  NewStakingService(store, cfg, clock),
		markets:  NewMarketService(store, cfg, clock),
		accounts: NewAccountService(store, cfg, clock),
	}
}

func (h *harness) now() int64 {
	return h.clock.Now().Unix()
}

func (h *harness) fund(t *testing.T, owner address.Address, amount uint64) {
	t.Helper()
	_, err := h.accounts.Fund(context.Background(), owner, amount)
	require.NoError(t, err)
}

func (h *harness) wallet(owner address.Address) uint64 {
	return h.store.balance(h.derive.Wallet(owner))
}

// requireConserved checks the vault invariant after an instruction
func (h *harness) requireConserved(t *testing.T) {
	t.Helper()
	require.NoError(t, h.staking.VerifyVaultConservation(context.Background()))
}

// initUser funds owner and stakes deposit for lockDays
func (h *harness) initUser(t *testing.T, owner address.Address, deposit uint64, lockDays uint32) *models.UserAccount {
	t.Helper()
	h.fund(t, owner, deposit)
	acct, err := h.staking.InitializeUser(context.Background(), owner, deposit, lockDays)
	require.NoError(t, err)
	return acct
}

// openMarket opens a market on subject with a one day window and two day deadline
func (h *harness) openMarket(t *testing.T, creator, subject address.Address, nonce uint64, feeBps uint16) *models.Market {
	t.Helper()
	m, err := h.markets.OpenMarket(context.Background(), models.OpenMarketParams{
		Creator:                creator,
		SubjectUser:            subject,
		Nonce:                  nonce,
		Description:            "finish the chapter",
		BettingEndsTimestamp:   h.now() + models.SecondsPerDay,
		TaskDeadlineTimestamp:  h.now() + 2*models.SecondsPerDay,
		PlatformFeeBasisPoints: feeBps,
	})
	require.NoError(t, err)
	return m
}

func (h *harness) bet(t *testing.T, bettor address.Address, market address.Address, amount uint64, long bool) *models.Bet {
	t.Helper()
	h.fund(t, bettor, amount)
	b, err := h.markets.PlaceBet(context.Background(), bettor, market, amount, long)
	require.NoError(t, err)
	return b
}
