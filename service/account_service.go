package service

import (
	"context"
	"fmt"

	"skillstreak/address"
	"skillstreak/config"
	"skillstreak/models"
)

// MaxHistoryLimit caps History results
const MaxHistoryLimit = 100

type accountService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
	clock      Clock
	derive     *address.Deriver
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory UnitOfWorkFactory, cfg *config.Config, clock Clock) AccountService {
	return &accountService{
		uowFactory: uowFactory,
		config:     cfg,
		clock:      clock,
		derive:     address.NewDeriver(cfg.ProgramID),
	}
}

// FetchAccount resolves addr to whichever record lives there
func (s *accountService) FetchAccount(ctx context.Context, addr address.Address) (*models.AccountView, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	view := &models.AccountView{Address: addr}

	user, err := uow.UserAccountRepository().GetByAddress(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get user account: %w", err)
	}
	if user != nil {
		view.Kind, view.User = models.AccountKindUser, user
		return view, nil
	}

	market, err := uow.MarketRepository().GetByAddress(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	if market != nil {
		market.RefreshStatus(s.clock.Now().Unix())
		view.Kind, view.Market = models.AccountKindMarket, market
		return view, nil
	}

	bet, err := uow.BetRepository().GetByAddress(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet != nil {
		view.Kind, view.Bet = models.AccountKindBet, bet
		return view, nil
	}

	token, err := uow.TokenAccountRepository().GetByAddress(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get token account: %w", err)
	}
	if token != nil {
		view.Kind, view.Token = models.AccountKindToken, token
		return view, nil
	}

	return nil, ErrAccountNotFound
}

// Fund mints tokens into the owner's wallet. Development only.
func (s *accountService) Fund(ctx context.Context, owner address.Address, amount uint64) (*models.TokenAccount, error) {
	if !s.config.FaucetEnabled {
		return nil, ErrFaucetDisabled
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	escrow := NewEscrow(uow)
	wallet := s.derive.Wallet(owner)
	if err := escrow.Open(ctx, wallet, owner); err != nil {
		return nil, err
	}
	if _, err := escrow.Mint(ctx, wallet, amount, Movement{Kind: models.TransferKindFaucet}); err != nil {
		return nil, err
	}

	account, err := uow.TokenAccountRepository().GetByAddress(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return account, nil
}

// History returns the latest transfers touching a token account
func (s *accountService) History(ctx context.Context, addr address.Address, limit int) ([]*models.Transfer, error) {
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	transfers, err := uow.TransferRepository().GetByAccount(ctx, addr, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer history: %w", err)
	}
	return transfers, nil
}
