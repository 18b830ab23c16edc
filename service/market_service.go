package service

import (
	"context"
	"errors"
	"fmt"

	"skillstreak/address"
	"skillstreak/config"
	"skillstreak/events"
	"skillstreak/models"
	"skillstreak/settlement"

	log "github.com/sirupsen/logrus"
)

// ListMarketsLimit caps ListMarkets results
const ListMarketsLimit = 100

type marketService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
	clock      Clock
	derive     *address.Deriver
}

// NewMarketService creates a new market service
func NewMarketService(uowFactory UnitOfWorkFactory, cfg *config.Config, clock Clock) MarketService {
	return &marketService{
		uowFactory: uowFactory,
		config:     cfg,
		clock:      clock,
		derive:     address.NewDeriver(cfg.ProgramID),
	}
}

// OpenMarket creates an open market and its escrow token account
func (s *marketService) OpenMarket(ctx context.Context, params models.OpenMarketParams) (*models.Market, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	subject, err := uow.UserAccountRepository().GetByAddress(ctx, s.derive.UserAccount(params.SubjectUser))
	if err != nil {
		return nil, fmt.Errorf("failed to get subject account: %w", err)
	}
	if subject == nil {
		return nil, fmt.Errorf("subject %s: %w", params.SubjectUser, ErrNotInitialized)
	}

	now := s.clock.Now().Unix()
	if now >= params.BettingEndsTimestamp || params.BettingEndsTimestamp > params.TaskDeadlineTimestamp {
		return nil, ErrInvalidSchedule
	}
	if params.PlatformFeeBasisPoints > s.config.MaxFeeBasisPoints {
		return nil, fmt.Errorf("%d bps above %d: %w", params.PlatformFeeBasisPoints, s.config.MaxFeeBasisPoints, ErrInvalidFee)
	}

	marketAddr := s.derive.Market(params.Creator, params.SubjectUser, params.Nonce)
	existing, err := uow.MarketRepository().GetByAddress(ctx, marketAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing market: %w", err)
	}
	if existing != nil {
		return nil, ErrMarketExists
	}

	market := &models.Market{
		Address:                marketAddr,
		EscrowAddress:          s.derive.MarketEscrow(marketAddr),
		Nonce:                  params.Nonce,
		Creator:                params.Creator,
		SubjectUser:            params.SubjectUser,
		Description:            params.Description,
		OpenedTimestamp:        now,
		BettingEndsTimestamp:   params.BettingEndsTimestamp,
		TaskDeadlineTimestamp:  params.TaskDeadlineTimestamp,
		PlatformFeeBasisPoints: params.PlatformFeeBasisPoints,
		Status:                 models.MarketStatusOpen,
	}

	if err := NewEscrow(uow).Open(ctx, market.EscrowAddress, s.derive.Program()); err != nil {
		return nil, err
	}
	if err := uow.MarketRepository().Create(ctx, market); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return nil, ErrMarketExists
		}
		return nil, fmt.Errorf("failed to create market: %w", err)
	}

	uow.EventBus().Publish(events.MarketOpenedEvent{
		Market:                market.Address,
		Creator:               market.Creator,
		SubjectUser:           market.SubjectUser,
		BettingEndsTimestamp:  market.BettingEndsTimestamp,
		TaskDeadlineTimestamp: market.TaskDeadlineTimestamp,
		FeeBasisPoints:        market.PlatformFeeBasisPoints,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return market, nil
}

// PlaceBet escrows a bettor's stake on one side of a market
func (s *marketService) PlaceBet(ctx context.Context, bettor, marketAddr address.Address, amount uint64, positionIsLong bool) (*models.Bet, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := s.clock.Now().Unix()
	market, err := s.lockMarket(ctx, uow, marketAddr, now)
	if err != nil {
		return nil, err
	}

	if !market.AcceptingBets(now) {
		return nil, ErrBettingWindowClosed
	}
	if bettor == market.SubjectUser {
		return nil, ErrSelfBetNotAllowed
	}

	betAddr := s.derive.Bet(market.Address, bettor)
	existing, err := uow.BetRepository().GetByAddress(ctx, betAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing bet: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyBet
	}

	if positionIsLong {
		market.TotalLongAmount, err = settlement.CheckedAdd(market.TotalLongAmount, amount)
	} else {
		market.TotalShortAmount, err = settlement.CheckedAdd(market.TotalShortAmount, amount)
	}
	if err != nil {
		return nil, fmt.Errorf("side total: %w", ErrArithmeticOverflow)
	}
	if _, err := settlement.CheckedAdd(market.TotalLongAmount, market.TotalShortAmount); err != nil {
		return nil, fmt.Errorf("total pool: %w", ErrArithmeticOverflow)
	}

	bet := &models.Bet{
		Address:        betAddr,
		MarketAddress:  market.Address,
		Bettor:         bettor,
		Amount:         amount,
		PositionIsLong: positionIsLong,
	}

	err = NewEscrow(uow).Deposit(ctx, s.derive.Wallet(bettor), market.EscrowAddress, amount, Movement{
		Kind:     models.TransferKindBetEscrow,
		Related:  &betAddr,
		Metadata: map[string]any{"side": bet.Side()},
	})
	if err != nil {
		return nil, err
	}

	if err := uow.BetRepository().Create(ctx, bet); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return nil, ErrAlreadyBet
		}
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}
	if err := uow.MarketRepository().Update(ctx, market); err != nil {
		return nil, fmt.Errorf("failed to update market: %w", err)
	}

	uow.EventBus().Publish(events.BetPlacedEvent{
		Market:         market.Address,
		Bet:            bet.Address,
		Bettor:         bettor,
		Amount:         amount,
		PositionIsLong: positionIsLong,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return bet, nil
}

// CloseMarket force-closes an open market before its betting window ends
func (s *marketService) CloseMarket(ctx context.Context, signer, marketAddr address.Address) (*models.Market, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	market, err := s.lockMarket(ctx, uow, marketAddr, s.clock.Now().Unix())
	if err != nil {
		return nil, err
	}

	if signer != market.Creator && !s.config.IsAuthority(signer) {
		return nil, ErrUnauthorized
	}

	switch market.Status {
	case models.MarketStatusOpen:
		market.Status = models.MarketStatusClosed
	case models.MarketStatusClosed, models.MarketStatusSettled:
		return nil, ErrAlreadyClosed
	default:
		panic(fmt.Sprintf("market %s has unknown status %q", market.Address, market.Status))
	}

	if err := uow.MarketRepository().Update(ctx, market); err != nil {
		return nil, fmt.Errorf("failed to update market: %w", err)
	}
	uow.EventBus().Publish(events.MarketClosedEvent{Market: market.Address, Forced: true})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return market, nil
}

// SettleMarket resolves the outcome from the subject's task events and
// stores every bet's payout. Anyone may settle.
func (s *marketService) SettleMarket(ctx context.Context, signer, marketAddr address.Address) (*models.SettlementResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := s.clock.Now().Unix()
	market, err := s.lockMarket(ctx, uow, marketAddr, now)
	if err != nil {
		return nil, err
	}

	switch market.Status {
	case models.MarketStatusOpen:
		return nil, ErrMarketNotYetClosed
	case models.MarketStatusSettled:
		return nil, ErrAlreadySettled
	case models.MarketStatusClosed:
	default:
		panic(fmt.Sprintf("market %s has unknown status %q", market.Address, market.Status))
	}

	outcomeIsLong, err := s.resolveOutcome(ctx, uow, market, now)
	if err != nil {
		return nil, err
	}

	bets, err := uow.BetRepository().GetByMarket(ctx, market.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets: %w", err)
	}
	stakes := make([]settlement.Stake, len(bets))
	for i, b := range bets {
		stakes[i] = settlement.Stake{Amount: b.Amount, PositionIsLong: b.PositionIsLong}
	}

	dist, err := settlement.Distribute(market.TotalLongAmount, market.TotalShortAmount, outcomeIsLong, market.PlatformFeeBasisPoints, stakes)
	if errors.Is(err, settlement.ErrOverflow) {
		return nil, fmt.Errorf("settle %s: %w", market.Address, ErrArithmeticOverflow)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to settle market %s: %w", market.Address, err)
	}

	result := &models.SettlementResult{
		Market:        market,
		WinningPool:   dist.WinningPool,
		LosingPool:    dist.LosingPool,
		Fee:           dist.Fee,
		Distributable: dist.Distributable,
		Residual:      dist.Residual,
	}
	betAddrs := make([]address.Address, len(bets))
	for i, b := range bets {
		betAddrs[i] = b.Address
		payout := dist.Payouts[i]
		b.PayoutAmount = &payout
		if payout > 0 {
			result.Winners++
		} else {
			result.Losers++
		}
	}
	if err := uow.BetRepository().UpdatePayouts(ctx, bets); err != nil {
		return nil, fmt.Errorf("failed to store payouts: %w", err)
	}

	// Fee and flooring dust leave escrow now so that escrow holds exactly the unclaimed payouts
	sweep := dist.Fee + dist.Residual
	if sweep > 0 {
		escrow := NewEscrow(uow)
		treasury := s.derive.Treasury()
		if err := escrow.Open(ctx, treasury, s.derive.Program()); err != nil {
			return nil, err
		}
		err := escrow.Withdraw(ctx, market.EscrowAddress, treasury, sweep, Movement{
			Kind:     models.TransferKindFee,
			Related:  &market.Address,
			Metadata: map[string]any{"fee": dist.Fee, "residual": dist.Residual},
		})
		if err != nil {
			return nil, err
		}
	}

	market.Status = models.MarketStatusSettled
	market.OutcomeIsLong = &outcomeIsLong
	market.FeeAmount = dist.Fee
	market.ResidualAmount = dist.Residual
	market.SettledTimestamp = &now
	if err := uow.MarketRepository().Update(ctx, market); err != nil {
		return nil, fmt.Errorf("failed to update market: %w", err)
	}

	uow.EventBus().Publish(events.MarketSettledEvent{
		Market:        market.Address,
		OutcomeIsLong: outcomeIsLong,
		Fee:           dist.Fee,
		Residual:      dist.Residual,
		Bets:          betAddrs,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"market":   market.Address,
		"signer":   signer,
		"outcome":  models.SideName(outcomeIsLong),
		"fee":      dist.Fee,
		"residual": dist.Residual,
		"winners":  result.Winners,
		"losers":   result.Losers,
	}).Info("Settled market")

	return result, nil
}

// resolveOutcome reads the subject's task events in [opened, deadline].
// Any event means long wins. None means short wins once the deadline has passed.
func (s *marketService) resolveOutcome(ctx context.Context, uow UnitOfWork, market *models.Market, now int64) (bool, error) {
	count, err := uow.TaskEventRepository().CountInWindow(ctx,
		s.derive.UserAccount(market.SubjectUser),
		market.OpenedTimestamp,
		market.TaskDeadlineTimestamp,
	)
	if err != nil {
		return false, fmt.Errorf("failed to count subject tasks: %w", err)
	}
	if count > 0 {
		return true, nil
	}
	if now >= market.TaskDeadlineTimestamp {
		return false, nil
	}
	return false, ErrOutcomeNotYetKnown
}

// ClaimPayout pays a settled bet's payout from escrow to the bettor's wallet
func (s *marketService) ClaimPayout(ctx context.Context, bettor, marketAddr address.Address) (*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	market, err := s.lockMarket(ctx, uow, marketAddr, s.clock.Now().Unix())
	if err != nil {
		return nil, err
	}
	if market.Status != models.MarketStatusSettled {
		return nil, ErrMarketNotSettled
	}

	bet, err := uow.BetRepository().GetForUpdate(ctx, s.derive.Bet(market.Address, bettor))
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, ErrBetNotFound
	}
	if bet.Claimed {
		return nil, ErrAlreadyClaimed
	}
	if bet.PayoutAmount == nil || *bet.PayoutAmount == 0 {
		return nil, ErrNoPayout
	}

	if err := uow.BetRepository().MarkClaimed(ctx, bet.Address); err != nil {
		return nil, err
	}
	bet.Claimed = true

	escrow := NewEscrow(uow)
	wallet := s.derive.Wallet(bettor)
	if err := escrow.Open(ctx, wallet, bettor); err != nil {
		return nil, err
	}
	err = escrow.Withdraw(ctx, market.EscrowAddress, wallet, *bet.PayoutAmount, Movement{
		Kind:    models.TransferKindPayout,
		Related: &bet.Address,
	})
	if err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.PayoutClaimedEvent{
		Market: market.Address,
		Bet:    bet.Address,
		Bettor: bettor,
		Amount: *bet.PayoutAmount,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return bet, nil
}

// GetMarket returns a market with the time gate applied to its status
func (s *marketService) GetMarket(ctx context.Context, marketAddr address.Address) (*models.Market, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	market, err := uow.MarketRepository().GetByAddress(ctx, marketAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	market.RefreshStatus(s.clock.Now().Unix())
	return market, nil
}

// ListMarkets returns recent markets, filtered on their time-gated status
func (s *marketService) ListMarkets(ctx context.Context, status *models.MarketStatus) ([]*models.Market, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := s.clock.Now().Unix()
	markets, err := uow.MarketRepository().List(ctx, status, now, ListMarketsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	for _, m := range markets {
		m.RefreshStatus(now)
	}
	return markets, nil
}

// GetBet returns the bettor's bet on a market
func (s *marketService) GetBet(ctx context.Context, marketAddr, bettor address.Address) (*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bet, err := uow.BetRepository().GetByAddress(ctx, s.derive.Bet(marketAddr, bettor))
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, ErrBetNotFound
	}
	return bet, nil
}

// lockMarket loads a market FOR UPDATE and applies the betting-window gate,
// persisting the flip when it happens
func (s *marketService) lockMarket(ctx context.Context, uow UnitOfWork, marketAddr address.Address, now int64) (*models.Market, error) {
	market, err := uow.MarketRepository().GetForUpdate(ctx, marketAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}

	if market.RefreshStatus(now) {
		if err := uow.MarketRepository().Update(ctx, market); err != nil {
			return nil, fmt.Errorf("failed to update market status: %w", err)
		}
		uow.EventBus().Publish(events.MarketClosedEvent{Market: market.Address})
	}
	return market, nil
}
