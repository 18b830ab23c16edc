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

type stakingService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
	clock      Clock
	derive     *address.Deriver
}

// NewStakingService creates a new staking service
func NewStakingService(uowFactory UnitOfWorkFactory, cfg *config.Config, clock Clock) StakingService {
	return &stakingService{
		uowFactory: uowFactory,
		config:     cfg,
		clock:      clock,
		derive:     address.NewDeriver(cfg.ProgramID),
	}
}

// InitializeUser creates the owner's staking record and escrows the first deposit
func (s *stakingService) InitializeUser(ctx context.Context, owner address.Address, depositAmount uint64, lockInDays uint32) (*models.UserAccount, error) {
	if depositAmount == 0 {
		return nil, ErrInvalidAmount
	}
	if lockInDays == 0 {
		return nil, ErrInvalidLockIn
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	userAddr := s.derive.UserAccount(owner)
	existing, err := uow.UserAccountRepository().GetByAddress(ctx, userAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyInitialized
	}

	now := s.clock.Now().Unix()
	account := &models.UserAccount{
		Address:            userAddr,
		Owner:              owner,
		DepositedAmount:    depositAmount,
		DepositTimestamp:   now,
		LockInEndTimestamp: now + int64(lockInDays)*models.SecondsPerDay,
	}
	if err := uow.UserAccountRepository().Create(ctx, account); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return nil, ErrAlreadyInitialized
		}
		return nil, fmt.Errorf("failed to create user account: %w", err)
	}

	escrow := NewEscrow(uow)
	vault := s.derive.Vault()
	if err := escrow.Open(ctx, vault, s.derive.Program()); err != nil {
		return nil, err
	}
	err = escrow.Deposit(ctx, s.derive.Wallet(owner), vault, depositAmount, Movement{
		Kind:     models.TransferKindStakeDeposit,
		Related:  &userAddr,
		Metadata: map[string]any{"lock_in_days": lockInDays},
	})
	if err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.UserInitializedEvent{
		UserAccount:        userAddr,
		Owner:              owner,
		DepositAmount:      depositAmount,
		LockInEndTimestamp: account.LockInEndTimestamp,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return account, nil
}

// Stake escrows more tokens and extends the lock-in when newLockInDays is set
func (s *stakingService) Stake(ctx context.Context, owner address.Address, additionalAmount uint64, newLockInDays uint32) (*models.UserAccount, error) {
	if additionalAmount == 0 {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := s.lockAccount(ctx, uow, owner)
	if err != nil {
		return nil, err
	}

	deposited, err := settlement.CheckedAdd(account.DepositedAmount, additionalAmount)
	if err != nil {
		return nil, fmt.Errorf("deposited amount: %w", ErrArithmeticOverflow)
	}

	err = NewEscrow(uow).Deposit(ctx, s.derive.Wallet(owner), s.derive.Vault(), additionalAmount, Movement{
		Kind:     models.TransferKindStakeDeposit,
		Related:  &account.Address,
		Metadata: map[string]any{"lock_in_days": newLockInDays},
	})
	if err != nil {
		return nil, err
	}

	account.DepositedAmount = deposited
	account.ExtendLockIn(s.clock.Now().Unix(), newLockInDays)
	if err := uow.UserAccountRepository().Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update user account: %w", err)
	}

	uow.EventBus().Publish(events.StakeAddedEvent{
		UserAccount:        account.Address,
		Owner:              owner,
		Amount:             additionalAmount,
		DepositedAmount:    account.DepositedAmount,
		LockInEndTimestamp: account.LockInEndTimestamp,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return account, nil
}

// RecordTask appends a task completion event. No funds move.
func (s *stakingService) RecordTask(ctx context.Context, owner address.Address) (*models.UserAccount, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := s.lockAccount(ctx, uow, owner)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().Unix()
	day := models.DayOf(now)

	switch s.config.TaskDedupPolicy {
	case config.TaskDedupDaily:
		seen, err := uow.TaskEventRepository().HasEventOnDay(ctx, account.Address, day)
		if err != nil {
			return nil, fmt.Errorf("failed to check today's tasks: %w", err)
		}
		if seen {
			return nil, ErrTaskAlreadyRecorded
		}
	case config.TaskDedupEveryCall:
	default:
		panic(fmt.Sprintf("unknown task dedup policy %q", s.config.TaskDedupPolicy))
	}

	count, err := settlement.CheckedAdd(account.TaskCount, 1)
	if err != nil {
		return nil, fmt.Errorf("task count: %w", ErrArithmeticOverflow)
	}

	event := &models.TaskEvent{
		UserAddress: account.Address,
		Owner:       owner,
		RecordedAt:  now,
		RecordedDay: day,
	}
	if err := uow.TaskEventRepository().Record(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record task: %w", err)
	}

	account.TaskCount = count
	account.LastTaskTimestamp = &now
	if err := uow.UserAccountRepository().Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update user account: %w", err)
	}

	uow.EventBus().Publish(events.TaskRecordedEvent{
		UserAccount: account.Address,
		Owner:       owner,
		TaskCount:   account.TaskCount,
		RecordedAt:  now,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return account, nil
}

// Withdraw returns unlocked deposits to the owner's wallet
func (s *stakingService) Withdraw(ctx context.Context, owner address.Address, amount uint64) (*models.WithdrawResult, error) {
	return s.withdraw(ctx, owner, amount, false)
}

// EarlyWithdraw returns locked deposits minus the configured penalty
func (s *stakingService) EarlyWithdraw(ctx context.Context, owner address.Address, amount uint64) (*models.WithdrawResult, error) {
	return s.withdraw(ctx, owner, amount, true)
}

func (s *stakingService) withdraw(ctx context.Context, owner address.Address, amount uint64, early bool) (*models.WithdrawResult, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := s.lockAccount(ctx, uow, owner)
	if err != nil {
		return nil, err
	}

	locked := account.IsLocked(s.clock.Now().Unix())
	if early && !locked {
		return nil, ErrNotLocked
	}
	if !early && locked {
		return nil, ErrStillLocked
	}

	remaining, err := settlement.CheckedSub(account.DepositedAmount, amount)
	if err != nil {
		return nil, fmt.Errorf("withdraw %d of %d deposited: %w", amount, account.DepositedAmount, ErrInsufficientFunds)
	}

	result := &models.WithdrawResult{Account: account, Amount: amount, Received: amount}
	kind := models.TransferKindWithdrawal
	if early {
		kind = models.TransferKindEarlyWithdrawal
		result.Penalty, err = settlement.MulDiv(amount, uint64(s.config.EarlyWithdrawPenaltyBps), settlement.BasisPointsDenominator)
		if err != nil {
			return nil, fmt.Errorf("penalty: %w", ErrArithmeticOverflow)
		}
		result.Received = amount - result.Penalty
	}

	escrow := NewEscrow(uow)
	vault := s.derive.Vault()
	wallet := s.derive.Wallet(owner)
	if err := escrow.Open(ctx, wallet, owner); err != nil {
		return nil, err
	}

	if result.Received > 0 {
		err := escrow.Withdraw(ctx, vault, wallet, result.Received, Movement{Kind: kind, Related: &account.Address})
		if err != nil {
			return nil, err
		}
	}
	if result.Penalty > 0 {
		treasury := s.derive.Treasury()
		if err := escrow.Open(ctx, treasury, s.derive.Program()); err != nil {
			return nil, err
		}
		err := escrow.Withdraw(ctx, vault, treasury, result.Penalty, Movement{
			Kind:     models.TransferKindPenalty,
			Related:  &account.Address,
			Metadata: map[string]any{"penalty_bps": s.config.EarlyWithdrawPenaltyBps},
		})
		if err != nil {
			return nil, err
		}
	}

	account.DepositedAmount = remaining
	if err := uow.UserAccountRepository().Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update user account: %w", err)
	}

	uow.EventBus().Publish(events.FundsWithdrawnEvent{
		UserAccount: account.Address,
		Owner:       owner,
		Amount:      amount,
		Penalty:     result.Penalty,
		Early:       early,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"owner":    owner,
		"amount":   amount,
		"penalty":  result.Penalty,
		"early":    early,
		"deposits": remaining,
	}).Info("Withdrew staked funds")

	return result, nil
}

// GetUser returns the owner's staking record
func (s *stakingService) GetUser(ctx context.Context, owner address.Address) (*models.UserAccount, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.UserAccountRepository().GetByAddress(ctx, s.derive.UserAccount(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to get user account: %w", err)
	}
	if account == nil {
		return nil, ErrNotInitialized
	}
	return account, nil
}

// VerifyVaultConservation checks that the vault holds exactly Σ deposits
func (s *stakingService) VerifyVaultConservation(ctx context.Context) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	vault, err := uow.TokenAccountRepository().GetByAddress(ctx, s.derive.Vault())
	if err != nil {
		return fmt.Errorf("failed to get vault: %w", err)
	}
	var balance uint64
	if vault != nil {
		balance = vault.Balance
	}

	deposits, err := uow.UserAccountRepository().SumDeposits(ctx)
	if err != nil {
		return fmt.Errorf("failed to sum deposits: %w", err)
	}

	if balance != deposits {
		return fmt.Errorf("vault holds %d, deposits total %d: %w", balance, deposits, ErrConservationViolation)
	}
	return nil
}

// lockAccount loads the owner's staking record FOR UPDATE
func (s *stakingService) lockAccount(ctx context.Context, uow UnitOfWork, owner address.Address) (*models.UserAccount, error) {
	account, err := uow.UserAccountRepository().GetForUpdate(ctx, s.derive.UserAccount(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to get user account: %w", err)
	}
	if account == nil {
		return nil, ErrNotInitialized
	}
	return account, nil
}
