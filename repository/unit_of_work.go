package repository

import (
	"context"
	"errors"
	"fmt"

	"skillstreak/database"
	"skillstreak/events"
	"skillstreak/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	tokenAccountRepo service.TokenAccountRepository
	userAccountRepo  service.UserAccountRepository
	taskEventRepo    service.TaskEventRepository
	marketRepo       service.MarketRepository
	betRepo          service.BetRepository
	transferRepo     service.TransferRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.tokenAccountRepo = newTokenAccountRepositoryWithTx(tx)
	u.userAccountRepo = newUserAccountRepositoryWithTx(tx)
	u.taskEventRepo = newTaskEventRepositoryWithTx(tx)
	u.marketRepo = newMarketRepositoryWithTx(tx)
	u.betRepo = newBetRepositoryWithTx(tx)
	u.transferRepo = newTransferRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	u.transactionalBus.Flush(u.ctx)

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil
	u.transactionalBus.Discard()

	return nil
}

// TokenAccountRepository returns the ledger repository for this unit of work
func (u *unitOfWork) TokenAccountRepository() service.TokenAccountRepository {
	if u.tokenAccountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.tokenAccountRepo
}

// UserAccountRepository returns the staking repository for this unit of work
func (u *unitOfWork) UserAccountRepository() service.UserAccountRepository {
	if u.userAccountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userAccountRepo
}

// TaskEventRepository returns the task event repository for this unit of work
func (u *unitOfWork) TaskEventRepository() service.TaskEventRepository {
	if u.taskEventRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.taskEventRepo
}

// MarketRepository returns the market repository for this unit of work
func (u *unitOfWork) MarketRepository() service.MarketRepository {
	if u.marketRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.marketRepo
}

// BetRepository returns the bet repository for this unit of work
func (u *unitOfWork) BetRepository() service.BetRepository {
	if u.betRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.betRepo
}

// TransferRepository returns the transfer history repository for this unit of work
func (u *unitOfWork) TransferRepository() service.TransferRepository {
	if u.transferRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transferRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
