package cmd

import (
	"context"
	"fmt"
	"strconv"

	"skillstreak/address"
	"skillstreak/config"
	"skillstreak/database"
	"skillstreak/events"
	"skillstreak/repository"
	"skillstreak/service"

	log "github.com/sirupsen/logrus"
)

// Fund mints tokens into an owner's wallet token account
func Fund(ctx context.Context, ownerArg, amountArg string) error {
	owner, err := address.Parse(ownerArg)
	if err != nil {
		return fmt.Errorf("invalid owner address: %w", err)
	}
	amount, err := strconv.ParseUint(amountArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", amountArg, err)
	}

	cfg := config.Get()
	ConfigureLogging(cfg)

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	uowFactory := repository.NewUnitOfWorkFactory(db, events.NewBus())
	accounts := service.NewAccountService(uowFactory, cfg, service.SystemClock{})

	wallet, err := accounts.Fund(ctx, owner, amount)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"owner":   owner,
		"wallet":  wallet.Address,
		"amount":  amount,
		"balance": wallet.Balance,
	}).Info("Funded wallet")
	return nil
}
