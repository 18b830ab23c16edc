package testutil

import (
	"time"

	"skillstreak/address"
	"skillstreak/models"
)

// Deriver is the address deriver used by every factory
var Deriver = address.NewDeriver(address.DefaultProgramID)

// CreateTestUserAccount creates a staking record for owner with default values
func CreateTestUserAccount(owner address.Address, deposited uint64, now int64) *models.UserAccount {
	return &models.UserAccount{
		Address:            Deriver.UserAccount(owner),
		Owner:              owner,
		DepositedAmount:    deposited,
		DepositTimestamp:   now,
		LockInEndTimestamp: now + 7*models.SecondsPerDay,
	}
}

// CreateTestMarket creates an open market on subject with a one day betting window
// and a two day task deadline
func CreateTestMarket(creator, subject address.Address, nonce uint64, now int64) *models.Market {
	addr := Deriver.Market(creator, subject, nonce)
	return &models.Market{
		Address:                addr,
		EscrowAddress:          Deriver.MarketEscrow(addr),
		Nonce:                  nonce,
		Creator:                creator,
		SubjectUser:            subject,
		Description:            "test market",
		OpenedTimestamp:        now,
		BettingEndsTimestamp:   now + models.SecondsPerDay,
		TaskDeadlineTimestamp:  now + 2*models.SecondsPerDay,
		PlatformFeeBasisPoints: 100,
		Status:                 models.MarketStatusOpen,
	}
}

// CreateTestBet creates a bet of bettor on market
func CreateTestBet(market, bettor address.Address, amount uint64, positionIsLong bool) *models.Bet {
	return &models.Bet{
		Address:        Deriver.Bet(market, bettor),
		MarketAddress:  market,
		Bettor:         bettor,
		Amount:         amount,
		PositionIsLong: positionIsLong,
	}
}

// CreateTestTaskEvent creates a task event for the owner's staking record
func CreateTestTaskEvent(owner address.Address, recordedAt int64) *models.TaskEvent {
	return &models.TaskEvent{
		UserAddress: Deriver.UserAccount(owner),
		Owner:       owner,
		RecordedAt:  recordedAt,
		RecordedDay: models.DayOf(recordedAt),
	}
}

// Now returns a fixed reference time used by tests
func Now() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}
