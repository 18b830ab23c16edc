package models

import (
	"time"

	"skillstreak/address"
)

// SecondsPerDay converts lock-in days to seconds
const SecondsPerDay int64 = 86400

// UserAccount is a user's staking record. One per owner.
type UserAccount struct {
	Address            address.Address `db:"address" json:"address"`
	Owner              address.Address `db:"owner" json:"owner"`
	DepositedAmount    uint64          `db:"deposited_amount" json:"depositedAmount"`
	DepositTimestamp   int64           `db:"deposit_timestamp" json:"depositTimestamp"`
	LockInEndTimestamp int64           `db:"lock_in_end_timestamp" json:"lockInEndTimestamp"`
	TaskCount          uint64          `db:"task_count" json:"taskCount"`
	LastTaskTimestamp  *int64          `db:"last_task_timestamp" json:"lastTaskTimestamp,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updatedAt"`
}

// IsLocked reports whether the lock-in period is still running at now
func (u *UserAccount) IsLocked(now int64) bool {
	return now < u.LockInEndTimestamp
}

// ExtendLockIn moves the lock-in end to now+days unless the current end is later.
// Zero days leaves the lock untouched.
func (u *UserAccount) ExtendLockIn(now int64, days uint32) {
	if days == 0 {
		return
	}
	candidate := now + int64(days)*SecondsPerDay
	if candidate > u.LockInEndTimestamp {
		u.LockInEndTimestamp = candidate
	}
}

// WithdrawResult is returned from withdrawals
type WithdrawResult struct {
	Account  *UserAccount `json:"account"`
	Amount   uint64       `json:"amount"`
	Penalty  uint64       `json:"penalty"`
	Received uint64       `json:"received"`
}
