package server

import "skillstreak/address"

type initializeUserRequest struct {
	DepositAmount uint64 `json:"depositAmount"`
	LockInDays    uint32 `json:"lockInDays"`
}

type stakeRequest struct {
	AdditionalAmount uint64 `json:"additionalAmount"`
	NewLockInDays    uint32 `json:"newLockInDays"`
}

type withdrawRequest struct {
	Amount uint64 `json:"amount"`
}

type openMarketRequest struct {
	Creator                address.Address `json:"creator" validate:"required"`
	SubjectUser            address.Address `json:"subjectUser" validate:"required"`
	Nonce                  uint64          `json:"nonce"`
	Description            string          `json:"description" validate:"max=280"`
	BettingEndsTimestamp   int64           `json:"bettingEndsTimestamp" validate:"required"`
	TaskDeadlineTimestamp  int64           `json:"taskDeadlineTimestamp" validate:"required"`
	PlatformFeeBasisPoints uint16          `json:"platformFeeBasisPoints" validate:"lte=10000"`
}

type placeBetRequest struct {
	Bettor         address.Address `json:"bettor" validate:"required"`
	Amount         uint64          `json:"amount"`
	PositionIsLong *bool           `json:"positionIsLong" validate:"required"`
}

type signerRequest struct {
	Signer address.Address `json:"signer" validate:"required"`
}

type claimRequest struct {
	Bettor address.Address `json:"bettor" validate:"required"`
}

type fundRequest struct {
	Amount uint64 `json:"amount"`
}
