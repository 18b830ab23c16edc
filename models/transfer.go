package models

import (
	"time"

	"skillstreak/address"
)

// TransferKind represents why tokens moved
type TransferKind string

const (
	TransferKindStakeDeposit    TransferKind = "stake_deposit"
	TransferKindWithdrawal      TransferKind = "withdrawal"
	TransferKindEarlyWithdrawal TransferKind = "early_withdrawal"
	TransferKindPenalty         TransferKind = "penalty"
	TransferKindBetEscrow       TransferKind = "bet_escrow"
	TransferKindFee             TransferKind = "fee"
	TransferKindPayout          TransferKind = "payout"
	TransferKindFaucet          TransferKind = "faucet"
)

// Transfer is the ledger history of one debit/credit pair
type Transfer struct {
	ID             int64            `db:"id" json:"id"`
	FromAddress    *address.Address `db:"from_address" json:"fromAddress,omitempty"` // nil for faucet mints
	ToAddress      address.Address  `db:"to_address" json:"toAddress"`
	Amount         uint64           `db:"amount" json:"amount"`
	Kind           TransferKind     `db:"kind" json:"kind"`
	RelatedAddress *address.Address `db:"related_address" json:"relatedAddress,omitempty"`
	Metadata       map[string]any   `db:"metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
}
