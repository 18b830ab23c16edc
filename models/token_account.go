package models

import (
	"time"

	"skillstreak/address"
)

// TokenAccount is a balance held on the ledger. Wallets belong to users,
// vaults and escrows belong to the program.
type TokenAccount struct {
	Address   address.Address `db:"address" json:"address"`
	Owner     address.Address `db:"owner" json:"owner"`
	Balance   uint64          `db:"balance" json:"balance"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}
