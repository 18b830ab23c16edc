package models

import (
	"time"

	"skillstreak/address"
)

// Bet is one bettor's position on a market. Only PayoutAmount (at settlement)
// and Claimed (once) change after creation.
type Bet struct {
	Address        address.Address `db:"address" json:"address"`
	MarketAddress  address.Address `db:"market_address" json:"market"`
	Bettor         address.Address `db:"bettor" json:"bettor"`
	Amount         uint64          `db:"amount" json:"amount"`
	PositionIsLong bool            `db:"position_is_long" json:"positionIsLong"`
	Claimed        bool            `db:"claimed" json:"claimed"`
	PayoutAmount   *uint64         `db:"payout_amount" json:"payoutAmount,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}

// SideName returns "long" or "short"
func SideName(positionIsLong bool) string {
	if positionIsLong {
		return "long"
	}
	return "short"
}

// Side returns the bet's position as "long" or "short"
func (b *Bet) Side() string {
	return SideName(b.PositionIsLong)
}
