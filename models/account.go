package models

import "skillstreak/address"

// AccountKind names which record a derived address resolved to
type AccountKind string

const (
	AccountKindUser   AccountKind = "user"
	AccountKindMarket AccountKind = "market"
	AccountKindBet    AccountKind = "bet"
	AccountKindToken  AccountKind = "token"
)

// AccountView is the read-only result of fetching an account by address.
// Exactly one of the record fields is set.
type AccountView struct {
	Kind    AccountKind     `json:"kind"`
	Address address.Address `json:"address"`
	User    *UserAccount    `json:"user,omitempty"`
	Market  *Market         `json:"market,omitempty"`
	Bet     *Bet            `json:"bet,omitempty"`
	Token   *TokenAccount   `json:"token,omitempty"`
}
