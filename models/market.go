package models

import (
	"fmt"
	"time"

	"skillstreak/address"
)

// MarketStatus represents the lifecycle state of a market
type MarketStatus string

const (
	MarketStatusOpen    MarketStatus = "open"
	MarketStatusClosed  MarketStatus = "closed"
	MarketStatusSettled MarketStatus = "settled"
)

// ParseMarketStatus validates a status string
func ParseMarketStatus(s string) (MarketStatus, error) {
	switch MarketStatus(s) {
	case MarketStatusOpen, MarketStatusClosed, MarketStatusSettled:
		return MarketStatus(s), nil
	default:
		return "", fmt.Errorf("unknown market status %q", s)
	}
}

// Market is a pool of long/short bets on whether SubjectUser records a task
// between OpenedTimestamp and TaskDeadlineTimestamp.
type Market struct {
	Address                address.Address `db:"address" json:"address"`
	EscrowAddress          address.Address `db:"escrow_address" json:"escrowAddress"`
	Nonce                  uint64          `db:"nonce" json:"nonce"`
	Creator                address.Address `db:"creator" json:"creator"`
	SubjectUser            address.Address `db:"subject_user" json:"subjectUser"`
	Description            string          `db:"description" json:"description"`
	OpenedTimestamp        int64           `db:"opened_timestamp" json:"openedTimestamp"`
	BettingEndsTimestamp   int64           `db:"betting_ends_timestamp" json:"bettingEndsTimestamp"`
	TaskDeadlineTimestamp  int64           `db:"task_deadline_timestamp" json:"taskDeadlineTimestamp"`
	TotalLongAmount        uint64          `db:"total_long_amount" json:"totalLongAmount"`
	TotalShortAmount       uint64          `db:"total_short_amount" json:"totalShortAmount"`
	PlatformFeeBasisPoints uint16          `db:"platform_fee_basis_points" json:"platformFeeBasisPoints"`
	Status                 MarketStatus    `db:"status" json:"status"`
	OutcomeIsLong          *bool           `db:"outcome_is_long" json:"outcomeIsLong,omitempty"`
	FeeAmount              uint64          `db:"fee_amount" json:"feeAmount"`
	ResidualAmount         uint64          `db:"residual_amount" json:"residualAmount"`
	SettledTimestamp       *int64          `db:"settled_timestamp" json:"settledTimestamp,omitempty"`
	CreatedAt              time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time       `db:"updated_at" json:"updatedAt"`
}

// RefreshStatus applies the betting-window time gate. It returns true when the
// status changed and needs to be persisted.
func (m *Market) RefreshStatus(now int64) bool {
	switch m.Status {
	case MarketStatusOpen:
		if now >= m.BettingEndsTimestamp {
			m.Status = MarketStatusClosed
			return true
		}
		return false
	case MarketStatusClosed, MarketStatusSettled:
		return false
	default:
		panic(fmt.Sprintf("market %s has unknown status %q", m.Address, m.Status))
	}
}

// AcceptingBets reports whether a bet placed at now is inside the window
func (m *Market) AcceptingBets(now int64) bool {
	return m.Status == MarketStatusOpen && now < m.BettingEndsTimestamp
}

// TotalPool returns both sides combined. Callers rely on placeBet's overflow
// checks having kept this in range.
func (m *Market) TotalPool() uint64 {
	return m.TotalLongAmount + m.TotalShortAmount
}

// OpenMarketParams carries the inputs of a market-creation instruction
type OpenMarketParams struct {
	Creator                address.Address
	SubjectUser            address.Address
	Nonce                  uint64
	Description            string
	BettingEndsTimestamp   int64
	TaskDeadlineTimestamp  int64
	PlatformFeeBasisPoints uint16
}

// SettlementResult is returned from settling a market
type SettlementResult struct {
	Market        *Market `json:"market"`
	WinningPool   uint64  `json:"winningPool"`
	LosingPool    uint64  `json:"losingPool"`
	Fee           uint64  `json:"fee"`
	Distributable uint64  `json:"distributable"`
	Residual      uint64  `json:"residual"`
	Winners       int     `json:"winners"`
	Losers        int     `json:"losers"`
}
