// Package settlement computes market payouts. It has no I/O and no state.
package settlement

import (
	"errors"
	"fmt"
)

// BasisPointsDenominator is 100%
const BasisPointsDenominator = 10000

var (
	// ErrInvalidFee is returned for fees above 100%
	ErrInvalidFee = errors.New("fee basis points exceed 10000")
	// ErrPoolMismatch is returned when the stakes passed to Distribute do not add up to the pools
	ErrPoolMismatch = errors.New("stakes do not match pool totals")
)

// Result describes how a settled market splits its pools
type Result struct {
	OutcomeIsLong bool
	TotalLong     uint64
	TotalShort    uint64
	WinningPool   uint64
	LosingPool    uint64
	Fee           uint64
	// Distributable is the losing pool after fee, shared pro rata among winners
	Distributable uint64
}

// Settle splits the pools for the given outcome.
// When nobody bet on the winning side the whole losing pool goes to the fee sink.
func Settle(totalLong, totalShort uint64, outcomeIsLong bool, feeBps uint16) (Result, error) {
	if feeBps > BasisPointsDenominator {
		return Result{}, ErrInvalidFee
	}
	if _, err := CheckedAdd(totalLong, totalShort); err != nil {
		return Result{}, fmt.Errorf("total pool: %w", err)
	}

	r := Result{
		OutcomeIsLong: outcomeIsLong,
		TotalLong:     totalLong,
		TotalShort:    totalShort,
	}
	if outcomeIsLong {
		r.WinningPool, r.LosingPool = totalLong, totalShort
	} else {
		r.WinningPool, r.LosingPool = totalShort, totalLong
	}

	if r.WinningPool == 0 {
		r.Fee = r.LosingPool
		return r, nil
	}

	fee, err := MulDiv(r.LosingPool, uint64(feeBps), BasisPointsDenominator)
	if err != nil {
		return Result{}, fmt.Errorf("fee: %w", err)
	}
	r.Fee = fee
	r.Distributable, err = CheckedSub(r.LosingPool, fee)
	if err != nil {
		return Result{}, fmt.Errorf("distributable: %w", err)
	}
	return r, nil
}

// Payout returns what a bet of amount on the given side receives.
// Losing bets receive nothing.
func (r Result) Payout(amount uint64, positionIsLong bool) (uint64, error) {
	if positionIsLong != r.OutcomeIsLong || r.WinningPool == 0 {
		return 0, nil
	}
	if amount > r.WinningPool {
		return 0, fmt.Errorf("bet of %d exceeds winning pool %d: %w", amount, r.WinningPool, ErrPoolMismatch)
	}
	share, err := MulDiv(amount, r.Distributable, r.WinningPool)
	if err != nil {
		return 0, fmt.Errorf("share: %w", err)
	}
	return CheckedAdd(amount, share)
}

// Stake is one bet as seen by Distribute
type Stake struct {
	Amount         uint64
	PositionIsLong bool
}

// Distribution is the full payout table of a market
type Distribution struct {
	Result
	Payouts   []uint64
	TotalPaid uint64
	// Residual is the flooring dust left in escrow after every payout and the fee
	Residual uint64
}

// Distribute computes payouts for every stake, in order.
// Σ payouts + fee + residual always equals the total of both pools.
func Distribute(totalLong, totalShort uint64, outcomeIsLong bool, feeBps uint16, stakes []Stake) (Distribution, error) {
	res, err := Settle(totalLong, totalShort, outcomeIsLong, feeBps)
	if err != nil {
		return Distribution{}, err
	}

	var sumLong, sumShort uint64
	d := Distribution{Result: res, Payouts: make([]uint64, len(stakes))}
	for i, s := range stakes {
		if s.PositionIsLong {
			sumLong, err = CheckedAdd(sumLong, s.Amount)
		} else {
			sumShort, err = CheckedAdd(sumShort, s.Amount)
		}
		if err != nil {
			return Distribution{}, fmt.Errorf("stake %d: %w", i, err)
		}

		p, err := res.Payout(s.Amount, s.PositionIsLong)
		if err != nil {
			return Distribution{}, fmt.Errorf("stake %d: %w", i, err)
		}
		d.Payouts[i] = p
		if d.TotalPaid, err = CheckedAdd(d.TotalPaid, p); err != nil {
			return Distribution{}, fmt.Errorf("total paid: %w", err)
		}
	}
	if sumLong != totalLong || sumShort != totalShort {
		return Distribution{}, fmt.Errorf("long %d/%d short %d/%d: %w", sumLong, totalLong, sumShort, totalShort, ErrPoolMismatch)
	}

	total := totalLong + totalShort
	outflow, err := CheckedAdd(d.TotalPaid, res.Fee)
	if err != nil {
		return Distribution{}, fmt.Errorf("outflow: %w", err)
	}
	if d.Residual, err = CheckedSub(total, outflow); err != nil {
		return Distribution{}, fmt.Errorf("payouts exceed pool: %w", err)
	}
	return d, nil
}
