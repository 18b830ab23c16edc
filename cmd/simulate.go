package cmd

import (
	"fmt"
	"io"
	"math/rand"

	"skillstreak/settlement"
)

// SimulationReport summarizes random markets settled at one fee rate
type SimulationReport struct {
	FeeBps           uint16
	Markets          int
	Violations       int // markets where payouts + fee + residual != pool, or a winner lost money
	EmptyWinningSide int
	TotalPool        uint64
	TotalFees        uint64
	TotalResidual    uint64
	MaxResidual      uint64
}

// simulationFees are the fee rates every simulation run covers
var simulationFees = []uint16{0, 100, 250, 1000, 10000}

// Simulate settles random markets at several fee rates and prints a report per rate.
// It returns an error when any market breaks conservation.
func Simulate(w io.Writer, markets int, seed int64) error {
	rng := rand.New(rand.NewSource(seed))

	fmt.Fprintf(w, "=== Settlement simulation: %d markets per fee rate, seed %d ===\n", markets, seed)

	violations := 0
	for _, fee := range simulationFees {
		report, err := simulateFee(rng, fee, markets)
		if err != nil {
			return err
		}
		printReport(w, report)
		violations += report.Violations
	}

	if violations > 0 {
		return fmt.Errorf("%d markets broke conservation", violations)
	}
	return nil
}

func simulateFee(rng *rand.Rand, feeBps uint16, markets int) (SimulationReport, error) {
	report := SimulationReport{FeeBps: feeBps, Markets: markets}

	for i := 0; i < markets; i++ {
		n := rng.Intn(50) + 1
		stakes := make([]settlement.Stake, n)
		var long, short uint64
		for j := range stakes {
			stakes[j] = settlement.Stake{
				Amount:         uint64(rng.Int63n(1_000_000)) + 1,
				PositionIsLong: rng.Intn(2) == 0,
			}
			if stakes[j].PositionIsLong {
				long += stakes[j].Amount
			} else {
				short += stakes[j].Amount
			}
		}
		outcome := rng.Intn(2) == 0

		d, err := settlement.Distribute(long, short, outcome, feeBps, stakes)
		if err != nil {
			return report, fmt.Errorf("market %d at %d bps: %w", i, feeBps, err)
		}

		if d.TotalPaid+d.Fee+d.Residual != long+short {
			report.Violations++
		}
		for j, s := range stakes {
			if s.PositionIsLong == outcome && d.Payouts[j] < s.Amount {
				report.Violations++
				break
			}
		}
		if d.WinningPool == 0 {
			report.EmptyWinningSide++
		}

		report.TotalPool += long + short
		report.TotalFees += d.Fee
		report.TotalResidual += d.Residual
		if d.Residual > report.MaxResidual {
			report.MaxResidual = d.Residual
		}
	}
	return report, nil
}

func printReport(w io.Writer, r SimulationReport) {
	feeShare := 0.0
	if r.TotalPool > 0 {
		feeShare = float64(r.TotalFees) / float64(r.TotalPool) * 100
	}
	fmt.Fprintf(w, "Fee: %5.2f%% | Markets: %d | Empty winning side: %d | Fees: %.3f%% of pool | Residual total: %d max: %d",
		float64(r.FeeBps)/100, r.Markets, r.EmptyWinningSide, feeShare, r.TotalResidual, r.MaxResidual)
	if r.Violations == 0 {
		fmt.Fprintln(w, " ✓ PASS")
	} else {
		fmt.Fprintf(w, " ✗ FAIL (%d violations)\n", r.Violations)
	}
}
