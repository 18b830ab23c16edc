package settlement

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettle(t *testing.T) {
	tests := []struct {
		name          string
		long, short   uint64
		outcomeIsLong bool
		feeBps        uint16
		want          Result
	}{
		{
			name: "long wins with fee",
			long: 300, short: 100, outcomeIsLong: true, feeBps: 1000,
			want: Result{OutcomeIsLong: true, TotalLong: 300, TotalShort: 100, WinningPool: 300, LosingPool: 100, Fee: 10, Distributable: 90},
		},
		{
			name: "short wins no fee",
			long: 50, short: 150, outcomeIsLong: false, feeBps: 0,
			want: Result{TotalLong: 50, TotalShort: 150, WinningPool: 150, LosingPool: 50, Fee: 0, Distributable: 50},
		},
		{
			name: "empty winning side forfeits to fee sink",
			long: 0, short: 100, outcomeIsLong: true, feeBps: 250,
			want: Result{OutcomeIsLong: true, TotalShort: 100, WinningPool: 0, LosingPool: 100, Fee: 100},
		},
		{
			name: "empty losing side",
			long: 100, short: 0, outcomeIsLong: true, feeBps: 500,
			want: Result{OutcomeIsLong: true, TotalLong: 100, WinningPool: 100},
		},
		{
			name: "fee floors",
			long: 1, short: 99, outcomeIsLong: true, feeBps: 333,
			want: Result{OutcomeIsLong: true, TotalLong: 1, TotalShort: 99, WinningPool: 1, LosingPool: 99, Fee: 3, Distributable: 96},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Settle(tt.long, tt.short, tt.outcomeIsLong, tt.feeBps)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettle_InvalidFee(t *testing.T) {
	_, err := Settle(1, 1, true, 10001)
	assert.ErrorIs(t, err, ErrInvalidFee)
}

func TestSettle_PoolOverflow(t *testing.T) {
	_, err := Settle(math.MaxUint64, 1, true, 0)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestPayout(t *testing.T) {
	res, err := Settle(300, 100, true, 1000)
	require.NoError(t, err)

	p, err := res.Payout(100, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(130), p)

	p, err = res.Payout(200, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(260), p)

	p, err = res.Payout(30, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(39), p)

	p, err = res.Payout(100, false)
	require.NoError(t, err)
	assert.Zero(t, p)
}

func TestPayout_LargeAmountsUseWideMath(t *testing.T) {
	big := uint64(math.MaxInt64 / 2)
	res, err := Settle(big, big, true, 0)
	require.NoError(t, err)

	p, err := res.Payout(big, true)
	require.NoError(t, err)
	assert.Equal(t, 2*big, p)
}

func TestDistribute_Conservation(t *testing.T) {
	d, err := Distribute(300, 100, true, 1000, []Stake{
		{Amount: 100, PositionIsLong: true},
		{Amount: 200, PositionIsLong: true},
		{Amount: 100, PositionIsLong: false},
	})
	require.NoError(t, err)

	assert.Equal(t, []uint64{130, 260, 0}, d.Payouts)
	assert.Equal(t, uint64(390), d.TotalPaid)
	assert.Equal(t, uint64(10), d.Fee)
	assert.Zero(t, d.Residual)
}

func TestDistribute_Residual(t *testing.T) {
	d, err := Distribute(3, 10, true, 0, []Stake{
		{Amount: 1, PositionIsLong: true},
		{Amount: 1, PositionIsLong: true},
		{Amount: 1, PositionIsLong: true},
		{Amount: 10, PositionIsLong: false},
	})
	require.NoError(t, err)

	// 1 + floor(10/3) each
	assert.Equal(t, []uint64{4, 4, 4, 0}, d.Payouts)
	assert.Equal(t, uint64(1), d.Residual)
	assert.Equal(t, uint64(13), d.TotalPaid+d.Fee+d.Residual)
}

func TestDistribute_PoolMismatch(t *testing.T) {
	_, err := Distribute(300, 100, true, 0, []Stake{{Amount: 100, PositionIsLong: true}})
	assert.ErrorIs(t, err, ErrPoolMismatch)
}

func TestDistribute_RandomConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := rng.Intn(20) + 1
		stakes := make([]Stake, n)
		var long, short uint64
		for i := range stakes {
			stakes[i] = Stake{Amount: uint64(rng.Int63n(1_000_000_000) + 1), PositionIsLong: rng.Intn(2) == 0}
			if stakes[i].PositionIsLong {
				long += stakes[i].Amount
			} else {
				short += stakes[i].Amount
			}
		}
		feeBps := uint16(rng.Intn(BasisPointsDenominator + 1))
		outcome := rng.Intn(2) == 0

		d, err := Distribute(long, short, outcome, feeBps, stakes)
		require.NoError(t, err)
		assert.Equal(t, long+short, d.TotalPaid+d.Fee+d.Residual, "round %d", round)

		for i, s := range stakes {
			if s.PositionIsLong == outcome {
				assert.GreaterOrEqual(t, d.Payouts[i], s.Amount, "winner lost money in round %d", round)
			} else {
				assert.Zero(t, d.Payouts[i])
			}
		}
	}
}

func TestCheckedMath(t *testing.T) {
	_, err := CheckedAdd(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = CheckedSub(1, 2)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = CheckedMul(math.MaxUint64, 2)
	assert.ErrorIs(t, err, ErrOverflow)

	v, err := CheckedMul(1<<31, 1<<31)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<62), v)

	_, err = MulDiv(1, 1, 0)
	assert.ErrorIs(t, err, ErrOverflow)

	v, err = MulDiv(math.MaxUint64, math.MaxUint64, math.MaxUint64)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), v)
}
