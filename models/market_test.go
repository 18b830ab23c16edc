package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarket_RefreshStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      MarketStatus
		now         int64
		wantStatus  MarketStatus
		wantChanged bool
	}{
		{"open before window end", MarketStatusOpen, 99, MarketStatusOpen, false},
		{"open at window end", MarketStatusOpen, 100, MarketStatusClosed, true},
		{"open after window end", MarketStatusOpen, 500, MarketStatusClosed, true},
		{"closed stays closed", MarketStatusClosed, 500, MarketStatusClosed, false},
		{"settled is terminal", MarketStatusSettled, 500, MarketStatusSettled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Market{Status: tt.status, BettingEndsTimestamp: 100}
			assert.Equal(t, tt.wantChanged, m.RefreshStatus(tt.now))
			assert.Equal(t, tt.wantStatus, m.Status)
		})
	}
}

func TestMarket_RefreshStatus_UnknownPanics(t *testing.T) {
	m := &Market{Status: "bogus"}
	assert.Panics(t, func() { m.RefreshStatus(0) })
}

func TestParseMarketStatus(t *testing.T) {
	s, err := ParseMarketStatus("settled")
	assert.NoError(t, err)
	assert.Equal(t, MarketStatusSettled, s)

	_, err = ParseMarketStatus("pending")
	assert.Error(t, err)
}

func TestUserAccount_ExtendLockIn(t *testing.T) {
	day := SecondsPerDay
	u := &UserAccount{DepositTimestamp: 0, LockInEndTimestamp: 7 * day}

	// 3 days from day 3 ends before the current lock
	u.ExtendLockIn(3*day, 3)
	assert.Equal(t, 7*day, u.LockInEndTimestamp)

	u.ExtendLockIn(3*day, 0)
	assert.Equal(t, 7*day, u.LockInEndTimestamp)

	u.ExtendLockIn(3*day, 10)
	assert.Equal(t, 13*day, u.LockInEndTimestamp)

	assert.True(t, u.IsLocked(13*day-1))
	assert.False(t, u.IsLocked(13*day))
}

func TestDayOf(t *testing.T) {
	// 2024-01-02T23:59:59Z and 2024-01-03T00:00:00Z
	assert.NotEqual(t, DayOf(1704239999), DayOf(1704240000))
	assert.Equal(t, DayOf(1704240000), DayOf(1704240000+3600))
}

func TestBet_Side(t *testing.T) {
	assert.Equal(t, "long", (&Bet{PositionIsLong: true}).Side())
	assert.Equal(t, "short", (&Bet{}).Side())
	assert.Equal(t, "short", SideName(false))
}
