package models

import (
	"time"

	"skillstreak/address"
)

// TaskEvent is one counted task completion. Market settlement reads these
// as its outcome signal.
type TaskEvent struct {
	ID          int64           `db:"id" json:"id"`
	UserAddress address.Address `db:"user_address" json:"userAddress"`
	Owner       address.Address `db:"owner" json:"owner"`
	RecordedAt  int64           `db:"recorded_at" json:"recordedAt"`
	RecordedDay time.Time       `db:"recorded_day" json:"recordedDay"`
}

// DayOf truncates a unix timestamp to its UTC calendar day
func DayOf(ts int64) time.Time {
	t := time.Unix(ts, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
