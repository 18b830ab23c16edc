package observability

import (
	"context"

	"skillstreak/events"
)

// RegisterBusMetrics counts token transfers off the event bus.
// Each transfer credits exactly one account, so only credits are counted.
func RegisterBusMetrics(bus *events.Bus, mp *MetricsProvider) {
	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.BalanceChangeEvent)
		if !ok || !e.Credit {
			return
		}
		mp.RecordBalanceTransfer(string(e.TransferKind))
	})
}
