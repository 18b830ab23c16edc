package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"skillstreak/address"
	"skillstreak/models"

	"github.com/stretchr/testify/assert"
)

// TestEventDeliveryIntegration tests the complete event flow from TransactionalBus to main Bus
func TestEventDeliveryIntegration(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan BalanceChangeEvent, 1)
	var wg sync.WaitGroup
	wg.Add(1)

	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		defer wg.Done()
		if balanceEvent, ok := event.(BalanceChangeEvent); ok {
			eventReceived <- balanceEvent
		} else {
			t.Errorf("Expected BalanceChangeEvent, got %T", event)
		}
	})

	testEvent := BalanceChangeEvent{
		Account:      address.FromSeed("vault"),
		OldBalance:   1000,
		NewBalance:   1500,
		TransferKind: models.TransferKindStakeDeposit,
		Credit:       true,
		Amount:       500,
	}

	// Publish inside the "transaction", then flush as a commit would
	transactionalBus.Publish(testEvent)
	assert.Len(t, transactionalBus.Pending(), 1)

	err := transactionalBus.Flush(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, transactionalBus.Pending())

	wg.Wait()

	select {
	case received := <-eventReceived:
		assert.Equal(t, testEvent, received)
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

// TestMultipleEventsDelivery tests delivering events of several types
func TestMultipleEventsDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan EventType, 3)
	var wg sync.WaitGroup
	wg.Add(3)

	mainBus.SubscribeAll(func(ctx context.Context, event Event) {
		defer wg.Done()
		received <- event.Type()
	})

	market := address.FromSeed("market")
	transactionalBus.Publish(MarketOpenedEvent{Market: market})
	transactionalBus.Publish(BetPlacedEvent{Market: market, Amount: 10})
	transactionalBus.Publish(MarketClosedEvent{Market: market, Forced: true})

	assert.NoError(t, transactionalBus.Flush(context.Background()))
	wg.Wait()
	close(received)

	types := map[EventType]bool{}
	for typ := range received {
		types[typ] = true
	}
	assert.True(t, types[EventTypeMarketOpened])
	assert.True(t, types[EventTypeBetPlaced])
	assert.True(t, types[EventTypeMarketClosed])
}

// TestTransactionalBusDiscard tests that discarded events are not delivered
func TestTransactionalBusDiscard(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan bool, 1)
	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		eventReceived <- true
	})

	transactionalBus.Publish(BalanceChangeEvent{Account: address.FromSeed("wallet"), Amount: 5})

	// Rollback path
	transactionalBus.Discard()
	assert.NoError(t, transactionalBus.Flush(context.Background()))

	select {
	case <-eventReceived:
		t.Fatal("Event was received despite being discarded")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandlerPanicIsContained(t *testing.T) {
	mainBus := NewBus()

	done := make(chan struct{})
	mainBus.Subscribe(EventTypeTaskRecorded, func(ctx context.Context, event Event) {
		panic("boom")
	})
	mainBus.Subscribe(EventTypeTaskRecorded, func(ctx context.Context, event Event) {
		close(done)
	})

	mainBus.Emit(context.Background(), TaskRecordedEvent{TaskCount: 1})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler did not run")
	}
}

func TestAccountScoped(t *testing.T) {
	market := address.FromSeed("m")
	bet1 := address.FromSeed("b1")
	bet2 := address.FromSeed("b2")

	var ev Event = MarketSettledEvent{Market: market, Bets: []address.Address{bet1, bet2}}
	scoped, ok := ev.(AccountScoped)
	assert.True(t, ok)
	assert.Equal(t, []address.Address{market, bet1, bet2}, scoped.Accounts())
}
