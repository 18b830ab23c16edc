package events

import (
	"context"
	"sync"

	"skillstreak/address"
	"skillstreak/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange   EventType = "balance_change"
	EventTypeUserInitialized EventType = "user_initialized"
	EventTypeStakeAdded      EventType = "stake_added"
	EventTypeTaskRecorded    EventType = "task_recorded"
	EventTypeFundsWithdrawn  EventType = "funds_withdrawn"
	EventTypeMarketOpened    EventType = "market_opened"
	EventTypeBetPlaced       EventType = "bet_placed"
	EventTypeMarketClosed    EventType = "market_closed"
	EventTypeMarketSettled   EventType = "market_settled"
	EventTypePayoutClaimed   EventType = "payout_claimed"
)

// AllEventTypes lists every event the engine emits
var AllEventTypes = []EventType{
	EventTypeBalanceChange,
	EventTypeUserInitialized,
	EventTypeStakeAdded,
	EventTypeTaskRecorded,
	EventTypeFundsWithdrawn,
	EventTypeMarketOpened,
	EventTypeBetPlaced,
	EventTypeMarketClosed,
	EventTypeMarketSettled,
	EventTypePayoutClaimed,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// AccountScoped is implemented by events that change stored accounts.
// Subscribers use it to invalidate cached copies.
type AccountScoped interface {
	Accounts() []address.Address
}

// BalanceChangeEvent represents a token account balance change
type BalanceChangeEvent struct {
	Account      address.Address     `json:"account"`
	OldBalance   uint64              `json:"oldBalance"`
	NewBalance   uint64              `json:"newBalance"`
	TransferKind models.TransferKind `json:"transferKind"`
	Credit       bool                `json:"credit"`
	Amount       uint64              `json:"amount"`
}

func (e BalanceChangeEvent) Type() EventType { return EventTypeBalanceChange }

func (e BalanceChangeEvent) Accounts() []address.Address { return []address.Address{e.Account} }

// UserInitializedEvent is emitted when a staking account is created
type UserInitializedEvent struct {
	UserAccount        address.Address `json:"userAccount"`
	Owner              address.Address `json:"owner"`
	DepositAmount      uint64          `json:"depositAmount"`
	LockInEndTimestamp int64           `json:"lockInEndTimestamp"`
}

func (e UserInitializedEvent) Type() EventType { return EventTypeUserInitialized }

func (e UserInitializedEvent) Accounts() []address.Address {
	return []address.Address{e.UserAccount}
}

// StakeAddedEvent is emitted on a top-up
type StakeAddedEvent struct {
	UserAccount        address.Address `json:"userAccount"`
	Owner              address.Address `json:"owner"`
	Amount             uint64          `json:"amount"`
	DepositedAmount    uint64          `json:"depositedAmount"`
	LockInEndTimestamp int64           `json:"lockInEndTimestamp"`
}

func (e StakeAddedEvent) Type() EventType { return EventTypeStakeAdded }

func (e StakeAddedEvent) Accounts() []address.Address {
	return []address.Address{e.UserAccount}
}

// TaskRecordedEvent is emitted for every counted task completion
type TaskRecordedEvent struct {
	UserAccount address.Address `json:"userAccount"`
	Owner       address.Address `json:"owner"`
	TaskCount   uint64          `json:"taskCount"`
	RecordedAt  int64           `json:"recordedAt"`
}

func (e TaskRecordedEvent) Type() EventType { return EventTypeTaskRecorded }

func (e TaskRecordedEvent) Accounts() []address.Address {
	return []address.Address{e.UserAccount}
}

// FundsWithdrawnEvent is emitted for regular and early withdrawals
type FundsWithdrawnEvent struct {
	UserAccount address.Address `json:"userAccount"`
	Owner       address.Address `json:"owner"`
	Amount      uint64          `json:"amount"`
	Penalty     uint64          `json:"penalty"`
	Early       bool            `json:"early"`
}

func (e FundsWithdrawnEvent) Type() EventType { return EventTypeFundsWithdrawn }

func (e FundsWithdrawnEvent) Accounts() []address.Address {
	return []address.Address{e.UserAccount}
}

// MarketOpenedEvent is emitted when a market is created
type MarketOpenedEvent struct {
	Market                address.Address `json:"market"`
	Creator               address.Address `json:"creator"`
	SubjectUser           address.Address `json:"subjectUser"`
	BettingEndsTimestamp  int64           `json:"bettingEndsTimestamp"`
	TaskDeadlineTimestamp int64           `json:"taskDeadlineTimestamp"`
	FeeBasisPoints        uint16          `json:"feeBasisPoints"`
}

func (e MarketOpenedEvent) Type() EventType { return EventTypeMarketOpened }

func (e MarketOpenedEvent) Accounts() []address.Address { return []address.Address{e.Market} }

// BetPlacedEvent represents a bet that was placed
type BetPlacedEvent struct {
	Market         address.Address `json:"market"`
	Bet            address.Address `json:"bet"`
	Bettor         address.Address `json:"bettor"`
	Amount         uint64          `json:"amount"`
	PositionIsLong bool            `json:"positionIsLong"`
}

func (e BetPlacedEvent) Type() EventType { return EventTypeBetPlaced }

func (e BetPlacedEvent) Accounts() []address.Address {
	return []address.Address{e.Market, e.Bet}
}

// MarketClosedEvent is emitted when betting stops, by time or by force
type MarketClosedEvent struct {
	Market address.Address `json:"market"`
	Forced bool            `json:"forced"`
}

func (e MarketClosedEvent) Type() EventType { return EventTypeMarketClosed }

func (e MarketClosedEvent) Accounts() []address.Address { return []address.Address{e.Market} }

// MarketSettledEvent is emitted once per market
type MarketSettledEvent struct {
	Market        address.Address   `json:"market"`
	OutcomeIsLong bool              `json:"outcomeIsLong"`
	Fee           uint64            `json:"fee"`
	Residual      uint64            `json:"residual"`
	Bets          []address.Address `json:"bets"`
}

func (e MarketSettledEvent) Type() EventType { return EventTypeMarketSettled }

func (e MarketSettledEvent) Accounts() []address.Address {
	return append([]address.Address{e.Market}, e.Bets...)
}

// PayoutClaimedEvent is emitted when a winner collects
type PayoutClaimedEvent struct {
	Market address.Address `json:"market"`
	Bet    address.Address `json:"bet"`
	Bettor address.Address `json:"bettor"`
	Amount uint64          `json:"amount"`
}

func (e PayoutClaimedEvent) Type() EventType { return EventTypePayoutClaimed }

func (e PayoutClaimedEvent) Accounts() []address.Address {
	return []address.Address{e.Market, e.Bet}
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, t := range AllEventTypes {
		b.Subscribe(t, handler)
	}
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Handlers run asynchronously so a slow subscriber never blocks an instruction
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Queued event on transactional bus")
	b.pending = append(b.pending, e)
}

// Pending returns the queued events in publish order
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// Flush emits queued events. Called after a successful commit.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing transactional bus")

	// Handlers outlive the request, so they get a detached context
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops queued events. Called after rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
