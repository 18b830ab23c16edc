package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"skillstreak/address"
	"skillstreak/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedMessage struct {
	Subject string
	Data    []byte
}

// MockMessagePublisher records published messages
type MockMessagePublisher struct {
	mu           sync.Mutex
	Messages     []publishedMessage
	PublishError error
	published    chan struct{}
}

func newMockMessagePublisher() *MockMessagePublisher {
	return &MockMessagePublisher{published: make(chan struct{}, 16)}
}

func (m *MockMessagePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.Messages = append(m.Messages, publishedMessage{Subject: subject, Data: data})
	m.published <- struct{}{}
	return nil
}

func TestNATSEventForwarder_Forward(t *testing.T) {
	publisher := newMockMessagePublisher()
	forwarder := NewNATSEventForwarder(publisher, NewEventSubjectMapper(), nil)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	forwarder.now = func() time.Time { return fixed }

	market := address.FromSeed("market")
	bet := address.FromSeed("bet")
	event := events.BetPlacedEvent{
		Market:         market,
		Bet:            bet,
		Bettor:         address.FromSeed("bettor"),
		Amount:         250,
		PositionIsLong: true,
	}

	require.NoError(t, forwarder.Forward(context.Background(), event))
	require.Len(t, publisher.Messages, 1)
	assert.Equal(t, "skillstreak.bet_placed", publisher.Messages[0].Subject)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(publisher.Messages[0].Data, &envelope))
	assert.NotEmpty(t, envelope.EventID)
	assert.Equal(t, "bet_placed", envelope.EventType)
	assert.Equal(t, SourceService, envelope.Source)
	assert.True(t, fixed.Equal(envelope.Timestamp))

	var payload events.BetPlacedEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, event, payload)
}

func TestNATSEventForwarder_PublishError(t *testing.T) {
	publisher := newMockMessagePublisher()
	publisher.PublishError = errors.New("connection refused")
	forwarder := NewNATSEventForwarder(publisher, NewEventSubjectMapper(), nil)

	err := forwarder.Forward(context.Background(), events.MarketClosedEvent{Market: address.FromSeed("m")})
	assert.ErrorContains(t, err, "connection refused")
}

func TestNATSEventForwarder_NoStreamIsTolerated(t *testing.T) {
	publisher := newMockMessagePublisher()
	publisher.PublishError = errors.New("nats: no response from stream")
	forwarder := NewNATSEventForwarder(publisher, NewEventSubjectMapper(), nil)

	assert.NoError(t, forwarder.Forward(context.Background(), events.MarketClosedEvent{Market: address.FromSeed("m")}))
}

func TestNATSEventForwarder_RegisterForwardsBusEvents(t *testing.T) {
	publisher := newMockMessagePublisher()
	forwarder := NewNATSEventForwarder(publisher, NewEventSubjectMapper(), nil)

	bus := events.NewBus()
	forwarder.Register(bus)

	bus.Emit(context.Background(), events.StakeAddedEvent{
		UserAccount: address.FromSeed("user"),
		Owner:       address.FromSeed("owner"),
		Amount:      50,
	})

	select {
	case <-publisher.published:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not forwarded")
	}

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	require.Len(t, publisher.Messages, 1)
	assert.Equal(t, "skillstreak.stake_added", publisher.Messages[0].Subject)
}

func TestEventSubjectMapper_AllSubjectsDistinct(t *testing.T) {
	mapper := NewEventSubjectMapper()
	subjects := mapper.GetAllSubjects()
	require.Len(t, subjects, len(events.AllEventTypes))

	seen := make(map[string]bool)
	for _, s := range subjects {
		assert.False(t, seen[s], "duplicate subject %s", s)
		assert.NotContains(t, s, ".unknown.")
		seen[s] = true
	}
}

func TestEventSubjectMapper_Unknown(t *testing.T) {
	mapper := NewEventSubjectMapper()
	assert.Equal(t, "skillstreak.unknown.mystery", mapper.subjectFor("mystery"))
}

func TestNATSClient_NotConnected(t *testing.T) {
	client := NewNATSClient("nats://127.0.0.1:4222")
	assert.False(t, client.IsConnected())
	assert.ErrorContains(t, client.Publish(context.Background(), "skillstreak.x", nil), "not connected")
	assert.ErrorContains(t, client.EnsureStream(EventStreamName, []string{"skillstreak.>"}), "not connected")
	assert.NoError(t, client.Close())
}
