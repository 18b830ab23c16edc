package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"skillstreak/events"
	"skillstreak/infrastructure/observability"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SourceService identifies this engine in event envelopes
const SourceService = "skillstreak"

// MessagePublisher sends raw bytes to a subject
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// EventEnvelope wraps every forwarded event
type EventEnvelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Payload   json.RawMessage `json:"payload"`
}

// NATSEventForwarder relays committed bus events to NATS
type NATSEventForwarder struct {
	publisher     MessagePublisher
	subjectMapper *EventSubjectMapper
	metrics       *observability.MetricsProvider
	now           func() time.Time
}

// NewNATSEventForwarder creates a forwarder. metrics may be nil.
func NewNATSEventForwarder(publisher MessagePublisher, subjectMapper *EventSubjectMapper, metrics *observability.MetricsProvider) *NATSEventForwarder {
	return &NATSEventForwarder{
		publisher:     publisher,
		subjectMapper: subjectMapper,
		metrics:       metrics,
		now:           time.Now,
	}
}

// Register subscribes the forwarder to every event on the bus
func (f *NATSEventForwarder) Register(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		if err := f.Forward(ctx, event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to forward event to NATS")
		}
	})
	log.WithField("eventTypes", len(events.AllEventTypes)).Info("Registered NATS event forwarder")
}

// Forward publishes one event wrapped in an envelope
func (f *NATSEventForwarder) Forward(ctx context.Context, event events.Event) error {
	subject := f.subjectMapper.MapEventToSubject(event)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:   uuid.New().String(),
		EventType: string(event.Type()),
		Timestamp: f.now().UTC(),
		Source:    SourceService,
		Payload:   payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := f.publisher.Publish(ctx, subject, data); err != nil {
		// Without a stream bound to the subject JetStream never acks
		if strings.Contains(err.Error(), "no response from stream") {
			log.WithField("subject", subject).Warn("No JetStream stream for subject")
			return nil
		}
		f.metrics.RecordNATSPublishFailure(envelope.EventType)
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}
	f.metrics.RecordNATSMessagePublished(envelope.EventType)

	log.WithFields(log.Fields{
		"eventType": envelope.EventType,
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Forwarded event to NATS")
	return nil
}

// EnsureEventStream creates the stream covering every engine subject
func EnsureEventStream(client *NATSClient, mapper *EventSubjectMapper) error {
	return client.EnsureStream(EventStreamName, mapper.GetAllSubjects())
}
