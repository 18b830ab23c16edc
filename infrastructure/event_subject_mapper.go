package infrastructure

import (
	"skillstreak/events"
)

// SubjectPrefix is the root of every engine subject
const SubjectPrefix = "skillstreak"

// EventSubjectMapper maps engine events to NATS subjects of the form skillstreak.<event_type>
type EventSubjectMapper struct {
	known map[events.EventType]bool
}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	known := make(map[events.EventType]bool, len(events.AllEventTypes))
	for _, t := range events.AllEventTypes {
		known[t] = true
	}
	return &EventSubjectMapper{known: known}
}

// MapEventToSubject converts an event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	return m.subjectFor(event.Type())
}

func (m *EventSubjectMapper) subjectFor(t events.EventType) string {
	if !m.known[t] {
		// Fallback for unknown event types, outside the stream's subjects
		return SubjectPrefix + ".unknown." + string(t)
	}
	return SubjectPrefix + "." + string(t)
}

// GetAllSubjects returns the subject of every known event type
func (m *EventSubjectMapper) GetAllSubjects() []string {
	subjects := make([]string, 0, len(events.AllEventTypes))
	for _, t := range events.AllEventTypes {
		subjects = append(subjects, m.subjectFor(t))
	}
	return subjects
}
