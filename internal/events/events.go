package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "study-buddy-service"
	EventVersion = "1.0"
	DefaultTopic = "study-buddy.events"
)

type EventType string

const (
	ClassroomCreated EventType = "classroom.created"
	ClassroomJoined  EventType = "classroom.joined"
	ClassroomRemoved EventType = "classroom.removed"
	PresenceLooking  EventType = "presence.looking"
	SessionStarted   EventType = "session.started"
	SessionExpired   EventType = "session.expired"
	SessionEnded     EventType = "session.ended"
)

// Event is the envelope published for every domain event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

func NewEvent(eventType EventType, data map[string]interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Publisher sends domain events to the message bus
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type noopPublisher struct{}

// NewNoopPublisher returns a publisher that drops every event
func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, Event) error { return nil }
func (noopPublisher) Close() error                         { return nil }
