package pubsub

import (
	"context"
	"encoding/json"
	"time"
)

// Event is a room change broadcast to every instance. Receivers treat it as
// an invalidation signal and re-query; Payload is informational.
type Event struct {
	Type       string          `json:"type"`
	RoomID     string          `json:"room_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewEvent(eventType, roomID string, payload interface{}) (*Event, error) {
	e := &Event{
		Type:       eventType,
		RoomID:     roomID,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		e.Payload = data
	}
	return e, nil
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// Subscriber delivers events from every channel matching a pattern. The
// returned channel is closed when ctx is done or the bus shuts down.
type Subscriber interface {
	SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error)
}

type PubSub interface {
	Publisher
	Subscriber
	Close() error
}
