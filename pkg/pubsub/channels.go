package pubsub

import (
	"fmt"
	"time"
)

// Channel naming conventions for chat realtime events.
const (
	// ChannelRoomEvents carries every change to one room.
	ChannelRoomEvents = "chat:room:%s:events"

	// PatternRoomEvents matches the events channel of every room.
	PatternRoomEvents = "chat:room:*:events"
)

// Event types published on room channels.
const (
	EventRoomCreated    = "room.created"
	EventRoomJoined     = "room.joined"
	EventMessageCreated = "message.created"
)

// RoomEventsChannel returns the channel name for a room's events.
func RoomEventsChannel(roomID string) string {
	return fmt.Sprintf(ChannelRoomEvents, roomID)
}

// RoomCreatedPayload is sent when a room is created.
type RoomCreatedPayload struct {
	RoomID    string `json:"room_id"`
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
}

// RoomJoinedPayload is sent when a device joins a room for the first time.
type RoomJoinedPayload struct {
	RoomID         string   `json:"room_id"`
	UserID         string   `json:"user_id"`
	ParticipantIDs []string `json:"participant_ids"`
}

// MessageCreatedPayload is sent when a message is appended to a room.
type MessageCreatedPayload struct {
	RoomID     string    `json:"room_id"`
	MessageID  string    `json:"message_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
