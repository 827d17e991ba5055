package domain

import "time"

// Participant records that a user joined a room. There is at most one per
// (UserID, ChatRoomID) pair and it is never removed.
type Participant struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ChatRoomID string    `json:"chat_room_id"`
	JoinedAt   time.Time `json:"joined_at"`
}
