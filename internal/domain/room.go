package domain

import (
	"time"
)

// ChatRoom is a named conversation joined by devices.
// ParticipantIDs is ordered by join time, creator first, without duplicates.
type ChatRoom struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	LastMessageAt  time.Time `json:"last_message_at"`
	ParticipantIDs []string  `json:"participant_ids"`
}

// HasParticipant reports whether userID has joined the room.
func (r *ChatRoom) HasParticipant(userID string) bool {
	for _, id := range r.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherParticipants returns the participant ids except userID, in join order.
func (r *ChatRoom) OtherParticipants(userID string) []string {
	others := make([]string, 0, len(r.ParticipantIDs))
	for _, id := range r.ParticipantIDs {
		if id != userID {
			others = append(others, id)
		}
	}
	return others
}

// CreateRoomRequest represents a create room request.
type CreateRoomRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// JoinByLinkRequest carries a scanned QR payload or shared link.
type JoinByLinkRequest struct {
	Link string `json:"link" binding:"required"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	LastMessageAt  time.Time `json:"last_message_at"`
	ParticipantIDs []string  `json:"participant_ids"`
	DeepLink       string    `json:"deep_link"`
}

// JoinRoomResponse reports the room after a join and whether membership changed.
type JoinRoomResponse struct {
	Room   RoomResponse `json:"room"`
	Joined bool         `json:"joined"`
}

// RoomViewResponse is a room together with its latest messages.
type RoomViewResponse struct {
	Room     RoomResponse      `json:"room"`
	Messages []MessageResponse `json:"messages"`
}

// ToResponse converts ChatRoom to RoomResponse, attaching the room's deep link.
func (r *ChatRoom) ToResponse(scheme string) RoomResponse {
	ids := r.ParticipantIDs
	if ids == nil {
		ids = []string{}
	}
	return RoomResponse{
		ID:             r.ID,
		Name:           r.Name,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt,
		LastMessageAt:  r.LastMessageAt,
		ParticipantIDs: ids,
		DeepLink:       BuildDeepLink(scheme, r.ID),
	}
}

// RoomsToResponse converts a slice of rooms.
func RoomsToResponse(rooms []ChatRoom, scheme string) []RoomResponse {
	out := make([]RoomResponse, len(rooms))
	for i := range rooms {
		out[i] = rooms[i].ToResponse(scheme)
	}
	return out
}
